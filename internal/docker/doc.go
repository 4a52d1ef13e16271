// Package docker provides containerized execution of build commands for
// the chipdo CLI.
//
// When a container image is configured, every CMake invocation runs in a
// fresh container of that image with the project root bind-mounted at the
// same absolute path, so the paths on the command line are valid both on
// the host and inside the container. Containers are labelled with
// chipdo.* labels and always removed after the command exits.
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
