// Package cmake drives the external CMake build tool.
//
// The package never interprets the project's sources: it only assembles the
// configure and compile command lines and hands them to a Runner. The
// Runner interface isolates process spawning so the build sequence can be
// tested with fakes, and so the same commands can run either as local
// subprocesses (ExecRunner) or inside a container (internal/docker).
package cmake
