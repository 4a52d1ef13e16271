// Package project manages the on-disk layout of the project chipdo builds.
//
// It owns three concerns:
//   - FileSystem: a narrow collaborator interface over the few os calls the
//     layout needs, so the orchestration can be tested without a real disk
//   - Layout: ensuring the required directories exist and deleting their
//     contents on clean
//   - FindRoot: locating the project root through `git rev-parse`, falling
//     back to the working directory outside a repository
package project
