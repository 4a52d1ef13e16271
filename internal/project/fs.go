package project

import (
	"io/fs"
	"os"
)

// FileSystem is the subset of filesystem operations the layout performs.
// OSFileSystem is the production implementation; tests substitute fakes.
type FileSystem interface {
	// Stat returns file info for name, following symlinks.
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string, perm fs.FileMode) error

	// ReadDir lists the entries of a directory.
	ReadDir(name string) ([]fs.DirEntry, error)

	// RemoveAll deletes path and everything below it. Symlinks are removed,
	// never followed.
	RemoveAll(path string) error
}

// OSFileSystem implements FileSystem with the os package.
type OSFileSystem struct{}

// Stat wraps os.Stat.
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// MkdirAll wraps os.MkdirAll.
func (OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// ReadDir wraps os.ReadDir.
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

// RemoveAll wraps os.RemoveAll.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
