package project

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/chipdo/internal/model"
)

// dirPerm is the permission used for directories created by Ensure.
const dirPerm fs.FileMode = 0o755

// Layout performs the directory operations on the project's required
// directories. The directory list comes from configuration, so callers
// (and tests) can supply any ordered set of names.
type Layout struct {
	paths  model.ProjectPaths
	fs     FileSystem
	logger logrus.FieldLogger
}

// NewLayout creates a Layout for paths backed by fsys.
// A nil logger discards all log output.
func NewLayout(paths model.ProjectPaths, fsys FileSystem, logger logrus.FieldLogger) *Layout {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Layout{paths: paths, fs: fsys, logger: logger}
}

// Ensure creates every required directory that does not exist yet, in
// configuration order. Existing directories are left untouched.
//
// A path that exists but is not a directory is an error: building into a
// regular file named "build" can only fail later with a less useful message.
func (l *Layout) Ensure() error {
	for _, name := range l.paths.Directories {
		path := l.paths.Path(name)
		log := l.logger.WithField("dir", name)

		info, err := l.fs.Stat(path)
		if err == nil {
			if !info.IsDir() {
				return model.WrapCLIError(
					model.KindFilesystem,
					fmt.Sprintf("failed to create directory %s", name),
					fmt.Errorf("%s exists and is not a directory", path),
				)
			}
			log.Debug("directory already exists")
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return model.WrapCLIError(
				model.KindFilesystem,
				fmt.Sprintf("failed to create directory %s", name),
				err,
			)
		}

		log.Info("directory does not exist, creating")
		if err := l.fs.MkdirAll(path, dirPerm); err != nil {
			return model.WrapCLIError(
				model.KindFilesystem,
				fmt.Sprintf("failed to create directory %s", name),
				err,
			)
		}
	}
	return nil
}

// Clean deletes the contents of every required directory, walking the list
// in reverse creation order. The directories themselves are kept.
// The first failure aborts the clean.
func (l *Layout) Clean() error {
	dirs := l.paths.Directories
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := l.clearDir(dirs[i]); err != nil {
			return err
		}
	}
	return nil
}

// clearDir removes every entry inside the named required directory.
func (l *Layout) clearDir(name string) error {
	dir := l.paths.Path(name)
	log := l.logger.WithField("dir", name)
	log.Info("deleting directory contents")

	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		return model.WrapCLIError(
			model.KindFilesystem,
			fmt.Sprintf("failed to list %s", dir),
			err,
		)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		log.WithField("entry", entry.Name()).Debug("deleting")
		if err := l.fs.RemoveAll(path); err != nil {
			return model.WrapCLIError(
				model.KindFilesystem,
				fmt.Sprintf("failed to delete %s", path),
				err,
			)
		}
	}
	return nil
}
