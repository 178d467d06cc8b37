// Package trash empties the freedesktop.org trash cans of the current
// user: the home trash and the per-mount ones.
package trash

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/formicidae-tracker/olympus/pkg/tm"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var trashSubdirs = []string{"files", "info", "expunged"}

type Emptier struct {
	fs     afero.Fs
	home   string
	uid    int
	logger *logrus.Entry
}

// NewEmptier returns an Emptier for the current user on the real
// filesystem.
func NewEmptier() *Emptier {
	return NewEmptierWith(afero.NewOsFs(), filepath.Join(xdg.DataHome, "Trash"), os.Getuid())
}

func NewEmptierWith(fs afero.Fs, home string, uid int) *Emptier {
	return &Emptier{
		fs:     fs,
		home:   home,
		uid:    uid,
		logger: tm.NewLogger("trash"),
	}
}

// Directories returns the trash directories to consider for the
// given mount points, home trash first.
func (e *Emptier) Directories(mountPaths []string) []string {
	uid := strconv.Itoa(e.uid)
	res := []string{e.home}
	for _, m := range mountPaths {
		res = append(res,
			filepath.Join(m, ".Trash", uid),
			filepath.Join(m, ".Trash-"+uid))
	}
	return res
}

// Empty permanently deletes the content of the home trash and of the
// trash directories found on mountPaths. Missing directories are
// skipped. It stops at the first cancellation of ctx, and otherwise
// tries to remove as much as possible before reporting errors.
func (e *Emptier) Empty(ctx context.Context, mountPaths []string) error {
	var merr *multierror.Error
	for _, dir := range e.Directories(mountPaths) {
		if err := ctx.Err(); err != nil {
			return err
		}
		removed, err := e.emptyDirectory(ctx, dir)
		if err != nil {
			merr = multierror.Append(merr, err)
		}
		if removed > 0 {
			e.logger.WithFields(logrus.Fields{
				"directory": dir,
				"entries":   removed,
			}).Info("emptied trash")
		}
	}
	return merr.ErrorOrNil()
}

func (e *Emptier) emptyDirectory(ctx context.Context, dir string) (int, error) {
	exists, err := afero.DirExists(e.fs, dir)
	if err != nil {
		return 0, fmt.Errorf("could not check %s: %w", dir, err)
	}
	if exists == false {
		return 0, nil
	}

	removed := 0
	for _, sub := range trashSubdirs {
		subdir := filepath.Join(dir, sub)
		entries, err := afero.ReadDir(e.fs, subdir)
		if err != nil {
			if os.IsNotExist(err) == true {
				continue
			}
			return removed, fmt.Errorf("could not list %s: %w", subdir, err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			if err := e.fs.RemoveAll(filepath.Join(subdir, entry.Name())); err != nil {
				return removed, fmt.Errorf("could not remove %s: %w", entry.Name(), err)
			}
			removed += 1
		}
	}
	return removed, nil
}
