// Package fsops provides cross-platform implementations of the few POSIX file
// commands our task scripts rely on (mv, rm, mkdir). The same functions back
// the tool subcommands and the command interception in the task runner, so a
// tasks.star script behaves identically on Windows and POSIX systems.
package fsops

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rotisserie/eris"
)

// ExpandArgs resolves glob patterns on Windows where no shell does it for us.
// On other platforms the arguments are returned unchanged. If force is set,
// patterns without matches are silently dropped instead of causing an error.
func ExpandArgs(args []string, force bool) ([]string, error) {
	if runtime.GOOS != "windows" {
		return args, nil
	}

	items := []string{}
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", arg)
		}

		if matches == nil {
			if force {
				continue
			}
			return nil, eris.Errorf("pattern %s produced no matches", arg)
		}

		items = append(items, matches...)
	}

	return items, nil
}

// Move renames the given sources. If dest is an existing directory, the
// sources are moved into it, otherwise a single source is renamed to dest.
func Move(sources []string, dest string) error {
	if len(sources) == 0 {
		return eris.New("no sources given")
	}

	dest = filepath.Clean(dest)
	items, err := ExpandArgs(sources, false)
	if err != nil {
		return err
	}

	info, err := os.Stat(dest)
	destIsDir := err == nil && info.IsDir()
	if err != nil && !eris.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "failed to retrieve info about destination %s", dest)
	}

	if !destIsDir {
		if len(items) > 1 {
			return eris.Errorf("can't move multiple items to %s because it is not a directory", dest)
		}

		destParent := filepath.Dir(dest)
		info, err := os.Stat(destParent)
		if err != nil {
			return eris.Wrapf(err, "could not find destination directory %s", destParent)
		}

		if !info.IsDir() {
			return eris.Errorf("%s is not a directory", destParent)
		}

		err = os.Rename(items[0], dest)
		if err != nil {
			return eris.Wrapf(err, "failed to move %s to %s", items[0], dest)
		}
		return nil
	}

	for _, item := range items {
		itemDest := filepath.Join(dest, filepath.Base(item))
		err = os.Rename(item, itemDest)
		if err != nil {
			return eris.Wrapf(err, "failed to move %s to %s", item, itemDest)
		}
	}

	return nil
}

// Remove deletes the given files. Directories require recursive; missing
// items only pass with force.
func Remove(paths []string, recursive, force bool) error {
	items, err := ExpandArgs(paths, force)
	if err != nil {
		return err
	}

	for _, item := range items {
		info, err := os.Stat(item)
		if err != nil {
			if force && eris.Is(err, os.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "could not stat %s", item)
		}

		if info.IsDir() && !recursive {
			return eris.Errorf("%s is a directory but -r wasn't passed", item)
		}
	}

	for _, item := range items {
		err := os.RemoveAll(item)
		if err != nil && (!force || !eris.Is(err, os.ErrNotExist)) {
			return eris.Wrapf(err, "could not delete %s", item)
		}
	}

	return nil
}

// MakeDir creates the given directories, including missing parents if
// parents is set.
func MakeDir(paths []string, parents bool) error {
	for _, item := range paths {
		var err error
		if parents {
			err = os.MkdirAll(item, 0770)
		} else {
			err = os.Mkdir(item, 0770)
		}

		if err != nil {
			return eris.Wrapf(err, "failed to create %s", item)
		}
	}

	return nil
}
