package oneshot

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"
)

// posixCommand is an in-process replacement for a common POSIX utility.
// Relative paths in args are resolved against dir.
type posixCommand func(ctx context.Context, dir string, args []string) error

var posixCommands = map[string]posixCommand{
	"mv":    posixMove,
	"rm":    posixRemove,
	"mkdir": posixMkdir,
	"cp":    posixCopy,
}

func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	return flags
}

// parseFlags parses args with flags and returns the remaining operands
func parseFlags(flags *pflag.FlagSet, name string, args []string) ([]string, error) {
	if err := flags.Parse(args); err != nil {
		return nil, eris.Wrapf(err, "%s", name)
	}

	return flags.Args(), nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(dir, path)
}

// expandOperands resolves all operands against dir. On Windows the shell doesn't expand globs for
// external commands so we do it here.
func expandOperands(dir string, operands []string, allowEmpty bool) ([]string, error) {
	items := make([]string, 0, len(operands))
	for _, arg := range operands {
		path := resolvePath(dir, arg)
		if runtime.GOOS != "windows" {
			items = append(items, path)
			continue
		}

		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to resolve pattern %s", arg)
		}

		if matches == nil {
			if allowEmpty {
				continue
			}
			return nil, eris.Errorf("Pattern %s produced no matches", arg)
		}

		items = append(items, matches...)
	}

	return items, nil
}

// targetFor returns the destination path for item. If dest is an existing directory, item is placed inside it.
func targetFor(item, dest string, destIsDir bool) string {
	if destIsDir {
		return filepath.Join(dest, filepath.Base(item))
	}
	return dest
}

// destInfo checks the destination of mv and cp. It returns whether dest is an existing directory.
func destInfo(name, dest string, count int) (bool, error) {
	destParent := filepath.Dir(dest)
	info, err := os.Stat(destParent)
	if err != nil {
		return false, eris.Wrapf(err, "%s: could not find destination directory %s", name, destParent)
	}

	if !info.IsDir() {
		return false, eris.Errorf("%s: %s is not a directory", name, destParent)
	}

	info, err = os.Stat(dest)
	if err != nil && !eris.Is(err, os.ErrNotExist) {
		return false, eris.Wrapf(err, "%s: failed to retrieve info about destination %s", name, dest)
	}

	isDir := err == nil && info.IsDir()
	if count > 1 && !isDir {
		return false, eris.Errorf("%s: can't place multiple items in %s because it is not a directory", name, dest)
	}

	return isDir, nil
}

func posixMove(ctx context.Context, dir string, args []string) error {
	flags := newFlagSet("mv")
	flags.BoolP("force", "f", false, "do not prompt before overwriting")
	operands, err := parseFlags(flags, "mv", args)
	if err != nil {
		return err
	}

	if len(operands) < 2 {
		return eris.New("mv: not enough parameters")
	}

	dest := resolvePath(dir, operands[len(operands)-1])
	items, err := expandOperands(dir, operands[:len(operands)-1], false)
	if err != nil {
		return err
	}

	isDir, err := destInfo("mv", dest, len(items))
	if err != nil {
		return err
	}

	for _, item := range items {
		itemDest := targetFor(item, dest, isDir)
		if err = os.Rename(item, itemDest); err != nil {
			return eris.Wrapf(err, "mv: failed to move %s to %s", item, itemDest)
		}
	}

	return nil
}

func posixRemove(ctx context.Context, dir string, args []string) error {
	flags := newFlagSet("rm")
	recursive := flags.BoolP("recursive", "r", false, "recursively delete directories")
	force := flags.BoolP("force", "f", false, "suppresses errors caused by missing files/folders")
	operands, err := parseFlags(flags, "rm", args)
	if err != nil {
		return err
	}

	items, err := expandOperands(dir, operands, *force)
	if err != nil {
		return err
	}

	for _, item := range items {
		info, err := os.Lstat(item)
		if err != nil {
			if *force && eris.Is(err, os.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "rm: could not stat %s", item)
		}

		if info.IsDir() && !*recursive {
			return eris.Errorf("rm: %s is a directory but -r wasn't passed", item)
		}
	}

	for _, item := range items {
		err := os.RemoveAll(item)
		if err != nil && (!*force || !eris.Is(err, os.ErrNotExist)) {
			return eris.Wrapf(err, "rm: could not delete %s", item)
		}
	}

	return nil
}

func posixMkdir(ctx context.Context, dir string, args []string) error {
	flags := newFlagSet("mkdir")
	makeParents := flags.BoolP("parents", "p", false, "create parent directories as needed")
	operands, err := parseFlags(flags, "mkdir", args)
	if err != nil {
		return err
	}

	if len(operands) == 0 {
		return eris.New("mkdir: missing operand")
	}

	for _, item := range operands {
		path := resolvePath(dir, item)
		if *makeParents {
			err = os.MkdirAll(path, 0o770)
		} else {
			err = os.Mkdir(path, 0o770)
		}

		if err != nil {
			return eris.Wrapf(err, "mkdir: failed to create %s", path)
		}
	}

	return nil
}

func posixCopy(ctx context.Context, dir string, args []string) error {
	flags := newFlagSet("cp")
	flags.BoolP("force", "f", false, "overwrite existing files")
	operands, err := parseFlags(flags, "cp", args)
	if err != nil {
		return err
	}

	if len(operands) < 2 {
		return eris.New("cp: not enough parameters")
	}

	dest := resolvePath(dir, operands[len(operands)-1])
	items, err := expandOperands(dir, operands[:len(operands)-1], false)
	if err != nil {
		return err
	}

	isDir, err := destInfo("cp", dest, len(items))
	if err != nil {
		return err
	}

	for _, item := range items {
		if err = CopyFile(ctx, item, targetFor(item, dest, isDir), false); err != nil {
			return eris.Wrap(err, "cp")
		}
	}

	return nil
}
