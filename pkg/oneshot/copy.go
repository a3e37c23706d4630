package oneshot

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
)

// files smaller than this are copied without a progress bar
const progressThreshold = 1 << 20

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" || length < progressThreshold {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

// CopyFile copies src to dest. The data is written to a temporary file next to dest first which
// then replaces dest, so dest is never left half-written.
func CopyFile(ctx context.Context, src, dest string, showProgress bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "Failed to open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return eris.Wrapf(err, "Failed to stat %s", src)
	}

	if info.IsDir() {
		return eris.Errorf("%s is a directory", src)
	}

	tmpPath := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+"."+nanoid.New()+".tmp")
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return eris.Wrapf(err, "Failed to create %s", tmpPath)
	}

	var writer io.Writer = out
	if showProgress {
		bar := getProgressBar(info.Size(), "copying "+filepath.Base(src))
		defer bar.Close()
		writer = io.MultiWriter(out, bar)
	}

	_, err = io.Copy(writer, in)
	if err == nil {
		err = out.Sync()
	}

	cErr := out.Close()
	if err == nil {
		err = cErr
	}

	if err != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(err, "Failed to copy %s to %s", src, dest)
	}

	if err = os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(err, "Failed to move %s to %s", tmpPath, dest)
	}

	return nil
}
