package oneshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFileReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "icudt51l.dat")
	dest := filepath.Join(dir, "icudt51l-all.dat")
	writeFile(t, src, "new data")
	writeFile(t, dest, "old data which is a lot longer")

	require.NoError(t, CopyFile(context.Background(), src, dest, true))
	assert.Equal(t, "new data", readFile(t, dest))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must not be left behind")
}

func TestCopyFileErrors(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.dat")

	err := CopyFile(context.Background(), filepath.Join(dir, "missing.dat"), dest, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.dat")

	err = CopyFile(context.Background(), dir, dest, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")

	src := filepath.Join(dir, "src.dat")
	writeFile(t, src, "data")
	err = CopyFile(context.Background(), src, filepath.Join(dir, "nope", "out.dat"), false)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, CopyFile(ctx, src, dest, false), context.Canceled)
	assert.NoFileExists(t, dest)
}
