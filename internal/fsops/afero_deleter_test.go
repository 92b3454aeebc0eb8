package fsops

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAferoDeleterRemovesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/a.txt", []byte("hello"), 0o644))

	d := &AferoDeleter{Fs: fs}

	info, err := d.Stat("/data/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	require.NoError(t, d.Remove("/data/a.txt"))

	_, err = d.Stat("/data/a.txt")
	assert.True(t, os.IsNotExist(err), "expected not-exist after remove, got %v", err)
}

func TestAferoDeleterReadOnlyFails(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/data/locked.txt", []byte("x"), 0o644))

	d := &AferoDeleter{Fs: afero.NewReadOnlyFs(base)}

	err := d.Remove("/data/locked.txt")
	require.Error(t, err)

	exists, err := afero.Exists(base, "/data/locked.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewOSDeleter(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/real.txt"
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	d := NewOSDeleter()
	require.NoError(t, d.Remove(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFakeDeleterRecordsCalls(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a", []byte("1"), 0o644))

	boom := errors.New("device busy")
	f := &FakeDeleter{
		Inner:     &AferoDeleter{Fs: fs},
		RemoveErr: map[string]error{"/b": boom},
	}

	_, _ = f.Stat("/a")
	require.NoError(t, f.Remove("/a"))
	require.ErrorIs(t, f.Remove("/b"), boom)

	assert.Equal(t, []string{"stat:/a", "rm:/a", "rm:/b"}, f.Calls())
}
