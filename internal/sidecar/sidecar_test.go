package sidecar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	f := New("album-1", time.Unix(1_700_000_000, 0).UTC())
	f.Stats = Stats{LastFileCount: 3, LastTotalSize: 4096, TotalImages: 3}

	require.NoError(t, Save(dir, f))

	loaded, ok := Load(dir)
	require.True(t, ok)
	assert.Equal(t, "album-1", loaded.AlbumID)
	assert.Equal(t, currentVersion, loaded.Version)
	assert.Equal(t, 3, loaded.Stats.LastFileCount)
}

func TestLoad_MissingFileIsAbsent(t *testing.T) {
	t.Parallel()

	_, ok := Load(t.TempDir())
	assert.False(t, ok)
}

func TestLoad_CorruptFileIsAbsentNotError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("{not json"), 0o644))

	_, ok := Load(dir)
	assert.False(t, ok)
}

func TestIsClean(t *testing.T) {
	t.Parallel()

	f := New("album-1", time.Now())
	f.Stats = Stats{LastFileCount: 5, LastTotalSize: 1000}

	assert.True(t, f.IsClean(5, 1000))
	assert.False(t, f.IsClean(6, 1000))
	assert.False(t, f.IsClean(5, 1001))
}

func TestVerifyAlbum(t *testing.T) {
	t.Parallel()

	f := New("album-1", time.Now())

	assert.NoError(t, VerifyAlbum(f, "album-1"))
	assert.ErrorIs(t, VerifyAlbum(f, "album-2"), ErrAlbumMismatch)
}

func TestSave_CreatesSidecarAtFixedName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, Save(dir, New("album-1", time.Now())))

	_, err := os.Stat(filepath.Join(dir, FileName))
	assert.NoError(t, err)
}
