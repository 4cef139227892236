package compress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SubmitProducesCompressedAndThumbnail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "IMG_0001.jpg")
	writeTestJPEG(t, srcPath, 300, 200)

	albumDir := filepath.Join(dir, "album")
	thumbDir := filepath.Join(albumDir, ".thumbnail")
	require.NoError(t, os.MkdirAll(albumDir, 0o755))

	pool := NewPool(context.Background(), 2, QualityOptions{}, nil)
	defer pool.Shutdown()

	future := pool.Submit(context.Background(), Task{
		SourcePath:    srcPath,
		AlbumLocalDir: albumDir,
		ThumbnailDir:  thumbDir,
		OriginalName:  "IMG_0001.jpg",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := future.Get(ctx)
	require.NoError(t, err)

	assert.FileExists(t, result.CompressedPath)
	assert.FileExists(t, result.ThumbnailPath)
	assert.NotEmpty(t, result.Hash)
	assert.Greater(t, result.FileSize, int64(0))

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Submitted)
	assert.Equal(t, int64(1), stats.Succeeded)
}

func TestPool_MissingSourceFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	pool := NewPool(context.Background(), 1, QualityOptions{}, nil)
	defer pool.Shutdown()

	future := pool.Submit(context.Background(), Task{
		SourcePath:    filepath.Join(dir, "missing.jpg"),
		AlbumLocalDir: dir,
		ThumbnailDir:  filepath.Join(dir, ".thumbnail"),
		OriginalName:  "missing.jpg",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := future.Get(ctx)
	assert.Error(t, err)

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Failed)
}

func TestPool_ShutdownStopsAcceptingWork(t *testing.T) {
	t.Parallel()

	pool := NewPool(context.Background(), 1, QualityOptions{}, nil)
	pool.Shutdown()

	assert.Equal(t, int64(0), pool.Stats().Submitted)
}
