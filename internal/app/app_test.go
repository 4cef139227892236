package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumosnap/synccore/internal/catalog"
)

func TestNew_AcquiresLockAndClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dataDir := t.TempDir()

	a, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	require.NoError(t, err)

	assert.NoError(t, a.Close())
}

func TestNew_RejectsSecondInstanceOnSameDataDir(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dataDir := t.TempDir()

	first, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	require.NoError(t, err)
	defer first.Close()

	_, err = New(ctx, dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	assert.Error(t, err)
}

func TestNew_SucceedsAgainAfterClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dataDir := t.TempDir()

	first, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestApp_ApproveSyncAppliesDeletionWithoutQueryingRemoteLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dataDir := t.TempDir()

	a, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	require.NoError(t, err)
	defer a.Close()

	sourceDir := t.TempDir()
	localDir := t.TempDir()

	album := &catalog.Album{
		ID:               "album-1",
		Title:            "Test Album",
		SourceFolderPath: sourceDir,
		LocalFolderPath:  localDir,
		CreatedAt:        time.Now(),
	}
	require.NoError(t, a.store.CreateAlbum(ctx, album))

	img := &catalog.Image{
		AlbumID:          album.ID,
		OriginalFilename: "gone.jpg",
		FileSize:         3,
		Mtime:            time.Now(),
		UploadStatus:     catalog.StatusComplete,
	}
	require.NoError(t, a.store.CreateImage(ctx, img))

	// No file named gone.jpg exists in sourceDir, so Detect classifies it
	// as deleted — no new files, so ApproveSync never calls the remote
	// profile's ImageLimit. The image was never uploaded (nil ServerID),
	// so the remote delete call is skipped too; this test makes no
	// network request.
	changes, err := a.PendingChanges(ctx, album.ID)
	require.NoError(t, err)
	assert.Len(t, changes.Deleted, 1)

	require.NoError(t, a.ApproveSync(ctx, album.ID))

	remaining, err := a.store.ListImagesByAlbum(ctx, album.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestApp_ApproveSyncIsNoopWhenNothingChanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dataDir := t.TempDir()

	a, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	require.NoError(t, err)
	defer a.Close()

	sourceDir := t.TempDir()
	album := &catalog.Album{
		ID:               "album-2",
		Title:            "Empty Album",
		SourceFolderPath: sourceDir,
		LocalFolderPath:  t.TempDir(),
		CreatedAt:        time.Now(),
	}
	require.NoError(t, a.store.CreateAlbum(ctx, album))

	assert.NoError(t, a.ApproveSync(ctx, album.ID))
}

func TestTokenProvider_SurfacesMissingSession(t *testing.T) {
	t.Parallel()

	tp := &tokenProvider{dataDir: t.TempDir()}

	_, err := tp.Token()
	assert.Error(t, err)
}

func TestLockFile_CreatedUnderDataDir(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()

	a, err := New(context.Background(), dataDir, t.TempDir(), Config{BaseURL: "http://example.invalid"}, nil)
	require.NoError(t, err)
	defer a.Close()

	_, statErr := os.Stat(filepath.Join(dataDir, lockFileName))
	assert.NoError(t, statErr)
}
