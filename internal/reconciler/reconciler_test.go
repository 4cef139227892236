package reconciler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/hashio"
	"github.com/lumosnap/synccore/internal/remoteapi"
)

func newTestReconciler(t *testing.T) (*Reconciler, *catalog.Store, *catalog.Album, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Open(context.Background(), dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sourceDir := t.TempDir()
	localDir := t.TempDir()

	album := &catalog.Album{
		ID:               "album-1",
		Title:            "Test Album",
		SourceFolderPath: sourceDir,
		LocalFolderPath:  localDir,
		CreatedAt:        time.Now(),
	}
	require.NoError(t, store.CreateAlbum(context.Background(), album))

	cache := hashio.NewScanCache()
	t.Cleanup(func() { cache.Close() })

	r := New(store, cache, nil, nil, nil)

	return r, store, album, sourceDir
}

func writeSourceFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
}

func TestDetect_ClassifiesNewFile(t *testing.T) {
	t.Parallel()

	r, _, album, sourceDir := newTestReconciler(t)
	writeSourceFile(t, sourceDir, "a.jpg", []byte("hello"))

	changes, err := r.Detect(context.Background(), album)
	require.NoError(t, err)
	require.Len(t, changes.New, 1)
	assert.Equal(t, "a.jpg", changes.New[0].Basename)
	assert.Empty(t, changes.Deleted)
	assert.Empty(t, changes.Modified)
}

func TestDetect_ClassifiesModifiedFile(t *testing.T) {
	t.Parallel()

	r, store, album, sourceDir := newTestReconciler(t)
	ctx := context.Background()

	path := filepath.Join(sourceDir, "a.jpg")
	writeSourceFile(t, sourceDir, "a.jpg", []byte("v1"))

	info, err := os.Stat(path)
	require.NoError(t, err)

	img := &catalog.Image{
		AlbumID:          album.ID,
		OriginalFilename: "a.jpg",
		FileSize:         info.Size(),
		Mtime:            info.ModTime(),
		UploadStatus:     catalog.StatusComplete,
	}
	require.NoError(t, store.CreateImage(ctx, img))

	// Advance past lastSyncedAt and change content/size.
	past := time.Now().Add(-time.Hour)
	album.LastSyncedAt = &past
	require.NoError(t, store.UpdateAlbum(ctx, album))

	time.Sleep(10 * time.Millisecond)
	writeSourceFile(t, sourceDir, "a.jpg", []byte("a much longer v2 content"))

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.Modified, 1)
	assert.Equal(t, img.ID, changes.Modified[0].Image.ID)
}

func TestDetect_ClassifiesDeletedFile(t *testing.T) {
	t.Parallel()

	r, store, album, _ := newTestReconciler(t)
	ctx := context.Background()

	img := &catalog.Image{
		AlbumID:          album.ID,
		OriginalFilename: "gone.jpg",
		UploadStatus:     catalog.StatusComplete,
		Mtime:            time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, img))

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.Deleted, 1)
	assert.Equal(t, img.ID, changes.Deleted[0].ID)
}

func TestDetect_DuplicateIsSkipped(t *testing.T) {
	t.Parallel()

	r, store, album, sourceDir := newTestReconciler(t)
	ctx := context.Background()

	content := []byte("same content")
	hash := hashio.HashBytes(content)

	existing := &catalog.Image{
		AlbumID:          album.ID,
		OriginalFilename: "original.jpg",
		SourceFileHash:   hash,
		UploadStatus:     catalog.StatusComplete,
		Mtime:            time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, existing))

	writeSourceFile(t, sourceDir, "original.jpg", content) // unchanged, exists in D
	writeSourceFile(t, sourceDir, "copy.jpg", content)     // duplicate candidate

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.Skipped, 1)
	assert.Equal(t, "copy.jpg", changes.Skipped[0].Basename)
	assert.Contains(t, changes.Skipped[0].Reason, "original.jpg")
	assert.Empty(t, changes.New)
}

func TestDetect_RenameIsDetected(t *testing.T) {
	t.Parallel()

	r, store, album, sourceDir := newTestReconciler(t)
	ctx := context.Background()

	content := []byte("renamed content")
	hash := hashio.HashBytes(content)

	img := &catalog.Image{
		AlbumID:          album.ID,
		OriginalFilename: "old_name.jpg",
		SourceFileHash:   hash,
		UploadStatus:     catalog.StatusComplete,
		Mtime:            time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, img))

	writeSourceFile(t, sourceDir, "new_name.jpg", content)

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.Renamed, 1)
	assert.Equal(t, "old_name.jpg", changes.Renamed[0].OldFilename)
	assert.Equal(t, "new_name.jpg", changes.Renamed[0].NewFilename)
	assert.Empty(t, changes.New)
	assert.Empty(t, changes.Deleted)
}

func TestDetect_TieBreakPrefersDuplicateOverRename(t *testing.T) {
	t.Parallel()

	r, store, album, sourceDir := newTestReconciler(t)
	ctx := context.Background()

	content := []byte("shared content")
	hash := hashio.HashBytes(content)

	complete := &catalog.Image{
		AlbumID: album.ID, OriginalFilename: "kept.jpg", SourceFileHash: hash,
		UploadStatus: catalog.StatusComplete, Mtime: time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, complete))

	potentiallyDeleted := &catalog.Image{
		AlbumID: album.ID, OriginalFilename: "vanished.jpg", SourceFileHash: hash,
		UploadStatus: catalog.StatusComplete, Mtime: time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, potentiallyDeleted))

	writeSourceFile(t, sourceDir, "kept.jpg", content)
	writeSourceFile(t, sourceDir, "new_candidate.jpg", content)

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	assert.Empty(t, changes.Renamed)
	require.Len(t, changes.Skipped, 1)
	assert.Len(t, changes.Deleted, 1)
}

func TestExecute_AppliesNewFilesAndUpdatesAlbum(t *testing.T) {
	t.Parallel()

	r, store, album, sourceDir := newTestReconciler(t)
	ctx := context.Background()

	writeSourceFile(t, sourceDir, "a.jpg", []byte("content a"))

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.New, 1)

	require.NoError(t, r.Execute(ctx, album, changes))

	images, err := store.ListImagesByAlbum(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, catalog.StatusPending, images[0].UploadStatus)
	assert.FileExists(t, images[0].LocalFilePath)

	reloaded, err := store.GetAlbum(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalImages)
	assert.False(t, reloaded.NeedsSync)
	assert.NotNil(t, reloaded.LastSyncedAt)
}

type fixedProfile struct{ limit int }

func (f fixedProfile) ImageLimit(context.Context) (int, error) { return f.limit, nil }

func TestExecute_PlanLimitTruncatesNewFiles(t *testing.T) {
	t.Parallel()

	r, store, album, sourceDir := newTestReconciler(t)
	r.profile = fixedProfile{limit: 1}
	ctx := context.Background()

	writeSourceFile(t, sourceDir, "a.jpg", []byte("content a"))
	writeSourceFile(t, sourceDir, "b.jpg", []byte("content b"))

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.New, 2)

	require.NoError(t, r.Execute(ctx, album, changes))
	assert.True(t, changes.LimitWarning)

	images, err := store.ListImagesByAlbum(ctx, album.ID)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

// fakeRemoteDeleter records every DeleteImages call for assertion.
type fakeRemoteDeleter struct {
	calls [][]int64
	err   error
}

func (f *fakeRemoteDeleter) DeleteImages(_ context.Context, _ string, imageIDs []int64) (remoteapi.DeleteImagesResponse, error) {
	f.calls = append(f.calls, imageIDs)
	if f.err != nil {
		return remoteapi.DeleteImagesResponse{}, f.err
	}

	return remoteapi.DeleteImagesResponse{DeletedCount: len(imageIDs)}, nil
}

func TestExecute_DeletesUploadedImagesFromRemoteBeforeLocal(t *testing.T) {
	t.Parallel()

	r, store, album, _ := newTestReconciler(t)
	ctx := context.Background()

	serverID := int64(42)
	uploaded := &catalog.Image{
		AlbumID: album.ID, OriginalFilename: "gone.jpg", ServerID: &serverID,
		UploadStatus: catalog.StatusComplete, Mtime: time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, uploaded))

	neverUploaded := &catalog.Image{
		AlbumID: album.ID, OriginalFilename: "never_uploaded.jpg",
		UploadStatus: catalog.StatusPending, Mtime: time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, neverUploaded))

	deleter := &fakeRemoteDeleter{}
	r.remote = deleter

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.Deleted, 2)

	require.NoError(t, r.Execute(ctx, album, changes))

	require.Len(t, deleter.calls, 1)
	assert.Equal(t, []int64{serverID}, deleter.calls[0])

	remaining, err := store.ListImagesByAlbum(ctx, album.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestExecute_SkipsRemoteDeleteWhenNothingWasUploaded(t *testing.T) {
	t.Parallel()

	r, store, album, _ := newTestReconciler(t)
	ctx := context.Background()

	neverUploaded := &catalog.Image{
		AlbumID: album.ID, OriginalFilename: "never_uploaded.jpg",
		UploadStatus: catalog.StatusPending, Mtime: time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, neverUploaded))

	deleter := &fakeRemoteDeleter{}
	r.remote = deleter

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.Deleted, 1)

	require.NoError(t, r.Execute(ctx, album, changes))
	assert.Empty(t, deleter.calls)
}

func TestExecute_RemoteDeleteFailureAbortsLocalDelete(t *testing.T) {
	t.Parallel()

	r, store, album, _ := newTestReconciler(t)
	ctx := context.Background()

	serverID := int64(7)
	uploaded := &catalog.Image{
		AlbumID: album.ID, OriginalFilename: "gone.jpg", ServerID: &serverID,
		UploadStatus: catalog.StatusComplete, Mtime: time.Now(),
	}
	require.NoError(t, store.CreateImage(ctx, uploaded))

	deleter := &fakeRemoteDeleter{err: errors.New("remote unavailable")}
	r.remote = deleter

	changes, err := r.Detect(ctx, album)
	require.NoError(t, err)
	require.Len(t, changes.Deleted, 1)

	require.Error(t, r.Execute(ctx, album, changes))

	remaining, err := store.ListImagesByAlbum(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, uploaded.ID, remaining[0].ID)
}
