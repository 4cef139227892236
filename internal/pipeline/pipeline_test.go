package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/compress"
	"github.com/lumosnap/synccore/internal/events"
	"github.com/lumosnap/synccore/internal/hashio"
	"github.com/lumosnap/synccore/internal/remoteapi"
)

type stubToken struct{}

func (stubToken) Token() (string, error) { return "test-token", nil }

func writeTestJPEG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// fakeRemote is a minimal stand-in for the album/upload/confirm/update API
// and its object store, enough to drive a pipeline run end-to-end.
type fakeRemote struct {
	srv *httptest.Server

	mu           sync.Mutex
	nextServerID int64
	confirmCalls int
	updateCalls  int
	failUploads  bool
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()

	f := &fakeRemote{nextServerID: 1}
	mux := http.NewServeMux()

	mux.HandleFunc("/albums/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/upload"):
			f.handleRequestUploads(w, r)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/confirm-upload"):
			f.handleConfirm(w, r)
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/images"):
			f.handleUpdate(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	mux.HandleFunc("/put/", func(w http.ResponseWriter, r *http.Request) {
		if f.failUploads {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("X-Object-Id", "obj-"+filepath.Base(r.URL.Path))
		w.WriteHeader(http.StatusOK)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeRemote) handleRequestUploads(w http.ResponseWriter, r *http.Request) {
	var req remoteapi.RequestUploadURLs
	json.NewDecoder(r.Body).Decode(&req)

	urls := make([]remoteapi.UploadURL, len(req.Files))
	for i, file := range req.Files {
		urls[i] = remoteapi.UploadURL{
			Filename:           file.Filename,
			UploadURL:          f.srv.URL + "/put/" + file.Filename,
			ThumbnailUploadURL: f.srv.URL + "/put/thumb-" + file.Filename,
			Key:                "key/" + file.Filename,
			ThumbnailKey:       "key/thumb-" + file.Filename,
		}
	}

	json.NewEncoder(w).Encode(urls)
}

func (f *fakeRemote) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req remoteapi.ConfirmUploadRequest
	json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.confirmCalls++
	confirmed := make([]remoteapi.ConfirmedImage, len(req.Images))

	for i, img := range req.Images {
		confirmed[i] = remoteapi.ConfirmedImage{ID: f.nextServerID, OriginalFilename: img.Filename}
		f.nextServerID++
	}
	f.mu.Unlock()

	json.NewEncoder(w).Encode(confirmed)
}

func (f *fakeRemote) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req remoteapi.UpdateImagesRequest
	json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.updateCalls++
	f.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (f *fakeRemote) client(t *testing.T) *remoteapi.Client {
	t.Helper()
	return remoteapi.NewClient(f.srv.URL, f.srv.Client(), stubToken{}, nil)
}

type testEnv struct {
	pipeline *Pipeline
	store    *catalog.Store
	pool     *compress.Pool
	remote   *fakeRemote
	bus      *events.Bus
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	ctx := context.Background()

	store, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pool := compress.NewPool(ctx, 2, compress.QualityOptions{}, nil)
	t.Cleanup(pool.Shutdown)

	remote := newFakeRemote(t)
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	p := New(store, pool, remote.client(t), bus, nil, opts, nil)

	return &testEnv{pipeline: p, store: store, pool: pool, remote: remote, bus: bus}
}

// seedAlbum creates an album with n pending images backed by real on-disk
// JPEG sources staged under LocalFolderPath/source, mirroring what the
// reconciler's Execute step leaves behind.
func seedAlbum(t *testing.T, env *testEnv, albumID string, n int) *catalog.Album {
	t.Helper()

	ctx := context.Background()
	base := t.TempDir()
	localDir := filepath.Join(base, "local")
	stagedDir := filepath.Join(localDir, "source")
	require.NoError(t, os.MkdirAll(stagedDir, 0o755))

	album := &catalog.Album{
		ID:               albumID,
		Title:            "Test Album",
		SourceFolderPath: filepath.Join(base, "source"),
		LocalFolderPath:  localDir,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, os.MkdirAll(album.SourceFolderPath, 0o755))
	require.NoError(t, env.store.CreateAlbum(ctx, album))

	for i := 0; i < n; i++ {
		name := fmt.Sprintf("IMG_%04d.jpg", i)
		srcPath := filepath.Join(stagedDir, name)
		writeTestJPEG(t, srcPath, 320, 200)

		hash, err := hashio.HashFile(srcPath)
		require.NoError(t, err)

		img := &catalog.Image{
			AlbumID:          albumID,
			OriginalFilename: name,
			LocalFilePath:    srcPath,
			SourceFileHash:   hash,
			UploadStatus:     catalog.StatusPending,
			UploadOrder:      int64(i),
		}
		require.NoError(t, env.store.CreateImage(ctx, img))
	}

	return album
}

func TestPipeline_RunAlbumCompletesCleanly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	album := seedAlbum(t, env, "album-1", 3)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, env.pipeline.runAlbum(ctx, album.ID))

	images, err := env.store.ListImagesByStatus(ctx, album.ID, catalog.StatusComplete)
	require.NoError(t, err)
	assert.Len(t, images, 3)

	for _, img := range images {
		assert.NotNil(t, img.ServerID)
		assert.Greater(t, img.FileSize, int64(0))
	}

	fresh, err := env.store.GetAlbum(ctx, album.ID)
	require.NoError(t, err)
	assert.False(t, fresh.NeedsSync)
	assert.NotNil(t, fresh.LastSyncedAt)

	assert.Equal(t, StateDone, env.pipeline.State(album.ID))
}

func TestPipeline_ResumeSkipsRecompressionWhenOutputStillValid(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	album := seedAlbum(t, env, "album-resume", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, env.pipeline.runAlbum(ctx, album.ID))

	before := env.pool.Stats()
	assert.Equal(t, int64(1), before.Submitted)

	// Reset the image back to pending with its recorded hash intact, as if
	// a previous run was interrupted after compression but before upload.
	images, err := env.store.ListImagesByAlbum(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	require.NotEmpty(t, img.SourceFileHash)
	img.UploadStatus = catalog.StatusPending
	img.ServerID = nil
	require.NoError(t, env.store.UpdateImage(ctx, img))

	require.NoError(t, env.pipeline.runAlbum(ctx, album.ID))

	after := env.pool.Stats()
	assert.Equal(t, before.Submitted, after.Submitted, "resumed run must not resubmit compression work")

	images, err = env.store.ListImagesByStatus(ctx, album.ID, catalog.StatusComplete)
	require.NoError(t, err)
	require.Len(t, images, 1)
}

func TestPipeline_CompressionFailureIsolatesOneImage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	album := seedAlbum(t, env, "album-bad", 2)

	ctx := context.Background()
	images, err := env.store.ListImagesByAlbum(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)

	// Corrupt one staged source file so its compression fails.
	require.NoError(t, os.WriteFile(images[0].LocalFilePath, []byte("not an image"), 0o644))

	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	require.NoError(t, env.pipeline.runAlbum(runCtx, album.ID))

	failed, err := env.store.ListImagesByStatus(ctx, album.ID, catalog.StatusFailedCompression)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	complete, err := env.store.ListImagesByStatus(ctx, album.ID, catalog.StatusComplete)
	require.NoError(t, err)
	assert.Len(t, complete, 1)
}

func TestPipeline_FailedUploadRetriedAtEndOfRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	album := seedAlbum(t, env, "album-retry", 1)

	env.remote.failUploads = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, env.pipeline.runAlbum(ctx, album.ID))

	failed, err := env.store.ListImagesByStatus(ctx, album.ID, catalog.StatusFailedUpload)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	env.remote.failUploads = false

	require.NoError(t, env.pipeline.RetryFailed(ctx, album.ID))

	complete, err := env.store.ListImagesByStatus(ctx, album.ID, catalog.StatusComplete)
	require.NoError(t, err)
	assert.Len(t, complete, 1)
}

func TestPipeline_RetryFailedIsNoOpWhenNothingFailed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	album := seedAlbum(t, env, "album-clean", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, env.pipeline.runAlbum(ctx, album.ID))

	calls := env.remote.confirmCalls
	require.NoError(t, env.pipeline.RetryFailed(ctx, album.ID))
	assert.Equal(t, calls, env.remote.confirmCalls, "retry must not touch already-complete images")
}

func TestPipeline_EnqueueOrdersAlbumsFIFO(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	albumA := seedAlbum(t, env, "album-a", 1)
	albumB := seedAlbum(t, env, "album-b", 1)

	var order []string
	var mu sync.Mutex

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	go func() {
		ch := env.bus.Events()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Kind == events.KindUploadComplete {
					mu.Lock()
					order = append(order, ev.AlbumID)
					mu.Unlock()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		env.pipeline.Run(ctx)
	}()

	env.pipeline.Enqueue(albumA.ID)
	env.pipeline.Enqueue(albumB.ID)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	<-runDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{albumA.ID, albumB.ID}, order)
}

func TestPauseGate_BlocksUntilResumed(t *testing.T) {
	t.Parallel()

	g := newPauseGate()
	g.pause()

	var unblocked atomic.Bool
	done := make(chan struct{})

	go func() {
		_ = g.wait(context.Background())
		unblocked.Store(true)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, unblocked.Load())

	g.resume()

	select {
	case <-done:
		assert.True(t, unblocked.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("wait never returned after resume")
	}
}

func TestPauseGate_WaitReturnsOnContextCancel(t *testing.T) {
	t.Parallel()

	g := newPauseGate()
	g.pause()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.wait(ctx)
	assert.Error(t, err)
}

func TestOptions_WithDefaultsFillsZeroValues(t *testing.T) {
	t.Parallel()

	o := Options{}.withDefaults()
	assert.Equal(t, DefaultCompressWorkers, o.CompressWorkers)
	assert.Equal(t, DefaultUploadWorkers, o.UploadWorkers)
	assert.Equal(t, DefaultQueueCapacity, o.QueueCapacity)
	assert.Equal(t, DefaultBatchSize, o.BatchSize)

	o2 := Options{CompressWorkers: 7}.withDefaults()
	assert.Equal(t, 7, o2.CompressWorkers)
}
