package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumosnap/synccore/internal/remoteapi"
	"github.com/lumosnap/synccore/internal/trust"
)

// requireSignedIn saves a fake session so the app's remote client can
// obtain a bearer token without a real sign-in flow.
func requireSignedIn(t *testing.T, dataDir string) {
	t.Helper()

	require.NoError(t, trust.Save(dataDir, &trust.Envelope{
		Token: "test-token",
		User:  trust.User{ID: "u1", Email: "photographer@example.com", Name: "Photographer"},
	}))
	t.Cleanup(func() { _ = trust.Clear(dataDir) })
}

// fakeAlbumServer is a minimal stand-in for the remote album service's
// create/delete-album endpoints, recording every request it receives.
type fakeAlbumServer struct {
	created []remoteapi.CreateAlbumRequest
	deleted []string
}

func newFakeAlbumServer(t *testing.T, f *fakeAlbumServer) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /albums", func(w http.ResponseWriter, r *http.Request) {
		var req remoteapi.CreateAlbumRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.created = append(f.created, req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(remoteapi.CreateAlbumResponse{ID: "remote-album-1"})
	})

	mux.HandleFunc("DELETE /albums/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.deleted = append(f.deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestApp_DesignateFolderRegistersWithRemoteFirst(t *testing.T) {
	t.Parallel()

	fake := &fakeAlbumServer{}
	srv := newFakeAlbumServer(t, fake)

	ctx := context.Background()
	dataDir := t.TempDir()
	sourceDir := t.TempDir()
	requireSignedIn(t, dataDir)

	a, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	defer a.Close()

	album, err := a.DesignateFolder(ctx, sourceDir, "My Wedding")
	require.NoError(t, err)

	assert.Equal(t, "remote-album-1", album.ID)
	assert.Equal(t, "My Wedding", album.Title)
	require.Len(t, fake.created, 1)
	assert.Equal(t, "My Wedding", fake.created[0].Title)

	stored, err := a.store.GetAlbum(ctx, "remote-album-1")
	require.NoError(t, err)
	assert.Equal(t, sourceDir, stored.SourceFolderPath)
}

func TestApp_DesignateFolderDefaultsTitleToFolderName(t *testing.T) {
	t.Parallel()

	fake := &fakeAlbumServer{}
	srv := newFakeAlbumServer(t, fake)

	ctx := context.Background()
	dataDir := t.TempDir()
	requireSignedIn(t, dataDir)

	a, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	defer a.Close()

	sourceDir := t.TempDir()

	album, err := a.DesignateFolder(ctx, sourceDir, "")
	require.NoError(t, err)
	assert.NotEmpty(t, album.Title)
	assert.Equal(t, fake.created[0].Title, album.Title)
}

func TestApp_RemoveAlbumDeletesRemoteBeforeLocal(t *testing.T) {
	t.Parallel()

	fake := &fakeAlbumServer{}
	srv := newFakeAlbumServer(t, fake)

	ctx := context.Background()
	dataDir := t.TempDir()
	requireSignedIn(t, dataDir)

	a, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	defer a.Close()

	sourceDir := t.TempDir()
	album, err := a.DesignateFolder(ctx, sourceDir, "Removable")
	require.NoError(t, err)

	require.NoError(t, a.RemoveAlbum(ctx, album.ID))

	assert.Equal(t, []string{album.ID}, fake.deleted)

	_, err = a.store.GetAlbum(ctx, album.ID)
	assert.Error(t, err)
}

func TestApp_RemoveAlbumFailsForUnknownAlbum(t *testing.T) {
	t.Parallel()

	fake := &fakeAlbumServer{}
	srv := newFakeAlbumServer(t, fake)

	ctx := context.Background()
	dataDir := t.TempDir()
	requireSignedIn(t, dataDir)

	a, err := New(ctx, dataDir, t.TempDir(), Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Error(t, a.RemoveAlbum(ctx, "no-such-album"))
	assert.Empty(t, fake.deleted)
}
