package reconciler

import (
	"context"
	"log/slog"

	"github.com/lumosnap/synccore/internal/catalog"
	"github.com/lumosnap/synccore/internal/hashio"
	"github.com/lumosnap/synccore/internal/remoteapi"
)

// ProfileSource supplies the remote account's image-count limit, used for
// plan-limit admission before inserting new Images.
type ProfileSource interface {
	ImageLimit(ctx context.Context) (int, error)
}

// RemoteDeleter removes a batch of already-uploaded images from the remote
// album, used to keep the remote service's image set in step with a local
// deletion.
type RemoteDeleter interface {
	DeleteImages(ctx context.Context, albumID string, imageIDs []int64) (remoteapi.DeleteImagesResponse, error)
}

// Reconciler classifies and applies source-folder changes for one album
// against the catalog.
type Reconciler struct {
	store     *catalog.Store
	scanCache *hashio.ScanCache
	profile   ProfileSource
	remote    RemoteDeleter
	logger    *slog.Logger
}

// New creates a Reconciler. profile may be nil, in which case plan-limit
// admission is skipped (used in tests and in any mode without a connected
// remote account). remote may be nil, in which case deleted images with a
// ServerID are dropped from the local catalog without a remote delete call
// (used in tests and in any mode without a connected remote account).
func New(store *catalog.Store, scanCache *hashio.ScanCache, profile ProfileSource, remote RemoteDeleter, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{store: store, scanCache: scanCache, profile: profile, remote: remote, logger: logger}
}
