// Package events defines the single typed event sum type that flows
// one-directionally from the application core to the embedding UI, and
// the ordered channel that carries it.
package events

// Kind identifies the variant of an Event, mirroring the event names spec'd
// for the UI layer.
type Kind string

const (
	KindUploadProgress    Kind = "upload:progress"
	KindUploadBatchStart  Kind = "upload:batch-start"
	KindUploadComplete    Kind = "upload:complete"
	KindUploadError       Kind = "upload:error"
	KindUploadPaused      Kind = "upload:paused"
	KindUploadResumed     Kind = "upload:resumed"
	KindAlbumStatusChange Kind = "album:status-changed"
	KindAlbumsRefresh     Kind = "albums:refresh"
	KindNetworkStatus     Kind = "network:status-changed"
)

// Event is a single notification dispatched to the UI. Only the fields
// relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind Kind

	// upload:progress / upload:batch-start / upload:complete / upload:error
	AlbumID     string
	ImageID     int64
	BytesDone   int64
	BytesTotal  int64
	ImagesDone  int
	ImagesTotal int
	Err         string

	// album:status-changed
	NeedsSync bool

	// network:status-changed
	Online bool
}

// UploadProgress builds a KindUploadProgress event.
func UploadProgress(albumID string, imagesDone, imagesTotal int, bytesDone, bytesTotal int64) Event {
	return Event{
		Kind:        KindUploadProgress,
		AlbumID:     albumID,
		ImagesDone:  imagesDone,
		ImagesTotal: imagesTotal,
		BytesDone:   bytesDone,
		BytesTotal:  bytesTotal,
	}
}

// UploadBatchStart builds a KindUploadBatchStart event.
func UploadBatchStart(albumID string, imagesTotal int) Event {
	return Event{Kind: KindUploadBatchStart, AlbumID: albumID, ImagesTotal: imagesTotal}
}

// UploadComplete builds a KindUploadComplete event.
func UploadComplete(albumID string) Event {
	return Event{Kind: KindUploadComplete, AlbumID: albumID}
}

// UploadError builds a KindUploadError event.
func UploadError(albumID string, imageID int64, err error) Event {
	return Event{Kind: KindUploadError, AlbumID: albumID, ImageID: imageID, Err: err.Error()}
}

// UploadPaused builds a KindUploadPaused event.
func UploadPaused(albumID string) Event {
	return Event{Kind: KindUploadPaused, AlbumID: albumID}
}

// UploadResumed builds a KindUploadResumed event.
func UploadResumed(albumID string) Event {
	return Event{Kind: KindUploadResumed, AlbumID: albumID}
}

// AlbumStatusChanged builds a KindAlbumStatusChange event.
func AlbumStatusChanged(albumID string, needsSync bool) Event {
	return Event{Kind: KindAlbumStatusChange, AlbumID: albumID, NeedsSync: needsSync}
}

// AlbumsRefresh builds a KindAlbumsRefresh event.
func AlbumsRefresh() Event {
	return Event{Kind: KindAlbumsRefresh}
}

// NetworkStatusChanged builds a KindNetworkStatus event.
func NetworkStatusChanged(online bool) Event {
	return Event{Kind: KindNetworkStatus, Online: online}
}
