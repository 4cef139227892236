package remoteapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateAlbumRequest is the body of POST /albums.
type CreateAlbumRequest struct {
	Title     string  `json:"title"`
	EventDate *string `json:"eventDate,omitempty"`
}

// CreateAlbumResponse is the body returned by POST /albums.
type CreateAlbumResponse struct {
	ID string `json:"id"`
}

// CreateAlbum registers a new remote album.
func (c *Client) CreateAlbum(ctx context.Context, req CreateAlbumRequest) (CreateAlbumResponse, error) {
	var resp CreateAlbumResponse
	err := c.doJSON(ctx, http.MethodPost, "/albums", req, &resp)

	return resp, err
}

// DeleteAlbum deletes a remote album and everything under it.
func (c *Client) DeleteAlbum(ctx context.Context, albumID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/albums/"+albumID, nil, nil)
}

// UploadURLRequestFile names one file to request a presigned upload URL for.
type UploadURLRequestFile struct {
	Filename string `json:"filename"`
}

// RequestUploadURLs is the body of POST /albums/{id}/upload.
type RequestUploadURLs struct {
	Files []UploadURLRequestFile `json:"files"`
}

// UploadURL is one entry in the response to POST /albums/{id}/upload.
type UploadURL struct {
	Filename           string `json:"filename"`
	UploadURL          string `json:"uploadUrl"`
	ThumbnailUploadURL string `json:"thumbnailUploadUrl,omitempty"`
	Key                string `json:"key"`
	ThumbnailKey       string `json:"thumbnailKey,omitempty"`
}

// RequestUploads requests N presigned upload URLs, one per filename.
func (c *Client) RequestUploads(ctx context.Context, albumID string, filenames []string) ([]UploadURL, error) {
	files := make([]UploadURLRequestFile, len(filenames))
	for i, f := range filenames {
		files[i] = UploadURLRequestFile{Filename: f}
	}

	var resp []UploadURL
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/albums/%s/upload", albumID),
		RequestUploadURLs{Files: files}, &resp)

	return resp, err
}

// ConfirmImage describes one uploaded image being registered with the
// remote album after a successful object-store PUT.
type ConfirmImage struct {
	Filename        string `json:"filename"`
	Key             string `json:"key"`
	ThumbnailKey    string `json:"thumbnailKey,omitempty"`
	SourceImageHash string `json:"sourceImageHash"`
	FileSize        int64  `json:"fileSize"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	UploadOrder     int64  `json:"uploadOrder"`
}

// ConfirmUploadRequest is the body of POST /albums/{id}/confirm-upload.
type ConfirmUploadRequest struct {
	Images []ConfirmImage `json:"images"`
}

// ConfirmedImage is one entry in the response to confirm-upload.
type ConfirmedImage struct {
	ID               int64  `json:"id"`
	OriginalFilename string `json:"originalFilename"`
}

// ConfirmUploads registers a batch of successfully-uploaded images with the
// remote album.
func (c *Client) ConfirmUploads(ctx context.Context, albumID string, images []ConfirmImage) ([]ConfirmedImage, error) {
	var resp []ConfirmedImage
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/albums/%s/confirm-upload", albumID),
		ConfirmUploadRequest{Images: images}, &resp)

	return resp, err
}

// ImageUpdate describes one image whose stored object changed in place
// (e.g. a local modification re-uploaded to its existing slot).
type ImageUpdate struct {
	ImageID         int64  `json:"imageId"`
	SourceImageHash string `json:"sourceImageHash"`
	Key             string `json:"key"`
	FileSize        int64  `json:"fileSize"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

// UpdateImagesRequest is the body of PATCH /albums/{id}/images.
type UpdateImagesRequest struct {
	Updates []ImageUpdate `json:"updates"`
}

// UpdateImages pushes a batch of in-place image updates to the remote album.
func (c *Client) UpdateImages(ctx context.Context, albumID string, updates []ImageUpdate) error {
	return c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/albums/%s/images", albumID),
		UpdateImagesRequest{Updates: updates}, nil)
}

// DeleteImagesRequest is the body of DELETE /albums/{id}/images.
type DeleteImagesRequest struct {
	ImageIDs []int64 `json:"imageIds"`
}

// DeleteImagesResponse reports how many of the requested deletions succeeded.
type DeleteImagesResponse struct {
	DeletedCount int `json:"deletedCount"`
	FailedCount  int `json:"failedCount"`
}

// DeleteImages removes a batch of images from the remote album.
func (c *Client) DeleteImages(ctx context.Context, albumID string, imageIDs []int64) (DeleteImagesResponse, error) {
	var resp DeleteImagesResponse
	err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/albums/%s/images", albumID),
		DeleteImagesRequest{ImageIDs: imageIDs}, &resp)

	return resp, err
}

// ProfileResponse is the body returned by GET /profile.
type ProfileResponse struct {
	ImageLimit int `json:"imageLimit"`
}

// ImageLimit queries the account's remote image-count limit, satisfying the
// reconciler's ProfileSource interface.
func (c *Client) ImageLimit(ctx context.Context) (int, error) {
	var resp ProfileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/profile", nil, &resp); err != nil {
		return 0, err
	}

	return resp.ImageLimit, nil
}

// Favorite is one image a client has marked as a favorite within an album.
type Favorite struct {
	ImageID int64 `json:"imageId"`
}

// Favorites is a read-through for the UI; nothing in the sync core depends
// on its result. clientName scopes the result to favorites marked by a
// single named client when non-empty.
func (c *Client) Favorites(ctx context.Context, albumID, clientName string) ([]Favorite, error) {
	path := fmt.Sprintf("/albums/%s/favorites", albumID)
	if clientName != "" {
		path += "?clientName=" + url.QueryEscape(clientName)
	}

	var resp []Favorite
	err := c.doJSON(ctx, http.MethodGet, path, nil, &resp)

	return resp, err
}
