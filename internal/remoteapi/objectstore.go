package remoteapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// objectIDHeader is the vendor-specific response header some object stores
// return with the stored object's id. When absent, the ETag (quotes
// stripped) is used instead.
const objectIDHeader = "X-Object-Id"

// PutObject PUTs r (exactly size bytes of WebP-encoded image data) to a
// presigned upload URL. Returns the object id reported by the store.
func (c *Client) PutObject(ctx context.Context, uploadURL string, r io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, r)
	if err != nil {
		return "", fmt.Errorf("remoteapi: creating object-store PUT: %w", err)
	}

	req.ContentLength = size
	req.Header.Set("Content-Type", "image/webp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("remoteapi: object-store PUT: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body), Err: classifyStatus(resp.StatusCode)}
	}

	return objectID(resp), nil
}

// objectID extracts the stored object's id from the vendor header if
// present, otherwise from the ETag with surrounding quotes stripped.
func objectID(resp *http.Response) string {
	if id := resp.Header.Get(objectIDHeader); id != "" {
		return id
	}

	return strings.Trim(resp.Header.Get("ETag"), `"`)
}
