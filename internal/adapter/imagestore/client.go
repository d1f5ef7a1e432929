// Package imagestore uploads listing photos to the external object store.
package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// MaxFileBytes caps a single upload.
const MaxFileBytes = 10 << 20

// Compile-time check: Client implements domain.ImageStore.
var _ domain.ImageStore = (*Client)(nil)

// Client posts multipart uploads to the store and returns the public URL it answers with.
type Client struct {
	http *resty.Client
}

type uploadResponse struct {
	URL string `json:"url"`
}

// New creates a client for the store at baseURL. token is sent as a bearer token when set.
// Uploads are not retried: the multipart body is a one-shot reader, and the
// caller already skips files that fail.
func New(baseURL, token string) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Client{http: client}
}

// Upload stores one image under the owner's prefix.
func (c *Client) Upload(ctx context.Context, ownerID string, img domain.ImageUpload) (string, error) {
	if !strings.HasPrefix(img.ContentType, "image/") {
		return "", &domain.ValidationError{Field: "images", Message: fmt.Sprintf("%s is not an image", img.Filename)}
	}
	if len(img.Data) == 0 || len(img.Data) > MaxFileBytes {
		return "", &domain.ValidationError{Field: "images", Message: fmt.Sprintf("%s must be between 1 byte and %d bytes", img.Filename, MaxFileBytes)}
	}

	var out uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("owner", ownerID).
		SetMultipartField("file", img.Filename, img.ContentType, bytes.NewReader(img.Data)).
		SetResult(&out).
		Post("/owners/{owner}/images")
	if err != nil {
		return "", &domain.UpstreamError{Service: "image store", Err: err}
	}
	if resp.IsError() {
		return "", &domain.UpstreamError{Service: "image store", Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}
	if out.URL == "" {
		return "", &domain.UpstreamError{Service: "image store", Err: fmt.Errorf("response for %s has no url", img.Filename)}
	}
	return out.URL, nil
}
