package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/foodcrm/internal/common"
)

const (
	pathUploadURL   = common.APIPrefix + "/attachments/upload-url"
	pathDownloadURL = common.APIPrefix + "/attachments/download-url"
)

type uploadURLRequest struct {
	ContentType string `json:"content_type"`
}

// UploadURL asks the server for a fresh attachment key and a presigned PUT URL.
func (c *HTTPClient) UploadURL(ctx context.Context, contentType string) (common.PresignedURL, error) {
	var out common.PresignedURL
	err := c.do(ctx, http.MethodPost, pathUploadURL, nil, uploadURLRequest{ContentType: contentType}, &out, true)
	return out, err
}

// DownloadURL returns a presigned GET URL for key.
func (c *HTTPClient) DownloadURL(ctx context.Context, key string) (string, error) {
	var out common.PresignedURL
	err := c.do(ctx, http.MethodGet, pathDownloadURL, url.Values{"key": {key}}, nil, &out, true)
	return out.URL, err
}
