package rest

import (
	"context"
	"fmt"
)

// Media kinds reported by the platform.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// UploadURLRequest describes a file the client wants to upload.
type UploadURLRequest struct {
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// UploadTarget is where and how a file must be uploaded.
type UploadTarget struct {
	UploadURL string `json:"uploadURL"`
	Type      string `json:"type"`
	MediaID   string `json:"mediaId"`
}

// RequestUploadURL asks the platform for a signed, single-use upload URL.
func (c *Client) RequestUploadURL(ctx context.Context, r UploadURLRequest) (*UploadTarget, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(r).
		SetResult(&envelope[UploadTarget]{}).
		SetError(&envelope[UploadTarget]{}).
		Post("/media/upload-url")
	if err != nil {
		return nil, fmt.Errorf("request upload url for %s: %w", r.FileName, err)
	}
	env, _ := resp.Result().(*envelope[UploadTarget])
	if env == nil {
		env = &envelope[UploadTarget]{}
	}
	if err := check(resp, env); err != nil {
		return nil, fmt.Errorf("request upload url for %s: %w", r.FileName, err)
	}
	if env.Data.UploadURL == "" {
		return nil, fmt.Errorf("request upload url for %s: empty url", r.FileName)
	}
	return &env.Data, nil
}
