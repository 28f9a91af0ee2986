package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
	"github.com/matheus3301/gchat/internal/rest"
)

// ImageUploader posts a file as multipart form data straight to a signed
// upload URL.
type ImageUploader struct {
	http *resty.Client
}

// NewImageUploader creates an image uploader. The signed URL carries its
// own authorization, so the client sends no token.
func NewImageUploader(h *resty.Client) *ImageUploader {
	if h == nil {
		h = resty.New()
	}
	return &ImageUploader{http: h}
}

// imageResult is the relevant part of the image host's answer.
type imageResult struct {
	Success bool `json:"success"`
	Result  struct {
		ID       string   `json:"id"`
		Variants []string `json:"variants"`
	} `json:"result"`
}

// Upload sends the file and returns the first delivery variant URL, if the
// host reported one.
func (u *ImageUploader) Upload(ctx context.Context, target *rest.UploadTarget, f File, body io.ReadSeeker, report func(sent int64)) (string, error) {
	counted := &countingReader{r: body, report: report}
	res := &imageResult{}
	resp, err := u.http.R().
		SetContext(ctx).
		SetFileReader("file", f.Name, counted).
		SetResult(res).
		Post(target.UploadURL)
	if err != nil {
		return "", fmt.Errorf("post image: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("post image: %s", resp.Status())
	}
	report(f.Size)
	if len(res.Result.Variants) > 0 {
		return res.Result.Variants[0], nil
	}
	return "", nil
}

type countingReader struct {
	r      io.Reader
	n      int64
	report func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n += int64(n)
		c.report(c.n)
	}
	return n, err
}
