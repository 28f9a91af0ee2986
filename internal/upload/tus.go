package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/matheus3301/gchat/internal/rest"
)

const (
	tusVersion = "1.0.0"

	// DefaultChunkSize is the PATCH body size when none is configured.
	DefaultChunkSize = 5 << 20
)

// TUSUploader sends video through the resumable upload protocol: a HEAD
// learns how much the server already has, then PATCH requests append
// chunks from that offset. The signed URL is an already created upload.
type TUSUploader struct {
	http       *resty.Client
	chunkSize  int64
	newBackOff func() backoff.BackOff
}

// NewTUSUploader creates a video uploader.
func NewTUSUploader(h *resty.Client, chunkSize int64) *TUSUploader {
	if h == nil {
		h = resty.New()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &TUSUploader{
		http:      h,
		chunkSize: chunkSize,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			return backoff.WithMaxRetries(b, 3)
		},
	}
}

// Upload resumes from the server's offset and sends the rest of the file.
// Each chunk is retried a few times before the upload fails.
func (u *TUSUploader) Upload(ctx context.Context, target *rest.UploadTarget, f File, body io.ReadSeeker, report func(sent int64)) (string, error) {
	offset, err := u.offset(ctx, target.UploadURL)
	if err != nil {
		return "", err
	}
	report(offset)

	buf := make([]byte, u.chunkSize)
	for offset < f.Size {
		if _, err := body.Seek(offset, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek to %d: %w", offset, err)
		}
		n, err := io.ReadFull(body, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read chunk at %d: %w", offset, err)
		}
		if n == 0 {
			return "", fmt.Errorf("file ended at %d of %d bytes", offset, f.Size)
		}

		chunk := buf[:n]
		var next int64
		op := func() error {
			var err error
			next, err = u.patch(ctx, target.UploadURL, offset, chunk)
			return err
		}
		if err := backoff.Retry(op, backoff.WithContext(u.newBackOff(), ctx)); err != nil {
			return "", err
		}
		offset = next
		report(offset)
	}
	return "", nil
}

func (u *TUSUploader) offset(ctx context.Context, url string) (int64, error) {
	resp, err := u.http.R().
		SetContext(ctx).
		SetHeader("Tus-Resumable", tusVersion).
		Head(url)
	if err != nil {
		return 0, fmt.Errorf("tus head: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("tus head: %s", resp.Status())
	}
	return parseOffset(resp.Header())
}

func (u *TUSUploader) patch(ctx context.Context, url string, offset int64, chunk []byte) (int64, error) {
	resp, err := u.http.R().
		SetContext(ctx).
		SetHeader("Tus-Resumable", tusVersion).
		SetHeader("Upload-Offset", strconv.FormatInt(offset, 10)).
		SetHeader("Content-Type", "application/offset+octet-stream").
		SetBody(bytes.NewReader(chunk)).
		Patch(url)
	if err != nil {
		return 0, fmt.Errorf("tus patch at %d: %w", offset, err)
	}
	switch {
	case resp.StatusCode() == http.StatusConflict:
		// Offsets disagree; the server state will not change by retrying.
		return 0, backoff.Permanent(fmt.Errorf("tus patch at %d: offset conflict", offset))
	case resp.StatusCode() >= 400 && resp.StatusCode() < 500:
		return 0, backoff.Permanent(fmt.Errorf("tus patch at %d: %s", offset, resp.Status()))
	case resp.IsError():
		return 0, fmt.Errorf("tus patch at %d: %s", offset, resp.Status())
	}
	next, err := parseOffset(resp.Header())
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	if next <= offset {
		return 0, backoff.Permanent(fmt.Errorf("tus patch at %d: server did not advance", offset))
	}
	return next, nil
}

func parseOffset(h http.Header) (int64, error) {
	v := h.Get("Upload-Offset")
	if v == "" {
		return 0, fmt.Errorf("tus: missing Upload-Offset")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("tus: bad Upload-Offset %q", v)
	}
	return n, nil
}
