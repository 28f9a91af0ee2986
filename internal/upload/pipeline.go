package upload

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/metrics"
	"github.com/matheus3301/gchat/internal/notify"
	"github.com/matheus3301/gchat/internal/rest"
	"github.com/matheus3301/gchat/internal/store"
	"go.uber.org/zap"
)

// URLRequester issues signed upload URLs.
type URLRequester interface {
	RequestUploadURL(ctx context.Context, r rest.UploadURLRequest) (*rest.UploadTarget, error)
}

// Uploader moves one file's bytes to its target. report receives the number
// of bytes the remote side has so far. It returns the delivery URL when the
// host reports one.
type Uploader interface {
	Upload(ctx context.Context, target *rest.UploadTarget, f File, body io.ReadSeeker, report func(sent int64)) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	Requester URLRequester
	Image     Uploader
	Video     Uploader
	Tracker   *Tracker
	DB        *store.DB
	Bus       *bus.Bus
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Result is the outcome of one file.
type Result struct {
	ID         string                `json:"id"`
	FileName   string                `json:"fileName"`
	Attachment *groupchat.Attachment `json:"attachment,omitempty"`
	Err        error                 `json:"-"`
}

// Pipeline uploads media strictly one file at a time. Batches submitted
// concurrently are queued behind each other.
type Pipeline struct {
	requester URLRequester
	image     Uploader
	video     Uploader
	tracker   *Tracker
	db        *store.DB
	bus       *bus.Bus
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu sync.Mutex
}

// NewPipeline creates a pipeline. A nil Tracker gets a fresh one.
func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewTracker(opts.Bus)
	}
	return &Pipeline{
		requester: opts.Requester,
		image:     opts.Image,
		video:     opts.Video,
		tracker:   tracker,
		db:        opts.DB,
		bus:       opts.Bus,
		metrics:   opts.Metrics,
		logger:    logger,
	}
}

// Tracker returns the shared progress map.
func (p *Pipeline) Tracker() *Tracker {
	return p.tracker
}

// AddMediaFiles queues files for user and uploads them in order. A failing
// file is reported and skipped; the rest of the batch still runs. The
// returned results follow the order of files.
func (p *Pipeline) AddMediaFiles(ctx context.Context, files []File, user *groupchat.User) ([]Result, error) {
	if user == nil {
		return nil, groupchat.ErrNoUser
	}

	results := make([]Result, len(files))
	for i, f := range files {
		id := uuid.NewString()
		results[i] = Result{ID: id, FileName: f.Name}
		p.tracker.Add(id, f.Name)
		if p.db != nil {
			if err := p.db.QueueUpload(&store.Upload{ID: id, UserID: user.ID, FileName: f.Name, Size: f.Size}); err != nil {
				p.logger.Error("failed to record upload", zap.Error(err), zap.String("upload_id", id))
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	done := 0
	for i, f := range files {
		id := results[i].ID
		if err := ctx.Err(); err != nil {
			p.fail(id, f.Name, "", err)
			results[i].Err = err
			continue
		}
		att, err := p.uploadOne(ctx, id, f)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Attachment = att
		done++
	}
	if done > 0 {
		notify.Info(p.bus, fmt.Sprintf("Uploaded %d of %d file(s)", done, len(files)))
	}
	return results, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, id string, f File) (*groupchat.Attachment, error) {
	p.tracker.Update(id, func(fp *FileProgress) { fp.Status = StatusUploading })

	target, err := p.requester.RequestUploadURL(ctx, rest.UploadURLRequest{
		FileName:    f.Name,
		Size:        f.Size,
		ContentType: f.ContentType,
	})
	if err != nil {
		return nil, p.fail(id, f.Name, "", fmt.Errorf("upload url: %w", err))
	}

	var uploader Uploader
	switch target.Type {
	case rest.MediaImage:
		uploader = p.image
	case rest.MediaVideo:
		uploader = p.video
	}
	if uploader == nil {
		return nil, p.fail(id, f.Name, target.Type, fmt.Errorf("unsupported media type %q", target.Type))
	}

	p.tracker.Update(id, func(fp *FileProgress) {
		fp.Kind = target.Type
		fp.MediaID = target.MediaID
	})
	if p.db != nil {
		if err := p.db.MarkUploadStarted(id, target.Type, target.MediaID); err != nil {
			p.logger.Error("failed to mark upload started", zap.Error(err), zap.String("upload_id", id))
		}
	}

	body, err := f.Open()
	if err != nil {
		return nil, p.fail(id, f.Name, target.Type, fmt.Errorf("open: %w", err))
	}
	defer func() { _ = body.Close() }()

	report := func(sent int64) {
		p.tracker.Update(id, func(fp *FileProgress) { fp.Percent = percent(sent, f.Size) })
	}
	url, err := uploader.Upload(ctx, target, f, body, report)
	if err != nil {
		return nil, p.fail(id, f.Name, target.Type, err)
	}

	p.tracker.Update(id, func(fp *FileProgress) {
		fp.Status = StatusDone
		fp.Percent = 100
		fp.URL = url
	})
	if p.db != nil {
		if err := p.db.MarkUploadDone(id, url); err != nil {
			p.logger.Error("failed to mark upload done", zap.Error(err), zap.String("upload_id", id))
		}
	}
	p.metrics.Upload(target.Type, "done")
	p.logger.Info("upload finished", zap.String("upload_id", id), zap.String("file", f.Name), zap.String("kind", target.Type))

	return &groupchat.Attachment{
		URL:     url,
		Type:    target.Type,
		Name:    f.Name,
		Size:    f.Size,
		MediaID: target.MediaID,
	}, nil
}

// fail records a per-file failure everywhere it is visible and returns err.
func (p *Pipeline) fail(id, fileName, kind string, err error) error {
	p.tracker.Update(id, func(fp *FileProgress) {
		fp.Status = StatusFailed
		fp.Error = err.Error()
	})
	if p.db != nil {
		if dbErr := p.db.MarkUploadFailed(id, err.Error()); dbErr != nil {
			p.logger.Error("failed to mark upload failed", zap.Error(dbErr), zap.String("upload_id", id))
		}
	}
	if kind == "" {
		kind = "unknown"
	}
	p.metrics.Upload(kind, "failed")
	p.logger.Warn("upload failed", zap.String("upload_id", id), zap.String("file", fileName), zap.Error(err))
	notify.Error(p.bus, fmt.Sprintf("Failed to upload %s", fileName))
	return err
}
