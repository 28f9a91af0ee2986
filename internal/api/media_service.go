package api

import (
	"context"

	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/store"
	"github.com/matheus3301/gchat/internal/upload"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// MediaService feeds local files to the upload pipeline.
type MediaService struct {
	pipeline *upload.Pipeline
	room     *groupchat.Room
	db       *store.DB
}

// NewMediaService creates a media service. db may be nil.
func NewMediaService(pipeline *upload.Pipeline, room *groupchat.Room, db *store.DB) *MediaService {
	return &MediaService{pipeline: pipeline, room: room, db: db}
}

// Upload blocks until every file has been attempted. A file that fails is
// reported in its result; the call itself only fails when nothing could start.
func (s *MediaService) Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	if len(req.Paths) == 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "no files given")
	}

	files := make([]upload.File, 0, len(req.Paths))
	for _, p := range req.Paths {
		f, err := upload.FromPath(p)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", p, err)
		}
		files = append(files, f)
	}

	results, err := s.pipeline.AddMediaFiles(ctx, files, s.room.User())
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &UploadResponse{Results: make([]UploadResult, len(results))}
	for i, r := range results {
		resp.Results[i] = UploadResult{ID: r.ID, FileName: r.FileName, Attachment: r.Attachment}
		if r.Err != nil {
			resp.Results[i].Error = r.Err.Error()
		}
	}
	return resp, nil
}

func (s *MediaService) ListUploads(_ context.Context, req *ListUploadsRequest) (*ListUploadsResponse, error) {
	resp := &ListUploadsResponse{}
	if req.ClearFinished {
		resp.Cleared = s.pipeline.Tracker().ClearFinished()
	}
	resp.Active = s.pipeline.Tracker().Snapshot()
	if s.db == nil {
		return resp, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.ListUploads(limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list uploads: %v", err)
	}
	for _, u := range rows {
		resp.Uploads = append(resp.Uploads, UploadRecord{
			ID:           u.ID,
			FileName:     u.FileName,
			Size:         u.Size,
			Kind:         u.Kind,
			Status:       u.Status,
			MediaID:      u.MediaID,
			URL:          u.URL,
			ErrorMessage: u.ErrorMessage,
			CreatedAt:    u.CreatedAt,
		})
	}
	return resp, nil
}
