package store

// Upload states.
const (
	UploadQueued    = "queued"
	UploadUploading = "uploading"
	UploadDone      = "done"
	UploadFailed    = "failed"
)

// Upload is one file handed to the media pipeline.
type Upload struct {
	ID           string
	UserID       int64
	FileName     string
	Size         int64
	Kind         string // image or video, known once the upload URL is issued
	Status       string
	MediaID      string
	URL          string
	ErrorMessage string
	CreatedAt    int64
	UpdatedAt    int64
}
