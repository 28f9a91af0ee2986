package api

import (
	"encoding/json"

	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/upload"
)

// Empty is used by calls that carry no data.
type Empty struct{}

type GetStatusResponse struct {
	Profile        string `json:"profile"`
	Status         string `json:"status"`
	Connected      bool   `json:"connected"`
	UptimeMs       int64  `json:"uptimeMs"`
	UserID         int64  `json:"userId"`
	Username       string `json:"username"`
	GroupID        int64  `json:"groupId"`
	IsJoined       bool   `json:"isJoined"`
	CachedMessages int64  `json:"cachedMessages"`
}

type JoinRoomRequest struct {
	GroupID int64 `json:"groupId"`
}

type JoinRoomResponse struct {
	GroupID int64 `json:"groupId"`
	Joined  bool  `json:"joined"`
	// Message explains a deferred join, e.g. while the socket reconnects.
	Message string `json:"message,omitempty"`
}

type GetRoomResponse struct {
	Room groupchat.State `json:"room"`
}

type LoadMoreRequest struct {
	// GroupID defaults to the active group.
	GroupID int64 `json:"groupId,omitempty"`
}

type LoadMoreResponse struct {
	Added   int    `json:"added"`
	HasMore bool   `json:"hasMore"`
	Cursor  *int64 `json:"cursor,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SendMessageRequest struct {
	Content     string                 `json:"content"`
	Attachments []groupchat.Attachment `json:"attachments,omitempty"`
	ReplyToID   *int64                 `json:"replyToId,omitempty"`
}

type SetTypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

type MarkSeenRequest struct {
	MessageID int64 `json:"messageId"`
}

type HistoryRequest struct {
	GroupID  int64 `json:"groupId,omitempty"`
	BeforeID int64 `json:"beforeId,omitempty"`
	Limit    int   `json:"limit,omitempty"`
}

type HistoryResponse struct {
	// Messages are newest first.
	Messages []groupchat.GroupMessage `json:"messages"`
	HasMore  bool                     `json:"hasMore"`
}

type WatchEventsRequest struct {
	// Prefix filters event kinds; empty receives everything.
	Prefix string `json:"prefix,omitempty"`
}

// EventEnvelope is one bus event forwarded to a watcher.
type EventEnvelope struct {
	EventID          string          `json:"eventId"`
	OccurredAtUnixMs int64           `json:"occurredAtUnixMs"`
	Kind             string          `json:"kind"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

type UploadRequest struct {
	Paths []string `json:"paths"`
}

type UploadResult struct {
	ID         string                `json:"id"`
	FileName   string                `json:"fileName"`
	Attachment *groupchat.Attachment `json:"attachment,omitempty"`
	Error      string                `json:"error,omitempty"`
}

type UploadResponse struct {
	Results []UploadResult `json:"results"`
}

type ListUploadsRequest struct {
	Limit int `json:"limit,omitempty"`
	// ClearFinished drops done and failed files from Active first.
	ClearFinished bool `json:"clearFinished,omitempty"`
}

// UploadRecord is a persisted upload.
type UploadRecord struct {
	ID           string `json:"id"`
	FileName     string `json:"fileName"`
	Size         int64  `json:"size"`
	Kind         string `json:"kind,omitempty"`
	Status       string `json:"status"`
	MediaID      string `json:"mediaId,omitempty"`
	URL          string `json:"url,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
}

type ListUploadsResponse struct {
	Uploads []UploadRecord `json:"uploads"`
	// Active is the in-memory progress of this daemon run.
	Active  []upload.FileProgress `json:"active"`
	Cleared int                   `json:"cleared,omitempty"`
}
