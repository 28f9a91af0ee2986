package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/notify"
	"github.com/matheus3301/gchat/internal/status"
	"github.com/matheus3301/gchat/internal/upload"
)

const flashFor = 5 * time.Second

// Daemon is the part of the daemon API the TUI uses. *api.Client implements it.
type Daemon interface {
	GetStatus(ctx context.Context) (*api.GetStatusResponse, error)
	GetRoom(ctx context.Context) (*api.GetRoomResponse, error)
	JoinRoom(ctx context.Context, groupID int64) (*api.JoinRoomResponse, error)
	LeaveRoom(ctx context.Context) error
	LoadMore(ctx context.Context, groupID int64) (*api.LoadMoreResponse, error)
	SendMessage(ctx context.Context, req *api.SendMessageRequest) error
	SetTyping(ctx context.Context, isTyping bool) error
	MarkSeen(ctx context.Context, messageID int64) error
	Upload(ctx context.Context, paths []string) (*api.UploadResponse, error)
	ListUploads(ctx context.Context, limit int) (*api.ListUploadsResponse, error)
	ClearUploads(ctx context.Context) (*api.ListUploadsResponse, error)
}

// Refresh tells the UI which panes an event invalidated.
type Refresh struct {
	Room    bool
	Status  bool
	Uploads bool
	Flash   bool
}

// ViewModel caches daemon state for the UI.
type ViewModel struct {
	mu sync.RWMutex

	daemon  Daemon
	status  *api.GetStatusResponse
	room    groupchat.State
	uploads []upload.FileProgress
	// pending attachments go out with the next message.
	pending  []groupchat.Attachment
	typing   bool
	lastSeen int64

	Flash Flash
}

// NewViewModel creates a new view model connected to the daemon.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{daemon: d}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.daemon.GetStatus(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	return nil
}

// LoadRoom fetches the active room snapshot.
func (vm *ViewModel) LoadRoom(ctx context.Context) error {
	resp, err := vm.daemon.GetRoom(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.room = resp.Room
	vm.mu.Unlock()
	return nil
}

// LoadUploads fetches this run's upload progress.
func (vm *ViewModel) LoadUploads(ctx context.Context) error {
	resp, err := vm.daemon.ListUploads(ctx, 1)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.uploads = resp.Active
	vm.mu.Unlock()
	return nil
}

// ClearUploads drops finished uploads from the progress list.
func (vm *ViewModel) ClearUploads(ctx context.Context) error {
	resp, err := vm.daemon.ClearUploads(ctx)
	if err != nil {
		vm.Flash.SetLevel("Clear failed: "+err.Error(), LevelError, flashFor)
		return err
	}
	vm.mu.Lock()
	vm.uploads = resp.Active
	vm.mu.Unlock()
	vm.Flash.Set(fmt.Sprintf("Cleared %d finished upload(s)", resp.Cleared), flashFor)
	return nil
}

// Join switches to groupID.
func (vm *ViewModel) Join(ctx context.Context, groupID int64) error {
	resp, err := vm.daemon.JoinRoom(ctx, groupID)
	if err != nil {
		vm.Flash.SetLevel("Join failed: "+err.Error(), LevelError, flashFor)
		return err
	}
	if resp.Message != "" {
		vm.Flash.Set(resp.Message, flashFor)
	}
	vm.mu.Lock()
	vm.pending = nil
	vm.typing = false
	vm.lastSeen = 0
	vm.mu.Unlock()
	return vm.LoadRoom(ctx)
}

// Leave exits the active room.
func (vm *ViewModel) Leave(ctx context.Context) error {
	if err := vm.daemon.LeaveRoom(ctx); err != nil {
		vm.Flash.SetLevel("Leave failed: "+err.Error(), LevelError, flashFor)
		return err
	}
	vm.mu.Lock()
	vm.pending = nil
	vm.mu.Unlock()
	return vm.LoadRoom(ctx)
}

// LoadMore pulls the next page of older messages.
func (vm *ViewModel) LoadMore(ctx context.Context) error {
	resp, err := vm.daemon.LoadMore(ctx, 0)
	if err != nil {
		vm.Flash.SetLevel("Load failed: "+err.Error(), LevelError, flashFor)
		return err
	}
	switch {
	case resp.Error != "":
		vm.Flash.SetLevel("History unavailable: "+resp.Error, LevelError, flashFor)
	case resp.Added == 0 && !resp.HasMore:
		vm.Flash.Set("No older messages", flashFor)
	}
	return vm.LoadRoom(ctx)
}

// Send sends text together with any pending attachments. The message shows
// up once the server echoes it.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	vm.mu.Lock()
	attachments := vm.pending
	vm.mu.Unlock()

	err := vm.daemon.SendMessage(ctx, &api.SendMessageRequest{Content: text, Attachments: attachments})
	if err != nil {
		vm.Flash.SetLevel("Send failed: "+err.Error(), LevelError, flashFor)
		return err
	}
	vm.mu.Lock()
	vm.pending = nil
	vm.mu.Unlock()
	vm.SetTyping(ctx, false)
	return nil
}

// SetTyping reports the typing state, skipping calls that would not change it.
func (vm *ViewModel) SetTyping(ctx context.Context, isTyping bool) {
	vm.mu.Lock()
	if vm.typing == isTyping {
		vm.mu.Unlock()
		return
	}
	vm.typing = isTyping
	vm.mu.Unlock()
	if err := vm.daemon.SetTyping(ctx, isTyping); err != nil {
		vm.mu.Lock()
		vm.typing = !isTyping
		vm.mu.Unlock()
	}
}

// MarkLatestSeen marks the newest message from another user as seen, once.
func (vm *ViewModel) MarkLatestSeen(ctx context.Context) {
	vm.mu.RLock()
	var me int64
	if vm.status != nil {
		me = vm.status.UserID
	}
	var latest int64
	for i := len(vm.room.Messages) - 1; i >= 0; i-- {
		if m := vm.room.Messages[i]; m.SenderID != me {
			latest = m.ID
			break
		}
	}
	already := latest == 0 || latest == vm.lastSeen
	vm.mu.RUnlock()
	if already {
		return
	}
	if err := vm.daemon.MarkSeen(ctx, latest); err == nil {
		vm.mu.Lock()
		vm.lastSeen = latest
		vm.mu.Unlock()
	}
}

// Upload sends files through the daemon; successful ones are attached to the
// next message.
func (vm *ViewModel) Upload(ctx context.Context, paths []string) error {
	resp, err := vm.daemon.Upload(ctx, paths)
	if err != nil {
		vm.Flash.SetLevel("Upload failed: "+err.Error(), LevelError, flashFor)
		return err
	}
	var ok, failed int
	vm.mu.Lock()
	for _, r := range resp.Results {
		if r.Attachment != nil {
			vm.pending = append(vm.pending, *r.Attachment)
			ok++
		} else {
			failed++
		}
	}
	vm.mu.Unlock()
	if failed > 0 {
		vm.Flash.SetLevel(fmt.Sprintf("%d uploaded, %d failed", ok, failed), LevelError, flashFor)
	} else {
		vm.Flash.Set(fmt.Sprintf("%d file(s) ready to send", ok), flashFor)
	}
	return vm.LoadUploads(ctx)
}

// ApplyEvent interprets a daemon event and reports what must be reloaded.
// Toasts are applied directly to the flash.
func (vm *ViewModel) ApplyEvent(env *api.EventEnvelope) Refresh {
	switch {
	case env.Kind == notify.KindToast:
		var t notify.Toast
		if err := json.Unmarshal(env.Payload, &t); err != nil {
			return Refresh{}
		}
		level := LevelInfo
		if t.Level == notify.LevelError {
			level = LevelError
		}
		vm.Flash.SetLevel(t.Message, level, flashFor)
		return Refresh{Flash: true}
	case env.Kind == status.KindStatusChanged:
		return Refresh{Status: true}
	case strings.HasPrefix(env.Kind, "group."):
		return Refresh{Room: true, Status: env.Kind == groupchat.KindRoomChanged}
	case env.Kind == upload.KindProgress:
		return Refresh{Uploads: true}
	}
	return Refresh{}
}

// Room returns the cached room snapshot.
func (vm *ViewModel) Room() groupchat.State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.room
}

// Status returns the cached daemon status, or nil before the first load.
func (vm *ViewModel) Status() *api.GetStatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Uploads returns the cached upload progress.
func (vm *ViewModel) Uploads() []upload.FileProgress {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.uploads
}

// Pending returns the attachments waiting for the next message.
func (vm *ViewModel) Pending() []groupchat.Attachment {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return append([]groupchat.Attachment(nil), vm.pending...)
}
