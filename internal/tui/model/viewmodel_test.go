package model

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/notify"
	"github.com/matheus3301/gchat/internal/status"
	"github.com/matheus3301/gchat/internal/upload"
)

type fakeDaemon struct {
	room    groupchat.State
	sent    []*api.SendMessageRequest
	typing  []bool
	seen    []int64
	sendErr error
	more    *api.LoadMoreResponse
	uploads *api.UploadResponse
}

func (f *fakeDaemon) GetStatus(context.Context) (*api.GetStatusResponse, error) {
	return &api.GetStatusResponse{Profile: "main", Status: "CONNECTED", UserID: 7}, nil
}

func (f *fakeDaemon) GetRoom(context.Context) (*api.GetRoomResponse, error) {
	return &api.GetRoomResponse{Room: f.room}, nil
}

func (f *fakeDaemon) JoinRoom(_ context.Context, id int64) (*api.JoinRoomResponse, error) {
	f.room.CurrentGroupID = id
	return &api.JoinRoomResponse{GroupID: id, Joined: true}, nil
}

func (f *fakeDaemon) LeaveRoom(context.Context) error {
	f.room = groupchat.State{}
	return nil
}

func (f *fakeDaemon) LoadMore(context.Context, int64) (*api.LoadMoreResponse, error) {
	return f.more, nil
}

func (f *fakeDaemon) SendMessage(_ context.Context, req *api.SendMessageRequest) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeDaemon) SetTyping(_ context.Context, v bool) error {
	f.typing = append(f.typing, v)
	return nil
}

func (f *fakeDaemon) MarkSeen(_ context.Context, id int64) error {
	f.seen = append(f.seen, id)
	return nil
}

func (f *fakeDaemon) Upload(context.Context, []string) (*api.UploadResponse, error) {
	return f.uploads, nil
}

func (f *fakeDaemon) ListUploads(context.Context, int) (*api.ListUploadsResponse, error) {
	return &api.ListUploadsResponse{Active: []upload.FileProgress{{ID: "u1", Status: upload.StatusDone}}}, nil
}

func (f *fakeDaemon) ClearUploads(context.Context) (*api.ListUploadsResponse, error) {
	return &api.ListUploadsResponse{Cleared: 1, Active: []upload.FileProgress{}}, nil
}

func TestClearUploads(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{})
	if err := vm.LoadUploads(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(vm.Uploads()); n != 1 {
		t.Fatalf("uploads = %d, want 1", n)
	}
	if err := vm.ClearUploads(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(vm.Uploads()); n != 0 {
		t.Errorf("uploads after clear = %d, want 0", n)
	}
	if msg, _ := vm.Flash.Get(); msg != "Cleared 1 finished upload(s)" {
		t.Errorf("flash = %q", msg)
	}
}

func TestSendIncludesPendingAttachments(t *testing.T) {
	d := &fakeDaemon{uploads: &api.UploadResponse{Results: []api.UploadResult{
		{ID: "u1", Attachment: &groupchat.Attachment{URL: "https://cdn/x.png", Type: "image"}},
		{ID: "u2", Error: "quota"},
	}}}
	vm := NewViewModel(d)
	ctx := context.Background()

	if err := vm.Upload(ctx, []string{"x.png", "y.png"}); err != nil {
		t.Fatal(err)
	}
	if got := len(vm.Pending()); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
	if msg, level := vm.Flash.Get(); level != LevelError || msg == "" {
		t.Errorf("flash = %q/%v, want an error summary", msg, level)
	}
	if got := len(vm.Uploads()); got != 1 {
		t.Errorf("uploads = %d, want 1", got)
	}

	if err := vm.Send(ctx, "  look  "); err != nil {
		t.Fatal(err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(d.sent))
	}
	if d.sent[0].Content != "look" || len(d.sent[0].Attachments) != 1 {
		t.Errorf("sent = %+v", d.sent[0])
	}
	if len(vm.Pending()) != 0 {
		t.Error("pending attachments should be cleared after send")
	}
}

func TestSendFailureKeepsAttachments(t *testing.T) {
	d := &fakeDaemon{
		sendErr: errors.New("not connected"),
		uploads: &api.UploadResponse{Results: []api.UploadResult{{Attachment: &groupchat.Attachment{Type: "video"}}}},
	}
	vm := NewViewModel(d)
	ctx := context.Background()
	_ = vm.Upload(ctx, []string{"v.mp4"})

	if err := vm.Send(ctx, "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(vm.Pending()) != 1 {
		t.Error("attachments should survive a failed send")
	}
	if msg, level := vm.Flash.Get(); level != LevelError || msg == "" {
		t.Errorf("flash = %q/%v", msg, level)
	}
}

func TestSetTypingSkipsRepeats(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)
	ctx := context.Background()

	vm.SetTyping(ctx, true)
	vm.SetTyping(ctx, true)
	vm.SetTyping(ctx, false)
	vm.SetTyping(ctx, false)

	if len(d.typing) != 2 || !d.typing[0] || d.typing[1] {
		t.Errorf("typing calls = %v, want [true false]", d.typing)
	}
}

func TestMarkLatestSeenSkipsOwnAndRepeats(t *testing.T) {
	d := &fakeDaemon{room: groupchat.State{Messages: []groupchat.GroupMessage{
		{ID: 1, SenderID: 9},
		{ID: 2, SenderID: 9},
		{ID: 3, SenderID: 7},
	}}}
	vm := NewViewModel(d)
	ctx := context.Background()
	if err := vm.LoadStatus(ctx); err != nil {
		t.Fatal(err)
	}
	if err := vm.LoadRoom(ctx); err != nil {
		t.Fatal(err)
	}

	vm.MarkLatestSeen(ctx)
	vm.MarkLatestSeen(ctx)

	if len(d.seen) != 1 || d.seen[0] != 2 {
		t.Errorf("seen = %v, want [2]", d.seen)
	}
}

func TestLoadMoreFlashes(t *testing.T) {
	d := &fakeDaemon{more: &api.LoadMoreResponse{Error: "backend down"}}
	vm := NewViewModel(d)
	if err := vm.LoadMore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msg, level := vm.Flash.Get(); level != LevelError || msg != "History unavailable: backend down" {
		t.Errorf("flash = %q/%v", msg, level)
	}

	d.more = &api.LoadMoreResponse{}
	_ = vm.LoadMore(context.Background())
	if msg, _ := vm.Flash.Get(); msg != "No older messages" {
		t.Errorf("flash = %q, want No older messages", msg)
	}
}

func TestJoinAndLeave(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)
	ctx := context.Background()

	if err := vm.Join(ctx, 42); err != nil {
		t.Fatal(err)
	}
	if got := vm.Room().CurrentGroupID; got != 42 {
		t.Errorf("group = %d, want 42", got)
	}
	if err := vm.Leave(ctx); err != nil {
		t.Fatal(err)
	}
	if got := vm.Room().CurrentGroupID; got != 0 {
		t.Errorf("group after leave = %d, want 0", got)
	}
}

func TestApplyEvent(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{})
	toast, _ := json.Marshal(notify.Toast{Level: notify.LevelError, Message: "Failed to upload x.png"})

	tests := []struct {
		kind    string
		payload json.RawMessage
		want    Refresh
	}{
		{groupchat.KindMessagesChanged, nil, Refresh{Room: true}},
		{groupchat.KindRoomChanged, nil, Refresh{Room: true, Status: true}},
		{status.KindStatusChanged, nil, Refresh{Status: true}},
		{upload.KindProgress, nil, Refresh{Uploads: true}},
		{notify.KindToast, toast, Refresh{Flash: true}},
		{"socket.new-group-message", nil, Refresh{}},
	}
	for _, tt := range tests {
		got := vm.ApplyEvent(&api.EventEnvelope{Kind: tt.kind, Payload: tt.payload})
		if got != tt.want {
			t.Errorf("ApplyEvent(%s) = %+v, want %+v", tt.kind, got, tt.want)
		}
	}
	if msg, level := vm.Flash.Get(); msg != "Failed to upload x.png" || level != LevelError {
		t.Errorf("flash = %q/%v", msg, level)
	}
}

func TestFlashExpires(t *testing.T) {
	var f Flash
	f.Set("hi", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if msg, _ := f.Get(); msg != "" {
		t.Errorf("Get() = %q after expiry, want empty", msg)
	}
}
