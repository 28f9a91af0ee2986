package groupchat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// fakeEmitter records emitted events.
type fakeEmitter struct {
	mu        sync.Mutex
	connected bool
	err       error
	events    []emitted
}

type emitted struct {
	Event   string
	Payload map[string]any
}

func (f *fakeEmitter) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	raw, _ := json.Marshal(payload)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	f.events = append(f.events, emitted{Event: event, Payload: m})
	return nil
}

func (f *fakeEmitter) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeEmitter) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeEmitter) sent() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]emitted, len(f.events))
	copy(out, f.events)
	return out
}

// fakeFetcher returns canned pages. When gate is non-nil each call blocks
// until a value is sent on it.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	pages []*Page
	err   error
	gate  chan struct{}
}

type fetchCall struct {
	GroupID int64
	Cursor  *int64
	Limit   int
}

func (f *fakeFetcher) FetchGroupMessages(ctx context.Context, groupID int64, cursor *int64, limit int) (*Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{GroupID: groupID, Cursor: cursor, Limit: limit})
	var page *Page
	if len(f.pages) > 0 {
		page = f.pages[0]
		f.pages = f.pages[1:]
	}
	err := f.err
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return page, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errBackend = errors.New("backend unavailable")

func msg(id int64) GroupMessage {
	return GroupMessage{ID: id, GroupID: 42, Content: "m", MessageType: "text"}
}

// newestFirst builds a server-ordered page of ids from..to (descending).
func newestFirst(from, to int64) []GroupMessage {
	var out []GroupMessage
	for id := from; id >= to; id-- {
		out = append(out, msg(id))
	}
	return out
}

func ids(msgs []GroupMessage) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func equalIDs(t *testing.T, got []GroupMessage, want ...int64) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

func connectedRoom(t *testing.T) (*Room, *fakeEmitter, *fakeFetcher) {
	t.Helper()
	em := &fakeEmitter{connected: true}
	ff := &fakeFetcher{}
	r := NewRoom(Options{
		Emitter: em,
		Fetcher: ff,
		User:    &User{ID: 7, Username: "ada"},
	})
	return r, em, ff
}
