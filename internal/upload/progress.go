package upload

import (
	"slices"
	"sync"

	"github.com/matheus3301/gchat/internal/bus"
)

// KindProgress is published whenever a tracked upload changes.
const KindProgress = "upload.progress"

// Progress states.
const (
	StatusQueued    = "queued"
	StatusUploading = "uploading"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// FileProgress is the UI-facing state of one file.
type FileProgress struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	Kind     string `json:"kind,omitempty"`
	Status   string `json:"status"`
	Percent  int    `json:"percent"`
	Error    string `json:"error,omitempty"`
	MediaID  string `json:"mediaId,omitempty"`
	URL      string `json:"url,omitempty"`

	seq uint64
}

// Tracker is the shared progress map keyed by file id.
type Tracker struct {
	mu    sync.Mutex
	items map[string]FileProgress
	seq   uint64
	bus   *bus.Bus
}

// NewTracker creates an empty tracker.
func NewTracker(b *bus.Bus) *Tracker {
	return &Tracker{items: make(map[string]FileProgress), bus: b}
}

// Add starts tracking a file in the queued state.
func (t *Tracker) Add(id, fileName string) {
	t.mu.Lock()
	t.seq++
	p := FileProgress{ID: id, FileName: fileName, Status: StatusQueued, seq: t.seq}
	t.items[id] = p
	t.mu.Unlock()
	t.bus.Emit(KindProgress, p)
}

// Update applies fn to a tracked file. Unknown ids are ignored.
func (t *Tracker) Update(id string, fn func(*FileProgress)) {
	t.mu.Lock()
	p, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	fn(&p)
	if p.Percent < 0 {
		p.Percent = 0
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	t.items[id] = p
	t.mu.Unlock()
	t.bus.Emit(KindProgress, p)
}

// Get returns the progress of one file.
func (t *Tracker) Get(id string) (FileProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.items[id]
	return p, ok
}

// Snapshot returns all tracked files in the order they were added.
func (t *Tracker) Snapshot() []FileProgress {
	t.mu.Lock()
	out := make([]FileProgress, 0, len(t.items))
	for _, p := range t.items {
		out = append(out, p)
	}
	t.mu.Unlock()
	slices.SortFunc(out, func(a, b FileProgress) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}

// ClearFinished forgets files that are done or failed and returns how many
// were dropped. Queued and uploading files stay.
func (t *Tracker) ClearFinished() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, p := range t.items {
		if p.Status == StatusDone || p.Status == StatusFailed {
			delete(t.items, id)
			n++
		}
	}
	return n
}

func percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(sent * 100 / total)
}
