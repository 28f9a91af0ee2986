package api

import (
	"context"
	"time"

	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/status"
	"github.com/matheus3301/gchat/internal/store"
)

// SessionService reports daemon health.
type SessionService struct {
	profile   string
	startedAt time.Time
	machine   *status.Machine
	room      *groupchat.Room
	db        *store.DB
}

// NewSessionService creates a new session service. db may be nil.
func NewSessionService(profile string, machine *status.Machine, room *groupchat.Room, db *store.DB) *SessionService {
	return &SessionService{
		profile:   profile,
		startedAt: time.Now(),
		machine:   machine,
		room:      room,
		db:        db,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *Empty) (*GetStatusResponse, error) {
	current := s.machine.Current()
	resp := &GetStatusResponse{
		Profile:   s.profile,
		Status:    string(current),
		Connected: s.machine.IsConnected(),
		UptimeMs:  time.Since(s.startedAt).Milliseconds(),
	}

	if u := s.room.User(); u != nil {
		resp.UserID = u.ID
		resp.Username = u.Username
	}
	snap := s.room.Snapshot()
	resp.GroupID = snap.CurrentGroupID
	resp.IsJoined = snap.IsJoined

	if s.db != nil && snap.CurrentGroupID != 0 {
		if n, err := s.db.GroupMessageCount(snap.CurrentGroupID); err == nil {
			resp.CachedMessages = n
		}
	}
	return resp, nil
}
