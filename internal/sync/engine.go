package sync

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/gateway"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/notify"
	"github.com/matheus3301/gchat/internal/store"
	"go.uber.org/zap"
)

// Engine routes socket events into the room and caches what it sees in the
// local store. Socket events arrive synchronously through HandleEvent (the
// engine is the gateway's Sink); "group." events come from the bus.
// db may be nil, in which case nothing is cached.
type Engine struct {
	// mu serializes the socket reader and the bus loop.
	mu     sync.Mutex
	db     *store.DB
	room   *groupchat.Room
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new sync engine.
func NewEngine(db *store.DB, room *groupchat.Room, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		room:   room,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to room events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	groupCh, unsubGroup := e.bus.Subscribe("group.", 256)

	go func() {
		defer close(e.done)
		defer unsubGroup()
		for {
			select {
			case evt := <-groupCh:
				e.HandleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the event loop to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

// HandleEvent applies one event to the room and the cache. It blocks until
// the event is fully applied.
func (e *Engine) HandleEvent(evt bus.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch p := evt.Payload.(type) {
	case groupchat.GroupMessage:
		if evt.Kind != gateway.KindNewMessage {
			return
		}
		if err := e.IngestMessage(&p); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.Int64("msg_id", p.ID))
		}
	case gateway.MemberJoined:
		e.memberJoined(p)
	case gateway.MemberLeft:
		e.memberLeft(p)
	case gateway.UserTyping:
		e.userTyping(p)
	case gateway.RoomJoined:
		e.roomJoined(p)
	case gateway.GroupError:
		notify.Error(e.bus, p.Message)
	case groupchat.PageLoaded:
		if err := e.IngestPage(p.Messages); err != nil {
			e.logger.Error("failed to cache history page", zap.Error(err), zap.Int("count", len(p.Messages)))
		}
	case int64:
		// An explicit leave publishes 0 and clears the checkpoint.
		if evt.Kind == groupchat.KindRoomChanged {
			e.rememberGroup(p)
		}
	}
}

func (e *Engine) active(groupID int64) bool {
	return groupID != 0 && groupID == e.room.CurrentGroupID()
}

// IngestMessage adds a live message to the room when it belongs to the
// active group, and caches it either way. Duplicates are ignored at both
// levels.
func (e *Engine) IngestMessage(msg *groupchat.GroupMessage) error {
	if e.active(msg.GroupID) {
		e.room.AddMessage(*msg)
		// A message from someone ends their typing marker.
		e.room.RemoveTyping(msg.SenderID)
	}
	if e.db == nil {
		return nil
	}
	if err := e.db.UpsertGroupMessage(msg); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

// IngestPage caches a fetched history page.
func (e *Engine) IngestPage(msgs []groupchat.GroupMessage) error {
	if e.db == nil || len(msgs) == 0 {
		return nil
	}
	n, err := e.db.UpsertGroupMessages(msgs)
	if err != nil {
		return fmt.Errorf("cache page: %w", err)
	}
	e.logger.Debug("history page cached", zap.Int("messages", len(msgs)), zap.Int("new", n))
	return nil
}

func (e *Engine) memberJoined(p gateway.MemberJoined) {
	if e.active(p.GroupID) {
		e.room.MemberJoined(p.Member)
	}
	if e.db != nil {
		if err := e.db.UpsertMember(p.GroupID, &p.Member); err != nil {
			e.logger.Error("failed to cache member", zap.Error(err), zap.Int64("user_id", p.Member.UserID))
		}
	}
}

func (e *Engine) memberLeft(p gateway.MemberLeft) {
	if e.active(p.GroupID) {
		e.room.MemberLeft(p.UserID)
		e.room.RemoveTyping(p.UserID)
	}
	if e.db != nil {
		if err := e.db.DeleteMember(p.GroupID, p.UserID); err != nil {
			e.logger.Error("failed to drop member", zap.Error(err), zap.Int64("user_id", p.UserID))
		}
	}
}

func (e *Engine) userTyping(p gateway.UserTyping) {
	if !e.active(p.GroupID) {
		return
	}
	if u := e.room.User(); u != nil && u.ID == p.UserID {
		return
	}
	e.room.SetTyping(p.TypingUser)
}

func (e *Engine) roomJoined(p gateway.RoomJoined) {
	if e.active(p.GroupID) {
		e.room.SetMembers(p.Members)
	}
	if e.db != nil {
		if err := e.db.ReplaceMembers(p.GroupID, p.Members); err != nil {
			e.logger.Error("failed to cache members", zap.Error(err), zap.Int64("group_id", p.GroupID))
		}
	}
}

func (e *Engine) rememberGroup(groupID int64) {
	if e.db == nil {
		return
	}
	if err := e.db.SetCheckpoint(store.CheckpointLastGroup, strconv.FormatInt(groupID, 10)); err != nil {
		e.logger.Warn("failed to save last group", zap.Error(err))
	}
}

// LastGroup returns the group that was active when the daemon last ran, or 0.
func (e *Engine) LastGroup() int64 {
	if e.db == nil {
		return 0
	}
	v, err := e.db.GetCheckpoint(store.CheckpointLastGroup)
	if err != nil || v == "" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
