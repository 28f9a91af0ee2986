package groupchat

import (
	"context"
	"slices"
	"sync"

	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/metrics"
	"go.uber.org/zap"
)

// DefaultPageSize is the number of messages requested per history page.
const DefaultPageSize = 100

// Fetcher retrieves older history pages.
type Fetcher interface {
	FetchGroupMessages(ctx context.Context, groupID int64, cursor *int64, limit int) (*Page, error)
}

// Options configures a Room.
type Options struct {
	Emitter  Emitter
	Fetcher  Fetcher
	Bus      *bus.Bus
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	PageSize int
	User     *User
}

// Room holds the live state of one active group conversation. It is the
// single source of truth the UI reads from; socket events and history
// fetches mutate it.
type Room struct {
	mu    sync.Mutex
	state State
	user  *User
	// epoch increments whenever the room is torn down so that a history
	// fetch started before the teardown cannot write into the new room.
	epoch uint64

	dispatcher *Dispatcher
	fetcher    Fetcher
	bus        *bus.Bus
	logger     *zap.Logger
	metrics    *metrics.Metrics
	pageSize   int
}

// NewRoom creates an empty room.
func NewRoom(opts Options) *Room {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	r := &Room{
		dispatcher: NewDispatcher(opts.Emitter, opts.Metrics, logger),
		fetcher:    opts.Fetcher,
		bus:        opts.Bus,
		logger:     logger,
		metrics:    opts.Metrics,
		pageSize:   pageSize,
	}
	if opts.User != nil {
		u := *opts.User
		r.user = &u
	}
	r.resetLocked()
	return r
}

// SetUser replaces the current user; nil clears it.
func (r *Room) SetUser(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u == nil {
		r.user = nil
		return
	}
	cp := *u
	r.user = &cp
}

// User returns a copy of the current user, or nil.
func (r *Room) User() *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		return nil
	}
	cp := *r.user
	return &cp
}

// CurrentGroupID returns the active group, or 0 when not in a room.
func (r *Room) CurrentGroupID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.CurrentGroupID
}

// Snapshot returns a copy of the room state safe to hand to other goroutines.
func (r *Room) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Messages = slices.Clone(r.state.Messages)
	s.ActiveMembers = slices.Clone(r.state.ActiveMembers)
	s.TypingUsers = slices.Clone(r.state.TypingUsers)
	if r.state.CurrentCursor != nil {
		c := *r.state.CurrentCursor
		s.CurrentCursor = &c
	}
	return s
}

func (r *Room) resetLocked() {
	r.epoch++
	r.state = State{
		Messages:        []GroupMessage{},
		ActiveMembers:   []GroupMember{},
		TypingUsers:     []TypingUser{},
		HasMoreMessages: true,
	}
}

// JoinGroupRoom makes groupID the active room and announces it on the socket.
// Joining the group already joined is a no-op; joining another group tears
// the current one down first. The room is remembered even when the socket is
// down, and IsJoined only becomes true once the join event went out.
func (r *Room) JoinGroupRoom(groupID int64) error {
	r.mu.Lock()
	if r.state.CurrentGroupID == groupID && r.state.IsJoined {
		r.mu.Unlock()
		return nil
	}
	previous := r.state.CurrentGroupID
	wasJoined := r.state.IsJoined
	if previous != groupID {
		r.resetLocked()
	}
	r.state.CurrentGroupID = groupID
	user := r.userLocked()
	r.mu.Unlock()

	if previous != 0 && previous != groupID && wasJoined {
		if err := r.dispatcher.Dispatch(user, previous, leaveCommand()); err != nil {
			r.logger.Debug("leave previous room not sent", zap.Int64("group_id", previous), zap.Error(err))
		}
	}

	err := r.dispatcher.Dispatch(user, groupID, Command{
		Event:      EventJoinRoom,
		NeedsGroup: true,
		Payload: func(t Target) any {
			return roomPayload{GroupID: t.GroupID, UserID: t.User.ID}
		},
	})

	r.mu.Lock()
	if r.state.CurrentGroupID == groupID {
		r.state.IsJoined = err == nil
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug("join room not sent", zap.Int64("group_id", groupID), zap.Error(err))
	} else {
		r.logger.Info("joined group room", zap.Int64("group_id", groupID))
	}
	r.bus.Emit(KindRoomChanged, groupID)
	return err
}

// LeaveGroupRoom announces the leave (best-effort) and clears all room state
// whether or not the event could be sent.
func (r *Room) LeaveGroupRoom() error {
	r.mu.Lock()
	groupID := r.state.CurrentGroupID
	user := r.userLocked()
	r.resetLocked()
	r.mu.Unlock()

	err := r.dispatcher.Dispatch(user, groupID, leaveCommand())
	if err != nil {
		r.logger.Debug("leave room not sent", zap.Int64("group_id", groupID), zap.Error(err))
	} else {
		r.logger.Info("left group room", zap.Int64("group_id", groupID))
	}
	r.bus.Emit(KindRoomChanged, int64(0))
	return err
}

func leaveCommand() Command {
	return Command{
		Event:      EventLeaveRoom,
		NeedsGroup: true,
		Payload: func(t Target) any {
			return roomPayload{GroupID: t.GroupID, UserID: t.User.ID}
		},
	}
}

// SendMessage asks the platform to post a message in the active group. The
// message is not added locally: it appears once the platform echoes it back
// as a new-message event.
func (r *Room) SendMessage(content string, attachments []Attachment, replyToID *int64) error {
	if content == "" && len(attachments) == 0 {
		return ErrEmptyMessage
	}
	messageType := "text"
	if len(attachments) > 0 && attachments[0].Type != "" {
		messageType = attachments[0].Type
	}
	if attachments == nil {
		attachments = []Attachment{}
	}

	r.mu.Lock()
	groupID := r.state.CurrentGroupID
	user := r.userLocked()
	r.mu.Unlock()

	return r.dispatcher.Dispatch(user, groupID, Command{
		Event:      EventSendMessage,
		NeedsGroup: true,
		Payload: func(t Target) any {
			return sendPayload{
				GroupID:     t.GroupID,
				Content:     content,
				MessageType: messageType,
				Attachments: attachments,
				ReplyToID:   replyToID,
			}
		},
	})
}

// SetTypingStatus tells the group whether the current user is typing.
func (r *Room) SetTypingStatus(isTyping bool) error {
	groupID, user := r.target()
	return r.dispatcher.Dispatch(user, groupID, Command{
		Event:      EventTyping,
		NeedsGroup: true,
		Payload: func(t Target) any {
			return typingPayload{GroupID: t.GroupID, IsTyping: isTyping}
		},
	})
}

// MarkMessageAsSeen acknowledges a message in the active group.
func (r *Room) MarkMessageAsSeen(messageID int64) error {
	groupID, user := r.target()
	return r.dispatcher.Dispatch(user, groupID, Command{
		Event:      EventMessageSeen,
		NeedsGroup: true,
		Payload: func(t Target) any {
			return seenPayload{GroupID: t.GroupID, MessageID: messageID}
		},
	})
}

// RestoreGroupRoom asks the platform to re-subscribe this user to its rooms,
// typically right after a reconnect. It needs an active group.
func (r *Room) RestoreGroupRoom() error {
	groupID, user := r.target()
	return r.dispatcher.Dispatch(user, groupID, Command{
		Event:      EventRestoreRooms,
		NeedsGroup: true,
		Payload: func(t Target) any {
			return restorePayload{UserID: t.User.ID}
		},
	})
}

func (r *Room) target() (int64, *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.CurrentGroupID, r.userLocked()
}

func (r *Room) userLocked() *User {
	if r.user == nil {
		return nil
	}
	cp := *r.user
	return &cp
}

// SetMessages replaces the message list. msgs is in server order
// (newest-first); the room keeps oldest-first.
func (r *Room) SetMessages(msgs []GroupMessage) {
	r.mu.Lock()
	reversed := slices.Clone(msgs)
	slices.Reverse(reversed)
	if reversed == nil {
		reversed = []GroupMessage{}
	}
	r.state.Messages = reversed
	r.state.TotalMessages = len(reversed)
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()

	r.bus.Emit(KindMessagesChanged, groupID)
}

// AddMessage appends a live message. A message whose id is already present is
// dropped and AddMessage reports false.
func (r *Room) AddMessage(msg GroupMessage) bool {
	r.mu.Lock()
	if slices.ContainsFunc(r.state.Messages, func(m GroupMessage) bool { return m.ID == msg.ID }) {
		r.mu.Unlock()
		r.metrics.DuplicatesDropped(1)
		return false
	}
	r.state.Messages = append(r.state.Messages, msg)
	r.state.TotalMessages = len(r.state.Messages)
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()

	r.bus.Emit(KindMessagesChanged, groupID)
	return true
}
