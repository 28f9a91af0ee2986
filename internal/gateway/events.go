package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/groupchat"
	"go.uber.org/zap"
)

// Bus kinds published by the gateway.
const (
	KindPrefix       = "socket."
	KindConnected    = KindPrefix + "connected"
	KindDisconnected = KindPrefix + "disconnected"

	KindNewMessage   = KindPrefix + groupchat.EventNewMessage
	KindMemberJoined = KindPrefix + groupchat.EventMemberJoined
	KindMemberLeft   = KindPrefix + groupchat.EventMemberLeft
	KindUserTyping   = KindPrefix + groupchat.EventUserTyping
	KindRoomJoined   = KindPrefix + groupchat.EventRoomJoined
	KindGroupError   = KindPrefix + groupchat.EventGroupError
)

// MemberJoined is the payload of a group-member-joined event.
type MemberJoined struct {
	GroupID int64                 `json:"groupId"`
	Member  groupchat.GroupMember `json:"member"`
}

// MemberLeft is the payload of a group-member-left event.
type MemberLeft struct {
	GroupID int64 `json:"groupId"`
	UserID  int64 `json:"userId"`
}

// UserTyping is the payload of a group-user-typing event.
type UserTyping struct {
	GroupID int64 `json:"groupId"`
	groupchat.TypingUser
}

// RoomJoined acknowledges a join and carries the current member list.
type RoomJoined struct {
	GroupID int64                   `json:"groupId"`
	Members []groupchat.GroupMember `json:"members"`
}

// GroupError is a server-side rejection of a client event.
type GroupError struct {
	GroupID int64  `json:"groupId,omitempty"`
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// Sink receives every parsed inbound event synchronously, before the event is
// published on the bus. The bus drops events for slow subscribers; a Sink
// does not.
type Sink interface {
	HandleEvent(evt bus.Event)
}

// EventHandler turns inbound frames into typed events for its Sink and the
// bus.
type EventHandler struct {
	bus    *bus.Bus
	sink   Sink
	logger *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(b *bus.Bus, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{bus: b, logger: logger}
}

// SetSink installs the synchronous receiver. It must be called before the
// socket connects.
func (h *EventHandler) SetSink(s Sink) {
	h.sink = s
}

// Handle parses one frame, hands it to the sink and publishes it. Unknown
// events are published with their raw payload.
func (h *EventHandler) Handle(f Frame) {
	payload, err := ParseFrame(f)
	if err != nil {
		h.logger.Warn("dropping unparseable event", zap.String("event", f.Event), zap.Error(err))
		return
	}
	if ge, ok := payload.(GroupError); ok {
		h.logger.Warn("platform rejected event",
			zap.Int64("group_id", ge.GroupID),
			zap.String("event", ge.Event),
			zap.String("message", ge.Message),
		)
	}
	evt := bus.Event{Kind: KindPrefix + f.Event, Timestamp: time.Now(), Payload: payload}
	if h.sink != nil {
		h.sink.HandleEvent(evt)
	}
	h.bus.Publish(evt)
}

// ParseFrame decodes the payload of a known inbound event into its type.
func ParseFrame(f Frame) (any, error) {
	switch f.Event {
	case groupchat.EventNewMessage:
		return decode[groupchat.GroupMessage](f)
	case groupchat.EventMemberJoined:
		return decode[MemberJoined](f)
	case groupchat.EventMemberLeft:
		return decode[MemberLeft](f)
	case groupchat.EventUserTyping:
		return decode[UserTyping](f)
	case groupchat.EventRoomJoined:
		return decode[RoomJoined](f)
	case groupchat.EventGroupError:
		return decode[GroupError](f)
	default:
		return f.Data, nil
	}
}

func decode[T any](f Frame) (T, error) {
	var v T
	if len(f.Data) == 0 {
		return v, fmt.Errorf("%s: empty payload", f.Event)
	}
	if err := json.Unmarshal(f.Data, &v); err != nil {
		return v, fmt.Errorf("%s: %w", f.Event, err)
	}
	return v, nil
}
