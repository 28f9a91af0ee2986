package groupchat

import (
	"errors"
	"fmt"

	"github.com/matheus3301/gchat/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("socket not connected")
	ErrNoUser       = errors.New("no current user")
	ErrNoGroup      = errors.New("not in a group room")
	ErrEmptyMessage = errors.New("message has no content and no attachments")
)

// Emitter sends named events over the platform socket.
type Emitter interface {
	Emit(event string, payload any) error
	Connected() bool
}

// Target is what a command is addressed with once the dispatcher has
// confirmed a user (and, when required, a group) is present.
type Target struct {
	User    User
	GroupID int64
}

// Command is one outbound socket event.
type Command struct {
	Event      string
	NeedsGroup bool
	Payload    func(Target) any
}

// Dispatcher is the single place that decides whether a command may go out.
// Commands are rejected, not queued, while the socket is down.
type Dispatcher struct {
	emitter Emitter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDispatcher wraps an emitter. emitter may be nil, in which case every
// command is rejected with ErrNotConnected.
func NewDispatcher(emitter Emitter, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{emitter: emitter, metrics: m, logger: logger}
}

// Dispatch validates the connection context and emits cmd.
func (d *Dispatcher) Dispatch(user *User, groupID int64, cmd Command) error {
	if d == nil || d.emitter == nil || !d.emitter.Connected() {
		return ErrNotConnected
	}
	if user == nil {
		return ErrNoUser
	}
	if cmd.NeedsGroup && groupID == 0 {
		return ErrNoGroup
	}

	var payload any
	if cmd.Payload != nil {
		payload = cmd.Payload(Target{User: *user, GroupID: groupID})
	}
	if err := d.emitter.Emit(cmd.Event, payload); err != nil {
		return fmt.Errorf("emit %s: %w", cmd.Event, err)
	}
	d.metrics.SocketEvent("out", cmd.Event)
	d.logger.Debug("socket event sent", zap.String("event", cmd.Event), zap.Int64("group_id", groupID))
	return nil
}
