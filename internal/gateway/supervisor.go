package gateway

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/metrics"
	"github.com/matheus3301/gchat/internal/status"
	"go.uber.org/zap"
)

// Conn is the connection a Supervisor keeps alive.
type Conn interface {
	Connect(ctx context.Context) error
	Done() <-chan struct{}
	Close() error
}

// Room is the part of the group room a reconnect has to restore.
type Room interface {
	CurrentGroupID() int64
	JoinGroupRoom(groupID int64) error
	RestoreGroupRoom() error
	MarkDisconnected()
}

// Supervisor dials the socket, redials with exponential backoff when it
// drops, and re-joins the remembered room after every successful dial.
type Supervisor struct {
	conn    Conn
	room    Room
	machine *status.Machine
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger

	newBackOff func() backoff.BackOff

	cancel context.CancelFunc
	done   chan struct{}
}

// SupervisorOptions configures a Supervisor. BackOff is optional.
type SupervisorOptions struct {
	Conn    Conn
	Room    Room
	Machine *status.Machine
	Bus     *bus.Bus
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	BackOff func() backoff.BackOff
}

// NewSupervisor creates a supervisor; Start begins dialing.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	newBackOff := opts.BackOff
	if newBackOff == nil {
		newBackOff = DefaultBackOff
	}
	return &Supervisor{
		conn:       opts.Conn,
		room:       opts.Room,
		machine:    opts.Machine,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		logger:     logger,
		newBackOff: newBackOff,
	}
}

// DefaultBackOff retries forever, from one second up to one minute apart.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	return b
}

// Start runs the connect loop in the background.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.run(ctx)
	}()
}

// Stop closes the connection and waits for the loop to exit.
func (s *Supervisor) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Supervisor) run(ctx context.Context) {
	b := s.newBackOff()
	b.Reset()

	for {
		s.transition(status.Connecting)
		if err := s.conn.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				s.transition(status.Offline)
				return
			}
			s.transition(status.Reconnecting)
			if !s.wait(ctx, b, err) {
				return
			}
			continue
		}

		b.Reset()
		s.transition(status.Connected)
		s.metrics.SetConnected(true)
		s.bus.Emit(KindConnected, nil)
		s.restoreRoom()

		select {
		case <-ctx.Done():
			_ = s.conn.Close()
			s.metrics.SetConnected(false)
			s.room.MarkDisconnected()
			s.transition(status.Offline)
			return
		case <-s.conn.Done():
		}

		s.logger.Warn("socket disconnected")
		s.metrics.SetConnected(false)
		s.room.MarkDisconnected()
		s.bus.Emit(KindDisconnected, nil)
		s.transition(status.Reconnecting)
		if !s.wait(ctx, b, nil) {
			return
		}
	}
}

// wait sleeps for the next backoff interval. It reports false when the
// context ended or the policy gave up; the machine is then Offline.
func (s *Supervisor) wait(ctx context.Context, b backoff.BackOff, cause error) bool {
	d := b.NextBackOff()
	if d == backoff.Stop {
		s.logger.Error("giving up on socket", zap.Error(cause))
		s.transition(status.Offline)
		return false
	}
	s.logger.Info("reconnecting", zap.Duration("in", d), zap.Error(cause))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		s.transition(status.Offline)
		return false
	case <-t.C:
		return true
	}
}

// restoreRoom re-joins the active group; the platform drops room membership
// with the connection.
func (s *Supervisor) restoreRoom() {
	groupID := s.room.CurrentGroupID()
	if groupID == 0 {
		return
	}
	if err := s.room.JoinGroupRoom(groupID); err != nil {
		s.logger.Warn("rejoin failed", zap.Int64("group_id", groupID), zap.Error(err))
		return
	}
	if err := s.room.RestoreGroupRoom(); err != nil {
		s.logger.Warn("restore rooms failed", zap.Error(err))
	}
}

func (s *Supervisor) transition(to status.State) {
	if s.machine == nil || s.machine.Current() == to {
		return
	}
	if err := s.machine.Transition(to); err != nil {
		s.logger.Debug("status transition skipped", zap.Error(err))
	}
}
