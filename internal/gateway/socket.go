package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/metrics"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// ErrNotConnected is returned by Emit while there is no live connection.
var ErrNotConnected = groupchat.ErrNotConnected

// SocketOptions configures a Socket.
type SocketOptions struct {
	URL     string
	Token   string
	OnFrame func(Frame)
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Dialer  *websocket.Dialer
}

// Socket is the client side of the platform WebSocket. A Socket outlives
// individual connections: Connect may be called again after Done fires.
type Socket struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	onFrame func(Frame)
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}

	writeMu sync.Mutex
}

// NewSocket creates a disconnected socket.
func NewSocket(opts SocketOptions) *Socket {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		}
	}
	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	onFrame := opts.OnFrame
	if onFrame == nil {
		onFrame = func(Frame) {}
	}
	return &Socket{
		url:     opts.URL,
		header:  header,
		dialer:  dialer,
		onFrame: onFrame,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Connect dials the platform and starts the read and keepalive loops.
func (s *Socket) Connect(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("socket url not configured")
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s: %w", s.url, resp.Status, err)
		}
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.done = done
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	s.logger.Info("socket connected", zap.String("url", s.url))
	go s.readLoop(conn, done)
	go s.pingLoop(conn, done)
	return nil
}

// Connected reports whether a connection is live.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Done is closed when the current connection ends. Before the first Connect
// it returns an already closed channel.
func (s *Socket) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Emit sends one event. It fails with ErrNotConnected while disconnected.
func (s *Socket) Emit(event string, payload any) error {
	raw, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		_ = conn.Close()
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// Close ends the current connection with a normal closure.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}

func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = conn.Close()
		close(done)
	}()

	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("socket read failed", zap.Error(err))
			} else {
				s.logger.Info("socket closed", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, err := DecodeFrame(raw)
		if err != nil {
			sample := raw
			if len(sample) > 256 {
				sample = sample[:256]
			}
			s.logger.Warn("dropping malformed frame", zap.Error(err), zap.ByteString("sample", sample))
			continue
		}
		s.metrics.SocketEvent("in", f.Event)
		s.onFrame(f)
	}
}

func (s *Socket) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}
