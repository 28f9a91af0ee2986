// Package admin serves a loopback HTTP endpoint for health checks,
// Prometheus scraping and state dumps.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/metrics"
	"github.com/matheus3301/gchat/internal/status"
	"github.com/matheus3301/gchat/internal/upload"
	"go.uber.org/zap"
)

// Options configures the admin server. An empty Addr disables it.
type Options struct {
	Addr    string
	Room    *groupchat.Room
	Tracker *upload.Tracker
	Machine *status.Machine
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Server is the admin HTTP server.
type Server struct {
	addr   string
	engine *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New builds the router. Nothing listens until Start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(logger))

	r.GET("/healthz", func(c *gin.Context) {
		state := opts.Machine.Current()
		code := http.StatusOK
		if state == status.Error {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": state, "connected": opts.Machine.IsConnected()})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	debug := r.Group("/debug")
	debug.GET("/room", func(c *gin.Context) {
		c.JSON(http.StatusOK, opts.Room.Snapshot())
	})
	debug.GET("/uploads", func(c *gin.Context) {
		if opts.Tracker == nil {
			c.JSON(http.StatusOK, []upload.FileProgress{})
			return
		}
		c.JSON(http.StatusOK, opts.Tracker.Snapshot())
	})

	return &Server{addr: opts.Addr, engine: r, logger: logger}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Enabled reports whether an address was configured.
func (s *Server) Enabled() bool {
	return s.addr != ""
}

// Start binds the listener and serves in the background. It is a no-op when
// the server is disabled.
func (s *Server) Start() error {
	if !s.Enabled() {
		return nil
	}
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin listen: %w", err)
	}
	s.http = &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("admin server starting", zap.String("addr", lis.Addr().String()))
	go func() {
		if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("admin request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
