package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/matheus3301/gchat/internal/admin"
	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/config"
	"github.com/matheus3301/gchat/internal/gateway"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/lock"
	"github.com/matheus3301/gchat/internal/logging"
	"github.com/matheus3301/gchat/internal/metrics"
	"github.com/matheus3301/gchat/internal/profile"
	"github.com/matheus3301/gchat/internal/rest"
	"github.com/matheus3301/gchat/internal/status"
	"github.com/matheus3301/gchat/internal/store"
	intsync "github.com/matheus3301/gchat/internal/sync"
	"github.com/matheus3301/gchat/internal/upload"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// uploadTimeout bounds a single upload request (one image or one TUS chunk).
const uploadTimeout = 10 * time.Minute

// Params holds the resolved profile passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
	// Settings replaces the on-disk profile.toml when set.
	Settings *config.Profile
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideSettings,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideMetrics,
			provideLock,
			provideStore,
			provideRESTClient,
			provideEventHandler,
			provideSocket,
			provideRoom,
			provideSupervisor,
			provideSyncEngine,
			providePipeline,
			provideSessionService,
			provideGroupService,
			provideMediaService,
			provideAdmin,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideSettings(p Params) (*config.Profile, error) {
	settings := p.Settings
	if settings == nil {
		var err error
		settings, err = profile.Load(p.ProfileName)
		if err != nil {
			return nil, err
		}
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.ProfileName, err)
	}
	return settings, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName), p.ProfileName)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two daemons.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied",
			zap.Uint("from", result.From),
			zap.Uint("version", result.Version),
			zap.Strings("applied", result.Applied),
		)
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRESTClient(cfg *config.Profile, logger *zap.Logger) *rest.Client {
	return rest.New(rest.Options{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout.Duration,
		Logger:  logger.Named("rest"),
	})
}

func provideEventHandler(b *bus.Bus, logger *zap.Logger) *gateway.EventHandler {
	return gateway.NewEventHandler(b, logger.Named("events"))
}

func provideSocket(cfg *config.Profile, handler *gateway.EventHandler, m *metrics.Metrics, logger *zap.Logger) *gateway.Socket {
	return gateway.NewSocket(gateway.SocketOptions{
		URL:     cfg.SocketURL,
		Token:   cfg.Token,
		OnFrame: handler.Handle,
		Logger:  logger.Named("socket"),
		Metrics: m,
	})
}

func provideRoom(cfg *config.Profile, socket *gateway.Socket, client *rest.Client, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *groupchat.Room {
	return groupchat.NewRoom(groupchat.Options{
		Emitter:  socket,
		Fetcher:  client,
		Bus:      b,
		Logger:   logger.Named("room"),
		Metrics:  m,
		PageSize: cfg.PageSize,
		User:     &groupchat.User{ID: cfg.UserID, Username: cfg.Username},
	})
}

func provideSupervisor(socket *gateway.Socket, room *groupchat.Room, machine *status.Machine, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *gateway.Supervisor {
	return gateway.NewSupervisor(gateway.SupervisorOptions{
		Conn:    socket,
		Room:    room,
		Machine: machine,
		Bus:     b,
		Metrics: m,
		Logger:  logger.Named("supervisor"),
	})
}

// provideSyncEngine makes the engine the socket's synchronous sink, so live
// messages reach the room even when bus subscribers fall behind.
func provideSyncEngine(db *store.DB, room *groupchat.Room, b *bus.Bus, handler *gateway.EventHandler, logger *zap.Logger) *intsync.Engine {
	e := intsync.NewEngine(db, room, b, logger.Named("sync"))
	handler.SetSink(e)
	return e
}

func providePipeline(cfg *config.Profile, client *rest.Client, db *store.DB, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *upload.Pipeline {
	// Signed upload URLs carry their own authorization; no bearer token here.
	h := resty.New().SetTimeout(uploadTimeout)
	return upload.NewPipeline(upload.Options{
		Requester: client,
		Image:     upload.NewImageUploader(h),
		Video:     upload.NewTUSUploader(h, cfg.UploadChunkSize),
		DB:        db,
		Bus:       b,
		Metrics:   m,
		Logger:    logger.Named("upload"),
	})
}

func provideSessionService(p Params, m *status.Machine, room *groupchat.Room, db *store.DB) *api.SessionService {
	return api.NewSessionService(p.ProfileName, m, room, db)
}

func provideGroupService(room *groupchat.Room, db *store.DB, b *bus.Bus, logger *zap.Logger) *api.GroupService {
	return api.NewGroupService(room, db, b, logger.Named("api"))
}

func provideMediaService(pipeline *upload.Pipeline, room *groupchat.Room, db *store.DB) *api.MediaService {
	return api.NewMediaService(pipeline, room, db)
}

func provideAdmin(cfg *config.Profile, room *groupchat.Room, pipeline *upload.Pipeline, machine *status.Machine, m *metrics.Metrics, logger *zap.Logger) *admin.Server {
	return admin.New(admin.Options{
		Addr:    cfg.AdminAddr,
		Room:    room,
		Tracker: pipeline.Tracker(),
		Machine: machine,
		Metrics: m,
		Logger:  logger.Named("admin"),
	})
}

type lifecycleParams struct {
	fx.In

	Server     *Server
	Lock       *lock.Lock
	DB         *store.DB
	Room       *groupchat.Room
	Supervisor *gateway.Supervisor
	Engine     *intsync.Engine
	Admin      *admin.Server
	Logger     *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, p lifecycleParams) {
	logger := p.Logger
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start sync engine (socket events arrive through the handler sink).
			p.Engine.Start(context.Background())

			// Remember the last room; the supervisor joins it once connected.
			if last := p.Engine.LastGroup(); last != 0 {
				if err := p.Room.JoinGroupRoom(last); err != nil && !errors.Is(err, groupchat.ErrNotConnected) {
					logger.Warn("failed to restore last group", zap.Int64("group_id", last), zap.Error(err))
				} else {
					logger.Info("restoring last group", zap.Int64("group_id", last))
				}
			}

			if err := p.Admin.Start(); err != nil {
				return err
			}

			// Start gRPC server in background.
			go func() {
				if err := p.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			p.Supervisor.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Supervisor.Stop()
			p.Engine.Stop()
			if err := p.Admin.Stop(ctx); err != nil {
				logger.Warn("error stopping admin server", zap.Error(err))
			}
			p.Server.Stop(ctx)
			if err := p.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := p.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
