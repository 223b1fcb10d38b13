// Package app wires the sync engine, dispatcher and their stores into one fx
// application for a profile.
package app

import (
	"context"

	"github.com/feedchat/feedchat/internal/bus"
	"github.com/feedchat/feedchat/internal/config"
	"github.com/feedchat/feedchat/internal/feed"
	"github.com/feedchat/feedchat/internal/imagecache"
	"github.com/feedchat/feedchat/internal/lock"
	"github.com/feedchat/feedchat/internal/logging"
	"github.com/feedchat/feedchat/internal/outbox"
	"github.com/feedchat/feedchat/internal/profile"
	"github.com/feedchat/feedchat/internal/schedule"
	"github.com/feedchat/feedchat/internal/status"
	"github.com/feedchat/feedchat/internal/store"
	intsync "github.com/feedchat/feedchat/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	Program string
	Config  *config.Config
	// Background starts the poll, refill and sweep loops.
	Background bool
	// Quiet keeps the logger off stderr, for clients that own the terminal.
	Quiet bool
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("feedchat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideCache,
			provideFeed,
			provideScheduler,
			provideEngine,
			provideDispatcher,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Quiet {
		return logging.NewFileOnly(profile.LogPath(p.Profile), p.Profile, p.Config.LogLevel)
	}
	return logging.New(profile.LogPath(p.Profile), p.Profile, p.Config.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(profile.LockPath(p.Profile), p.Program)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.String("profile", p.Profile))
	return l, nil
}

// provideStore takes the lock so the database is only opened by its holder.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideCache(p Params) (*imagecache.Cache, error) {
	return imagecache.New(profile.CacheDir(p.Profile))
}

func provideFeed(p Params, logger *zap.Logger) (feed.API, error) {
	return feed.NewClient(feed.Options{
		BaseURL:        p.Config.FeedURL,
		Channel:        p.Config.Channel,
		ConnectTimeout: p.Config.ConnectTimeout.Duration,
	}, logger)
}

func provideScheduler(logger *zap.Logger) *schedule.Scheduler {
	return schedule.New(logger)
}

func provideEngine(p Params, db *store.DB, api feed.API, cache *imagecache.Cache, b *bus.Bus, m *status.Machine, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, api, cache, b, m, logger.Named("sync"), intsync.Options{
		PageLimit:      p.Config.PageLimit,
		ThumbnailSize:  p.Config.ThumbnailSize,
		PollInterval:   p.Config.PollInterval.Duration,
		RefillInterval: p.Config.RefillInterval.Duration,
	})
}

func provideDispatcher(p Params, db *store.DB, api feed.API, engine *intsync.Engine, b *bus.Bus, logger *zap.Logger) *outbox.Dispatcher {
	return outbox.NewDispatcher(db, api, engine, b, logger.Named("outbox"), outbox.Options{
		TempDir:       profile.TempDir(p.Profile),
		RetrySchedule: p.Config.RetrySchedule,
	})
}

func registerLifecycle(lc fx.Lifecycle, p Params, lk *lock.Lock, db *store.DB, engine *intsync.Engine, dispatcher *outbox.Dispatcher, sched *schedule.Scheduler, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := engine.Load(ctx); err != nil {
				return err
			}
			if p.Background {
				engine.Start(sched)
				if err := dispatcher.Start(sched); err != nil {
					return err
				}
			}
			logger.Info("engine started", zap.Bool("background", p.Background), zap.Int("messages", engine.Len()))
			return nil
		},
		OnStop: func(_ context.Context) error {
			sched.Stop()
			_ = machine.Transition(status.Stopped)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("engine stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
