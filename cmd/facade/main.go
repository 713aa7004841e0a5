package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joacominatel/facade/internal/application"
	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/api"
	"github.com/joacominatel/facade/internal/infrastructure/auth"
	"github.com/joacominatel/facade/internal/infrastructure/cache"
	"github.com/joacominatel/facade/internal/infrastructure/config"
	"github.com/joacominatel/facade/internal/infrastructure/database"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/infrastructure/metrics"
	"github.com/joacominatel/facade/internal/infrastructure/postgres"
	"github.com/joacominatel/facade/internal/infrastructure/redisstore"
	"github.com/joacominatel/facade/internal/infrastructure/sqlstore"
	"github.com/joacominatel/facade/internal/infrastructure/worker"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// startupTimeout bounds connecting and migrating before the server starts
const startupTimeout = 2 * time.Minute

func main() {
	logger := logging.New()
	logger.Info("facade starting up")

	if err := run(logger); err != nil {
		logger.Error("application failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *logging.Logger) error {
	// load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		return err
	}
	logger = logging.NewWithLevel(logging.ParseLevel(cfg.Log.Level))

	// initialize prometheus metrics, also the lifecycle observer of every facade
	appMetrics := metrics.New()

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		engine := unitofwork.NewLazyEngine(func(ctx context.Context) (unitofwork.Engine[*sqlstore.Session], error) {
			db, err := sqlstore.OpenSQLite(ctx, cfg.Database.SQLitePath)
			if err != nil {
				return nil, err
			}
			logger.Info("sqlite database opened", "path", cfg.Database.SQLitePath)
			return sqlstore.NewEngine(db), nil
		})
		defer engine.Close()

		uow := unitofwork.New[*sqlstore.Session](engine, logger).WithObserver(appMetrics)
		if err := sqlstore.Migrate(ctx, uow); err != nil {
			return err
		}
		return serve(cfg, logger, appMetrics, uow, sqlstore.NewNoteRepository(uow))

	default:
		engine := unitofwork.NewLazyEngine(func(ctx context.Context) (unitofwork.Engine[*postgres.Session], error) {
			pool, err := database.NewPool(ctx, cfg.Database, logger)
			if err != nil {
				return nil, err
			}
			return postgres.NewEngine(pool), nil
		})
		defer engine.Close()

		uow := unitofwork.New[*postgres.Session](engine, logger).WithObserver(appMetrics)
		if err := database.NewMigrator(uow, logger).Run(ctx); err != nil {
			return err
		}
		return serve(cfg, logger, appMetrics, uow, postgres.NewNoteRepository(uow))
	}
}

// serve wires everything above the storage engine and blocks until a
// shutdown signal arrives.
func serve[S api.PingableSession](
	cfg *config.Config,
	logger *logging.Logger,
	appMetrics *metrics.Metrics,
	uow *unitofwork.Facade[S],
	repo domain.NoteRepository,
) error {
	checks := map[string]api.ReadinessCheck{
		"database": api.UnitOfWorkCheck(uow),
	}

	// initialize redis (optional - disabled if REDIS_URL is empty)
	var noteCache application.NoteCache = application.NopNoteCache{}
	noteRepo := repo
	if cfg.Redis.Enabled() {
		client, err := redisstore.NewClient(cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn("redis connection failed, continuing without cache", "error", err.Error())
		} else {
			redisEngine := redisstore.NewEngine(client)
			defer redisEngine.Close()

			redisUOW := unitofwork.New[*redisstore.Session](redisEngine, logger).WithObserver(appMetrics)
			store := cache.NewStore(redisUOW, cache.DefaultTTL, logger)
			noteRepo = cache.NewNoteRepositoryWithCache(repo, store, logger)
			noteCache = store
			checks["cache"] = api.UnitOfWorkCheck(redisUOW)
			logger.Info("redis note cache enabled")
		}
	}

	// initialize use cases
	createNoteUseCase := application.NewCreateNoteUseCase(uow, noteRepo, noteCache, logger)
	getNoteUseCase := application.NewGetNoteUseCase(application.DissociatedNotes(uow, noteRepo))
	listNotesUseCase := application.NewListNotesUseCase(uow, noteRepo)
	deleteNoteUseCase := application.NewDeleteNoteUseCase(uow, noteRepo, noteCache, logger)
	purgeUseCase := application.NewPurgeExpiredNotesUseCase(uow, repo, noteCache, application.RealTime, logger)

	// start the retention worker, each run opens its own unit of work
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var retentionWorker *worker.RetentionWorker
	if cfg.Retention.MaxAge > 0 {
		retentionWorker = worker.NewRetentionWorker(purgeUseCase, worker.RetentionWorkerConfig{
			MaxAge:   cfg.Retention.MaxAge,
			Interval: cfg.Retention.Interval,
		}, logger).WithMetrics(appMetrics)
		retentionWorker.Start(workerCtx)
	} else {
		logger.Info("retention disabled")
	}

	// initialize http server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = ":" + cfg.Server.Port
	if cfg.Server.ShutdownTimeout > 0 {
		serverConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	serverConfig.RequestTimeout = cfg.Server.RequestTimeout
	serverConfig.BodyLimit = cfg.Server.BodyLimit

	server := api.NewServer(serverConfig, logger)
	api.RegisterRoutes(server.Echo(), api.RouterConfig{
		UnitOfWork:        uow,
		CreateNoteUseCase: createNoteUseCase,
		GetNoteUseCase:    getNoteUseCase,
		ListNotesUseCase:  listNotesUseCase,
		DeleteNoteUseCase: deleteNoteUseCase,
		JWTValidator:      auth.NewJWTValidator(cfg.Auth.JWTSecret),
		ReadinessChecks:   checks,
		Logger:            logger,
		Metrics:           appMetrics,
	})

	// start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("http server error", "error", err.Error())
		}
	}()

	// wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("facade shutting down")

	// stop background workers
	workerCancel()
	if retentionWorker != nil {
		retentionWorker.Stop()
	}

	// graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err.Error())
		return err
	}

	logger.Info("facade shutdown complete")
	return nil
}
