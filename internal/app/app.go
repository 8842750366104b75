package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-media-share/internal/config"
	"go-media-share/internal/database"
	"go-media-share/internal/event"
	"go-media-share/internal/handler"
	"go-media-share/internal/jobs"
	"go-media-share/internal/logger"
	"go-media-share/internal/middleware"
	"go-media-share/internal/repository"
	"go-media-share/internal/router"
	"go-media-share/internal/security"
	"go-media-share/internal/service"
	"go-media-share/internal/storage"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	a := &App{}
	fail := func(err error) (*App, error) {
		a.cleanup()
		return nil, err
	}

	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return fail(fmt.Errorf("failed to migrate database: %w", err))
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	mediaRepo := repository.NewMediaRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	slog.Info("database ready")

	var revocations service.RevocationStore = tokenRepo
	if cfg.RedisURL != "" {
		redisClient, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = redisClient.Close() })
		revocations = repository.NewRedisRevocationStore(redisClient)
		slog.Info("refresh token denylist backed by redis")
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage: %w", err))
	}

	tokens, err := security.NewTokenManager(security.TokenConfig{
		AccessSecret:      cfg.JWTAccessSecret,
		RefreshSecret:     cfg.JWTRefreshSecret,
		AccessTTL:         cfg.JWTAccessTTL,
		RefreshTTL:        cfg.JWTRefreshTTL,
		RefreshDisplayTTL: cfg.RefreshDisplayTTL,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to initialize token manager: %w", err))
	}

	bus := event.NewBus()
	hasher := security.NewPasswordHasher(security.DefaultBcryptCost)

	authService := service.NewAuthService(userRepo, hasher, tokens, revocations, bus)
	userService := service.NewUserService(userRepo, hasher, bus)
	mediaService := service.NewMediaService(mediaRepo, userRepo, blobs, service.MediaConfig{
		AllowedMIMETypes: cfg.AllowedMIMETypes,
		MaxUploadSize:    cfg.MaxUploadSize,
		ThumbnailRoot:    cfg.ThumbnailRoot,
	}, bus)
	auditService := service.NewAuditService(auditRepo)
	sweeper := service.NewOrphanSweeper(blobs, mediaRepo, cfg.OrphanGracePeriod, bus)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	a.cleanupFuncs = append(a.cleanupFuncs, backgroundCancel)
	go auditService.Run(backgroundCtx, bus)

	scheduler := jobs.NewScheduler()
	if err := scheduler.Add("orphan-sweep", cfg.OrphanSweepSchedule, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx)
		return err
	}); err != nil {
		return fail(err)
	}
	if revocations == tokenRepo {
		if err := scheduler.Add("revoked-token-purge", "@every 1h", func(ctx context.Context) error {
			purged, err := tokenRepo.CleanExpired(ctx)
			if purged > 0 {
				slog.Info("expired revoked tokens purged", "count", purged)
			}
			return err
		}); err != nil {
			return fail(err)
		}
	}
	scheduler.Start()
	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		<-scheduler.Stop().Done()
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(userService),
		Media:  handler.NewMediaHandler(mediaService),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(db),
	}, metrics, registry)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMinio:
		store, err := storage.NewObjectStore(storage.MinioConfig(cfg.Minio))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		slog.Info("blob storage ready", "driver", cfg.StorageDriver, "bucket", cfg.Minio.Bucket)
		return store, nil
	default:
		store, err := storage.NewDiskStore(cfg.UploadRoot)
		if err != nil {
			return nil, err
		}
		slog.Info("blob storage ready", "driver", cfg.StorageDriver, "root", store.RootAbs())
		return store, nil
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup releases resources in reverse acquisition order.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
