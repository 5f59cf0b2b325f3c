package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/backend/memory"
	"github.com/MrSnakeDoc/marks/internal/backend/redisrepo"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/httpserver"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/redis"
	"github.com/MrSnakeDoc/marks/internal/scheduler"
	"github.com/MrSnakeDoc/marks/internal/utils"
	"github.com/MrSnakeDoc/marks/internal/version"
)

type App struct {
	cfg         *config.Server
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	gc          *scheduler.GarbageCollector
}

func New() *App {
	cfg := config.LoadServer()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	var (
		repo        backend.Repository
		redisClient *goredis.Client
	)
	switch cfg.Storage {
	case "redis":
		// fail fast if redis is unavailable
		var err error
		redisClient, err = redis.Connect(context.Background(), redis.OptionsFrom(cfg.Redis), loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		repo = redisrepo.New(redisClient)
		loggerClient.Info("redis repository initialized")
	default:
		repo = memory.New()
		loggerClient.Warn("using in-memory repository, data is lost on restart")
	}

	reg := metrics.New()
	svc := backend.NewService(repo, loggerClient.Named("backend"))

	gc := scheduler.NewGarbageCollector(
		svc,
		reg,
		loggerClient.Named("gc"),
		cfg.GCInterval,
		cfg.GCThreshold,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		Storage:      cfg.Storage,
		Service:      svc,
		Metrics:      reg,
		APIKey:       cfg.APIKey,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg.ListenPort, d),
		redisClient: redisClient,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting marks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info("build info",
		logger.String("version", version.String()),
		logger.String("storage", a.cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start garbage collector
	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval),
		logger.Duration("threshold", a.cfg.GCThreshold))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop garbage collector
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, a.logger, "redis")
	}

	a.logger.Info("✅ marks stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
