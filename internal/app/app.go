package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/linkhub/internal/cleanup"
	"github.com/sundayezeilo/linkhub/internal/config"
	"github.com/sundayezeilo/linkhub/internal/db"
	"github.com/sundayezeilo/linkhub/internal/link"
	"github.com/sundayezeilo/linkhub/internal/server"
)

// App holds the application dependencies and configuration.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBPool    *pgxpool.Pool
	Redis     *redis.Client
	Service   link.Service
	Scheduler *cleanup.Scheduler
	Server    *server.Server
	Handler   *link.Handler
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
	)

	dbPool, err := db.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	rdb, cache := setupCache(ctx, cfg, logger)

	// Setup application dependencies
	store := link.NewPgStore(dbPool, nil)
	svc := link.NewService(store, cache, &link.ServiceConfig{
		CodeLength:     cfg.Shortener.CodeLength,
		CodeAlphabet:   cfg.Shortener.CodeAlphabet,
		MaxRetries:     cfg.Shortener.MaxGenerationRetries,
		AllowAnonymous: cfg.Shortener.AllowAnonymous,
		Logger:         logger,
	})
	handler := link.NewHandler(link.HandlerConfig{
		Service: svc,
		Logger:  logger,
		BaseURL: cfg.Server.BaseURL,
	})

	scheduler := cleanup.NewScheduler(svc, cleanup.SchedulerConfig{
		Interval:        cfg.Cleanup.Interval,
		UnusedThreshold: time.Duration(cfg.Cleanup.UnusedThresholdDays) * 24 * time.Hour,
		Logger:          logger,
	})

	// Create server
	srv := server.New(cfg, logger, handler)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"cleanup_interval", cfg.Cleanup.Interval.String(),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DBPool:    dbPool,
		Redis:     rdb,
		Service:   svc,
		Scheduler: scheduler,
		Server:    srv,
		Handler:   handler,
	}, nil
}

// Start launches the cleanup scheduler and the server; it blocks until
// the server shuts down.
func (a *App) Start(ctx context.Context) error {
	a.Scheduler.Start(ctx)

	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.Scheduler != nil {
		a.Scheduler.Stop()
		a.Logger.Info("cleanup scheduler stopped")
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err.Error())
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return nil
}

// setupCache connects to Redis when configured. The cache is an
// optimization: a missing or unreachable Redis degrades to an in-process
// cache, never to a startup failure.
func setupCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, link.Cache) {
	ttl := cfg.Shortener.CacheTTL

	if cfg.Redis.Addr == "" {
		logger.Info("redis not configured, using in-process cache")
		return nil, link.NewMemCache(ttl)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-process cache",
			"addr", cfg.Redis.Addr,
			"error", err.Error(),
		)
		_ = rdb.Close()
		return nil, link.NewMemCache(ttl)
	}

	logger.Info("redis connection established", "addr", cfg.Redis.Addr)
	return rdb, link.NewRedisCache(rdb, ttl)
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
