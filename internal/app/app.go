package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sundayezeilo/tinylink/internal/config"
	"github.com/sundayezeilo/tinylink/internal/links"
	"github.com/sundayezeilo/tinylink/internal/server"
	"github.com/sundayezeilo/tinylink/internal/store/postgres"
	"github.com/sundayezeilo/tinylink/internal/store/sqlite"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DBPool  *pgxpool.Pool // set when DB_DRIVER=postgres
	SQLite  *sqlite.Store // set when DB_DRIVER=sqlite
	Clicks  *links.ClickRecorder
	Server  *server.Server
	Handler *links.Handler
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

	return NewWithConfig(ctx, cfg, setupLogger(cfg.App.LogLevel))
}

// NewWithConfig wires the application from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"driver", cfg.Database.Driver,
	)

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	svc := links.NewService(store, &links.ServiceConfig{
		MaxAllocAttempts: cfg.Links.MaxAllocAttempts,
		StoreTimeout:     cfg.Links.StoreTimeout,
	})
	a.Clicks = links.NewClickRecorder(links.ClickRecorderConfig{
		Tracker: svc,
		Logger:  logger,
		Timeout: cfg.Links.ClickTimeout,
	})
	a.Handler = links.NewHandler(links.HandlerConfig{
		Service: svc,
		Clicks:  a.Clicks,
		Logger:  logger,
	})
	a.Server = server.New(cfg, logger, a.Handler)

	logger.Info("application initialized", "addr", cfg.Server.Address())

	return a, nil
}

// openStore migrates and connects the configured link store.
func (a *App) openStore(ctx context.Context) (links.Store, error) {
	cfg := a.Config

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, sqlite.Config{
			DSN:       cfg.Database.SQLiteDSN,
			AuthToken: cfg.Database.LibSQLAuthToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.SQLite = store
		a.Logger.Info("sqlite database ready", "remote", sqlite.IsRemote(cfg.Database.SQLiteDSN))
		return store, nil

	default:
		if err := postgres.Migrate(cfg.Database.URL()); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err := connectDatabase(ctx, cfg, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DBPool = pool
		return postgres.NewFromPool(pool), nil
	}
}

// Start starts the application server and blocks until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight click increments, then closes the store.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.Clicks != nil {
		a.Clicks.Close()
		a.Logger.Info("pending clicks recorded")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			return fmt.Errorf("failed to close sqlite database: %w", err)
		}
		a.Logger.Info("database connection closed")
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "" || env == "development" || env == "test" {
		if err := godotenv.Load(); err != nil {
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

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}
