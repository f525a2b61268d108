package main

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

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/pathtracker/internal/bonus"
	"github.com/udisondev/pathtracker/internal/config"
	"github.com/udisondev/pathtracker/internal/db"
	"github.com/udisondev/pathtracker/internal/dice"
	"github.com/udisondev/pathtracker/internal/tracker"
)

const ConfigPath = "config/tracker.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("PATHTRACKER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadTracker(cfgPath)
	if err != nil {
		return fmt.Errorf("loading tracker config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("pathtracker starting",
		"log_level", cfg.LogLevel,
		"storage", cfg.Storage,
		"addr", cfg.Addr())

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	agg := bonus.NewAggregator(
		bonus.WithLogger(slog.Default()),
		bonus.WithDebug(cfg.Engine.Trace),
		bonus.WithCache(cfg.Engine.CacheSize),
	)

	seed := cfg.Engine.DiceSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	svc := tracker.NewService(store, agg, dice.NewRoller(seed))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      tracker.Handler(svc),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		slog.Info("http server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// openStore returns the configured character store and its cleanup func.
func openStore(ctx context.Context, cfg config.Tracker) (tracker.Store, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		slog.Warn("using in-memory storage, characters are lost on restart")
		return tracker.NewMemoryStore(), func() {}, nil
	case config.StoragePostgres, "":
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	return db.NewCharacterRepository(database.Pool()), database.Close, nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
