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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	specpkg "github.com/ndktu/quizdash/api"
	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api"
	"github.com/ndktu/quizdash/internal/api/handler"
	"github.com/ndktu/quizdash/internal/api/validation"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/config"
	"github.com/ndktu/quizdash/internal/database"
	"github.com/ndktu/quizdash/internal/janitor"
	"github.com/ndktu/quizdash/internal/metrics"
	"github.com/ndktu/quizdash/internal/query"
	"github.com/ndktu/quizdash/internal/routes"
	"github.com/ndktu/quizdash/internal/session"
	"github.com/ndktu/quizdash/internal/view"
	"github.com/ndktu/quizdash/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.BackendTimeout))
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}
	pingers := map[string]handler.Pinger{"backend": client}

	repo, closeStore, err := openStore(ctx, cfg, pingers)
	if err != nil {
		return err
	}
	defer closeStore()

	sealer, err := session.NewSealer(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token sealer: %w", err)
	}
	manager := session.NewManager(repo, session.NewBackendAuthenticator(client), sealer,
		session.WithIdleTimeout(cfg.SessionIdle),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	workspaces := workspace.NewRegistry(client,
		workspace.WithIdleTimeout(cfg.WorkspaceIdle),
		workspace.WithCacheOptions(
			query.WithStaleTime(cfg.QueryStaleTime),
			query.WithTimeout(cfg.QueryTimeout),
			query.WithGCTime(cfg.CacheGCTime),
			query.WithRecorder(m),
		),
		workspace.WithViewOptions(view.WithDebounce(cfg.SearchDebounce)),
	)
	manager.OnTeardown(workspaces.Drop)

	table, err := routes.Default()
	if err != nil {
		return fmt.Errorf("loading route table: %w", err)
	}
	openapi, err := handler.NewOpenAPIHandler(specpkg.OpenAPISpec)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		Version:    cfg.Version,
		Sessions:   manager,
		Gate:       access.NewGate(table, nil),
		Workspaces: workspaces,
		Metrics:    m,
		Pingers:    pingers,
		Cookie: handler.CookieConfig{
			Name:   cfg.CookieName,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionIdle,
		},
		OpenAPI:   openapi,
		Validator: validation.New(),
	})

	sweeper := janitor.New(manager, workspaces, cfg.JanitorInterval, janitor.WithObserver(m))
	go sweeper.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting quizdash gateway",
			"port", cfg.Port,
			"version", cfg.Version,
			"backend", cfg.BackendURL,
			"sessionStore", cfg.SessionStore,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// openStore builds the session repository named by SESSION_STORE and adds
// its health check to pingers.
func openStore(ctx context.Context, cfg *config.Config, pingers map[string]handler.Pinger) (session.Repository, func(), error) {
	switch cfg.SessionStore {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg.DatabaseURL, database.WithMaxConns(cfg.DatabaseMaxConns))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to session database: %w", err)
		}
		repo := session.NewPostgresRepository(db.Pool())
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("preparing session table: %w", err)
		}
		pingers["sessions"] = db
		return repo, db.Close, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		pingers["sessions"] = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		return session.NewRedisRepository(rdb, cfg.RedisPrefix, cfg.SessionIdle), func() { _ = rdb.Close() }, nil

	default:
		slog.Warn("sessions are kept in memory and are lost on restart")
		return session.NewMemoryRepository(), func() {}, nil
	}
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(h))
}
