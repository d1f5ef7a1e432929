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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/roomlist/internal/adapter/fsm"
	"github.com/neomorfeo/roomlist/internal/adapter/imagestore"
	"github.com/neomorfeo/roomlist/internal/adapter/otel"
	"github.com/neomorfeo/roomlist/internal/adapter/redis"
	"github.com/neomorfeo/roomlist/internal/adapter/river"
	"github.com/neomorfeo/roomlist/internal/adapter/sqlite"
	"github.com/neomorfeo/roomlist/internal/adapter/webhook"
	"github.com/neomorfeo/roomlist/internal/app"
	"github.com/neomorfeo/roomlist/internal/config"
	"github.com/neomorfeo/roomlist/internal/domain"
	"github.com/neomorfeo/roomlist/internal/logging"

	handler "github.com/neomorfeo/roomlist/internal/adapter/http"
)

const (
	serviceName    = "roomlist"
	serviceVersion = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

// run wires every adapter and serves HTTP until ctx is cancelled.
func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, closeLogs, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Color:  cfg.LogColor,
		Fluent: logging.FluentConfig{
			Host:      cfg.FluentHost,
			Port:      cfg.FluentPort,
			TagPrefix: cfg.FluentTag,
			Level:     cfg.FluentLevel,
		},
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closeLogs()
	slog.SetDefault(logger)

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	var deliverer river.Deliverer
	if cfg.WebhookURL != "" {
		deliverer = webhook.New(cfg.WebhookURL, webhook.WithSecret(cfg.WebhookSecret))
	}
	queue, err := river.Setup(ctx, db, deliverer, river.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("job queue: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("starting job queue: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			logger.Error("job queue shutdown", "error", err)
		}
	}()

	notifier, err := otel.NewTracingNotifier(river.NewNotifier(queue))
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	var repo domain.RoomRepository = otel.NewTracingRepository(store)
	opts := []app.Option{
		app.WithLogger(logger),
		app.WithProfiles(sqlite.NewProfileStore(db)),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, discovery cache will fall through", "addr", cfg.RedisAddr, "error", err)
		}
		cache := redis.NewCachingSearcher(repo, redis.NewRedisKV(client), cfg.CacheTTL, logger)
		repo = redis.NewInvalidatingRepository(repo, cache)
		opts = append(opts, app.WithPublicSearcher(cache))
	}
	if cfg.ImageStoreURL != "" {
		opts = append(opts, app.WithImageStore(imagestore.New(cfg.ImageStoreURL, cfg.ImageStoreToken)))
	}

	// --- Application ---
	svc := app.NewRoomService(repo, notifier, fsm.New(), opts...)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(handler.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Actor-ID", "X-Actor-Role", handler.TraceHeader},
		ExposedHeaders: []string{handler.TraceHeader},
		MaxAge:         300,
	}))

	api := humachi.New(router, huma.DefaultConfig(serviceName, serviceVersion))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("roomlist listening", "addr", srv.Addr, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
