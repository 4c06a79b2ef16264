// Package meetsyncservice wires and runs the meeting sync service.
package meetsyncservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/analysis"
	"github.com/meetsync/meetsync/server/internal/api"
	"github.com/meetsync/meetsync/server/internal/cache"
	"github.com/meetsync/meetsync/server/internal/config"
	"github.com/meetsync/meetsync/server/internal/health"
	"github.com/meetsync/meetsync/server/internal/logger"
	"github.com/meetsync/meetsync/server/internal/services"
	"github.com/meetsync/meetsync/server/internal/store/postgres"
	"github.com/meetsync/meetsync/server/internal/syncqueue"
	"github.com/meetsync/meetsync/server/internal/ws"
)

// Run starts the service and blocks until shutdown or a fatal error.
func Run() error {
	log := logger.New("meetsync-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("http_port", cfg.HTTPPort).
		Str("redis_addr", cfg.RedisAddr).
		Dur("cache_ttl", cfg.CacheTTL).
		Dur("sync_interval", cfg.SyncInterval).
		Msg("Meetsync service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable store
	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("postgres open")
		return err
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error().Err(err).Msg("postgres schema")
		return err
	}
	st := postgres.NewWithDB(db)

	// Redis-backed cache and sync queue
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	snapshots := cache.New(rdb, cfg.CacheTTL, log)
	queue := syncqueue.New(rdb, log)

	// Realtime hub
	hub := ws.NewHub(snapshots, log)
	go hub.Run(ctx)

	// Background workers
	worker := syncqueue.NewWorker(queue, st.Audits(), syncqueue.Config{
		BatchSize: cfg.SyncBatchSize,
		Interval:  cfg.SyncInterval,
	}, log)
	go func() { _ = worker.Run(ctx) }()

	summarizer := analysis.NewGeminiSummarizer(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey)
	runner := analysis.NewRunner(summarizer, st.Brainstorms(), hub, log)
	go func() { _ = runner.Run(ctx) }()

	// Services and router
	meetingSvc := services.NewMeetingService(st, snapshots, queue, hub, log)
	brainstormSvc := services.NewBrainstormService(st, hub, runner, log)
	svcHealth := startHealthCheckers(ctx, log, db.PingContext, rdb)
	router := api.NewRouter(meetingSvc, brainstormSvc, hub, svcHealth)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// startHealthCheckers polls the store and Redis and aggregates them
// into the /health flag.
func startHealthCheckers(ctx context.Context, log zerolog.Logger, dbPing func(context.Context) error, rdb *redis.Client) *health.Service {
	const interval = 30 * time.Second

	storeChecker := health.NewChecker("postgres", health.PingFunc(dbPing), log)
	go storeChecker.Start(ctx, interval)

	redisChecker := health.NewChecker("redis", health.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}), log)
	go redisChecker.Start(ctx, interval)

	return health.NewService(storeChecker, redisChecker)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
	}()
	return errCh
}
