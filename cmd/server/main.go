// Command server starts the answer-sheet re-evaluation HTTP server.
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

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/sheet-reeval/internal/adapter/ai"
	"github.com/fairyhunter13/sheet-reeval/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/sheet-reeval/internal/adapter/filestore/httpfile"
	httpserver "github.com/fairyhunter13/sheet-reeval/internal/adapter/httpserver"
	"github.com/fairyhunter13/sheet-reeval/internal/adapter/observability"
	"github.com/fairyhunter13/sheet-reeval/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/sheet-reeval/internal/adapter/repo/rediscache"
	"github.com/fairyhunter13/sheet-reeval/internal/app"
	"github.com/fairyhunter13/sheet-reeval/internal/config"
	"github.com/fairyhunter13/sheet-reeval/internal/domain"
	"github.com/fairyhunter13/sheet-reeval/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI, and re-evaluation instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Repositories
	sheetRepo := postgres.NewSheetRepo(pool)
	logRepo := postgres.NewReEvaluationLogRepo(pool)
	var levelRepo domain.AcademicLevelRepository = postgres.NewAcademicLevelRepo(pool)

	// Optional Redis cache in front of the academic-level config
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", slog.Any("error", err))
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		levelRepo = rediscache.NewAcademicLevelCache(levelRepo, rdb, cfg.AcademicLevelCacheTTL)
		slog.Info("academic level cache enabled", slog.Duration("ttl", cfg.AcademicLevelCacheTTL))
	}

	// Sheet file fetcher and vision model client
	fetcher := httpfile.New(cfg.FileFetchTimeout, cfg.FileMaxBytes)
	model := gemini.New(cfg)
	slog.Info("model client initialized", slog.Any("models", cfg.GeminiModels))

	// Usecase
	reEvalSvc := usecase.NewReEvaluateService(sheetRepo, levelRepo, logRepo, fetcher, model, ai.ExtractSection)

	// Readiness checks
	dbCheck := func(ctx context.Context) error { return pool.Ping(ctx) }
	var redisCheck func(ctx context.Context) error
	if rdb != nil {
		redisCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// HTTP server
	srv := httpserver.NewServer(cfg, reEvalSvc, logRepo, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
