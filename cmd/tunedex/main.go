package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/config"
	dbRedis "github.com/kailas-cloud/tunedex/internal/db/redis"
	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/domain/search"
	"github.com/kailas-cloud/tunedex/internal/index"
	logpkg "github.com/kailas-cloud/tunedex/internal/logger"
	"github.com/kailas-cloud/tunedex/internal/metrics"
	"github.com/kailas-cloud/tunedex/internal/repository/embcache"
	"github.com/kailas-cloud/tunedex/internal/transport/catalog"
	"github.com/kailas-cloud/tunedex/internal/transport/httpapi"
	openaiTransport "github.com/kailas-cloud/tunedex/internal/transport/openai"
	"github.com/kailas-cloud/tunedex/internal/usecase/backfill"
	"github.com/kailas-cloud/tunedex/internal/usecase/discovery"
	embeddinguc "github.com/kailas-cloud/tunedex/internal/usecase/embedding"
	"github.com/kailas-cloud/tunedex/internal/usecase/expansion"
	healthuc "github.com/kailas-cloud/tunedex/internal/usecase/health"
	"github.com/kailas-cloud/tunedex/internal/usecase/ingest"
	"github.com/kailas-cloud/tunedex/internal/usecase/schedule"
	"github.com/kailas-cloud/tunedex/internal/version"
)

const embeddingProvider = "openai"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tunedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register()

	// Base providers. The base embedder is shared by both chains and by the
	// health check.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		RequestTimeout: time.Duration(cfg.LLM.RequestTimeout) * time.Second,
		Logger:         logger,
	})

	queryEmbedder := buildEmbedder(baseEmbedder, cfg, cfg.Embedding.QueryInstruction, store, logger)
	docEmbedder := buildEmbedder(baseEmbedder, cfg, cfg.Embedding.DocumentInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", embeddingProvider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheEnabled),
	)

	idx := index.New(store, index.Config{
		KeyPrefix: cfg.Storage.KeyPrefix,
		Dimension: cfg.Embedding.Dimensions,
		Ceiling:   cfg.Search.ResultCeiling,
	}, logger)
	if err := idx.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}

	features := catalog.NewAudioFeaturesClient(catalog.Config{
		BaseURL: cfg.Providers.AudioFeatures.BaseURL,
		APIKey:  cfg.Providers.AudioFeatures.APIKey,
		Timeout: time.Duration(cfg.Providers.AudioFeatures.TimeoutSec) * time.Second,
	})
	lyrics := catalog.NewLyricsClient(catalog.Config{
		BaseURL: cfg.Providers.Lyrics.BaseURL,
		APIKey:  cfg.Providers.Lyrics.APIKey,
		Timeout: time.Duration(cfg.Providers.Lyrics.TimeoutSec) * time.Second,
	})

	expander := expansion.New(generator, cfg.LLM.MaxExpansions, cfg.LLM.MaxOutputTokens, logger)
	discoverySvc := discovery.New(expander, queryEmbedder, idx, discovery.Config{
		ResultCeiling:  cfg.Search.ResultCeiling,
		RequestTimeout: time.Duration(cfg.Search.RequestTimeoutSec) * time.Second,
		Limits: search.Limits{
			DefaultPageSize: cfg.Search.DefaultPageSize,
			MaxPageSize:     cfg.Search.MaxPageSize,
			MaxQueryLength:  cfg.Search.MaxQueryLength,
		},
	}, logger)

	workflow := ingest.NewWorkflow(
		features, lyrics, generator, docEmbedder, idx, ingest.NewLogSink(logger),
		ingest.Config{
			Dimension:       cfg.Embedding.Dimensions,
			StepTimeout:     time.Duration(cfg.Ingest.StepTimeoutSec) * time.Second,
			StepRetries:     cfg.Ingest.StepRetries,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		},
		logger,
	)
	runner := ingest.NewRunner(workflow, ingest.RunnerConfig{
		Concurrency:       cfg.Ingest.Concurrency,
		ThrottlePerSec:    cfg.Ingest.ThrottlePerSec,
		ThrottleBurst:     cfg.Ingest.ThrottleBurst,
		IdempotencyWindow: time.Duration(cfg.Ingest.IdempotencyWindowHrs) * time.Hour,
	}, logger)

	scheduler := schedule.New(idx, runner, schedule.Config{
		Workers:      cfg.Schedule.Workers,
		SLAThreshold: time.Duration(cfg.Schedule.SLAThresholdSec) * time.Second,
	}, logger)

	backfillSvc := backfill.New(idx, runner, store, logger)
	healthSvc := healthuc.New(store, baseEmbedder, generator)

	server := httpapi.NewServer(discoverySvc, scheduler, runner, backfillSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during HTTP shutdown", zap.Error(err))
	}

	// Let in-flight ingestions drain before the store closes.
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error draining ingestion runner", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder,
	cfg config.Config,
	instruction string,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cfg.Embedding.CacheEnabled {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, embeddingProvider, cfg.Embedding.Model, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "INTERNAL_ERROR",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
