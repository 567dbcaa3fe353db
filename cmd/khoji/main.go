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

	"github.com/khojilab/khoji/internal/config"
	dbRedis "github.com/khojilab/khoji/internal/db/redis"
	"github.com/khojilab/khoji/internal/domain"
	logpkg "github.com/khojilab/khoji/internal/logger"
	"github.com/khojilab/khoji/internal/maintenance"
	"github.com/khojilab/khoji/internal/metrics"
	documentrepo "github.com/khojilab/khoji/internal/repository/document"
	querylogrepo "github.com/khojilab/khoji/internal/repository/querylog"
	suggestionrepo "github.com/khojilab/khoji/internal/repository/suggestion"
	chiTransport "github.com/khojilab/khoji/internal/transport/chi"
	analyticsuc "github.com/khojilab/khoji/internal/usecase/analytics"
	healthuc "github.com/khojilab/khoji/internal/usecase/health"
	indexuc "github.com/khojilab/khoji/internal/usecase/index"
	searchuc "github.com/khojilab/khoji/internal/usecase/search"
	suggestionuc "github.com/khojilab/khoji/internal/usecase/suggestion"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting khoji API server",
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Create repositories (domain-native, no adapters)
	docRepo := documentrepo.New(store, metrics.SearchFallbackScansTotal, logger).
		WithKeyPrefix(cfg.Storage.KeyPrefix)
	suggRepo := suggestionrepo.New(store, logger).
		WithKeyPrefix(cfg.Storage.KeyPrefix)
	qlogRepo := querylogrepo.New(store, logger).
		WithKeyPrefix(cfg.Storage.KeyPrefix)

	// The FT index is required before the first search; a failure here is
	// not fatal because the repository degrades to scan-based matching.
	if err := docRepo.EnsureIndex(ctx); err != nil {
		logger.Warn("Failed to ensure search index, falling back to scans", zap.Error(err))
	}

	// Create use case services
	searchSvc := searchuc.New(docRepo, suggRepo, qlogRepo, searchuc.Options{
		SnippetLength: cfg.Search.SnippetLength,
		FacetScanCap:  cfg.Search.FacetScanCap,
		URLTemplates:  urlTemplates(cfg.Search.URLTemplates),
	}, logger)
	suggSvc := suggestionuc.New(suggRepo, suggestionuc.Options{
		RetentionDays: cfg.Suggestions.RetentionDays,
		MinFrequency:  cfg.Suggestions.MinFrequency,
		MaxResults:    cfg.Suggestions.MaxResults,
	}, logger)
	analyticsSvc := analyticsuc.New(qlogRepo, analyticsuc.Options{
		TopQueries:    cfg.Analytics.TopQueries,
		RetentionDays: cfg.Analytics.RetentionDays,
	}, logger)
	indexSvc := indexuc.New(docRepo, logger)
	healthSvc := healthuc.New(store, store, docRepo.IndexName())

	// Background retention jobs
	if cfg.Maintenance.Enabled {
		scheduler := maintenance.New(
			suggSvc, analyticsSvc,
			time.Duration(cfg.Maintenance.SuggestionCleanupHours)*time.Hour,
			time.Duration(cfg.Maintenance.QueryLogPurgeHours)*time.Hour,
			logger,
		)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	// Create chi server
	server := chiTransport.NewServer(
		searchSvc, suggSvc, analyticsSvc, indexSvc, docRepo, healthSvc,
		cfg.Auth.APIKeys, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

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
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// urlTemplates narrows config strings to typed content-type keys.
func urlTemplates(raw map[string]string) map[domain.ContentType]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[domain.ContentType]string, len(raw))
	for ct, tpl := range raw {
		out[domain.ContentType(ct)] = tpl
	}
	return out
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
						"code":    "internal_error",
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

			// Set X-Request-ID in response header
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
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}
