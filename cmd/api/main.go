package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"lipsync/internal/adapters/inference/falai"
	"lipsync/internal/adapters/mediahost"
	"lipsync/internal/adapters/records"
	"lipsync/internal/config"
	"lipsync/internal/historycache"
	"lipsync/internal/httpapi"
	"lipsync/internal/pkg/connector"
	"lipsync/internal/pkg/logger"
	"lipsync/internal/pkg/shutdown"
	"lipsync/internal/ports"
	"lipsync/internal/syncflow"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "lipsync-api",
		AddSource:   cfg.LogSource,
	})

	log.Info("starting lipsync API",
		"version", version,
		"config", cfg.String(),
	)

	if err := cfg.Validate(); err != nil {
		log.LogFatal("invalid configuration", err, "missing", config.Missing(err))
	}

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, cfg.ShutdownTimeout)

	// Record store: dialed lazily on first use
	dial, err := records.Dialer(cfg)
	if err != nil {
		log.LogFatal("failed to configure record store", err)
	}
	stores := connector.New(cfg.RecordStore, dial, log)
	shutdownMgr.Register("record-store", func(ctx context.Context) error {
		return stores.Close(ctx, func(ctx context.Context, s ports.RecordStore) error {
			return s.Close(ctx)
		})
	})

	// Optional Redis history cache
	var (
		rdb   *redis.Client
		cache historycache.Cache = historycache.Nop{}
	)
	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable, history cache will miss until it recovers")
		} else {
			log.Info("Redis connected")
		}
		cache = historycache.NewRedis(rdb, cfg.HistoryCacheTTL)
	}

	// Initialize media host
	log.Info("initializing media host")
	host, mediaHandler, err := mediahost.New(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to initialize media host", err)
	}
	log.Info("media host initialized", "provider", host.Provider())

	fal := falai.New(falai.Options{
		Key:          cfg.Fal.Key,
		Model:        cfg.Fal.Model,
		QueueURL:     cfg.Fal.QueueURL,
		WebhookURL:   cfg.Fal.WebhookURL,
		PollInterval: cfg.Fal.PollInterval,
	}, log)

	flow := syncflow.New(stores, host, fal, cache, log)

	// Create HTTP router
	router := httpapi.NewRouter(httpapi.Deps{
		Flow:                flow,
		Store:               stores,
		RDB:                 rdb,
		InferenceProvider:   fal.Provider() + ":" + fal.Model(),
		UploadcarePublicKey: cfg.UploadcarePublicKey,
		AllowedOrigins:      cfg.AllowedOrigins,
		Media:               mediaHandler,
		Log:                 log,
	})

	// Create HTTP server. Upload-and-sync holds the connection for the
	// whole inference, so the write timeout is long.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Register server shutdown
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", cfg.HTTPPort,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	// Wait for shutdown signal
	if err := shutdownMgr.Wait(); err != nil {
		log.WithError(err).Error("shutdown finished with errors")
	}
}
