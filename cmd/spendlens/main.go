package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	"spendlens/internal/amqp"
	"spendlens/internal/backend"
	"spendlens/internal/cache"
	"spendlens/internal/cli"
	"spendlens/internal/config"
	"spendlens/internal/core"
	apphttp "spendlens/internal/http"
	"spendlens/internal/identity"
	"spendlens/internal/log"
	"spendlens/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()
	factory := backend.NewFactory(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	stores, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize document store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	blobs, err := factory.CreateBlobStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize receipt store", log.FieldError, err, "backend", cfg.BlobBackend)
		os.Exit(1)
	}

	tokens, err := identity.NewJWTProvider(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("Failed to initialize identity provider", log.FieldError, err)
		os.Exit(1)
	}

	// Change events are optional; writes never wait on the broker.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	snapshots := cache.NewLRUCache[core.Snapshot](cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
	caches := cache.NewManager()
	caches.Register(snapshots)
	caches.StartCleanup(cfg.SnapshotCacheTTL)

	expenses := services.NewExpenseService(stores.Store, services.ExpenseOptions{
		Blobs:           blobs.Store,
		Publisher:       publisher,
		Snapshots:       snapshots,
		MaxReceiptBytes: cfg.MaxReceiptBytes,
		Logger:          logger,
	})
	categories := services.NewCategoryService(stores.Store, expenses, logger)
	analyticsSvc := services.NewAnalyticsService(expenses, categories)

	opts := apphttp.Options{
		Expenses:           expenses,
		Categories:         categories,
		Analytics:          analyticsSvc,
		Auth:               tokens,
		Ready:              stores.Store.Ping,
		ReceiptsPath:       receiptsPath(cfg.BlobBaseURL),
		MaxReceiptBytes:    cfg.MaxReceiptBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}
	if blobs.Local != nil {
		opts.Receipts = blobs.Local.Handler()
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if stores.Cleanup != nil {
			if err := stores.Cleanup(); err != nil {
				logger.Warn("Document store close error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting spendlens server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"blob_backend", cfg.BlobBackend,
		"events_enabled", publisher != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// receiptsPath is the path part of the receipt base URL, which may be
// absolute when receipts are served behind a proxy.
func receiptsPath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Path == "" {
		return "/receipts"
	}
	return u.Path
}
