package main

import (
	"context"
	"os"
	"time"

	"spendlens/internal/amqp"
	"spendlens/internal/backend"
	"spendlens/internal/cli"
	"spendlens/internal/config"
	"spendlens/internal/googleapi"
	"spendlens/internal/log"
	gsheet "spendlens/internal/sheets/google"
	"spendlens/internal/worker"
)

const retryInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting spendlens-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	stores, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize document store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	exporter, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, googleapi.Source{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewExportWorker(stores.Store, exporter, logger)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	runErr := w.Run(runCtx, amqpClient, retryInterval)

	if err := amqpClient.Close(); err != nil {
		logger.Warn("AMQP close error", log.FieldError, err)
	}
	if stores.Cleanup != nil {
		if err := stores.Cleanup(); err != nil {
			logger.Warn("Document store close error", log.FieldError, err)
		}
	}
	if runErr != nil {
		logger.Error("Worker stopped", log.FieldError, runErr)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	st := w.Stats()
	logger.Info("Worker stopped gracefully",
		"exported", st.Exported, "failed", st.Failed, "pending", st.Pending)
}
