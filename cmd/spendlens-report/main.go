// Command spendlens-report prints one owner's filtered expenses and charts
// as JSON.
//
// The owner comes from the bearer token in SPENDLENS_TOKEN. The optional
// argument is a query string using the API's parameters, for example
//
//	spendlens-report 'category=Food&from=2025-03-01&sort=amount&year=2025&month=3'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"spendlens/internal/backend"
	"spendlens/internal/cli"
	"spendlens/internal/config"
	apphttp "spendlens/internal/http"
	"spendlens/internal/identity"
	"spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/session"
)

const loadTimeout = time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(log.ComponentApp, os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	if err := run(cfg, logger); err != nil {
		logger.Error("Report failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	params := url.Values{}
	if len(os.Args) > 1 {
		var err error
		if params, err = url.ParseQuery(os.Args[1]); err != nil {
			return fmt.Errorf("parse report query: %w", err)
		}
	}
	spec, order, err := apphttp.ParseListParams(params)
	if err != nil {
		return err
	}
	period, err := apphttp.ParsePeriodParams(params, time.Now())
	if err != nil {
		return err
	}

	tokens, err := identity.NewJWTProvider(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	owner, err := tokens.Authenticate(os.Getenv("SPENDLENS_TOKEN"))
	if err != nil {
		return fmt.Errorf("authenticate SPENDLENS_TOKEN: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	stores, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() {
		if stores.Cleanup != nil {
			if err := stores.Cleanup(); err != nil {
				logger.Warn("Document store close error", log.FieldError, err)
			}
		}
	}()

	expenses := services.NewExpenseService(stores.Store, services.ExpenseOptions{Logger: logger})
	s := session.New(expenses, logger)
	defer s.Close()

	watcher := identity.NewWatcher()
	watcher.SignIn(owner)
	stop := s.Track(watcher)
	defer stop()

	report, err := s.Report(ctx, spec, order, period.Year, period.Month)
	if err != nil {
		return err
	}
	logger.Info("Report ready",
		log.FieldOwnerID, owner,
		"expenses", len(report.Expenses),
		"issues", len(report.Issues))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
