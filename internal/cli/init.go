// Package cli provides the initialization shared by cmd/ledger-worker and
// cmd/ledgerctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"timeledger/internal/collector"
	"timeledger/internal/config"
	"timeledger/internal/log"
	"timeledger/internal/reconcile"
	"timeledger/internal/report"
	"timeledger/internal/runner"
	"timeledger/internal/sheets"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds a text logger at level and makes it the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MasterTable addresses a sheet of the master spreadsheet.
func MasterTable(cfg *config.Config, sheet string) sheets.TableRef {
	return sheets.TableRef{SpreadsheetID: cfg.GoogleSpreadsheetID, Sheet: sheet}
}

// Jobs wires collect, reconcile and report to store.
func Jobs(cfg *config.Config, store sheets.Workbooks, logger *log.Logger) []runner.Job {
	ledger := MasterTable(cfg, cfg.LedgerSheet)
	registry := MasterTable(cfg, cfg.RegistrySheet)
	return []runner.Job{
		collector.New(store, collector.Config{
			Registry:    registry,
			Ledger:      ledger,
			SourceSheet: cfg.SourceSheet,
		}, logger),
		reconcile.New(store, reconcile.Config{
			Registry: registry,
			Ledger:   ledger,
			Payments: MasterTable(cfg, cfg.PaymentsSheet),
			Report:   MasterTable(cfg, cfg.MasterReportSheet),
		}, logger),
		report.New(store, report.Config{
			Ledger:      ledger,
			ReportSheet: cfg.WorkerReportSheet,
		}, logger),
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
