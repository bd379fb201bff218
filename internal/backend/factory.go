// Package backend builds the workbook store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"timeledger/internal/cache"
	"timeledger/internal/log"
	"timeledger/internal/sheets"
	gsheet "timeledger/internal/sheets/google"
	"timeledger/internal/sheets/memory"
	"timeledger/internal/sheets/xlsx"
)

// Result is an opened backend and the caches it wants swept.
type Result struct {
	Workbooks sheets.Workbooks
	Caches    []cache.Cleaner
}

type Factory struct {
	logger *log.Logger
	// google builds the Sheets client; replaced in tests.
	google func(ctx context.Context, logger *log.Logger) (*gsheet.Client, error)
}

func NewFactory(logger *log.Logger) *Factory {
	return &Factory{
		logger: logger.WithComponent(log.ComponentBackend),
		google: gsheet.NewFromEnv,
	}
}

// Create opens the backend named by cfg.Type.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SheetsBackend:
		return f.createSheets(ctx)
	case XLSXBackend:
		return f.createXLSX(cfg)
	case MemoryBackend:
		return f.createMemory(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *Factory) createSheets(ctx context.Context) (*Result, error) {
	cli, err := f.google(ctx, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend")
	return &Result{Workbooks: cli, Caches: []cache.Cleaner{cli.SheetIDs()}}, nil
}

func (f *Factory) createXLSX(cfg Config) (*Result, error) {
	store, err := xlsx.New(cfg.XLSXDir, f.logger)
	if err != nil {
		return nil, err
	}
	if cfg.MasterSpreadsheetID != "" {
		if err := store.Create(cfg.MasterSpreadsheetID); err != nil {
			return nil, fmt.Errorf("create master workbook: %w", err)
		}
	}
	f.logger.Info("Initialized xlsx backend", "dir", cfg.XLSXDir)
	return &Result{Workbooks: store}, nil
}

func (f *Factory) createMemory(cfg Config) (*Result, error) {
	store := memory.New()
	if cfg.MemorySeedFile != "" {
		seeded, err := memory.NewFromFile(cfg.MemorySeedFile)
		if err != nil {
			return nil, err
		}
		store = seeded
	}
	if cfg.MasterSpreadsheetID != "" {
		store.AddSpreadsheet(cfg.MasterSpreadsheetID)
	}
	f.logger.Info("Initialized memory backend", "seed_file", cfg.MemorySeedFile)
	return &Result{Workbooks: store}, nil
}
