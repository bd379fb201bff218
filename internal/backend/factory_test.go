package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"timeledger/internal/config"
	"timeledger/internal/log"
	"timeledger/internal/sheets"
	gsheet "timeledger/internal/sheets/google"
	"timeledger/internal/sheets/memory"
	"timeledger/internal/sheets/xlsx"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.DataBackend = "xlsx"
	app.GoogleSpreadsheetID = "master"
	app.XLSXDir = "/tmp/books"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != XLSXBackend || cfg.MasterSpreadsheetID != "master" || cfg.XLSXDir != "/tmp/books" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	app.DataBackend = "sqlite"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestCreateMemory(t *testing.T) {
	f := NewFactory(log.Discard())
	res, err := f.Create(context.Background(), Config{Type: MemoryBackend, MasterSpreadsheetID: "master"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := res.Workbooks.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", res.Workbooks)
	}
	ref := sheets.TableRef{SpreadsheetID: "master", Sheet: "Ledger"}
	if err := res.Workbooks.ReplaceTable(context.Background(), ref, [][]any{{"h"}}); err != nil {
		t.Fatalf("master spreadsheet should exist: %v", err)
	}
}

func TestCreateMemorySeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	seed := "spreadsheets:\n  master:\n    Sources:\n      - [Source Sheet Link, Owner Name]\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	f := NewFactory(log.Discard())
	res, err := f.Create(context.Background(), Config{Type: MemoryBackend, MasterSpreadsheetID: "master", MemorySeedFile: path})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	rows, err := res.Workbooks.ReadTable(context.Background(), sheets.TableRef{SpreadsheetID: "master", Sheet: "Sources"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("seeded rows = %v, %v", rows, err)
	}

	if _, err := f.Create(context.Background(), Config{Type: MemoryBackend, MemorySeedFile: path + ".missing"}); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

func TestCreateXLSX(t *testing.T) {
	dir := t.TempDir()
	f := NewFactory(log.Discard())
	res, err := f.Create(context.Background(), Config{Type: XLSXBackend, XLSXDir: dir, MasterSpreadsheetID: "master"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := res.Workbooks.(*xlsx.Store); !ok {
		t.Fatalf("expected xlsx store, got %T", res.Workbooks)
	}
	if _, err := os.Stat(filepath.Join(dir, "master.xlsx")); err != nil {
		t.Fatalf("master workbook not created: %v", err)
	}

	if _, err := f.Create(context.Background(), Config{Type: XLSXBackend}); err == nil {
		t.Fatal("expected error without directory")
	}
}

func TestCreateSheets(t *testing.T) {
	f := NewFactory(log.Discard())
	f.google = func(ctx context.Context, logger *log.Logger) (*gsheet.Client, error) {
		return gsheet.New(nil, logger), nil
	}
	res, err := f.Create(context.Background(), Config{Type: SheetsBackend})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(res.Caches) != 1 {
		t.Fatalf("sheets backend should expose its sheet ID cache, got %d caches", len(res.Caches))
	}

	boom := errors.New("no credentials")
	f.google = func(context.Context, *log.Logger) (*gsheet.Client, error) { return nil, boom }
	if _, err := f.Create(context.Background(), Config{Type: SheetsBackend}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped credential error, got %v", err)
	}
}

func TestTypes(t *testing.T) {
	for _, typ := range Types() {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if Type("sqlite").IsValid() {
		t.Error("sqlite is not a workbook backend")
	}
}
