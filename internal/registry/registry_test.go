package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"timeledger/internal/core"
	"timeledger/internal/sheets"
	"timeledger/internal/sheets/memory"
)

func TestParse(t *testing.T) {
	values := [][]any{
		{"Source Sheet Link", "Notes", "Full Name", "Hourly Cost", "Hide in Monthly Report"},
		{"https://docs.google.com/spreadsheets/d/ana/edit", "", "Ana", 20.0, false},
		{"", "", "", "", ""},
		{"ben-book", "", "Ben", "", "TRUE"},
	}
	specs, err := Parse(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	ana, ben := specs[0], specs[1]
	if ana.Row != 2 || ana.OwnerName != "Ana" || !ana.HasRate || !ana.HourlyRate.Equal(decimal.NewFromInt(20)) || ana.HideInMonthlyReport {
		t.Fatalf("unexpected ana %+v", ana)
	}
	if ben.Row != 4 || ben.HasRate || !ben.HideInMonthlyReport {
		t.Fatalf("unexpected ben %+v", ben)
	}
}

func TestParse_RateByPosition(t *testing.T) {
	header := []any{"Source Sheet Link", "x", "Owner Name", "c3", "c4", "c5", "c6", "c7", "Cost / h"}
	row := []any{"link", "", "Cleo", "", "", "", "", "", "15,5"}
	specs, err := Parse([][]any{header, row})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !specs[0].HasRate || !specs[0].HourlyRate.Equal(decimal.RequireFromString("15.5")) {
		t.Fatalf("rate = %s (%v)", specs[0].HourlyRate, specs[0].HasRate)
	}
}

func TestParse_MissingColumns(t *testing.T) {
	_, err := Parse([][]any{{"Owner Name"}})
	if !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestHiddenOwners(t *testing.T) {
	values := [][]any{
		{"Owner Name", "Hide in Monthly Report"},
		{"Ana", true},
		{"Ben", "false"},
		{"Cleo", "true"},
	}
	hidden, err := HiddenOwners(values)
	if err != nil {
		t.Fatalf("hidden: %v", err)
	}
	if !hidden["Ana"] || hidden["Ben"] || !hidden["Cleo"] {
		t.Fatalf("unexpected hidden set %v", hidden)
	}
	if _, err := HiddenOwners([][]any{{"Owner Name"}}); !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	store := memory.New()
	ref := sheets.TableRef{SpreadsheetID: "master", Sheet: "Sources"}
	if _, err := Load(context.Background(), store, ref); !errors.Is(err, sheets.ErrSpreadsheetNotFound) {
		t.Fatalf("expected ErrSpreadsheetNotFound, got %v", err)
	}
	store.Put(ref, [][]any{{"Source Sheet Link", "Owner Name"}, {"a", "Ana"}})
	specs, err := Load(context.Background(), store, ref)
	if err != nil || len(specs) != 1 {
		t.Fatalf("load = %v, %v", specs, err)
	}
	if got := Describe(specs[0]); got != "row 2 (Ana, a)" {
		t.Fatalf("Describe = %q", got)
	}
}
