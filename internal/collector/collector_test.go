package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"timeledger/internal/core"
	"timeledger/internal/ledger"
	"timeledger/internal/log"
	"timeledger/internal/sheets"
	"timeledger/internal/sheets/memory"
)

var testConfig = Config{
	Registry:    sheets.TableRef{SpreadsheetID: "master", Sheet: "Sources"},
	Ledger:      sheets.TableRef{SpreadsheetID: "master", Sheet: "Ledger"},
	SourceSheet: "Timesheet",
}

func source(id string) sheets.TableRef {
	return sheets.TableRef{SpreadsheetID: id, Sheet: "Timesheet"}
}

var timesheetHeader = []any{"Event Type", "Date", "Start Time", "End Time", "Global Amount", "Notes", "Travel Cost"}

func TestRun(t *testing.T) {
	store := memory.New()
	store.Put(testConfig.Registry, [][]any{
		{"Source Sheet Link", "Owner Name", "Hourly Cost"},
		{"https://docs.google.com/spreadsheets/d/ana/edit", "Ana", 20.0},
		{"ben", "Ben", ""},
		{"missing", "Ghost", 10.0},
		{"", "Nobody", 10.0},
	})
	store.Put(source("ana"), [][]any{
		timesheetHeader,
		{"Shift", "2024-03-05", "1:00:00 PM", "4:00:00 PM", "", "", ""},
		{"Travel", "", "", "", "", "bus", 12.0},
		{"Shift", "2024-03-04", "9:00:00", "10:30:00", "", "", 5.0},
	})
	store.Put(source("ben"), [][]any{
		timesheetHeader,
		{"Fixed", "2024-03-04", "8:00:00", "9:00:00", 50.0, "", ""},
		{"", "", "", "", "", "", ""},
	})
	store.AddSpreadsheet("missing")

	stats, err := New(store, testConfig, log.Discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Written != 4 || stats.Skipped != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	values, _ := store.ReadTable(context.Background(), testConfig.Ledger)
	entries, err := ledger.Decode(values, ledger.ColOwnerName, ledger.ColTotalCost)
	if err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	var order []string
	for _, e := range entries {
		order = append(order, e.OwnerName+":"+e.EventType)
	}
	want := []string{"Ben:Fixed", "Ana:Shift", "Ana:Shift", "Ana:Travel"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ledger order = %v, want %v", order, want)
		}
	}

	// 9:00-10:30 at 20/h plus 5 travel.
	if !entries[1].TotalCost.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("ana 4 March total = %s", entries[1].TotalCost)
	}
	// Global amount wins over hours; no rate needed.
	if !entries[0].TotalCost.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("ben total = %s", entries[0].TotalCost)
	}
	// 13:00-16:00 at 20/h.
	if !entries[2].TotalCost.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("ana 5 March total = %s", entries[2].TotalCost)
	}
	travel := entries[3]
	if travel.FromTimestamp != nil || travel.WorkCost.Valid || !travel.TotalCost.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("travel row = %+v", travel.Record)
	}
	if travel.SourceLink != "https://docs.google.com/spreadsheets/d/ana/edit" {
		t.Fatalf("source link = %q", travel.SourceLink)
	}
}

func TestRunReplacesLedger(t *testing.T) {
	store := memory.New()
	store.Put(testConfig.Registry, [][]any{{"Source Sheet Link", "Owner Name"}})
	store.Put(testConfig.Ledger, [][]any{ledger.Header(), {"old", "Old"}})

	stats, err := New(store, testConfig, log.Discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	values, _ := store.ReadTable(context.Background(), testConfig.Ledger)
	if stats.Written != 0 || len(values) != 1 {
		t.Fatalf("ledger should hold only the header, got %v", values)
	}
}

func TestRunRegistryErrors(t *testing.T) {
	store := memory.New()
	c := New(store, testConfig, log.Discard())
	if _, err := c.Run(context.Background()); !errors.Is(err, sheets.ErrSpreadsheetNotFound) {
		t.Fatalf("expected ErrSpreadsheetNotFound, got %v", err)
	}

	store.Put(testConfig.Registry, [][]any{{"Owner Name"}})
	if _, err := c.Run(context.Background()); !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	store := memory.New()
	store.Put(testConfig.Registry, [][]any{{"Source Sheet Link", "Owner Name"}, {"ana", "Ana"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(store, testConfig, log.Discard()).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := store.ReadTable(context.Background(), testConfig.Ledger); !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Fatal("canceled run must not write the ledger")
	}
}

func TestSortRecords(t *testing.T) {
	ts := func(h int) *time.Time {
		t := time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC)
		return &t
	}
	records := []core.Record{
		{Notes: "nil-1"},
		{Notes: "10", FromTimestamp: ts(10)},
		{Notes: "nil-2"},
		{Notes: "8", FromTimestamp: ts(8)},
		{Notes: "10b", FromTimestamp: ts(10)},
		{Notes: "nil-3"},
	}
	SortRecords(records)
	want := []string{"8", "10", "10b", "nil-1", "nil-2", "nil-3"}
	for i, r := range records {
		if r.Notes != want[i] {
			t.Fatalf("position %d = %q, want %q (full %v)", i, r.Notes, want[i], records)
		}
	}
}

func TestParseEvents(t *testing.T) {
	values := [][]any{
		{"From", "To", "Date", "Travel Cost"},
		{"9:00:00", "", "not a date", "3,50"},
	}
	events, err := ParseEvents(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := events[0]
	if ev.Row != 2 || ev.FromTime != "9:00:00" || ev.ToTime != "" || ev.Date != nil {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.TravelCost.Equal(decimal.RequireFromString("3.5")) || !ev.GlobalAmount.IsZero() {
		t.Fatalf("amounts = %s / %s", ev.TravelCost, ev.GlobalAmount)
	}

	if _, err := ParseEvents([][]any{{"Foo", "Bar"}}); !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if events, err := ParseEvents(nil); err != nil || events != nil {
		t.Fatalf("empty table = %v, %v", events, err)
	}
}
