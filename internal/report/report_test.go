package report

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

func rec(owner, link string, y int, m time.Month, d int, total int64) core.Record {
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return core.Record{OwnerName: owner, SourceLink: link, Date: &date, TotalCost: decimal.NewFromInt(total)}
}

func entries(records ...core.Record) []ledger.Entry {
	out := make([]ledger.Entry, len(records))
	for i, r := range records {
		out[i] = ledger.Entry{Row: i + 2, Record: r}
	}
	return out
}

func TestSummarize_AnaExample(t *testing.T) {
	got := Summarize(entries(
		rec("Ana", "ana", 2024, time.March, 5, 10),
		rec("Ana", "ana", 2024, time.March, 5, 15),
	))
	if len(got) != 1 {
		t.Fatalf("expected one owner, got %+v", got)
	}
	rows := got[0].Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][0] != "3/2024" || rows[1][1] != 25.0 || rows[1][2] != 1 {
		t.Fatalf("row = %v, want [3/2024 25 1]", rows[1])
	}
}

func TestSummarize_DistinctWorkdays(t *testing.T) {
	got := Summarize(entries(
		rec("Ana", "ana", 2024, time.March, 5, 1),
		rec("Ana", "ana", 2024, time.March, 6, 1),
		rec("Ana", "ana", 2024, time.March, 5, 1),
		rec("Ana", "ana", 2024, time.April, 1, 1),
	))
	months := got[0].Months
	if len(months) != 2 || months[0].Workdays != 2 || months[1].Workdays != 1 {
		t.Fatalf("months = %+v", months)
	}
	if !months[0].TotalCost.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("march total = %s", months[0].TotalCost)
	}
}

// Months follow the ledger's order rather than the calendar; the master
// report sorts its columns, this report does not.
func TestSummarize_KeepsInsertionOrder(t *testing.T) {
	got := Summarize(entries(
		rec("Ana", "ana", 2024, time.May, 1, 1),
		rec("Ana", "ana", 2024, time.January, 1, 1),
		rec("Ana", "ana", 2023, time.December, 1, 1),
	))
	var order []string
	for _, m := range got[0].Months {
		order = append(order, m.Month.String())
	}
	want := []string{"5/2024", "1/2024", "12/2023"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("month order = %v, want %v", order, want)
		}
	}
}

func TestSummarize_SkipsIncompleteEntries(t *testing.T) {
	noDate := core.Record{OwnerName: "Ana", SourceLink: "ana", TotalCost: decimal.NewFromInt(9)}
	got := Summarize(entries(
		noDate,
		rec("", "x", 2024, time.March, 1, 9),
		rec("Ben", "", 2024, time.March, 1, 9),
		rec("Ana", "first", 2024, time.March, 1, 1),
		rec("Ana", "second", 2024, time.March, 2, 1),
	))
	if len(got) != 1 || got[0].Owner != "Ana" || got[0].SourceLink != "first" {
		t.Fatalf("unexpected summaries %+v", got)
	}
	if !got[0].Months[0].TotalCost.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("total = %s", got[0].Months[0].TotalCost)
	}
}

func TestRun(t *testing.T) {
	ledgerRef := sheets.TableRef{SpreadsheetID: "master", Sheet: "Ledger"}
	store := memory.New()
	store.Put(ledgerRef, ledger.Encode([]core.Record{
		rec("Ana", "https://docs.google.com/spreadsheets/d/ana/edit", 2024, time.March, 5, 10),
		rec("Gone", "gone", 2024, time.March, 5, 10),
		rec("Ana", "https://docs.google.com/spreadsheets/d/ana/edit", 2024, time.March, 5, 15),
		rec("Ben", "ben", 2024, time.February, 1, 7),
	}))
	store.AddSpreadsheet("ana")
	store.Put(sheets.TableRef{SpreadsheetID: "ben", Sheet: "Monthly Summary"}, [][]any{{"old"}, {"old"}, {"old"}})

	cfg := Config{Ledger: ledgerRef, ReportSheet: "Monthly Summary"}
	stats, err := New(store, cfg, log.Discard()).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Written != 2 || stats.Skipped != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	ana, err := store.ReadTable(context.Background(), sheets.TableRef{SpreadsheetID: "ana", Sheet: "Monthly Summary"})
	if err != nil {
		t.Fatalf("read ana: %v", err)
	}
	if len(ana) != 2 || ana[1][0] != "3/2024" || ana[1][1] != 25.0 || ana[1][2] != 1 {
		t.Fatalf("ana report = %v", ana)
	}
	ben, _ := store.ReadTable(context.Background(), sheets.TableRef{SpreadsheetID: "ben", Sheet: "Monthly Summary"})
	if len(ben) != 2 || ben[0][0] != "Month and Year" {
		t.Fatalf("ben report should be replaced, got %v", ben)
	}
}

func TestRun_LedgerErrors(t *testing.T) {
	ledgerRef := sheets.TableRef{SpreadsheetID: "master", Sheet: "Ledger"}
	store := memory.New()
	r := New(store, Config{Ledger: ledgerRef, ReportSheet: "Monthly Summary"}, log.Discard())
	if _, err := r.Run(context.Background()); !errors.Is(err, sheets.ErrSpreadsheetNotFound) {
		t.Fatalf("expected ErrSpreadsheetNotFound, got %v", err)
	}
	store.Put(ledgerRef, [][]any{{"Owner Name"}})
	if _, err := r.Run(context.Background()); !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}
