// Package report writes each worker's monthly summary into the worker's own
// spreadsheet.
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"timeledger/internal/core"
	"timeledger/internal/ledger"
	"timeledger/internal/log"
	"timeledger/internal/sheets"
	"timeledger/internal/table"
)

const JobName = "report"

// Header of every per-worker summary sheet.
var Header = []any{"Month and Year", "Total Cost", "Number of Days"}

// OwnerSummary is one worker's report. Months keep the order in which they
// first appear in the ledger.
type OwnerSummary struct {
	Owner      string
	SourceLink string // destination: the first link seen for the owner
	Months     []core.WorkSummary
}

// Rows renders the summary sheet.
func (s OwnerSummary) Rows() [][]any {
	out := make([][]any, 0, len(s.Months)+1)
	out = append(out, Header)
	for _, m := range s.Months {
		out = append(out, []any{m.Month.String(), table.Number(m.TotalCost), m.Workdays})
	}
	return out
}

// Summarize groups ledger entries by owner, then by the month of their date.
// Entries without owner, source link or date are ignored.
func Summarize(entries []ledger.Entry) []OwnerSummary {
	type monthAcc struct {
		total decimal.Decimal
		days  map[string]struct{}
	}
	type ownerAcc struct {
		link   string
		order  []core.MonthKey
		months map[core.MonthKey]*monthAcc
	}

	var owners []string
	acc := make(map[string]*ownerAcc)
	for _, e := range entries {
		if e.OwnerName == "" || e.SourceLink == "" || e.Date == nil {
			continue
		}
		o, ok := acc[e.OwnerName]
		if !ok {
			o = &ownerAcc{link: e.SourceLink, months: make(map[core.MonthKey]*monthAcc)}
			acc[e.OwnerName] = o
			owners = append(owners, e.OwnerName)
		}
		k := core.MonthOf(*e.Date)
		m, ok := o.months[k]
		if !ok {
			m = &monthAcc{days: make(map[string]struct{})}
			o.months[k] = m
			o.order = append(o.order, k)
		}
		m.total = m.total.Add(e.TotalCost)
		m.days[e.Date.Format(core.DateLayout)] = struct{}{}
	}

	out := make([]OwnerSummary, 0, len(owners))
	for _, name := range owners {
		o := acc[name]
		s := OwnerSummary{Owner: name, SourceLink: o.link}
		for _, k := range o.order {
			m := o.months[k]
			s.Months = append(s.Months, core.WorkSummary{Month: k, TotalCost: m.total, Workdays: len(m.days)})
		}
		out = append(out, s)
	}
	return out
}

type Config struct {
	Ledger      sheets.TableRef
	ReportSheet string // sheet written in each worker's spreadsheet
}

type Reporter struct {
	store  sheets.Workbooks
	cfg    Config
	logger *log.Logger
}

func New(store sheets.Workbooks, cfg Config, logger *log.Logger) *Reporter {
	return &Reporter{store: store, cfg: cfg, logger: logger.WithComponent(log.ComponentReporter)}
}

func (r *Reporter) Name() string { return JobName }

// Run writes every owner's summary. A destination that cannot be written is
// logged and skipped.
func (r *Reporter) Run(ctx context.Context) (core.RunStats, error) {
	var stats core.RunStats
	values, err := r.store.ReadTable(ctx, r.cfg.Ledger)
	if err != nil {
		return stats, fmt.Errorf("read ledger: %w", err)
	}
	entries, err := ledger.Decode(values, ledger.ColSourceLink, ledger.ColOwnerName, ledger.ColDate, ledger.ColTotalCost)
	if err != nil {
		return stats, err
	}

	for _, s := range Summarize(entries) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		ref := sheets.TableRef{SpreadsheetID: sheets.SpreadsheetID(s.SourceLink), Sheet: r.cfg.ReportSheet}
		if err := r.store.ReplaceTable(ctx, ref, s.Rows()); err != nil {
			r.logger.Warn("owner report skipped",
				log.FieldOwner, s.Owner,
				log.FieldSpreadsheetID, ref.SpreadsheetID,
				log.FieldError, err.Error())
			stats.Skipped++
			continue
		}
		stats.Written++
		r.logger.Debug("owner report written", log.FieldOwner, s.Owner, "months", len(s.Months))
	}
	r.logger.Info("worker reports written", log.FieldWritten, stats.Written, log.FieldSkipped, stats.Skipped)
	return stats, nil
}
