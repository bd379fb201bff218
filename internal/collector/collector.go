// Package collector builds the consolidated ledger from every registered
// worker source.
package collector

import (
	"context"
	"fmt"
	"sort"

	"timeledger/internal/core"
	"timeledger/internal/ledger"
	"timeledger/internal/log"
	"timeledger/internal/registry"
	"timeledger/internal/sheets"
	"timeledger/internal/table"
)

const JobName = "collect"

// Store is what the collector needs from a workbook backend.
type Store interface {
	sheets.TableReader
	sheets.TableWriter
}

type Config struct {
	Registry    sheets.TableRef
	Ledger      sheets.TableRef
	SourceSheet string // sheet name inside every worker source
}

type Collector struct {
	store  Store
	cfg    Config
	logger *log.Logger
}

func New(store Store, cfg Config, logger *log.Logger) *Collector {
	return &Collector{store: store, cfg: cfg, logger: logger.WithComponent(log.ComponentCollector)}
}

func (c *Collector) Name() string { return JobName }

// Run rebuilds the ledger. A source that cannot be read is logged and left
// out; only registry and ledger failures fail the run.
func (c *Collector) Run(ctx context.Context) (core.RunStats, error) {
	var stats core.RunStats
	specs, err := registry.Load(ctx, c.store, c.cfg.Registry)
	if err != nil {
		return stats, err
	}

	var records []core.Record
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if spec.SourceLink == "" {
			continue
		}
		if spec.OwnerName == "" {
			c.logger.Warn("source without owner skipped", log.FieldSourceRow, spec.Row)
			stats.Skipped++
			continue
		}
		events, err := c.readSource(ctx, spec)
		if err != nil {
			c.logger.Warn("source skipped",
				log.FieldSourceRow, spec.Row,
				"source", registry.Describe(spec),
				log.FieldError, err.Error())
			stats.Skipped++
			continue
		}
		for _, ev := range events {
			records = append(records, core.Normalize(spec, ev))
		}
		c.logger.Debug("source collected", log.FieldSourceRow, spec.Row, log.FieldOwner, spec.OwnerName, log.FieldRows, len(events))
	}

	SortRecords(records)
	if err := c.store.ReplaceTable(ctx, c.cfg.Ledger, ledger.Encode(records)); err != nil {
		return stats, fmt.Errorf("write ledger: %w", err)
	}
	stats.Written = len(records)
	c.logger.Info("ledger written", log.NewFields().
		WithTable(c.cfg.Ledger.SpreadsheetID, c.cfg.Ledger.Sheet).
		WithStats(stats.Written, stats.Skipped).
		ToSlice()...)
	return stats, nil
}

func (c *Collector) readSource(ctx context.Context, spec core.SourceSpec) ([]core.RawEvent, error) {
	ref := sheets.TableRef{SpreadsheetID: sheets.SpreadsheetID(spec.SourceLink), Sheet: c.cfg.SourceSheet}
	values, err := c.store.ReadTable(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ParseEvents(values)
}

// SortRecords orders records by FromTimestamp; records without one go last
// and keep their relative order.
func SortRecords(records []core.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].FromTimestamp, records[j].FromTimestamp
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
}

const (
	colEventType = "event_type"
	colDate      = "date"
	colFrom      = "from"
	colTo        = "to"
	colGlobal    = "global_amount"
	colNotes     = "notes"
	colTravel    = "travel_cost"
)

var sourceSchema = table.Schema{
	Table: "source",
	Columns: []table.Column{
		table.Col(colEventType, "Event Type").Opt(),
		table.Col(colDate, "Date").Opt(),
		table.Col(colFrom, "Start Time", "From").Opt(),
		table.Col(colTo, "End Time", "To").Opt(),
		table.Col(colGlobal, "Global Amount").Opt(),
		table.Col(colNotes, "Notes").Opt(),
		table.Col(colTravel, "Travel Cost").Opt(),
	},
}

// ParseEvents decodes a worker's timesheet, header first. Columns are found
// by header text; a table with none of them is rejected. Unparsable dates
// count as absent.
func ParseEvents(values [][]any) ([]core.RawEvent, error) {
	if len(values) == 0 {
		return nil, nil
	}
	b, err := sourceSchema.BindAny(values[0])
	if err != nil {
		return nil, err
	}
	var out []core.RawEvent
	for i, row := range values[1:] {
		if table.IsBlank(row) {
			continue
		}
		ev := core.RawEvent{
			Row:       i + 2,
			EventType: b.Text(row, colEventType),
			FromTime:  b.Clock(row, colFrom),
			ToTime:    b.Clock(row, colTo),
			Notes:     b.Text(row, colNotes),
		}
		if d, ok := b.Date(row, colDate); ok {
			ev.Date = &d
		}
		ev.GlobalAmount, _ = b.Decimal(row, colGlobal)
		ev.TravelCost, _ = b.Decimal(row, colTravel)
		out = append(out, ev)
	}
	return out, nil
}
