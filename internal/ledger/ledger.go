// Package ledger encodes and decodes the consolidated ledger table.
//
// The column order is fixed; readers match by header text and fall back to
// the fixed position.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"timeledger/internal/core"
	"timeledger/internal/table"
)

// Column keys.
const (
	ColSourceLink    = "source_link"
	ColOwnerName     = "owner_name"
	ColEventType     = "event_type"
	ColDate          = "date"
	ColStartTime     = "start_time"
	ColEndTime       = "end_time"
	ColGlobalAmount  = "global_amount"
	ColNotes         = "notes"
	ColTravelCost    = "travel_cost"
	ColFromTimestamp = "from_timestamp"
	ColToTimestamp   = "to_timestamp"
	ColHours         = "hours"
	ColWorkCost      = "work_cost"
	ColTotalCost     = "total_cost"
)

var columns = []struct{ key, header string }{
	{ColSourceLink, "Source Sheet Link"},
	{ColOwnerName, "Owner Name"},
	{ColEventType, "Event Type"},
	{ColDate, "Date"},
	{ColStartTime, "Start Time"},
	{ColEndTime, "End Time"},
	{ColGlobalAmount, "Global Amount"},
	{ColNotes, "Notes"},
	{ColTravelCost, "Travel Cost"},
	{ColFromTimestamp, "From Timestamp"},
	{ColToTimestamp, "To Timestamp"},
	{ColHours, "Time Difference (Hours)"},
	{ColWorkCost, "Work Cost"},
	{ColTotalCost, "Total Cost"},
}

// Header is the ledger's header row.
func Header() []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// Entry is a decoded ledger row. Row is the 1-based sheet row.
type Entry struct {
	Row int
	core.Record
}

// Encode renders the header and one row per record.
func Encode(records []core.Record) [][]any {
	out := make([][]any, 0, len(records)+1)
	out = append(out, Header())
	for _, r := range records {
		out = append(out, []any{
			r.SourceLink,
			r.OwnerName,
			r.EventType,
			table.DateCell(r.Date),
			r.FromTime,
			r.ToTime,
			table.Number(r.GlobalAmount),
			r.Notes,
			table.Number(r.TravelCost),
			table.TimestampCell(r.FromTimestamp),
			table.TimestampCell(r.ToTimestamp),
			table.NullNumber(r.HoursWorked),
			table.NullNumber(r.WorkCost),
			table.Number(r.TotalCost),
		})
	}
	return out
}

// Schema returns the ledger schema with the given column keys required.
func Schema(required ...string) table.Schema {
	req := make(map[string]bool, len(required))
	for _, k := range required {
		req[k] = true
	}
	s := table.Schema{Table: "ledger"}
	for i, c := range columns {
		col := table.Col(c.key, c.header).At(i)
		if !req[c.key] {
			col = col.Opt()
		}
		s.Columns = append(s.Columns, col)
	}
	return s
}

// Decode reads ledger values, header first. Blank rows are dropped. A
// missing required column fails with core.ErrMissingColumns.
func Decode(values [][]any, required ...string) ([]Entry, error) {
	if len(values) == 0 {
		if len(required) > 0 {
			return nil, fmt.Errorf("ledger: %w: empty table", core.ErrMissingColumns)
		}
		return nil, nil
	}
	b, err := Schema(required...).Bind(values[0])
	if err != nil {
		return nil, err
	}
	var out []Entry
	for i, row := range values[1:] {
		if table.IsBlank(row) {
			continue
		}
		out = append(out, Entry{Row: i + 2, Record: decodeRow(b, row)})
	}
	return out, nil
}

func decodeRow(b table.Binding, row []any) core.Record {
	r := core.Record{
		SourceLink: b.Text(row, ColSourceLink),
		OwnerName:  b.Text(row, ColOwnerName),
		EventType:  b.Text(row, ColEventType),
		FromTime:   b.Text(row, ColStartTime),
		ToTime:     b.Text(row, ColEndTime),
		Notes:      b.Text(row, ColNotes),
	}
	if d, ok := b.Date(row, ColDate); ok {
		r.Date = &d
	}
	if ts, ok := b.Timestamp(row, ColFromTimestamp); ok {
		r.FromTimestamp = &ts
	}
	if ts, ok := b.Timestamp(row, ColToTimestamp); ok {
		r.ToTimestamp = &ts
	}
	r.GlobalAmount, _ = b.Decimal(row, ColGlobalAmount)
	r.TravelCost, _ = b.Decimal(row, ColTravelCost)
	r.TotalCost, _ = b.Decimal(row, ColTotalCost)
	r.HoursWorked = nullDecimal(b, row, ColHours)
	r.WorkCost = nullDecimal(b, row, ColWorkCost)
	return r
}

func nullDecimal(b table.Binding, row []any, key string) decimal.NullDecimal {
	d, ok := b.Decimal(row, key)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}
