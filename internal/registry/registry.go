// Package registry reads the worker registry: one row per worker source
// with its owner, hourly rate and report visibility.
package registry

import (
	"context"
	"fmt"
	"strings"

	"timeledger/internal/core"
	"timeledger/internal/sheets"
	"timeledger/internal/table"
)

const (
	colLink   = "link"
	colOwner  = "owner"
	colRate   = "rate"
	colHidden = "hidden"

	// rateColumn is where the hourly cost sits when its header is not recognised.
	rateColumn = 8
)

var sourcesSchema = table.Schema{
	Table: "registry",
	Columns: []table.Column{
		table.Col(colLink, "Source Sheet Link", "Source Link"),
		table.Col(colOwner, "Owner Name", "Full Name"),
		table.Col(colRate, "Hourly Cost", "Hourly Rate").At(rateColumn).Opt(),
		table.Col(colHidden, "Hide in Monthly Report").Opt(),
	},
}

var visibilitySchema = table.Schema{
	Table: "registry",
	Columns: []table.Column{
		table.Col(colOwner, "Owner Name", "Full Name"),
		table.Col(colHidden, "Hide in Monthly Report"),
	},
}

// Parse decodes registry values, header first. Blank rows are dropped.
func Parse(values [][]any) ([]core.SourceSpec, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("registry: %w: empty table", core.ErrMissingColumns)
	}
	b, err := sourcesSchema.Bind(values[0])
	if err != nil {
		return nil, err
	}
	var out []core.SourceSpec
	for i, row := range values[1:] {
		if table.IsBlank(row) {
			continue
		}
		spec := core.SourceSpec{
			Row:                 i + 2,
			SourceLink:          b.Text(row, colLink),
			OwnerName:           b.Text(row, colOwner),
			HideInMonthlyReport: b.Bool(row, colHidden),
		}
		spec.HourlyRate, spec.HasRate = b.Decimal(row, colRate)
		out = append(out, spec)
	}
	return out, nil
}

// Load reads and parses the registry sheet.
func Load(ctx context.Context, r sheets.TableReader, ref sheets.TableRef) ([]core.SourceSpec, error) {
	values, err := r.ReadTable(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(values)
}

// HiddenOwners returns the owners flagged "hide in monthly report". Both the
// owner and the flag column are required.
func HiddenOwners(values [][]any) (map[string]bool, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("registry: %w: empty table", core.ErrMissingColumns)
	}
	b, err := visibilitySchema.Bind(values[0])
	if err != nil {
		return nil, err
	}
	hidden := make(map[string]bool)
	for _, row := range values[1:] {
		owner := b.Text(row, colOwner)
		if owner != "" && b.Bool(row, colHidden) {
			hidden[owner] = true
		}
	}
	return hidden, nil
}

// LoadHiddenOwners reads the registry sheet and returns its hidden owners.
func LoadHiddenOwners(ctx context.Context, r sheets.TableReader, ref sheets.TableRef) (map[string]bool, error) {
	values, err := r.ReadTable(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return HiddenOwners(values)
}

// Describe renders a spec for log messages.
func Describe(s core.SourceSpec) string {
	return fmt.Sprintf("row %d (%s, %s)", s.Row, strings.TrimSpace(s.OwnerName), sheets.SpreadsheetID(s.SourceLink))
}
