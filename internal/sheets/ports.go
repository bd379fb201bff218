package sheets

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrSpreadsheetNotFound = errors.New("spreadsheet not found")
	ErrSheetNotFound       = errors.New("sheet not found")
)

// TableRef addresses one sheet (tab) of one spreadsheet.
type TableRef struct {
	SpreadsheetID string
	Sheet         string
}

func (r TableRef) String() string {
	return r.SpreadsheetID + "!" + r.Sheet
}

// Ports for outbound adapters.
type (
	TableReader interface {
		// ReadTable returns every row of the sheet, header included.
		ReadTable(ctx context.Context, ref TableRef) ([][]any, error)
	}

	TableWriter interface {
		// ReplaceTable swaps the sheet content for rows, creating the sheet
		// when it does not exist yet.
		ReplaceTable(ctx context.Context, ref TableRef, rows [][]any) error
	}

	// TableStyler applies presentation on top of written values.
	TableStyler interface {
		// BoldRows bolds the given 0-based rows and clears bold elsewhere.
		BoldRows(ctx context.Context, ref TableRef, rows []int) error
	}

	Workbooks interface {
		TableReader
		TableWriter
		TableStyler
	}
)

var spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID resolves a source link to a spreadsheet ID. Google Sheets
// URLs yield the ID segment; anything else is taken as an ID already.
func SpreadsheetID(link string) string {
	link = strings.TrimSpace(link)
	if m := spreadsheetURL.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return link
}
