package xlsx

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"timeledger/internal/table"
)

// cellDecoder turns raw cell text into the values the table layer reads:
// booleans as bool, date-formatted serials as time.Time, time-only serials as
// clock text, everything else as the stored text.
type cellDecoder struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	dated    map[int]bool // style index -> number format shows a date or time
}

func newCellDecoder(f *excelize.File, sheet string) *cellDecoder {
	d := &cellDecoder{f: f, sheet: sheet, dated: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *cellDecoder) decode(col, row int, raw string) any {
	if raw == "" {
		return ""
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := d.f.GetCellType(d.sheet, cell)
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	default:
		return raw
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < 0 || !d.isDated(cell) {
		return raw
	}
	if serial < 1 {
		return table.Clock(serial)
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return raw
	}
	y, m, day := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, day, hh, mm, ss, 0, time.UTC)
}

func (d *cellDecoder) isDated(cell string) bool {
	idx, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil {
		return false
	}
	if dated, ok := d.dated[idx]; ok {
		return dated
	}
	dated := false
	if style, err := d.f.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			dated = isDateFormat(*style.CustomNumFmt)
		} else {
			dated = isDateNumFmt(style.NumFmt)
		}
	}
	d.dated[idx] = dated
	return dated
}

// isDateNumFmt reports whether a built-in number format ID renders a date or
// a time of day.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom format code has date or time tokens
// outside quoted text, escapes and bracketed sections such as [Red] or [$€-407].
func isDateFormat(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			if c == ']' {
				inBracket = false
			}
			// Elapsed time sections like [h]:mm.
			if strings.ContainsRune("hHmMsS", rune(c)) && i > 0 && code[i-1] == '[' {
				return true
			}
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\':
			i++
		case strings.ContainsRune("yYdDhHsS", rune(c)):
			return true
		}
	}
	return false
}
