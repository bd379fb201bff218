package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"timeledger/internal/core"
)

// Text renders a cell as trimmed text.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format(core.DateLayout)
		}
		return t.Format(core.TimestampLayout)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Texts renders a whole row.
func Texts(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = Text(v)
	}
	return out
}

// Decimal reads a numeric cell.
func Decimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case decimal.Decimal:
		return t, true
	default:
		return core.ParseAmount(Text(v))
	}
}

// Bool reads a checkbox-like cell: true or the text "TRUE".
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		return strings.EqualFold(Text(v), "true")
	}
}

// Date reads a calendar date cell.
func Date(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return core.ParseDate(Text(v))
}

// Timestamp reads a date-time cell.
func Timestamp(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	return core.ParseTimestamp(Text(v))
}

// Clock reads a time-of-day cell as "15:04:05". Typed cells are accepted as
// time.Time or as a spreadsheet serial whose fraction is the time of day;
// text is returned trimmed for the normalizer to parse.
func Clock(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(core.ClockLayout)
	case float64:
		if t < 0 {
			return Text(v)
		}
		_, frac := math.Modf(t)
		secs := int64(math.Round(frac * 86400))
		return time.Unix(secs%86400, 0).UTC().Format(core.ClockLayout)
	default:
		return Text(v)
	}
}

// IsBlank reports whether every cell of row is empty.
func IsBlank(row []any) bool {
	for _, v := range row {
		if Text(v) != "" {
			return false
		}
	}
	return true
}

// Decimal reads the numeric cell for key.
func (b Binding) Decimal(row []any, key string) (decimal.Decimal, bool) {
	return Decimal(b.Value(row, key))
}

// Bool reads the boolean cell for key.
func (b Binding) Bool(row []any, key string) bool {
	return Bool(b.Value(row, key))
}

// Date reads the date cell for key.
func (b Binding) Date(row []any, key string) (time.Time, bool) {
	return Date(b.Value(row, key))
}

// Clock reads the time-of-day cell for key.
func (b Binding) Clock(row []any, key string) string {
	return Clock(b.Value(row, key))
}

// Timestamp reads the date-time cell for key.
func (b Binding) Timestamp(row []any, key string) (time.Time, bool) {
	return Timestamp(b.Value(row, key))
}

// Cell encoders produce the plain values every workbook adapter accepts:
// string, float64 and bool.

// Number encodes an amount.
func Number(d decimal.Decimal) any {
	return d.InexactFloat64()
}

// NullNumber encodes an optional amount; null becomes an empty cell.
func NullNumber(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}

// DateCell encodes an optional date as 2006-01-02.
func DateCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format(core.DateLayout)
}

// TimestampCell encodes an optional timestamp as 2006-01-02 15:04:05.
func TimestampCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format(core.TimestampLayout)
}
