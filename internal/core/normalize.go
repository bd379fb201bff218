package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var timeOfDay = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2}):(\d{2})(?:\s*([AaPp][Mm]))?\s*$`)

// NormalizeTime combines the calendar day of date with the time-of-day in s.
// s must look like "H:MM:SS" with an optional AM/PM suffix; anything else
// returns date untouched.
func NormalizeTime(date time.Time, s string) time.Time {
	m := timeOfDay.FindStringSubmatch(s)
	if m == nil {
		return date
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])
	hour = To24Hour(hour, m[4])

	y, mo, d := date.Date()
	return time.Date(y, mo, d, hour, minute, second, 0, date.Location())
}

// To24Hour converts a 12-hour clock reading. An empty meridiem leaves the
// hour as is.
func To24Hour(hour int, meridiem string) int {
	switch strings.ToUpper(meridiem) {
	case "PM":
		if hour != 12 {
			return hour + 12
		}
	case "AM":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

// WorkCost is the single cost rule of the ledger: a positive global amount
// wins, otherwise hours are billed at the hourly rate.
func WorkCost(globalAmount, hours, rate decimal.Decimal) decimal.Decimal {
	if globalAmount.IsPositive() {
		return globalAmount
	}
	if hours.IsPositive() && !rate.IsZero() {
		return hours.Mul(rate)
	}
	return decimal.Zero
}

// Normalize derives a ledger record from a raw event of the given source.
// Events without a date keep null timestamps and only carry travel cost.
func Normalize(spec SourceSpec, ev RawEvent) Record {
	rec := Record{
		SourceLink:   spec.SourceLink,
		OwnerName:    spec.OwnerName,
		EventType:    ev.EventType,
		Date:         ev.Date,
		FromTime:     orDefaultTime(ev.FromTime),
		ToTime:       orDefaultTime(ev.ToTime),
		GlobalAmount: ev.GlobalAmount,
		Notes:        ev.Notes,
		TravelCost:   ev.TravelCost,
		TotalCost:    ev.TravelCost,
	}
	if ev.Date == nil {
		return rec
	}

	from := NormalizeTime(*ev.Date, rec.FromTime)
	to := NormalizeTime(*ev.Date, rec.ToTime)
	hours := decimal.NewFromFloat(to.Sub(from).Hours())

	rate := decimal.Zero
	if spec.HasRate {
		rate = spec.HourlyRate
	}
	work := WorkCost(ev.GlobalAmount, hours, rate)

	rec.FromTimestamp = &from
	rec.ToTimestamp = &to
	rec.HoursWorked = decimal.NewNullDecimal(hours)
	rec.WorkCost = decimal.NewNullDecimal(work)
	rec.TotalCost = work.Add(ev.TravelCost)
	return rec
}

func orDefaultTime(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultTime
	}
	return s
}
