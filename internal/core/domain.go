package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultTime = "00:00:00"

	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
	ClockLayout     = "15:04:05"
)

type (
	// SourceSpec is one row of the worker registry.
	SourceSpec struct {
		Row                 int // 1-based sheet row
		SourceLink          string
		OwnerName           string
		HourlyRate          decimal.Decimal
		HasRate             bool
		HideInMonthlyReport bool
	}

	// RawEvent is one timesheet entry read from a source table.
	RawEvent struct {
		Row          int
		EventType    string
		Date         *time.Time
		FromTime     string
		ToTime       string
		GlobalAmount decimal.Decimal
		Notes        string
		TravelCost   decimal.Decimal
	}

	// Record is a normalized ledger row.
	Record struct {
		SourceLink    string
		OwnerName     string
		EventType     string
		Date          *time.Time
		FromTime      string
		ToTime        string
		GlobalAmount  decimal.Decimal
		Notes         string
		TravelCost    decimal.Decimal
		FromTimestamp *time.Time
		ToTimestamp   *time.Time
		HoursWorked   decimal.NullDecimal
		WorkCost      decimal.NullDecimal
		TotalCost     decimal.Decimal
	}

	// Payment is one row of the payments ledger.
	Payment struct {
		Row          int
		EmployeeName string
		Month        int
		Year         int
		Amount       decimal.Decimal
	}

	// RunStats is what a job reports back after a pass.
	RunStats struct {
		Written int // rows or tables written
		Skipped int // units skipped under the tolerant policy
	}

	RunStatus string

	// JobRun describes a single execution of a job.
	JobRun struct {
		ID         string
		Job        string
		StartedAt  time.Time
		FinishedAt time.Time
		Status     RunStatus
		Stats      RunStats
		Error      string
	}
)

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidYear    = errors.New("invalid year")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// MonthKey returns the month the payment refers to.
func (p Payment) MonthKey() MonthKey {
	return MonthKey{Year: p.Year, Month: p.Month}
}

func (p Payment) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, p.Month)
	}
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, p.Year)
	}
	return nil
}

// Duration returns how long the run took.
func (r JobRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
