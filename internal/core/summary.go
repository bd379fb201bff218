package core

import "github.com/shopspring/decimal"

// OwnerMonthAggregate is one owner/month cell of the reconciliation.
type OwnerMonthAggregate struct {
	Accrued    decimal.Decimal // "Deserves"
	Paid       decimal.Decimal // "Got"
	Difference decimal.Decimal
}

// WorkSummary is one month of an owner's individual report.
type WorkSummary struct {
	Month     MonthKey
	TotalCost decimal.Decimal
	Workdays  int
}
