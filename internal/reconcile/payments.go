package reconcile

import (
	"errors"
	"fmt"

	"timeledger/internal/core"
	"timeledger/internal/table"
)

var paymentsSchema = table.Schema{
	Table: "payments",
	Columns: []table.Column{
		table.Col("employee", "Employee Name"),
		table.Col("month", "Payment Month"),
		table.Col("year", "Payment Year"),
		table.Col("amount", "Amount"),
	},
}

// RowError is a payment row that could not be used.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

var errNoEmployee = errors.New("missing employee name")

// ParsePayments decodes the payments ledger, header first. Missing columns
// fail the whole table; bad rows are returned as rejected.
func ParsePayments(values [][]any) ([]core.Payment, []RowError, error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("payments: %w: empty table", core.ErrMissingColumns)
	}
	b, err := paymentsSchema.Bind(values[0])
	if err != nil {
		return nil, nil, err
	}
	var (
		out      []core.Payment
		rejected []RowError
	)
	for i, row := range values[1:] {
		if table.IsBlank(row) {
			continue
		}
		p, err := parsePayment(b, row)
		if err != nil {
			rejected = append(rejected, RowError{Row: i + 2, Err: err})
			continue
		}
		p.Row = i + 2
		out = append(out, p)
	}
	return out, rejected, nil
}

func parsePayment(b table.Binding, row []any) (core.Payment, error) {
	p := core.Payment{EmployeeName: b.Text(row, "employee")}
	if p.EmployeeName == "" {
		return p, errNoEmployee
	}
	var err error
	if p.Month, err = core.ParseMonth(b.Text(row, "month")); err != nil {
		return p, err
	}
	if p.Year, err = core.ParseYear(b.Text(row, "year")); err != nil {
		return p, err
	}
	amount, ok := b.Decimal(row, "amount")
	if !ok {
		return p, fmt.Errorf("%w: %q", core.ErrInvalidAmount, b.Text(row, "amount"))
	}
	p.Amount = amount
	return p, p.Validate()
}
