package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"timeledger/internal/core"
	"timeledger/internal/ledger"
	"timeledger/internal/table"
)

// Row categories, in output order.
const (
	CategoryDeserves   = "Deserves"
	CategoryGot        = "Got"
	CategoryDifference = "Difference"
)

// Report is the owner x month reconciliation.
type Report struct {
	Months []core.MonthKey // chronological
	Owners []string        // lexicographic
	cells  map[string]map[core.MonthKey]core.OwnerMonthAggregate
}

// Build aggregates accrued cost from the ledger and paid amounts from
// payments. Owners and months come from the ledger; hidden owners are dropped
// before either is collected. Ledger rows without owner or date are ignored.
func Build(entries []ledger.Entry, payments []core.Payment, hidden map[string]bool) Report {
	r := Report{cells: make(map[string]map[core.MonthKey]core.OwnerMonthAggregate)}
	months := make(map[core.MonthKey]bool)

	for _, e := range entries {
		if e.OwnerName == "" || e.Date == nil || hidden[e.OwnerName] {
			continue
		}
		k := core.MonthOf(*e.Date)
		months[k] = true
		byMonth := r.owner(e.OwnerName)
		agg := byMonth[k]
		agg.Accrued = agg.Accrued.Add(e.TotalCost)
		byMonth[k] = agg
	}

	for _, p := range payments {
		byMonth, ok := r.cells[p.EmployeeName]
		if !ok || !months[p.MonthKey()] {
			continue
		}
		agg := byMonth[p.MonthKey()]
		agg.Paid = agg.Paid.Add(p.Amount)
		byMonth[p.MonthKey()] = agg
	}

	for owner, byMonth := range r.cells {
		r.Owners = append(r.Owners, owner)
		for k, agg := range byMonth {
			agg.Difference = agg.Accrued.Sub(agg.Paid)
			byMonth[k] = agg
		}
	}
	sort.Strings(r.Owners)
	for k := range months {
		r.Months = append(r.Months, k)
	}
	sort.Slice(r.Months, func(i, j int) bool { return r.Months[i].Less(r.Months[j]) })
	return r
}

func (r Report) owner(name string) map[core.MonthKey]core.OwnerMonthAggregate {
	m, ok := r.cells[name]
	if !ok {
		m = make(map[core.MonthKey]core.OwnerMonthAggregate)
		r.cells[name] = m
	}
	return m
}

// Cell returns the aggregate for owner and month; absent pairs are all zero.
func (r Report) Cell(owner string, month core.MonthKey) core.OwnerMonthAggregate {
	agg, ok := r.cells[owner][month]
	if !ok {
		return core.OwnerMonthAggregate{Accrued: decimal.Zero, Paid: decimal.Zero, Difference: decimal.Zero}
	}
	return agg
}

// Rows renders the sheet: header, then Deserves, Got and Difference per owner.
func (r Report) Rows() [][]any {
	header := []any{"Owner Name", "Category"}
	for _, k := range r.Months {
		header = append(header, k.String())
	}
	out := [][]any{header}
	for _, owner := range r.Owners {
		deserves := []any{owner, CategoryDeserves}
		got := []any{owner, CategoryGot}
		diff := []any{owner, CategoryDifference}
		for _, k := range r.Months {
			c := r.Cell(owner, k)
			deserves = append(deserves, table.Number(c.Accrued))
			got = append(got, table.Number(c.Paid))
			diff = append(diff, table.Number(c.Difference))
		}
		out = append(out, deserves, got, diff)
	}
	return out
}

// BoldRows returns the 0-based sheet rows holding Difference lines.
func (r Report) BoldRows() []int {
	out := make([]int, len(r.Owners))
	for i := range r.Owners {
		out[i] = 3 + 3*i
	}
	return out
}
