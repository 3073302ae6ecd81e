package core

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// CategoryShare is one row of the category breakdown.
type CategoryShare struct {
	Category Category
	Amount   Money
	Percent  float64
}

// Insights are the derived figures shown under the breakdown.
type Insights struct {
	AveragePerDay Money
	DaySpan       int
	TopCategory   Category
	TopAmount     Money
	Count         int
}

// Total sums all expense amounts. An empty ledger totals 0.
func Total(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Remaining is salary minus total. A negative result means over budget.
func Remaining(salary, total Money) Money {
	return salary.Sub(total)
}

// Breakdown groups expenses by category, largest first. Percentages are
// omitted (nil result) when the total is zero.
func Breakdown(expenses []Expense) []CategoryShare {
	total := Total(expenses)
	if total.Cents == 0 {
		return nil
	}

	sums := make(map[Category]int64)
	for _, e := range expenses {
		sums[e.Category] += e.Amount.Cents
	}

	shares := make([]CategoryShare, 0, len(sums))
	hundred := decimal.NewFromInt(100)
	for c, cents := range sums {
		pct := decimal.NewFromInt(cents).Div(decimal.NewFromInt(total.Cents)).Mul(hundred)
		shares = append(shares, CategoryShare{
			Category: c,
			Amount:   Money{Cents: cents},
			Percent:  pct.InexactFloat64(),
		})
	}
	slices.SortFunc(shares, func(a, b CategoryShare) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return shares
}

// ComputeInsights derives average spend per day over the inclusive span of
// expense dates (at least one day), the top category, and the row count.
func ComputeInsights(expenses []Expense) Insights {
	ins := Insights{Count: len(expenses)}
	if len(expenses) == 0 {
		return ins
	}

	first, last := expenses[0].Date, expenses[0].Date
	for _, e := range expenses[1:] {
		if e.Date.Before(first.Time) {
			first = e.Date
		}
		if e.Date.After(last.Time) {
			last = e.Date
		}
	}
	ins.DaySpan = max(DaysBetween(first, last), 1)

	total := Total(expenses)
	ins.AveragePerDay = MoneyFromDecimal(total.Decimal().Div(decimal.NewFromInt(int64(ins.DaySpan))))

	if shares := Breakdown(expenses); len(shares) > 0 {
		ins.TopCategory = shares[0].Category
		ins.TopAmount = shares[0].Amount
	}
	return ins
}

// SortByDateDesc returns a copy of expenses, newest first. Rows sharing a date keep insertion order.
func SortByDateDesc(expenses []Expense) []Expense {
	out := slices.Clone(expenses)
	slices.SortStableFunc(out, func(a, b Expense) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}
