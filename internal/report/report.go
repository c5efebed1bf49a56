// Package report derives monthly and year-to-date summaries from the ledger.
//
// Periods are keyed on when a transaction was recorded, not on the date the
// caller entered for it. A backdated entry lands in the month it was typed in.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"committee/internal/core"
	"committee/internal/ledger"
)

type (
	// Source is the read side of the ledger the generator needs.
	Source interface {
		State() ledger.State
	}

	Generator struct {
		src Source
		now func() time.Time
		loc *time.Location
	}

	Option func(*Generator)

	// Report covers one calendar month. CurrentBalance, EmergencyReserve and
	// AvailableFunds describe the whole history at query time.
	Report struct {
		Month            int
		Year             int
		TotalIncome      decimal.Decimal
		TotalExpenses    decimal.Decimal
		Net              decimal.Decimal
		Transactions     []core.Transaction
		CurrentBalance   decimal.Decimal
		EmergencyReserve decimal.Decimal
		AvailableFunds   decimal.Decimal
	}

	MonthSummary struct {
		Month         int
		TotalIncome   decimal.Decimal
		TotalExpenses decimal.Decimal
		Net           decimal.Decimal
		Count         int
	}

	YearToDate struct {
		Year             int
		Months           []MonthSummary
		TotalIncome      decimal.Decimal
		TotalExpenses    decimal.Decimal
		Net              decimal.Decimal
		CurrentBalance   decimal.Decimal
		EmergencyReserve decimal.Decimal
		AvailableFunds   decimal.Decimal
	}

	CategoryTotal struct {
		Category string
		Income   decimal.Decimal
		Expense  decimal.Decimal
		Count    int
	}
)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLocation sets the zone in which recording timestamps are bucketed into months.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

func NewGenerator(src Source, opts ...Option) *Generator {
	g := &Generator{src: src, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// period resolves zero month or year to the current one.
func (g *Generator) period(month, year int) (int, int, error) {
	now := g.now().In(g.loc)
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return 0, 0, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	if year < 1 {
		return 0, 0, &core.ValidationError{Field: "year", Err: core.ErrInvalidMonth}
	}
	return month, year, nil
}

// MonthlyReport summarizes the transactions recorded in the given month.
// A zero month or year means the current one.
func (g *Generator) MonthlyReport(month, year int) (Report, error) {
	month, year, err := g.period(month, year)
	if err != nil {
		return Report{}, err
	}
	return g.monthly(g.src.State(), month, year), nil
}

func (g *Generator) monthly(st ledger.State, month, year int) Report {
	r := Report{
		Month:            month,
		Year:             year,
		Transactions:     []core.Transaction{},
		CurrentBalance:   st.Totals.Balance,
		EmergencyReserve: st.Totals.Reserve,
		AvailableFunds:   st.Totals.Available,
	}
	for _, txn := range st.Transactions {
		at := txn.RecordedAt.In(g.loc)
		if at.Year() != year || int(at.Month()) != month {
			continue
		}
		r.Transactions = append(r.Transactions, txn)
		r.TotalIncome = r.TotalIncome.Add(txn.Income)
		r.TotalExpenses = r.TotalExpenses.Add(txn.Expense)
	}
	r.Net = r.TotalIncome.Sub(r.TotalExpenses)
	return r
}

// YearToDateReport folds the monthly reports of year, January through the
// current month for the current year and through December otherwise.
func (g *Generator) YearToDateReport(year int) (YearToDate, error) {
	_, year, err := g.period(0, year)
	if err != nil {
		return YearToDate{}, err
	}

	now := g.now().In(g.loc)
	last := 12
	if year == now.Year() {
		last = int(now.Month())
	}

	st := g.src.State()
	ytd := YearToDate{
		Year:             year,
		Months:           make([]MonthSummary, 0, last),
		CurrentBalance:   st.Totals.Balance,
		EmergencyReserve: st.Totals.Reserve,
		AvailableFunds:   st.Totals.Available,
	}
	for m := 1; m <= last; m++ {
		r := g.monthly(st, m, year)
		ytd.Months = append(ytd.Months, MonthSummary{
			Month:         m,
			TotalIncome:   r.TotalIncome,
			TotalExpenses: r.TotalExpenses,
			Net:           r.Net,
			Count:         len(r.Transactions),
		})
		ytd.TotalIncome = ytd.TotalIncome.Add(r.TotalIncome)
		ytd.TotalExpenses = ytd.TotalExpenses.Add(r.TotalExpenses)
	}
	ytd.Net = ytd.TotalIncome.Sub(ytd.TotalExpenses)
	return ytd, nil
}

// CategoryBreakdown groups a report's transactions by category, in the order
// each category first appears.
func CategoryBreakdown(r Report) []CategoryTotal {
	idx := make(map[string]int)
	var out []CategoryTotal
	for _, txn := range r.Transactions {
		i, ok := idx[txn.Category]
		if !ok {
			i = len(out)
			idx[txn.Category] = i
			out = append(out, CategoryTotal{Category: txn.Category})
		}
		out[i].Income = out[i].Income.Add(txn.Income)
		out[i].Expense = out[i].Expense.Add(txn.Expense)
		out[i].Count++
	}
	return out
}
