// Package budget holds the category registry: budgeted and actual amounts per
// income and expense category, in insertion order.
package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"committee/internal/core"
)

const (
	Income   Section = "income"
	Expenses Section = "expenses"
)

// Fallback buckets that absorb postings against categories unknown to a section.
const (
	OtherIncome   = "Other Income"
	OtherExpenses = "Other Expenses"
)

type (
	Section string

	Entry struct {
		Budget decimal.Decimal
		Actual decimal.Decimal
	}

	// Line is a named entry, as listed to callers.
	Line struct {
		Name string
		Entry
	}

	// Registry is not safe for concurrent use; the ledger guards it.
	Registry struct {
		income   *orderedEntries
		expenses *orderedEntries
	}

	orderedEntries struct {
		names   []string
		entries map[string]*Entry
	}
)

var seedIncome = []string{"Fundraising Events", "Merchandise Sales", "Sponsorships", OtherIncome}

var seedExpenses = []string{
	"Event Expenses",
	"Merchandise Production",
	"Marketing/Promotion",
	"Yearbook",
	"Graduation",
	"School Trips",
	"Emergency Reserve",
	OtherExpenses,
}

// ParseSection accepts "income", "expense" or "expenses", case-insensitively.
func ParseSection(s string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense", "expenses":
		return Expenses, nil
	}
	return "", &core.ValidationError{Field: "section", Err: fmt.Errorf("unknown section %q", s)}
}

func (s Section) fallback() string {
	if s == Income {
		return OtherIncome
	}
	return OtherExpenses
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{income: newOrdered(), expenses: newOrdered()}
}

// NewDefaultRegistry returns a registry seeded with the committee's standard
// categories, all with zero budget and zero actual.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, name := range seedIncome {
		r.income.put(name, Entry{})
	}
	for _, name := range seedExpenses {
		r.expenses.put(name, Entry{})
	}
	return r
}

// FromLines builds a registry from ordered lines, e.g. when restoring a backup.
// A repeated name keeps its first position and takes the last values.
func FromLines(income, expenses []Line) *Registry {
	r := NewRegistry()
	for _, l := range income {
		r.income.put(l.Name, l.Entry)
	}
	for _, l := range expenses {
		r.expenses.put(l.Name, l.Entry)
	}
	return r
}

func (r *Registry) section(s Section) *orderedEntries {
	if s == Income {
		return r.income
	}
	return r.expenses
}

// Add appends a new category with the given budget and zero actual.
func (r *Registry) Add(s Section, name string, budget decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &core.ValidationError{Field: "name", Err: core.ErrEmptyName}
	}
	if budget.IsNegative() {
		return &core.ValidationError{Field: "budget", Err: core.ErrNegativeAmount}
	}
	sec := r.section(s)
	if _, ok := sec.entries[name]; ok {
		return &core.ValidationError{Field: "name", Err: fmt.Errorf("%w in %s: %s", core.ErrCategoryExists, s, name)}
	}
	sec.put(name, Entry{Budget: budget, Actual: decimal.Zero})
	return nil
}

// SetBudget changes the budgeted amount of an existing category.
func (r *Registry) SetBudget(s Section, name string, budget decimal.Decimal) error {
	if budget.IsNegative() {
		return &core.ValidationError{Field: "budget", Err: core.ErrNegativeAmount}
	}
	e, ok := r.section(s).entries[name]
	if !ok {
		return &core.NotFoundError{Kind: string(s) + " category", Name: name}
	}
	e.Budget = budget
	return nil
}

// Known reports whether name exists in either section.
func (r *Registry) Known(name string) bool {
	_, inc := r.income.entries[name]
	_, exp := r.expenses.entries[name]
	return inc || exp
}

// Has reports whether name exists in the given section.
func (r *Registry) Has(s Section, name string) bool {
	_, ok := r.section(s).entries[name]
	return ok
}

// Get returns the entry for name in the given section.
func (r *Registry) Get(s Section, name string) (Entry, bool) {
	e, ok := r.section(s).entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Credit adds amount to the actual of name, or to the section's fallback
// bucket when name is not part of the section. It returns the bucket credited.
func (r *Registry) Credit(s Section, name string, amount decimal.Decimal) string {
	sec := r.section(s)
	target := name
	if _, ok := sec.entries[target]; !ok {
		target = s.fallback()
		if _, ok := sec.entries[target]; !ok {
			sec.put(target, Entry{})
		}
	}
	e := sec.entries[target]
	e.Actual = e.Actual.Add(amount)
	return target
}

// Lines lists a section in insertion order.
func (r *Registry) Lines(s Section) []Line {
	sec := r.section(s)
	out := make([]Line, 0, len(sec.names))
	for _, name := range sec.names {
		out = append(out, Line{Name: name, Entry: *sec.entries[name]})
	}
	return out
}

// Totals sums budget and actual over a section.
func (r *Registry) Totals(s Section) Entry {
	var total Entry
	for _, e := range r.section(s).entries {
		total.Budget = total.Budget.Add(e.Budget)
		total.Actual = total.Actual.Add(e.Actual)
	}
	return total
}

func (r *Registry) Clone() *Registry {
	return FromLines(r.Lines(Income), r.Lines(Expenses))
}

// Remaining is the budget left after actuals; negative when overspent.
func (e Entry) Remaining() decimal.Decimal {
	return e.Budget.Sub(e.Actual)
}

// Utilization is actual as a percentage of budget. ok is false for a zero budget.
func (e Entry) Utilization() (pct decimal.Decimal, ok bool) {
	if !e.Budget.IsPositive() {
		return decimal.Zero, false
	}
	return e.Actual.Div(e.Budget).Mul(decimal.NewFromInt(100)), true
}

func newOrdered() *orderedEntries {
	return &orderedEntries{entries: make(map[string]*Entry)}
}

func (o *orderedEntries) put(name string, e Entry) {
	if existing, ok := o.entries[name]; ok {
		*existing = e
		return
	}
	o.names = append(o.names, name)
	o.entries[name] = &e
}
