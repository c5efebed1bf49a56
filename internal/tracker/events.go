// Package tracker keeps the committee's events and fundraising initiatives.
// Neither is reconciled with the ledger; figures are entered by hand.
package tracker

import (
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"committee/internal/core"
)

// EventDraft carries the fields supplied when an event is planned.
type EventDraft struct {
	Name              string
	Date              string
	Location          string
	Coordinator       string
	ProjectedIncome   decimal.Decimal
	ProjectedExpenses decimal.Decimal
}

// Events holds events in creation order. Names may repeat; lookups and
// updates always target the first event with the given name.
type Events struct {
	mu     sync.Mutex
	events []core.Event
}

func NewEvents() *Events {
	return &Events{}
}

func (d EventDraft) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &core.ValidationError{Field: "name", Err: core.ErrEmptyName}
	}
	if d.ProjectedIncome.IsNegative() {
		return &core.ValidationError{Field: "projected_income", Err: core.ErrNegativeAmount}
	}
	if d.ProjectedExpenses.IsNegative() {
		return &core.ValidationError{Field: "projected_expenses", Err: core.ErrNegativeAmount}
	}
	return nil
}

// Create adds a new event in Planning with zero actuals.
func (e *Events) Create(d EventDraft) (core.Event, error) {
	if err := d.validate(); err != nil {
		return core.Event{}, err
	}
	ev := core.Event{
		Name:              strings.TrimSpace(d.Name),
		Date:              d.Date,
		Location:          d.Location,
		Coordinator:       d.Coordinator,
		ProjectedIncome:   d.ProjectedIncome,
		ProjectedExpenses: d.ProjectedExpenses,
		IncomeSources:     []core.LineItem{},
		ExpenseItems:      []core.LineItem{},
		Status:            core.Planning,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return cloneEvent(ev), nil
}

func (e *Events) Find(name string) (core.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, err := e.index(name)
	if err != nil {
		return core.Event{}, err
	}
	return cloneEvent(e.events[i]), nil
}

func (e *Events) List() []core.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Event, len(e.events))
	for i, ev := range e.events {
		out[i] = cloneEvent(ev)
	}
	return out
}

// UpdateActuals overwrites the actual income and expenses of an event.
func (e *Events) UpdateActuals(name string, income, expenses decimal.Decimal) (core.Event, error) {
	if income.IsNegative() || expenses.IsNegative() {
		return core.Event{}, &core.ValidationError{Field: "actuals", Err: core.ErrNegativeAmount}
	}
	return e.update(name, func(ev *core.Event) {
		ev.ActualIncome = income
		ev.ActualExpenses = expenses
	})
}

// SetStatus moves an event to any of the three lifecycle states.
func (e *Events) SetStatus(name string, status core.Status) (core.Event, error) {
	st, err := core.ParseStatus(string(status))
	if err != nil {
		return core.Event{}, err
	}
	return e.update(name, func(ev *core.Event) { ev.Status = st })
}

func (e *Events) AddIncomeSource(name string, item core.LineItem) (core.Event, error) {
	if err := validateItem(item); err != nil {
		return core.Event{}, err
	}
	return e.update(name, func(ev *core.Event) { ev.IncomeSources = append(ev.IncomeSources, item) })
}

func (e *Events) AddExpenseItem(name string, item core.LineItem) (core.Event, error) {
	if err := validateItem(item); err != nil {
		return core.Event{}, err
	}
	return e.update(name, func(ev *core.Event) { ev.ExpenseItems = append(ev.ExpenseItems, item) })
}

// Replace swaps the whole collection, as on import.
func (e *Events) Replace(events []core.Event) {
	cp := make([]core.Event, len(events))
	for i, ev := range events {
		cp[i] = cloneEvent(ev)
	}
	e.mu.Lock()
	e.events = cp
	e.mu.Unlock()
}

func (e *Events) update(name string, fn func(*core.Event)) (core.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, err := e.index(name)
	if err != nil {
		return core.Event{}, err
	}
	fn(&e.events[i])
	return cloneEvent(e.events[i]), nil
}

func (e *Events) index(name string) (int, error) {
	for i := range e.events {
		if e.events[i].Name == name {
			return i, nil
		}
	}
	return -1, &core.NotFoundError{Kind: "event", Name: name}
}

func validateItem(item core.LineItem) error {
	if strings.TrimSpace(item.Description) == "" {
		return &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
	}
	if item.Amount.IsNegative() {
		return &core.ValidationError{Field: "amount", Err: core.ErrNegativeAmount}
	}
	return nil
}

func cloneEvent(ev core.Event) core.Event {
	ev.IncomeSources = slices.Clone(ev.IncomeSources)
	ev.ExpenseItems = slices.Clone(ev.ExpenseItems)
	return ev
}
