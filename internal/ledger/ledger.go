// Package ledger records committee transactions and keeps the category
// registry reconciled with them.
package ledger

import (
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"committee/internal/budget"
	"committee/internal/core"
)

type (
	Ledger struct {
		mu       sync.RWMutex
		registry *budget.Registry
		txns     []core.Transaction
		now      func() time.Time
	}

	Option func(*Ledger)

	Totals struct {
		Income    decimal.Decimal
		Expenses  decimal.Decimal
		Balance   decimal.Decimal
		Reserve   decimal.Decimal
		Available decimal.Decimal
	}

	// State is a consistent copy of the log and the totals derived from it.
	State struct {
		Transactions []core.Transaction
		Totals       Totals
	}

	// SectionView is a budget section and its totals read together.
	SectionView struct {
		Lines  []budget.Line
		Totals budget.Entry
	}

	// Overview is the log and both budget sections taken under one lock, so
	// the registry actuals always agree with the transactions.
	Overview struct {
		State
		Income   SectionView
		Expenses SectionView
	}
)

// WithClock sets the clock used to stamp RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger over reg. A nil registry starts from the default seed.
func New(reg *budget.Registry, opts ...Option) *Ledger {
	if reg == nil {
		reg = budget.NewDefaultRegistry()
	}
	l := &Ledger{registry: reg, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record validates and authorizes draft, then appends it and credits the
// registry. On error nothing is changed.
func (l *Ledger) Record(draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	required := RequiredSigners(l.registry.Known(draft.Category), draft.Amount())
	if !IsAuthorized(required, draft.AuthorizedBy) {
		return core.Transaction{}, &core.AuthorizationError{Required: required, AuthorizedBy: draft.AuthorizedBy}
	}

	txn := core.Transaction{TransactionDraft: draft, RecordedAt: l.now()}
	l.txns = append(l.txns, txn)
	if draft.Income.IsPositive() {
		l.registry.Credit(budget.Income, draft.Category, draft.Income)
	}
	if draft.Expense.IsPositive() {
		l.registry.Credit(budget.Expenses, draft.Category, draft.Expense)
	}
	return txn, nil
}

// RequiredSigners reports who would have to authorize a transaction of amount
// against category, as things stand now.
func (l *Ledger) RequiredSigners(category string, amount decimal.Decimal) []core.Role {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return RequiredSigners(l.registry.Known(category), amount)
}

func (l *Ledger) Balance() decimal.Decimal {
	return l.totals().Balance
}

func (l *Ledger) TotalIncome() decimal.Decimal {
	return l.totals().Income
}

func (l *Ledger) TotalExpenses() decimal.Decimal {
	return l.totals().Expenses
}

func (l *Ledger) RequiredReserve() decimal.Decimal {
	return l.totals().Reserve
}

func (l *Ledger) AvailableFunds() decimal.Decimal {
	return l.totals().Available
}

func (l *Ledger) totals() Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sum(l.txns)
}

// sum recomputes every total from the full log. Nothing is cached.
func sum(txns []core.Transaction) Totals {
	var t Totals
	for _, txn := range txns {
		t.Income = t.Income.Add(txn.Income)
		t.Expenses = t.Expenses.Add(txn.Expense)
	}
	t.Balance = t.Income.Sub(t.Expenses)
	t.Reserve = RequiredReserve(t.Income)
	t.Available = AvailableFunds(t.Balance, t.Reserve)
	return t
}

// Transactions returns a copy of the log in recording order.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.txns)
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txns)
}

func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{Transactions: slices.Clone(l.txns), Totals: sum(l.txns)}
}

func (l *Ledger) Section(s budget.Section) SectionView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sectionLocked(s)
}

func (l *Ledger) sectionLocked(s budget.Section) SectionView {
	return SectionView{Lines: l.registry.Lines(s), Totals: l.registry.Totals(s)}
}

func (l *Ledger) Overview() Overview {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Overview{
		State:    State{Transactions: slices.Clone(l.txns), Totals: sum(l.txns)},
		Income:   l.sectionLocked(budget.Income),
		Expenses: l.sectionLocked(budget.Expenses),
	}
}

func (l *Ledger) AddCategory(s budget.Section, name string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Add(s, name, amount)
}

func (l *Ledger) AdjustBudget(s budget.Section, name string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.SetBudget(s, name, amount)
}

func (l *Ledger) Categories(s budget.Section) []budget.Line {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Lines(s)
}

func (l *Ledger) BudgetTotals(s budget.Section) budget.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Totals(s)
}

// Registry returns a deep copy of the category registry.
func (l *Ledger) Registry() *budget.Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Clone()
}

// Books returns a copy of the registry and the log taken under one lock.
func (l *Ledger) Books() (*budget.Registry, []core.Transaction) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Clone(), slices.Clone(l.txns)
}

// Replace swaps the registry and the log wholesale. A nil argument keeps the
// current collection. Registry actuals are taken as given, not re-derived.
func (l *Ledger) Replace(reg *budget.Registry, txns []core.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if reg != nil {
		l.registry = reg.Clone()
	}
	if txns != nil {
		l.txns = slices.Clone(txns)
	}
}
