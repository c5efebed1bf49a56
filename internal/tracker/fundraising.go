package tracker

import (
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"committee/internal/core"
)

type InitiativeDraft struct {
	Name        string
	Dates       string
	Coordinator string
	GoalAmount  decimal.Decimal
}

// Summary aggregates every initiative regardless of status.
type Summary struct {
	Count        int
	TotalGoal    decimal.Decimal
	TotalRaised  decimal.Decimal
	TotalExpense decimal.Decimal
	TotalNet     decimal.Decimal
	// SuccessRate is raised over goal as a percentage; HasRate is false
	// when no goals are set.
	SuccessRate decimal.Decimal
	HasRate     bool
}

// Fundraising holds initiatives in creation order, first match wins on lookup.
type Fundraising struct {
	mu    sync.Mutex
	items []core.Initiative
}

func NewFundraising() *Fundraising {
	return &Fundraising{}
}

func (f *Fundraising) Create(d InitiativeDraft) (core.Initiative, error) {
	if strings.TrimSpace(d.Name) == "" {
		return core.Initiative{}, &core.ValidationError{Field: "name", Err: core.ErrEmptyName}
	}
	if d.GoalAmount.IsNegative() {
		return core.Initiative{}, &core.ValidationError{Field: "goal_amount", Err: core.ErrNegativeAmount}
	}
	in := core.Initiative{
		Name:        strings.TrimSpace(d.Name),
		Dates:       d.Dates,
		Coordinator: d.Coordinator,
		GoalAmount:  d.GoalAmount,
		Status:      core.Planning,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, in)
	return in, nil
}

func (f *Fundraising) Find(name string) (core.Initiative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.index(name)
	if err != nil {
		return core.Initiative{}, err
	}
	return f.items[i], nil
}

func (f *Fundraising) List() []core.Initiative {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

// UpdateFigures stores raised, expenses and net proceeds as given. Net
// proceeds are not checked against the other two.
func (f *Fundraising) UpdateFigures(name string, raised, expenses, net decimal.Decimal) (core.Initiative, error) {
	if raised.IsNegative() || expenses.IsNegative() {
		return core.Initiative{}, &core.ValidationError{Field: "figures", Err: core.ErrNegativeAmount}
	}
	return f.update(name, func(in *core.Initiative) {
		in.ActualRaised = raised
		in.Expenses = expenses
		in.NetProceeds = net
	})
}

func (f *Fundraising) SetStatus(name string, status core.Status) (core.Initiative, error) {
	st, err := core.ParseStatus(string(status))
	if err != nil {
		return core.Initiative{}, err
	}
	return f.update(name, func(in *core.Initiative) { in.Status = st })
}

func (f *Fundraising) Summary() Summary {
	f.mu.Lock()
	defer f.mu.Unlock()

	var s Summary
	for _, in := range f.items {
		s.Count++
		s.TotalGoal = s.TotalGoal.Add(in.GoalAmount)
		s.TotalRaised = s.TotalRaised.Add(in.ActualRaised)
		s.TotalExpense = s.TotalExpense.Add(in.Expenses)
		s.TotalNet = s.TotalNet.Add(in.NetProceeds)
	}
	if s.TotalGoal.IsPositive() {
		s.SuccessRate = s.TotalRaised.Div(s.TotalGoal).Mul(decimal.NewFromInt(100))
		s.HasRate = true
	}
	return s
}

func (f *Fundraising) Replace(items []core.Initiative) {
	cp := slices.Clone(items)
	if cp == nil {
		cp = []core.Initiative{}
	}
	f.mu.Lock()
	f.items = cp
	f.mu.Unlock()
}

func (f *Fundraising) update(name string, fn func(*core.Initiative)) (core.Initiative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.index(name)
	if err != nil {
		return core.Initiative{}, err
	}
	fn(&f.items[i])
	return f.items[i], nil
}

func (f *Fundraising) index(name string) (int, error) {
	for i := range f.items {
		if f.items[i].Name == name {
			return i, nil
		}
	}
	return -1, &core.NotFoundError{Kind: "fundraising initiative", Name: name}
}
