package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"committee/internal/core"
	"committee/internal/tracker"
)

func (s *FinanceService) CreateEvent(ctx context.Context, d tracker.EventDraft) (core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, err := s.events.Create(d)
	if err != nil {
		return core.Event{}, err
	}
	slog.InfoContext(ctx, "Event created", "name", ev.Name, "coordinator", ev.Coordinator)
	return ev, nil
}

// Event returns the first event named name.
func (s *FinanceService) Event(name string) (core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Find(name)
}

func (s *FinanceService) Events() []core.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.List()
}

func (s *FinanceService) UpdateEventActuals(ctx context.Context, name string, income, expenses decimal.Decimal) (core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, err := s.events.UpdateActuals(name, income, expenses)
	if err != nil {
		return core.Event{}, err
	}
	slog.InfoContext(ctx, "Event actuals updated", "name", name, "income", income.String(), "expenses", expenses.String())
	return ev, nil
}

func (s *FinanceService) SetEventStatus(ctx context.Context, name string, status core.Status) (core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, err := s.events.SetStatus(name, status)
	if err != nil {
		return core.Event{}, err
	}
	slog.InfoContext(ctx, "Event status changed", "name", name, "status", ev.Status)
	return ev, nil
}

func (s *FinanceService) AddEventIncomeSource(name string, item core.LineItem) (core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.AddIncomeSource(name, item)
}

func (s *FinanceService) AddEventExpenseItem(name string, item core.LineItem) (core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.AddExpenseItem(name, item)
}

func (s *FinanceService) CreateInitiative(ctx context.Context, d tracker.InitiativeDraft) (core.Initiative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, err := s.fundraising.Create(d)
	if err != nil {
		return core.Initiative{}, err
	}
	slog.InfoContext(ctx, "Fundraising initiative created", "name", in.Name, "goal", in.GoalAmount.String())
	return in, nil
}

func (s *FinanceService) Initiative(name string) (core.Initiative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fundraising.Find(name)
}

func (s *FinanceService) Initiatives() []core.Initiative {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fundraising.List()
}

// UpdateInitiativeFigures stores the figures as entered, net proceeds included.
func (s *FinanceService) UpdateInitiativeFigures(ctx context.Context, name string, raised, expenses, net decimal.Decimal) (core.Initiative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, err := s.fundraising.UpdateFigures(name, raised, expenses, net)
	if err != nil {
		return core.Initiative{}, err
	}
	slog.InfoContext(ctx, "Fundraising figures updated", "name", name, "raised", raised.String(), "net", net.String())
	return in, nil
}

func (s *FinanceService) SetInitiativeStatus(ctx context.Context, name string, status core.Status) (core.Initiative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, err := s.fundraising.SetStatus(name, status)
	if err != nil {
		return core.Initiative{}, err
	}
	slog.InfoContext(ctx, "Fundraising status changed", "name", name, "status", in.Status)
	return in, nil
}

func (s *FinanceService) FundraisingSummary() tracker.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fundraising.Summary()
}
