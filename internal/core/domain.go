package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Chair             Role = "Chair"
	DeputyChair       Role = "Deputy Chair"
	Treasurer         Role = "Treasurer"
	Secretary         Role = "Secretary"
	EventsCoordinator Role = "Events Coordinator"
	SchoolAdmin       Role = "School Admin"
	CommitteeVote     Role = "Committee Vote"
)

const (
	Planning  Status = "Planning"
	Active    Status = "Active"
	Completed Status = "Completed"
)

type (
	// Role is the declared authorizer label of a transaction. It is not a
	// verified identity; unknown labels are carried as-is.
	Role string

	Status string

	Date struct {
		time.Time
	}

	// TransactionDraft is a candidate transaction submitted for recording.
	TransactionDraft struct {
		Date         Date
		Description  string
		Category     string
		Income       decimal.Decimal
		Expense      decimal.Decimal
		AuthorizedBy Role
		ReceiptNum   string
		Notes        string
	}

	// Transaction is a recorded ledger entry. RecordedAt is assigned by the
	// ledger at insertion and drives period reporting.
	Transaction struct {
		TransactionDraft
		RecordedAt time.Time
	}

	LineItem struct {
		Description string
		Amount      decimal.Decimal
	}

	Event struct {
		Name              string
		Date              string // free text, as entered
		Location          string
		Coordinator       string
		ProjectedIncome   decimal.Decimal
		ProjectedExpenses decimal.Decimal
		ActualIncome      decimal.Decimal
		ActualExpenses    decimal.Decimal
		IncomeSources     []LineItem
		ExpenseItems      []LineItem
		Status            Status
	}

	// Initiative is a fundraising initiative. NetProceeds is stored as supplied
	// by the caller and is not derived from ActualRaised and Expenses.
	Initiative struct {
		Name         string
		Dates        string
		Coordinator  string
		GoalAmount   decimal.Decimal
		ActualRaised decimal.Decimal
		Expenses     decimal.Decimal
		NetProceeds  decimal.Decimal
		Status       Status
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrCategoryExists   = errors.New("category already exists")
)

// Roles returns the authorizer labels offered to committee members.
func Roles() []Role {
	return []Role{Chair, DeputyChair, Treasurer, Secretary, EventsCoordinator, SchoolAdmin, CommitteeVote}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps too; only the calendar part is kept.
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Amount is the larger of the two sides; it selects the authorization tier.
func (d TransactionDraft) Amount() decimal.Decimal {
	return decimal.Max(d.Income, d.Expense)
}

func (d TransactionDraft) Validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if strings.TrimSpace(d.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if d.Income.IsNegative() {
		return &ValidationError{Field: "income", Err: ErrNegativeAmount}
	}
	if d.Expense.IsNegative() {
		return &ValidationError{Field: "expense", Err: ErrNegativeAmount}
	}
	return nil
}

// ParseStatus accepts the three lifecycle labels, case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{Planning, Active, Completed} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "status", Err: ErrInvalidStatus}
}

func (e Event) ProjectedProfit() decimal.Decimal {
	return e.ProjectedIncome.Sub(e.ProjectedExpenses)
}

func (e Event) ActualProfit() decimal.Decimal {
	return e.ActualIncome.Sub(e.ActualExpenses)
}

func (e Event) IncomeVariance() decimal.Decimal {
	return e.ActualIncome.Sub(e.ProjectedIncome)
}

func (e Event) ExpenseVariance() decimal.Decimal {
	return e.ActualExpenses.Sub(e.ProjectedExpenses)
}

// SuccessRate returns raised/goal as a percentage. ok is false when no goal is set.
func (i Initiative) SuccessRate() (rate decimal.Decimal, ok bool) {
	if !i.GoalAmount.IsPositive() {
		return decimal.Zero, false
	}
	return i.ActualRaised.Div(i.GoalAmount).Mul(decimal.NewFromInt(100)), true
}
