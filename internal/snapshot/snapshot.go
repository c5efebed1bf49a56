// Package snapshot reads and writes the JSON export of the committee's books.
//
// Each top-level key is optional. On import a present key replaces its whole
// collection and an absent key leaves the collection as it is.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"committee/internal/budget"
	"committee/internal/core"
)

type (
	Document struct {
		Budget       *Budget        `json:"budget,omitempty"`
		Transactions *[]Transaction `json:"transactions,omitempty"`
		Events       *[]Event       `json:"events,omitempty"`
		Fundraising  *[]Initiative  `json:"fundraising,omitempty"`
	}

	Budget struct {
		Income   Categories `json:"income"`
		Expenses Categories `json:"expenses"`
	}

	Transaction struct {
		Date         core.Date `json:"date"`
		Description  string    `json:"description"`
		Category     string    `json:"category"`
		Income       Amount    `json:"income"`
		Expense      Amount    `json:"expense"`
		AuthorizedBy string    `json:"authorized_by"`
		ReceiptNum   string    `json:"receipt_num"`
		Notes        string    `json:"notes"`
		Timestamp    Timestamp `json:"timestamp"`
	}

	LineItem struct {
		Description string `json:"description"`
		Amount      Amount `json:"amount"`
	}

	Event struct {
		Name              string     `json:"name"`
		Date              string     `json:"date"`
		Location          string     `json:"location"`
		Coordinator       string     `json:"coordinator"`
		ProjectedIncome   Amount     `json:"projected_income"`
		ProjectedExpenses Amount     `json:"projected_expenses"`
		ActualIncome      Amount     `json:"actual_income"`
		ActualExpenses    Amount     `json:"actual_expenses"`
		IncomeSources     []LineItem `json:"income_sources"`
		ExpenseItems      []LineItem `json:"expense_items"`
		Status            string     `json:"status"`
	}

	Initiative struct {
		Name         string `json:"name"`
		Dates        string `json:"dates"`
		Coordinator  string `json:"coordinator"`
		GoalAmount   Amount `json:"goal_amount"`
		ActualRaised Amount `json:"actual_raised"`
		Expenses     Amount `json:"expenses"`
		NetProceeds  Amount `json:"net_proceeds"`
		Status       string `json:"status"`
	}

	// Contents is the in-memory side of a document. A nil field stands for a
	// key that is absent from the document.
	Contents struct {
		Registry     *budget.Registry
		Transactions []core.Transaction
		Events       []core.Event
		Initiatives  []core.Initiative
	}
)

func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return doc, nil
}

// FromContents builds a document holding every non-nil collection of c.
func FromContents(c Contents) Document {
	var doc Document
	if c.Registry != nil {
		doc.Budget = &Budget{
			Income:   fromLines(c.Registry.Lines(budget.Income)),
			Expenses: fromLines(c.Registry.Lines(budget.Expenses)),
		}
	}
	if c.Transactions != nil {
		txns := make([]Transaction, len(c.Transactions))
		for i, t := range c.Transactions {
			txns[i] = Transaction{
				Date:         t.Date,
				Description:  t.Description,
				Category:     t.Category,
				Income:       Amount{t.Income},
				Expense:      Amount{t.Expense},
				AuthorizedBy: string(t.AuthorizedBy),
				ReceiptNum:   t.ReceiptNum,
				Notes:        t.Notes,
				Timestamp:    Timestamp{Time: t.RecordedAt},
			}
		}
		doc.Transactions = &txns
	}
	if c.Events != nil {
		events := make([]Event, len(c.Events))
		for i, e := range c.Events {
			events[i] = Event{
				Name:              e.Name,
				Date:              e.Date,
				Location:          e.Location,
				Coordinator:       e.Coordinator,
				ProjectedIncome:   Amount{e.ProjectedIncome},
				ProjectedExpenses: Amount{e.ProjectedExpenses},
				ActualIncome:      Amount{e.ActualIncome},
				ActualExpenses:    Amount{e.ActualExpenses},
				IncomeSources:     fromItems(e.IncomeSources),
				ExpenseItems:      fromItems(e.ExpenseItems),
				Status:            string(e.Status),
			}
		}
		doc.Events = &events
	}
	if c.Initiatives != nil {
		items := make([]Initiative, len(c.Initiatives))
		for i, in := range c.Initiatives {
			items[i] = Initiative{
				Name:         in.Name,
				Dates:        in.Dates,
				Coordinator:  in.Coordinator,
				GoalAmount:   Amount{in.GoalAmount},
				ActualRaised: Amount{in.ActualRaised},
				Expenses:     Amount{in.Expenses},
				NetProceeds:  Amount{in.NetProceeds},
				Status:       string(in.Status),
			}
		}
		doc.Fundraising = &items
	}
	return doc
}

// Contents is ContentsIn the local zone.
func (doc Document) Contents() (Contents, error) {
	return doc.ContentsIn(time.Local)
}

// ContentsIn converts the document back into domain values, reading naive
// timestamps in loc. Negative amounts and unknown statuses are rejected so a
// bad file cannot be half applied.
func (doc Document) ContentsIn(loc *time.Location) (Contents, error) {
	var c Contents
	if doc.Budget != nil {
		income, err := doc.Budget.Income.lines(budget.Income)
		if err != nil {
			return Contents{}, err
		}
		expenses, err := doc.Budget.Expenses.lines(budget.Expenses)
		if err != nil {
			return Contents{}, err
		}
		c.Registry = budget.FromLines(income, expenses)
	}
	if doc.Transactions != nil {
		c.Transactions = make([]core.Transaction, 0, len(*doc.Transactions))
		for i, t := range *doc.Transactions {
			if t.Income.IsNegative() || t.Expense.IsNegative() {
				return Contents{}, &core.ValidationError{Field: fmt.Sprintf("transactions[%d]", i), Err: core.ErrNegativeAmount}
			}
			c.Transactions = append(c.Transactions, core.Transaction{
				TransactionDraft: core.TransactionDraft{
					Date:         t.Date,
					Description:  t.Description,
					Category:     t.Category,
					Income:       t.Income.Decimal,
					Expense:      t.Expense.Decimal,
					AuthorizedBy: core.Role(t.AuthorizedBy),
					ReceiptNum:   t.ReceiptNum,
					Notes:        t.Notes,
				},
				RecordedAt: t.Timestamp.Instant(loc),
			})
		}
	}
	if doc.Events != nil {
		c.Events = make([]core.Event, 0, len(*doc.Events))
		for i, e := range *doc.Events {
			st, err := core.ParseStatus(e.Status)
			if err != nil {
				return Contents{}, fmt.Errorf("events[%d]: %w", i, err)
			}
			c.Events = append(c.Events, core.Event{
				Name:              e.Name,
				Date:              e.Date,
				Location:          e.Location,
				Coordinator:       e.Coordinator,
				ProjectedIncome:   e.ProjectedIncome.Decimal,
				ProjectedExpenses: e.ProjectedExpenses.Decimal,
				ActualIncome:      e.ActualIncome.Decimal,
				ActualExpenses:    e.ActualExpenses.Decimal,
				IncomeSources:     toItems(e.IncomeSources),
				ExpenseItems:      toItems(e.ExpenseItems),
				Status:            st,
			})
		}
	}
	if doc.Fundraising != nil {
		c.Initiatives = make([]core.Initiative, 0, len(*doc.Fundraising))
		for i, in := range *doc.Fundraising {
			st, err := core.ParseStatus(in.Status)
			if err != nil {
				return Contents{}, fmt.Errorf("fundraising[%d]: %w", i, err)
			}
			c.Initiatives = append(c.Initiatives, core.Initiative{
				Name:         in.Name,
				Dates:        in.Dates,
				Coordinator:  in.Coordinator,
				GoalAmount:   in.GoalAmount.Decimal,
				ActualRaised: in.ActualRaised.Decimal,
				Expenses:     in.Expenses.Decimal,
				NetProceeds:  in.NetProceeds.Decimal,
				Status:       st,
			})
		}
	}
	return c, nil
}

func fromItems(items []core.LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = LineItem{Description: it.Description, Amount: Amount{it.Amount}}
	}
	return out
}

func toItems(items []LineItem) []core.LineItem {
	out := make([]core.LineItem, len(items))
	for i, it := range items {
		out[i] = core.LineItem{Description: it.Description, Amount: it.Amount.Decimal}
	}
	return out
}
