package http

import (
	"time"

	"github.com/shopspring/decimal"

	"committee/internal/budget"
	"committee/internal/core"
	"committee/internal/ledger"
	"committee/internal/report"
	"committee/internal/services"
	"committee/internal/storage"
	"committee/internal/tracker"
)

// Amounts are written as decimal strings so no precision is lost.

type (
	transactionRequest struct {
		Date         string     `json:"date"`
		Description  string     `json:"description"`
		Category     string     `json:"category"`
		Income       amountText `json:"income"`
		Expense      amountText `json:"expense"`
		AuthorizedBy string     `json:"authorized_by"`
		ReceiptNum   string     `json:"receipt_num"`
		Notes        string     `json:"notes"`
	}

	transactionResponse struct {
		Date         string          `json:"date"`
		Description  string          `json:"description"`
		Category     string          `json:"category"`
		Income       decimal.Decimal `json:"income"`
		Expense      decimal.Decimal `json:"expense"`
		AuthorizedBy string          `json:"authorized_by"`
		ReceiptNum   string          `json:"receipt_num,omitempty"`
		Notes        string          `json:"notes,omitempty"`
		RecordedAt   time.Time       `json:"recorded_at"`
	}

	authorizationResponse struct {
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Required []string        `json:"required"`
	}

	budgetEntryResponse struct {
		Budget      decimal.Decimal  `json:"budget"`
		Actual      decimal.Decimal  `json:"actual"`
		Remaining   decimal.Decimal  `json:"remaining"`
		Utilization *decimal.Decimal `json:"utilization,omitempty"`
	}

	categoryResponse struct {
		Name string `json:"name"`
		budgetEntryResponse
	}

	sectionResponse struct {
		Categories []categoryResponse  `json:"categories"`
		Totals     budgetEntryResponse `json:"totals"`
	}

	categoryRequest struct {
		Section string     `json:"section"`
		Name    string     `json:"name"`
		Budget  amountText `json:"budget"`
	}

	dashboardResponse struct {
		Balance          decimal.Decimal     `json:"balance"`
		EmergencyReserve decimal.Decimal     `json:"emergency_reserve"`
		AvailableFunds   decimal.Decimal     `json:"available_funds"`
		TotalIncome      decimal.Decimal     `json:"total_income"`
		TotalExpenses    decimal.Decimal     `json:"total_expenses"`
		TransactionCount int                 `json:"transaction_count"`
		IncomeBudget     budgetEntryResponse `json:"income_budget"`
		ExpenseBudget    budgetEntryResponse `json:"expense_budget"`
	}

	categoryTotalResponse struct {
		Category string          `json:"category"`
		Income   decimal.Decimal `json:"income"`
		Expense  decimal.Decimal `json:"expense"`
		Count    int             `json:"count"`
	}

	monthlyReportResponse struct {
		Month            int                     `json:"month"`
		Year             int                     `json:"year"`
		TotalIncome      decimal.Decimal         `json:"total_income"`
		TotalExpenses    decimal.Decimal         `json:"total_expenses"`
		Net              decimal.Decimal         `json:"net"`
		CurrentBalance   decimal.Decimal         `json:"current_balance"`
		EmergencyReserve decimal.Decimal         `json:"emergency_reserve"`
		AvailableFunds   decimal.Decimal         `json:"available_funds"`
		Transactions     []transactionResponse   `json:"transactions"`
		Categories       []categoryTotalResponse `json:"categories"`
	}

	monthSummaryResponse struct {
		Month         int             `json:"month"`
		TotalIncome   decimal.Decimal `json:"total_income"`
		TotalExpenses decimal.Decimal `json:"total_expenses"`
		Net           decimal.Decimal `json:"net"`
		Count         int             `json:"count"`
	}

	yearToDateResponse struct {
		Year             int                    `json:"year"`
		Months           []monthSummaryResponse `json:"months"`
		TotalIncome      decimal.Decimal        `json:"total_income"`
		TotalExpenses    decimal.Decimal        `json:"total_expenses"`
		Net              decimal.Decimal        `json:"net"`
		CurrentBalance   decimal.Decimal        `json:"current_balance"`
		EmergencyReserve decimal.Decimal        `json:"emergency_reserve"`
		AvailableFunds   decimal.Decimal        `json:"available_funds"`
	}

	lineItemJSON struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}

	eventRequest struct {
		Name              string     `json:"name"`
		Date              string     `json:"date"`
		Location          string     `json:"location"`
		Coordinator       string     `json:"coordinator"`
		ProjectedIncome   amountText `json:"projected_income"`
		ProjectedExpenses amountText `json:"projected_expenses"`
	}

	eventActualsRequest struct {
		Name           string     `json:"name"`
		ActualIncome   amountText `json:"actual_income"`
		ActualExpenses amountText `json:"actual_expenses"`
	}

	statusRequest struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}

	lineItemRequest struct {
		Name        string     `json:"name"`
		Kind        string     `json:"kind"`
		Description string     `json:"description"`
		Amount      amountText `json:"amount"`
	}

	eventResponse struct {
		Name              string          `json:"name"`
		Date              string          `json:"date"`
		Location          string          `json:"location"`
		Coordinator       string          `json:"coordinator"`
		ProjectedIncome   decimal.Decimal `json:"projected_income"`
		ProjectedExpenses decimal.Decimal `json:"projected_expenses"`
		ProjectedProfit   decimal.Decimal `json:"projected_profit"`
		ActualIncome      decimal.Decimal `json:"actual_income"`
		ActualExpenses    decimal.Decimal `json:"actual_expenses"`
		ActualProfit      decimal.Decimal `json:"actual_profit"`
		IncomeVariance    decimal.Decimal `json:"income_variance"`
		ExpenseVariance   decimal.Decimal `json:"expense_variance"`
		IncomeSources     []lineItemJSON  `json:"income_sources"`
		ExpenseItems      []lineItemJSON  `json:"expense_items"`
		Status            string          `json:"status"`
	}

	initiativeRequest struct {
		Name        string     `json:"name"`
		Dates       string     `json:"dates"`
		Coordinator string     `json:"coordinator"`
		GoalAmount  amountText `json:"goal_amount"`
	}

	figuresRequest struct {
		Name         string     `json:"name"`
		ActualRaised amountText `json:"actual_raised"`
		Expenses     amountText `json:"expenses"`
		NetProceeds  amountText `json:"net_proceeds"`
	}

	initiativeResponse struct {
		Name         string           `json:"name"`
		Dates        string           `json:"dates"`
		Coordinator  string           `json:"coordinator"`
		GoalAmount   decimal.Decimal  `json:"goal_amount"`
		ActualRaised decimal.Decimal  `json:"actual_raised"`
		Expenses     decimal.Decimal  `json:"expenses"`
		NetProceeds  decimal.Decimal  `json:"net_proceeds"`
		SuccessRate  *decimal.Decimal `json:"success_rate,omitempty"`
		Status       string           `json:"status"`
	}

	fundraisingSummaryResponse struct {
		Count        int              `json:"count"`
		TotalGoal    decimal.Decimal  `json:"total_goal"`
		TotalRaised  decimal.Decimal  `json:"total_raised"`
		TotalExpense decimal.Decimal  `json:"total_expenses"`
		TotalNet     decimal.Decimal  `json:"total_net"`
		SuccessRate  *decimal.Decimal `json:"success_rate,omitempty"`
	}

	backupRequest struct {
		Label string `json:"label"`
	}

	backupResponse struct {
		ID               string    `json:"id"`
		Label            string    `json:"label"`
		CreatedAt        time.Time `json:"created_at"`
		TransactionCount int       `json:"transaction_count"`
	}
)

func toTransaction(txn core.Transaction) transactionResponse {
	return transactionResponse{
		Date:         txn.Date.String(),
		Description:  txn.Description,
		Category:     txn.Category,
		Income:       txn.Income,
		Expense:      txn.Expense,
		AuthorizedBy: string(txn.AuthorizedBy),
		ReceiptNum:   txn.ReceiptNum,
		Notes:        txn.Notes,
		RecordedAt:   txn.RecordedAt,
	}
}

func toTransactions(txns []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txns))
	for i, txn := range txns {
		out[i] = toTransaction(txn)
	}
	return out
}

func roleNames(roles []core.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func toBudgetEntry(e budget.Entry) budgetEntryResponse {
	resp := budgetEntryResponse{Budget: e.Budget, Actual: e.Actual, Remaining: e.Remaining()}
	if pct, ok := e.Utilization(); ok {
		resp.Utilization = &pct
	}
	return resp
}

func toSection(v ledger.SectionView) sectionResponse {
	resp := sectionResponse{Categories: make([]categoryResponse, len(v.Lines)), Totals: toBudgetEntry(v.Totals)}
	for i, l := range v.Lines {
		resp.Categories[i] = categoryResponse{Name: l.Name, budgetEntryResponse: toBudgetEntry(l.Entry)}
	}
	return resp
}

func toDashboard(d services.Dashboard) dashboardResponse {
	return dashboardResponse{
		Balance:          d.Balance,
		EmergencyReserve: d.EmergencyReserve,
		AvailableFunds:   d.AvailableFunds,
		TotalIncome:      d.TotalIncome,
		TotalExpenses:    d.TotalExpenses,
		TransactionCount: d.TransactionCount,
		IncomeBudget:     toBudgetEntry(d.IncomeBudget),
		ExpenseBudget:    toBudgetEntry(d.ExpenseBudget),
	}
}

func toMonthlyReport(r report.Report) monthlyReportResponse {
	resp := monthlyReportResponse{
		Month:            r.Month,
		Year:             r.Year,
		TotalIncome:      r.TotalIncome,
		TotalExpenses:    r.TotalExpenses,
		Net:              r.Net,
		CurrentBalance:   r.CurrentBalance,
		EmergencyReserve: r.EmergencyReserve,
		AvailableFunds:   r.AvailableFunds,
		Transactions:     toTransactions(r.Transactions),
		Categories:       []categoryTotalResponse{},
	}
	for _, c := range report.CategoryBreakdown(r) {
		resp.Categories = append(resp.Categories, categoryTotalResponse(c))
	}
	return resp
}

func toYearToDate(y report.YearToDate) yearToDateResponse {
	resp := yearToDateResponse{
		Year:             y.Year,
		Months:           make([]monthSummaryResponse, len(y.Months)),
		TotalIncome:      y.TotalIncome,
		TotalExpenses:    y.TotalExpenses,
		Net:              y.Net,
		CurrentBalance:   y.CurrentBalance,
		EmergencyReserve: y.EmergencyReserve,
		AvailableFunds:   y.AvailableFunds,
	}
	for i, m := range y.Months {
		resp.Months[i] = monthSummaryResponse(m)
	}
	return resp
}

func toLineItems(items []core.LineItem) []lineItemJSON {
	out := make([]lineItemJSON, len(items))
	for i, it := range items {
		out[i] = lineItemJSON(it)
	}
	return out
}

func toEvent(ev core.Event) eventResponse {
	return eventResponse{
		Name:              ev.Name,
		Date:              ev.Date,
		Location:          ev.Location,
		Coordinator:       ev.Coordinator,
		ProjectedIncome:   ev.ProjectedIncome,
		ProjectedExpenses: ev.ProjectedExpenses,
		ProjectedProfit:   ev.ProjectedProfit(),
		ActualIncome:      ev.ActualIncome,
		ActualExpenses:    ev.ActualExpenses,
		ActualProfit:      ev.ActualProfit(),
		IncomeVariance:    ev.IncomeVariance(),
		ExpenseVariance:   ev.ExpenseVariance(),
		IncomeSources:     toLineItems(ev.IncomeSources),
		ExpenseItems:      toLineItems(ev.ExpenseItems),
		Status:            string(ev.Status),
	}
}

func toInitiative(in core.Initiative) initiativeResponse {
	resp := initiativeResponse{
		Name:         in.Name,
		Dates:        in.Dates,
		Coordinator:  in.Coordinator,
		GoalAmount:   in.GoalAmount,
		ActualRaised: in.ActualRaised,
		Expenses:     in.Expenses,
		NetProceeds:  in.NetProceeds,
		Status:       string(in.Status),
	}
	if rate, ok := in.SuccessRate(); ok {
		resp.SuccessRate = &rate
	}
	return resp
}

func toFundraisingSummary(s tracker.Summary) fundraisingSummaryResponse {
	resp := fundraisingSummaryResponse{
		Count:        s.Count,
		TotalGoal:    s.TotalGoal,
		TotalRaised:  s.TotalRaised,
		TotalExpense: s.TotalExpense,
		TotalNet:     s.TotalNet,
	}
	if s.HasRate {
		rate := s.SuccessRate
		resp.SuccessRate = &rate
	}
	return resp
}

func toBackup(b storage.BackupInfo) backupResponse {
	return backupResponse(b)
}
