package http

import (
	"net/http"
	"strings"

	"committee/internal/budget"
	"committee/internal/core"
)

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	draft, err := s.transactionDraft(req)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}

	txn, err := s.books.RecordTransaction(r.Context(), draft)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTransaction(txn)).Write(w)
}

// transactionDraft turns the request into a draft. A missing date means
// today.
func (s *Server) transactionDraft(req transactionRequest) (core.TransactionDraft, error) {
	var draft core.TransactionDraft
	if v := strings.TrimSpace(req.Date); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return draft, &core.ValidationError{Field: "date", Err: err}
		}
		draft.Date = d
	} else {
		now := s.now()
		draft.Date = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}

	income, err := parseAmount("income", req.Income)
	if err != nil {
		return draft, err
	}
	expense, err := parseAmount("expense", req.Expense)
	if err != nil {
		return draft, err
	}

	draft.Description = sanitizeInput(req.Description)
	draft.Category = sanitizeInput(req.Category)
	draft.Income = income
	draft.Expense = expense
	draft.AuthorizedBy = core.Role(sanitizeInput(req.AuthorizedBy))
	draft.ReceiptNum = sanitizeInput(req.ReceiptNum)
	draft.Notes = sanitizeInput(req.Notes)
	return draft, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(toTransactions(s.books.Transactions())).Write(w)
}

// handleAuthorization previews the signers a transaction would need.
func (s *Server) handleAuthorization(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := sanitizeInput(q.Get("category"))
	if category == "" {
		ResponseForError(&core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}).Write(w)
		return
	}
	amount, err := parseAmount("amount", amountText(q.Get("amount")))
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(authorizationResponse{
		Category: category,
		Amount:   amount,
		Required: roleNames(s.books.RequiredSigners(category, amount)),
	}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(toDashboard(s.books.Dashboard())).Write(w)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	rep, err := s.books.MonthlyReport(p.Month, p.Year)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toMonthlyReport(rep)).Write(w)
}

func (s *Server) handleYearToDate(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r.URL.Query(), "year")
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	ytd, err := s.books.YearToDateReport(year)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toYearToDate(ytd)).Write(w)
}

// handleListCategories lists one section when ?section= is given, both
// otherwise.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	sections := []budget.Section{budget.Income, budget.Expenses}
	if v := r.URL.Query().Get("section"); v != "" {
		section, err := budget.ParseSection(v)
		if err != nil {
			ResponseForError(err).Write(w)
			return
		}
		sections = []budget.Section{section}
	}

	resp := make(map[budget.Section]sectionResponse, len(sections))
	for _, section := range sections {
		resp[section] = toSection(s.books.Section(section))
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) parseCategoryRequest(w http.ResponseWriter, r *http.Request) (budget.Section, categoryRequest, error) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", req, err
	}
	section, err := budget.ParseSection(req.Section)
	if err != nil {
		return "", req, err
	}
	return section, req, nil
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	section, req, err := s.parseCategoryRequest(w, r)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	amount, err := parseAmount("budget", req.Budget)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	if err := s.books.AddCategory(r.Context(), section, sanitizeInput(req.Name), amount); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(toSection(s.books.Section(section))).
		Write(w)
}

func (s *Server) handleAdjustBudget(w http.ResponseWriter, r *http.Request) {
	section, req, err := s.parseCategoryRequest(w, r)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	amount, err := parseAmount("budget", req.Budget)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	if err := s.books.AdjustBudget(r.Context(), section, sanitizeInput(req.Name), amount); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().
		Body(toSection(s.books.Section(section))).
		Write(w)
}
