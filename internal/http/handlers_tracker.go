package http

import (
	"net/http"
	"strings"

	"committee/internal/core"
	"committee/internal/tracker"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events := s.books.Events()
	resp := make([]eventResponse, len(events))
	for i, ev := range events {
		resp[i] = toEvent(ev)
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	income, err := parseAmount("projected_income", req.ProjectedIncome)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	expenses, err := parseAmount("projected_expenses", req.ProjectedExpenses)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}

	ev, err := s.books.CreateEvent(r.Context(), tracker.EventDraft{
		Name:              sanitizeInput(req.Name),
		Date:              sanitizeInput(req.Date),
		Location:          sanitizeInput(req.Location),
		Coordinator:       sanitizeInput(req.Coordinator),
		ProjectedIncome:   income,
		ProjectedExpenses: expenses,
	})
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toEvent(ev)).Write(w)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	name, err := requireName(r.URL.Query().Get("name"))
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	ev, err := s.books.Event(name)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toEvent(ev)).Write(w)
}

func (s *Server) handleEventActuals(w http.ResponseWriter, r *http.Request) {
	var req eventActualsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	name, err := requireName(req.Name)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	income, err := parseAmount("actual_income", req.ActualIncome)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	expenses, err := parseAmount("actual_expenses", req.ActualExpenses)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}

	ev, err := s.books.UpdateEventActuals(r.Context(), name, income, expenses)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toEvent(ev)).Write(w)
}

func (s *Server) handleEventStatus(w http.ResponseWriter, r *http.Request) {
	name, status, err := parseStatusRequest(w, r)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	ev, err := s.books.SetEventStatus(r.Context(), name, status)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toEvent(ev)).Write(w)
}

// handleEventLineItem adds an income source or an expense item, chosen by
// kind.
func (s *Server) handleEventLineItem(w http.ResponseWriter, r *http.Request) {
	var req lineItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	name, err := requireName(req.Name)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	item := core.LineItem{Description: sanitizeInput(req.Description), Amount: amount}

	var ev core.Event
	switch strings.ToLower(strings.TrimSpace(req.Kind)) {
	case "income":
		ev, err = s.books.AddEventIncomeSource(name, item)
	case "expense":
		ev, err = s.books.AddEventExpenseItem(name, item)
	default:
		err = badRequest("kind must be income or expense")
	}
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toEvent(ev)).Write(w)
}

func (s *Server) handleListInitiatives(w http.ResponseWriter, r *http.Request) {
	items := s.books.Initiatives()
	resp := make([]initiativeResponse, len(items))
	for i, in := range items {
		resp[i] = toInitiative(in)
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCreateInitiative(w http.ResponseWriter, r *http.Request) {
	var req initiativeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	goal, err := parseAmount("goal_amount", req.GoalAmount)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	in, err := s.books.CreateInitiative(r.Context(), tracker.InitiativeDraft{
		Name:        sanitizeInput(req.Name),
		Dates:       sanitizeInput(req.Dates),
		Coordinator: sanitizeInput(req.Coordinator),
		GoalAmount:  goal,
	})
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toInitiative(in)).Write(w)
}

func (s *Server) handleGetInitiative(w http.ResponseWriter, r *http.Request) {
	name, err := requireName(r.URL.Query().Get("name"))
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	in, err := s.books.Initiative(name)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toInitiative(in)).Write(w)
}

func (s *Server) handleInitiativeFigures(w http.ResponseWriter, r *http.Request) {
	var req figuresRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ResponseForError(err).Write(w)
		return
	}
	name, err := requireName(req.Name)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	raised, err := parseAmount("actual_raised", req.ActualRaised)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	expenses, err := parseAmount("expenses", req.Expenses)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	net, err := parseAmount("net_proceeds", req.NetProceeds)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}

	in, err := s.books.UpdateInitiativeFigures(r.Context(), name, raised, expenses, net)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toInitiative(in)).Write(w)
}

func (s *Server) handleInitiativeStatus(w http.ResponseWriter, r *http.Request) {
	name, status, err := parseStatusRequest(w, r)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	in, err := s.books.SetInitiativeStatus(r.Context(), name, status)
	if err != nil {
		ResponseForError(err).Write(w)
		return
	}
	NewJSONResponse().Body(toInitiative(in)).Write(w)
}

func (s *Server) handleFundraisingSummary(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(toFundraisingSummary(s.books.FundraisingSummary())).Write(w)
}

func parseStatusRequest(w http.ResponseWriter, r *http.Request) (string, core.Status, error) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", "", err
	}
	name, err := requireName(req.Name)
	if err != nil {
		return "", "", err
	}
	status, err := core.ParseStatus(req.Status)
	if err != nil {
		return "", "", err
	}
	return name, status, nil
}
