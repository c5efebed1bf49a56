package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"committee/internal/metrics"
	"committee/internal/services"
	"committee/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...services.Option) *Server {
	t.Helper()
	clock := func() time.Time { return testNow }
	opts = append([]services.Option{services.WithClock(clock), services.WithLocation(time.UTC)}, opts...)
	books := services.NewFinanceService(opts...)
	srv := NewServer(":0", books, WithClock(clock), WithMetrics(metrics.New()))
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = books.Close()
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	ready := decodeBody[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, rr)
	if ready.Status != "ready" || ready.Checks["backups"] != "not_configured" {
		t.Fatalf("readyz = %+v", ready)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/dashboard", "")

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rr.Header().Get("X-Request-ID"); !strings.HasPrefix(got, "req_") {
		t.Errorf("X-Request-ID = %q", got)
	}
}

func TestRecordTransaction(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-12","description":"Bake sale","category":"Fundraising Events","income":50,"authorized_by":"Chair"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	txn := decodeBody[map[string]any](t, rr)
	if txn["income"] != "50" || txn["date"] != "2024-03-12" || txn["authorized_by"] != "Chair" {
		t.Fatalf("transaction = %v", txn)
	}

	dash := decodeBody[map[string]any](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	if dash["balance"] != "50" || dash["emergency_reserve"] != "7.5" || dash["available_funds"] != "42.5" {
		t.Fatalf("dashboard = %v", dash)
	}

	list := decodeBody[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	if len(list) != 1 || list[0]["description"] != "Bake sale" {
		t.Fatalf("transactions = %v", list)
	}
}

func TestRecordTransactionDefaultsDate(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Raffle","category":"Fundraising Events","income":"20","authorized_by":"Chair"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if txn := decodeBody[map[string]any](t, rr); txn["date"] != "2024-03-15" {
		t.Fatalf("date = %v", txn["date"])
	}
}

func TestRecordTransactionErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		body     string
		wantCode int
	}{
		{"wrong method", http.MethodDelete, "", http.StatusMethodNotAllowed},
		{"malformed JSON", http.MethodPost, `{"description":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"descriptoin":"x"}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "", http.StatusBadRequest},
		{"missing description", http.MethodPost, `{"category":"Yearbook","expense":"5","authorized_by":"Chair"}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, `{"description":"x","category":"Yearbook","expense":"-5","authorized_by":"Chair"}`, http.StatusUnprocessableEntity},
		{"bad amount", http.MethodPost, `{"description":"x","category":"Yearbook","expense":"five","authorized_by":"Chair"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, `{"date":"12/03/2024","description":"x","category":"Yearbook","authorized_by":"Chair"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, "/api/transactions", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantCode, rr.Body.String())
			}
		})
	}
}

func TestRecordTransactionUnauthorized(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Big sale","category":"Fundraising Events","income":"150","authorized_by":"Treasurer"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody[errorBody](t, rr)
	if len(body.Required) != 2 || body.Required[0] != "Chair" || body.Required[1] != "School Admin" {
		t.Fatalf("required = %v", body.Required)
	}

	dash := decodeBody[map[string]any](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	if dash["balance"] != "0" || dash["transaction_count"] != float64(0) {
		t.Fatalf("rejected transaction changed the books: %v", dash)
	}
}

func TestAuthorizationPreview(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"category=Yearbook&amount=100", []string{"Chair"}},
		{"category=Yearbook&amount=101", []string{"Chair", "School Admin"}},
		{"category=Pony+Rides&amount=5", []string{"Committee Vote"}},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/api/authorization?"+tt.query, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", tt.query, rr.Code)
		}
		got := decodeBody[authorizationResponse](t, rr)
		if strings.Join(got.Required, ",") != strings.Join(tt.want, ",") {
			t.Errorf("%s: required = %v, want %v", tt.query, got.Required, tt.want)
		}
	}

	if rr := do(t, srv, http.MethodGet, "/api/authorization?amount=5", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing category status=%d", rr.Code)
	}
}

func TestReports(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2023-12-01","description":"Late entry","category":"Fundraising Events","income":"40","authorized_by":"Chair"}`)
	do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Banners","category":"Marketing/Promotion","expense":"10","authorized_by":"Chair"}`)

	rr := do(t, srv, http.MethodGet, "/api/reports/monthly?year=2024&month=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("monthly status=%d body=%s", rr.Code, rr.Body.String())
	}
	rep := decodeBody[monthlyReportResponse](t, rr)
	// Both land in March: reports follow the recording time.
	if len(rep.Transactions) != 2 || rep.TotalIncome.String() != "40" || rep.Net.String() != "30" {
		t.Fatalf("monthly = %+v", rep)
	}
	if len(rep.Categories) != 2 || rep.Categories[0].Category != "Fundraising Events" {
		t.Fatalf("categories = %+v", rep.Categories)
	}

	if rr := do(t, srv, http.MethodGet, "/api/reports/monthly?month=13", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("month 13 status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/reports/monthly?month=march", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric month status=%d", rr.Code)
	}

	ytd := decodeBody[yearToDateResponse](t, do(t, srv, http.MethodGet, "/api/reports/ytd?year=2024", ""))
	if len(ytd.Months) != 3 || ytd.TotalIncome.String() != "40" {
		t.Fatalf("ytd = %+v", ytd)
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"section":"income","name":"Grants","budget":"250"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	sec := decodeBody[sectionResponse](t, rr)
	last := sec.Categories[len(sec.Categories)-1]
	if last.Name != "Grants" || last.Budget.String() != "250" {
		t.Fatalf("categories = %+v", sec.Categories)
	}

	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"section":"income","name":"Grants"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"section":"assets","name":"Cash"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad section status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/categories/budget", `{"section":"expenses","name":"Nope","budget":"1"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("missing category status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/categories/budget", `{"section":"expenses","name":"Yearbook","budget":"900"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("adjust status=%d body=%s", rr.Code, rr.Body.String())
	}

	all := decodeBody[map[string]sectionResponse](t, do(t, srv, http.MethodGet, "/api/categories", ""))
	if _, ok := all["income"]; !ok {
		t.Fatalf("income section missing: %v", all)
	}
	if all["expenses"].Totals.Budget.String() != "900" {
		t.Fatalf("expense totals = %+v", all["expenses"].Totals)
	}
	one := decodeBody[map[string]sectionResponse](t, do(t, srv, http.MethodGet, "/api/categories?section=expenses", ""))
	if len(one) != 1 {
		t.Fatalf("filtered sections = %v", one)
	}
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/events",
		`{"name":"Spring Fair","date":"April","coordinator":"Dana","projected_income":"500","projected_expenses":200}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	ev := decodeBody[eventResponse](t, rr)
	if ev.Status != "Planning" || ev.ProjectedProfit.String() != "300" {
		t.Fatalf("event = %+v", ev)
	}

	rr = do(t, srv, http.MethodPost, "/api/events/line-items", `{"name":"Spring Fair","kind":"income","description":"Tickets","amount":"120"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("line item status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodPost, "/api/events/line-items", `{"name":"Spring Fair","kind":"gift","amount":"1"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad kind status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/events/actuals", `{"name":"Spring Fair","actual_income":"450","actual_expenses":"180"}`)
	if ev := decodeBody[eventResponse](t, rr); ev.ActualProfit.String() != "270" || ev.IncomeVariance.String() != "-50" {
		t.Fatalf("actuals = %+v", ev)
	}

	rr = do(t, srv, http.MethodPut, "/api/events/status", `{"name":"Spring Fair","status":"active"}`)
	if ev := decodeBody[eventResponse](t, rr); ev.Status != "Active" {
		t.Fatalf("status = %q", ev.Status)
	}
	if rr := do(t, srv, http.MethodPut, "/api/events/status", `{"name":"Spring Fair","status":"cancelled"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad status code=%d", rr.Code)
	}

	got := decodeBody[eventResponse](t, do(t, srv, http.MethodGet, "/api/events/item?name=Spring+Fair", ""))
	if len(got.IncomeSources) != 1 || got.IncomeSources[0].Description != "Tickets" {
		t.Fatalf("event = %+v", got)
	}
	if rr := do(t, srv, http.MethodGet, "/api/events/item?name=Winter+Gala", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing event status=%d", rr.Code)
	}
	if list := decodeBody[[]eventResponse](t, do(t, srv, http.MethodGet, "/api/events", "")); len(list) != 1 {
		t.Fatalf("events = %+v", list)
	}
}

func TestFundraising(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/fundraising", `{"name":"Book Drive","goal_amount":1000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if in := decodeBody[initiativeResponse](t, rr); in.SuccessRate == nil || !in.SuccessRate.IsZero() {
		t.Fatalf("initiative = %+v", in)
	}

	rr = do(t, srv, http.MethodPut, "/api/fundraising/figures",
		`{"name":"Book Drive","actual_raised":"750","expenses":"50","net_proceeds":"690"}`)
	in := decodeBody[initiativeResponse](t, rr)
	// Net proceeds are kept as entered.
	if in.NetProceeds.String() != "690" || in.SuccessRate.String() != "75" {
		t.Fatalf("figures = %+v", in)
	}

	rr = do(t, srv, http.MethodPut, "/api/fundraising/status", `{"name":"Book Drive","status":"Completed"}`)
	if in := decodeBody[initiativeResponse](t, rr); in.Status != "Completed" {
		t.Fatalf("status = %q", in.Status)
	}

	sum := decodeBody[fundraisingSummaryResponse](t, do(t, srv, http.MethodGet, "/api/fundraising/summary", ""))
	if sum.Count != 1 || sum.TotalNet.String() != "690" {
		t.Fatalf("summary = %+v", sum)
	}
	if rr := do(t, srv, http.MethodGet, "/api/fundraising/item?name=", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name status=%d", rr.Code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestServer(t)
	do(t, src, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-12","description":"Bake sale","category":"Fundraising Events","income":"50","authorized_by":"Chair"}`)
	do(t, src, http.MethodPost, "/api/events", `{"name":"Spring Fair"}`)

	rr := do(t, src, http.MethodGet, "/api/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "committee-2024-03-15.json") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	dst := newTestServer(t)
	imp := do(t, dst, http.MethodPost, "/api/import", rr.Body.String())
	if imp.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", imp.Code, imp.Body.String())
	}
	if dash := decodeBody[map[string]any](t, imp); dash["balance"] != "50" {
		t.Fatalf("dashboard after import = %v", dash)
	}
	if list := decodeBody[[]eventResponse](t, do(t, dst, http.MethodGet, "/api/events", "")); len(list) != 1 {
		t.Fatalf("events after import = %+v", list)
	}

	if bad := do(t, dst, http.MethodPost, "/api/import", `{"transactions": 5}`); bad.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad import status=%d", bad.Code)
	}
}

func TestBackupsWithoutStore(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/api/backups", "/api/backups/restore"} {
		if rr := do(t, srv, http.MethodPost, path, ""); rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestBackupsWithStore(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "backups.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	srv := newTestServer(t, services.WithBackupStore(repo))

	do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Bake sale","category":"Fundraising Events","income":"50","authorized_by":"Chair"}`)

	rr := do(t, srv, http.MethodPost, "/api/backups", `{"label":"before trip"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("backup status=%d body=%s", rr.Code, rr.Body.String())
	}
	b := decodeBody[backupResponse](t, rr)
	if b.Label != "before trip" || b.TransactionCount != 1 {
		t.Fatalf("backup = %+v", b)
	}

	list := decodeBody[[]backupResponse](t, do(t, srv, http.MethodGet, "/api/backups", ""))
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("backups = %+v", list)
	}

	do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Banners","category":"Marketing/Promotion","expense":"10","authorized_by":"Chair"}`)
	if rr := do(t, srv, http.MethodPost, "/api/backups/restore?id="+b.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("restore status=%d body=%s", rr.Code, rr.Body.String())
	}
	if list := decodeBody[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/transactions", "")); len(list) != 1 {
		t.Fatalf("transactions after restore = %d", len(list))
	}
	if rr := do(t, srv, http.MethodPost, "/api/backups/restore?id=missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing backup status=%d", rr.Code)
	}

	ready := decodeBody[map[string]any](t, do(t, srv, http.MethodGet, "/readyz", ""))
	if checks := ready["checks"].(map[string]any); checks["backups"] != "ok" {
		t.Fatalf("readyz = %v", ready)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	books := services.NewFinanceService()
	srv := NewServer(":0", books, WithRateLimit(2))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	body := `{"name":"Fair"}`
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/events", body); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/events", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("status=%d retry=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	// Reads are not limited.
	if rr := do(t, srv, http.MethodGet, "/api/events", ""); rr.Code != http.StatusOK {
		t.Fatalf("GET status=%d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/api/dashboard", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Fatalf("metrics missing http counter")
	}
}
