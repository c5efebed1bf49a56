package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"committee/internal/budget"
	"committee/internal/core"
	"committee/internal/metrics"
	"committee/internal/storage"
	"committee/internal/tracker"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePublisher struct {
	mu     sync.Mutex
	sent   []core.Transaction
	err    error
	closed bool
}

func (p *fakePublisher) PublishTransactionRecorded(_ context.Context, txn core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, txn)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type fakeBackups struct {
	saved []storage.Backup
}

func (b *fakeBackups) SaveBackup(_ context.Context, label string, n int, payload []byte) (storage.BackupInfo, error) {
	info := storage.BackupInfo{ID: label + "-id", Label: label, CreatedAt: time.Now(), TransactionCount: n}
	b.saved = append(b.saved, storage.Backup{BackupInfo: info, Payload: append([]byte(nil), payload...)})
	return info, nil
}

func (b *fakeBackups) GetBackup(_ context.Context, id string) (storage.Backup, error) {
	for _, s := range b.saved {
		if s.ID == id {
			return s, nil
		}
	}
	return storage.Backup{}, &core.NotFoundError{Kind: "backup", Name: id}
}

func (b *fakeBackups) LatestBackup(context.Context) (storage.Backup, bool, error) {
	if len(b.saved) == 0 {
		return storage.Backup{}, false, nil
	}
	return b.saved[len(b.saved)-1], true, nil
}

func (b *fakeBackups) ListBackups(context.Context, int) ([]storage.BackupInfo, error) {
	out := make([]storage.BackupInfo, len(b.saved))
	for i, s := range b.saved {
		out[i] = s.BackupInfo
	}
	return out, nil
}

func (b *fakeBackups) Close() error { return nil }

func bakeSale(amount string, by core.Role) core.TransactionDraft {
	return core.TransactionDraft{
		Date:         core.NewDate(2024, 3, 12),
		Description:  "Bake sale",
		Category:     "Fundraising Events",
		Income:       d(amount),
		AuthorizedBy: by,
	}
}

func TestRecordTransactionPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewFinanceService(WithPublisher(pub), WithMetrics(metrics.New()))
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, bakeSale("50", core.Chair)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(pub.sent) != 1 || pub.sent[0].Description != "Bake sale" {
		t.Fatalf("published = %+v", pub.sent)
	}
	if !svc.Balance().Equal(d("50")) {
		t.Fatalf("balance = %s", svc.Balance())
	}

	// Rejected transactions are not announced.
	_, err := svc.RecordTransaction(ctx, bakeSale("150", core.Treasurer))
	var authErr *core.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("rejected transaction was published")
	}
}

func TestRecordTransactionSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewFinanceService(WithPublisher(pub))

	txn, err := svc.RecordTransaction(context.Background(), bakeSale("20", core.Chair))
	if err != nil {
		t.Fatalf("publish failure must not fail the record: %v", err)
	}
	if txn.RecordedAt.IsZero() || len(svc.Transactions()) != 1 {
		t.Fatalf("transaction not recorded")
	}
}

func TestDashboard(t *testing.T) {
	svc := NewFinanceService()
	ctx := context.Background()
	_ = svc.AdjustBudget(ctx, budget.Income, "Sponsorships", d("400"))
	_, _ = svc.RecordTransaction(ctx, bakeSale("100", core.Chair))
	_, _ = svc.RecordTransaction(ctx, core.TransactionDraft{Description: "Prints", Category: "Yearbook", Expense: d("40"), AuthorizedBy: core.Chair})

	dash := svc.Dashboard()
	if !dash.Balance.Equal(d("60")) || !dash.EmergencyReserve.Equal(d("15")) || !dash.AvailableFunds.Equal(d("45")) {
		t.Fatalf("dashboard = %+v", dash)
	}
	if dash.TransactionCount != 2 || !dash.IncomeBudget.Budget.Equal(d("400")) || !dash.ExpenseBudget.Actual.Equal(d("40")) {
		t.Fatalf("dashboard = %+v", dash)
	}
}

func TestDashboardConsistentWhileRecording(t *testing.T) {
	svc := NewFinanceService()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, _ = svc.RecordTransaction(ctx, bakeSale("1", core.Chair))
		}
	}()

	for {
		dash := svc.Dashboard()
		if !dash.TotalIncome.Equal(dash.IncomeBudget.Actual) {
			t.Fatalf("total income %s, income actuals %s", dash.TotalIncome, dash.IncomeBudget.Actual)
		}
		select {
		case <-done:
			if got := svc.Dashboard(); got.TransactionCount != 100 || !got.IncomeBudget.Actual.Equal(d("100")) {
				t.Fatalf("dashboard = %+v", got)
			}
			return
		default:
		}
	}
}

func TestSectionTotalsMatchLines(t *testing.T) {
	svc := NewFinanceService()
	_, _ = svc.RecordTransaction(context.Background(), bakeSale("30", core.Chair))

	sec := svc.Section(budget.Income)
	sum := decimal.Zero
	for _, line := range sec.Lines {
		sum = sum.Add(line.Actual)
	}
	if !sum.Equal(sec.Totals.Actual) || !sum.Equal(d("30")) {
		t.Fatalf("lines sum %s, totals %+v", sum, sec.Totals)
	}
}

func TestReportsUseServiceClock(t *testing.T) {
	at := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	svc := NewFinanceService(WithClock(func() time.Time { return at }), WithLocation(time.UTC))
	_, _ = svc.RecordTransaction(context.Background(), bakeSale("30", core.Chair))

	r, err := svc.MonthlyReport(0, 0)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if r.Month != 3 || r.Year != 2024 || !r.TotalIncome.Equal(d("30")) {
		t.Fatalf("report = %+v", r)
	}
	ytd, err := svc.YearToDateReport(2024)
	if err != nil || len(ytd.Months) != 3 || !ytd.TotalIncome.Equal(d("30")) {
		t.Fatalf("ytd = %+v err=%v", ytd, err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewFinanceService()
	_ = src.AddCategory(ctx, budget.Income, "Snack Sales", d("90"))
	_, _ = src.RecordTransaction(ctx, bakeSale("50", core.Chair))
	_, _ = src.RecordTransaction(ctx, core.TransactionDraft{Description: "Chips", Category: "Snack Sales", Income: d("12.5"), AuthorizedBy: core.Chair})
	_, _ = src.CreateEvent(ctx, tracker.EventDraft{Name: "Fair"})
	_, _ = src.CreateInitiative(ctx, tracker.InitiativeDraft{Name: "Car Wash", GoalAmount: d("100")})

	var buf bytes.Buffer
	if err := src.Export(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := NewFinanceService()
	if err := dst.Import(ctx, &buf); err != nil {
		t.Fatalf("import: %v", err)
	}

	if !dst.Balance().Equal(src.Balance()) {
		t.Fatalf("balance %s != %s", dst.Balance(), src.Balance())
	}
	srcTx, dstTx := src.Transactions(), dst.Transactions()
	if len(dstTx) != 2 || dstTx[0].Description != srcTx[0].Description || dstTx[1].Description != srcTx[1].Description {
		t.Fatalf("transaction order lost: %+v", dstTx)
	}
	srcCats, dstCats := src.Categories(budget.Income), dst.Categories(budget.Income)
	if len(srcCats) != len(dstCats) {
		t.Fatalf("category count %d != %d", len(dstCats), len(srcCats))
	}
	for i := range srcCats {
		if srcCats[i].Name != dstCats[i].Name || !srcCats[i].Actual.Equal(dstCats[i].Actual) {
			t.Fatalf("category %d: %+v != %+v", i, dstCats[i], srcCats[i])
		}
	}
	if len(dst.Events()) != 1 || len(dst.Initiatives()) != 1 {
		t.Fatalf("trackers not imported")
	}
}

func TestImportReadsNaiveTimestampsInServiceZone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	svc := NewFinanceService(
		WithLocation(jst),
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, jst) }))

	// 00:30 on April 1st in the committee's zone, written without a zone.
	in := `{"transactions": [{"date": "2024-03-31", "description": "Late raffle", "category": "Fundraising Events",
		"income": 20, "expense": 0, "authorized_by": "Chair", "receipt_num": "", "notes": "",
		"timestamp": "2024-04-01T00:30:00"}]}`
	if err := svc.Import(context.Background(), strings.NewReader(in)); err != nil {
		t.Fatalf("import: %v", err)
	}

	if got, want := svc.Transactions()[0].RecordedAt, time.Date(2024, 4, 1, 0, 30, 0, 0, jst); !got.Equal(want) {
		t.Fatalf("recorded at %v, want %v", got, want)
	}
	april, err := svc.MonthlyReport(4, 2024)
	if err != nil {
		t.Fatalf("april: %v", err)
	}
	march, err := svc.MonthlyReport(3, 2024)
	if err != nil {
		t.Fatalf("march: %v", err)
	}
	if len(april.Transactions) != 1 || len(march.Transactions) != 0 {
		t.Fatalf("april=%d march=%d, want 1 and 0", len(april.Transactions), len(march.Transactions))
	}
}

func TestImportOnlyEventsLeavesRestIntact(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService()
	_, _ = svc.RecordTransaction(ctx, bakeSale("50", core.Chair))
	_, _ = svc.CreateInitiative(ctx, tracker.InitiativeDraft{Name: "Raffle"})

	in := `{"events": [{"name": "Gala", "status": "Active"}]}`
	if err := svc.Import(ctx, strings.NewReader(in)); err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(svc.Transactions()) != 1 || !svc.Balance().Equal(d("50")) {
		t.Fatalf("transactions touched by import")
	}
	lines := svc.Categories(budget.Income)
	if lines[0].Name != "Fundraising Events" || !lines[0].Actual.Equal(d("50")) {
		t.Fatalf("budget touched by import: %+v", lines[0])
	}
	if len(svc.Initiatives()) != 1 {
		t.Fatalf("fundraising touched by import")
	}
	ev, err := svc.Event("Gala")
	if err != nil || ev.Status != core.Active {
		t.Fatalf("event = %+v err=%v", ev, err)
	}
}

func TestImportRejectsBadDocumentWithoutChanges(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService()
	_, _ = svc.RecordTransaction(ctx, bakeSale("50", core.Chair))

	bad := `{"transactions": [], "events": [{"name": "x", "status": "Cancelled"}]}`
	if err := svc.Import(ctx, strings.NewReader(bad)); err == nil {
		t.Fatalf("expected error")
	}
	if len(svc.Transactions()) != 1 {
		t.Fatalf("partial import applied")
	}

	var ve *core.ValidationError
	if err := svc.Import(ctx, strings.NewReader("{")); !errors.As(err, &ve) {
		t.Fatalf("malformed json: got %v", err)
	}
}

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	store := &fakeBackups{}
	svc := NewFinanceService(WithBackupStore(store))
	_, _ = svc.RecordTransaction(ctx, bakeSale("50", core.Chair))

	info, err := svc.Backup(ctx, "nightly")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if info.TransactionCount != 1 {
		t.Fatalf("count = %d", info.TransactionCount)
	}

	_, _ = svc.RecordTransaction(ctx, bakeSale("10", core.Chair))
	if _, err := svc.RestoreBackup(ctx, ""); err != nil {
		t.Fatalf("restore latest: %v", err)
	}
	if len(svc.Transactions()) != 1 || !svc.Balance().Equal(d("50")) {
		t.Fatalf("restore did not roll back: balance=%s", svc.Balance())
	}

	var nf *core.NotFoundError
	if _, err := svc.RestoreBackup(ctx, "nope"); !errors.As(err, &nf) {
		t.Fatalf("unknown backup: got %v", err)
	}

	list, _ := svc.ListBackups(ctx, 10)
	if len(list) != 1 || list[0].Label != "nightly" {
		t.Fatalf("list = %+v", list)
	}
}

func TestBackupWithoutStore(t *testing.T) {
	svc := NewFinanceService()
	if _, err := svc.Backup(context.Background(), "x"); !errors.Is(err, ErrNoBackupStore) {
		t.Fatalf("got %v", err)
	}
	if _, err := svc.RestoreBackup(context.Background(), ""); !errors.Is(err, ErrNoBackupStore) {
		t.Fatalf("got %v", err)
	}
}

func TestRestoreLatestWithEmptyArchive(t *testing.T) {
	svc := NewFinanceService(WithBackupStore(&fakeBackups{}))
	var nf *core.NotFoundError
	if _, err := svc.RestoreBackup(context.Background(), ""); !errors.As(err, &nf) {
		t.Fatalf("got %v", err)
	}
}

func TestTrackerOperations(t *testing.T) {
	ctx := context.Background()
	svc := NewFinanceService()

	if _, err := svc.CreateEvent(ctx, tracker.EventDraft{Name: "Fair", ProjectedIncome: d("300")}); err != nil {
		t.Fatalf("create event: %v", err)
	}
	if _, err := svc.UpdateEventActuals(ctx, "Fair", d("250"), d("100")); err != nil {
		t.Fatalf("actuals: %v", err)
	}
	if _, err := svc.AddEventIncomeSource("Fair", core.LineItem{Description: "Tickets", Amount: d("250")}); err != nil {
		t.Fatalf("income source: %v", err)
	}
	ev, err := svc.SetEventStatus(ctx, "Fair", core.Completed)
	if err != nil || ev.Status != core.Completed || !ev.ActualProfit().Equal(d("150")) {
		t.Fatalf("event = %+v err=%v", ev, err)
	}

	_, _ = svc.CreateInitiative(ctx, tracker.InitiativeDraft{Name: "Car Wash", GoalAmount: d("200")})
	if _, err := svc.UpdateInitiativeFigures(ctx, "Car Wash", d("180"), d("20"), d("160")); err != nil {
		t.Fatalf("figures: %v", err)
	}
	sum := svc.FundraisingSummary()
	if !sum.HasRate || !sum.SuccessRate.Equal(d("90")) {
		t.Fatalf("summary = %+v", sum)
	}

	// Trackers are not reconciled with the ledger.
	if !svc.Balance().IsZero() {
		t.Fatalf("balance = %s", svc.Balance())
	}
}

func TestClose(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewFinanceService(WithPublisher(pub), WithBackupStore(&fakeBackups{}))
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !pub.closed {
		t.Fatalf("publisher not closed")
	}
	if err := NewFinanceService().Close(); err != nil {
		t.Fatalf("close with nil collaborators: %v", err)
	}
}
