package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"committee/internal/budget"
	"committee/internal/core"
	"committee/internal/ledger"
	"committee/internal/metrics"
	"committee/internal/report"
	"committee/internal/snapshot"
	"committee/internal/storage"
	"committee/internal/tracker"
)

var ErrNoBackupStore = errors.New("backup store not configured")

type (
	// Publisher announces recorded transactions to other processes.
	Publisher interface {
		PublishTransactionRecorded(ctx context.Context, txn core.Transaction) error
		Close() error
	}

	BackupStore interface {
		SaveBackup(ctx context.Context, label string, txnCount int, payload []byte) (storage.BackupInfo, error)
		GetBackup(ctx context.Context, id string) (storage.Backup, error)
		LatestBackup(ctx context.Context) (storage.Backup, bool, error)
		ListBackups(ctx context.Context, limit int) ([]storage.BackupInfo, error)
		Close() error
	}

	Option func(*options)

	options struct {
		registry  *budget.Registry
		now       func() time.Time
		loc       *time.Location
		publisher Publisher
		backups   BackupStore
		metrics   *metrics.Metrics
	}

	// FinanceService owns the committee's books for one process: the ledger,
	// its reports, and the event and fundraising trackers.
	FinanceService struct {
		// mu is held for writing only by Import; every other operation holds
		// it for reading and relies on the component locks underneath.
		mu          sync.RWMutex
		ledger      *ledger.Ledger
		reports     *report.Generator
		events      *tracker.Events
		fundraising *tracker.Fundraising

		// loc reads zone-less timestamps on import, matching report months.
		loc *time.Location

		publisher Publisher
		backups   BackupStore
		metrics   *metrics.Metrics
	}

	Dashboard struct {
		Balance          decimal.Decimal
		EmergencyReserve decimal.Decimal
		AvailableFunds   decimal.Decimal
		TotalIncome      decimal.Decimal
		TotalExpenses    decimal.Decimal
		TransactionCount int
		IncomeBudget     budget.Entry
		ExpenseBudget    budget.Entry
	}
)

// WithRegistry starts the books from reg instead of the default categories.
func WithRegistry(reg *budget.Registry) Option {
	return func(o *options) { o.registry = reg }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the zone used to bucket transactions into report months.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithBackupStore(b BackupStore) Option {
	return func(o *options) { o.backups = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func NewFinanceService(opts ...Option) *FinanceService {
	o := options{now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	l := ledger.New(o.registry, ledger.WithClock(o.now))
	return &FinanceService{
		ledger:      l,
		reports:     report.NewGenerator(l, report.WithClock(o.now), report.WithLocation(o.loc)),
		events:      tracker.NewEvents(),
		fundraising: tracker.NewFundraising(),
		loc:         o.loc,
		publisher:   o.publisher,
		backups:     o.backups,
		metrics:     o.metrics,
	}
}

// RecordTransaction records draft in the ledger and announces it. Publishing
// is best effort: once recorded, the transaction stands.
func (s *FinanceService) RecordTransaction(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error) {
	s.mu.RLock()
	txn, err := s.ledger.Record(draft)
	s.mu.RUnlock()

	if err != nil {
		var authErr *core.AuthorizationError
		switch {
		case errors.As(err, &authErr):
			s.metrics.TransactionSubmitted(metrics.ResultUnauthorized)
			slog.WarnContext(ctx, "Transaction rejected: authorization",
				"category", draft.Category,
				"amount", draft.Amount().String(),
				"authorized_by", draft.AuthorizedBy,
				"required", authErr.Required)
		default:
			s.metrics.TransactionSubmitted(metrics.ResultInvalid)
			slog.InfoContext(ctx, "Transaction rejected: validation", "error", err)
		}
		return core.Transaction{}, err
	}

	s.metrics.TransactionSubmitted(metrics.ResultRecorded)
	totals := s.ledger.State().Totals
	s.metrics.SetFunds(totals.Balance, totals.Reserve, totals.Available)

	slog.InfoContext(ctx, "Transaction recorded",
		"description", txn.Description,
		"category", txn.Category,
		"income", txn.Income.String(),
		"expense", txn.Expense.String(),
		"authorized_by", txn.AuthorizedBy,
		"balance", totals.Balance.String())

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionRecorded(ctx, txn); err != nil {
			s.metrics.PublishFailed()
			slog.ErrorContext(ctx, "Failed to publish transaction", "error", err, "category", txn.Category)
		}
	}
	return txn, nil
}

// RequiredSigners reports who must authorize a transaction of amount in category.
func (s *FinanceService) RequiredSigners(category string, amount decimal.Decimal) []core.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.RequiredSigners(category, amount)
}

func (s *FinanceService) Balance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Balance()
}

func (s *FinanceService) RequiredReserve() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.RequiredReserve()
}

func (s *FinanceService) AvailableFunds() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.AvailableFunds()
}

func (s *FinanceService) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Transactions()
}

func (s *FinanceService) Dashboard() Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ov := s.ledger.Overview()
	return Dashboard{
		Balance:          ov.Totals.Balance,
		EmergencyReserve: ov.Totals.Reserve,
		AvailableFunds:   ov.Totals.Available,
		TotalIncome:      ov.Totals.Income,
		TotalExpenses:    ov.Totals.Expenses,
		TransactionCount: len(ov.Transactions),
		IncomeBudget:     ov.Income.Totals,
		ExpenseBudget:    ov.Expenses.Totals,
	}
}

func (s *FinanceService) MonthlyReport(month, year int) (report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports.MonthlyReport(month, year)
}

func (s *FinanceService) YearToDateReport(year int) (report.YearToDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports.YearToDateReport(year)
}

func (s *FinanceService) AddCategory(ctx context.Context, section budget.Section, name string, amount decimal.Decimal) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ledger.AddCategory(section, name, amount); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category added", "section", section, "name", name, "budget", amount.String())
	return nil
}

func (s *FinanceService) AdjustBudget(ctx context.Context, section budget.Section, name string, amount decimal.Decimal) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ledger.AdjustBudget(section, name, amount); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget adjusted", "section", section, "name", name, "budget", amount.String())
	return nil
}

func (s *FinanceService) Categories(section budget.Section) []budget.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Categories(section)
}

// Section returns the lines of section together with their totals.
func (s *FinanceService) Section(section budget.Section) ledger.SectionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Section(section)
}

// Export writes the full books as a snapshot document.
func (s *FinanceService) Export(w io.Writer) error {
	doc, _ := s.exportDocument()
	return snapshot.Encode(w, doc)
}

func (s *FinanceService) exportDocument() (snapshot.Document, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, txns := s.ledger.Books()
	c := snapshot.Contents{
		Registry:     reg,
		Transactions: txns,
		Events:       s.events.List(),
		Initiatives:  s.fundraising.List(),
	}
	// Every key is written, even when empty.
	if c.Transactions == nil {
		c.Transactions = []core.Transaction{}
	}
	if c.Initiatives == nil {
		c.Initiatives = []core.Initiative{}
	}
	return snapshot.FromContents(c), len(txns)
}

// Import replaces every collection present in the document read from r. The
// document is fully decoded and checked before anything is replaced.
func (s *FinanceService) Import(ctx context.Context, r io.Reader) error {
	doc, err := snapshot.Decode(r)
	if err != nil {
		return &core.ValidationError{Field: "snapshot", Err: err}
	}
	c, err := doc.ContentsIn(s.loc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ledger.Replace(c.Registry, c.Transactions)
	if c.Events != nil {
		s.events.Replace(c.Events)
	}
	if c.Initiatives != nil {
		s.fundraising.Replace(c.Initiatives)
	}
	totals := s.ledger.State().Totals
	s.mu.Unlock()

	s.metrics.SetFunds(totals.Balance, totals.Reserve, totals.Available)
	slog.InfoContext(ctx, "Snapshot imported",
		"budget", c.Registry != nil,
		"transactions", len(c.Transactions),
		"events", len(c.Events),
		"fundraising", len(c.Initiatives))
	return nil
}

// Backup stores a snapshot of the books in the backup archive.
func (s *FinanceService) Backup(ctx context.Context, label string) (storage.BackupInfo, error) {
	if s.backups == nil {
		return storage.BackupInfo{}, ErrNoBackupStore
	}

	doc, count := s.exportDocument()
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, doc); err != nil {
		s.metrics.BackupDone(metrics.ResultError)
		return storage.BackupInfo{}, err
	}
	info, err := s.backups.SaveBackup(ctx, label, count, buf.Bytes())
	if err != nil {
		s.metrics.BackupDone(metrics.ResultError)
		return storage.BackupInfo{}, fmt.Errorf("save backup: %w", err)
	}
	s.metrics.BackupDone(metrics.ResultOK)
	return info, nil
}

// RestoreBackup imports the backup with the given id, or the latest one when
// id is empty.
func (s *FinanceService) RestoreBackup(ctx context.Context, id string) (storage.BackupInfo, error) {
	if s.backups == nil {
		return storage.BackupInfo{}, ErrNoBackupStore
	}

	var (
		b   storage.Backup
		err error
	)
	if id == "" {
		var ok bool
		b, ok, err = s.backups.LatestBackup(ctx)
		if err == nil && !ok {
			err = &core.NotFoundError{Kind: "backup", Name: "latest"}
		}
	} else {
		b, err = s.backups.GetBackup(ctx, id)
	}
	if err != nil {
		return storage.BackupInfo{}, err
	}

	if err := s.Import(ctx, bytes.NewReader(b.Payload)); err != nil {
		return storage.BackupInfo{}, fmt.Errorf("restore backup %s: %w", b.ID, err)
	}
	slog.InfoContext(ctx, "Backup restored", "id", b.ID, "created_at", b.CreatedAt)
	return b.BackupInfo, nil
}

func (s *FinanceService) ListBackups(ctx context.Context, limit int) ([]storage.BackupInfo, error) {
	if s.backups == nil {
		return nil, ErrNoBackupStore
	}
	return s.backups.ListBackups(ctx, limit)
}

// Close releases the publisher and the backup store.
func (s *FinanceService) Close() error {
	var errs []error
	if s.backups != nil {
		if err := s.backups.Close(); err != nil {
			errs = append(errs, fmt.Errorf("backups: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
