package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"committee/internal/core"
	ports "committee/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type (
	Config struct {
		SpreadsheetID string
		// SheetName is the base tab name; the year of each transaction is
		// prefixed, e.g. "2024 Ledger".
		SheetName       string
		CredentialsJSON string
		CredentialsFile string
	}

	Client struct {
		svc           *gsheet.Service
		spreadsheetID string
		sheetBase     string

		// refs caches the message references already present per sheet.
		mu   sync.Mutex
		refs map[string]map[string]struct{}
	}
)

var _ ports.LedgerAppender = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Ledger"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     base,
		refs:          make(map[string]map[string]struct{}),
	}, nil
}

// newSheetsService initializes a Sheets service from service account
// credentials, inline or from a file. GOOGLE_APPLICATION_CREDENTIALS is used
// when neither is configured.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendTransaction adds one row for txn to the sheet of its recording year.
// A ref already present in the sheet is not appended again.
func (c *Client) AppendTransaction(ctx context.Context, ref string, txn core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := txn.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	sheet := yearPrefixedName(c.sheetBase, txn.RecordedAt.Year())
	seen, err := c.knownRefs(ctx, sheet)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	_, dup := seen[ref]
	c.mu.Unlock()
	if dup && ref != "" {
		slog.InfoContext(ctx, "Transaction already mirrored, skipping", "ref", ref, "sheet", sheet)
		return sheet, nil
	}

	rng := fmt.Sprintf("%s!A:J", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{transactionRow(ref, txn)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	c.mu.Lock()
	seen[ref] = struct{}{}
	c.mu.Unlock()

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return sheet, nil
}

// knownRefs loads the reference column of sheet once and caches it.
func (c *Client) knownRefs(ctx context.Context, sheet string) (map[string]struct{}, error) {
	c.mu.Lock()
	cached, ok := c.refs[sheet]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	refs, err := c.readCol(ctx, sheet, "A2:A")
	if err != nil {
		return nil, fmt.Errorf("failed to read refs: %w", err)
	}
	set := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.refs[sheet]; ok {
		return existing, nil
	}
	c.refs[sheet] = set
	return set, nil
}

func (c *Client) readCol(ctx context.Context, sheetName, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return columnValues(resp.Values), nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
