package google

import (
	"fmt"
	"strings"
	"time"

	"committee/internal/core"
)

// LedgerHeader names the columns written by transactionRow.
var LedgerHeader = []string{
	"Ref", "Recorded At", "Date", "Description", "Category",
	"Income (KD)", "Expense (KD)", "Authorized By", "Receipt", "Notes",
}

// transactionRow lays out txn for the ledger sheet. Amounts keep all three
// fils digits so the sheet sums match the books exactly.
func transactionRow(ref string, txn core.Transaction) []any {
	return []any{
		ref,
		txn.RecordedAt.Format(time.RFC3339),
		txn.Date.String(),
		txn.Description,
		txn.Category,
		txn.Income.StringFixed(core.FilsPlaces),
		txn.Expense.StringFixed(core.FilsPlaces),
		string(txn.AuthorizedBy),
		txn.ReceiptNum,
		txn.Notes,
	}
}

// columnValues flattens the first cell of each row, skipping blanks and
// comments, deduplicated in first-seen order.
func columnValues(rows [][]any) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
