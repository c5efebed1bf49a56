package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"committee/internal/core"
)

// TransactionRecordedMessage announces a transaction accepted by the ledger.
// It carries the full transaction so consumers need no access to the engine.
type TransactionRecordedMessage struct {
	ID           string          `json:"id"`
	Date         core.Date       `json:"date"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	AuthorizedBy string          `json:"authorized_by"`
	ReceiptNum   string          `json:"receipt_num"`
	Notes        string          `json:"notes"`
	RecordedAt   time.Time       `json:"recorded_at"`
	Timestamp    time.Time       `json:"timestamp"`
}

func NewTransactionRecordedMessage(txn core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		ID:           uuid.NewString(),
		Date:         txn.Date,
		Description:  txn.Description,
		Category:     txn.Category,
		Income:       txn.Income,
		Expense:      txn.Expense,
		AuthorizedBy: string(txn.AuthorizedBy),
		ReceiptNum:   txn.ReceiptNum,
		Notes:        txn.Notes,
		RecordedAt:   txn.RecordedAt,
		Timestamp:    time.Now(),
	}
}

// Transaction rebuilds the ledger entry carried by the message.
func (m *TransactionRecordedMessage) Transaction() core.Transaction {
	return core.Transaction{
		TransactionDraft: core.TransactionDraft{
			Date:         m.Date,
			Description:  m.Description,
			Category:     m.Category,
			Income:       m.Income,
			Expense:      m.Expense,
			AuthorizedBy: core.Role(m.AuthorizedBy),
			ReceiptNum:   m.ReceiptNum,
			Notes:        m.Notes,
		},
		RecordedAt: m.RecordedAt,
	}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
