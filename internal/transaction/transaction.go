package transaction

import (
	"time"

	"github.com/abenov/tenge-scan/internal/parsing"
)

// Transaction is a confirmed, durable record produced from a scanned receipt.
type Transaction struct {
	ID            string           `json:"id"`
	AmountCents   int              `json:"amount_cents"` // Amount in tiyn (cents)
	Category      parsing.Category `json:"category"`
	Source        parsing.Source   `json:"source"`
	Merchant      string           `json:"merchant,omitempty"`
	ReceiptNumber string           `json:"receipt_number,omitempty"`
	RawText       string           `json:"raw_text"` // Retained for audit and manual correction
	Note          string           `json:"note,omitempty"`
	Date          time.Time        `json:"date"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
