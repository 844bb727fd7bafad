package parsing

import "time"

// Source identifies where the scanned text came from. It drives which
// extraction rules get priority in the parser.
type Source string

const (
	// SourceCamera is the generic default for photographed receipts.
	SourceCamera Source = "camera"
	// SourceKaspiPDF marks a Kaspi bank statement export.
	SourceKaspiPDF Source = "kaspi_pdf"
	// SourceHalykPDF marks a Halyk bank statement export.
	SourceHalykPDF Source = "halyk_pdf"
)

// Category is a suggested expense category for a parsed receipt.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryHealth        Category = "health"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryUtilities     Category = "utilities"
	CategoryEducation     Category = "education"
	CategoryTransfer      Category = "transfer"
	CategoryOther         Category = "other"
)

// ParsedReceipt is the structured result of parsing recognized receipt text.
// It is produced once per scan and never mutated afterwards.
type ParsedReceipt struct {
	// Amount is the extracted transaction total. When present it is
	// always greater than zero.
	Amount *float64 `json:"amount,omitempty"`

	// Merchant is the best-effort vendor name.
	Merchant string `json:"merchant,omitempty"`

	// Date is the transaction date, with time of day when the receipt
	// printed one.
	Date *time.Time `json:"date,omitempty"`

	// ReceiptNumber is the printed receipt or cheque number.
	ReceiptNumber string `json:"receipt_number,omitempty"`

	// Source records the detected provenance of the text.
	Source Source `json:"source"`

	// RawText is the full text handed to the parser, retained for audit
	// and manual correction.
	RawText string `json:"raw_text"`

	// Confidence is a weighted completeness score in [0, 1].
	Confidence float64 `json:"confidence"`

	// SuggestedCategory is the keyword-derived category hint. It is never
	// empty; CategoryOther is the fallback.
	SuggestedCategory Category `json:"suggested_category"`
}

// IsValid reports whether the receipt can be persisted. A positive amount is
// the sole requirement; everything else is best-effort.
func (r ParsedReceipt) IsValid() bool {
	return r.Amount != nil && *r.Amount > 0
}
