package leaderboard

import (
	"crypto/sha256"
	"fmt"
)

// SaleRecord is one sale parsed out of an expanded leaderboard card.
// Amount keeps the exact decimal text with thousands separators stripped.
// InvoiceID is the dedup key against the sheet.
type SaleRecord struct {
	Name      string
	Amount    string
	InvoiceID string
}

// SummaryInvoiceID builds the synthetic invoice ID for an aggregate record.
// It hashes the seller name, run date and total amount so the same summary
// seen again on a later run dedups against the row already in the sheet.
func SummaryInvoiceID(name, runDate, amount string) string {
	sum := sha256.Sum256([]byte(name + "|" + runDate + "|" + amount))
	return fmt.Sprintf("SUMMARY-%X", sum[:6])
}
