// =============================================================================
// XtractPajak - Shared Types
// =============================================================================
//
// This package contains the ledger types shared across the pipeline. Keeping
// them here avoids import cycles between:
//   - ledger     (produces raw and normalized entries)
//   - mapper     (consumes normalized records)
//   - summary    (aggregates normalized records)
//   - converter  (orchestrates all of the above)
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER ENTRY TYPES
// =============================================================================

// RawLedgerEntry is one logical ledger entry assembled from consecutive text
// lines. Categories and the three amount sequences are parallel: index i of
// each describes the same category mention.
type RawLedgerEntry struct {
	// DateText is the transaction date as printed (DD/MM/YYYY).
	DateText string

	// EntryRef is the proof-of-payment document number.
	EntryRef string

	// SettlementRef is the NTPN. Empty when the entry was never settled.
	SettlementRef string

	// Narrative collects the free-form description lines.
	Narrative string

	// Categories holds the tax category labels in the order they appeared.
	Categories []string

	// Localized money strings, as printed.
	WithheldAmounts []string
	RemittedAmounts []string
	BalanceAmounts  []string
}

// NormalizedRecord is one (entry, category) pair with numeric amounts.
type NormalizedRecord struct {
	Date          time.Time
	EntryRef      string
	SettlementRef string
	Narrative     string
	Category      string

	// Withheld is the amount deducted (Pemotongan).
	Withheld decimal.Decimal

	// Remitted is the amount paid to the treasury (Penyetoran).
	Remitted decimal.Decimal

	// Balance is the running balance (Saldo).
	Balance decimal.Decimal
}

// Month returns the record's calendar month, or 0 when the date is unknown.
func (r NormalizedRecord) Month() int {
	if r.Date.IsZero() {
		return 0
	}
	return int(r.Date.Month())
}

// Year returns the record's calendar year, or 0 when the date is unknown.
func (r NormalizedRecord) Year() int {
	if r.Date.IsZero() {
		return 0
	}
	return r.Date.Year()
}

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// DocumentType selects the output layout, the category subset and the XML
// element prefix.
type DocumentType string

const (
	// Withholding21 is the employee income tax (PPh 21) withholding document.
	Withholding21 DocumentType = "withholding-21"

	// UnifiedWithholding covers PPh 22, PPh 23 and PPh 4(2) in one document.
	UnifiedWithholding DocumentType = "unified-withholding"
)

// XMLPrefix returns the element prefix used by the bulk XML format.
func (d DocumentType) XMLPrefix() string {
	switch d {
	case Withholding21:
		return "Bp21"
	case UnifiedWithholding:
		return "Bpu"
	default:
		return ""
	}
}

// Label is the short name used in output file names.
func (d DocumentType) Label() string {
	switch d {
	case Withholding21:
		return "Bupot 21"
	case UnifiedWithholding:
		return "Bupot Unifikasi"
	default:
		return string(d)
	}
}

// ParseDocumentType accepts the canonical names and the common short forms
// (21, bp21, unifikasi, bpu).
func ParseDocumentType(s string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "withholding-21", "21", "bp21", "pph21", "bupot21":
		return Withholding21, nil
	case "unified-withholding", "unified", "unifikasi", "bpu", "bppu":
		return UnifiedWithholding, nil
	default:
		return "", fmt.Errorf("unknown document type %q", s)
	}
}
