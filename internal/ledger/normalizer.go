package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xtractpajak/internal/types"
)

// DateLayout is the printed date format of the ledger.
const DateLayout = "02/01/2006"

// ErrSequenceLength is returned when an entry's category and amount
// sequences differ in length. The accumulator never produces such an entry,
// so seeing it means a defect upstream; callers must abort the document.
var ErrSequenceLength = errors.New("ledger: parallel sequence length mismatch")

// ParseError describes a value that could not be normalized.
type ParseError struct {
	Entry int
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ledger: entry %d, field %s (%q): %v", e.Entry, e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseAmount converts a localized money string ("1.234.567,89") to a
// decimal: grouping dots are removed and the decimal comma becomes a point.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	return decimal.NewFromString(clean)
}

// ParseDate parses a DD/MM/YYYY date. An unparseable date returns the zero
// time and false; the record is kept and later dropped by date filters.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Normalize flattens every entry into one record per category, in entry
// order and then category order.
func Normalize(entries []types.RawLedgerEntry) ([]types.NormalizedRecord, error) {
	var records []types.NormalizedRecord

	for i, entry := range entries {
		recs, err := NormalizeEntry(entry)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Entry = i
			}
			return nil, err
		}
		records = append(records, recs...)
	}

	return records, nil
}

// NormalizeEntry flattens a single entry.
func NormalizeEntry(entry types.RawLedgerEntry) ([]types.NormalizedRecord, error) {
	n := len(entry.Categories)
	if len(entry.WithheldAmounts) != n || len(entry.RemittedAmounts) != n || len(entry.BalanceAmounts) != n {
		return nil, &ParseError{
			Field: "categories",
			Text: fmt.Sprintf("%d/%d/%d/%d", n,
				len(entry.WithheldAmounts), len(entry.RemittedAmounts), len(entry.BalanceAmounts)),
			Err: ErrSequenceLength,
		}
	}

	date, _ := ParseDate(entry.DateText)
	records := make([]types.NormalizedRecord, 0, n)

	for i := 0; i < n; i++ {
		withheld, err := parseField("withheld", entry.WithheldAmounts[i])
		if err != nil {
			return nil, err
		}
		remitted, err := parseField("remitted", entry.RemittedAmounts[i])
		if err != nil {
			return nil, err
		}
		balance, err := parseField("balance", entry.BalanceAmounts[i])
		if err != nil {
			return nil, err
		}

		records = append(records, types.NormalizedRecord{
			Date:          date,
			EntryRef:      entry.EntryRef,
			SettlementRef: entry.SettlementRef,
			Narrative:     entry.Narrative,
			Category:      entry.Categories[i],
			Withheld:      withheld,
			Remitted:      remitted,
			Balance:       balance,
		})
	}

	return records, nil
}

func parseField(field, text string) (decimal.Decimal, error) {
	d, err := ParseAmount(text)
	if err != nil {
		return decimal.Zero, &ParseError{Field: field, Text: text, Err: err}
	}
	return d, nil
}
