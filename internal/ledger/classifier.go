// =============================================================================
// XtractPajak - Line Classifier
// =============================================================================
//
// Classify inspects one line of ledger text and reports which line kinds it
// matches. A single line may match several kinds at once (an opening line
// usually carries both the date and the proof-of-payment number); deciding
// what to do with the matches is the accumulator's job.
//
// LINE KINDS:
//   - Date        : DD/MM/YYYY
//   - EntryRef    : NNNN(N)/AAA/NN.NNNN/NNNN
//   - Settlement  : "NTPN : <alphanumeric>"
//   - Category    : one of the known tax category phrases
//   - Amounts     : localized money strings (1.234.567,89)
//   - HeaderNoise : repeated table headers
//
// =============================================================================

package ledger

import (
	"regexp"
	"strings"
)

// =============================================================================
// PATTERNS
// =============================================================================

var (
	datePattern       = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
	entryRefPattern   = regexp.MustCompile(`(\d{4,5}/[A-Z]{3}/\d{2}\.\d{4}/\d{4})`)
	settlementPattern = regexp.MustCompile(`NTPN\s*:\s*([A-Z0-9]+)`)

	// categoryPattern recognises the fixed category phrases. For the
	// "Potongan Pajak ..." family the inner group holds the reported label.
	categoryPattern = regexp.MustCompile(
		`(Uang Muka dan Jaminan|Pajak Restoran, Rumah Makan|Potongan Pajak (PPN Pusat|PPh Pasal 21|PPh Pasal 22|PPh Pasal 23|PPh Pasal 4 ayat \(2\)|Lainnn?ya))`)

	amountPattern = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`)
)

// =============================================================================
// CLASSIFICATION RESULT
// =============================================================================

// Classification holds every pattern match found on a line. Empty strings
// and a nil Amounts slice mean "no match".
type Classification struct {
	Date          string
	EntryRef      string
	SettlementRef string
	Category      string
	Amounts       []string
	HeaderNoise   bool
}

// HasDate reports whether a date was found.
func (c Classification) HasDate() bool { return c.Date != "" }

// HasEntryRef reports whether an entry reference was found.
func (c Classification) HasEntryRef() bool { return c.EntryRef != "" }

// HasSettlement reports whether a settlement reference was found.
func (c Classification) HasSettlement() bool { return c.SettlementRef != "" }

// HasCategory reports whether a category phrase was found.
func (c Classification) HasCategory() bool { return c.Category != "" }

// Matched reports whether any pattern other than header noise matched.
func (c Classification) Matched() bool {
	return c.HasDate() || c.HasEntryRef() || c.HasSettlement() || c.HasCategory() || len(c.Amounts) > 0
}

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify is a pure function of the line text.
func Classify(line string) Classification {
	var c Classification

	if m := datePattern.FindStringSubmatch(line); m != nil {
		c.Date = m[1]
	}
	if m := entryRefPattern.FindStringSubmatch(line); m != nil {
		c.EntryRef = m[1]
	}
	if m := settlementPattern.FindStringSubmatch(line); m != nil {
		c.SettlementRef = m[1]
	}
	if m := categoryPattern.FindStringSubmatch(line); m != nil {
		c.Category = m[1]
		if m[2] != "" {
			c.Category = m[2]
		}
	}
	c.Amounts = amountPattern.FindAllString(line, -1)
	c.HeaderNoise = isHeaderNoise(line)

	return c
}

// isHeaderNoise matches the column header rows repeated on every page.
func isHeaderNoise(line string) bool {
	if strings.Contains(line, "Pemotongan") && strings.Contains(line, "Penyetoran") {
		return true
	}
	return strings.Contains(line, "Uraian") || strings.Contains(line, "Rp")
}
