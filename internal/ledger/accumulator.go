// =============================================================================
// XtractPajak - Entry Accumulator
// =============================================================================
//
// The accumulator rebuilds ledger entries from the classified text lines. It
// is a two-state machine:
//
//   stateIdle  --(date + entry ref)-->  stateOpen
//   stateOpen  --(date + entry ref)-->  stateOpen   (previous entry sealed)
//   stateOpen  --(end of input)------>  stateIdle   (entry sealed)
//
// Within one line the rules fire in a fixed order:
//   1. opening        (date and entry reference)
//   2. entry ref only (overwrites the open entry's reference)
//   3. settlement     (overwrites the open entry's NTPN)
//   4. category       (appends one label and its first three amounts)
//   5. narrative      (only when nothing above, and no amount, matched)
//
// Lines seen while idle contribute nothing; they are counted in Stats.
//
// =============================================================================

package ledger

import (
	"strings"

	"github.com/ginjaninja78/xtractpajak/internal/types"
)

// =============================================================================
// STATE
// =============================================================================

type state int

const (
	stateIdle state = iota
	stateOpen
)

func (s state) String() string {
	if s == stateOpen {
		return "open"
	}
	return "idle"
}

// narrativeSeparator joins narrative fragments from consecutive lines.
const narrativeSeparator = " "

// Stats counts what the accumulator did with its input.
type Stats struct {
	Lines int

	// EntriesSealed is the number of entries produced.
	EntriesSealed int

	// DroppedCategories counts category lines with fewer than three amounts.
	DroppedCategories int

	// NoiseLines counts header lines skipped during narrative collection.
	NoiseLines int

	// IdleLines counts lines that arrived while no entry was open.
	IdleLines int
}

// Accumulator is not safe for concurrent use. Create one per document.
type Accumulator struct {
	state   state
	current types.RawLedgerEntry
	sealed  []types.RawLedgerEntry
	stats   Stats
}

// NewAccumulator returns an idle accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{state: stateIdle}
}

// Accumulate runs a fresh accumulator over lines and returns the sealed
// entries together with the counters.
func Accumulate(lines []string) ([]types.RawLedgerEntry, Stats) {
	a := NewAccumulator()
	for _, line := range lines {
		a.Feed(line)
	}
	return a.Finish(), a.Stats()
}

// =============================================================================
// FEED
// =============================================================================

// Feed classifies one line and applies the transition rules to it.
func (a *Accumulator) Feed(line string) {
	a.stats.Lines++
	c := Classify(line)

	if a.state == stateIdle && !(c.HasDate() && c.HasEntryRef()) {
		a.stats.IdleLines++
		if c.HasCategory() && len(c.Amounts) < 3 {
			a.stats.DroppedCategories++
		}
		return
	}

	switch {
	case c.HasDate() && c.HasEntryRef():
		a.onOpening(c)
	case c.HasEntryRef():
		a.onEntryRef(c)
	}
	if c.HasSettlement() {
		a.onSettlement(c)
	}
	if c.HasCategory() {
		a.onCategory(c)
	}
	if !c.Matched() {
		a.onNarrative(line, c)
	}
}

// Finish seals the open entry, if any, and returns every sealed entry in
// document order. The accumulator is idle afterwards.
func (a *Accumulator) Finish() []types.RawLedgerEntry {
	if a.state == stateOpen {
		a.seal()
	}
	return a.sealed
}

// Stats returns the counters collected so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func (a *Accumulator) onOpening(c Classification) {
	if a.state == stateOpen {
		a.seal()
	}
	a.current = types.RawLedgerEntry{
		DateText: c.Date,
		EntryRef: c.EntryRef,
	}
	a.state = stateOpen
}

func (a *Accumulator) onEntryRef(c Classification) {
	a.current.EntryRef = c.EntryRef
}

func (a *Accumulator) onSettlement(c Classification) {
	a.current.SettlementRef = c.SettlementRef
}

func (a *Accumulator) onCategory(c Classification) {
	if len(c.Amounts) < 3 {
		a.stats.DroppedCategories++
		return
	}
	a.current.Categories = append(a.current.Categories, c.Category)
	a.current.WithheldAmounts = append(a.current.WithheldAmounts, c.Amounts[0])
	a.current.RemittedAmounts = append(a.current.RemittedAmounts, c.Amounts[1])
	a.current.BalanceAmounts = append(a.current.BalanceAmounts, c.Amounts[2])
}

func (a *Accumulator) onNarrative(line string, c Classification) {
	if c.HeaderNoise {
		a.stats.NoiseLines++
		return
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	a.current.Narrative += trimmed + narrativeSeparator
}

func (a *Accumulator) seal() {
	// Fragments are appended with a trailing separator; a sealed narrative
	// keeps only the inner ones.
	a.current.Narrative = strings.TrimSpace(a.current.Narrative)
	a.sealed = append(a.sealed, a.current)
	a.current = types.RawLedgerEntry{}
	a.state = stateIdle
	a.stats.EntriesSealed++
}
