package mapper

import (
	"github.com/ginjaninja78/xtractpajak/internal/category"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

// Criteria selects the records that reach the mapper.
type Criteria struct {
	// Month restricts records to one calendar month (1-12). 0 keeps all.
	Month int

	// Categories restricts records to these tags. Empty keeps all.
	Categories []category.Tag
}

// CriteriaFor builds the criteria for a layout and month.
func CriteriaFor(l Layout, month int) Criteria {
	return Criteria{Month: month, Categories: l.Categories}
}

// Filter keeps records with a positive withheld amount and a known date
// that match the month and category criteria. Order is preserved.
func Filter(records []types.NormalizedRecord, c Criteria) []types.NormalizedRecord {
	allowed := make(map[category.Tag]bool, len(c.Categories))
	for _, tag := range c.Categories {
		allowed[tag] = true
	}

	var out []types.NormalizedRecord
	for _, r := range records {
		if !r.Withheld.IsPositive() {
			continue
		}
		if r.Date.IsZero() {
			continue
		}
		if c.Month != 0 && r.Month() != c.Month {
			continue
		}
		if len(allowed) > 0 && !allowed[category.Classify(r.Category)] {
			continue
		}
		out = append(out, r)
	}
	return out
}
