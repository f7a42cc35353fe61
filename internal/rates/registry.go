// =============================================================================
// XtractPajak - Rate Registry
// =============================================================================
//
// The registry maps a tax category to its withholding rate and the object
// code used by the bulk upload format. Lookups go through the category tag
// (see package category), so the rate table and the mapping code table can
// never disagree on which family a label belongs to.
//
// DERIVATION:
//   taxBase = withheld / rate, rounded to 2 decimal places
//   ratePercent = rate * 100
//
// CUSTOMIZATION:
//   Rates change by regulation. Override the built-in table with a rate
//   table file (see config.LoadRateTable).
//
// =============================================================================

package rates

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xtractpajak/internal/category"
)

// =============================================================================
// RULE
// =============================================================================

// Rule is one row of the rate table.
type Rule struct {
	Tag        category.Tag
	Rate       decimal.Decimal
	ObjectCode string
}

// RatePercent returns the rate as a percentage (0.015 -> 1.5).
func (r Rule) RatePercent() decimal.Decimal {
	return r.Rate.Mul(decimal.NewFromInt(100))
}

// Derived holds the values computed for one record.
type Derived struct {
	TaxBase     decimal.Decimal
	RatePercent decimal.Decimal
	ObjectCode  string
}

// DefaultRules is the built-in rate table.
func DefaultRules() []Rule {
	return []Rule{
		{Tag: category.PPh21, Rate: decimal.RequireFromString("0.05"), ObjectCode: "21-100-17"},
		{Tag: category.PPh22, Rate: decimal.RequireFromString("0.015"), ObjectCode: "22-910-01"},
		{Tag: category.PPh23, Rate: decimal.RequireFromString("0.02"), ObjectCode: "24-100-02"},
		{Tag: category.PPh4a2, Rate: decimal.RequireFromString("0.10"), ObjectCode: "28-403-02"},
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	rules map[category.Tag]Rule
	order []category.Tag
}

// New builds a registry. Every rate must be in (0, 1] and every tag may
// appear only once.
func New(rules []Rule) (*Registry, error) {
	r := &Registry{rules: make(map[category.Tag]Rule, len(rules))}

	for _, rule := range rules {
		if rule.Tag == "" || rule.Tag == category.Unknown {
			return nil, fmt.Errorf("rate rule has no category")
		}
		if _, exists := r.rules[rule.Tag]; exists {
			return nil, fmt.Errorf("duplicate rate rule for %s", rule.Tag)
		}
		if !rule.Rate.IsPositive() || rule.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("rate for %s must be in (0, 1], got %s", rule.Tag, rule.Rate)
		}
		r.rules[rule.Tag] = rule
		r.order = append(r.order, rule.Tag)
	}

	return r, nil
}

// Default returns the registry for DefaultRules.
func Default() *Registry {
	r, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup finds the rule for a category label.
func (r *Registry) Lookup(label string) (Rule, bool) {
	return r.LookupTag(category.Classify(label))
}

// LookupTag finds the rule for a category tag.
func (r *Registry) LookupTag(tag category.Tag) (Rule, bool) {
	rule, ok := r.rules[tag]
	return rule, ok
}

// Rules returns the rules in table order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, tag := range r.order {
		out = append(out, r.rules[tag])
	}
	return out
}

// Derive computes the tax base, rate percentage and object code for a
// record. ok is false when no rule covers the category; the caller leaves
// the derived fields empty in that case.
func (r *Registry) Derive(label string, withheld decimal.Decimal) (Derived, bool) {
	rule, ok := r.Lookup(label)
	if !ok {
		return Derived{}, false
	}
	return Derived{
		TaxBase:     withheld.DivRound(rule.Rate, 2),
		RatePercent: rule.RatePercent(),
		ObjectCode:  rule.ObjectCode,
	}, true
}
