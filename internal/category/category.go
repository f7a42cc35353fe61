// Package category maps free-text tax category labels onto a closed set of
// tags. Both the rate table and the document-type filters key off the tag,
// never off the label text itself.
package category

import "strings"

// Tag identifies a tax category family.
type Tag string

const (
	PPh21      Tag = "pph21"
	PPh22      Tag = "pph22"
	PPh23      Tag = "pph23"
	PPh4a2     Tag = "pph4a2"
	PPN        Tag = "ppn"
	Restaurant Tag = "restaurant"
	Advance    Tag = "advance"
	Other      Tag = "other"
	Unknown    Tag = "unknown"
)

// Rule pairs a case-insensitive substring predicate with a tag.
type Rule struct {
	Contains string
	Tag      Tag
}

// rules is ordered; the first match wins. None of the predicates is a
// substring of another, so the order only matters for label text that
// carries two family names at once.
var rules = []Rule{
	{Contains: "pph pasal 4 ayat (2)", Tag: PPh4a2},
	{Contains: "pph pasal 21", Tag: PPh21},
	{Contains: "pph pasal 22", Tag: PPh22},
	{Contains: "pph pasal 23", Tag: PPh23},
	{Contains: "ppn", Tag: PPN},
	{Contains: "restoran", Tag: Restaurant},
	{Contains: "uang muka", Tag: Advance},
	{Contains: "lainn", Tag: Other},
}

// Classify returns the tag of the first rule matching label.
func Classify(label string) Tag {
	l := strings.ToLower(label)
	for _, r := range rules {
		if strings.Contains(l, r.Contains) {
			return r.Tag
		}
	}
	return Unknown
}

// ParseTag converts a tag name from configuration. Unknown names map to
// Unknown and ok is false.
func ParseTag(s string) (Tag, bool) {
	t := Tag(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case PPh21, PPh22, PPh23, PPh4a2, PPN, Restaurant, Advance, Other:
		return t, true
	}
	return Unknown, false
}
