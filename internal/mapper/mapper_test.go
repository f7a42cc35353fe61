package mapper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xtractpajak/internal/category"
	"github.com/ginjaninja78/xtractpajak/internal/rates"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

const testTIN = "0123456789012345"

func record(day, month int, cat, withheld string) types.NormalizedRecord {
	return types.NormalizedRecord{
		Date:     time.Date(2024, time.Month(month), day, 0, 0, 0, 0, time.UTC),
		EntryRef: "1001/SPM/01.2024/0001",
		Category: cat,
		Withheld: decimal.RequireFromString(withheld),
		Remitted: decimal.RequireFromString(withheld),
	}
}

func TestFilter(t *testing.T) {
	undated := record(1, 1, "PPh Pasal 21", "10")
	undated.Date = time.Time{}

	records := []types.NormalizedRecord{
		record(5, 1, "PPh Pasal 21", "5000"),
		record(6, 1, "PPh Pasal 21", "0"),
		record(7, 2, "PPh Pasal 21", "7000"),
		record(8, 1, "PPh Pasal 23", "2000"),
		record(9, 1, "PPN Pusat", "11000"),
		record(10, 1, "PPh Pasal 4 ayat (2)", "1000"),
		undated,
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     int
	}{
		{"all months all categories", Criteria{}, 5},
		{"january only", Criteria{Month: 1}, 4},
		{"pph21 layout all months", CriteriaFor(Withholding21Layout(), 0), 2},
		{"pph21 layout january", CriteriaFor(Withholding21Layout(), 1), 1},
		{"unified layout", CriteriaFor(UnifiedLayout(), 0), 2},
		{"no match", Criteria{Month: 12}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(records, tt.criteria)
			if len(got) != tt.want {
				t.Errorf("Filter kept %d, want %d", len(got), tt.want)
			}
			for _, r := range got {
				if !r.Withheld.IsPositive() {
					t.Errorf("kept non-positive record %+v", r)
				}
			}
		})
	}
}

func TestMap_Withholding21(t *testing.T) {
	m := New(Withholding21Layout(), rates.Default(), DefaultOptions())
	res, err := m.Map([]types.NormalizedRecord{
		record(15, 3, "PPh Pasal 21", "100000"),
		record(16, 3, "PPh Pasal 21", "2500"),
	}, testTIN)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	if res.Span.First != 4 || res.Span.Last != 5 || res.Span.Count() != 2 {
		t.Errorf("Span = %+v", res.Span)
	}
	if res.Unmatched != 0 {
		t.Errorf("Unmatched = %d", res.Unmatched)
	}

	g := res.Grid
	checks := map[string]string{
		"C1": testTIN,
		"B4": "3",
		"C4": "2024",
		"D4": "0000000000000000",
		"E4": "0000000000000000000000",
		"F4": "K/0",
		"H4": "21-100-17",
		"I4": "2000000",
		"I5": "50000",
		"J4": "100",
		"K4": "5",
		"L4": "PaymentProof",
		"M4": "1001/SPM/01.2024/0001",
		"N4": "2024-03-15",
		"O4": testTIN + "000000",
		"P5": "2024-03-16",
	}
	for ref, want := range checks {
		if got := g.Resolved(ref); got != want {
			t.Errorf("%s = %q, want %q", ref, got, want)
		}
	}

	if c, _ := g.Get("E5"); c.Kind != sheet.Formula || c.Value != `=D5 & "000000"` {
		t.Errorf("E5 = %+v", c)
	}
	if c, _ := g.Get("I4"); c.Kind != sheet.Number {
		t.Errorf("I4 kind = %v, want Number", c.Kind)
	}
	if _, ok := g.Get("B6"); ok {
		t.Error("row 6 written, want no trailing rows")
	}
}

func TestMap_Unified(t *testing.T) {
	m := New(UnifiedLayout(), nil, Options{})
	res, err := m.Map([]types.NormalizedRecord{
		record(1, 6, "PPh Pasal 22", "1500"),
		record(2, 6, "PPh Pasal 23", "2000"),
		record(3, 6, "PPh Pasal 4 ayat (2)", "25000"),
		record(4, 6, "Lainnya", "10"),
	}, testTIN)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	g := res.Grid
	tests := []struct {
		row                  int
		code, base, rate, sp string
	}{
		{4, "22-910-01", "100000", "1.5", ""},
		{5, "24-100-02", "100000", "2", ""},
		{6, "28-403-02", "250000", "10", ""},
		{7, "", "", "", ""},
	}
	for _, tt := range tests {
		if got := g.ResolvedAt("G", tt.row); got != tt.code {
			t.Errorf("G%d = %q, want %q", tt.row, got, tt.code)
		}
		if got := g.ResolvedAt("H", tt.row); got != tt.base {
			t.Errorf("H%d = %q, want %q", tt.row, got, tt.base)
		}
		if got := g.ResolvedAt("I", tt.row); got != tt.rate {
			t.Errorf("I%d = %q, want %q", tt.row, got, tt.rate)
		}
		if got := g.ResolvedAt("N", tt.row); got != "Imprest" {
			t.Errorf("N%d = %q", tt.row, got)
		}
	}
	if res.Unmatched != 1 || len(res.UnmatchedRows) != 1 || res.UnmatchedRows[0] != 7 {
		t.Errorf("Unmatched = %d rows %v, want 1 at row 7", res.Unmatched, res.UnmatchedRows)
	}
	if res.Span.Count() != 4 {
		t.Errorf("Span = %+v, want 4 rows", res.Span)
	}
}

func TestMap_SpanMatchesRecordCount(t *testing.T) {
	for _, k := range []int{0, 1, 7} {
		var records []types.NormalizedRecord
		for i := 0; i < k; i++ {
			records = append(records, record(1, 1, "PPh Pasal 21", "100"))
		}
		res, err := New(Withholding21Layout(), nil, Options{StartRow: 10}).Map(records, testTIN)
		if err != nil {
			t.Fatalf("Map: %v", err)
		}
		if res.Span.Count() != k || res.Span.First != 10 {
			t.Errorf("k=%d: Span = %+v", k, res.Span)
		}
		if _, ok := res.Grid.GetAt("B", 10+k); ok {
			t.Errorf("k=%d: row after span written", k)
		}
	}
}

func TestMap_Withholding21FollowsRateTable(t *testing.T) {
	reg, err := rates.New([]rates.Rule{
		{Tag: category.PPh21, Rate: decimal.RequireFromString("0.06"), ObjectCode: "21-100-99"},
	})
	if err != nil {
		t.Fatalf("rates.New: %v", err)
	}

	res, err := New(Withholding21Layout(), reg, Options{}).Map([]types.NormalizedRecord{
		record(15, 3, "PPh Pasal 21", "60000"),
	}, testTIN)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	checks := map[string]string{
		"H4": "21-100-99",
		"I4": "1000000",
		"K4": "6",
	}
	for ref, want := range checks {
		if got := res.Grid.Resolved(ref); got != want {
			t.Errorf("%s = %q, want %q", ref, got, want)
		}
	}
}

func TestLayouts_CategoriesCoveredByRateTable(t *testing.T) {
	reg := rates.Default()
	for _, l := range []Layout{Withholding21Layout(), UnifiedLayout()} {
		for _, tag := range l.Categories {
			if _, ok := reg.LookupTag(tag); !ok {
				t.Errorf("%s: category %s has no rate rule", l.DocType, tag)
			}
		}
	}
}

func TestLayouts_Shape(t *testing.T) {
	for _, l := range []Layout{Withholding21Layout(), UnifiedLayout()} {
		if len(l.Fields) != 15 {
			t.Errorf("%s: %d fields, want 15", l.DocType, len(l.Fields))
		}
		if l.FirstColumn() != "B" || l.LastColumn() != "P" {
			t.Errorf("%s: columns %s..%s", l.DocType, l.FirstColumn(), l.LastColumn())
		}
		seen := map[string]bool{}
		for _, f := range l.Fields {
			if seen[f.Tag] {
				t.Errorf("%s: duplicate tag %s", l.DocType, f.Tag)
			}
			seen[f.Tag] = true
		}
	}

	if _, err := LayoutFor(types.DocumentType("bogus")); err == nil {
		t.Error("expected error for unknown document type")
	}
}
