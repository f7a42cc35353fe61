package sheet

import (
	"reflect"
	"testing"
)

func TestGrid_SetGet(t *testing.T) {
	g := NewGrid()
	if err := g.Set("d4", TextCell("0000000000000000")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := g.SetAt("E", 4, FormulaCell(`D4 & "000000"`)); err != nil {
		t.Fatalf("SetAt: %v", err)
	}

	c, ok := g.Get("D4")
	if !ok || c.Value != "0000000000000000" {
		t.Errorf("Get(D4) = %+v, %v", c, ok)
	}
	e, _ := g.GetAt("E", 4)
	if e.Kind != Formula || e.Value != `=D4 & "000000"` {
		t.Errorf("E4 = %+v", e)
	}
	if got := g.Resolved("E4"); got != "0000000000000000000000" {
		t.Errorf("Resolved(E4) = %q", got)
	}
	if got := g.ResolvedAt("Z", 1); got != "" {
		t.Errorf("ResolvedAt(Z1) = %q, want empty", got)
	}
}

func TestGrid_SetInvalid(t *testing.T) {
	g := NewGrid()
	if err := g.Set("4D", TextCell("x")); err == nil {
		t.Error("expected error for invalid reference")
	}
	if err := g.SetAt("B", 0, TextCell("x")); err == nil {
		t.Error("expected error for row 0")
	}
}

func TestGrid_Refs(t *testing.T) {
	g := NewGrid()
	for _, ref := range []string{"C5", "B4", "AA4", "C1", "P4"} {
		_ = g.Set(ref, TextCell(ref))
	}
	want := []string{"C1", "B4", "P4", "AA4", "C5"}
	if got := g.Refs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Refs = %v, want %v", got, want)
	}
}

func TestRowSpan_Count(t *testing.T) {
	tests := []struct {
		span RowSpan
		want int
	}{
		{RowSpan{First: 4, Last: 6}, 3},
		{RowSpan{First: 4, Last: 4}, 1},
		{RowSpan{First: 4, Last: 3}, 0},
	}
	for _, tt := range tests {
		if got := tt.span.Count(); got != tt.want {
			t.Errorf("%+v.Count() = %d, want %d", tt.span, got, tt.want)
		}
	}
}
