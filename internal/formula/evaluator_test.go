package formula

import (
	"errors"
	"testing"
)

type cells map[string]string

func (c cells) Lookup(ref string) (string, bool) {
	v, ok := c[ref]
	return v, ok
}

func TestEvaluate(t *testing.T) {
	grid := cells{
		"D4": "0000000000000000",
		"B4": "3",
		"C4": "=B4 & \"/\" & \"2024\"",
		"E4": "=D4 & \"000000\"",
		"F4": "say \"hi\"",
	}

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"reference and literal", `=D4 & "000000"`, "0000000000000000000000"},
		{"absolute reference", `=$D$4&"1"`, "00000000000000001"},
		{"lowercase reference", `=d4`, "0000000000000000"},
		{"nested formula", `=C4`, "3/2024"},
		{"two levels", `=E4 & ""`, "0000000000000000000000"},
		{"escaped quote", `="a""b"`, `a"b`},
		{"number literal", `=1.5 & "%"`, "1.5%"},
		{"parentheses", `=("x" & (B4)) & "y"`, "x3y"},
		{"missing cell", `=Z99 & "!"`, "!"},
		{"literal with quotes", `=F4`, `say "hi"`},
		{"no leading equals", `B4&B4`, "33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, grid)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"unbalanced paren", `=(D4 & "x"`},
		{"stray close paren", `=D4)`},
		{"unterminated string", `="abc`},
		{"dangling operator", `=D4 &`},
		{"function call", `=CONCAT(D4, "x")`},
		{"arithmetic", `=D4 + 1`},
		{"empty", `=`},
		{"bare name", `=TRUE`},
		{"adjacent operands", `="a" "b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Evaluate(tt.expr, cells{}); !errors.Is(err, ErrSyntax) {
				t.Errorf("Evaluate(%q) err = %v, want ErrSyntax", tt.expr, err)
			}
			if got := Resolve(tt.expr, cells{}); got != "" {
				t.Errorf("Resolve(%q) = %q, want empty", tt.expr, got)
			}
		})
	}
}

func TestEvaluate_Cycle(t *testing.T) {
	grid := cells{"A1": "=B1", "B1": "=A1"}

	_, err := Evaluate("=A1", grid)
	if !errors.Is(err, ErrDepth) {
		t.Fatalf("err = %v, want ErrDepth", err)
	}
	if got := Resolve("=A1", grid); got != "" {
		t.Errorf("Resolve = %q, want empty", got)
	}
}

func TestResolve_Literal(t *testing.T) {
	if got := Resolve("PaymentProof", nil); got != "PaymentProof" {
		t.Errorf("Resolve literal = %q", got)
	}
}

func TestResolverFunc(t *testing.T) {
	r := ResolverFunc(func(ref string) (string, bool) {
		return ref, true
	})
	got, err := Evaluate(`=A1 & B2`, r)
	if err != nil || got != "A1B2" {
		t.Errorf("got (%q, %v), want A1B2", got, err)
	}
}
