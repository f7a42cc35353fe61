package category

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  Tag
	}{
		{"PPh Pasal 21", PPh21},
		{"Potongan Pajak PPh Pasal 22", PPh22},
		{"pph pasal 23", PPh23},
		{"PPh Pasal 4 ayat (2)", PPh4a2},
		{"PPN Pusat", PPN},
		{"Pajak Restoran, Rumah Makan", Restaurant},
		{"Uang Muka dan Jaminan", Advance},
		{"Lainnnya", Other},
		{"Lainnya", Other},
		{"Bunga Bank", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := Classify(tt.label); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	if tag, ok := ParseTag(" PPH23 "); !ok || tag != PPh23 {
		t.Errorf("ParseTag = (%q, %v), want (pph23, true)", tag, ok)
	}
	if tag, ok := ParseTag("vat"); ok || tag != Unknown {
		t.Errorf("ParseTag(vat) = (%q, %v), want (unknown, false)", tag, ok)
	}
}
