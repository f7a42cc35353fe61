package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadLines(t *testing.T) {
	in := "01/03/2024 1001/SPM/03.2024/0001\r\nHonor narasumber\n\nNTPN : ABC123\n"
	got, err := ReadLines(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	want := []string{"01/03/2024 1001/SPM/03.2024/0001", "Honor narasumber", "", "NTPN : ABC123"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractLines_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var lines []string
	var err error
	lines, err = ExtractLines(path)
	if err != nil {
		t.Fatalf("ExtractLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("lines = %q", lines)
	}
}

func TestExtractLines_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ExtractLines(filepath.Join(dir, "ledger.docx")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := ExtractLines(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	bogus := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(bogus, []byte("not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractLines(bogus); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.pdf":  true,
		"A.PDF":  true,
		"b.txt":  true,
		"c.xlsx": false,
		"d":      false,
	}
	for path, want := range tests {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
