package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xtractpajak/internal/category"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
input_dir: `+filepath.Join(dir, "in")+`
output_dir: `+filepath.Join(dir, "out")+`
input_archive_dir: `+filepath.Join(dir, "archive")+`
templates_dir: `+filepath.Join(dir, "templates")+`
max_lines: 50000
templates:
  "21": bupot21.xlsx
`)

	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}

	if cfg.MaxConcurrency != 4 || cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.DataSheet != "DATA" || cfg.IdentifierCell != "C1" || cfg.HeaderRow != 3 || cfg.StartRow != 4 {
		t.Errorf("template contract defaults: %+v", cfg)
	}
	if cfg.MaxLines != 50000 {
		t.Errorf("MaxLines = %d", cfg.MaxLines)
	}

	for _, d := range []string{"in", "out", "archive", "templates"} {
		if _, err := os.Stat(filepath.Join(dir, d)); err != nil {
			t.Errorf("directory %s not created: %v", d, err)
		}
	}

	if got, want := cfg.TemplateFor(types.Withholding21), filepath.Join(dir, "templates", "bupot21.xlsx"); got != want {
		t.Errorf("TemplateFor(21) = %q, want %q", got, want)
	}
	if got := cfg.TemplateFor(types.UnifiedWithholding); got != "" {
		t.Errorf("TemplateFor(unified) = %q, want empty", got)
	}
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad yaml":         "input_dir: [",
		"start above":      "header_row: 5\nstart_row: 2\n",
		"gap below header": "header_row: 3\nstart_row: 6\n",
		"negative lines":   "max_lines: -1\n",
		"unknown doctype":  "templates:\n  pph25: x.xlsx\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			writeFile(t, path, content+"input_dir: "+filepath.Join(dir, "in")+"\n")
			if name == "bad yaml" {
				writeFile(t, path, content)
			}
			if _, err := LoadMainConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadMainConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultMainConfig(t *testing.T) {
	cfg := DefaultMainConfig()
	if cfg.InputDir != "./input" || cfg.RateTable != "./configs/rates.yaml" {
		t.Errorf("DefaultMainConfig = %+v", cfg)
	}
	if cfg.Templates == nil {
		t.Error("Templates map is nil")
	}
}

func TestLoadTaxpayerProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dinkes.yaml"), `
name: Dinas Kesehatan
tin: "0123456789012345"
file_matching_patterns: ["bkpp_dinkes_*.pdf"]
document_types: ["21"]
month: 3
`)
	writeFile(t, filepath.Join(dir, "sekda.yml"), `
tin: "5432109876543210"
file_matching_patterns: ["sekda*"]
`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	profiles, err := LoadTaxpayerProfiles(dir)
	if err != nil {
		t.Fatalf("LoadTaxpayerProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}

	p := FindProfile("/data/in/bkpp_dinkes_maret.pdf", profiles)
	if p == nil || p.Name != "Dinas Kesehatan" || p.Month != 3 {
		t.Fatalf("FindProfile = %+v", p)
	}
	docs, err := p.DocTypes()
	if err != nil || len(docs) != 1 || docs[0] != types.Withholding21 {
		t.Errorf("DocTypes = %v, %v", docs, err)
	}

	q := FindProfile("sekda_2024.txt", profiles)
	if q == nil || q.Name != "sekda" {
		t.Fatalf("FindProfile(sekda) = %+v", q)
	}
	if docs, _ := q.DocTypes(); len(docs) != 2 {
		t.Errorf("default DocTypes = %v, want both", docs)
	}

	if FindProfile("other.pdf", profiles) != nil {
		t.Error("unexpected match for other.pdf")
	}

	none, err := LoadTaxpayerProfiles(filepath.Join(dir, "missing"))
	if err != nil || none != nil {
		t.Errorf("missing dir: %v, %v", none, err)
	}

	writeFile(t, filepath.Join(dir, "bad.yaml"), "document_types: [pph25]\n")
	if _, err := LoadTaxpayerProfiles(dir); err == nil {
		t.Error("expected error for unknown document type")
	}
}

func TestLoadRateTable(t *testing.T) {
	dir := t.TempDir()

	rules, err := LoadRateTable(filepath.Join(dir, "missing.yaml"))
	if err != nil || len(rules) != 4 {
		t.Fatalf("missing file: %d rules, %v", len(rules), err)
	}

	path := filepath.Join(dir, "rates.yaml")
	writeFile(t, path, `
version: "2025"
rates:
  - category: pph23
    rate: "0.02"
    code: 24-100-02
  - category: pph22
    rate: "0.015"
    code: 22-910-01
`)
	rules, err = LoadRateTable(path)
	if err != nil {
		t.Fatalf("LoadRateTable: %v", err)
	}
	if len(rules) != 2 || rules[1].Tag != category.PPh22 || !rules[1].Rate.Equal(decimal.RequireFromString("0.015")) {
		t.Errorf("rules = %+v", rules)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := reg.LookupTag(category.PPh21); ok {
		t.Error("pph21 should not be in the loaded table")
	}

	bad := map[string]string{
		"empty":    "version: x\n",
		"category": "rates:\n  - category: pph99\n    rate: \"0.1\"\n",
		"rate":     "rates:\n  - category: pph23\n    rate: abc\n",
	}
	for name, content := range bad {
		p := filepath.Join(dir, name+".yaml")
		writeFile(t, p, content)
		if _, err := LoadRateTable(p); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	dup := filepath.Join(dir, "dup.yaml")
	writeFile(t, dup, "rates:\n  - {category: pph23, rate: \"0.02\"}\n  - {category: pph23, rate: \"0.03\"}\n")
	if _, err := LoadRegistry(dup); err == nil {
		t.Error("expected error for duplicate category")
	}
}
