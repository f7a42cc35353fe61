package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xtractpajak/internal/category"
	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/rates"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

func TestValidateTIN(t *testing.T) {
	tests := []struct {
		tin   string
		valid bool
	}{
		{"0123456789012345", true},
		{"012345678901234", false},
		{"01234567890123456", false},
		{"01.234.567.8-901.234", false},
		{"", false},
		{"０123456789012345", false},
	}
	for _, tt := range tests {
		if got := ValidateTIN(tt.tin) == nil; got != tt.valid {
			t.Errorf("ValidateTIN(%q) valid = %v, want %v", tt.tin, got, tt.valid)
		}
	}
}

func TestValidateMonth(t *testing.T) {
	for m := -1; m <= 13; m++ {
		want := m >= 0 && m <= 12
		if got := ValidateMonth(m) == nil; got != want {
			t.Errorf("ValidateMonth(%d) valid = %v, want %v", m, got, want)
		}
	}
}

func TestValidateDataType(t *testing.T) {
	tests := []struct {
		value, dataType string
		valid           bool
	}{
		{"anything", mapper.DataTypeString, true},
		{"12", mapper.DataTypeNumeric, true},
		{"12.5", mapper.DataTypeNumeric, false},
		{"12.5", mapper.DataTypeDecimal, true},
		{"1e3", mapper.DataTypeDecimal, true},
		{"abc", mapper.DataTypeDecimal, false},
		{"1.25", "decimal(2)", true},
		{"1.255", "decimal(2)", false},
		{"0000000000000000000000", mapper.DataTypeDigits, true},
		{"00-1", mapper.DataTypeDigits, false},
		{"2024-03-15", mapper.DataTypeDate, true},
		{"15/03/2024", mapper.DataTypeDate, false},
		{"15/03/2024", "date(02/01/2006)", true},
	}
	for _, tt := range tests {
		msg := validateDataType(tt.value, tt.dataType)
		if (msg == "") != tt.valid {
			t.Errorf("validateDataType(%q, %q) = %q, want valid=%v", tt.value, tt.dataType, msg, tt.valid)
		}
	}
}

func TestValidateRows_MappedOutputIsValid(t *testing.T) {
	layout := mapper.Withholding21Layout()
	res, err := mapper.New(layout, nil, mapper.DefaultOptions()).Map([]types.NormalizedRecord{
		{
			Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			EntryRef: "1001/SPM/03.2024/0001",
			Category: "PPh Pasal 21",
			Withheld: decimal.RequireFromString("1234.5"),
		},
	}, "0123456789012345")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	result := NewValidator(layout).ValidateRows(res.Grid, res.Span)
	if !result.IsValid {
		t.Errorf("mapped output invalid:\n%s", FormatErrors(result.Errors))
	}
	if result.RowsValidated != 1 || result.FieldsValidated != len(layout.Fields) {
		t.Errorf("validated %d rows / %d fields", result.RowsValidated, result.FieldsValidated)
	}
}

func TestValidateRows_Errors(t *testing.T) {
	layout := mapper.UnifiedLayout()
	g := sheet.NewGrid()
	_ = g.Set("B4", sheet.NumberCell("3"))
	_ = g.Set("C4", sheet.NumberCell("2024"))
	_ = g.Set("D4", sheet.TextCell("0000000000000000"))
	_ = g.Set("G4", sheet.TextCell("24-100-02"))
	_ = g.Set("H4", sheet.TextCell("seratus"))
	_ = g.Set("I4", sheet.NumberCell("2"))
	_ = g.Set("K4", sheet.TextCell("1001/SPM/03.2024/0001"))
	_ = g.Set("L4", sheet.TextCell("2024-03-15"))
	_ = g.Set("M4", sheet.TextCell("0123456789012345000000"))
	_ = g.Set("P4", sheet.TextCell("15-03-2024"))

	result := NewValidator(layout).ValidateRows(g, sheet.RowSpan{First: 4, Last: 4})
	if result.IsValid {
		t.Fatal("expected invalid result")
	}

	got := map[string]string{}
	for _, e := range result.Errors {
		got[e.Cell] = e.Rule
	}
	want := map[string]string{
		"H4": "data_type",
		"P4": "data_type",
	}
	for cell, rule := range want {
		if got[cell] != rule {
			t.Errorf("%s rule = %q, want %q (all: %v)", cell, got[cell], rule, got)
		}
	}
	if result.ErrorCount != len(want) {
		t.Errorf("ErrorCount = %d, want %d:\n%s", result.ErrorCount, len(want), FormatErrors(result.Errors))
	}

	stop := NewValidatorWithOptions(layout, ValidationOptions{StopOnFirstError: true}).
		ValidateRows(g, sheet.RowSpan{First: 4, Last: 4})
	if stop.ErrorCount != 1 {
		t.Errorf("StopOnFirstError: ErrorCount = %d, want 1", stop.ErrorCount)
	}
}

func TestValidateRows_Required(t *testing.T) {
	layout := mapper.Withholding21Layout()
	g := sheet.NewGrid()
	_ = g.Set("B4", sheet.NumberCell("3"))

	result := NewValidator(layout).ValidateRows(g, sheet.RowSpan{First: 4, Last: 4})
	required := 0
	for _, f := range layout.Fields {
		if f.Required {
			required++
		}
	}
	// B4 is present; every other required field is missing.
	if result.ErrorCount != required-1 {
		t.Errorf("ErrorCount = %d, want %d", result.ErrorCount, required-1)
	}
	for _, e := range result.Errors {
		if e.Rule != "required" || e.Row != 4 {
			t.Errorf("unexpected error %v", e)
		}
	}
}

func TestValidateMapping_UnmatchedCategory(t *testing.T) {
	reg, err := rates.New([]rates.Rule{
		{Tag: category.PPh22, Rate: decimal.RequireFromString("0.015"), ObjectCode: "22-910-01"},
	})
	if err != nil {
		t.Fatalf("rates.New: %v", err)
	}
	layout := mapper.UnifiedLayout()
	res, err := mapper.New(layout, reg, mapper.DefaultOptions()).Map([]types.NormalizedRecord{
		{
			Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			EntryRef: "1001/SPM/03.2024/0001",
			Category: "PPh Pasal 23",
			Withheld: decimal.RequireFromString("2000"),
		},
	}, "0123456789012345")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	tests := []struct {
		name      string
		options   ValidationOptions
		wantValid bool
	}{
		{"warnings only", ValidationOptions{}, true},
		{"warnings as errors", ValidationOptions{TreatWarningsAsErrors: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewValidatorWithOptions(layout, tt.options).ValidateMapping(res)
			if result.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v:\n%s", result.IsValid, tt.wantValid, FormatErrors(result.Errors))
			}
			if result.ErrorCount != 0 || result.WarningCount != 3 {
				t.Errorf("errors = %d, warnings = %d, want 0 and 3", result.ErrorCount, result.WarningCount)
			}
			for _, e := range result.Errors {
				if e.Rule != "rate_rule" || e.Row != 4 {
					t.Errorf("unexpected error %v", e)
				}
			}
		})
	}

	// Plain row validation has no mapping context and keeps them fatal.
	if plain := NewValidator(layout).ValidateRows(res.Grid, res.Span); plain.ErrorCount != 3 {
		t.Errorf("ValidateRows ErrorCount = %d, want 3", plain.ErrorCount)
	}
}

func TestFormatAndWriteErrorLog(t *testing.T) {
	if got := FormatErrors(nil); got != "No validation errors." {
		t.Errorf("FormatErrors(nil) = %q", got)
	}

	errs := []*ValidationError{ValidateTIN("123"), ValidateMonth(13)}
	text := FormatErrors(errs)
	if !strings.Contains(text, "2 error(s)") || !strings.Contains(text, "[ERROR] tin") {
		t.Errorf("FormatErrors = %q", text)
	}

	path := filepath.Join(t.TempDir(), "validation.log")
	if err := WriteErrorLog(errs, path); err != nil {
		t.Fatalf("WriteErrorLog: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != text {
		t.Errorf("log content = %q", data)
	}
}
