package xlsxparser

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
	"github.com/ginjaninja78/xtractpajak/internal/types"
	"github.com/ginjaninja78/xtractpajak/internal/xlsxwriter"
)

const testTIN = "0123456789012345"

// filledWorkbook writes k mapped PPh 21 rows into a blank template.
func filledWorkbook(t *testing.T, k int) *excelize.File {
	t.Helper()
	layout := mapper.Withholding21Layout()

	var records []types.NormalizedRecord
	for i := 0; i < k; i++ {
		records = append(records, types.NormalizedRecord{
			Date:     time.Date(2024, 5, 10+i, 0, 0, 0, 0, time.UTC),
			EntryRef: "1001/SPM/05.2024/0001",
			Category: "PPh Pasal 21",
			Withheld: decimal.RequireFromString("12500"),
		})
	}
	res, err := mapper.New(layout, nil, mapper.DefaultOptions()).Map(records, testTIN)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	f, err := xlsxwriter.Write("", layout, res, xlsxwriter.Options{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return f
}

func TestParseReader_RoundTrip(t *testing.T) {
	f := filledWorkbook(t, 2)
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	layout := mapper.Withholding21Layout()
	wb, err := ParseReader(buf, layout, Options{})
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	if wb.Sheet != xlsxwriter.DefaultSheet {
		t.Errorf("Sheet = %q", wb.Sheet)
	}
	if wb.TIN != testTIN {
		t.Errorf("TIN = %q", wb.TIN)
	}
	if wb.Span.First != 4 || wb.Span.Last != 5 {
		t.Errorf("Span = %+v, want 4..5", wb.Span)
	}
	if mm := wb.HeaderMismatches(layout); len(mm) != 0 {
		t.Errorf("HeaderMismatches = %v", mm)
	}

	checks := map[string]string{
		"B4": "5",
		"C4": "2024",
		"E4": "0000000000000000000000",
		"I4": "250000",
		"N5": "2024-05-11",
		"O5": testTIN + "000000",
	}
	for ref, want := range checks {
		if got := wb.Grid.Resolved(ref); got != want {
			t.Errorf("%s = %q, want %q", ref, got, want)
		}
	}

	if c, _ := wb.Grid.Get("E4"); c.Kind != sheet.Formula {
		t.Errorf("E4 kind = %v, want Formula", c.Kind)
	}
	if c, _ := wb.Grid.Get("B4"); c.Kind != sheet.Number {
		t.Errorf("B4 kind = %v, want Number", c.Kind)
	}
}

func TestParseFile_StopsAtEmptyKeyColumn(t *testing.T) {
	f := filledWorkbook(t, 3)
	defer f.Close()

	// Stray content below a gap is not data.
	if err := f.SetCellStr(xlsxwriter.DefaultSheet, "B9", "9"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStr(xlsxwriter.DefaultSheet, "B5", ""); err != nil {
		t.Fatal(err)
	}

	wb, err := ParseFile(f, mapper.Withholding21Layout(), Options{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if wb.Span.Count() != 1 {
		t.Errorf("read %d rows, want 1", wb.Span.Count())
	}
	if _, ok := wb.Grid.Get("B9"); ok {
		t.Error("row 9 read past the gap")
	}
}

func TestParseFile_Empty(t *testing.T) {
	f := filledWorkbook(t, 0)
	defer f.Close()

	wb, err := ParseFile(f, mapper.Withholding21Layout(), Options{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if wb.Span.Count() != 0 {
		t.Errorf("Span = %+v, want empty", wb.Span)
	}
	if wb.Grid.Resolved("C1") != testTIN {
		t.Errorf("identifier cell not in grid")
	}
}

func TestHeaderMismatches(t *testing.T) {
	f := filledWorkbook(t, 1)
	defer f.Close()
	if err := f.SetCellStr(xlsxwriter.DefaultSheet, "I3", "Bruto"); err != nil {
		t.Fatal(err)
	}

	layout := mapper.Withholding21Layout()
	wb, err := ParseFile(f, layout, Options{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	mm := wb.HeaderMismatches(layout)
	if len(mm) != 1 || !strings.HasPrefix(mm[0], "I3:") {
		t.Errorf("HeaderMismatches = %v", mm)
	}
}

func TestParseFile_UnknownSheet(t *testing.T) {
	f := filledWorkbook(t, 1)
	defer f.Close()

	if _, err := ParseFile(f, mapper.Withholding21Layout(), Options{Sheet: "Nope"}); err == nil {
		t.Error("expected error for missing sheet")
	}
}
