// =============================================================================
// XtractPajak - Extraction Summary
// =============================================================================
//
// This module aggregates normalized records and writes the extraction
// workbook. The workbook has three sheets:
//
//   summary  : withheld and remitted totals per category
//   bulanan  : withheld per month (rows) and category (columns)
//   rincian  : every normalized record, one per row
//
// Totals are exact decimal sums; records whose date could not be parsed are
// counted in the category totals but left out of the monthly pivot.
//
// =============================================================================

package summary

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xtractpajak/internal/types"
)

// Sheet names of the extraction workbook.
const (
	SheetSummary = "summary"
	SheetMonthly = "bulanan"
	SheetDetail  = "rincian"
)

// =============================================================================
// AGGREGATION
// =============================================================================

// CategoryTotal is one line of the summary sheet.
type CategoryTotal struct {
	Category string
	Withheld decimal.Decimal
	Remitted decimal.Decimal
}

// Totals sums withheld and remitted amounts per category label, sorted by
// label.
func Totals(records []types.NormalizedRecord) []CategoryTotal {
	index := make(map[string]int)
	var out []CategoryTotal

	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryTotal{Category: r.Category})
		}
		out[i].Withheld = out[i].Withheld.Add(r.Withheld)
		out[i].Remitted = out[i].Remitted.Add(r.Remitted)
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Category < out[b].Category })
	return out
}

// Monthly is the withheld pivot: month x category.
type Monthly struct {
	// Months present in the data, ascending.
	Months []int

	// Categories present in the data, sorted.
	Categories []string

	cells map[int]map[string]decimal.Decimal
}

// Value returns the withheld sum for month and category, and whether any
// record contributed to it.
func (m *Monthly) Value(month int, category string) (decimal.Decimal, bool) {
	row, ok := m.cells[month]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := row[category]
	return v, ok
}

// Pivot sums withheld amounts per month and category.
func Pivot(records []types.NormalizedRecord) *Monthly {
	m := &Monthly{cells: make(map[int]map[string]decimal.Decimal)}
	cats := make(map[string]bool)

	for _, r := range records {
		month := r.Month()
		if month == 0 {
			continue
		}
		row, ok := m.cells[month]
		if !ok {
			row = make(map[string]decimal.Decimal)
			m.cells[month] = row
			m.Months = append(m.Months, month)
		}
		row[r.Category] = row[r.Category].Add(r.Withheld)
		cats[r.Category] = true
	}

	for c := range cats {
		m.Categories = append(m.Categories, c)
	}
	sort.Ints(m.Months)
	sort.Strings(m.Categories)
	return m
}

// =============================================================================
// WORKBOOK
// =============================================================================

// detailHeaders are the rincian column names.
var detailHeaders = []interface{}{
	"date", "kwt", "ntpn", "uraian", "tax", "pemotongan", "penyetoran", "saldo",
}

// WriteWorkbook builds the extraction workbook. The caller saves and closes
// the returned file.
func WriteWorkbook(records []types.NormalizedRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetMonthly, SheetDetail} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, err
	}
	dateFmt := "dd/mm/yyyy"
	date, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		f.Close()
		return nil, err
	}

	steps := []func() error{
		func() error { return writeSummarySheet(f, Totals(records), money) },
		func() error { return writeMonthlySheet(f, Pivot(records), money) },
		func() error { return writeDetailSheet(f, records, money, date) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func writeSummarySheet(f *excelize.File, totals []CategoryTotal, money int) error {
	if err := f.SetSheetRow(SheetSummary, "A1", &[]interface{}{"tax", "pemotongan", "penyetoran"}); err != nil {
		return err
	}
	for i, t := range totals {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{t.Category, t.Withheld.InexactFloat64(), t.Remitted.InexactFloat64()}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("summary row %d: %w", i+2, err)
		}
	}
	if len(totals) > 0 {
		end, _ := excelize.CoordinatesToCellName(3, len(totals)+1)
		if err := f.SetCellStyle(SheetSummary, "B2", end, money); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "C", 24)
}

func writeMonthlySheet(f *excelize.File, m *Monthly, money int) error {
	header := []interface{}{"date"}
	for _, c := range m.Categories {
		header = append(header, c)
	}
	if err := f.SetSheetRow(SheetMonthly, "A1", &header); err != nil {
		return err
	}

	for i, month := range m.Months {
		row := []interface{}{month}
		for _, c := range m.Categories {
			if v, ok := m.Value(month, c); ok {
				row = append(row, v.InexactFloat64())
			} else {
				row = append(row, nil)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetMonthly, cell, &row); err != nil {
			return fmt.Errorf("bulanan row %d: %w", i+2, err)
		}
	}

	if len(m.Months) > 0 && len(m.Categories) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(m.Categories)+1, len(m.Months)+1)
		if err := f.SetCellStyle(SheetMonthly, "B2", end, money); err != nil {
			return err
		}
	}
	return nil
}

func writeDetailSheet(f *excelize.File, records []types.NormalizedRecord, money, date int) error {
	if err := f.SetSheetRow(SheetDetail, "A1", &detailHeaders); err != nil {
		return err
	}

	for i, r := range records {
		var when interface{}
		if !r.Date.IsZero() {
			when = r.Date
		}
		row := []interface{}{
			when,
			r.EntryRef,
			r.SettlementRef,
			r.Narrative,
			r.Category,
			r.Withheld.InexactFloat64(),
			r.Remitted.InexactFloat64(),
			r.Balance.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetDetail, cell, &row); err != nil {
			return fmt.Errorf("rincian row %d: %w", i+2, err)
		}
	}

	if n := len(records); n > 0 {
		last := n + 1
		if err := f.SetCellStyle(SheetDetail, "A2", fmt.Sprintf("A%d", last), date); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetDetail, "F2", fmt.Sprintf("H%d", last), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetDetail, "B", "B", 26); err != nil {
		return err
	}
	return f.SetColWidth(SheetDetail, "D", "D", 60)
}
