// =============================================================================
// XtractPajak - Template Workbook Parser
// =============================================================================
//
// This module reads a filled bulk upload template back into a grid so the
// XML writer can convert it. It is the input side of the "workbook to XML"
// path; the same grid shape is produced by the mapper on the direct path.
//
// WORKBOOK STRUCTURE:
//   Row 1:  identifier cell (C1) with the taxpayer NPWP
//   Row 3:  column headers (the XML element names)
//   Row 4+: data rows; the first row with an empty column B ends the data
//
// Formula cells are kept as formulas ("=D4 & ...") so they can be resolved
// against the grid later, the way a spreadsheet would.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
)

// =============================================================================
// PARSED WORKBOOK
// =============================================================================

// Workbook is the content of one filled template.
type Workbook struct {
	// SourceFile is the path the workbook was read from, if any.
	SourceFile string

	// Sheet is the worksheet that was read.
	Sheet string

	// TIN is the taxpayer identifier read from the identifier cell.
	TIN string

	// Grid holds the identifier cell and every data cell.
	Grid *sheet.Grid

	// Span covers the data rows that were read.
	Span sheet.RowSpan

	// Headers maps column letter to the header text found on HeaderRow.
	Headers   map[string]string
	HeaderRow int
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options locates the data inside the workbook.
type Options struct {
	// Sheet to read. Empty means "DATA" when present, else the active sheet.
	Sheet string

	IdentifierCell string
	HeaderRow      int
	StartRow       int

	// MaxRows stops runaway reads of sheets with stray content far below.
	MaxRows int
}

// DefaultOptions matches the bulk upload templates.
func DefaultOptions() Options {
	return Options{
		IdentifierCell: "C1",
		HeaderRow:      3,
		StartRow:       4,
		MaxRows:        100000,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.IdentifierCell == "" {
		o.IdentifierCell = def.IdentifierCell
	}
	if o.HeaderRow <= 0 {
		o.HeaderRow = def.HeaderRow
	}
	if o.StartRow <= 0 {
		o.StartRow = def.StartRow
	}
	if o.MaxRows <= 0 {
		o.MaxRows = def.MaxRows
	}
	return o
}

// =============================================================================
// PARSING FUNCTIONS
// =============================================================================

// Parse reads a filled template from disk.
func Parse(path string, layout mapper.Layout, opts Options) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb, err := ParseFile(f, layout, opts)
	if err != nil {
		return nil, err
	}
	wb.SourceFile = path
	return wb, nil
}

// ParseReader reads a filled template from r.
func ParseReader(r io.Reader, layout mapper.Layout, opts Options) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return ParseFile(f, layout, opts)
}

// ParseFile reads a filled template from an open workbook.
func ParseFile(f *excelize.File, layout mapper.Layout, opts Options) (*Workbook, error) {
	opts = opts.withDefaults()

	sheetName, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	raw := excelize.Options{RawCellValue: true}

	tin, err := f.GetCellValue(sheetName, opts.IdentifierCell, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read identifier cell %s: %w", opts.IdentifierCell, err)
	}
	tin = strings.TrimSpace(tin)

	wb := &Workbook{
		Sheet:     sheetName,
		TIN:       tin,
		Grid:      sheet.NewGrid(),
		Span:      sheet.RowSpan{First: opts.StartRow, Last: opts.StartRow - 1},
		Headers:   make(map[string]string),
		HeaderRow: opts.HeaderRow,
	}
	if err := wb.Grid.Set(opts.IdentifierCell, sheet.TextCell(tin)); err != nil {
		return nil, err
	}

	for _, field := range layout.Fields {
		cell, err := excelize.JoinCellName(field.Column, opts.HeaderRow)
		if err != nil {
			return nil, err
		}
		header, _ := f.GetCellValue(sheetName, cell, raw)
		wb.Headers[field.Column] = strings.TrimSpace(header)
	}

	keyColumn := layout.FirstColumn()
	for row := opts.StartRow; row < opts.StartRow+opts.MaxRows; row++ {
		key, err := readCell(f, sheetName, keyColumn, row)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(key.Value) == "" {
			break
		}

		for _, field := range layout.Fields {
			c, err := readCell(f, sheetName, field.Column, row)
			if err != nil {
				return nil, err
			}
			if field.Numeric && c.Kind == sheet.Text && c.Value != "" {
				c.Kind = sheet.Number
			}
			if err := wb.Grid.SetAt(field.Column, row, c); err != nil {
				return nil, err
			}
		}
		wb.Span.Last = row
	}

	return wb, nil
}

// HeaderMismatches lists columns whose header text differs from the
// layout's element name. Templates with renamed headers still convert, but
// the caller should warn.
func (wb *Workbook) HeaderMismatches(layout mapper.Layout) []string {
	var out []string
	for _, field := range layout.Fields {
		got := wb.Headers[field.Column]
		if !strings.EqualFold(got, field.Tag) {
			out = append(out, fmt.Sprintf("%s%d: header %q, expected %q", field.Column, wb.HeaderRow, got, field.Tag))
		}
	}
	return out
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// pickSheet resolves the sheet to read.
func pickSheet(f *excelize.File, want string) (string, error) {
	if want != "" {
		if idx, err := f.GetSheetIndex(want); err != nil || idx < 0 {
			return "", fmt.Errorf("sheet %q not found", want)
		}
		return want, nil
	}
	if idx, err := f.GetSheetIndex("DATA"); err == nil && idx >= 0 {
		return "DATA", nil
	}
	name := f.GetSheetName(f.GetActiveSheetIndex())
	if name == "" {
		return "", fmt.Errorf("workbook has no sheets")
	}
	return name, nil
}

// readCell returns a formula cell when the cell holds a formula, else its
// raw value as text.
func readCell(f *excelize.File, sheetName, column string, row int) (sheet.Cell, error) {
	ref, err := excelize.JoinCellName(column, row)
	if err != nil {
		return sheet.Cell{}, err
	}

	formula, err := f.GetCellFormula(sheetName, ref)
	if err != nil {
		return sheet.Cell{}, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if formula != "" {
		return sheet.FormulaCell(formula), nil
	}

	value, err := f.GetCellValue(sheetName, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet.Cell{}, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return sheet.TextCell(value), nil
}
