// =============================================================================
// XtractPajak - Template Workbook Writer
// =============================================================================
//
// This module fills a bulk upload template workbook from a mapped grid.
//
// TEMPLATE CONTRACT:
//   - The taxpayer identifier goes to the identifier cell (C1)
//   - Column headers live on the header row (3), one per layout field
//   - Data rows start below the header row (4)
//   - A worksheet table spans the header row and every data row
//
// When no template file is configured a blank workbook honouring the same
// contract is generated.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options describes where things live in the workbook.
type Options struct {
	// Sheet is the data sheet. Empty means the active sheet of a template,
	// or DefaultSheet for a generated workbook.
	Sheet string

	// HeaderRow is the table header row. Default: 3
	HeaderRow int

	// TableName and TableStyle are used when a table must be created.
	TableName  string
	TableStyle string
}

// DefaultSheet is the sheet name of generated workbooks.
const DefaultSheet = "DATA"

// DefaultOptions returns the options matching the bulk upload templates.
func DefaultOptions() Options {
	return Options{
		HeaderRow:  3,
		TableName:  "TabelData",
		TableStyle: "TableStyleMedium2",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HeaderRow <= 0 {
		o.HeaderRow = def.HeaderRow
	}
	if o.TableName == "" {
		o.TableName = def.TableName
	}
	if o.TableStyle == "" {
		o.TableStyle = def.TableStyle
	}
	return o
}

// =============================================================================
// WRITE
// =============================================================================

// Write opens templatePath (or generates a blank workbook when the path is
// empty), fills it with res and resizes the data table. The caller saves
// and closes the returned file.
func Write(templatePath string, layout mapper.Layout, res *mapper.Result, opts Options) (*excelize.File, error) {
	opts = opts.withDefaults()

	var (
		f   *excelize.File
		err error
	)
	if templatePath == "" {
		f, err = NewBlank(layout, opts)
	} else {
		f, err = excelize.OpenFile(templatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}

	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("sheet %q not found in template", sheetName)
	}

	if err := Fill(f, sheetName, res.Grid); err != nil {
		f.Close()
		return nil, err
	}

	if err := ResizeTable(f, sheetName, layout, opts, res.Span); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// NewBlank generates a workbook with the identifier label, the header row
// and column widths for layout.
func NewBlank(layout mapper.Layout, opts Options) (*excelize.File, error) {
	opts = opts.withDefaults()
	name := opts.Sheet
	if name == "" {
		name = DefaultSheet
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetCellStr(name, "B1", "NPWP"); err != nil {
		f.Close()
		return nil, err
	}
	for _, field := range layout.Fields {
		cell, err := excelize.JoinCellName(field.Column, opts.HeaderRow)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellStr(name, cell, field.Tag); err != nil {
			f.Close()
			return nil, err
		}
	}
	if first, last := layout.FirstColumn(), layout.LastColumn(); first != "" {
		if err := f.SetColWidth(name, first, last, 22); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// Fill writes every grid cell into sheetName. Empty text cells are skipped
// so template content underneath is not clobbered with blanks.
func Fill(f *excelize.File, sheetName string, g *sheet.Grid) error {
	for _, ref := range g.Refs() {
		c, _ := g.Get(ref)

		var err error
		switch c.Kind {
		case sheet.Number:
			var d decimal.Decimal
			d, err = decimal.NewFromString(c.Value)
			if err != nil {
				return fmt.Errorf("cell %s: invalid number %q: %w", ref, c.Value, err)
			}
			if d.IsInteger() {
				err = f.SetCellInt(sheetName, ref, int(d.IntPart()))
			} else {
				err = f.SetCellFloat(sheetName, ref, d.InexactFloat64(), -1, 64)
			}

		case sheet.Formula:
			err = f.SetCellFormula(sheetName, ref, strings.TrimPrefix(c.Value, "="))

		default:
			if c.Value == "" {
				continue
			}
			err = f.SetCellStr(sheetName, ref, c.Value)
		}

		if err != nil {
			return fmt.Errorf("failed to write cell %s: %w", ref, err)
		}
	}
	return nil
}

// =============================================================================
// TABLE RANGE
// =============================================================================

// TableRange returns the table reference covering the header row and span.
// An empty span keeps one blank data row below the header, since a
// worksheet table cannot be header-only.
func TableRange(layout mapper.Layout, headerRow int, span sheet.RowSpan) string {
	last := span.Last
	if span.Count() == 0 {
		last = headerRow + 1
	}
	return fmt.Sprintf("%s%d:%s%d", layout.FirstColumn(), headerRow, layout.LastColumn(), last)
}

// ResizeTable makes the sheet's first table span exactly the header row and
// the written rows. A missing table is created.
func ResizeTable(f *excelize.File, sheetName string, layout mapper.Layout, opts Options, span sheet.RowSpan) error {
	opts = opts.withDefaults()

	ref := TableRange(layout, opts.HeaderRow, span)

	tables, err := f.GetTables(sheetName)
	if err != nil {
		return fmt.Errorf("failed to read tables: %w", err)
	}

	table := &excelize.Table{
		Range:     ref,
		Name:      opts.TableName,
		StyleName: opts.TableStyle,
	}

	if len(tables) > 0 {
		existing := tables[0]
		if err := f.DeleteTable(existing.Name); err != nil {
			return fmt.Errorf("failed to remove table %s: %w", existing.Name, err)
		}
		table.Name = existing.Name
		table.StyleName = existing.StyleName
		table.ShowColumnStripes = existing.ShowColumnStripes
		table.ShowFirstColumn = existing.ShowFirstColumn
		table.ShowLastColumn = existing.ShowLastColumn
		table.ShowRowStripes = existing.ShowRowStripes
	}

	if err := f.AddTable(sheetName, table); err != nil {
		return fmt.Errorf("failed to set table range %s: %w", ref, err)
	}
	return nil
}
