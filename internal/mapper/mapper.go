// =============================================================================
// XtractPajak - Record Mapper
// =============================================================================
//
// The mapper turns filtered records into positioned cells. The identifier
// (NPWP) goes to a fixed header cell and each record becomes one row,
// starting at the configured data row.
//
// The returned grid feeds both exports:
//   - xlsxwriter fills the template workbook from it
//   - xmlwriter walks the same rows, resolving formulas
//
// =============================================================================

package mapper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/xtractpajak/internal/rates"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options positions the mapped output.
type Options struct {
	// IdentifierCell receives the taxpayer identifier. Default: C1
	IdentifierCell string

	// StartRow is the first data row. Default: 4
	StartRow int
}

// DefaultOptions matches the bulk upload templates.
func DefaultOptions() Options {
	return Options{IdentifierCell: "C1", StartRow: 4}
}

// Result is the outcome of one mapping run.
type Result struct {
	Grid *sheet.Grid

	// Span covers exactly the written data rows.
	Span sheet.RowSpan

	// Unmatched counts records whose category had no rate rule. Their
	// derived fields were left empty.
	Unmatched int

	// UnmatchedRows lists the sheet rows of those records.
	UnmatchedRows []int
}

// =============================================================================
// MAPPER
// =============================================================================

// Mapper is stateless between calls and may be shared.
type Mapper struct {
	layout   Layout
	registry *rates.Registry
	options  Options
}

// New creates a mapper. A nil registry uses the built-in rate table.
func New(layout Layout, registry *rates.Registry, options Options) *Mapper {
	if registry == nil {
		registry = rates.Default()
	}
	def := DefaultOptions()
	if options.IdentifierCell == "" {
		options.IdentifierCell = def.IdentifierCell
	}
	if options.StartRow <= 0 {
		options.StartRow = def.StartRow
	}
	return &Mapper{layout: layout, registry: registry, options: options}
}

// Layout returns the mapper's layout.
func (m *Mapper) Layout() Layout { return m.layout }

// Options returns the effective options.
func (m *Mapper) Options() Options { return m.options }

// Map writes the identifier and one row per record. Records are expected
// to be filtered already; they are written in the given order.
func (m *Mapper) Map(records []types.NormalizedRecord, tin string) (*Result, error) {
	grid := sheet.NewGrid()
	if err := grid.Set(m.options.IdentifierCell, sheet.TextCell(tin)); err != nil {
		return nil, err
	}

	result := &Result{
		Grid: grid,
		Span: sheet.RowSpan{First: m.options.StartRow, Last: m.options.StartRow - 1},
	}

	for i, rec := range records {
		row := m.options.StartRow + i
		derived, ok := m.registry.Derive(rec.Category, rec.Withheld)
		if !ok {
			result.Unmatched++
			result.UnmatchedRows = append(result.UnmatchedRows, row)
		}

		for _, f := range m.layout.Fields {
			cell := m.fieldCell(f, rec, tin, row, derived, ok)
			if err := grid.SetAt(f.Column, row, cell); err != nil {
				return nil, fmt.Errorf("row %d, field %s: %w", row, f.Tag, err)
			}
		}
		result.Span.Last = row
	}

	return result, nil
}

// fieldCell resolves one field for one record.
func (m *Mapper) fieldCell(f Field, rec types.NormalizedRecord, tin string, row int, d rates.Derived, derivedOK bool) sheet.Cell {
	switch f.Kind {
	case FromRecord:
		return typed(f, recordValue(f.Source, rec))

	case Constant:
		return typed(f, f.Value)

	case Template:
		return sheet.TextCell(strings.ReplaceAll(f.Value, PlaceholderTIN, tin))

	case Formula:
		return sheet.FormulaCell(strings.ReplaceAll(f.Value, PlaceholderRow, strconv.Itoa(row)))

	case Derived:
		if !derivedOK {
			return sheet.TextCell("")
		}
		switch f.Derive {
		case DerivedTaxBase:
			return typed(f, d.TaxBase.String())
		case DerivedRatePercent:
			return typed(f, d.RatePercent.String())
		case DerivedObjectCode:
			return typed(f, d.ObjectCode)
		}
	}

	return sheet.TextCell("")
}

func typed(f Field, v string) sheet.Cell {
	if f.Numeric && v != "" {
		return sheet.NumberCell(v)
	}
	return sheet.TextCell(v)
}

func recordValue(src Source, rec types.NormalizedRecord) string {
	switch src {
	case SourceMonth:
		if m := rec.Month(); m != 0 {
			return strconv.Itoa(m)
		}
	case SourceYear:
		if y := rec.Year(); y != 0 {
			return strconv.Itoa(y)
		}
	case SourceEntryRef:
		return rec.EntryRef
	case SourceDate:
		if !rec.Date.IsZero() {
			return rec.Date.Format("2006-01-02")
		}
	}
	return ""
}
