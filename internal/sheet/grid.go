// Package sheet holds an in-memory, positional view of one worksheet. The
// mapper writes into a Grid; the xlsx writer, the xlsx reader and the XML
// writer all read or produce the same structure, so both export paths see
// identical cell values.
package sheet

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xtractpajak/internal/formula"
)

// CellKind says how a cell value is stored in a workbook.
type CellKind int

const (
	// Text is stored as a string cell.
	Text CellKind = iota

	// Number is stored as a numeric cell. Value holds a decimal string.
	Number

	// Formula is stored as a formula. Value holds the formula with its
	// leading "=".
	Formula
)

// Cell is one positioned value.
type Cell struct {
	Kind  CellKind
	Value string
}

// TextCell returns a string cell.
func TextCell(v string) Cell { return Cell{Kind: Text, Value: v} }

// NumberCell returns a numeric cell.
func NumberCell(v string) Cell { return Cell{Kind: Number, Value: v} }

// FormulaCell returns a formula cell. A missing "=" is added.
func FormulaCell(v string) Cell {
	if !formula.IsFormula(v) {
		v = "=" + v
	}
	return Cell{Kind: Formula, Value: v}
}

// Grid is a sparse map of cells keyed by A1 reference. It is not safe for
// concurrent writes.
type Grid struct {
	cells map[string]Cell
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{cells: make(map[string]Cell)}
}

// Set stores c at ref ("D4"). The reference is normalized first.
func (g *Grid) Set(ref string, c Cell) error {
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	g.cells[name] = c
	return nil
}

// SetAt stores c at a column letter and row number.
func (g *Grid) SetAt(column string, row int, c Cell) error {
	name, err := excelize.JoinCellName(column, row)
	if err != nil {
		return fmt.Errorf("invalid cell %s%d: %w", column, row, err)
	}
	return g.Set(name, c)
}

// Get returns the cell at ref.
func (g *Grid) Get(ref string) (Cell, bool) {
	c, ok := g.cells[ref]
	return c, ok
}

// GetAt returns the cell at a column letter and row number.
func (g *Grid) GetAt(column string, row int) (Cell, bool) {
	name, err := excelize.JoinCellName(column, row)
	if err != nil {
		return Cell{}, false
	}
	return g.Get(name)
}

// Lookup implements formula.Resolver with the raw stored value.
func (g *Grid) Lookup(ref string) (string, bool) {
	c, ok := g.cells[ref]
	if !ok {
		return "", false
	}
	return c.Value, true
}

// Resolved returns the materialized value at ref, evaluating formulas.
func (g *Grid) Resolved(ref string) string {
	c, ok := g.cells[ref]
	if !ok {
		return ""
	}
	return g.resolve(c)
}

// ResolvedAt is Resolved for a column letter and row number.
func (g *Grid) ResolvedAt(column string, row int) string {
	c, ok := g.GetAt(column, row)
	if !ok {
		return ""
	}
	return g.resolve(c)
}

func (g *Grid) resolve(c Cell) string {
	if c.Kind == Formula {
		return formula.Resolve(c.Value, g)
	}
	return c.Value
}

// Refs returns every stored reference, ordered by row then column.
func (g *Grid) Refs() []string {
	type pos struct {
		ref      string
		col, row int
	}
	all := make([]pos, 0, len(g.cells))
	for ref := range g.cells {
		col, row, _ := excelize.CellNameToCoordinates(ref)
		all = append(all, pos{ref, col, row})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].row != all[j].row {
			return all[i].row < all[j].row
		}
		return all[i].col < all[j].col
	})

	refs := make([]string, len(all))
	for i, p := range all {
		refs[i] = p.ref
	}
	return refs
}

// RowSpan is an inclusive range of written data rows. Empty when Count is 0.
type RowSpan struct {
	First int
	Last  int
}

// Count returns the number of rows in the span.
func (s RowSpan) Count() int {
	if s.Last < s.First {
		return 0
	}
	return s.Last - s.First + 1
}
