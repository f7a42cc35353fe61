// =============================================================================
// XtractPajak - Document Processing Core
// =============================================================================
//
// This file holds the side-effect free pipeline. Every call works on its own
// accumulator, grid and buffers, so documents can be processed concurrently
// and repeatedly in one process.
//
// PIPELINE:
//   lines -> Extract (classify, accumulate, normalize)
//         -> Map     (filter, map, validate, generate XML)
//
// Process runs both steps for one document type. A document that is mapped
// to several document types should be extracted once and mapped per type.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/xtractpajak/internal/ledger"
	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/rates"
	"github.com/ginjaninja78/xtractpajak/internal/types"
	"github.com/ginjaninja78/xtractpajak/internal/validation"
	"github.com/ginjaninja78/xtractpajak/internal/xlsxparser"
	"github.com/ginjaninja78/xtractpajak/internal/xmlwriter"
)

// ErrTooManyLines is returned when a document exceeds Options.MaxLines.
var ErrTooManyLines = errors.New("document exceeds the line limit")

// =============================================================================
// REQUEST AND OPTIONS
// =============================================================================

// Request selects what to produce from a document.
type Request struct {
	DocType types.DocumentType

	// TIN is the 16-digit taxpayer identifier.
	TIN string

	// Month keeps only records of this month (1..12). 0 keeps all.
	Month int
}

// Options bound and position the output.
type Options struct {
	// MaxLines rejects longer documents. 0 disables the check.
	MaxLines int

	// Mapper positions the mapped cells.
	Mapper mapper.Options

	// Validation tunes row validation.
	Validation validation.ValidationOptions
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extraction is the document-type independent part of the pipeline.
type Extraction struct {
	Entries []types.RawLedgerEntry
	Records []types.NormalizedRecord
	Stats   ledger.Stats
}

// Extract classifies and accumulates lines, then normalizes the entries.
// The only failure modes are the line ceiling and a normalization defect.
func Extract(lines []string, maxLines int) (*Extraction, error) {
	if maxLines > 0 && len(lines) > maxLines {
		return nil, fmt.Errorf("%w: %d lines, limit %d", ErrTooManyLines, len(lines), maxLines)
	}

	entries, stats := ledger.Accumulate(lines)

	records, err := ledger.Normalize(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize entries: %w", err)
	}

	return &Extraction{Entries: entries, Records: records, Stats: stats}, nil
}

// =============================================================================
// MAPPING
// =============================================================================

// Outcome is everything produced for one document and one document type.
type Outcome struct {
	Request Request
	Layout  mapper.Layout

	Entries []types.RawLedgerEntry
	Records []types.NormalizedRecord

	// Filtered are the records that were mapped, in row order.
	Filtered []types.NormalizedRecord

	Mapping    *mapper.Result
	Validation *validation.ValidationResult
	XML        []byte

	Stats ledger.Stats
}

// Map filters, maps, validates and converts an extraction for req.
// A nil registry uses the built-in rate table.
func Map(ex *Extraction, req Request, registry *rates.Registry, opts Options) (*Outcome, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	layout, err := mapper.LayoutFor(req.DocType)
	if err != nil {
		return nil, err
	}

	filtered := mapper.Filter(ex.Records, mapper.CriteriaFor(layout, req.Month))

	m := mapper.New(layout, registry, opts.Mapper)
	mapping, err := m.Map(filtered, req.TIN)
	if err != nil {
		return nil, fmt.Errorf("failed to map records: %w", err)
	}

	result := validation.NewValidatorWithOptions(layout, opts.Validation).ValidateMapping(mapping)

	xmlDoc, err := xmlwriter.Generate(xmlwriter.FromMapping(mapping, req.TIN), layout)
	if err != nil {
		return nil, fmt.Errorf("failed to generate XML: %w", err)
	}

	return &Outcome{
		Request:    req,
		Layout:     layout,
		Entries:    ex.Entries,
		Records:    ex.Records,
		Filtered:   filtered,
		Mapping:    mapping,
		Validation: result,
		XML:        xmlDoc,
		Stats:      ex.Stats,
	}, nil
}

// Process runs the whole pipeline over lines for one request.
func Process(lines []string, req Request, registry *rates.Registry, opts Options) (*Outcome, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	ex, err := Extract(lines, opts.MaxLines)
	if err != nil {
		return nil, err
	}
	return Map(ex, req, registry, opts)
}

func checkRequest(req Request) error {
	if ve := validation.ValidateTIN(req.TIN); ve != nil {
		return ve
	}
	if ve := validation.ValidateMonth(req.Month); ve != nil {
		return ve
	}
	if req.DocType.XMLPrefix() == "" {
		return fmt.Errorf("unknown document type %q", req.DocType)
	}
	return nil
}

// =============================================================================
// TEMPLATE CONVERSION
// =============================================================================

// TemplateOutcome is the result of converting a filled template workbook.
type TemplateOutcome struct {
	Workbook   *xlsxparser.Workbook
	Layout     mapper.Layout
	Validation *validation.ValidationResult
	XML        []byte

	// HeaderMismatches lists header cells that differ from the layout.
	HeaderMismatches []string
}

// ConvertTemplate reads a filled template workbook and generates its XML.
// The identifier cell is validated like a request TIN.
func ConvertTemplate(path string, doc types.DocumentType, opts xlsxparser.Options, vopts validation.ValidationOptions) (*TemplateOutcome, error) {
	layout, err := mapper.LayoutFor(doc)
	if err != nil {
		return nil, err
	}

	wb, err := xlsxparser.Parse(path, layout, opts)
	if err != nil {
		return nil, err
	}
	if ve := validation.ValidateTIN(wb.TIN); ve != nil {
		return nil, fmt.Errorf("identifier cell: %w", ve)
	}

	xmlDoc, err := xmlwriter.Generate(xmlwriter.FromWorkbook(wb), layout)
	if err != nil {
		return nil, fmt.Errorf("failed to generate XML: %w", err)
	}

	return &TemplateOutcome{
		Workbook:         wb,
		Layout:           layout,
		Validation:       validation.NewValidatorWithOptions(layout, vopts).ValidateRows(wb.Grid, wb.Span),
		XML:              xmlDoc,
		HeaderMismatches: wb.HeaderMismatches(layout),
	}, nil
}
