// =============================================================================
// XtractPajak - Document Converter
// =============================================================================
//
// This module orchestrates the processing of one ledger document from start
// to finish:
//   1. Extract the text lines (PDF or text file)
//   2. Reconstruct and normalize the ledger entries
//   3. Write the extraction workbook (summary / bulanan / rincian)
//   4. For each requested document type:
//      a. Map the filtered records onto the layout
//      b. Validate the mapped rows
//      c. Write the filled template workbook and the bulk XML
//   5. Archive the input document
//
// Each Converter owns its state; a batch runs one Converter per document.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/xtractpajak/internal/config"
	"github.com/ginjaninja78/xtractpajak/internal/extractor"
	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/rates"
	"github.com/ginjaninja78/xtractpajak/internal/summary"
	"github.com/ginjaninja78/xtractpajak/internal/types"
	"github.com/ginjaninja78/xtractpajak/internal/xlsxwriter"
	"github.com/ginjaninja78/xtractpajak/pkg/utils"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Result contains the outcome of processing a single document.
type Result struct {
	// FilePath is the path to the input document.
	FilePath string

	// Taxpayer is the display name of the job.
	Taxpayer string

	// OutputFiles lists every file written, in write order.
	OutputFiles []string

	// ArchivePath is where the input was moved, if it was archived.
	ArchivePath string

	// ErrorLog is the error log written for validation failures, if any.
	ErrorLog string

	// Success is true if the document was processed successfully.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	Lines             int
	EntriesSealed     int
	DroppedCategories int
	Records           int

	// RowsWritten sums mapped rows over every document type.
	RowsWritten int

	// UnmatchedRates counts rows whose derived fields were left empty.
	UnmatchedRates int

	ValidationErrors   int
	ValidationWarnings int

	ProcessingTime time.Duration
}

// =============================================================================
// JOB
// =============================================================================

// Job describes what to produce for a document.
type Job struct {
	// Name identifies the taxpayer in logs and summaries.
	Name string

	TIN   string
	Month int

	// DocTypes to produce. Empty means extraction only.
	DocTypes []types.DocumentType
}

// JobFromProfile builds a job from a taxpayer profile.
func JobFromProfile(p *config.TaxpayerProfile) (Job, error) {
	docs, err := p.DocTypes()
	if err != nil {
		return Job{}, err
	}
	return Job{Name: p.Name, TIN: p.TIN, Month: p.Month, DocTypes: docs}, nil
}

// =============================================================================
// CONVERTER
// =============================================================================

// Converter handles the conversion of a single ledger document.
type Converter struct {
	inputPath  string
	job        Job
	mainConfig *config.MainConfig
	registry   *rates.Registry
	extractor  extractor.Extractor
	files      *utils.FileManager
	logger     zerolog.Logger
	dryRun     bool
}

// New creates a new Converter instance. A nil registry uses the built-in
// rate table.
func New(inputPath string, job Job, mainConfig *config.MainConfig, registry *rates.Registry, logger zerolog.Logger) *Converter {
	if registry == nil {
		registry = rates.Default()
	}
	log := logger.With().Str("file", filepath.Base(inputPath)).Logger()

	return &Converter{
		inputPath:  inputPath,
		job:        job,
		mainConfig: mainConfig,
		registry:   registry,
		extractor: extractor.New(func(done, total int) {
			log.Debug().Int("page", done).Int("pages", total).Msg("Page extracted")
		}),
		files:  utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir),
		logger: log,
	}
}

// WithDryRun runs the pipeline without writing or archiving anything.
func (c *Converter) WithDryRun(dryRun bool) *Converter {
	c.dryRun = dryRun
	return c
}

// Run executes the conversion process for the document.
//
// RETURNS:
//   - A Result struct containing the outcome and statistics.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()

	result := Result{
		FilePath: c.inputPath,
		Taxpayer: c.job.Name,
	}
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	c.logger.Info().Str("taxpayer", c.job.Name).Msg("Processing file")

	// =========================================================================
	// STEP 1: EXTRACT LINES
	// =========================================================================

	lines, err := c.extractor.ExtractLines(c.inputPath)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract text: %w", err)
		return result
	}
	c.logger.Debug().Int("lines", len(lines)).Msg("Extracted lines")

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	// =========================================================================
	// STEP 2: RECONSTRUCT AND NORMALIZE ENTRIES
	// =========================================================================

	ex, err := Extract(lines, c.mainConfig.MaxLines)
	if err != nil {
		result.Error = err
		return result
	}

	result.Stats.Lines = ex.Stats.Lines
	result.Stats.EntriesSealed = ex.Stats.EntriesSealed
	result.Stats.DroppedCategories = ex.Stats.DroppedCategories
	result.Stats.Records = len(ex.Records)

	c.logger.Debug().
		Int("entries", ex.Stats.EntriesSealed).
		Int("records", len(ex.Records)).
		Int("noise_lines", ex.Stats.NoiseLines).
		Int("idle_lines", ex.Stats.IdleLines).
		Msg("Reconstructed ledger entries")

	if ex.Stats.DroppedCategories > 0 {
		c.logger.Warn().Int("count", ex.Stats.DroppedCategories).Msg("Category lines without three amounts were dropped")
	}

	// =========================================================================
	// STEP 3: EXTRACTION WORKBOOK
	// =========================================================================

	if path, err := c.writeExtractionWorkbook(ex); err != nil {
		result.Error = err
		return result
	} else if path != "" {
		result.OutputFiles = append(result.OutputFiles, path)
	}

	// =========================================================================
	// STEP 4: DOCUMENT TYPES
	// =========================================================================

	var logEntries []utils.ErrorLogEntry

	for _, doc := range c.job.DocTypes {
		if err := ctx.Err(); err != nil {
			result.Error = err
			return result
		}

		outcome, err := Map(ex, Request{DocType: doc, TIN: c.job.TIN, Month: c.job.Month}, c.registry, c.options())
		if err != nil {
			result.Error = fmt.Errorf("%s: %w", doc.Label(), err)
			return result
		}

		rows := outcome.Mapping.Span.Count()
		result.Stats.RowsWritten += rows
		result.Stats.UnmatchedRates += outcome.Mapping.Unmatched
		result.Stats.ValidationErrors += outcome.Validation.ErrorCount
		result.Stats.ValidationWarnings += outcome.Validation.WarningCount

		log := c.logger.With().Str("type", doc.Label()).Logger()
		log.Debug().Int("rows", rows).Int("filtered_out", len(ex.Records)-rows).Msg("Mapped records")

		if outcome.Mapping.Unmatched > 0 {
			log.Warn().Int("rows", outcome.Mapping.Unmatched).Msg("No rate rule for category; derived fields left empty")
		}

		for _, ve := range outcome.Validation.Errors {
			log.Warn().Str("cell", ve.Cell).Str("rule", ve.Rule).Msg(ve.Message)
			logEntries = append(logEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     filepath.Base(c.inputPath),
				ErrorType:    "validation:" + ve.Rule,
				ErrorMessage: ve.Message,
				RowNumber:    ve.Row,
				Cell:         ve.Cell,
				FieldName:    ve.Field,
				FieldValue:   ve.Value,
			})
		}

		if !outcome.Validation.IsValid && !c.mainConfig.ContinueOnError {
			result.ErrorLog = c.writeErrorLog(logEntries)
			result.Error = fmt.Errorf("%s: validation failed with %d errors", doc.Label(), outcome.Validation.ErrorCount)
			return result
		}

		paths, err := c.writeOutcome(outcome)
		if err != nil {
			result.Error = fmt.Errorf("%s: %w", doc.Label(), err)
			return result
		}
		result.OutputFiles = append(result.OutputFiles, paths...)
	}

	result.ErrorLog = c.writeErrorLog(logEntries)

	// =========================================================================
	// STEP 5: ARCHIVE INPUT
	// =========================================================================

	if !c.dryRun {
		archived, err := c.files.ArchiveInputFile(c.inputPath)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to archive input file")
		} else {
			result.ArchivePath = archived
		}
	}

	result.Success = true
	c.logger.Info().
		Int("records", result.Stats.Records).
		Int("rows", result.Stats.RowsWritten).
		Strs("outputs", result.OutputFiles).
		Msg("File processed")

	return result
}

// options derives pipeline options from the main configuration.
func (c *Converter) options() Options {
	return Options{
		MaxLines: c.mainConfig.MaxLines,
		Mapper: mapper.Options{
			IdentifierCell: c.mainConfig.IdentifierCell,
			StartRow:       c.mainConfig.StartRow,
		},
	}
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

// baseName is the input file name without extension.
func (c *Converter) baseName() string {
	name := filepath.Base(c.inputPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// outputPath builds an output path from the configured name format.
func (c *Converter) outputPath(typeLabel, ext string) string {
	name := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{
		"name": c.baseName(),
		"type": typeLabel,
	}, ext)
	return filepath.Join(c.mainConfig.OutputDir, name)
}

// writeExtractionWorkbook writes summary / bulanan / rincian.
func (c *Converter) writeExtractionWorkbook(ex *Extraction) (string, error) {
	f, err := summary.WriteWorkbook(ex.Records)
	if err != nil {
		return "", fmt.Errorf("failed to build extraction workbook: %w", err)
	}
	defer f.Close()

	if c.dryRun {
		return "", nil
	}

	path := c.outputPath("Rekap", ".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save extraction workbook: %w", err)
	}
	c.logger.Debug().Str("path", path).Msg("Wrote extraction workbook")
	return path, nil
}

// writeOutcome writes the filled template workbook and the XML.
func (c *Converter) writeOutcome(outcome *Outcome) ([]string, error) {
	doc := outcome.Request.DocType

	f, err := xlsxwriter.Write(c.mainConfig.TemplateFor(doc), outcome.Layout, outcome.Mapping, xlsxwriter.Options{
		Sheet:     c.mainConfig.DataSheet,
		HeaderRow: c.mainConfig.HeaderRow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fill template: %w", err)
	}
	defer f.Close()

	if c.dryRun {
		return nil, nil
	}

	xlsxPath := c.outputPath(doc.Label(), ".xlsx")
	if err := f.SaveAs(xlsxPath); err != nil {
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}

	xmlPath := c.outputPath(doc.Label(), ".xml")
	if err := os.WriteFile(xmlPath, outcome.XML, 0644); err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}

	c.logger.Debug().Str("workbook", xlsxPath).Str("xml", xmlPath).Msg("Wrote outputs")
	return []string{xlsxPath, xmlPath}, nil
}

// writeErrorLog writes collected validation errors, returning the log path.
func (c *Converter) writeErrorLog(entries []utils.ErrorLogEntry) string {
	if c.dryRun || len(entries) == 0 {
		return ""
	}
	path, err := utils.WriteErrorLog(entries, c.mainConfig.OutputDir)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write error log")
		return ""
	}
	return path
}
