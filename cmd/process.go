// =============================================================================
// XtractPajak - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the tool. It
// runs the full pipeline over one ledger document or over every document in
// the input directory.
//
// COMMAND USAGE:
//   xtractpajak process [flags]
//
// FLAGS:
//   --file     : Process a single document instead of the input directory
//   --tin      : Taxpayer identifier (overrides taxpayer profiles)
//   --month    : Keep only records of this month (1..12, 0 for all)
//   --type     : Document type(s) to produce (21, unifikasi)
//   --name     : Taxpayer display name used with --tin
//   --dry-run  : Run the pipeline without writing or archiving anything
//
// PROCESSING PIPELINE:
//   1. Load the rate table and the taxpayer profiles
//   2. Discover ledger documents in the input directory
//   3. Match each document to a taxpayer profile (or the flags)
//   4. Process documents concurrently, bounded by max_concurrency
//   5. Write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xtractpajak/internal/config"
	"github.com/ginjaninja78/xtractpajak/internal/converter"
	"github.com/ginjaninja78/xtractpajak/internal/types"
	"github.com/ginjaninja78/xtractpajak/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun       bool
	filePath     string
	taxpayerTIN  string
	taxpayerName string
	taxMonth     int
	docTypeNames []string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process tax ledger documents into workbooks and bulk XML",
	Long: `The process command reads tax ledger documents (PDF or text), reconstructs
their entries and writes, per document:
  - an extraction workbook (summary, bulanan, rincian)
  - a filled template workbook and bulk XML per document type

Documents are matched to taxpayer profiles by file name unless --tin is given.
Documents are processed concurrently; a failure in one does not stop the others.

On success the input document is moved to the input archive. On failure it
stays in the input directory and the error is recorded in the summary report.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing or archiving anything")
	processCmd.Flags().StringVar(&filePath, "file", "", "Path to a single ledger document to process")
	processCmd.Flags().StringVar(&taxpayerTIN, "tin", "", "16-digit taxpayer identifier (overrides taxpayer profiles)")
	processCmd.Flags().StringVar(&taxpayerName, "name", "", "Taxpayer display name used with --tin")
	processCmd.Flags().IntVar(&taxMonth, "month", 0, "Keep only records of this month (1-12, 0 for all)")
	processCmd.Flags().StringSliceVar(&docTypeNames, "type", nil, "Document type(s) to produce: 21, unifikasi (default: both)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD RATE TABLE AND PROFILES
	// =========================================================================

	registry, err := config.LoadRegistry(mainConfig.RateTable)
	if err != nil {
		return fmt.Errorf("failed to load rate table: %w", err)
	}

	var profiles []*config.TaxpayerProfile
	if taxpayerTIN == "" {
		profiles, err = config.LoadTaxpayerProfiles(mainConfig.ProfilesDir)
		if err != nil {
			return fmt.Errorf("failed to load taxpayer profiles: %w", err)
		}
		log.Info().Int("profiles", len(profiles)).Msg("Loaded taxpayer profiles")
	}

	flagDocs, err := parseDocTypes(docTypeNames)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir)
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = fm.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		log.Info().Str("dir", mainConfig.InputDir).Msg("No ledger documents found")
		return nil
	}
	log.Info().Int("files", len(inputFiles)).Int("concurrency", mainConfig.MaxConcurrency).Msg("Processing files")

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(inputFiles))
	sem := make(chan struct{}, mainConfig.MaxConcurrency)

	for _, file := range inputFiles {
		job, err := resolveJob(file, profiles, flagDocs)
		if err != nil {
			results <- converter.Result{FilePath: file, Error: err}
			continue
		}

		wg.Add(1)
		go func(path string, job converter.Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			conv := converter.New(path, job, mainConfig, registry, log).WithDryRun(dryRun)
			results <- conv.Run(ctx)
		}(file, job)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}

	for result := range results {
		name := filepath.Base(result.FilePath)
		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: result.Error.Error(),
				ErrorType:    "processing",
			})
			log.Error().Str("file", name).Err(result.Error).Msg("File failed")
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalLines += result.Stats.Lines
		summary.TotalEntries += result.Stats.EntriesSealed
		summary.TotalRecords += result.Stats.Records
		summary.TotalRows += result.Stats.RowsWritten
		summary.ValidationErrors += result.Stats.ValidationErrors
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   name,
			Taxpayer:    result.Taxpayer,
			OutputFiles: result.OutputFiles,
			ArchivePath: result.ArchivePath,
			Entries:     result.Stats.EntriesSealed,
			Records:     result.Stats.Records,
			Rows:        result.Stats.RowsWritten,
			ProcessTime: result.Stats.ProcessingTime,
		})
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 5: SUMMARY REPORT
	// =========================================================================

	if !dryRun {
		path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to write summary report")
		} else {
			log.Info().Str("path", path).Msg("Wrote summary report")
		}
	}

	log.Info().
		Int("total", summary.TotalFiles).
		Int("successful", summary.SuccessfulFiles).
		Int("failed", summary.FailedFiles).
		Int("rows", summary.TotalRows).
		Dur("elapsed", summary.EndTime.Sub(startTime)).
		Msg("Processing complete")

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resolveJob builds the job for a file from the flags or the matching
// taxpayer profile. Flags given alongside a profile override it.
func resolveJob(path string, profiles []*config.TaxpayerProfile, flagDocs []types.DocumentType) (converter.Job, error) {
	var job converter.Job

	if taxpayerTIN != "" {
		job = converter.Job{
			Name:     taxpayerName,
			TIN:      taxpayerTIN,
			Month:    taxMonth,
			DocTypes: []types.DocumentType{types.Withholding21, types.UnifiedWithholding},
		}
		if job.Name == "" {
			job.Name = taxpayerTIN
		}
	} else {
		profile := config.FindProfile(path, profiles)
		if profile == nil {
			return job, fmt.Errorf("no matching taxpayer profile found (use --tin)")
		}
		var err error
		if job, err = converter.JobFromProfile(profile); err != nil {
			return job, err
		}
		if taxMonth != 0 {
			job.Month = taxMonth
		}
	}

	if len(flagDocs) > 0 {
		job.DocTypes = flagDocs
	}
	return job, nil
}

// parseDocTypes parses the --type values.
func parseDocTypes(names []string) ([]types.DocumentType, error) {
	var docs []types.DocumentType
	for _, n := range names {
		d, err := types.ParseDocumentType(n)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}
