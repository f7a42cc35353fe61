// =============================================================================
// XtractPajak - Extract Command
// =============================================================================
//
// COMMAND USAGE:
//   xtractpajak extract --file bkpp.pdf [--output rekap.xlsx]
//
// Writes only the extraction workbook (summary, bulanan, rincian) for one
// ledger document. No taxpayer identifier is needed and nothing is archived.
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xtractpajak/internal/converter"
	"github.com/ginjaninja78/xtractpajak/internal/extractor"
	"github.com/ginjaninja78/xtractpajak/internal/summary"
	"github.com/ginjaninja78/xtractpajak/pkg/utils"
)

var (
	extractFile   string
	extractOutput string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Write the extraction workbook for a ledger document",
	Long: `The extract command reconstructs the ledger entries of one document and writes
a workbook with three sheets:
  summary  - withheld and remitted totals per tax
  bulanan  - withheld amounts per day and tax
  rincian  - every normalized record`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract()
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractFile, "file", "", "Path to the ledger document (required)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output workbook path (default: output directory)")
	extractCmd.MarkFlagRequired("file")
}

func runExtract() error {
	lines, err := extractor.New(func(done, total int) {
		log.Debug().Int("page", done).Int("pages", total).Msg("Page extracted")
	}).ExtractLines(extractFile)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	ex, err := converter.Extract(lines, mainConfig.MaxLines)
	if err != nil {
		return err
	}

	f, err := summary.WriteWorkbook(ex.Records)
	if err != nil {
		return err
	}
	defer f.Close()

	out := extractOutput
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(extractFile), filepath.Ext(extractFile))
		name := utils.GenerateOutputFileName(mainConfig.OutputNameFormat, map[string]string{
			"name": base,
			"type": "Rekap",
		}, ".xlsx")
		out = filepath.Join(mainConfig.OutputDir, name)
	}
	if err := f.SaveAs(out); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	for _, t := range summary.Totals(ex.Records) {
		log.Info().
			Str("tax", t.Category).
			Str("withheld", t.Withheld.StringFixed(2)).
			Str("remitted", t.Remitted.StringFixed(2)).
			Msg("Total")
	}
	log.Info().
		Int("lines", ex.Stats.Lines).
		Int("entries", ex.Stats.EntriesSealed).
		Int("records", len(ex.Records)).
		Str("path", out).
		Msg("Wrote extraction workbook")
	return nil
}
