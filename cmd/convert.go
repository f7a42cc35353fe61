// =============================================================================
// XtractPajak - Convert Command
// =============================================================================
//
// COMMAND USAGE:
//   xtractpajak convert --file bupot21.xlsx --type 21 [--output bupot21.xml]
//
// Converts a filled (and possibly hand-edited) template workbook into the
// bulk upload XML. Formulas in the data sheet are evaluated before writing.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xtractpajak/internal/converter"
	"github.com/ginjaninja78/xtractpajak/internal/types"
	"github.com/ginjaninja78/xtractpajak/internal/validation"
	"github.com/ginjaninja78/xtractpajak/internal/xlsxparser"
)

var (
	convertFile   string
	convertType   string
	convertOutput string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a filled template workbook to bulk XML",
	Long: `The convert command reads the data sheet of a filled template workbook,
validates the rows against the document layout and writes the bulk XML.

Validation errors stop the conversion unless continue_on_error is set.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert()
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertFile, "file", "", "Path to the filled template workbook (required)")
	convertCmd.Flags().StringVar(&convertType, "type", "", "Document type: 21, unifikasi (required)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output XML path (default: next to the workbook)")
	convertCmd.MarkFlagRequired("file")
	convertCmd.MarkFlagRequired("type")
}

func runConvert() error {
	doc, err := types.ParseDocumentType(convertType)
	if err != nil {
		return err
	}

	outcome, err := converter.ConvertTemplate(convertFile, doc, xlsxparser.Options{
		Sheet:          mainConfig.DataSheet,
		IdentifierCell: mainConfig.IdentifierCell,
		HeaderRow:      mainConfig.HeaderRow,
		StartRow:       mainConfig.StartRow,
	}, validation.ValidationOptions{})
	if err != nil {
		return err
	}

	for _, m := range outcome.HeaderMismatches {
		log.Warn().Msg(m)
	}
	for _, ve := range outcome.Validation.Errors {
		log.Warn().Str("cell", ve.Cell).Str("rule", ve.Rule).Msg(ve.Message)
	}
	if !outcome.Validation.IsValid && !mainConfig.ContinueOnError {
		return fmt.Errorf("validation failed with %d errors", outcome.Validation.ErrorCount)
	}

	out := convertOutput
	if out == "" {
		out = strings.TrimSuffix(convertFile, filepath.Ext(convertFile)) + ".xml"
	}
	if err := os.WriteFile(out, outcome.XML, 0644); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}

	log.Info().
		Str("type", doc.Label()).
		Str("sheet", outcome.Workbook.Sheet).
		Int("rows", outcome.Workbook.Span.Count()).
		Str("path", out).
		Msg("Wrote XML")
	return nil
}
