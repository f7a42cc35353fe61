// =============================================================================
// XtractPajak - Schema Command
// =============================================================================
//
// COMMAND USAGE:
//   xtractpajak schema --type 21 [--output bp21.xsd]
//
// Prints the XSD describing the bulk XML of a document type.
//
// =============================================================================

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/types"
	"github.com/ginjaninja78/xtractpajak/internal/xmlwriter"
)

var (
	schemaType   string
	schemaOutput string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the XSD of a document type's bulk XML",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := types.ParseDocumentType(schemaType)
		if err != nil {
			return err
		}
		layout, err := mapper.LayoutFor(doc)
		if err != nil {
			return err
		}
		xsd, err := xmlwriter.GenerateXSD(layout)
		if err != nil {
			return err
		}
		if schemaOutput == "" {
			_, err = cmd.OutOrStdout().Write(xsd)
			return err
		}
		return os.WriteFile(schemaOutput, xsd, 0644)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVar(&schemaType, "type", "", "Document type: 21, unifikasi (required)")
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output path (default: stdout)")
	schemaCmd.MarkFlagRequired("type")
}
