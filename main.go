// =============================================================================
// XtractPajak - Main Entry Point
// =============================================================================
//
// USAGE:
//   xtractpajak process   - Process ledger documents in the input directory
//   xtractpajak extract   - Write the extraction workbook for one document
//   xtractpajak convert   - Convert a filled template workbook to XML
//   xtractpajak schema    - Print the XSD of a document type
//   xtractpajak version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : Extraction, mapping, workbook and XML logic
//   - pkg/        : File management and report utilities
//   - configs/    : Rate table and taxpayer profiles
//   - templates/  : XLSX templates filled per document type
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/xtractpajak/cmd"
)

func main() {
	cmd.Execute()
}
