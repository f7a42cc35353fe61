// =============================================================================
// XtractPajak - File Management Utilities
// =============================================================================
//
// This package provides utility functions for file management operations:
//   - Discovering ledger documents in the input directory
//   - Archiving processed input documents
//   - Generating output file names
//   - Writing error logs and run summaries
//
// FILE FLOW:
//   1. Ledger documents are placed in the input directory
//   2. The processor discovers and processes each document
//   3. Workbooks and XML files are written to the output directory
//   4. On success, the input document is moved to the input archive
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInputPatterns are the document types the extractor can read.
var DefaultInputPatterns = []string{"*.pdf", "*.PDF", "*.txt"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the processor.
type FileManager struct {
	// InputDir is the directory where input documents are located.
	InputDir string

	// OutputDir is the directory where outputs are written.
	OutputDir string

	// InputArchiveDir is the directory where processed inputs are moved.
	InputArchiveDir string

	// UseTimestampSubdirs creates YYYY/MM/DD subdirectories in the archive.
	UseTimestampSubdirs bool

	// ArchiveOnSuccess moves input files to the archive after processing.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager instance.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:            inputDir,
		OutputDir:           outputDir,
		InputArchiveDir:     inputArchiveDir,
		UseTimestampSubdirs: false,
		ArchiveOnSuccess:    true,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles finds all files in the input directory matching any of
// patterns (DefaultInputPatterns when none are given).
//
// RETURNS:
//   - Full paths, sorted and without duplicates.
//   - An error if the directory cannot be scanned.
func (fm *FileManager) DiscoverInputFiles(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultInputPatterns
	}

	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan input directory: %w", err)
		}

		for _, file := range files {
			if seen[file] {
				continue
			}
			info, err := os.Stat(file)
			if err != nil || info.IsDir() {
				continue
			}
			seen[file] = true
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed input file to the input archive. An
// existing archive entry with the same name is never overwritten.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	archiveDir := filepath.Dir(archivePath)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if _, err := os.Stat(archivePath); err == nil {
		ext := filepath.Ext(archivePath)
		archivePath = strings.TrimSuffix(archivePath, ext) + "_" + time.Now().Format("20060102_150405") + ext
	}

	// Rename fails across filesystems; fall back to copy and delete.
	if err := os.Rename(filePath, archivePath); err != nil {
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath places the file directly in archiveDir, or under
// archiveDir/YYYY/MM/DD when timestamp subdirectories are enabled.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	if fm.UseTimestampSubdirs {
		archiveDir = filepath.Join(archiveDir, filepath.FromSlash(time.Now().Format("2006/01/02")))
	}
	return filepath.Join(archiveDir, filepath.Base(filePath))
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name from a format string.
//
// PARAMETERS:
//   - format: The format string with placeholders.
//   - params: Additional placeholder values ({name}, {type}, ...).
//   - ext: The extension to enforce, e.g. ".xml" or ".xlsx".
//
// SUPPORTED PLACEHOLDERS:
//   - {uuid}: A random UUID (e.g., "550e8400-e29b-41d4-a716-446655440000")
//   - {timestamp}: Current timestamp (e.g., "20240115_143052")
//   - {date}: Current date (e.g., "20240115")
//   - {time}: Current time (e.g., "143052")
//   - {key}: Any key in params
//
// Characters that are not allowed in file names are replaced by "_".
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()
	id := uuid.New().String()

	replacements := map[string]string{
		"{uuid}":      id,
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	result = sanitizeFileName(result)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// sanitizeFileName replaces path separators and reserved characters.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// =============================================================================
// ERROR LOGGING
// =============================================================================

// ErrorLogEntry represents a single error entry in the error log.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	Cell         string
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to a log file in the output directory.
// Entries are grouped per input file, in the order the files first appear,
// with one line per entry.
//
// RETURNS:
//   - The path to the created log file ("" when there is nothing to log).
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	var order []string
	byFile := make(map[string][]ErrorLogEntry)
	for _, e := range entries {
		if _, seen := byFile[e.FileName]; !seen {
			order = append(order, e.FileName)
		}
		byFile[e.FileName] = append(byFile[e.FileName], e)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "XtractPajak - Error Log\nGenerated: %s\nTotal Errors: %d\n%s\n",
		time.Now().Format("2006-01-02 15:04:05"), len(entries), rule)

	for _, name := range order {
		group := byFile[name]
		fmt.Fprintf(&b, "\n[%s] %d error(s)\n", name, len(group))
		for _, e := range group {
			b.WriteString("  " + entryLocation(e))
			fmt.Fprintf(&b, " %s (%s, %s)\n", e.ErrorMessage, e.ErrorType, e.Timestamp.Format("15:04:05"))
			if e.FieldValue != "" {
				fmt.Fprintf(&b, "      value: %q\n", e.FieldValue)
			}
		}
	}
	b.WriteString(rule + "\nEnd of Error Log\n")

	logFileName := fmt.Sprintf("error_log_%s_%s.txt", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	logPath := filepath.Join(outputDir, logFileName)
	if err := os.WriteFile(logPath, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write error log: %w", err)
	}
	return logPath, nil
}

// rule separates log sections.
var rule = strings.Repeat("=", 80)

// entryLocation renders "M7 DocumentNumber:" style prefixes.
func entryLocation(e ErrorLogEntry) string {
	var parts []string
	switch {
	case e.Cell != "":
		parts = append(parts, e.Cell)
	case e.RowNumber > 0:
		parts = append(parts, fmt.Sprintf("row %d", e.RowNumber))
	}
	if e.FieldName != "" {
		parts = append(parts, e.FieldName)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ") + ":"
}

// =============================================================================
// SUMMARY REPORTING
// =============================================================================

// ProcessingSummary contains summary information for a processing run.
type ProcessingSummary struct {
	StartTime time.Time
	EndTime   time.Time

	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int

	TotalLines       int
	TotalEntries     int
	TotalRecords     int
	TotalRows        int
	ValidationErrors int

	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully processed file.
type ProcessedFileInfo struct {
	InputFile   string
	Taxpayer    string
	OutputFiles []string
	ArchivePath string
	Entries     int
	Records     int
	Rows        int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes a processing summary to a file.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryFileName := fmt.Sprintf("processing_summary_%s.txt", timestamp)
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)

	header := fmt.Sprintf("XtractPajak - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:        %d\n"+
		"  Successful:         %d\n"+
		"  Failed:             %d\n"+
		"  Document Lines:     %d\n"+
		"  Ledger Entries:     %d\n"+
		"  Records:            %d\n"+
		"  Rows Written:       %d\n"+
		"  Validation Errors:  %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalLines,
		summary.TotalEntries,
		summary.TotalRecords,
		summary.TotalRows,
		summary.ValidationErrors)
	writer.WriteString(header)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			writer.WriteString(fmt.Sprintf("  Input:        %s\n", pf.InputFile))
			if pf.Taxpayer != "" {
				writer.WriteString(fmt.Sprintf("  Taxpayer:     %s\n", pf.Taxpayer))
			}
			for _, out := range pf.OutputFiles {
				writer.WriteString(fmt.Sprintf("  Output:       %s\n", out))
			}
			if pf.ArchivePath != "" {
				writer.WriteString(fmt.Sprintf("  Archived:     %s\n", pf.ArchivePath))
			}
			writer.WriteString(fmt.Sprintf("  Entries:      %d\n", pf.Entries))
			writer.WriteString(fmt.Sprintf("  Records:      %d\n", pf.Records))
			writer.WriteString(fmt.Sprintf("  Rows:         %d\n", pf.Rows))
			writer.WriteString(fmt.Sprintf("  Process Time: %s\n\n", pf.ProcessTime.String()))
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			writer.WriteString(fmt.Sprintf("  File:  %s\n", ff.InputFile))
			if ff.ErrorType != "" {
				writer.WriteString(fmt.Sprintf("  Type:  %s\n", ff.ErrorType))
			}
			writer.WriteString(fmt.Sprintf("  Error: %s\n\n", ff.ErrorMessage))
		}
	}

	footer := "================================================================================\n" +
		"End of Summary\n"
	writer.WriteString(footer)

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}
