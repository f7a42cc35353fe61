// =============================================================================
// XtractPajak - Document Line Extractor
// =============================================================================
//
// This module turns a ledger document into its text lines, in reading order.
// The ledger classifier only needs lines; how they are recovered depends on
// the file type:
//
//   .pdf : text rows reconstructed from the page content
//   .txt : one line per text line (already-extracted documents, fixtures)
//
// =============================================================================

package extractor

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor returns the text lines of a document.
type Extractor interface {
	ExtractLines(path string) ([]string, error)
}

// ProgressFunc is called after each page with the number of pages done.
type ProgressFunc func(done, total int)

// Supported file extensions.
const (
	ExtPDF  = ".pdf"
	ExtText = ".txt"
)

// Supported reports whether path has an extension this package can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtPDF, ExtText:
		return true
	}
	return false
}

// ExtractLines reads path with the extractor matching its extension.
func ExtractLines(path string) ([]string, error) {
	return New(nil).ExtractLines(path)
}

// =============================================================================
// DISPATCHING EXTRACTOR
// =============================================================================

// FileExtractor picks the reader by file extension.
type FileExtractor struct {
	progress ProgressFunc
}

// New creates a FileExtractor. progress may be nil.
func New(progress ProgressFunc) *FileExtractor {
	return &FileExtractor{progress: progress}
}

// ExtractLines implements Extractor.
func (e *FileExtractor) ExtractLines(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtPDF:
		return extractPDF(path, e.progress)
	case ExtText:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return ReadLines(f)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// ReadLines splits r into lines, dropping the line terminators.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return lines, nil
}

// =============================================================================
// PDF EXTRACTION
// =============================================================================

// extractPDF reads every page row by row. Pages where row extraction fails
// fall back to grouping text runs by their Y coordinate.
func extractPDF(path string, progress ProgressFunc) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed on %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if !page.V.IsNull() {
			pageLines, rowErr := pageRows(page)
			if rowErr != nil || len(pageLines) == 0 {
				pageLines = pageContentRows(page)
			}
			lines = append(lines, pageLines...)
		}
		if progress != nil {
			progress(i, total)
		}
	}

	return lines, nil
}

// pageRows uses the library's row grouping.
func pageRows(page pdf.Page) ([]string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// pageContentRows groups raw text runs by rounded Y (top to bottom), then
// orders each row by X.
func pageContentRows(page pdf.Page) []string {
	type run struct {
		x float64
		s string
	}

	byY := make(map[int][]run)
	for _, t := range page.Content().Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		byY[y] = append(byY[y], run{x: t.X, s: t.S})
	}

	ys := make([]int, 0, len(byY))
	for y := range byY {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var lines []string
	for _, y := range ys {
		runs := byY[y]
		sort.Slice(runs, func(a, b int) bool { return runs[a].x < runs[b].x })

		var b strings.Builder
		for _, r := range runs {
			b.WriteString(r.s)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
