// =============================================================================
// XtractPajak - Validation Engine
// =============================================================================
//
// This module validates run parameters and mapped rows before anything is
// written. It checks:
//   - The taxpayer identifier (16 digits)
//   - The reporting month (0 = all months, else 1..12)
//   - Every mapped cell against its layout field: required flag and data type
//
// ERROR HANDLING:
//   - Errors are collected, not returned on the first failure
//   - Each error carries the cell reference, field tag and offending value
//   - Errors are either fatal ("error") or informational ("warning")
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// TINLength is the number of digits in a taxpayer identifier.
const TINLength = 16

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation error.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Cell is the cell reference ("I4"), empty for parameter checks.
	Cell string

	// Field is the XML element name or parameter name that failed.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	// Row is the sheet row, 0 for parameter checks.
	Row int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	where := e.Field
	if e.Cell != "" {
		where = fmt.Sprintf("%s (%s)", e.Cell, e.Field)
	}
	return fmt.Sprintf("[%s] %s: %s (value: '%s')",
		strings.ToUpper(e.Severity), where, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all validation errors (including warnings).
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	FieldsValidated int
	RowsValidated   int
}

func (r *ValidationResult) add(err *ValidationError, options ValidationOptions) {
	r.Errors = append(r.Errors, err)
	if err.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}
	r.WarningCount++
	if options.TreatWarningsAsErrors {
		r.IsValid = false
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first fatal error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool

	// SkipOptionalValidation skips data type checks on optional fields.
	SkipOptionalValidation bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// Validator checks mapped rows against a layout.
type Validator struct {
	layout  mapper.Layout
	options ValidationOptions
}

// NewValidator creates a new Validator instance.
func NewValidator(layout mapper.Layout) *Validator {
	return NewValidatorWithOptions(layout, DefaultValidationOptions())
}

// NewValidatorWithOptions creates a new Validator with custom options.
func NewValidatorWithOptions(layout mapper.Layout, options ValidationOptions) *Validator {
	return &Validator{layout: layout, options: options}
}

// =============================================================================
// PARAMETER VALIDATION
// =============================================================================

// ValidateTIN checks that tin is exactly 16 digits.
func ValidateTIN(tin string) *ValidationError {
	if len(tin) != TINLength || !isDigits(tin) {
		return &ValidationError{
			Severity: SeverityError,
			Field:    "tin",
			Value:    tin,
			Rule:     "tin",
			Message:  fmt.Sprintf("taxpayer identifier must be %d digits", TINLength),
		}
	}
	return nil
}

// ValidateMonth checks that month is 0 (all months) or 1..12.
func ValidateMonth(month int) *ValidationError {
	if month < 0 || month > 12 {
		return &ValidationError{
			Severity: SeverityError,
			Field:    "month",
			Value:    strconv.Itoa(month),
			Rule:     "range",
			Message:  "month must be between 1 and 12, or 0 for all months",
		}
	}
	return nil
}

// =============================================================================
// ROW VALIDATION
// =============================================================================

// ValidateRows validates every field of every row in span.
func (v *Validator) ValidateRows(g *sheet.Grid, span sheet.RowSpan) *ValidationResult {
	return v.validateRows(g, span, nil)
}

// ValidateMapping validates the rows of a mapping result. An empty derived
// field on a row whose category has no rate rule is reported as a warning;
// the row is still emitted.
func (v *Validator) ValidateMapping(res *mapper.Result) *ValidationResult {
	unmatched := make(map[int]bool, len(res.UnmatchedRows))
	for _, row := range res.UnmatchedRows {
		unmatched[row] = true
	}
	return v.validateRows(res.Grid, res.Span, unmatched)
}

func (v *Validator) validateRows(g *sheet.Grid, span sheet.RowSpan, unmatched map[int]bool) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		Errors:  make([]*ValidationError, 0),
	}

	for row := span.First; row <= span.Last; row++ {
		result.RowsValidated++
		for _, field := range v.layout.Fields {
			result.FieldsValidated++
			value := g.ResolvedAt(field.Column, row)

			for _, err := range v.ValidateField(value, field, row) {
				if unmatched[row] && field.Kind == mapper.Derived && err.Rule == "required" {
					err.Severity = SeverityWarning
					err.Rule = "rate_rule"
					err.Message = fmt.Sprintf("No rate rule for the row's category; '%s' left empty", field.Tag)
				}
				result.add(err, v.options)
				if err.Severity == SeverityError && v.options.StopOnFirstError {
					return result
				}
			}
		}
	}

	return result
}

// ValidateField validates a single resolved cell value against its field.
func (v *Validator) ValidateField(value string, field mapper.Field, row int) []*ValidationError {
	var errors []*ValidationError

	cell := fmt.Sprintf("%s%d", field.Column, row)
	value = strings.TrimSpace(value)

	if value == "" {
		if field.Required {
			errors = append(errors, &ValidationError{
				Severity: SeverityError,
				Cell:     cell,
				Field:    field.Tag,
				Rule:     "required",
				Message:  fmt.Sprintf("Required field '%s' is empty", field.Tag),
				Row:      row,
			})
		}
		return errors
	}

	if v.options.SkipOptionalValidation && !field.Required {
		return errors
	}

	if msg := validateDataType(value, field.DataType); msg != "" {
		errors = append(errors, &ValidationError{
			Severity: SeverityError,
			Cell:     cell,
			Field:    field.Tag,
			Value:    value,
			Rule:     "data_type",
			Message:  msg,
			Row:      row,
		})
	}

	return errors
}

// =============================================================================
// DATA TYPE VALIDATORS
// =============================================================================

// validateDataType validates a value against a data type.
//
// SUPPORTED DATA TYPES:
//   - string: Any text value (always valid)
//   - numeric: Integer numbers only
//   - decimal: Decimal numbers, optionally "decimal(n)" for max places
//   - digits: Digit strings of any length (identifiers with leading zeros)
//   - date: "date(layout)" with a Go time layout
func validateDataType(value, dataType string) string {
	switch {
	case dataType == mapper.DataTypeString || dataType == "":
		return ""

	case dataType == mapper.DataTypeNumeric:
		return validateNumeric(value)

	case strings.HasPrefix(dataType, mapper.DataTypeDecimal):
		return validateDecimal(value, dataType)

	case dataType == mapper.DataTypeDigits:
		if !isDigits(value) {
			return fmt.Sprintf("Value '%s' must contain only digits", value)
		}
		return ""

	case strings.HasPrefix(dataType, "date"):
		return validateDate(value, dataType)

	default:
		return ""
	}
}

// validateNumeric validates that a value is a valid integer.
func validateNumeric(value string) string {
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return fmt.Sprintf("Value '%s' is not a valid integer", value)
	}
	return ""
}

// validateDecimal validates that a value is a valid decimal number.
// Example: "decimal(2)" allows at most two decimal places.
func validateDecimal(value, dataType string) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Sprintf("Value '%s' is not a valid decimal number", value)
	}

	if precisionStr := extractParenthesesContent(dataType); precisionStr != "" {
		precision, err := strconv.Atoi(precisionStr)
		if err == nil && precision >= 0 && -d.Exponent() > int32(precision) {
			return fmt.Sprintf("Value '%s' has more than %d decimal places", value, precision)
		}
	}

	return ""
}

// validateDate validates that a value matches the layout in "date(layout)".
func validateDate(value, dataType string) string {
	format := extractParenthesesContent(dataType)
	if format == "" {
		format = "2006-01-02"
	}
	if _, err := time.Parse(format, value); err != nil {
		return fmt.Sprintf("Value '%s' does not match date format '%s'", value, format)
	}
	return ""
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// extractParenthesesContent extracts content between parentheses.
// Example: "decimal(2)" -> "2"
func extractParenthesesContent(s string) string {
	start := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")

	if start != -1 && end != -1 && end > start {
		return s[start+1 : end]
	}

	return ""
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes formatted validation errors to filePath.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	if err := os.WriteFile(filePath, []byte(FormatErrors(errors)), 0644); err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}
