// =============================================================================
// XtractPajak - Output Layouts
// =============================================================================
//
// A Layout binds each output column (B..P) to an XML element name and to a
// derivation: where the value comes from. Both document types share the
// first five columns and differ afterwards.
//
// DERIVATIONS:
//   FromRecord : copied from the normalized record (month, year, ref, date)
//   Constant   : fixed text or number
//   Template   : text with {tin} substituted
//   Formula    : formula text with {row} substituted
//   Derived    : tax base, rate percentage or object code from the rate table
//
// =============================================================================

package mapper

import (
	"fmt"

	"github.com/ginjaninja78/xtractpajak/internal/category"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

// =============================================================================
// FIELD DEFINITION
// =============================================================================

// Derivation is the kind of rule producing a field value.
type Derivation int

const (
	FromRecord Derivation = iota
	Constant
	Template
	Formula
	Derived
)

// Source names a record attribute for FromRecord fields.
type Source int

const (
	SourceMonth Source = iota
	SourceYear
	SourceEntryRef
	SourceDate
)

// DerivedValue names a rate-table value for Derived fields.
type DerivedValue int

const (
	DerivedTaxBase DerivedValue = iota
	DerivedRatePercent
	DerivedObjectCode
)

// Data types understood by the validation package.
const (
	DataTypeString  = "string"
	DataTypeNumeric = "numeric"
	DataTypeDecimal = "decimal"
	DataTypeDate    = "date(2006-01-02)"
	DataTypeDigits  = "digits"
)

// Field binds one column to one XML element.
type Field struct {
	Column string
	Tag    string
	Kind   Derivation

	Source  Source
	Value   string
	Derive  DerivedValue
	Numeric bool

	// DataType and Required drive row validation.
	DataType string
	Required bool
}

// Layout is the ordered field list for one document type.
type Layout struct {
	DocType types.DocumentType
	Fields  []Field

	// Categories restricts records to these tags before mapping.
	Categories []category.Tag
}

// Placeholders substituted in Template and Formula values.
const (
	PlaceholderTIN = "{tin}"
	PlaceholderRow = "{row}"
)

const (
	// counterpartTIN is the placeholder NPWP for recipients without one.
	counterpartTIN = "0000000000000000"

	// placeSuffix turns a 16-digit NPWP into a place-of-business ID.
	placeSuffix = "000000"
)

// =============================================================================
// BUILT-IN LAYOUTS
// =============================================================================

// commonFields are columns B..E, identical for every document type.
func commonFields() []Field {
	return []Field{
		{Column: "B", Tag: "TaxPeriodMonth", Kind: FromRecord, Source: SourceMonth, Numeric: true, DataType: DataTypeNumeric, Required: true},
		{Column: "C", Tag: "TaxPeriodYear", Kind: FromRecord, Source: SourceYear, Numeric: true, DataType: DataTypeNumeric, Required: true},
		{Column: "D", Tag: "CounterpartTin", Kind: Constant, Value: counterpartTIN, DataType: DataTypeDigits, Required: true},
		{Column: "E", Tag: "IDPlaceOfBusinessActivityOfIncomeRecipient", Kind: Formula, Value: "=D" + PlaceholderRow + ` & "` + placeSuffix + `"`, DataType: DataTypeString},
	}
}

// Withholding21Layout is the PPh 21 layout.
func Withholding21Layout() Layout {
	fields := append(commonFields(),
		Field{Column: "F", Tag: "StatusTaxExemption", Kind: Constant, Value: "K/0", DataType: DataTypeString},
		Field{Column: "G", Tag: "TaxCertificate", Kind: Constant, Value: "N/A", DataType: DataTypeString},
		Field{Column: "H", Tag: "TaxObjectCode", Kind: Derived, Derive: DerivedObjectCode, DataType: DataTypeString, Required: true},
		Field{Column: "I", Tag: "Gross", Kind: Derived, Derive: DerivedTaxBase, Numeric: true, DataType: DataTypeDecimal, Required: true},
		Field{Column: "J", Tag: "Deemed", Kind: Constant, Value: "100", Numeric: true, DataType: DataTypeNumeric},
		Field{Column: "K", Tag: "Rate", Kind: Derived, Derive: DerivedRatePercent, Numeric: true, DataType: DataTypeDecimal, Required: true},
		Field{Column: "L", Tag: "Document", Kind: Constant, Value: "PaymentProof", DataType: DataTypeString},
		Field{Column: "M", Tag: "DocumentNumber", Kind: FromRecord, Source: SourceEntryRef, DataType: DataTypeString, Required: true},
		Field{Column: "N", Tag: "DocumentDate", Kind: FromRecord, Source: SourceDate, DataType: DataTypeDate, Required: true},
		Field{Column: "O", Tag: "IDPlaceOfBusinessActivity", Kind: Template, Value: PlaceholderTIN + placeSuffix, DataType: DataTypeDigits, Required: true},
		Field{Column: "P", Tag: "WithholdingDate", Kind: FromRecord, Source: SourceDate, DataType: DataTypeDate, Required: true},
	)
	return Layout{
		DocType:    types.Withholding21,
		Fields:     fields,
		Categories: []category.Tag{category.PPh21},
	}
}

// UnifiedLayout is the PPh 22 / 23 / 4(2) layout.
func UnifiedLayout() Layout {
	fields := append(commonFields(),
		Field{Column: "F", Tag: "TaxCertificate", Kind: Constant, Value: "N/A", DataType: DataTypeString},
		Field{Column: "G", Tag: "TaxObjectCode", Kind: Derived, Derive: DerivedObjectCode, DataType: DataTypeString, Required: true},
		Field{Column: "H", Tag: "TaxBase", Kind: Derived, Derive: DerivedTaxBase, Numeric: true, DataType: DataTypeDecimal, Required: true},
		Field{Column: "I", Tag: "Rate", Kind: Derived, Derive: DerivedRatePercent, Numeric: true, DataType: DataTypeDecimal, Required: true},
		Field{Column: "J", Tag: "Document", Kind: Constant, Value: "PaymentProof", DataType: DataTypeString},
		Field{Column: "K", Tag: "DocumentNumber", Kind: FromRecord, Source: SourceEntryRef, DataType: DataTypeString, Required: true},
		Field{Column: "L", Tag: "DocumentDate", Kind: FromRecord, Source: SourceDate, DataType: DataTypeDate, Required: true},
		Field{Column: "M", Tag: "IDPlaceOfBusinessActivity", Kind: Template, Value: PlaceholderTIN + placeSuffix, DataType: DataTypeDigits, Required: true},
		Field{Column: "N", Tag: "GovTreasurerOpt", Kind: Constant, Value: "Imprest", DataType: DataTypeString},
		Field{Column: "O", Tag: "SP2DNumber", Kind: Constant, Value: "", DataType: DataTypeString},
		Field{Column: "P", Tag: "WithholdingDate", Kind: FromRecord, Source: SourceDate, DataType: DataTypeDate, Required: true},
	)
	return Layout{
		DocType:    types.UnifiedWithholding,
		Fields:     fields,
		Categories: []category.Tag{category.PPh22, category.PPh23, category.PPh4a2},
	}
}

// LayoutFor returns the built-in layout for a document type.
func LayoutFor(doc types.DocumentType) (Layout, error) {
	switch doc {
	case types.Withholding21:
		return Withholding21Layout(), nil
	case types.UnifiedWithholding:
		return UnifiedLayout(), nil
	default:
		return Layout{}, fmt.Errorf("no layout for document type %q", doc)
	}
}

// =============================================================================
// LAYOUT HELPERS
// =============================================================================

// FirstColumn returns the leftmost column letter.
func (l Layout) FirstColumn() string {
	if len(l.Fields) == 0 {
		return ""
	}
	return l.Fields[0].Column
}

// LastColumn returns the rightmost column letter.
func (l Layout) LastColumn() string {
	if len(l.Fields) == 0 {
		return ""
	}
	return l.Fields[len(l.Fields)-1].Column
}

// AllowsCategory reports whether records of tag belong in this layout.
func (l Layout) AllowsCategory(tag category.Tag) bool {
	if len(l.Categories) == 0 {
		return true
	}
	for _, c := range l.Categories {
		if c == tag {
			return true
		}
	}
	return false
}
