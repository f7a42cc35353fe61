// =============================================================================
// XtractPajak - Bulk XML Writer
// =============================================================================
//
// This module generates the bulk upload XML from a filled grid. The grid is
// either produced by the mapper (direct path) or read back from a template
// workbook by xlsxparser (workbook path); both produce the same document.
//
// XML STRUCTURE:
//   The generated XML follows this nesting pattern (prefix Bp21 or Bpu):
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <Bp21Bulk xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
//     <TIN>0123456789012345</TIN>
//     <ListOfBp21>
//       <Bp21>                                 <!-- One per data row -->
//         <TaxPeriodMonth>3</TaxPeriodMonth>   <!-- One per layout field -->
//         <TaxPeriodYear>2024</TaxPeriodYear>
//         <SP2DNumber/>                        <!-- Empty value -->
//       </Bp21>
//     </ListOfBp21>
//   </Bp21Bulk>
//
// Cell values are resolved before writing: formula cells such as
// =D4 & "000000" are evaluated against the grid.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/xtractpajak/internal/mapper"
	"github.com/ginjaninja78/xtractpajak/internal/sheet"
	"github.com/ginjaninja78/xtractpajak/internal/xlsxparser"
)

// XSINamespace is declared on every bulk root element.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the XML declaration.
	// Default: "UTF-8"
	Encoding string

	// RootAttributes are the attributes of the root element, written in
	// name order.
	// Default: {"xmlns:xsi": XSINamespace}
	RootAttributes map[string]string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
		RootAttributes:        map[string]string{"xmlns:xsi": XSINamespace},
	}
}

// =============================================================================
// INPUT
// =============================================================================

// Input is the filled grid to convert.
type Input struct {
	// TIN is the taxpayer identifier written to <TIN>.
	TIN string

	// Grid holds the data cells (and anything formulas refer to).
	Grid *sheet.Grid

	// Span selects the data rows; each becomes one record element.
	Span sheet.RowSpan
}

// FromMapping wraps a mapper result.
func FromMapping(res *mapper.Result, tin string) Input {
	return Input{TIN: tin, Grid: res.Grid, Span: res.Span}
}

// FromWorkbook wraps a parsed template workbook.
func FromWorkbook(wb *xlsxparser.Workbook) Input {
	return Input{TIN: wb.TIN, Grid: wb.Grid, Span: wb.Span}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates the bulk XML document for layout from in.
//
// PARAMETERS:
//   - in: The grid, data row span and taxpayer identifier.
//   - layout: The field layout; its document type names the elements.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if generation fails.
//
// GENERATION PROCESS:
//   1. Create the root element ({Prefix}Bulk) with the xsi namespace
//   2. Add the TIN element
//   3. Add the ListOf{Prefix} element with one {Prefix} per row in the span
//   4. Marshal the XML with proper indentation
func Generate(in Input, layout mapper.Layout) ([]byte, error) {
	return GenerateWithOptions(in, layout, DefaultGenerateOptions())
}

// GenerateWithOptions creates the bulk XML document with custom options.
func GenerateWithOptions(in Input, layout mapper.Layout, options GenerateOptions) ([]byte, error) {
	if in.Grid == nil {
		return nil, fmt.Errorf("no grid to convert")
	}
	prefix := layout.DocType.XMLPrefix()
	if prefix == "" {
		return nil, fmt.Errorf("unknown document type %q", layout.DocType)
	}

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(fmt.Sprintf("<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding))
	}

	doc := buildDocument(in, layout, prefix, options)

	xmlBytes, err := marshalWithIndent(doc, options.Indent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	buffer.Write(xmlBytes)

	return buffer.Bytes(), nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLDocument represents the root of the XML document.
type XMLDocument struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Children   []XMLElement
}

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr   `xml:",attr"`
	Value      string       `xml:",chardata"`
	Children   []XMLElement `xml:",any"`
}

// buildDocument constructs the XML document structure.
func buildDocument(in Input, layout mapper.Layout, prefix string, options GenerateOptions) *XMLDocument {
	doc := &XMLDocument{
		XMLName: xml.Name{Local: prefix + "Bulk"},
	}

	names := make([]string, 0, len(options.RootAttributes))
	for name := range options.RootAttributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Attributes = append(doc.Attributes, xml.Attr{
			Name:  xml.Name{Local: name},
			Value: options.RootAttributes[name],
		})
	}

	doc.Children = append(doc.Children, createSimpleElement("TIN", in.TIN))

	list := XMLElement{XMLName: xml.Name{Local: "ListOf" + prefix}}
	for row := in.Span.First; row <= in.Span.Last; row++ {
		list.Children = append(list.Children, buildRecordElement(in.Grid, layout, prefix, row))
	}
	doc.Children = append(doc.Children, list)

	return doc
}

// buildRecordElement constructs one record element from one grid row.
//
// STRUCTURE:
//   <Bpu>
//     <TaxPeriodMonth>6</TaxPeriodMonth>
//     ...
//     <WithholdingDate>2024-06-03</WithholdingDate>
//   </Bpu>
func buildRecordElement(g *sheet.Grid, layout mapper.Layout, prefix string, row int) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: prefix}}
	for _, field := range layout.Fields {
		element.Children = append(element.Children,
			createSimpleElement(field.Tag, g.ResolvedAt(field.Column, row)))
	}
	return element
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// createSimpleElement creates a simple XML element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

// marshalWithIndent marshals the document with indentation.
func marshalWithIndent(doc *XMLDocument, indent string) ([]byte, error) {
	var buffer bytes.Buffer

	buffer.WriteString("<")
	buffer.WriteString(doc.XMLName.Local)
	for _, attr := range doc.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value)))
	}
	buffer.WriteString(">\n")

	for _, child := range doc.Children {
		writeElement(&buffer, child, indent, 1)
	}

	buffer.WriteString("</")
	buffer.WriteString(doc.XMLName.Local)
	buffer.WriteString(">\n")

	return buffer.Bytes(), nil
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	buffer.WriteString(strings.Repeat(indent, level))

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)
	for _, attr := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		buffer.WriteString(strings.Repeat(indent, level))
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD creates an XSD describing the bulk document for layout.
//
// Every record element is always present. Fields that are not required may
// be empty, so they are typed xs:string regardless of their data type.
func GenerateXSD(layout mapper.Layout) ([]byte, error) {
	prefix := layout.DocType.XMLPrefix()
	if prefix == "" {
		return nil, fmt.Errorf("unknown document type %q", layout.DocType)
	}

	var buffer bytes.Buffer

	buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
`)

	buffer.WriteString(fmt.Sprintf(`  <xs:element name="%[1]sBulk">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="TIN" type="xs:string"/>
        <xs:element name="ListOf%[1]s">
          <xs:complexType>
            <xs:sequence>
              <xs:element ref="%[1]s" minOccurs="0" maxOccurs="unbounded"/>
            </xs:sequence>
          </xs:complexType>
        </xs:element>
      </xs:sequence>
    </xs:complexType>
  </xs:element>

`, prefix))

	buffer.WriteString(fmt.Sprintf(`  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, prefix))

	for _, field := range layout.Fields {
		writeXSDElement(&buffer, field, 4)
	}

	buffer.WriteString(`      </xs:sequence>
    </xs:complexType>
  </xs:element>

</xs:schema>
`)

	return buffer.Bytes(), nil
}

// writeXSDElement writes an XSD element definition.
func writeXSDElement(buffer *bytes.Buffer, field mapper.Field, indentLevel int) {
	indent := strings.Repeat("  ", indentLevel)

	xsdType := "xs:string"
	if field.Required {
		xsdType = getXSDType(field.DataType)
	}

	buffer.WriteString(fmt.Sprintf("%s<xs:element name=\"%s\" type=\"%s\"/>\n",
		indent, field.Tag, xsdType))
}

// getXSDType maps layout data types to XSD types.
func getXSDType(dataType string) string {
	switch {
	case dataType == mapper.DataTypeNumeric:
		return "xs:integer"
	case dataType == mapper.DataTypeDecimal:
		return "xs:decimal"
	case strings.HasPrefix(dataType, "date"):
		return "xs:date"
	default:
		return "xs:string"
	}
}
