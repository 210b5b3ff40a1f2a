package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/liftsource/catalog-import/internal/catalog"
	"github.com/shopspring/decimal"
)

// Column names of the import file schema.
const (
	ColTitle            = "product_title"
	ColShortDescription = "short_description"
	ColApplicationSlug  = "application_slug"
	ColCategorySlug     = "category_slug"
	ColPrice            = "product_price"
	ColMRP              = "product_mrp"
	ColSubcategorySlug  = "subcategory_slug"
	ColElevatorTypes    = "elevator_types"
	ColCollections      = "collections"
	ColSKU              = "sku"
	ColVariantTitle     = "variant_title"
	ColAttributes       = "attributes"
	ColTrackInventory   = "track_inventory"
	ColStock            = "product_stock"
	ColStatus           = "status"
)

// RequiredColumns is the fixed set of headers every import file must carry,
// matched case-sensitively.
var RequiredColumns = []string{
	ColTitle,
	ColShortDescription,
	ColApplicationSlug,
	ColCategorySlug,
	ColPrice,
	ColMRP,
}

// ParseErrorKind distinguishes the fatal file-level parse failures.
type ParseErrorKind string

const (
	// ParseEmpty: the file has zero data rows (empty file or header only).
	ParseEmpty ParseErrorKind = "empty"

	// ParseMissingColumns: one or more required headers are absent.
	ParseMissingColumns ParseErrorKind = "missing_columns"

	// ParseMalformed: the file is not structurally valid CSV.
	ParseMalformed ParseErrorKind = "malformed"
)

// ParseError is fatal for the whole file; nothing downstream runs.
type ParseError struct {
	Kind    ParseErrorKind
	Columns []string // missing headers, for ParseMissingColumns
	err     error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseEmpty:
		return "file contains no data rows"
	case ParseMissingColumns:
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
	default:
		if e.err != nil {
			return fmt.Sprintf("malformed file: %v", e.err)
		}
		return "malformed file"
	}
}

func (e *ParseError) Unwrap() error { return e.err }

// headerIndex maps exact column names to their position in the file.
type headerIndex map[string]int

// Parse turns raw file bytes into typed rows. It is a pure function: no side
// effects, same input always yields the same rows or the same error.
//
// Header validation happens before any row is emitted so that a missing
// column short-circuits ahead of grouping and resolution.
func Parse(data []byte) ([]Row, error) {
	data = stripBOM(sanitizeUTF8(data))

	records, err := parseCSV(data)
	if err != nil {
		return nil, &ParseError{Kind: ParseMalformed, err: err}
	}
	if len(records) == 0 {
		return nil, &ParseError{Kind: ParseEmpty}
	}

	idx := make(headerIndex, len(records[0]))
	for i, h := range records[0] {
		idx[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Kind: ParseMissingColumns, Columns: missing}
	}

	var rows []Row
	for i, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		rows = append(rows, buildRow(record, idx, i+2))
	}
	if len(rows) == 0 {
		return nil, &ParseError{Kind: ParseEmpty}
	}
	return rows, nil
}

// buildRow converts one raw record into a typed Row. Conversion never fails
// here: cells that cannot be typed keep their raw text and a Valid=false
// flag so the validator can classify the problem with the right severity.
func buildRow(record []string, idx headerIndex, line int) Row {
	cell := func(col string) string {
		pos, ok := idx[col]
		if !ok || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	row := Row{
		Line:             line,
		Title:            cell(ColTitle),
		ShortDescription: cell(ColShortDescription),
		ApplicationSlug:  cell(ColApplicationSlug),
		CategorySlug:     cell(ColCategorySlug),
		SubcategorySlug:  cell(ColSubcategorySlug),
		ElevatorTypes:    splitSlugList(cell(ColElevatorTypes)),
		Collections:      splitSlugList(cell(ColCollections)),
		Price:            parseNumeric(cell(ColPrice)),
		MRP:              parseNumeric(cell(ColMRP)),
		Attributes:       parseAttributes(cell(ColAttributes)),
		SKU:              cell(ColSKU),
		VariantTitle:     cell(ColVariantTitle),
		TrackInventory:   parseBool(cell(ColTrackInventory)),
		Stock:            parseInt(cell(ColStock)),
		Status:           strings.ToLower(cell(ColStatus)),
	}

	for i := 1; i <= 3; i++ {
		name := cell(fmt.Sprintf("variant_option_%d_name", i))
		value := cell(fmt.Sprintf("variant_option_%d_value", i))
		if name != "" || value != "" {
			row.Options = append(row.Options, catalog.VariantOption{Name: name, Value: value})
		}
	}

	return row
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement
// character so downstream string handling is safe.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}

// stripBOM removes a UTF-8 byte order mark, common in Excel exports.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// splitSlugList splits a comma-separated slug list, dropping empties.
func splitSlugList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseNumeric(s string) NumericField {
	f := NumericField{Raw: s}
	if s == "" {
		return f
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return f
	}
	f.Value = v
	f.Valid = true
	return f
}

func parseAttributes(s string) AttributesField {
	f := AttributesField{Raw: s}
	if s == "" {
		f.Valid = true
		return f
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return f
	}
	f.Map = m
	f.Valid = true
	return f
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true
	default:
		return false
	}
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
