// Package importer implements the bulk product catalog ingestion pipeline:
// parsing a tabular product+variant file, grouping rows into products,
// resolving taxonomy references, classifying issues by severity, deriving a
// draft/active decision per product, and executing the import with per-group
// failure isolation.
//
// The pipeline moves strictly forward through four stages
// (Upload -> Preview -> Confirm -> Result); nothing is written to the catalog
// before the Confirm stage.
package importer

import (
	"github.com/google/uuid"
	"github.com/liftsource/catalog-import/internal/catalog"
	"github.com/shopspring/decimal"
)

// Severity classifies how an issue affects the import.
type Severity string

const (
	// SeverityBlocking prevents the whole file from passing the Confirm gate.
	SeverityBlocking Severity = "blocking"

	// SeverityDraft forces the product to import with draft status but never
	// blocks progression.
	SeverityDraft Severity = "draft"

	// SeverityWarning is advisory only: surfaced, never blocking, never
	// status-changing.
	SeverityWarning Severity = "warning"
)

// Issue is a validation or resolution problem attached to a field.
// Issues are data, not control flow: components collect them and keep going.
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Product statuses as written to the catalog.
const (
	StatusActive = "active"
	StatusDraft  = "draft"
)

// NumericField is a numeric cell carried with its raw text so issues can be
// reported against exactly what the file said.
type NumericField struct {
	Raw   string
	Value decimal.Decimal
	Valid bool
}

// Positive reports whether the field parsed and is strictly greater than zero.
func (f NumericField) Positive() bool {
	return f.Valid && f.Value.IsPositive()
}

// AttributesField is the optional structured-data cell. Valid is true when
// the cell is empty or parses as a JSON object.
type AttributesField struct {
	Raw   string
	Map   map[string]any
	Valid bool
}

// Row is one typed data row. The parser converts raw per-column strings into
// this record at the boundary so downstream components never re-parse text.
type Row struct {
	Line int // 1-indexed file line, for issue reporting

	Title            string
	ShortDescription string
	ApplicationSlug  string
	CategorySlug     string
	SubcategorySlug  string
	ElevatorTypes    []string
	Collections      []string

	Price      NumericField
	MRP        NumericField
	Attributes AttributesField

	SKU            string
	VariantTitle   string
	Options        []catalog.VariantOption
	TrackInventory bool
	Stock          int
	Status         string
}

// ProductGroup is the unit of import: one logical product plus its variants,
// derived from rows sharing a trimmed product_title. Every group has at least
// one variant; a single-row group's base row acts as its own variant.
type ProductGroup struct {
	Title    string
	Base     Row
	Variants []Row
}

// LookupResult holds the catalog ids resolved for one group, plus any
// resolution issues. Produced once per group, immutable after that.
type LookupResult struct {
	ApplicationID   *uuid.UUID
	CategoryID      *uuid.UUID
	SubcategoryID   *uuid.UUID
	ElevatorTypeIDs []uuid.UUID
	CollectionIDs   []uuid.UUID
	Issues          []Issue
}

// Decision is the derived import decision for one group. Recomputed whenever
// the source data changes; never stored.
type Decision struct {
	Group  *ProductGroup
	Lookup *LookupResult
	Status string  // StatusActive or StatusDraft
	Issues []Issue // field-level validation issues
}

// AllIssues returns resolution and validation issues in a stable order:
// lookup issues first, then field issues.
func (d *Decision) AllIssues() []Issue {
	out := make([]Issue, 0, len(d.Lookup.Issues)+len(d.Issues))
	out = append(out, d.Lookup.Issues...)
	out = append(out, d.Issues...)
	return out
}

// BlockingIssues returns only the issues that gate the Confirm step.
func (d *Decision) BlockingIssues() []Issue {
	var out []Issue
	for _, is := range d.AllIssues() {
		if is.Severity == SeverityBlocking {
			out = append(out, is)
		}
	}
	return out
}

// Outcome is the per-group result of an Execute call.
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeFailed   Outcome = "failed"
)

// GroupResult records what happened to a single group during Execute.
type GroupResult struct {
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Outcome   Outcome   `json:"outcome"`
	ProductID uuid.UUID `json:"productId,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Summary is the terminal, write-once result of one Execute call. It is the
// only pipeline artifact that correlates with catalog mutation.
type Summary struct {
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	DraftCount int           `json:"draftCount"`
	Results    []GroupResult `json:"results"`
}
