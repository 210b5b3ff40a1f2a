// Package catalog defines the contracts for reading and writing the product
// catalog. The import pipeline only ever touches the catalog through these
// interfaces: slug lookups on the read side, product/variant inserts on the
// write side.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookup methods when no entity matches the slug.
var ErrNotFound = errors.New("catalog: not found")

// Entity is a taxonomy entry (application, category, or subcategory).
// Applications are top-level entries (ParentID is nil); categories sit under
// an application and subcategories under a category.
type Entity struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
	Slug     string
	Name     string
}

// Tag is a flat catalog entity referenced by slug (elevator type or collection).
type Tag struct {
	ID   uuid.UUID
	Slug string
	Name string
}

// Lookup provides read-only slug resolution against the catalog.
// Implementations must be safe for concurrent use and must never mutate
// catalog state.
type Lookup interface {
	// ApplicationBySlug resolves a top-level taxonomy entry by exact slug.
	ApplicationBySlug(ctx context.Context, slug string) (*Entity, error)

	// CategoryBySlug resolves a category by slug. When applicationID is
	// non-nil the match is scoped to children of that application.
	CategoryBySlug(ctx context.Context, slug string, applicationID *uuid.UUID) (*Entity, error)

	// SubcategoryBySlug resolves a subcategory by slug. When categoryID is
	// non-nil the match is scoped to children of that category.
	SubcategoryBySlug(ctx context.Context, slug string, categoryID *uuid.UUID) (*Entity, error)

	// ElevatorTypesBySlugs resolves a batch of elevator type slugs. The
	// result contains only the slugs that matched; unmatched slugs are
	// simply absent, never an error.
	ElevatorTypesBySlugs(ctx context.Context, slugs []string) ([]Tag, error)

	// CollectionsBySlugs resolves a batch of collection slugs, same
	// semantics as ElevatorTypesBySlugs.
	CollectionsBySlugs(ctx context.Context, slugs []string) ([]Tag, error)
}

// ProductParams carries everything needed to insert or upsert one product.
type ProductParams struct {
	Title            string
	ShortDescription string
	Status           string // "active" or "draft"
	ApplicationID    *uuid.UUID
	CategoryID       *uuid.UUID
	SubcategoryID    *uuid.UUID
	ElevatorTypeIDs  []uuid.UUID
	CollectionIDs    []uuid.UUID
	Price            decimal.Decimal
	MRP              decimal.Decimal
	Attributes       map[string]any
}

// VariantParams carries one variant row for a product.
type VariantParams struct {
	Title          string
	SKU            string
	Options        []VariantOption
	Price          decimal.Decimal
	MRP            decimal.Decimal
	TrackInventory bool
	Stock          int
}

// VariantOption is a single name/value pair such as ("Voltage", "220V").
type VariantOption struct {
	Name  string
	Value string
}

// Writer performs catalog writes for the import executor.
type Writer interface {
	// ImportProduct writes one product with its variants atomically: the
	// product upsert, tag links, and variant rows either all land or none
	// do. Returns the product id.
	ImportProduct(ctx context.Context, p ProductParams, variants []VariantParams) (uuid.UUID, error)
}
