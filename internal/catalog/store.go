package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx operations the store needs.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements Lookup and Writer over PostgreSQL.
//
// The taxonomy lives in a single self-referencing table: applications are
// rows with a NULL parent_id, categories are children of applications and
// subcategories children of categories.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ApplicationBySlug resolves a top-level taxonomy entry by exact slug.
func (s *Store) ApplicationBySlug(ctx context.Context, slug string) (*Entity, error) {
	const query = `SELECT id, parent_id, slug, name
		FROM taxonomy
		WHERE slug = $1 AND parent_id IS NULL`

	return scanEntity(s.pool.QueryRow(ctx, query, slug))
}

// CategoryBySlug resolves a category, scoped under the application when known.
func (s *Store) CategoryBySlug(ctx context.Context, slug string, applicationID *uuid.UUID) (*Entity, error) {
	if applicationID != nil {
		const query = `SELECT id, parent_id, slug, name
			FROM taxonomy
			WHERE slug = $1 AND parent_id = $2`
		return scanEntity(s.pool.QueryRow(ctx, query, slug, *applicationID))
	}

	const query = `SELECT id, parent_id, slug, name
		FROM taxonomy
		WHERE slug = $1 AND parent_id IS NOT NULL
		LIMIT 1`
	return scanEntity(s.pool.QueryRow(ctx, query, slug))
}

// SubcategoryBySlug resolves a subcategory, scoped under the category when known.
func (s *Store) SubcategoryBySlug(ctx context.Context, slug string, categoryID *uuid.UUID) (*Entity, error) {
	if categoryID != nil {
		const query = `SELECT id, parent_id, slug, name
			FROM taxonomy
			WHERE slug = $1 AND parent_id = $2`
		return scanEntity(s.pool.QueryRow(ctx, query, slug, *categoryID))
	}

	const query = `SELECT id, parent_id, slug, name
		FROM taxonomy
		WHERE slug = $1 AND parent_id IS NOT NULL
		LIMIT 1`
	return scanEntity(s.pool.QueryRow(ctx, query, slug))
}

// ElevatorTypesBySlugs resolves a batch of elevator type slugs.
func (s *Store) ElevatorTypesBySlugs(ctx context.Context, slugs []string) ([]Tag, error) {
	return s.tagsBySlugs(ctx, "elevator_types", slugs)
}

// CollectionsBySlugs resolves a batch of collection slugs.
func (s *Store) CollectionsBySlugs(ctx context.Context, slugs []string) ([]Tag, error) {
	return s.tagsBySlugs(ctx, "collections", slugs)
}

func (s *Store) tagsBySlugs(ctx context.Context, table string, slugs []string) ([]Tag, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, slug, name FROM %s WHERE slug = ANY($1)`, table)

	rows, err := s.pool.Query(ctx, query, slugs)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ImportProduct writes one product group in a single transaction: the
// product upsert, its tag links, and its variant rows commit together or not
// at all, so a failed group leaves no partial catalog state behind.
//
// Products are keyed by title: re-importing a file with an existing title
// updates the record in place and replaces its variants wholesale.
func (s *Store) ImportProduct(ctx context.Context, p ProductParams, variants []VariantParams) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return uuid.Nil, err
	}

	const query = `INSERT INTO products
			(id, title, short_description, status, application_id, category_id, subcategory_id, price, mrp, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (title) DO UPDATE SET
			short_description = EXCLUDED.short_description,
			status            = EXCLUDED.status,
			application_id    = EXCLUDED.application_id,
			category_id       = EXCLUDED.category_id,
			subcategory_id    = EXCLUDED.subcategory_id,
			price             = EXCLUDED.price,
			mrp               = EXCLUDED.mrp,
			attributes        = EXCLUDED.attributes,
			updated_at        = now()
		RETURNING id`

	var id uuid.UUID
	err = tx.QueryRow(ctx, query,
		uuid.New(),
		p.Title,
		toPgText(p.ShortDescription),
		p.Status,
		toPgUUID(p.ApplicationID),
		toPgUUID(p.CategoryID),
		toPgUUID(p.SubcategoryID),
		p.Price,
		p.MRP,
		attrs,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert product %q: %w", p.Title, err)
	}

	// Tag joins are replaced wholesale on upsert.
	if err := replaceTagLinks(ctx, tx, "product_elevator_types", "elevator_type_id", id, p.ElevatorTypeIDs); err != nil {
		return uuid.Nil, err
	}
	if err := replaceTagLinks(ctx, tx, "product_collections", "collection_id", id, p.CollectionIDs); err != nil {
		return uuid.Nil, err
	}

	if err := replaceVariants(ctx, tx, id, variants); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit product %q: %w", p.Title, err)
	}
	return id, nil
}

// replaceVariants drops any variants from a previous import of the product
// and inserts the current set inside the caller's transaction.
func replaceVariants(ctx context.Context, tx pgx.Tx, productID uuid.UUID, variants []VariantParams) error {
	if _, err := tx.Exec(ctx, "DELETE FROM product_variants WHERE product_id = $1", productID); err != nil {
		return fmt.Errorf("clear variants: %w", err)
	}

	const query = `INSERT INTO product_variants
			(id, product_id, title, sku, options, price, mrp, track_inventory, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, v := range variants {
		opts, err := json.Marshal(v.Options)
		if err != nil {
			return fmt.Errorf("marshal variant options: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			uuid.New(),
			productID,
			toPgText(v.Title),
			toPgText(v.SKU),
			opts,
			v.Price,
			v.MRP,
			v.TrackInventory,
			v.Stock,
		)
		if err != nil {
			return fmt.Errorf("insert variant %q: %w", v.SKU, err)
		}
	}
	return nil
}

func replaceTagLinks(ctx context.Context, tx pgx.Tx, table, column string, productID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE product_id = $1", table), productID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, tagID := range tagIDs {
		query := fmt.Sprintf("INSERT INTO %s (product_id, %s) VALUES ($1, $2)", table, column)
		if _, err := tx.Exec(ctx, query, productID, tagID); err != nil {
			return fmt.Errorf("link %s: %w", table, err)
		}
	}
	return nil
}

func scanEntity(row pgx.Row) (*Entity, error) {
	var e Entity
	var parent pgtype.UUID
	if err := row.Scan(&e.ID, &parent, &e.Slug, &e.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if parent.Valid {
		id := uuid.UUID(parent.Bytes)
		e.ParentID = &id
	}
	return &e, nil
}

func marshalAttributes(attrs map[string]any) ([]byte, error) {
	if len(attrs) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return b, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
