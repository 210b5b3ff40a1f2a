package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/liftsource/catalog-import/internal/catalog"
	"golang.org/x/sync/errgroup"
)

// DefaultResolveConcurrency bounds how many groups resolve in parallel.
var DefaultResolveConcurrency = 8

// Resolver resolves a group's slug fields to catalog ids. It performs no
// writes and is safe to call repeatedly: identical slug combinations resolve
// to identical results within one run.
//
// Lookups are memoized per distinct slug so that a file with hundreds of rows
// referencing the same application or category hits the backend once, not
// once per group.
type Resolver struct {
	lookup      catalog.Lookup
	concurrency int

	mu     sync.Mutex
	apps   map[string]*uuid.UUID
	cats   map[string]*uuid.UUID
	subs   map[string]*uuid.UUID
	etypes map[string]*uuid.UUID
	colls  map[string]*uuid.UUID
}

// NewResolver creates a Resolver over the given catalog lookup.
func NewResolver(lookup catalog.Lookup) *Resolver {
	return &Resolver{
		lookup:      lookup,
		concurrency: DefaultResolveConcurrency,
		apps:        make(map[string]*uuid.UUID),
		cats:        make(map[string]*uuid.UUID),
		subs:        make(map[string]*uuid.UUID),
		etypes:      make(map[string]*uuid.UUID),
		colls:       make(map[string]*uuid.UUID),
	}
}

// SetConcurrency overrides the parallel resolution limit.
func (r *Resolver) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

// Resolve produces the LookupResult for one group. Resolution keys off the
// group's base row (catalog slugs are per-product, not per-variant). Missing
// references become issues, never errors: the returned error is reserved for
// backend failures.
func (r *Resolver) Resolve(ctx context.Context, group *ProductGroup) (*LookupResult, error) {
	base := group.Base
	result := &LookupResult{}

	appID, err := r.resolveApplication(ctx, base.ApplicationSlug)
	if err != nil {
		return nil, err
	}
	result.ApplicationID = appID
	if appID == nil {
		result.Issues = append(result.Issues, Issue{
			Field:    ColApplicationSlug,
			Message:  fmt.Sprintf("application %q not found", base.ApplicationSlug),
			Severity: SeverityDraft,
		})
	}

	catID, err := r.resolveCategory(ctx, base.CategorySlug, appID)
	if err != nil {
		return nil, err
	}
	result.CategoryID = catID
	if catID == nil {
		result.Issues = append(result.Issues, Issue{
			Field:    ColCategorySlug,
			Message:  fmt.Sprintf("category %q not found", base.CategorySlug),
			Severity: SeverityDraft,
		})
	}

	// Subcategory is optional: absence is not an issue at all.
	if base.SubcategorySlug != "" {
		subID, err := r.resolveSubcategory(ctx, base.SubcategorySlug, catID)
		if err != nil {
			return nil, err
		}
		result.SubcategoryID = subID
		if subID == nil {
			result.Issues = append(result.Issues, Issue{
				Field:    ColSubcategorySlug,
				Message:  fmt.Sprintf("subcategory %q not found", base.SubcategorySlug),
				Severity: SeverityWarning,
			})
		}
	}

	etIDs, missing, err := r.resolveTags(ctx, base.ElevatorTypes, r.etypes, r.lookup.ElevatorTypesBySlugs)
	if err != nil {
		return nil, err
	}
	result.ElevatorTypeIDs = etIDs
	if len(missing) > 0 {
		result.Issues = append(result.Issues, Issue{
			Field:    ColElevatorTypes,
			Message:  fmt.Sprintf("elevator types not found: %s", strings.Join(missing, ", ")),
			Severity: SeverityWarning,
		})
	}

	colIDs, missing, err := r.resolveTags(ctx, base.Collections, r.colls, r.lookup.CollectionsBySlugs)
	if err != nil {
		return nil, err
	}
	result.CollectionIDs = colIDs
	if len(missing) > 0 {
		result.Issues = append(result.Issues, Issue{
			Field:    ColCollections,
			Message:  fmt.Sprintf("collections not found: %s", strings.Join(missing, ", ")),
			Severity: SeverityWarning,
		})
	}

	return result, nil
}

// ResolveAll resolves every group, bounded in parallelism. Results are
// positionally aligned with groups.
func (r *Resolver) ResolveAll(ctx context.Context, groups []*ProductGroup) ([]*LookupResult, error) {
	results := make([]*LookupResult, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			res, err := r.Resolve(ctx, group)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", group.Title, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) resolveApplication(ctx context.Context, slug string) (*uuid.UUID, error) {
	if slug == "" {
		return nil, nil
	}

	r.mu.Lock()
	id, ok := r.apps[slug]
	r.mu.Unlock()
	if ok {
		return id, nil
	}

	entity, err := r.lookup.ApplicationBySlug(ctx, slug)
	id, err = memoizable(entity, err)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.apps[slug] = id
	r.mu.Unlock()
	return id, nil
}

func (r *Resolver) resolveCategory(ctx context.Context, slug string, appID *uuid.UUID) (*uuid.UUID, error) {
	if slug == "" {
		return nil, nil
	}

	key := scopedKey(slug, appID)
	r.mu.Lock()
	id, ok := r.cats[key]
	r.mu.Unlock()
	if ok {
		return id, nil
	}

	entity, err := r.lookup.CategoryBySlug(ctx, slug, appID)
	id, err = memoizable(entity, err)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cats[key] = id
	r.mu.Unlock()
	return id, nil
}

func (r *Resolver) resolveSubcategory(ctx context.Context, slug string, catID *uuid.UUID) (*uuid.UUID, error) {
	key := scopedKey(slug, catID)
	r.mu.Lock()
	id, ok := r.subs[key]
	r.mu.Unlock()
	if ok {
		return id, nil
	}

	entity, err := r.lookup.SubcategoryBySlug(ctx, slug, catID)
	id, err = memoizable(entity, err)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.subs[key] = id
	r.mu.Unlock()
	return id, nil
}

// resolveTags resolves a slug list through the per-slug memo, batching only
// the slugs not seen before. Returns the matched ids and the slugs with no
// match; an empty match set is a valid outcome, not an error.
func (r *Resolver) resolveTags(
	ctx context.Context,
	slugs []string,
	memo map[string]*uuid.UUID,
	batch func(context.Context, []string) ([]catalog.Tag, error),
) (ids []uuid.UUID, missing []string, err error) {
	if len(slugs) == 0 {
		return nil, nil, nil
	}

	var unseen []string
	r.mu.Lock()
	for _, slug := range slugs {
		if _, ok := memo[slug]; !ok {
			unseen = append(unseen, slug)
		}
	}
	r.mu.Unlock()

	if len(unseen) > 0 {
		tags, err := batch(ctx, unseen)
		if err != nil {
			return nil, nil, err
		}
		matched := make(map[string]uuid.UUID, len(tags))
		for _, t := range tags {
			matched[t.Slug] = t.ID
		}

		r.mu.Lock()
		for _, slug := range unseen {
			if id, ok := matched[slug]; ok {
				memo[slug] = &id
			} else {
				memo[slug] = nil
			}
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, slug := range slugs {
		if id := memo[slug]; id != nil {
			ids = append(ids, *id)
		} else {
			missing = append(missing, slug)
		}
	}
	return ids, missing, nil
}

// memoizable folds a not-found lookup result into a nil id, passing real
// backend errors through.
func memoizable(entity *catalog.Entity, err error) (*uuid.UUID, error) {
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := entity.ID
	return &id, nil
}

func scopedKey(slug string, parent *uuid.UUID) string {
	if parent == nil {
		return slug
	}
	return slug + "|" + parent.String()
}
