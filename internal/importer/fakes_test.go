package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/liftsource/catalog-import/internal/catalog"
)

// fakeLookup is an in-memory catalog.Lookup that counts backend calls so
// tests can assert memoization behavior.
type fakeLookup struct {
	mu    sync.Mutex
	apps  map[string]uuid.UUID
	cats  map[string]uuid.UUID
	subs  map[string]uuid.UUID
	tags  map[string]uuid.UUID // elevator types and collections share a namespace here
	calls map[string]int
	err   error // when set, every lookup fails with this error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		apps:  make(map[string]uuid.UUID),
		cats:  make(map[string]uuid.UUID),
		subs:  make(map[string]uuid.UUID),
		tags:  make(map[string]uuid.UUID),
		calls: make(map[string]int),
	}
}

func (f *fakeLookup) addApp(slug string) uuid.UUID { return f.add(f.apps, slug) }
func (f *fakeLookup) addCat(slug string) uuid.UUID { return f.add(f.cats, slug) }
func (f *fakeLookup) addSub(slug string) uuid.UUID { return f.add(f.subs, slug) }
func (f *fakeLookup) addTag(slug string) uuid.UUID { return f.add(f.tags, slug) }

func (f *fakeLookup) add(m map[string]uuid.UUID, slug string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	m[slug] = id
	return id
}

func (f *fakeLookup) record(key string) {
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()
}

func (f *fakeLookup) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeLookup) entity(m map[string]uuid.UUID, slug string) (*catalog.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	id, ok := m[slug]
	f.mu.Unlock()
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Entity{ID: id, Slug: slug}, nil
}

func (f *fakeLookup) ApplicationBySlug(_ context.Context, slug string) (*catalog.Entity, error) {
	f.record("app:" + slug)
	return f.entity(f.apps, slug)
}

func (f *fakeLookup) CategoryBySlug(_ context.Context, slug string, _ *uuid.UUID) (*catalog.Entity, error) {
	f.record("cat:" + slug)
	return f.entity(f.cats, slug)
}

func (f *fakeLookup) SubcategoryBySlug(_ context.Context, slug string, _ *uuid.UUID) (*catalog.Entity, error) {
	f.record("sub:" + slug)
	return f.entity(f.subs, slug)
}

func (f *fakeLookup) tagsBySlugs(slugs []string) ([]catalog.Tag, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Tag
	for _, slug := range slugs {
		if id, ok := f.tags[slug]; ok {
			out = append(out, catalog.Tag{ID: id, Slug: slug})
		}
	}
	return out, nil
}

func (f *fakeLookup) ElevatorTypesBySlugs(_ context.Context, slugs []string) ([]catalog.Tag, error) {
	for _, s := range slugs {
		f.record("etype:" + s)
	}
	return f.tagsBySlugs(slugs)
}

func (f *fakeLookup) CollectionsBySlugs(_ context.Context, slugs []string) ([]catalog.Tag, error) {
	for _, s := range slugs {
		f.record("coll:" + s)
	}
	return f.tagsBySlugs(slugs)
}

// fakeWriter records catalog writes and can be told to fail specific titles,
// at the product or at the variant step. Like the real store, a failed group
// records nothing.
type fakeWriter struct {
	mu              sync.Mutex
	failTitles      map[string]bool
	failVariantsFor map[string]bool
	products        []catalog.ProductParams
	variants        map[uuid.UUID][]catalog.VariantParams
	byTitle         map[string]uuid.UUID
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		failTitles:      make(map[string]bool),
		failVariantsFor: make(map[string]bool),
		variants:        make(map[uuid.UUID][]catalog.VariantParams),
		byTitle:         make(map[string]uuid.UUID),
	}
}

func (f *fakeWriter) failOn(title string) {
	f.mu.Lock()
	f.failTitles[title] = true
	f.mu.Unlock()
}

func (f *fakeWriter) failVariantsOn(title string) {
	f.mu.Lock()
	f.failVariantsFor[title] = true
	f.mu.Unlock()
}

func (f *fakeWriter) ImportProduct(_ context.Context, p catalog.ProductParams, variants []catalog.VariantParams) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTitles[p.Title] {
		return uuid.Nil, fmt.Errorf("constraint violation on %q", p.Title)
	}
	if f.failVariantsFor[p.Title] {
		return uuid.Nil, fmt.Errorf("insert variant for %q: unique violation", p.Title)
	}
	id := uuid.New()
	f.products = append(f.products, p)
	f.byTitle[p.Title] = id
	f.variants[id] = variants
	return id, nil
}

func (f *fakeWriter) productByTitle(title string) (catalog.ProductParams, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Title == title {
			return p, true
		}
	}
	return catalog.ProductParams{}, false
}

var errBackendDown = errors.New("backend unavailable")
