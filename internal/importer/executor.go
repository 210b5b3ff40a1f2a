package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liftsource/catalog-import/internal/catalog"
	"golang.org/x/sync/errgroup"
)

// DefaultExecuteConcurrency bounds parallel group writes. Inserts touch
// shared catalog and inventory state, so large files get a small worker pool
// rather than unbounded fan-out.
var DefaultExecuteConcurrency = 4

// Executor writes confirmed product groups to the catalog.
type Executor struct {
	writer      catalog.Writer
	concurrency int
}

// NewExecutor creates an Executor over the given catalog writer.
func NewExecutor(writer catalog.Writer) *Executor {
	return &Executor{writer: writer, concurrency: DefaultExecuteConcurrency}
}

// SetConcurrency overrides the worker pool size.
func (e *Executor) SetConcurrency(n int) {
	if n > 0 {
		e.concurrency = n
	}
}

// Execute imports every decision exactly once and aggregates a Summary.
//
// A write failure for one group is recorded in its GroupResult and never
// aborts the remaining groups; failed groups are reported, not retried. The
// call always runs to completion, so partial success is a supported outcome
// rather than an error.
func (e *Executor) Execute(ctx context.Context, decisions []*Decision) *Summary {
	summary := &Summary{
		Total:   len(decisions),
		Results: make([]GroupResult, len(decisions)),
	}

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	for i, d := range decisions {
		i, d := i, d
		g.Go(func() error {
			summary.Results[i] = e.executeGroup(ctx, d)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in Results

	for _, res := range summary.Results {
		switch res.Outcome {
		case OutcomeImported:
			summary.Succeeded++
			if res.Status == StatusDraft {
				summary.DraftCount++
			}
		default:
			summary.Failed++
		}
	}

	slog.Info("import executed",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"drafts", summary.DraftCount,
	)

	return summary
}

// executeGroup writes one product with its variants in a single atomic call.
// Errors are folded into the returned GroupResult; a failed group leaves
// nothing behind in the catalog.
func (e *Executor) executeGroup(ctx context.Context, d *Decision) GroupResult {
	res := GroupResult{
		Title:  d.Group.Title,
		Status: d.Status,
	}

	productID, err := e.writer.ImportProduct(ctx, productParams(d), variantParams(d.Group))
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = fmt.Sprintf("import product: %v", err)
		slog.Warn("group import failed", "title", d.Group.Title, "error", err)
		return res
	}

	res.Outcome = OutcomeImported
	res.ProductID = productID
	return res
}

func productParams(d *Decision) catalog.ProductParams {
	base := d.Group.Base
	return catalog.ProductParams{
		Title:            d.Group.Title,
		ShortDescription: base.ShortDescription,
		Status:           d.Status,
		ApplicationID:    d.Lookup.ApplicationID,
		CategoryID:       d.Lookup.CategoryID,
		SubcategoryID:    d.Lookup.SubcategoryID,
		ElevatorTypeIDs:  d.Lookup.ElevatorTypeIDs,
		CollectionIDs:    d.Lookup.CollectionIDs,
		Price:            base.Price.Value,
		MRP:              base.MRP.Value,
		Attributes:       base.Attributes.Map,
	}
}

func variantParams(group *ProductGroup) []catalog.VariantParams {
	variants := make([]catalog.VariantParams, len(group.Variants))
	for i, row := range group.Variants {
		title := row.VariantTitle
		if title == "" {
			title = group.Title
		}
		variants[i] = catalog.VariantParams{
			Title:          title,
			SKU:            row.SKU,
			Options:        row.Options,
			Price:          row.Price.Value,
			MRP:            row.MRP.Value,
			TrackInventory: row.TrackInventory,
			Stock:          row.Stock,
		}
	}
	return variants
}
