package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// csvFile builds an import file from rows of
// title, description, application, category, price, mrp.
func csvFile(rows ...[6]string) []byte {
	var b strings.Builder
	b.WriteString(validHeader + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r[:], ",") + "\n")
	}
	return []byte(b.String())
}

func seededPipeline() (*Pipeline, *fakeLookup, *fakeWriter) {
	lookup := newFakeLookup()
	lookup.addApp("passenger")
	lookup.addCat("motors")
	writer := newFakeWriter()
	return NewPipeline(lookup, writer), lookup, writer
}

func TestStageTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Stage
		ok       bool
	}{
		{StageUpload, StagePreview, true},
		{StageUpload, StageConfirm, false},
		{StageUpload, StageResult, false},
		{StagePreview, StageConfirm, true},
		{StagePreview, StageUpload, true},
		{StagePreview, StageResult, false},
		{StageConfirm, StageResult, true},
		{StageConfirm, StageUpload, false},
		{StageConfirm, StagePreview, false},
		{StageResult, StageUpload, false},
		{StageResult, StagePreview, false},
		{StageResult, StageConfirm, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPipelineHappyPath(t *testing.T) {
	p, _, writer := seededPipeline()
	ctx := context.Background()

	preview, err := p.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "passenger", "motors", "100", "120"},
		[6]string{"Brake", "A brake", "passenger", "motors", "50", "60"},
	))
	require.NoError(t, err)
	assert.Equal(t, StagePreview, p.Stage())
	assert.Equal(t, 2, preview.Products)
	assert.Equal(t, 2, preview.Variants)
	assert.True(t, preview.ConfirmEnabled)
	assert.Zero(t, preview.BlockingCount)

	summary, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageResult, p.Stage())
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	_, ok := writer.productByTitle("Motor")
	assert.True(t, ok)

	got, err := p.Summary()
	require.NoError(t, err)
	assert.Same(t, summary, got)
}

func TestPipelineParseErrorStaysAtUpload(t *testing.T) {
	p, _, _ := seededPipeline()

	_, err := p.Upload(context.Background(), []byte("wrong,headers\na,b\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ParseMissingColumns, perr.Kind)
	assert.Equal(t, StageUpload, p.Stage(), "failed upload leaves no partial state")

	// The same pipeline accepts a corrected file afterwards.
	_, err = p.Upload(context.Background(), csvFile(
		[6]string{"Motor", "A motor", "passenger", "motors", "100", "120"},
	))
	require.NoError(t, err)
	assert.Equal(t, StagePreview, p.Stage())
}

func TestPipelineConfirmGate(t *testing.T) {
	p, _, writer := seededPipeline()
	ctx := context.Background()

	preview, err := p.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "passenger", "motors", "0", "120"},
	))
	require.NoError(t, err)
	assert.False(t, preview.ConfirmEnabled)
	assert.Equal(t, 1, preview.BlockingCount)

	_, err = p.Confirm(ctx)
	require.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, StagePreview, p.Stage(), "blocked confirm does not advance")
	assert.Empty(t, writer.products, "nothing written while blocked")
}

func TestPipelineConfirmBeforeUpload(t *testing.T) {
	p, _, _ := seededPipeline()

	_, err := p.Confirm(context.Background())
	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageUpload, serr.From)
	assert.Equal(t, StageConfirm, serr.To)
}

func TestPipelineReset(t *testing.T) {
	p, _, _ := seededPipeline()
	ctx := context.Background()

	require.Error(t, p.Reset(), "reset before upload is illegal")

	_, err := p.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "passenger", "motors", "100", "120"},
	))
	require.NoError(t, err)

	require.NoError(t, p.Reset())
	assert.Equal(t, StageUpload, p.Stage())

	_, err = p.Preview(ctx)
	require.Error(t, err, "discarded upload is gone")

	// A fresh upload works after reset.
	_, err = p.Upload(ctx, csvFile(
		[6]string{"Brake", "A brake", "passenger", "motors", "50", "60"},
	))
	require.NoError(t, err)
}

func TestPipelineResultIsTerminal(t *testing.T) {
	p, _, _ := seededPipeline()
	ctx := context.Background()

	_, err := p.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "passenger", "motors", "100", "120"},
	))
	require.NoError(t, err)
	_, err = p.Confirm(ctx)
	require.NoError(t, err)

	_, err = p.Confirm(ctx)
	require.Error(t, err, "confirm cannot run twice")
	require.Error(t, p.Reset())
	_, err = p.Upload(ctx, csvFile(
		[6]string{"Brake", "A brake", "passenger", "motors", "50", "60"},
	))
	require.Error(t, err, "terminal pipeline rejects new uploads")
}

func TestPipelineDraftFlowPassesConfirm(t *testing.T) {
	p, _, writer := seededPipeline()
	ctx := context.Background()

	preview, err := p.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "no-such-app", "no-such-cat", "100", "120"},
	))
	require.NoError(t, err)

	require.Len(t, preview.Groups, 1)
	assert.True(t, preview.Groups[0].WillImportAsDraft)
	assert.True(t, preview.ConfirmEnabled, "draft-forcing issues never block")

	summary, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.DraftCount)

	product, ok := writer.productByTitle("Motor")
	require.True(t, ok)
	assert.Equal(t, StatusDraft, product.Status)
	assert.Nil(t, product.ApplicationID)
}

func TestPipelinePreviewRecomputes(t *testing.T) {
	p, lookup, _ := seededPipeline()
	ctx := context.Background()

	first, err := p.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "passenger", "hoists", "100", "120"},
	))
	require.NoError(t, err)
	assert.True(t, first.Groups[0].WillImportAsDraft, "unknown category forces draft")

	// The catalog gains the category; a fresh pipeline resolving the same
	// slug now succeeds. The original pipeline's resolver memo still holds
	// the miss, which is the documented per-run consistency tradeoff.
	lookup.addCat("hoists")
	fresh := NewPipeline(lookup, newFakeWriter())
	preview, err := fresh.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "passenger", "hoists", "100", "120"},
	))
	require.NoError(t, err)
	assert.False(t, preview.Groups[0].WillImportAsDraft)
}

func TestPipelineBackendErrorSurfacesFromUpload(t *testing.T) {
	lookup := newFakeLookup()
	lookup.err = errBackendDown
	p := NewPipeline(lookup, newFakeWriter())

	_, err := p.Upload(context.Background(), csvFile(
		[6]string{"Motor", "A motor", "passenger", "motors", "100", "120"},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBackendDown))
	assert.Equal(t, StageUpload, p.Stage())
}

func TestPipelineLargeFile(t *testing.T) {
	p, _, _ := seededPipeline()
	ctx := context.Background()

	rows := make([][6]string, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, [6]string{
			fmt.Sprintf("Part %03d", i), "desc", "passenger", "motors", "10", "12",
		})
	}

	preview, err := p.Upload(ctx, csvFile(rows...))
	require.NoError(t, err)
	assert.Equal(t, 100, preview.Products)

	summary, err := p.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Total)
	assert.Equal(t, 100, summary.Succeeded)
}

func TestPipelineMultiVariantPreview(t *testing.T) {
	p, _, writer := seededPipeline()
	ctx := context.Background()

	preview, err := p.Upload(ctx, csvFile(
		[6]string{"Motor", "A motor", "passenger", "motors", "100", "120"},
		[6]string{"Motor", "A motor", "passenger", "motors", "110", "130"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, preview.Products)
	assert.Equal(t, 2, preview.Variants)
	require.Len(t, preview.Groups, 1)
	assert.Equal(t, 2, preview.Groups[0].Variants)

	_, err = p.Confirm(ctx)
	require.NoError(t, err)

	id := writer.byTitle["Motor"]
	assert.Len(t, writer.variants[id], 2)
}

func TestSummaryMessage(t *testing.T) {
	clean := &Summary{Total: 3, Succeeded: 3, DraftCount: 1}
	assert.Equal(t, "Import complete: 3 products imported (1 as draft).", clean.Message())

	partial := &Summary{Total: 3, Succeeded: 2, Failed: 1}
	assert.Equal(t, "Import finished with errors: 2 of 3 products imported (0 as draft), 1 failed.", partial.Message())
}
