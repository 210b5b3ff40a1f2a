package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/liftsource/catalog-import/internal/catalog"
)

// Stage is one of the four pipeline stages. The workflow moves strictly
// forward except for the single allowed backward step Preview -> Upload.
type Stage string

const (
	StageUpload  Stage = "upload"
	StagePreview Stage = "preview"
	StageConfirm Stage = "confirm"
	StageResult  Stage = "result"
)

// transitions is the explicit transition table. Illegal transitions are
// structurally impossible, not merely UI-disabled.
var transitions = map[Stage][]Stage{
	StageUpload:  {StagePreview},
	StagePreview: {StageConfirm, StageUpload},
	StageConfirm: {StageResult},
	StageResult:  nil, // terminal
}

// CanTransition reports whether the table allows moving from s to next.
func (s Stage) CanTransition(next Stage) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrBlocked is returned by Confirm while blocking issues remain.
var ErrBlocked = errors.New("importer: blocking issues present")

// StageError reports an illegal stage transition.
type StageError struct {
	From Stage
	To   Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("importer: cannot move from %s to %s", e.From, e.To)
}

// Pipeline drives one import attempt through Upload -> Preview -> Confirm ->
// Result. A Pipeline is single-use: once it reaches Result it is terminal and
// a new import starts with a new Pipeline.
//
// Nothing mutates the catalog before Confirm; abandoning the flow at Upload
// or Preview has no side effects.
type Pipeline struct {
	resolver *Resolver
	executor *Executor

	mu        sync.Mutex
	stage     Stage
	groups    []*ProductGroup
	decisions []*Decision
	summary   *Summary
}

// NewPipeline creates a pipeline over the given catalog collaborators.
func NewPipeline(lookup catalog.Lookup, writer catalog.Writer) *Pipeline {
	return &Pipeline{
		resolver: NewResolver(lookup),
		executor: NewExecutor(writer),
		stage:    StageUpload,
	}
}

// Resolver exposes the pipeline's resolver for concurrency tuning.
func (p *Pipeline) Resolver() *Resolver { return p.resolver }

// Executor exposes the pipeline's executor for concurrency tuning.
func (p *Pipeline) Executor() *Executor { return p.executor }

// Stage returns the current pipeline stage.
func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Upload parses and groups the file, then resolves and validates every group.
// On success the pipeline advances to Preview. A ParseError aborts the
// transition: the pipeline stays at Upload with no partial state.
func (p *Pipeline) Upload(ctx context.Context, data []byte) (*Preview, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stage.CanTransition(StagePreview) {
		return nil, &StageError{From: p.stage, To: StagePreview}
	}

	rows, err := Parse(data)
	if err != nil {
		return nil, err
	}

	groups := GroupRows(rows)
	decisions, err := p.decide(ctx, groups)
	if err != nil {
		return nil, err
	}

	p.groups = groups
	p.decisions = decisions
	p.stage = StagePreview

	slog.Info("file uploaded", "rows", len(rows), "products", len(groups))
	return buildPreview(decisions), nil
}

// Preview recomputes resolution and decisions from the uploaded rows.
// It is idempotent and side-effect free, so the UI may call it repeatedly.
func (p *Pipeline) Preview(ctx context.Context) (*Preview, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage != StagePreview {
		return nil, &StageError{From: p.stage, To: StagePreview}
	}

	decisions, err := p.decide(ctx, p.groups)
	if err != nil {
		return nil, err
	}
	p.decisions = decisions

	return buildPreview(decisions), nil
}

// Confirm executes the import. Allowed only from Preview and only when no
// blocking issues exist across all decisions; warning and draft-forcing
// issues never block. The pipeline ends at Result, terminal on success or
// partial failure alike.
func (p *Pipeline) Confirm(ctx context.Context) (*Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stage.CanTransition(StageConfirm) {
		return nil, &StageError{From: p.stage, To: StageConfirm}
	}
	if Blocked(p.decisions) {
		return nil, ErrBlocked
	}

	p.stage = StageConfirm
	p.summary = p.executor.Execute(ctx, p.decisions)
	p.stage = StageResult

	return p.summary, nil
}

// Reset is the single allowed backward transition, Preview -> Upload. The
// uploaded rows are discarded; nothing was written.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stage.CanTransition(StageUpload) {
		return &StageError{From: p.stage, To: StageUpload}
	}

	p.groups = nil
	p.decisions = nil
	p.stage = StageUpload
	return nil
}

// Summary returns the terminal import summary, available once the pipeline
// has reached Result.
func (p *Pipeline) Summary() (*Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage != StageResult || p.summary == nil {
		return nil, &StageError{From: p.stage, To: StageResult}
	}
	return p.summary, nil
}

func (p *Pipeline) decide(ctx context.Context, groups []*ProductGroup) ([]*Decision, error) {
	lookups, err := p.resolver.ResolveAll(ctx, groups)
	if err != nil {
		return nil, err
	}
	return DecideAll(groups, lookups), nil
}
