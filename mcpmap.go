// Package mcpmap discovers MCP server packages published across
// heterogeneous registries and consolidates observations of the same logical
// server into one canonical record per entity.
//
// The pipeline is the synchronous core: validation and sanitization,
// canonical key normalization, popularity scoring, classification, install
// guidance and deduplication against a per-run store that persists between
// runs. Collectors feed it one stable, origin-ordered observation sequence;
// see internal/sources for the collector side.
//
// Basic usage:
//
//	store := dedupe.New(runID, dedupe.ModeIncremental, blobs)
//	store.Load(ctx)
//
//	pipeline := mcpmap.New(store)
//	result := pipeline.Process(ctx, observations)
//
//	store.Save(ctx)
//	fmt.Println(len(result.Servers), result.DuplicatesRemoved)
package mcpmap

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/mcpmap/pkg/classify"
	"github.com/agentstation/mcpmap/pkg/dedupe"
	"github.com/agentstation/mcpmap/pkg/install"
	"github.com/agentstation/mcpmap/pkg/logging"
	"github.com/agentstation/mcpmap/pkg/score"
	"github.com/agentstation/mcpmap/pkg/types"
	"github.com/agentstation/mcpmap/pkg/validate"
)

// Result is what one processing pass hands back to the orchestrating caller.
// Both the failure list and the duplicate counter are advisory outputs; the
// core never propagates a failure upward.
type Result struct {
	// Servers are the deduplicated survivors in first-seen order: records
	// that created a new canonical entity during this pass.
	Servers []*types.Server

	// DuplicatesRemoved counts incoming records merged into existing
	// entities, cumulative over the store's lifetime.
	DuplicatesRemoved int

	// ValidationFailures lists every rejection and downgrade recorded while
	// validating this pass's observations.
	ValidationFailures []validate.Failure
}

// Pipeline runs raw observations through the consolidation core. It owns no
// shared mutable state beyond the dedup store handed to it; construct one
// per run and discard it.
type Pipeline struct {
	store *dedupe.Store
	now   func() utc.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the pipeline's clock, for tests.
func WithClock(now func() utc.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline bound to a dedup store.
func New(store *dedupe.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store: store,
		now:   utc.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the dedup store this pipeline consolidates into.
func (p *Pipeline) Store() *dedupe.Store {
	return p.store
}

// Process validates, sanitizes, normalizes, scores, classifies and
// deduplicates the given observations, in input order. Input order matters:
// it determines first-seen-wins tie-breaks, so callers must concatenate
// collector output in the documented stable origin order.
func (p *Pipeline) Process(ctx context.Context, observations []types.Observation) *Result {
	log := logging.Ctx(ctx)
	now := p.now()

	validator := validate.New()
	records := make([]*types.Server, 0, len(observations))

	for i := range observations {
		o := &observations[i]
		sanitize(o)

		if err := validator.Validate(o); err != nil {
			log.Debug().Err(err).Str("origin", o.Origin.String()).Msg("Rejected observation")
			continue
		}

		record := types.NewServer(o)
		record.Active = record.ActiveAt(now)
		classify.Apply(record)
		install.Apply(record)
		score.Attach(record, now)
		records = append(records, record)
	}

	survivors := p.store.Dedupe(ctx, records)

	log.Info().
		Int("observations", len(observations)).
		Int("accepted", len(records)).
		Int("new", len(survivors)).
		Int("duplicates", p.store.Duplicates()).
		Int("rejected_or_downgraded", len(validator.Failures())).
		Msg("Processed observations")

	return &Result{
		Servers:            survivors,
		DuplicatesRemoved:  p.store.Duplicates(),
		ValidationFailures: validator.Failures(),
	}
}

// sanitize strips unsafe text from every free-text field before validation.
func sanitize(o *types.Observation) {
	o.Name = validate.Sanitize(o.Name)
	o.Description = validate.Sanitize(o.Description)
	o.Version = validate.Sanitize(o.Version)
	o.License = validate.Sanitize(o.License)
	o.Author = validate.Sanitize(o.Author)
	for i, kw := range o.Keywords {
		o.Keywords[i] = validate.Sanitize(kw)
	}
	o.Readme = validate.SanitizeDocument(o.Readme)
}
