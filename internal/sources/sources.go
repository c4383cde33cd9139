// Package sources defines the collector contract for registry data sources
// and a container for managing them.
//
// Each source fetches raw observations from one upstream registry (npm,
// PyPI, GitHub). Sources may fetch concurrently, but their output is always
// concatenated in alphabetical origin order before entering the pipeline so
// first-seen-wins tie-breaks stay stable and reproducible for a given run.
package sources

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/mcpmap/pkg/logging"
	"github.com/agentstation/mcpmap/pkg/types"
)

// Source is a collector for one upstream registry.
type Source interface {
	// Origin returns the origin tag this source reports under.
	Origin() types.Origin

	// Fetch retrieves the source's current observation set. Fetch owns its
	// own pagination and rate-limit handling; it returns what it could get
	// and an error only when the source yielded nothing usable.
	Fetch(ctx context.Context) ([]types.Observation, error)
}

// Sources is a container for registry collectors.
type Sources struct {
	mu      sync.RWMutex
	sources map[types.Origin]Source
}

// New creates an empty Sources container.
func New() *Sources {
	return &Sources{sources: make(map[types.Origin]Source)}
}

// Add registers a source under its origin tag, replacing any previous one.
func (s *Sources) Add(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.Origin()] = src
}

// Get returns the source for an origin.
func (s *Sources) Get(origin types.Origin) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[origin]
	return src, ok
}

// Len returns the number of registered sources.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// List returns the registered sources in alphabetical origin order.
func (s *Sources) List() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Origin() < out[j].Origin()
	})
	return out
}

// FetchAll fetches every source concurrently and concatenates the results in
// alphabetical origin order. A source failure is logged and contributes an
// empty slice; collection is never fatal to the run.
func (s *Sources) FetchAll(ctx context.Context) []types.Observation {
	log := logging.Ctx(ctx)
	list := s.List()

	results := make([][]types.Observation, len(list))
	var wg sync.WaitGroup
	for i, src := range list {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			observations, err := src.Fetch(ctx)
			if err != nil {
				log.Warn().Err(err).
					Str("origin", src.Origin().String()).
					Msg("Source fetch failed, continuing without it")
				return
			}
			results[i] = observations
		}(i, src)
	}
	wg.Wait()

	var all []types.Observation
	for _, observations := range results {
		all = append(all, observations...)
	}
	return all
}
