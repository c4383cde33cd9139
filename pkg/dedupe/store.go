// Package dedupe holds the cross-run mapping from canonical keys to
// canonical records and consolidates each run's observations into it.
//
// A Store is constructed per run, loaded once before any dedupe call, mutated
// once per processed record, and saved once after all dedupe calls complete.
// It is single-writer, single-reader within a run; there is no cross-run
// singleton. Storage failures degrade (empty store on load, logged and
// swallowed on save) and never fail the run.
package dedupe

import (
	"context"
	"fmt"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/mcpmap/pkg/blob"
	"github.com/agentstation/mcpmap/pkg/errors"
	"github.com/agentstation/mcpmap/pkg/logging"
	"github.com/agentstation/mcpmap/pkg/merge"
	"github.com/agentstation/mcpmap/pkg/normalize"
	"github.com/agentstation/mcpmap/pkg/types"
)

// Store is the system of record for one run's consolidated output set.
type Store struct {
	runID string
	mode  Mode
	blobs blob.Store

	// servers maps the internal composite key (origin tag + normalized-name
	// key, first-insertion provenance) to the canonical record. order keeps
	// first-insertion order for deterministic serialization and output.
	servers map[string]*types.Server
	order   []string

	names map[string]string // normalized-name key -> composite key
	repos map[string]string // normalized-repository key -> composite key

	lastRun    utc.Time
	duplicates int

	strategies []Strategy
}

// New constructs a store for one run. Call Load before the first Dedupe and
// Save after the last one.
func New(runID string, mode Mode, blobs blob.Store) *Store {
	s := &Store{
		runID:   runID,
		mode:    mode,
		blobs:   blobs,
		servers: make(map[string]*types.Server),
		names:   make(map[string]string),
		repos:   make(map[string]string),
	}
	// Lookup order is fixed: name match dominates repository match.
	s.strategies = []Strategy{&byName{store: s}, &byRepository{store: s}}
	return s
}

// stateKey returns the run-scoped blob key for persisted state.
func stateKey(runID string) string {
	return "state/" + runID + ".yaml"
}

// Load initializes the store. In incremental mode it deserializes the prior
// persisted state for this run identifier; any failure to read or parse is
// logged and degrades to an empty store rather than failing the run.
func (s *Store) Load(ctx context.Context) {
	if s.mode != ModeIncremental {
		return
	}

	log := logging.Ctx(ctx)
	key := stateKey(s.runID)

	data, err := s.blobs.Get(ctx, key)
	if errors.IsNotFound(err) {
		log.Info().Str("key", key).Msg("No prior dedup state, starting empty")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to load dedup state, starting empty")
		return
	}

	var st state
	if err := yaml.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Corrupt dedup state, starting empty")
		return
	}

	for _, entry := range st.ServerMap {
		if entry.Server == nil {
			continue
		}
		s.servers[entry.Key] = entry.Server
		s.order = append(s.order, entry.Key)
	}
	for _, entry := range st.NormalizedNames {
		s.names[entry.Key] = entry.CompositeKey
	}
	for _, entry := range st.RepositoryURLs {
		s.repos[entry.Key] = entry.CompositeKey
	}
	s.lastRun = st.LastRunTimestamp

	log.Info().
		Int("servers", len(s.servers)).
		Str("last_run", s.lastRun.String()).
		Msg("Loaded prior dedup state")
}

// Dedupe consolidates the incoming records in input order and returns the
// survivors (records that created a new entity) in first-seen order. Records
// matching an existing entity are merged into it and not emitted.
func (s *Store) Dedupe(ctx context.Context, incoming []*types.Server) []*types.Server {
	log := logging.Ctx(ctx)

	survivors := make([]*types.Server, 0, len(incoming))
	for _, record := range incoming {
		record.NameKey = normalize.NameKey(record.Name)

		if existing, ck, strategy, ok := s.lookup(ctx, record); ok {
			merge.Into(existing, record)
			s.duplicates++
			// The merge may have backfilled a repository onto a record that
			// had none; register its key so later records sharing the
			// repository still resolve to this entity.
			if repoKey := normalize.RepositoryKey(existing.Repository); repoKey != "" {
				if _, taken := s.repos[repoKey]; !taken {
					s.repos[repoKey] = ck
				}
			}
			log.Debug().
				Str("name", record.Name).
				Str("strategy", strategy).
				Msg("Merged duplicate record")
			continue
		}

		s.insert(record)
		survivors = append(survivors, record)
	}
	return survivors
}

// lookup tries each strategy in order and resolves the matched composite key
// to its record. A mapping that points at a missing record indicates
// corrupted state; the mapping is dropped and the incoming record is treated
// as new, never crashing the run.
func (s *Store) lookup(ctx context.Context, record *types.Server) (*types.Server, string, string, bool) {
	for _, strategy := range s.strategies {
		ck, ok := strategy.Lookup(record)
		if !ok {
			continue
		}
		existing, found := s.servers[ck]
		if !found {
			logging.Ctx(ctx).Warn().
				Str("composite_key", ck).
				Str("strategy", strategy.Name()).
				Msg("Key map points to missing record, dropping stale mapping")
			s.unlink(ck)
			continue
		}
		return existing, ck, strategy.Name(), true
	}
	return nil, "", "", false
}

// insert registers a new entity under a fresh composite key and both key
// maps. From this point the record is reachable by exactly one
// normalized-name key and, when it has a repository, one repository key.
func (s *Store) insert(record *types.Server) {
	ck := compositeKey(record.Origin, record.NameKey)
	if _, taken := s.servers[ck]; taken {
		// Only possible for records whose name normalizes to an empty key.
		ck = fmt.Sprintf("%s#%d", ck, len(s.order))
	}

	s.servers[ck] = record
	s.order = append(s.order, ck)
	if record.NameKey != "" {
		s.names[record.NameKey] = ck
	}
	if repoKey := normalize.RepositoryKey(record.Repository); repoKey != "" {
		if _, taken := s.repos[repoKey]; !taken {
			s.repos[repoKey] = ck
		}
	}
}

// unlink removes every key mapping that points at the given composite key.
func (s *Store) unlink(ck string) {
	for key, mapped := range s.names {
		if mapped == ck {
			delete(s.names, key)
		}
	}
	for key, mapped := range s.repos {
		if mapped == ck {
			delete(s.repos, key)
		}
	}
}

// Save serializes the full state back to storage under the run-scoped key.
// A save failure is logged and swallowed; the run's dataset output is
// produced independently of this step.
func (s *Store) Save(ctx context.Context) {
	log := logging.Ctx(ctx)

	st := state{
		RunID:            s.runID,
		ServerMap:        make([]serverEntry, 0, len(s.order)),
		NormalizedNames:  make([]keyEntry, 0, len(s.names)),
		RepositoryURLs:   make([]keyEntry, 0, len(s.repos)),
		LastRunTimestamp: utc.Now(),
		UpdateMode:       s.mode,
	}
	for _, ck := range s.order {
		st.ServerMap = append(st.ServerMap, serverEntry{Key: ck, Server: s.servers[ck]})
	}
	// Pair lists follow first-insertion order of their target records so the
	// serialized state is deterministic.
	for _, ck := range s.order {
		for key, mapped := range s.names {
			if mapped == ck {
				st.NormalizedNames = append(st.NormalizedNames, keyEntry{Key: key, CompositeKey: ck})
			}
		}
		for key, mapped := range s.repos {
			if mapped == ck {
				st.RepositoryURLs = append(st.RepositoryURLs, keyEntry{Key: key, CompositeKey: ck})
			}
		}
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		log.Error().Err(err).Msg("Failed to serialize dedup state")
		return
	}
	if err := s.blobs.Put(ctx, stateKey(s.runID), data); err != nil {
		log.Error().Err(err).Str("key", stateKey(s.runID)).Msg("Failed to save dedup state")
	}
}

// Servers returns every canonical record in first-insertion order.
func (s *Store) Servers() []*types.Server {
	out := make([]*types.Server, 0, len(s.order))
	for _, ck := range s.order {
		out = append(out, s.servers[ck])
	}
	return out
}

// Duplicates returns how many incoming records merged into existing entities.
func (s *Store) Duplicates() int {
	return s.duplicates
}

// Len returns the number of canonical records in the store.
func (s *Store) Len() int {
	return len(s.servers)
}

// LastRun returns the previous run's timestamp loaded from persisted state,
// zero for full runs and first incremental runs.
func (s *Store) LastRun() utc.Time {
	return s.lastRun
}

func compositeKey(origin types.Origin, nameKey string) string {
	return origin.String() + ":" + nameKey
}
