package dedupe

import (
	"github.com/agentstation/mcpmap/pkg/normalize"
	"github.com/agentstation/mcpmap/pkg/types"
)

// Strategy is one way of locating an existing canonical record that an
// incoming record duplicates. The store tries its strategies in a fixed
// order and short-circuits on the first hit, so earlier strategies dominate
// tie-breaks when several could apply to different existing entries.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Lookup returns the composite key of the existing record the incoming
	// record matches, if any.
	Lookup(incoming *types.Server) (string, bool)
}

// byName matches on the normalized-name key. It runs first: name identity is
// the dominant tie-break.
type byName struct {
	store *Store
}

func (s *byName) Name() string { return "normalized-name" }

func (s *byName) Lookup(incoming *types.Server) (string, bool) {
	if incoming.NameKey == "" {
		return "", false
	}
	ck, ok := s.store.names[incoming.NameKey]
	return ck, ok
}

// byRepository matches on the normalized-repository key. It runs second:
// repository identity only links records whose names did not already match.
type byRepository struct {
	store *Store
}

func (s *byRepository) Name() string { return "normalized-repository" }

func (s *byRepository) Lookup(incoming *types.Server) (string, bool) {
	key := normalize.RepositoryKey(incoming.Repository)
	if key == "" {
		return "", false
	}
	ck, ok := s.store.repos[key]
	return ck, ok
}
