package sources_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mcpmap/internal/sources"
	"github.com/agentstation/mcpmap/pkg/errors"
	"github.com/agentstation/mcpmap/pkg/types"
)

type fakeSource struct {
	origin       types.Origin
	observations []types.Observation
	err          error
}

func (f *fakeSource) Origin() types.Origin { return f.origin }

func (f *fakeSource) Fetch(context.Context) ([]types.Observation, error) {
	return f.observations, f.err
}

func named(origin types.Origin, names ...string) *fakeSource {
	observations := make([]types.Observation, 0, len(names))
	for _, name := range names {
		observations = append(observations, types.Observation{Name: name, Origin: origin})
	}
	return &fakeSource{origin: origin, observations: observations}
}

func TestAddAndGet(t *testing.T) {
	srcs := sources.New()
	assert.Equal(t, 0, srcs.Len())

	srcs.Add(named(types.OriginNPM, "a"))
	srcs.Add(named(types.OriginPyPI, "b"))
	assert.Equal(t, 2, srcs.Len())

	src, ok := srcs.Get(types.OriginNPM)
	require.True(t, ok)
	assert.Equal(t, types.OriginNPM, src.Origin())

	_, ok = srcs.Get(types.OriginGitHub)
	assert.False(t, ok)

	// Re-adding replaces.
	srcs.Add(named(types.OriginNPM, "c"))
	assert.Equal(t, 2, srcs.Len())
}

func TestListAlphabeticalByOrigin(t *testing.T) {
	srcs := sources.New()
	srcs.Add(named(types.OriginPyPI))
	srcs.Add(named(types.OriginGitHub))
	srcs.Add(named(types.OriginNPM))

	list := srcs.List()
	require.Len(t, list, 3)
	assert.Equal(t, types.OriginGitHub, list[0].Origin())
	assert.Equal(t, types.OriginNPM, list[1].Origin())
	assert.Equal(t, types.OriginPyPI, list[2].Origin())
}

// Concatenation order follows origin order regardless of which fetch
// finishes first, so pipeline tie-breaks stay reproducible.
func TestFetchAllStableOrder(t *testing.T) {
	srcs := sources.New()
	srcs.Add(named(types.OriginPyPI, "p1", "p2"))
	srcs.Add(named(types.OriginGitHub, "g1"))
	srcs.Add(named(types.OriginNPM, "n1"))

	all := srcs.FetchAll(context.Background())
	require.Len(t, all, 4)
	assert.Equal(t, "g1", all[0].Name)
	assert.Equal(t, "n1", all[1].Name)
	assert.Equal(t, "p1", all[2].Name)
	assert.Equal(t, "p2", all[3].Name)
}

func TestFetchAllSourceFailureIsNotFatal(t *testing.T) {
	srcs := sources.New()
	srcs.Add(named(types.OriginNPM, "n1"))
	srcs.Add(&fakeSource{
		origin: types.OriginGitHub,
		err:    errors.ErrSourceUnavailable,
	})

	all := srcs.FetchAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, "n1", all[0].Name)
}
