package dedupe_test

import (
	"context"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mcpmap/pkg/blob"
	"github.com/agentstation/mcpmap/pkg/dedupe"
	"github.com/agentstation/mcpmap/pkg/types"
)

func npmServer(name string) *types.Server {
	return &types.Server{
		Name:   name,
		Origin: types.OriginNPM,
		Origins: map[types.Origin]string{
			types.OriginNPM: "https://registry.npmjs.org/" + name,
		},
	}
}

func githubServer(name, repo string) *types.Server {
	return &types.Server{
		Name:       name,
		Origin:     types.OriginGitHub,
		Repository: repo,
		Origins: map[types.Origin]string{
			types.OriginGitHub: repo,
		},
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"full", "incremental"} {
		mode, err := dedupe.ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(mode))
	}

	_, err := dedupe.ParseMode("partial")
	assert.Error(t, err)
}

func TestDedupeByNormalizedName(t *testing.T) {
	ctx := context.Background()
	store := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())

	// Same logical server under different name spellings.
	survivors := store.Dedupe(ctx, []*types.Server{
		npmServer("MCP-Server"),
		npmServer("mcp_server"),
	})

	require.Len(t, survivors, 1)
	assert.Equal(t, "MCP-Server", survivors[0].Name)
	assert.Equal(t, "mcp-server", survivors[0].NameKey)
	assert.Equal(t, 1, store.Duplicates())
	assert.Equal(t, 1, store.Len())
}

func TestDedupeByRepository(t *testing.T) {
	ctx := context.Background()
	store := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())

	// Different names, same repository in two spellings.
	first := npmServer("server-js")
	first.Repository = "https://github.com/x/y"
	second := githubServer("y", "git@github.com:x/y.git")

	survivors := store.Dedupe(ctx, []*types.Server{first, second})

	require.Len(t, survivors, 1)
	assert.Equal(t, 1, store.Duplicates())

	// The canonical record now carries both origins.
	record := store.Servers()[0]
	assert.Len(t, record.Origins, 2)
	assert.Contains(t, record.Origins, types.OriginNPM)
	assert.Contains(t, record.Origins, types.OriginGitHub)
}

// A name-match merge can backfill a repository onto a record that had none.
// The repository key must become reachable right away, so a later record
// sharing that repository under a different name merges instead of creating
// a second entity.
func TestDedupeBackfilledRepositoryBecomesReachable(t *testing.T) {
	ctx := context.Background()
	store := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())

	bare := npmServer("server-a")
	withRepo := npmServer("Server_A")
	withRepo.Repository = "https://github.com/x/a"
	survivors := store.Dedupe(ctx, []*types.Server{bare, withRepo})
	require.Len(t, survivors, 1)
	require.Equal(t, "https://github.com/x/a", survivors[0].Repository)

	// Different name, same repository in another spelling.
	other := githubServer("totally-different", "git@github.com:x/a.git")
	survivors = store.Dedupe(ctx, []*types.Server{other})

	assert.Empty(t, survivors)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 2, store.Duplicates())
}

func TestDedupeNameDominatesRepository(t *testing.T) {
	ctx := context.Background()
	store := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())

	a := npmServer("server-a")
	a.Repository = "https://github.com/x/a"
	b := npmServer("server-b")
	b.Repository = "https://github.com/x/b"
	store.Dedupe(ctx, []*types.Server{a, b})

	// Matches a by name and b by repository; name wins.
	c := npmServer("Server_A")
	c.Repository = "https://github.com/x/b"
	survivors := store.Dedupe(ctx, []*types.Server{c})

	assert.Empty(t, survivors)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 1, store.Duplicates())
}

func TestDedupeFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	store := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())

	survivors := store.Dedupe(ctx, []*types.Server{
		npmServer("alpha"),
		npmServer("beta"),
		npmServer("Alpha"),
		npmServer("gamma"),
	})

	require.Len(t, survivors, 3)
	assert.Equal(t, "alpha", survivors[0].Name)
	assert.Equal(t, "beta", survivors[1].Name)
	assert.Equal(t, "gamma", survivors[2].Name)

	servers := store.Servers()
	require.Len(t, servers, 3)
	assert.Equal(t, "alpha", servers[0].Name)
}

// Running the same batch against a fresh store twice yields the same
// canonical set.
func TestDedupeDeterministic(t *testing.T) {
	ctx := context.Background()
	batch := func() []*types.Server {
		return []*types.Server{
			npmServer("alpha"),
			npmServer("ALPHA"),
			githubServer("beta", "https://github.com/x/beta"),
		}
	}

	first := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())
	second := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())
	first.Dedupe(ctx, batch())
	second.Dedupe(ctx, batch())

	require.Equal(t, first.Len(), second.Len())
	for i, s := range first.Servers() {
		assert.Equal(t, s.Name, second.Servers()[i].Name)
	}
}

// Feeding already-deduplicated survivors through a fresh store changes
// nothing: no merges fire and the output set is identical.
func TestDedupeIdempotentOnSurvivors(t *testing.T) {
	ctx := context.Background()

	first := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())
	survivors := first.Dedupe(ctx, []*types.Server{
		npmServer("alpha"),
		npmServer("ALPHA"),
		githubServer("beta", "https://github.com/x/beta"),
	})
	require.Len(t, survivors, 2)

	second := dedupe.New("run-2", dedupe.ModeFull, blob.NewMemory())
	again := second.Dedupe(ctx, survivors)

	require.Len(t, again, 2)
	assert.Equal(t, 0, second.Duplicates())
	for i, s := range survivors {
		assert.Equal(t, s.Name, again[i].Name)
	}
}

func TestDedupeEmptyNameKeyNeverMatches(t *testing.T) {
	ctx := context.Background()
	store := dedupe.New("run-1", dedupe.ModeFull, blob.NewMemory())

	// Names that normalize to an empty key are each treated as new.
	survivors := store.Dedupe(ctx, []*types.Server{
		npmServer("@@@"),
		npmServer("###"),
	})

	assert.Len(t, survivors, 2)
	assert.Equal(t, 0, store.Duplicates())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()

	store := dedupe.New("run-1", dedupe.ModeIncremental, blobs)
	store.Load(ctx)
	store.Dedupe(ctx, []*types.Server{
		npmServer("alpha"),
		githubServer("beta", "https://github.com/x/beta"),
	})
	store.Save(ctx)

	reloaded := dedupe.New("run-1", dedupe.ModeIncremental, blobs)
	reloaded.Load(ctx)

	require.Equal(t, 2, reloaded.Len())
	assert.False(t, reloaded.LastRun().IsZero())

	servers := reloaded.Servers()
	assert.Equal(t, "alpha", servers[0].Name)
	assert.Equal(t, "beta", servers[1].Name)

	// Key maps survived: the same names dedupe instead of inserting.
	survivors := reloaded.Dedupe(ctx, []*types.Server{
		npmServer("Alpha"),
		githubServer("gamma", "git@github.com:x/beta.git"),
	})
	assert.Empty(t, survivors)
	assert.Equal(t, 2, reloaded.Duplicates())
}

func TestLoadFullModeIgnoresPriorState(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()

	store := dedupe.New("run-1", dedupe.ModeIncremental, blobs)
	store.Dedupe(ctx, []*types.Server{npmServer("alpha")})
	store.Save(ctx)

	full := dedupe.New("run-1", dedupe.ModeFull, blobs)
	full.Load(ctx)
	assert.Equal(t, 0, full.Len())
}

func TestLoadMissingStateStartsEmpty(t *testing.T) {
	store := dedupe.New("never-ran", dedupe.ModeIncremental, blob.NewMemory())
	store.Load(context.Background())
	assert.Equal(t, 0, store.Len())
}

func TestLoadCorruptStateStartsEmpty(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	require.NoError(t, blobs.Put(ctx, "state/run-1.yaml", []byte("{{{not yaml")))

	store := dedupe.New("run-1", dedupe.ModeIncremental, blobs)
	store.Load(ctx)
	assert.Equal(t, 0, store.Len())
}

func TestLoadDanglingMappingTreatsRecordAsNew(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()

	// Persisted state whose name map points at a record that is gone.
	corrupt := map[string]any{
		"run_id":     "run-1",
		"server_map": []any{},
		"normalized_names": []map[string]string{
			{"key": "alpha", "composite_key": "npm:alpha"},
		},
		"repository_urls": []any{},
		"update_mode":     "incremental",
	}
	data, err := yaml.Marshal(corrupt)
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, "state/run-1.yaml", data))

	store := dedupe.New("run-1", dedupe.ModeIncremental, blobs)
	store.Load(ctx)

	survivors := store.Dedupe(ctx, []*types.Server{npmServer("alpha")})
	require.Len(t, survivors, 1)
	assert.Equal(t, 0, store.Duplicates())
	assert.Equal(t, 1, store.Len())

	// The stale mapping was dropped and rebound; a repeat now merges.
	assert.Empty(t, store.Dedupe(ctx, []*types.Server{npmServer("ALPHA")}))
	assert.Equal(t, 1, store.Duplicates())
}

func TestSaveFailureDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	store := dedupe.New("run-1", dedupe.ModeFull, failingStore{})
	store.Dedupe(ctx, []*types.Server{npmServer("alpha")})

	assert.NotPanics(t, func() { store.Save(ctx) })
	assert.Equal(t, 1, store.Len())
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, assert.AnError
}

func (failingStore) Put(context.Context, string, []byte) error {
	return assert.AnError
}
