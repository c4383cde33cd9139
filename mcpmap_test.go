package mcpmap_test

import (
	"context"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mcpmap"
	"github.com/agentstation/mcpmap/pkg/blob"
	"github.com/agentstation/mcpmap/pkg/dedupe"
	"github.com/agentstation/mcpmap/pkg/types"
)

var testNow = utc.New(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

func newPipeline(blobs blob.Store) *mcpmap.Pipeline {
	store := dedupe.New("test-run", dedupe.ModeFull, blobs)
	return mcpmap.New(store, mcpmap.WithClock(func() utc.Time { return testNow }))
}

func observation(name string) types.Observation {
	return types.Observation{
		Name:         name,
		Description:  "An MCP server",
		Version:      "1.0.0",
		SourceURL:    "https://registry.npmjs.org/" + name,
		Origin:       types.OriginNPM,
		LastModified: utc.New(testNow.Time.Add(-10 * 24 * time.Hour)),
	}
}

func TestProcessEndToEnd(t *testing.T) {
	stars := int64(50)
	downloads := int64(999)

	github := types.Observation{
		Name:         "Server Alpha",
		Description:  "Postgres access for Claude",
		Version:      "1.2.0",
		SourceURL:    "https://github.com/x/server-alpha",
		Origin:       types.OriginGitHub,
		Stars:        &stars,
		Repository:   "https://github.com/x/server-alpha",
		LastModified: utc.New(testNow.Time.Add(-24 * time.Hour)),
	}
	npm := types.Observation{
		Name:         "server_alpha",
		Description:  "Postgres access for Claude, npm build",
		Version:      "1.3.0",
		SourceURL:    "https://registry.npmjs.org/server_alpha",
		Origin:       types.OriginNPM,
		PURL:         "pkg:npm/server_alpha",
		Downloads:    &downloads,
		Repository:   "git@github.com:x/server-alpha.git",
		LastModified: utc.New(testNow.Time.Add(-12 * time.Hour)),
	}

	pipeline := newPipeline(blob.NewMemory())
	result := pipeline.Process(context.Background(), []types.Observation{github, npm})

	require.Len(t, result.Servers, 1)
	assert.Equal(t, 1, result.DuplicatesRemoved)
	assert.Empty(t, result.ValidationFailures)

	s := result.Servers[0]
	// First-seen name, GitHub stars, npm downloads, both origins.
	assert.Equal(t, "Server Alpha", s.Name)
	assert.Equal(t, "server-alpha", s.NameKey)
	assert.Equal(t, int64(50), s.Stars)
	assert.Equal(t, int64(999), s.Downloads[types.OriginNPM])
	assert.Len(t, s.Origins, 2)
	assert.Equal(t, "pkg:npm/server_alpha", s.PURLs[types.OriginNPM])

	// Later npm observation advanced version and last-modified.
	assert.Equal(t, "1.3.0", s.Version)
	assert.True(t, s.Active)

	// Derived fields are attached.
	assert.Contains(t, s.Categories, "database")
	assert.Contains(t, s.Compatibility, "claude")
	// Install guidance keeps the npm package's own name, not the canonical one.
	assert.Equal(t, "npx -y server_alpha", s.Install[types.OriginNPM])
	assert.Greater(t, s.Popularity, 20.0)
}

func TestProcessRejectsInvalidObservations(t *testing.T) {
	valid := observation("good-server")
	invalid := observation("bad-server")
	invalid.Version = ""

	pipeline := newPipeline(blob.NewMemory())
	result := pipeline.Process(context.Background(), []types.Observation{valid, invalid})

	require.Len(t, result.Servers, 1)
	assert.Equal(t, "good-server", result.Servers[0].Name)
	require.Len(t, result.ValidationFailures, 1)
	assert.Equal(t, "version", result.ValidationFailures[0].Field)
}

func TestProcessSanitizesBeforeValidation(t *testing.T) {
	o := observation("dirty-server")
	o.Description = "has\x00control   chars"

	pipeline := newPipeline(blob.NewMemory())
	result := pipeline.Process(context.Background(), []types.Observation{o})

	require.Len(t, result.Servers, 1)
	assert.Equal(t, "has control chars", result.Servers[0].Description)
}

func TestProcessMarksStaleRecordsInactive(t *testing.T) {
	o := observation("old-server")
	o.LastModified = utc.New(testNow.Time.Add(-2 * 365 * 24 * time.Hour))

	pipeline := newPipeline(blob.NewMemory())
	result := pipeline.Process(context.Background(), []types.Observation{o})

	require.Len(t, result.Servers, 1)
	assert.False(t, result.Servers[0].Active)
}

// Incremental runs recognize servers persisted by earlier runs.
func TestProcessAcrossRuns(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()

	first := dedupe.New("run-1", dedupe.ModeIncremental, blobs)
	first.Load(ctx)
	result := mcpmap.New(first).Process(ctx, []types.Observation{observation("alpha")})
	require.Len(t, result.Servers, 1)
	first.Save(ctx)

	second := dedupe.New("run-1", dedupe.ModeIncremental, blobs)
	second.Load(ctx)
	result = mcpmap.New(second).Process(ctx, []types.Observation{observation("ALPHA")})

	assert.Empty(t, result.Servers)
	assert.Equal(t, 1, result.DuplicatesRemoved)
	assert.Equal(t, 1, second.Len())
}

func TestProcessEmptyInput(t *testing.T) {
	pipeline := newPipeline(blob.NewMemory())
	result := pipeline.Process(context.Background(), nil)

	assert.Empty(t, result.Servers)
	assert.Zero(t, result.DuplicatesRemoved)
	assert.Empty(t, result.ValidationFailures)
}
