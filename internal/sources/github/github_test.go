package github_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mcpmap/internal/sources/clients"
	"github.com/agentstation/mcpmap/internal/sources/github"
	"github.com/agentstation/mcpmap/pkg/types"
)

const searchPage = `{
	"total_count": 2,
	"items": [
		{
			"name": "server-alpha",
			"full_name": "x/server-alpha",
			"description": "Alpha MCP server",
			"html_url": "https://github.com/x/server-alpha",
			"clone_url": "https://github.com/x/server-alpha.git",
			"stargazers_count": 420,
			"forks_count": 17,
			"topics": ["mcp-server", "ai"],
			"pushed_at": "2026-07-20T12:00:00Z",
			"license": {"spdx_id": "MIT"},
			"owner": {"login": "x"}
		},
		{
			"name": "server-beta",
			"full_name": "y/server-beta",
			"description": "Beta MCP server",
			"html_url": "https://github.com/y/server-beta",
			"stargazers_count": 3,
			"forks_count": 0,
			"pushed_at": "2026-01-05T00:00:00Z",
			"license": {"spdx_id": "NOASSERTION"},
			"owner": {"login": "y"}
		}
	]
}`

func newTestSource(t *testing.T, handler http.Handler) *github.Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := clients.New(
		clients.WithHTTPClient(srv.Client()),
		clients.WithMaxRetries(0),
	)
	return github.New(client, github.Config{BaseURL: srv.URL, Topic: "mcp-server", MaxPages: 2})
}

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `{"total_count": 2, "items": []}`)
			return
		}
		assert.Contains(t, r.URL.Query().Get("q"), "topic:mcp-server")
		fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("/repos/x/server-alpha/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v1.4.0"}`)
	})
	mux.HandleFunc("/repos/y/server-beta/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	source := newTestSource(t, mux)
	assert.Equal(t, types.OriginGitHub, source.Origin())

	observations, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, observations, 2)

	alpha := observations[0]
	assert.Equal(t, "server-alpha", alpha.Name)
	assert.Equal(t, "1.4.0", alpha.Version)
	assert.Equal(t, "https://github.com/x/server-alpha", alpha.SourceURL)
	assert.Equal(t, "https://github.com/x/server-alpha", alpha.Repository)
	require.NotNil(t, alpha.Stars)
	assert.Equal(t, int64(420), *alpha.Stars)
	require.NotNil(t, alpha.Forks)
	assert.Equal(t, int64(17), *alpha.Forks)
	assert.Equal(t, "MIT", alpha.License)
	assert.Equal(t, "x", alpha.Author)
	assert.Equal(t, []string{"mcp-server", "ai"}, alpha.Keywords)
	assert.False(t, alpha.LastModified.IsZero())

	beta := observations[1]
	// No release tag falls back to a zero version so validation passes.
	assert.Equal(t, "0.0.0", beta.Version)
	// NOASSERTION is not a license.
	assert.Empty(t, beta.License)
}

func TestFetchErrorWithNoPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	source := newTestSource(t, mux)
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}
