package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/mcpmap/pkg/classify"
	"github.com/agentstation/mcpmap/pkg/types"
)

func TestCategories(t *testing.T) {
	tests := []struct {
		name   string
		server *types.Server
		want   []string
	}{
		{
			name:   "no matches",
			server: &types.Server{Name: "plain-server", Description: "does nothing interesting"},
			want:   nil,
		},
		{
			name:   "database from description",
			server: &types.Server{Name: "pg-mcp", Description: "Query Postgres from your agent"},
			want:   []string{"database"},
		},
		{
			name: "multiple labels sorted",
			server: &types.Server{
				Name:        "everything",
				Description: "Browser automation with Playwright backed by Redis",
			},
			want: []string{"browser", "database"},
		},
		{
			name: "keywords contribute",
			server: &types.Server{
				Name:     "x",
				Keywords: []string{"kubernetes", "terraform"},
			},
			want: []string{"cloud"},
		},
		{
			name: "readme contributes",
			server: &types.Server{
				Name:   "x",
				Readme: "Connects to the Slack API.",
			},
			want: []string{"communication"},
		},
		{
			name:   "matching is case-insensitive",
			server: &types.Server{Name: "x", Description: "MongoDB storage"},
			want:   []string{"database"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify.Categories(tt.server))
		})
	}
}

func TestCompatibility(t *testing.T) {
	s := &types.Server{
		Name:   "x",
		Readme: "Works with Claude Desktop and Cursor. Add it to your MCP config.",
	}
	assert.Equal(t, []string{"claude", "cursor"}, classify.Compatibility(s))

	assert.Empty(t, classify.Compatibility(&types.Server{Name: "x", Description: "y"}))
}

func TestApply(t *testing.T) {
	s := &types.Server{
		Name:        "git-mcp",
		Description: "Git operations for Claude",
	}
	classify.Apply(s)

	assert.Equal(t, []string{"developer-tools"}, s.Categories)
	assert.Equal(t, []string{"claude"}, s.Compatibility)
}
