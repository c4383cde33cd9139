// Package github provides the collector for GitHub's repository search API.
// It is the authoritative origin for star and fork counts.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/mcpmap/internal/sources/clients"
	"github.com/agentstation/mcpmap/pkg/errors"
	"github.com/agentstation/mcpmap/pkg/logging"
	"github.com/agentstation/mcpmap/pkg/types"
)

const (
	// DefaultURL is the public GitHub API.
	DefaultURL = "https://api.github.com"

	// DefaultTopic matches MCP server repositories.
	DefaultTopic = "mcp-server"

	pageSize = 100
)

// Config configures the GitHub source.
type Config struct {
	BaseURL  string
	Topic    string
	MaxPages int
}

// Source collects observations from GitHub topic search.
type Source struct {
	baseURL  string
	topic    string
	maxPages int
	client   *clients.Client
}

// New creates a GitHub source.
func New(client *clients.Client, cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	return &Source{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		topic:    cfg.Topic,
		maxPages: cfg.MaxPages,
		client:   client,
	}
}

// Origin implements sources.Source.
func (s *Source) Origin() types.Origin {
	return types.OriginGitHub
}

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []repository `json:"items"`
}

type repository struct {
	Name        string   `json:"name"`
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	HTMLURL     string   `json:"html_url"`
	CloneURL    string   `json:"clone_url"`
	Stars       int64    `json:"stargazers_count"`
	Forks       int64    `json:"forks_count"`
	Topics      []string `json:"topics"`
	PushedAt    string   `json:"pushed_at"`
	License     *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type releaseResponse struct {
	TagName string `json:"tag_name"`
}

// Fetch pages through topic search results and yields one observation per
// repository.
func (s *Source) Fetch(ctx context.Context) ([]types.Observation, error) {
	log := logging.Ctx(ctx)

	var observations []types.Observation
	for page := 1; page <= s.maxPages; page++ {
		searchURL := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=%d&page=%d",
			s.baseURL, url.QueryEscape("topic:"+s.topic), pageSize, page)

		var resp searchResponse
		if err := s.client.GetJSON(ctx, searchURL, &resp); err != nil {
			if len(observations) > 0 {
				log.Warn().Err(err).Int("page", page).Msg("GitHub search page failed, keeping earlier pages")
				break
			}
			return nil, errors.WrapAPI(types.OriginGitHub.String(), 0, err)
		}
		if len(resp.Items) == 0 {
			break
		}

		for _, repo := range resp.Items {
			observations = append(observations, s.observation(ctx, repo))
		}

		if len(resp.Items) < pageSize {
			break
		}
	}

	return observations, nil
}

func (s *Source) observation(ctx context.Context, repo repository) types.Observation {
	stars := repo.Stars
	forks := repo.Forks

	o := types.Observation{
		Name:        repo.Name,
		Description: repo.Description,
		Version:     s.latestVersion(ctx, repo.FullName),
		SourceURL:   repo.HTMLURL,
		Origin:      types.OriginGitHub,
		Stars:       &stars,
		Forks:       &forks,
		Author:      repo.Owner.Login,
		Repository:  repo.HTMLURL,
		Keywords:    repo.Topics,
	}
	if repo.License != nil && repo.License.SPDXID != "NOASSERTION" {
		o.License = repo.License.SPDXID
	}
	if t, err := time.Parse(time.RFC3339, repo.PushedAt); err == nil {
		o.LastModified = utc.New(t)
	}
	return o
}

// latestVersion resolves the latest release tag; repositories without
// releases fall back to a zero version so validation still passes.
func (s *Source) latestVersion(ctx context.Context, fullName string) string {
	var release releaseResponse
	releaseURL := fmt.Sprintf("%s/repos/%s/releases/latest", s.baseURL, fullName)
	if err := s.client.GetJSON(ctx, releaseURL, &release); err == nil && release.TagName != "" {
		return strings.TrimPrefix(release.TagName, "v")
	}
	return "0.0.0"
}
