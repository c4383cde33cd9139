// Package npm provides the collector for the npm registry's search API.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/git-pkgs/purl"

	"github.com/agentstation/mcpmap/internal/sources/clients"
	"github.com/agentstation/mcpmap/pkg/errors"
	"github.com/agentstation/mcpmap/pkg/logging"
	"github.com/agentstation/mcpmap/pkg/types"
)

const (
	// DefaultURL is the public npm registry.
	DefaultURL = "https://registry.npmjs.org"

	// DefaultDownloadsURL is the npm downloads API.
	DefaultDownloadsURL = "https://api.npmjs.org"

	// DefaultQuery matches MCP server packages.
	DefaultQuery = "mcp server"

	pageSize = 250
)

// Config configures the npm source.
type Config struct {
	BaseURL      string
	DownloadsURL string
	Query        string
	MaxPages     int
}

// Source collects observations from npm search results.
type Source struct {
	baseURL      string
	downloadsURL string
	query        string
	maxPages     int
	client       *clients.Client
}

// New creates an npm source.
func New(client *clients.Client, cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.DownloadsURL == "" {
		cfg.DownloadsURL = DefaultDownloadsURL
	}
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 4
	}
	return &Source{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		downloadsURL: strings.TrimSuffix(cfg.DownloadsURL, "/"),
		query:        cfg.Query,
		maxPages:     cfg.MaxPages,
		client:       client,
	}
}

// Origin implements sources.Source.
func (s *Source) Origin() types.Origin {
	return types.OriginNPM
}

type searchResponse struct {
	Objects []struct {
		Package searchPackage `json:"package"`
	} `json:"objects"`
	Total int `json:"total"`
}

type searchPackage struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Date        string   `json:"date"`
	Links       struct {
		NPM        string `json:"npm"`
		Repository string `json:"repository"`
	} `json:"links"`
	Publisher struct {
		Username string `json:"username"`
	} `json:"publisher"`
	License string `json:"license"`
}

type downloadsResponse struct {
	Downloads int64 `json:"downloads"`
}

// Fetch pages through the search API and yields one observation per package.
func (s *Source) Fetch(ctx context.Context) ([]types.Observation, error) {
	log := logging.Ctx(ctx)

	var observations []types.Observation
	for page := 0; page < s.maxPages; page++ {
		searchURL := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d&from=%d",
			s.baseURL, url.QueryEscape(s.query), pageSize, page*pageSize)

		var resp searchResponse
		if err := s.client.GetJSON(ctx, searchURL, &resp); err != nil {
			if len(observations) > 0 {
				log.Warn().Err(err).Int("page", page).Msg("npm search page failed, keeping earlier pages")
				break
			}
			return nil, errors.WrapAPI(types.OriginNPM.String(), 0, err)
		}
		if len(resp.Objects) == 0 {
			break
		}

		for _, obj := range resp.Objects {
			observations = append(observations, s.observation(ctx, obj.Package))
		}

		if len(resp.Objects) < pageSize {
			break
		}
	}

	return observations, nil
}

func (s *Source) observation(ctx context.Context, pkg searchPackage) types.Observation {
	o := types.Observation{
		Name:        pkg.Name,
		Description: pkg.Description,
		Version:     pkg.Version,
		SourceURL:   pkg.Links.NPM,
		Origin:      types.OriginNPM,
		License:     pkg.License,
		Author:      pkg.Publisher.Username,
		Repository:  pkg.Links.Repository,
		Keywords:    pkg.Keywords,
	}
	if o.SourceURL == "" {
		o.SourceURL = s.baseURL + "/" + pkg.Name
	}

	if t, err := time.Parse(time.RFC3339, pkg.Date); err == nil {
		o.LastModified = utc.New(t)
	}

	if id := fmt.Sprintf("pkg:npm/%s", pkg.Name); validPURL(id) {
		o.PURL = id
	}

	// Weekly downloads come from a separate API; absence is not an error.
	var dl downloadsResponse
	downloadsURL := fmt.Sprintf("%s/downloads/point/last-week/%s", s.downloadsURL, url.PathEscape(pkg.Name))
	if err := s.client.GetJSON(ctx, downloadsURL, &dl); err == nil && dl.Downloads > 0 {
		o.Downloads = &dl.Downloads
	}

	return o
}

func validPURL(id string) bool {
	_, err := purl.Parse(id)
	return err == nil
}
