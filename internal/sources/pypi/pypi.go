// Package pypi provides the collector for the PyPI JSON API.
//
// PyPI has no public search API, so the source walks a configured list of
// package names (typically seeded from a curated list plus prior runs) and
// fetches each package's JSON document.
package pypi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/git-pkgs/purl"

	"github.com/agentstation/mcpmap/internal/sources/clients"
	"github.com/agentstation/mcpmap/pkg/logging"
	"github.com/agentstation/mcpmap/pkg/types"
)

// DefaultURL is the public PyPI instance.
const DefaultURL = "https://pypi.org"

// Config configures the PyPI source.
type Config struct {
	BaseURL  string
	Packages []string
}

// Source collects observations for a configured set of PyPI packages.
type Source struct {
	baseURL  string
	packages []string
	client   *clients.Client
}

// New creates a PyPI source.
func New(client *clients.Client, cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	return &Source{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		packages: cfg.Packages,
		client:   client,
	}
}

// Origin implements sources.Source.
func (s *Source) Origin() types.Origin {
	return types.OriginPyPI
}

type packageResponse struct {
	Info struct {
		Name        string            `json:"name"`
		Summary     string            `json:"summary"`
		Version     string            `json:"version"`
		License     string            `json:"license"`
		Author      string            `json:"author"`
		Keywords    string            `json:"keywords"`
		Description string            `json:"description"`
		PackageURL  string            `json:"package_url"`
		ProjectURLs map[string]string `json:"project_urls"`
	} `json:"info"`
	URLs []struct {
		UploadTime string `json:"upload_time_iso_8601"`
	} `json:"urls"`
}

// Fetch retrieves each configured package; missing packages are skipped.
func (s *Source) Fetch(ctx context.Context) ([]types.Observation, error) {
	log := logging.Ctx(ctx)

	observations := make([]types.Observation, 0, len(s.packages))
	for _, name := range s.packages {
		pkgURL := fmt.Sprintf("%s/pypi/%s/json", s.baseURL, url.PathEscape(name))

		var resp packageResponse
		if err := s.client.GetJSON(ctx, pkgURL, &resp); err != nil {
			log.Warn().Err(err).Str("package", name).Msg("PyPI package fetch failed, skipping")
			continue
		}

		observations = append(observations, s.observation(resp))
	}

	return observations, nil
}

func (s *Source) observation(resp packageResponse) types.Observation {
	info := resp.Info

	o := types.Observation{
		Name:        info.Name,
		Description: info.Summary,
		Version:     info.Version,
		SourceURL:   info.PackageURL,
		Origin:      types.OriginPyPI,
		License:     info.License,
		Author:      info.Author,
		Repository:  repositoryURL(info.ProjectURLs),
		Keywords:    splitKeywords(info.Keywords),
		Readme:      info.Description,
	}
	if o.SourceURL == "" {
		o.SourceURL = fmt.Sprintf("%s/project/%s/", s.baseURL, info.Name)
	}

	for _, u := range resp.URLs {
		if t, err := time.Parse(time.RFC3339, u.UploadTime); err == nil {
			stamp := utc.New(t)
			if stamp.Time.After(o.LastModified.Time) {
				o.LastModified = stamp
			}
		}
	}

	if id := fmt.Sprintf("pkg:pypi/%s", strings.ToLower(info.Name)); validPURL(id) {
		o.PURL = id
	}

	return o
}

// repositoryURL picks the best repository candidate from project_urls.
func repositoryURL(projectURLs map[string]string) string {
	for _, key := range []string{"Repository", "Source", "Source Code", "Homepage"} {
		if u, ok := projectURLs[key]; ok && u != "" {
			return u
		}
	}
	return ""
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	sep := ","
	if !strings.Contains(raw, ",") {
		sep = " "
	}
	var keywords []string
	for _, kw := range strings.Split(raw, sep) {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func validPURL(id string) bool {
	_, err := purl.Parse(id)
	return err == nil
}
