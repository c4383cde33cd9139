package types

import (
	"time"

	"github.com/agentstation/utc"
)

// activeWindow is how recently a server must have been modified to be
// considered actively maintained.
const activeWindow = 365 * 24 * time.Hour

// Server is the canonical, mergeable record for one logical MCP server
// package across every registry that reported it.
//
// A Server is reachable from the dedup store by exactly one normalized-name
// key and, when it has a repository URL, by exactly one normalized-repository
// key; both keys resolve to the same record for the lifetime of a run.
type Server struct {
	// Name is the display name, taken from the first observation seen.
	Name string `json:"name" yaml:"name"`

	// Description is the human description. First-seen wins.
	Description string `json:"description" yaml:"description"`

	// Version is the best-known version string. Merge replaces it when an
	// incoming version sorts lexicographically greater; this is plain string
	// ordering, not semver, kept for compatibility with prior datasets.
	Version string `json:"version" yaml:"version"`

	// Origin is the origin tag of the observation that first created this
	// record. It disambiguates first-insertion provenance in the dedup
	// store's composite key.
	Origin Origin `json:"origin" yaml:"origin"`

	// Origins maps each origin tag to the source URL observed there. A
	// record observed from multiple registries carries one entry per origin.
	Origins map[Origin]string `json:"origins" yaml:"origins"`

	// PURLs maps each origin tag to the package URL identifier observed
	// there, for origins whose package name forms a valid purl.
	PURLs map[Origin]string `json:"purls,omitempty" yaml:"purls,omitempty"`

	// Downloads maps each origin tag to the raw download-like count it
	// reported. These stay separate from the derived Popularity scalar so
	// the per-origin figures remain available for display and audit.
	Downloads map[Origin]int64 `json:"downloads,omitempty" yaml:"downloads,omitempty"`

	// Stars and Forks are repository popularity signals. Only the GitHub
	// origin may overwrite them during merge.
	Stars int64 `json:"stars,omitempty" yaml:"stars,omitempty"`
	Forks int64 `json:"forks,omitempty" yaml:"forks,omitempty"`

	// Repository is the best-known source repository URL.
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`

	// License is the declared license. First-seen wins.
	License string `json:"license,omitempty" yaml:"license,omitempty"`

	// Author is the declared author or publisher. First-seen wins.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Keywords are the tags from the first observation seen.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Readme is the long-form document text. Merge keeps the longer text.
	Readme string `json:"readme,omitempty" yaml:"readme,omitempty"`

	// LastModified is the latest last-modified timestamp seen so far.
	LastModified utc.Time `json:"last_modified" yaml:"last_modified"`

	// Active reports whether the server looks actively maintained, derived
	// from LastModified.
	Active bool `json:"active" yaml:"active"`

	// Categories are classification labels derived from keywords and text.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Compatibility lists AI clients the server documents support for.
	Compatibility []string `json:"compatibility,omitempty" yaml:"compatibility,omitempty"`

	// Install maps each observed origin to a generated installation command.
	Install map[Origin]string `json:"install,omitempty" yaml:"install,omitempty"`

	// NameKey is the normalized-name key used as this record's primary
	// identity in the dedup store.
	NameKey string `json:"name_key" yaml:"name_key"`

	// Popularity is the derived popularity scalar attached by the scoring
	// stage. It never overwrites the raw per-origin download counts.
	Popularity float64 `json:"popularity" yaml:"popularity"`
}

// NewServer builds a canonical record from a single validated observation.
// Maps are initialized with the observation's own origin entries so merge can
// treat every record uniformly.
func NewServer(o *Observation) *Server {
	s := &Server{
		Name:         o.Name,
		Description:  o.Description,
		Version:      o.Version,
		Origin:       o.Origin,
		Origins:      map[Origin]string{o.Origin: o.SourceURL},
		Downloads:    make(map[Origin]int64),
		Repository:   o.Repository,
		License:      o.License,
		Author:       o.Author,
		Keywords:     o.Keywords,
		Readme:       o.Readme,
		LastModified: o.LastModified,
	}
	if o.Stars != nil {
		s.Stars = *o.Stars
	}
	if o.Forks != nil {
		s.Forks = *o.Forks
	}
	if o.Downloads != nil {
		s.Downloads[o.Origin] = *o.Downloads
	}
	if o.PURL != "" {
		s.PURLs = map[Origin]string{o.Origin: o.PURL}
	}
	s.Active = s.ActiveAt(utc.Now())
	return s
}

// ActiveAt reports whether the server counts as actively maintained at the
// given instant: last modified within the past year.
func (s *Server) ActiveAt(now utc.Time) bool {
	if s.LastModified.IsZero() {
		return false
	}
	return now.Time.Sub(s.LastModified.Time) < activeWindow
}

// TotalDownloads sums the raw per-origin download counts.
func (s *Server) TotalDownloads() int64 {
	var total int64
	for _, n := range s.Downloads {
		total += n
	}
	return total
}
