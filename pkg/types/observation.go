package types

import (
	"github.com/agentstation/utc"
)

// Observation is a single raw sighting of a server package as reported by one
// registry collector. Observations are consumed exactly once by the pipeline
// and never persisted; the durable unit is the Server record they merge into.
type Observation struct {
	// Name is the identifying name as published on the origin registry.
	Name string `json:"name" yaml:"name"`

	// Description is the human description from the registry listing.
	Description string `json:"description" yaml:"description"`

	// Version is the version string as reported by the registry.
	Version string `json:"version" yaml:"version"`

	// SourceURL is the canonical URL of this observation on its origin.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// Origin tags which registry produced this observation.
	Origin Origin `json:"origin" yaml:"origin"`

	// PURL is the canonical package URL for this observation, when the
	// origin ecosystem has one (e.g. pkg:npm/@scope/name).
	PURL string `json:"purl,omitempty" yaml:"purl,omitempty"`

	// Optional popularity signals. Nil means the origin did not report one.
	Stars     *int64 `json:"stars,omitempty" yaml:"stars,omitempty"`
	Forks     *int64 `json:"forks,omitempty" yaml:"forks,omitempty"`
	Downloads *int64 `json:"downloads,omitempty" yaml:"downloads,omitempty"`

	// License is the declared license, if any.
	License string `json:"license,omitempty" yaml:"license,omitempty"`

	// Author is the declared author or publisher, if any.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Repository is the source repository URL, if declared. Repository
	// linkage is best-effort: a malformed value downgrades to empty during
	// validation instead of rejecting the observation.
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`

	// Keywords are free-form tags from the registry listing.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Readme is the long-form document text, bounded to 500 KiB after
	// sanitization.
	Readme string `json:"readme,omitempty" yaml:"readme,omitempty"`

	// LastModified is the registry's last-modified timestamp for the
	// package. A zero value means the registry did not report one and the
	// caller supplies a default.
	LastModified utc.Time `json:"last_modified" yaml:"last_modified"`
}
