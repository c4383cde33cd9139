package types

import "slices"

// Origin identifies the upstream registry an observation came from.
type Origin string

// String returns the string representation of an origin tag.
func (o Origin) String() string {
	return string(o)
}

// Known origin tags. Collectors must use one of these; the dedup store keys
// first-insertion provenance by origin tag.
const (
	// OriginGitHub identifies the GitHub repository search source.
	// It is the authoritative origin for star and fork counts.
	OriginGitHub Origin = "github"

	// OriginNPM identifies the npm registry source.
	OriginNPM Origin = "npm"

	// OriginPyPI identifies the PyPI registry source.
	OriginPyPI Origin = "pypi"
)

// Origins returns all known origin tags in alphabetical order.
// This ordering is the documented concatenation order for collector output,
// which fixes first-seen-wins tie-breaks across runs.
func Origins() []Origin {
	return []Origin{
		OriginGitHub,
		OriginNPM,
		OriginPyPI,
	}
}

// IsValid returns true if the origin is one of the known tags.
func (o Origin) IsValid() bool {
	return slices.Contains(Origins(), o)
}
