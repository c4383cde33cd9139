// Package merge consolidates a newly observed canonical record into an
// existing one under a fixed field-level precedence policy.
//
// Each rule is independent: when its condition is false the field is simply
// left untouched. The merge as a whole is not commutative across repeated
// applications with partial data; the later-arriving-wins (version,
// last-modified) and longer-wins (readme) rules are order-sensitive, which is
// why collector concatenation order must be stable per run.
package merge

import (
	"unicode/utf8"

	"github.com/agentstation/mcpmap/pkg/types"
)

// Into merges incoming into existing, mutating existing in place. The
// incoming record is discarded after the merge; callers count the call as one
// duplicate removed. Into never fails.
//
// Field precedence:
//
//   - stars, forks: overwritten only when incoming came from the GitHub
//     origin and carries a value
//   - per-origin download counts, URLs and package URL identifiers: keyed
//     insert/overwrite by the incoming origins only
//   - readme: replaced when incoming's text is strictly longer in characters
//   - version: replaced when incoming sorts lexicographically greater
//     (plain string comparison, deliberately not semver)
//   - last-modified: replaced when incoming is strictly later
//   - name, description, license, author, keywords: first-seen wins, never
//     overwritten
func Into(existing, incoming *types.Server) {
	if incoming.Origin == types.OriginGitHub {
		if incoming.Stars != 0 {
			existing.Stars = incoming.Stars
		}
		if incoming.Forks != 0 {
			existing.Forks = incoming.Forks
		}
	}

	for origin, count := range incoming.Downloads {
		if existing.Downloads == nil {
			existing.Downloads = make(map[types.Origin]int64)
		}
		existing.Downloads[origin] = count
	}

	for origin, url := range incoming.Origins {
		if existing.Origins == nil {
			existing.Origins = make(map[types.Origin]string)
		}
		existing.Origins[origin] = url
	}

	for origin, id := range incoming.PURLs {
		if existing.PURLs == nil {
			existing.PURLs = make(map[types.Origin]string)
		}
		existing.PURLs[origin] = id
	}

	for origin, command := range incoming.Install {
		if existing.Install == nil {
			existing.Install = make(map[types.Origin]string)
		}
		existing.Install[origin] = command
	}

	if incoming.Readme != "" &&
		utf8.RuneCountInString(incoming.Readme) > utf8.RuneCountInString(existing.Readme) {
		existing.Readme = incoming.Readme
	}

	if incoming.Version > existing.Version {
		existing.Version = incoming.Version
	}

	if existing.Repository == "" && incoming.Repository != "" {
		existing.Repository = incoming.Repository
	}

	if incoming.LastModified.Time.After(existing.LastModified.Time) {
		existing.LastModified = incoming.LastModified
		// Active derives from last-modified, so it follows the newer stamp.
		existing.Active = incoming.Active
	}
}
