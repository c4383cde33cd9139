// Package normalize derives the deterministic canonical keys used to test
// equivalence between observations from registries with no shared identifier.
//
// Both derivations are pure, total functions of their input: no external
// state, no randomness, and equal inputs always yield equal outputs. Empty or
// unusable input yields an empty key ("absent") rather than an error, so
// callers always have a defined degraded path.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// whitespace and underscore runs collapse to a hyphen before any other
	// character class is considered.
	separatorRun = regexp.MustCompile(`[\s_]+`)

	// any remaining run of characters that are neither alphanumeric nor
	// hyphen collapses to a single hyphen.
	invalidRun = regexp.MustCompile(`[^a-z0-9-]+`)

	hyphenRun = regexp.MustCompile(`-{2,}`)
)

// NameKey derives the normalized-name key for a package name.
//
// The derivation: case-fold, collapse whitespace/underscore runs to hyphens,
// collapse runs of non-alphanumeric non-hyphen characters to a single hyphen,
// collapse repeated hyphens, trim leading and trailing hyphens. The result is
// idempotent: NameKey(NameKey(x)) == NameKey(x).
func NameKey(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	s = cases.Fold().String(s)
	s = separatorRun.ReplaceAllString(s, "-")
	s = invalidRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// RepositoryKey derives the normalized-repository key for a repository URL.
//
// The derivation: lowercase, strip a trailing ".git", and for GitHub-shaped
// URLs additionally remove the scheme or "git@host:" SSH prefix and any
// trailing slash, so that https://github.com/x/y, git@github.com:x/y.git and
// HTTPS://GitHub.com/x/y/ all yield "github.com/x/y".
//
// Malformed input never signals an error; anything that does not look like a
// repository path degrades to an absent (empty) key and the caller falls back
// to name-only matching.
func RepositoryKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	if strings.Contains(s, "github.com") {
		// npm reports repository links with git+ prefixed schemes.
		for _, prefix := range []string{"git+https://", "git+ssh://", "https://", "http://", "ssh://", "git://"} {
			s = strings.TrimPrefix(s, prefix)
		}
		if rest, ok := strings.CutPrefix(s, "git@"); ok {
			s = strings.Replace(rest, ":", "/", 1)
		}
		s = strings.TrimSuffix(s, "/")
		s = strings.TrimSuffix(s, ".git")
		s = strings.TrimSuffix(s, "/")
	} else {
		s = strings.TrimSuffix(s, ".git")
	}

	// A usable repository key has at least a host and a path segment.
	if !strings.Contains(s, "/") || !strings.Contains(s, ".") {
		return ""
	}
	return s
}
