// Package score computes the single popularity scalar attached to each
// canonical record before deduplication.
package score

import (
	"math"

	"github.com/agentstation/utc"

	"github.com/agentstation/mcpmap/pkg/types"
)

// Weights of the popularity formula.
const (
	starsWeight     = 0.4
	downloadsWeight = 0.3
	recencyWeight   = 0.3
)

// Popularity computes the popularity scalar for a server at the given
// instant:
//
//	stars*0.4 + log10(downloads+1)*0.3 + recency*0.3
//
// where recency = max(0, 1 - daysSinceLastModified/365) and
// daysSinceLastModified is the floor of (now - lastModified) in whole days,
// clamped to zero for future timestamps. Missing stars and downloads count as
// zero. The result is rounded to 2 decimal digits.
func Popularity(s *types.Server, now utc.Time) float64 {
	stars := float64(s.Stars)
	downloads := float64(s.TotalDownloads())

	v := stars*starsWeight +
		math.Log10(downloads+1)*downloadsWeight +
		recency(s.LastModified, now)*recencyWeight

	return math.Round(v*100) / 100
}

// Attach computes the popularity scalar and stores it on the record. The raw
// per-origin download counts are left untouched; the derived scalar lives in
// its own field.
func Attach(s *types.Server, now utc.Time) {
	s.Popularity = Popularity(s, now)
}

func recency(lastModified, now utc.Time) float64 {
	if lastModified.IsZero() {
		return 0
	}
	days := math.Floor(now.Time.Sub(lastModified.Time).Hours() / 24)
	if days < 0 {
		days = 0
	}
	r := 1 - days/365
	if r < 0 {
		return 0
	}
	return r
}
