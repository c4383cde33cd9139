// Package install generates per-origin installation guidance for canonical
// records. Guidance is pure formatting over the record's identifying fields;
// no discovered code is ever executed.
package install

import (
	"fmt"

	"github.com/agentstation/mcpmap/pkg/types"
)

// Command returns the installation command for a record on the given origin,
// or empty when no guidance applies.
func Command(s *types.Server, origin types.Origin) string {
	switch origin {
	case types.OriginNPM:
		return fmt.Sprintf("npx -y %s", s.Name)
	case types.OriginPyPI:
		return fmt.Sprintf("uvx %s", s.Name)
	case types.OriginGitHub:
		if s.Repository == "" {
			return ""
		}
		return fmt.Sprintf("git clone %s", s.Repository)
	default:
		return ""
	}
}

// Apply generates guidance for every origin the record was observed from.
func Apply(s *types.Server) {
	for origin := range s.Origins {
		command := Command(s, origin)
		if command == "" {
			continue
		}
		if s.Install == nil {
			s.Install = make(map[types.Origin]string)
		}
		s.Install[origin] = command
	}
}
