// Package classify derives category labels and AI-client compatibility
// findings from a record's text. Classification is keyword based: pure
// functions over the record's name, description, keywords and readme, with
// rules embedded at build time.
package classify

import (
	_ "embed"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/mcpmap/pkg/types"
)

//go:embed rules.yaml
var rulesYAML []byte

// ruleSet is the embedded rule file shape.
type ruleSet struct {
	Categories map[string][]string `yaml:"categories"`
	Clients    map[string][]string `yaml:"clients"`
}

var loadRules = sync.OnceValue(func() *ruleSet {
	var rs ruleSet
	// The rule file is embedded and validated by tests; a parse failure
	// leaves both maps empty and classification degrades to no labels.
	_ = yaml.Unmarshal(rulesYAML, &rs)
	return &rs
})

// Categories returns the category labels whose keywords appear in the
// record's text, sorted for determinism.
func Categories(s *types.Server) []string {
	return match(loadRules().Categories, corpus(s))
}

// Compatibility returns the AI clients the record's text documents support
// for, sorted for determinism.
func Compatibility(s *types.Server) []string {
	return match(loadRules().Clients, corpus(s))
}

// Apply attaches both label sets to the record.
func Apply(s *types.Server) {
	s.Categories = Categories(s)
	s.Compatibility = Compatibility(s)
}

// corpus builds the lowercased search text for a record.
func corpus(s *types.Server) string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte(' ')
	b.WriteString(s.Description)
	for _, kw := range s.Keywords {
		b.WriteByte(' ')
		b.WriteString(kw)
	}
	b.WriteByte(' ')
	b.WriteString(s.Readme)
	return strings.ToLower(b.String())
}

func match(rules map[string][]string, text string) []string {
	var labels []string
	for label, keywords := range rules {
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				labels = append(labels, label)
				break
			}
		}
	}
	sort.Strings(labels)
	return labels
}
