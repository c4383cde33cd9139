// Package validate rejects structurally invalid observations and strips
// unsafe text before records enter the dedup pipeline.
//
// Validation is advisory, never fatal: a rejected observation is dropped and
// recorded as a Failure, a malformed repository URL downgrades the field to
// absent, and processing always continues.
package validate

import (
	"net/url"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/mcpmap/pkg/errors"
	"github.com/agentstation/mcpmap/pkg/types"
)

// Failure is one validation-failure log entry, consumed by the run's
// observability output.
type Failure struct {
	Timestamp utc.Time `json:"timestamp" yaml:"timestamp"`
	Field     string   `json:"field" yaml:"field"`
	Value     string   `json:"value" yaml:"value"`
	Reason    string   `json:"reason" yaml:"reason"`
}

// Validator checks observations and accumulates failure entries.
// It is not safe for concurrent use; the pipeline owns one per run.
type Validator struct {
	failures []Failure
	now      func() utc.Time
}

// New creates a Validator.
func New() *Validator {
	return &Validator{now: utc.Now}
}

// Failures returns the accumulated validation-failure entries in order.
func (v *Validator) Failures() []Failure {
	return v.failures
}

// Validate checks an observation against the required-field and URL rules.
//
// It rejects when name, description, version or source URL is missing or
// empty after trimming, or when the source URL does not parse as a
// well-formed URL. A present but malformed repository URL does not reject
// the observation: the field is cleared and a downgrade entry is recorded,
// because repository linkage is best-effort.
//
// Every rejection or downgrade is appended to the failure log. The
// observation is mutated in place (trimming and repository clearing).
func (v *Validator) Validate(o *types.Observation) error {
	o.Name = strings.TrimSpace(o.Name)
	o.Description = strings.TrimSpace(o.Description)
	o.Version = strings.TrimSpace(o.Version)
	o.SourceURL = strings.TrimSpace(o.SourceURL)
	o.Repository = strings.TrimSpace(o.Repository)

	required := []struct {
		field string
		value string
	}{
		{"name", o.Name},
		{"description", o.Description},
		{"version", o.Version},
		{"sourceUrl", o.SourceURL},
	}
	for _, r := range required {
		if r.value == "" {
			return v.reject(o, r.field, r.value, "required field is missing or empty")
		}
	}

	if !wellFormedURL(o.SourceURL) {
		return v.reject(o, "sourceUrl", o.SourceURL, "not a well-formed URL")
	}

	if o.Repository != "" && !wellFormedRepository(o.Repository) {
		// Downgrade, not reject: the record survives without linkage.
		v.failures = append(v.failures, Failure{
			Timestamp: v.now(),
			Field:     "repository",
			Value:     o.Repository,
			Reason:    "malformed repository URL cleared",
		})
		o.Repository = ""
	}

	return nil
}

func (v *Validator) reject(o *types.Observation, field, value, reason string) error {
	v.failures = append(v.failures, Failure{
		Timestamp: v.now(),
		Field:     field,
		Value:     value,
		Reason:    reason,
	})
	return errors.NewValidationError(field, value, reason+" (record "+o.Name+")")
}

// wellFormedURL reports whether s parses as an absolute URL with a host.
func wellFormedURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// wellFormedRepository accepts absolute URLs plus the git@host:path SSH form
// commonly used for GitHub repositories.
func wellFormedRepository(s string) bool {
	if strings.HasPrefix(s, "git@") && strings.Contains(s, ":") {
		return true
	}
	return wellFormedURL(s)
}
