package dedupe

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/mcpmap/pkg/errors"
	"github.com/agentstation/mcpmap/pkg/types"
)

// Mode selects how a store initializes at run start.
type Mode string

const (
	// ModeFull starts from an empty store.
	ModeFull Mode = "full"

	// ModeIncremental first deserializes the previous run's persisted state
	// and merges new observations into it.
	ModeIncremental Mode = "incremental"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull:
		return ModeFull, nil
	case ModeIncremental:
		return ModeIncremental, nil
	default:
		return "", errors.NewValidationError("mode", s, `must be "full" or "incremental"`)
	}
}

// state is the serialization contract for persisted cross-run dedup state.
// Maps serialize as ordered pair lists so the blob is deterministic for a
// given store and survives round-trips without reordering.
type state struct {
	RunID            string        `yaml:"run_id" json:"runId"`
	ServerMap        []serverEntry `yaml:"server_map" json:"serverMap"`
	NormalizedNames  []keyEntry    `yaml:"normalized_names" json:"normalizedNames"`
	RepositoryURLs   []keyEntry    `yaml:"repository_urls" json:"repositoryUrls"`
	LastRunTimestamp utc.Time      `yaml:"last_run_timestamp" json:"lastRunTimestamp"`
	UpdateMode       Mode          `yaml:"update_mode" json:"updateMode"`
}

type serverEntry struct {
	Key    string        `yaml:"key" json:"key"`
	Server *types.Server `yaml:"server" json:"server"`
}

type keyEntry struct {
	Key          string `yaml:"key" json:"key"`
	CompositeKey string `yaml:"composite_key" json:"compositeKey"`
}
