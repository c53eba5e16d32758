//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"time"
)

// Bulk command names. They double as the report partition key.
const (
	CommandAddClass    = "add-class"
	CommandWebPConvert = "webp-convert"
)

// RunMeta identifies one invocation of a bulk command.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// Command is the bulk command being run.
	Command string
	// StartedAt is the wall-clock start of the run.
	StartedAt time.Time
}

// Validate checks that the run identity is usable as report partition keys.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	switch r.Command {
	case CommandAddClass, CommandWebPConvert:
	default:
		return fmt.Errorf("unknown command %q", r.Command)
	}
	if r.StartedAt.IsZero() {
		return errors.New("started_at must be set")
	}
	return nil
}

// RunReport is the persisted end-of-run summary of a bulk command.
// Counters holds the run's counters keyed by snake_case name.
type RunReport struct {
	ReportVersion string           `json:"report_version" yaml:"report_version"`
	RunID         string           `json:"run_id" yaml:"run_id"`
	Command       string           `json:"command" yaml:"command"`
	Day           string           `json:"day" yaml:"day"`
	StartedAt     time.Time        `json:"started_at" yaml:"started_at"`
	DurationMs    int64            `json:"duration_ms" yaml:"duration_ms"`
	Counters      map[string]int64 `json:"counters" yaml:"counters"`
	Failures      []string         `json:"failures,omitempty" yaml:"failures,omitempty"`
}
