// Package progress defines the lifecycle events emitted by job execution.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageJobStart    Stage = "JOB_START"
	StageJobDone     Stage = "JOB_DONE"
	StageJobError    Stage = "JOB_ERROR"
	StageSourceDone  Stage = "SOURCE_DONE"
	StageSourceError Stage = "SOURCE_ERROR"
)

// Event captures a single milestone of a fetch job run.
type Event struct {
	// JobID identifies the job run.
	JobID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or per-source milestone occurred.
	Stage Stage
	// Provider scopes source events to one adapter name.
	Provider string
	// Articles carries the number of newly stored articles for the event.
	Articles int
	// Dur captures execution latency for source fetches and job completions.
	Dur time.Duration
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageJobDone, StageJobError:
	case StageSourceDone, StageSourceError:
		if e.Provider == "" {
			return errors.New("source events require a provider")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
