package model

import (
	"fmt"
	"time"
)

// RunStatus is the final state of a run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// SkippedCandidate records a candidate dropped by the skip policy.
type SkippedCandidate struct {
	Query  CandidateQuery
	Stage  string
	Reason string
}

// RunSummary counts what happened to the candidates of a run.
type RunSummary struct {
	RunID     string
	Object    string
	Status    RunStatus
	StartTime time.Time
	EndTime   time.Time

	Read      int
	Explained int // candidates whose plans were captured
	Filtered  int
	Written   int
	Exported  int
	Skipped   []SkippedCandidate
}

// Duration returns the wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("run %s %s: read=%d explained=%d filtered=%d skipped=%d written=%d exported=%d (%s)",
		s.RunID, s.Status, s.Read, s.Explained, s.Filtered, len(s.Skipped), s.Written, s.Exported, s.Duration().Round(time.Millisecond))
}
