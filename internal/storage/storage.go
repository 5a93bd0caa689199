// Package storage defines the run-history persistence interface.
package storage

import (
	"context"
	"time"

	"meshdoctor/internal/types"
)

// RunStatus marks whether a recorded run completed.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RunRecord is one pipeline run as persisted in history.
type RunRecord struct {
	RunID       string
	Source      string
	Score       float64
	Problems    int
	Fixes       int
	Iterations  int
	Termination types.TerminationReason
	Status      string
	// Error holds the failure message for StatusError rows.
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// FromReport builds a successful-run record.
func FromReport(rep *types.DebugReport) RunRecord {
	return RunRecord{
		RunID:       rep.RunID,
		Source:      rep.Source,
		Score:       rep.Score,
		Problems:    len(rep.Problems),
		Fixes:       rep.FixesApplied,
		Iterations:  rep.IterationsRun,
		Termination: rep.Termination,
		Status:      StatusOK,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
	}
}

// Store persists run history. Implementations must be safe for
// concurrent use; batch mode records from multiple workers.
type Store interface {
	// RecordRun appends one run to history.
	RecordRun(ctx context.Context, rec RunRecord) error

	// ListRuns returns the most recent runs, newest first. A non-empty
	// source filters to runs of that input file. Limit <= 0 means a
	// default page.
	ListRuns(ctx context.Context, source string, limit int) ([]RunRecord, error)

	// Close releases the backend.
	Close() error
}
