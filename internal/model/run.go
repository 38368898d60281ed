package model

import "time"

// RunStatus represents the current state of a recorded batch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSource records where a batch's emails came from.
type RunSource string

const (
	RunSourceCLI    RunSource = "cli"
	RunSourceAPI    RunSource = "api"
	RunSourceNotion RunSource = "notion"
)

// Run is one recorded enrichment batch.
type Run struct {
	ID        string        `json:"id"`
	Source    RunSource     `json:"source"`
	Emails    []string      `json:"emails"`
	Status    RunStatus     `json:"status"`
	Outcome   *BatchOutcome `json:"outcome,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StatusFor maps a finished batch to its terminal run status.
func StatusFor(outcome BatchOutcome) RunStatus {
	if outcome.Success {
		return RunStatusComplete
	}
	return RunStatusFailed
}
