// Package store records enrichment batches and their per-lead outcomes.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Source model.RunSource `json:"source,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store persists batch runs and lead outcomes.
type Store interface {
	CreateRun(ctx context.Context, source model.RunSource, emails []string) (*model.Run, error)
	SaveLead(ctx context.Context, runID string, outcome model.LeadOutcome) error
	CompleteRun(ctx context.Context, runID string, outcome model.BatchOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ListLeads(ctx context.Context, runID string) ([]model.LeadOutcome, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func limitOf(f RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func newRun(id string, source model.RunSource, emails []string) *model.Run {
	now := time.Now().UTC()
	if emails == nil {
		emails = []string{}
	}
	return &model.Run{
		ID:        id,
		Source:    source,
		Emails:    emails,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// decodeRun fills the JSON columns of a scanned run.
func decodeRun(r *model.Run, emailsJSON, outcomeJSON []byte) error {
	if err := json.Unmarshal(emailsJSON, &r.Emails); err != nil {
		return eris.Wrap(err, "unmarshal emails")
	}
	if len(outcomeJSON) > 0 {
		r.Outcome = &model.BatchOutcome{}
		if err := json.Unmarshal(outcomeJSON, r.Outcome); err != nil {
			return eris.Wrap(err, "unmarshal outcome")
		}
	}
	return nil
}
