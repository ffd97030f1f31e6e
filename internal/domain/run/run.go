package run

import (
	"time"

	"github.com/google/uuid"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the audit record of one sync invocation against one repository.
type Run struct {
	ID            uuid.UUID               `json:"id"`
	Owner         string                  `json:"owner"`
	Repository    string                  `json:"repository"`
	DesiredTitles []string                `json:"desired_titles"`
	Created       []domainproject.Project `json:"created"`
	Deleted       []domainproject.Project `json:"deleted"`
	FinalTitles   []string                `json:"final_titles"`
	FetchAttempts int                     `json:"fetch_attempts"`
	DryRun        bool                    `json:"dry_run"`
	Status        Status                  `json:"status"`
	Error         string                  `json:"error,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    *time.Time              `json:"finished_at,omitempty"`
}

func New(owner, repository string, desired []string, dryRun bool) Run {
	return Run{
		ID:            uuid.New(),
		Owner:         owner,
		Repository:    repository,
		DesiredTitles: append([]string(nil), desired...),
		Created:       []domainproject.Project{},
		Deleted:       []domainproject.Project{},
		FinalTitles:   []string{},
		DryRun:        dryRun,
		Status:        StatusRunning,
		StartedAt:     time.Now().UTC(),
	}
}

// Succeed marks the run finished without error.
func (r *Run) Succeed() {
	now := time.Now().UTC()
	r.Status = StatusSucceeded
	r.FinishedAt = &now
}

// Fail marks the run finished with err. Partial creates/deletes already
// recorded on r stay as they are.
func (r *Run) Fail(err error) {
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.Error = err.Error()
	r.FinishedAt = &now
}

func (r Run) Finished() bool { return r.FinishedAt != nil }
