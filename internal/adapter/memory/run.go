package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	domainrun "github.com/alanyang/projects-sync/internal/domain/run"
	portrun "github.com/alanyang/projects-sync/internal/port/run"
)

var _ portrun.Repository = (*RunRepository)(nil)

// RunRepository keeps sync runs in process memory. It backs the CLI and any
// server started without DATABASE_URL; history is lost on exit.
type RunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]domainrun.Run
}

func NewRunRepository() *RunRepository {
	return &RunRepository{
		runs: make(map[uuid.UUID]domainrun.Run),
	}
}

func (r *RunRepository) Create(_ context.Context, run domainrun.Run) (domainrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return domainrun.Run{}, fmt.Errorf("sync run %s already exists", run.ID)
	}
	r.runs[run.ID] = cloneRun(run)
	return cloneRun(run), nil
}

func (r *RunRepository) Finish(_ context.Context, run domainrun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("finishing sync run %s: %w", run.ID, portrun.ErrNotFound)
	}
	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *RunRepository) GetByID(_ context.Context, id uuid.UUID) (domainrun.Run, error) {
	r.mu.RLock()
	run, ok := r.runs[id]
	r.mu.RUnlock()

	if !ok {
		return domainrun.Run{}, fmt.Errorf("sync run %s: %w", id, portrun.ErrNotFound)
	}
	return cloneRun(run), nil
}

// ListByRepository returns the newest runs first. limit <= 0 means no limit.
func (r *RunRepository) ListByRepository(_ context.Context, owner, repository string, limit int) ([]domainrun.Run, error) {
	r.mu.RLock()
	out := []domainrun.Run{}
	for _, run := range r.runs {
		if run.Owner == owner && run.Repository == repository {
			out = append(out, cloneRun(run))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRun(run domainrun.Run) domainrun.Run {
	run.DesiredTitles = append(run.DesiredTitles[:0:0], run.DesiredTitles...)
	run.Created = append(run.Created[:0:0], run.Created...)
	run.Deleted = append(run.Deleted[:0:0], run.Deleted...)
	run.FinalTitles = append(run.FinalTitles[:0:0], run.FinalTitles...)
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		run.FinishedAt = &t
	}
	return run
}
