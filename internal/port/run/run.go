package run

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainrun "github.com/alanyang/projects-sync/internal/domain/run"
)

var ErrNotFound = errors.New("sync run not found")

// Repository persists the audit trail of sync runs.
type Repository interface {
	Create(ctx context.Context, r domainrun.Run) (domainrun.Run, error)
	Finish(ctx context.Context, r domainrun.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (domainrun.Run, error)
	ListByRepository(ctx context.Context, owner, repository string, limit int) ([]domainrun.Run, error)
}
