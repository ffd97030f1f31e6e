package gateway

import (
	"context"
	"errors"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
)

// Error kinds every Gateway implementation wraps its failures in. Callers
// match them with errors.Is.
var (
	ErrAuth      = errors.New("credentials rejected")
	ErrNotFound  = errors.New("not found")
	ErrRateLimit = errors.New("rate limited")
	ErrTransport = errors.New("transport failure")
	ErrSchema    = errors.New("unexpected response shape")
)

// Gateway translates the four remote operations reconciliation needs into
// calls against the project platform. Implementations never retry.
type Gateway interface {
	// FetchOrganization resolves the canonical ID of an organization login.
	FetchOrganization(ctx context.Context, login string) (domainproject.Organization, error)

	// FetchRepositoryAndProjects returns the repository and every project
	// attached to it, with all pages drained.
	FetchRepositoryAndProjects(ctx context.Context, owner, name string) (domainproject.Repository, []domainproject.Project, error)

	// CreateProject is not idempotent: two calls with one title create two
	// projects.
	CreateProject(ctx context.Context, title, organizationID, repositoryID string) (string, error)

	DeleteProject(ctx context.Context, projectID, clientMutationID string) (string, error)
}

// IsKind reports whether err carries any of the gateway error kinds.
func IsKind(err error) bool {
	for _, kind := range []error{ErrAuth, ErrNotFound, ErrRateLimit, ErrTransport, ErrSchema} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
