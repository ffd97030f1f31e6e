package notifier

import (
	"context"

	"github.com/alanyang/projects-sync/internal/domain/event"
)

// RepositoryNotifier pushes a sync event to whoever is watching the event's
// repository. The websocket hub and the MCP session registry both satisfy it.
type RepositoryNotifier interface {
	Notify(ctx context.Context, e event.Event) error
}
