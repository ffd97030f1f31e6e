package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSyncStarted    Type = "sync_started"
	TypeSyncCompleted  Type = "sync_completed"
	TypeSyncFailed     Type = "sync_failed"
	TypeProjectCreated Type = "project_created"
	TypeProjectDeleted Type = "project_deleted"
)

// Channel is a Postgres NOTIFY channel. All sync events share one.
type Channel string

const ChannelSync Channel = "sync"

var typeToChannel = map[Type]Channel{
	TypeSyncStarted:    ChannelSync,
	TypeSyncCompleted:  ChannelSync,
	TypeSyncFailed:     ChannelSync,
	TypeProjectCreated: ChannelSync,
	TypeProjectDeleted: ChannelSync,
}

// ChannelFor returns the channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only. Subscribers wanting full state read the
// run from the run repository.
type Event struct {
	Type       Type      `json:"type"`
	RunID      uuid.UUID `json:"run_id"`
	Owner      string    `json:"owner"`
	Repository string    `json:"repository"`
	ProjectID  string    `json:"project_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func New(eventType Type, runID uuid.UUID, owner, repository string) Event {
	return Event{
		Type:       eventType,
		RunID:      runID,
		Owner:      owner,
		Repository: repository,
		Timestamp:  time.Now().UTC(),
	}
}

// ForProject returns a copy of e scoped to one project.
func (e Event) ForProject(id, title string) Event {
	e.ProjectID = id
	e.Title = title
	return e
}
