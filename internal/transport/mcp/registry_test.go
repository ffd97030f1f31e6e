package mcp_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/alanyang/projects-sync/internal/domain/event"
	mcptransport "github.com/alanyang/projects-sync/internal/transport/mcp"
)

func TestRegistry_WatchAndUnregister(t *testing.T) {
	reg := mcptransport.NewSessionRegistry()

	reg.Watch("s1", "acme", "widgets")
	reg.Watch("s2", "acme", "widgets")
	reg.Watch("s2", "acme", "gadgets")

	assert.ElementsMatch(t, []string{"s1", "s2"}, reg.Watchers("acme", "widgets"))
	assert.Equal(t, []string{"s2"}, reg.Watchers("acme", "gadgets"))

	assert.True(t, reg.Unregister("s2"))
	assert.False(t, reg.Unregister("s2"))
	assert.Equal(t, []string{"s1"}, reg.Watchers("acme", "widgets"))
	assert.Empty(t, reg.Watchers("acme", "gadgets"))
}

func TestRegistry_NotifyWithoutWatchersIsNoop(t *testing.T) {
	reg := mcptransport.NewSessionRegistry()
	err := reg.Notify(context.Background(), event.New(event.TypeSyncStarted, uuid.New(), "acme", "widgets"))
	assert.NoError(t, err)
}

func TestRegistry_NotifyBeforeServerSet(t *testing.T) {
	reg := mcptransport.NewSessionRegistry()
	reg.Watch("s1", "acme", "widgets")
	err := reg.Notify(context.Background(), event.New(event.TypeSyncStarted, uuid.New(), "acme", "widgets"))
	assert.Error(t, err)
}
