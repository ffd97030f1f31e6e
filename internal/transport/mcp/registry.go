package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/alanyang/projects-sync/internal/domain/event"
	portnotifier "github.com/alanyang/projects-sync/internal/port/notifier"
)

var _ portnotifier.RepositoryNotifier = (*SessionRegistry)(nil)

// repoKey identifies a watched repository.
type repoKey struct {
	owner      string
	repository string
}

// SessionRegistry tracks which MCP sessions watch which repositories and
// forwards matching sync events to them as notifications.
type SessionRegistry struct {
	mu        sync.RWMutex
	bySession map[string]map[repoKey]struct{}

	// mcpSrv is set after the MCP server is constructed.
	mcpMu  sync.RWMutex
	mcpSrv *mcpserver.MCPServer
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		bySession: make(map[string]map[repoKey]struct{}),
	}
}

func (r *SessionRegistry) SetMCPServer(s *mcpserver.MCPServer) {
	r.mcpMu.Lock()
	r.mcpSrv = s
	r.mcpMu.Unlock()
}

// Watch subscribes a session to the events of one repository.
func (r *SessionRegistry) Watch(sessionID, owner, repository string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	watched, ok := r.bySession[sessionID]
	if !ok {
		watched = make(map[repoKey]struct{})
		r.bySession[sessionID] = watched
	}
	watched[repoKey{owner, repository}] = struct{}{}
}

// Unregister forgets a closed session. Reports whether it watched anything.
func (r *SessionRegistry) Unregister(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.bySession[sessionID]
	delete(r.bySession, sessionID)
	return ok
}

// Watchers returns the sessions watching a repository.
func (r *SessionRegistry) Watchers(owner, repository string) []string {
	key := repoKey{owner, repository}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []string{}
	for sessionID, watched := range r.bySession {
		if _, ok := watched[key]; ok {
			out = append(out, sessionID)
		}
	}
	return out
}

// Notify sends e to every session watching its repository. It returns the
// last delivery error, if any.
func (r *SessionRegistry) Notify(_ context.Context, e event.Event) error {
	targets := r.Watchers(e.Owner, e.Repository)
	if len(targets) == 0 {
		return nil
	}

	r.mcpMu.RLock()
	srv := r.mcpSrv
	r.mcpMu.RUnlock()
	if srv == nil {
		return fmt.Errorf("mcp server not initialized")
	}

	params, err := toParams(e)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}

	var lastErr error
	for _, sessionID := range targets {
		if err := srv.SendNotificationToSpecificClient(sessionID, "notifications/message", params); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func toParams(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"data": v}, nil
	}
	return params, nil
}
