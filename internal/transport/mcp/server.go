package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"
)

const (
	serverName    = "projects-sync"
	serverVersion = "1.0.0"
)

// Server wraps the mcp-go MCPServer and its StreamableHTTPServer. Tools live
// in tools.go, prompts in prompts.go and session state in registry.go.
type Server struct {
	mcpSrv  *mcpserver.MCPServer
	httpSrv *mcpserver.StreamableHTTPServer
	reg     *SessionRegistry
}

func New(reg *SessionRegistry, svc *syncsvc.Service) *Server {
	s := &Server{reg: reg}

	hooks := &mcpserver.Hooks{}
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, s.onSessionClose)

	s.mcpSrv = mcpserver.NewMCPServer(
		serverName,
		serverVersion,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithHooks(hooks),
	)
	reg.SetMCPServer(s.mcpSrv)

	RegisterTools(s.mcpSrv, reg, svc)
	RegisterPrompts(s.mcpSrv, svc)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(s.mcpSrv)
	return s
}

// Handler returns the streamable HTTP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

func (s *Server) Registry() *SessionRegistry {
	return s.reg
}

// MCPServer exposes the underlying server for in-process clients.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpSrv
}

func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	if s.reg.Unregister(session.SessionID()) {
		slog.InfoContext(ctx, "mcp: watching session closed", "session_id", session.SessionID())
	}
}
