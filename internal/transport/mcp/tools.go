package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"
)

const defaultListLimit = 10

// RegisterTools registers all MCP tools on the server.
func RegisterTools(s *mcpserver.MCPServer, reg *SessionRegistry, svc *syncsvc.Service) {
	s.AddTool(mcpmcp.NewTool("sync_repository_projects",
		mcpmcp.WithDescription("Make the set of projects attached to a repository match the given titles: missing titles are created under the owning organization and projects with other titles are deleted. Returns the recorded run with the final titles. Pass dry_run to see the plan without changing anything."),
		mcpmcp.WithString("owner", mcpmcp.Required(), mcpmcp.Description("Organization login that owns the repository")),
		mcpmcp.WithString("repository", mcpmcp.Required(), mcpmcp.Description("Repository name")),
		mcpmcp.WithString("projects", mcpmcp.Description("Whitespace-separated desired project titles. Empty deletes every project attached to the repository.")),
		mcpmcp.WithBoolean("dry_run", mcpmcp.Description("Report the plan without creating or deleting")),
	), syncRepositoryProjectsHandler(svc))

	s.AddTool(mcpmcp.NewTool("list_sync_runs",
		mcpmcp.WithDescription("List recent sync runs for a repository, newest first."),
		mcpmcp.WithString("owner", mcpmcp.Required(), mcpmcp.Description("Organization login")),
		mcpmcp.WithString("repository", mcpmcp.Required(), mcpmcp.Description("Repository name")),
		mcpmcp.WithNumber("limit", mcpmcp.Description("Maximum runs to return (default 10)")),
	), listSyncRunsHandler(svc))

	s.AddTool(mcpmcp.NewTool("get_sync_run",
		mcpmcp.WithDescription("Fetch one sync run by ID, including the projects it created and deleted."),
		mcpmcp.WithString("run_id", mcpmcp.Required(), mcpmcp.Description("Run UUID")),
	), getSyncRunHandler(svc))

	s.AddTool(mcpmcp.NewTool("watch_repository",
		mcpmcp.WithDescription("Receive a notification on this session for every sync event of a repository: sync_started, project_created, project_deleted, sync_completed and sync_failed."),
		mcpmcp.WithString("owner", mcpmcp.Required(), mcpmcp.Description("Organization login")),
		mcpmcp.WithString("repository", mcpmcp.Required(), mcpmcp.Description("Repository name")),
	), watchRepositoryHandler(reg))
}

// ── Tool handlers ─────────────────────────────────────────────────────────

func syncRepositoryProjectsHandler(svc *syncsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		owner := mcpmcp.ParseString(req, "owner", "")
		repository := mcpmcp.ParseString(req, "repository", "")
		if owner == "" || repository == "" {
			return mcpmcp.NewToolResultText("error: owner and repository are required"), nil
		}

		r, err := svc.Run(ctx, syncsvc.Request{
			Owner:      owner,
			Repository: repository,
			Titles:     domainproject.ParseTitles(mcpmcp.ParseString(req, "projects", "")),
			DryRun:     mcpmcp.ParseBoolean(req, "dry_run", false),
		})
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		data, _ := json.Marshal(r)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func listSyncRunsHandler(svc *syncsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		owner := mcpmcp.ParseString(req, "owner", "")
		repository := mcpmcp.ParseString(req, "repository", "")
		if owner == "" || repository == "" {
			return mcpmcp.NewToolResultText("error: owner and repository are required"), nil
		}
		limit := mcpmcp.ParseInt(req, "limit", defaultListLimit)
		if limit < 1 {
			limit = defaultListLimit
		}

		runs, err := svc.ListRuns(ctx, owner, repository, limit)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		data, _ := json.Marshal(runs)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func getSyncRunHandler(svc *syncsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id, err := uuid.Parse(mcpmcp.ParseString(req, "run_id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid run_id"), nil
		}

		r, err := svc.GetRun(ctx, id)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		data, _ := json.Marshal(r)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func watchRepositoryHandler(reg *SessionRegistry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		owner := mcpmcp.ParseString(req, "owner", "")
		repository := mcpmcp.ParseString(req, "repository", "")
		if owner == "" || repository == "" {
			return mcpmcp.NewToolResultText("error: owner and repository are required"), nil
		}

		session := mcpserver.ClientSessionFromContext(ctx)
		if session == nil {
			return mcpmcp.NewToolResultText("error: no active session"), nil
		}
		reg.Watch(session.SessionID(), owner, repository)
		return mcpmcp.NewToolResultText(`{"ok":true}`), nil
	}
}
