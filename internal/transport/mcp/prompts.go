package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"
)

// RegisterPrompts registers the review_project_plan prompt, which renders a
// dry-run so the user can confirm it before calling sync_repository_projects.
func RegisterPrompts(s *mcpserver.MCPServer, svc *syncsvc.Service) {
	s.AddPrompt(
		mcpmcp.NewPrompt("review_project_plan",
			mcpmcp.WithPromptDescription("Show which projects a sync would create and delete for a repository, for confirmation before applying it."),
			mcpmcp.WithArgument("owner", mcpmcp.ArgumentDescription("Organization login"), mcpmcp.RequiredArgument()),
			mcpmcp.WithArgument("repository", mcpmcp.ArgumentDescription("Repository name"), mcpmcp.RequiredArgument()),
			mcpmcp.WithArgument("projects", mcpmcp.ArgumentDescription("Whitespace-separated desired project titles")),
		),
		reviewPlanHandler(svc),
	)
}

func reviewPlanHandler(svc *syncsvc.Service) mcpserver.PromptHandlerFunc {
	return func(ctx context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		owner := req.Params.Arguments["owner"]
		repository := req.Params.Arguments["repository"]
		if owner == "" || repository == "" {
			return nil, fmt.Errorf("owner and repository are required")
		}

		r, err := svc.Run(ctx, syncsvc.Request{
			Owner:      owner,
			Repository: repository,
			Titles:     domainproject.ParseTitles(req.Params.Arguments["projects"]),
			DryRun:     true,
		})
		if err != nil {
			return nil, fmt.Errorf("plan %s/%s: %w", owner, repository, err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Planned project changes for %s/%s.\n", owner, repository)
		fmt.Fprintf(&b, "Currently attached: %s\n", listOrNone(r.FinalTitles))
		fmt.Fprintf(&b, "Will create: %s\n", listOrNone(domainproject.Titles(r.Created)))
		fmt.Fprintf(&b, "Will delete: %s\n", listOrNone(domainproject.Titles(r.Deleted)))
		b.WriteString("Ask the user to confirm before calling sync_repository_projects with the same arguments.")

		return mcpmcp.NewGetPromptResult(
			fmt.Sprintf("Project plan for %s/%s", owner, repository),
			[]mcpmcp.PromptMessage{
				mcpmcp.NewPromptMessage(
					mcpmcp.RoleUser,
					mcpmcp.TextContent{
						Type: "text",
						Text: b.String(),
					},
				),
			},
		), nil
	}
}

func listOrNone(titles []string) string {
	if len(titles) == 0 {
		return "(none)"
	}
	return strings.Join(titles, ", ")
}
