// Package prompts holds the bridge's MCP prompts: canned multi-step
// instructions a user picks from the client, each naming the tools to
// chain for one repository task.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// OverviewPrompt handles the project-overview MCP prompt.
// It guides the AI through a read-only tour of one repository.
type OverviewPrompt struct{}

// NewOverviewPrompt creates an OverviewPrompt.
func NewOverviewPrompt() *OverviewPrompt {
	return &OverviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OverviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("project-overview",
		mcp.WithPromptDescription(
			"Summarize a project: metadata, stack, routes and recent activity. "+
				"Read-only; nothing is written to the repository.",
		),
		mcp.WithArgument("repo",
			mcp.ArgumentDescription("Repository name under the configured owner"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the project-overview prompt request.
func (p *OverviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	repo := strings.TrimSpace(req.Params.Arguments["repo"])
	if repo == "" {
		return nil, fmt.Errorf("argument 'repo' is required")
	}

	return &mcp.GetPromptResult{
		Description: "Project overview for " + repo,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Give me an overview of the `%s` project.\n\n"+
						"1. Call `get_project` and `get_repo_stats` for the basics\n"+
						"2. Call `analyze_dependencies` and describe the stack by category\n"+
						"3. Call `get_routes` and list the pages a user can reach\n"+
						"4. Call `list_components` and `list_integrations` for the building blocks\n"+
						"5. Call `get_commits` and summarize what changed recently\n\n"+
						"If a tool answers {\"found\": false}, say so briefly and move on.",
					repo,
				)),
			},
		},
	}, nil
}
