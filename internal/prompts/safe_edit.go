package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// SafeEditPrompt handles the safe-edit MCP prompt.
// It walks the AI through read, change, write and conflict recovery.
type SafeEditPrompt struct{}

// NewSafeEditPrompt creates a SafeEditPrompt.
func NewSafeEditPrompt() *SafeEditPrompt {
	return &SafeEditPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SafeEditPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("safe-edit",
		mcp.WithPromptDescription(
			"Edit one file without clobbering concurrent changes.",
		),
		mcp.WithArgument("repo",
			mcp.ArgumentDescription("Repository name under the configured owner"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("File to edit"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("change",
			mcp.ArgumentDescription("What to change"),
		),
	)
}

// Handle processes the safe-edit prompt request.
func (p *SafeEditPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	repo := strings.TrimSpace(req.Params.Arguments["repo"])
	path := strings.TrimSpace(req.Params.Arguments["path"])
	if repo == "" || path == "" {
		return nil, fmt.Errorf("arguments 'repo' and 'path' are required")
	}
	change := strings.TrimSpace(req.Params.Arguments["change"])
	if change == "" {
		change = "the change I describe next"
	}

	return &mcp.GetPromptResult{
		Description: "Safe edit of " + path,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Edit `%s` in `%s`: %s\n\n"+
						"1. Call `read_file` and work from its exact content\n"+
						"2. Call `update_file` with the full new content and a clear commit message\n"+
						"3. If the result is ConflictOrStale, someone changed the file meanwhile: "+
						"read it again, reapply the change on top, and write once more\n"+
						"4. Never retry a failed write with the old content",
					path, repo, change,
				)),
			},
		},
	}, nil
}
