// Package resources serves read-only MCP resources under the
// repobridge:// scheme. Each read is a live upstream call.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/HendryAvila/repobridge/internal/github"
)

// StatusURI addresses the account status resource.
const StatusURI = "repobridge://account/status"

// ToolLister reports the exposed capability names.
type ToolLister interface {
	Names() []string
}

// Handler manages resource endpoints.
type Handler struct {
	upstream *github.Client
	owner    string
	version  string
	tools    ToolLister
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(upstream *github.Client, owner, version string, tools ToolLister) *Handler {
	return &Handler{upstream: upstream, owner: owner, version: version, tools: tools}
}

// StatusResource returns the MCP resource definition for account status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"Repository Bridge Status",
		mcp.WithResourceDescription("Configured owner, API endpoint, exposed tools and the token's remaining rate limit"),
		mcp.WithMIMEType("application/json"),
	)
}

// Status is the body of the status resource.
type Status struct {
	Owner     string     `json:"owner"`
	APIURL    string     `json:"apiUrl"`
	Version   string     `json:"version"`
	Login     string     `json:"login,omitempty"`
	Tools     int        `json:"tools"`
	RateLimit *RateLimit `json:"rateLimit,omitempty"`
}

// RateLimit is the core REST quota of the configured token.
type RateLimit struct {
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// HandleStatus returns the bridge status as JSON. An unreachable
// upstream yields an error resource rather than a protocol error.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status := Status{
		Owner:   h.owner,
		APIURL:  h.upstream.BaseURL(),
		Version: h.version,
		Tools:   len(h.tools.Names()),
	}

	rate, err := h.upstream.Get(ctx, "/rate_limit", nil)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	core := gjson.GetBytes(rate, "resources.core")
	status.RateLimit = &RateLimit{
		Limit:     core.Get("limit").Int(),
		Remaining: core.Get("remaining").Int(),
		Reset:     core.Get("reset").Int(),
	}

	// /user only answers for authenticated tokens.
	if user, err := h.upstream.Get(ctx, "/user", nil); err == nil {
		status.Login = gjson.GetBytes(user, "login").String()
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
