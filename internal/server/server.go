// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the upstream client, the
// capability registry and dispatcher, and registers tools, prompts and
// resources on a single MCP server. No business logic lives here.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/config"
	"github.com/HendryAvila/repobridge/internal/github"
	"github.com/HendryAvila/repobridge/internal/prompts"
	"github.com/HendryAvila/repobridge/internal/resources"
	"github.com/HendryAvila/repobridge/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the MCP server name reported during initialize.
const Name = "repobridge"

// Bridge bundles the assembled components. MCP is handed to a transport;
// Registry backs the transport's tool listing.
type Bridge struct {
	MCP        *server.MCPServer
	Registry   *capability.Registry
	Dispatcher *capability.Dispatcher
	Upstream   *github.Client
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
func New(cfg *config.Config) (*Bridge, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil configuration")
	}

	// --- Create shared dependencies ---

	upstream := github.NewClient(cfg.APIURL, cfg.Token,
		github.WithTimeout(cfg.UpstreamTimeout),
		github.WithMaxConcurrent(cfg.MaxConcurrentUpstream),
		github.WithUserAgent(Name+"/"+Version),
	)

	registry := capability.NewRegistry()
	if err := registry.RegisterAll(tools.All()); err != nil {
		return nil, fmt.Errorf("registering capabilities: %w", err)
	}
	registry.Seal()

	dispatcher := capability.NewDispatcher(registry, capability.Exec{
		Upstream:       upstream,
		Owner:          cfg.Owner,
		BuildURLPrefix: cfg.BuildURLPrefix,
	})

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	dispatcher.Install(s)

	// --- Register prompts ---

	overview := prompts.NewOverviewPrompt()
	s.AddPrompt(overview.Definition(), overview.Handle)

	safeEdit := prompts.NewSafeEditPrompt()
	s.AddPrompt(safeEdit.Definition(), safeEdit.Handle)

	// --- Register resources ---

	rh := resources.NewHandler(upstream, cfg.Owner, Version, registry)
	s.AddResource(rh.StatusResource(), rh.HandleStatus)

	return &Bridge{
		MCP:        s,
		Registry:   registry,
		Dispatcher: dispatcher,
		Upstream:   upstream,
	}, nil
}

// serverInstructions returns the system instructions that tell the AI
// how to use the bridge effectively.
func serverInstructions() string {
	return `You have access to repobridge, which exposes the repositories of one
GitHub owner as tools.

## Scope

Every "repo" argument is a repository name under the configured owner.
Paths are relative to the repository root. "branch" defaults to the
repository's default branch.

## Reading

- list_projects, get_project, get_project_structure for orientation
- read_file for exact file content and its sha
- analyze_dependencies, get_routes and the list_* tools for project layout
- A {"found": false, "tried": [...]} answer is not an error: the thing
  simply does not exist in this project

## Writing

- update_file creates or replaces a file in one commit
- If a write fails with ConflictOrStale, the file changed since you read
  it. Read it again and reapply your change. Never resend old content.
- rename_file is two commits. PartialSuccess means the copy exists and
  the original was not removed; tell the user both paths exist.

## Errors

Failures carry a kind: InvalidArguments (fix the call), NotFound,
UpstreamFailure, UpstreamTimeout (safe to retry reads), ConflictOrStale,
PartialSuccess, UnknownCapability.`
}
