package tools

import (
	"context"
	"path"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
)

// folderConvention describes a conventional source folder.
type folderConvention struct {
	name        string
	description string
	paths       []string
	// skip names entries excluded from the listing.
	skip []string
}

var folderConventions = []folderConvention{
	{name: "list_components", description: "List the React components folder (src/components).", paths: []string{"src/components"}},
	{name: "list_custom_components", description: "List project components, excluding the generated ui/ primitives.", paths: []string{"src/components"}, skip: []string{"ui"}},
	{name: "list_pages", description: "List page components (src/pages).", paths: []string{"src/pages"}},
	{name: "list_hooks", description: "List custom hooks (src/hooks).", paths: []string{"src/hooks"}},
	{name: "list_contexts", description: "List React context providers (src/contexts or src/context).", paths: []string{"src/contexts", "src/context"}},
	{name: "list_utils", description: "List utility modules (src/utils or src/lib).", paths: []string{"src/utils", "src/lib"}},
	{name: "list_types", description: "List shared type definitions (src/types).", paths: []string{"src/types"}},
	{name: "list_integrations", description: "List third-party integrations (src/integrations).", paths: []string{"src/integrations"}},
}

func conventionCapabilities() []capability.Capability {
	caps := make([]capability.Capability, 0, len(folderConventions))
	for _, fc := range folderConventions {
		caps = append(caps, capability.Capability{
			Tool: mcp.NewTool(fc.name,
				mcp.WithDescription(fc.description+" Returns {\"found\": false} when the folder does not exist."),
				repoParam(),
				branchParam(),
			),
			Handler: fc.handle,
		})
	}
	return caps
}

// FolderListing is a found conventional folder.
type FolderListing struct {
	Found   bool           `json:"found"`
	Path    string         `json:"path"`
	Count   int            `json:"count"`
	Entries []github.Entry `json:"entries"`
}

func (fc folderConvention) handle(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	for _, p := range fc.paths {
		c, err := ex.Upstream.GetContent(ctx, ex.Owner, args.String("repo"), p, args.String("branch"))
		if github.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !c.IsDir {
			continue
		}

		entries := []github.Entry{}
		for _, e := range c.Entries {
			if !fc.skipped(e.Name) {
				entries = append(entries, e)
			}
		}
		return FolderListing{Found: true, Path: p, Count: len(entries), Entries: entries}, nil
	}
	return notFound(fc.paths...), nil
}

func (fc folderConvention) skipped(name string) bool {
	for _, s := range fc.skip {
		if s == name {
			return true
		}
	}
	return false
}

// wellKnownFile describes a configuration file probed by name.
type wellKnownFile struct {
	name        string
	description string
	candidates  []string
}

var wellKnownFiles = []wellKnownFile{
	{name: "get_supabase_config", description: "Read the Supabase project configuration.", candidates: []string{"supabase/config.toml"}},
	{name: "get_tailwind_config", description: "Read the Tailwind CSS configuration.", candidates: []string{"tailwind.config.ts", "tailwind.config.js", "tailwind.config.cjs"}},
	{name: "get_vite_config", description: "Read the Vite configuration.", candidates: []string{"vite.config.ts", "vite.config.js", "vite.config.mjs"}},
	{name: "get_package_json", description: "Read package.json.", candidates: []string{"package.json"}},
	{name: "get_env_example", description: "Read the example environment file.", candidates: []string{".env.example", ".env.sample"}},
	{name: "get_readme", description: "Read the README.", candidates: []string{"README.md", "readme.md"}},
}

func wellKnownFileCapabilities() []capability.Capability {
	caps := make([]capability.Capability, 0, len(wellKnownFiles))
	for _, wf := range wellKnownFiles {
		caps = append(caps, capability.Capability{
			Tool: mcp.NewTool(wf.name,
				mcp.WithDescription(wf.description+" Returns {\"found\": false} when the file does not exist."),
				repoParam(),
				branchParam(),
			),
			Handler: wf.handle,
		})
	}
	return caps
}

// FoundFile is a found well-known file.
type FoundFile struct {
	Found   bool   `json:"found"`
	Path    string `json:"path"`
	Name    string `json:"name"`
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

// firstFile returns the first candidate that exists, or nil when none do.
func firstFile(ctx context.Context, ex capability.Exec, repo, branch string, candidates []string) (*FoundFile, error) {
	for _, p := range candidates {
		c, err := ex.Upstream.GetContent(ctx, ex.Owner, repo, p, branch)
		if github.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.IsDir {
			continue
		}
		return &FoundFile{Found: true, Path: p, Name: path.Base(p), SHA: c.SHA, Content: string(c.Data)}, nil
	}
	return nil, nil
}

func (wf wellKnownFile) handle(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	f, err := firstFile(ctx, ex, args.String("repo"), args.String("branch"), wf.candidates)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return notFound(wf.candidates...), nil
	}
	return f, nil
}
