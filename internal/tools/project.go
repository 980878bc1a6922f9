package tools

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
	"github.com/HendryAvila/repobridge/internal/logging"
)

// projectScanLimit bounds concurrent root listings in list_projects.
const projectScanLimit = 4

func projectCapabilities() []capability.Capability {
	return []capability.Capability{
		{
			Tool: mcp.NewTool("list_projects",
				mcp.WithDescription(
					"List the owner's repositories that look like web app projects "+
						"(package.json plus a vite and a tailwind config at the root).",
				),
				mcp.WithBoolean("includePrivate",
					mcp.Description("Include private repositories (requires a token with repo scope)"),
					mcp.DefaultBool(false),
				),
			),
			Handler: listProjects,
		},
		{
			Tool: mcp.NewTool("get_project",
				mcp.WithDescription("Get one summary of a repository: metadata, the latest commits and package.json ({\"found\": false} when absent)."),
				repoParam(),
			),
			Handler: getProject,
		},
		{
			Tool: mcp.NewTool("get_project_structure",
				mcp.WithDescription("List the files and folders at a path in the repository (default: root)."),
				repoParam(),
				mcp.WithString("path",
					mcp.Description("Folder path relative to the repository root"),
					mcp.DefaultString(""),
				),
				branchParam(),
			),
			Handler: getProjectStructure,
		},
		{
			Tool: mcp.NewTool("get_repo_stats",
				mcp.WithDescription("Summarize a repository: counts, language breakdown, contributors and recent commits."),
				repoParam(),
			),
			Handler: getRepoStats,
		},
	}
}

// ProjectSummary is the compact description of a repository.
type ProjectSummary struct {
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Description   string `json:"description,omitempty"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"defaultBranch"`
	Language      string `json:"language,omitempty"`
	UpdatedAt     string `json:"updatedAt"`
	URL           string `json:"url"`
}

func summarize(r gjson.Result) ProjectSummary {
	return ProjectSummary{
		Name:          r.Get("name").String(),
		FullName:      r.Get("full_name").String(),
		Description:   r.Get("description").String(),
		Private:       r.Get("private").Bool(),
		DefaultBranch: r.Get("default_branch").String(),
		Language:      r.Get("language").String(),
		UpdatedAt:     r.Get("updated_at").String(),
		URL:           r.Get("html_url").String(),
	}
}

// isProjectRoot reports whether a root listing carries all three markers.
func isProjectRoot(entries []github.Entry) bool {
	var pkg, vite, tailwind bool
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		switch {
		case e.Name == "package.json":
			pkg = true
		case strings.HasPrefix(e.Name, "vite.config."):
			vite = true
		case strings.HasPrefix(e.Name, "tailwind.config."):
			tailwind = true
		}
	}
	return pkg && vite && tailwind
}

func listProjects(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	var repos gjson.Result
	var err error
	if args.Bool("includePrivate") {
		repos, err = getJSON(ctx, ex, "/user/repos",
			pageQuery(100, "visibility", "all", "affiliation", "owner", "sort", "updated"))
	} else {
		repos, err = getJSON(ctx, ex, "/users/"+url.PathEscape(ex.Owner)+"/repos",
			pageQuery(100, "type", "owner", "sort", "updated"))
	}
	if err != nil {
		return nil, err
	}

	candidates := repos.Array()
	keep := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectScanLimit)
	for i, r := range candidates {
		name := r.Get("name").String()
		g.Go(func() error {
			root, err := ex.Upstream.GetContent(gctx, ex.Owner, name, "", "")
			if github.IsNotFound(err) {
				// Empty repositories have no contents.
				return nil
			}
			if err != nil {
				return err
			}
			keep[i] = isProjectRoot(root.Entries)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	projects := []ProjectSummary{}
	for i, r := range candidates {
		if keep[i] {
			projects = append(projects, summarize(r))
		}
	}
	logging.Debug().
		Int("scanned", len(candidates)).
		Int("projects", len(projects)).
		Msg("list_projects")
	return map[string]any{
		"count":    len(projects),
		"projects": projects,
	}, nil
}

func getProject(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	repo := args.String("repo")
	var (
		r        gjson.Result
		commits  gjson.Result
		manifest *FoundFile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r, err = getJSON(gctx, ex, ex.Repo(repo), nil)
		return err
	})
	g.Go(func() error {
		var err error
		commits, err = getJSON(gctx, ex, ex.Repo(repo, "commits"), pageQuery(5))
		// An empty repository answers 409.
		if github.StatusCode(err) == http.StatusConflict {
			commits, err = gjson.Parse("[]"), nil
		}
		return err
	})
	g.Go(func() (err error) {
		manifest, err = firstFile(gctx, ex, repo, "", []string{"package.json"})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	topics := []string{}
	for _, t := range r.Get("topics").Array() {
		topics = append(topics, t.String())
	}
	var pkg any = notFound("package.json")
	if manifest != nil {
		pkg = manifest
	}
	return map[string]any{
		"summary":       summarize(r),
		"stars":         r.Get("stargazers_count").Int(),
		"forks":         r.Get("forks_count").Int(),
		"openIssues":    r.Get("open_issues_count").Int(),
		"sizeKB":        r.Get("size").Int(),
		"topics":        topics,
		"homepage":      r.Get("homepage").String(),
		"createdAt":     r.Get("created_at").String(),
		"pushedAt":      r.Get("pushed_at").String(),
		"recentCommits": commitSummaries(commits),
		"packageJson":   pkg,
	}, nil
}

func getProjectStructure(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	path := strings.Trim(args.String("path"), "/")
	c, err := ex.Upstream.GetContent(ctx, ex.Owner, args.String("repo"), path, args.String("branch"))
	if err != nil {
		return nil, err
	}
	if !c.IsDir {
		return nil, invalidArg("path", "%s is a file, not a folder", path)
	}

	entries := entriesOf(c)
	sort.SliceStable(entries, func(i, j int) bool {
		if (entries[i].Type == "dir") != (entries[j].Type == "dir") {
			return entries[i].Type == "dir"
		}
		return entries[i].Name < entries[j].Name
	})
	if path == "" {
		path = "/"
	}
	return map[string]any{
		"path":    path,
		"count":   len(entries),
		"entries": entries,
	}, nil
}

func getRepoStats(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	repo := args.String("repo")
	var info, langs, contributors, commits gjson.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info, err = getJSON(gctx, ex, ex.Repo(repo), nil)
		return err
	})
	g.Go(func() (err error) {
		langs, err = getJSON(gctx, ex, ex.Repo(repo, "languages"), nil)
		return err
	})
	g.Go(func() error {
		var err error
		contributors, err = getJSON(gctx, ex, ex.Repo(repo, "contributors"), pageQuery(100))
		if err != nil {
			// Large repositories can refuse contributor stats; the
			// summary is still useful without them.
			logging.Debug().Err(err).Str("repo", repo).Msg("contributors unavailable")
			contributors = gjson.Parse("[]")
		}
		return nil
	})
	g.Go(func() (err error) {
		commits, err = getJSON(gctx, ex, ex.Repo(repo, "commits"), pageQuery(5))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[string]any{
		"name":          info.Get("name").String(),
		"defaultBranch": info.Get("default_branch").String(),
		"stars":         info.Get("stargazers_count").Int(),
		"forks":         info.Get("forks_count").Int(),
		"watchers":      info.Get("subscribers_count").Int(),
		"openIssues":    info.Get("open_issues_count").Int(),
		"sizeKB":        info.Get("size").Int(),
		"languages":     languageBreakdown(langs),
		"contributors":  len(contributors.Array()),
		"recentCommits": commitSummaries(commits),
	}, nil
}
