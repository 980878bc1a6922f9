package tools

import (
	"context"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/HendryAvila/repobridge/internal/capability"
)

func searchCapabilities() []capability.Capability {
	query := mcp.WithString("query", mcp.Required(), mcp.Description("Search terms (GitHub search syntax)"))
	return []capability.Capability{
		{
			Tool: mcp.NewTool("search_code",
				mcp.WithDescription("Search code in the repository's default branch."),
				repoParam(), query,
			),
			Handler: searchCode,
		},
		{
			Tool: mcp.NewTool("search_commits",
				mcp.WithDescription("Search commit messages."),
				repoParam(), query,
			),
			Handler: searchCommits,
		},
		{
			Tool: mcp.NewTool("search_issues",
				mcp.WithDescription("Search issues and pull requests."),
				repoParam(), query,
				mcp.WithString("state", mcp.Enum("open", "closed")),
				mcp.WithString("type", mcp.Enum("issue", "pr")),
			),
			Handler: searchIssues,
		},
	}
}

// searchQuery scopes terms to the repository and appends qualifiers.
func searchQuery(ex capability.Exec, args capability.Args, qualifiers ...string) url.Values {
	parts := []string{args.String("query"), "repo:" + ex.Owner + "/" + args.String("repo")}
	for i := 0; i+1 < len(qualifiers); i += 2 {
		if qualifiers[i+1] != "" {
			parts = append(parts, qualifiers[i]+":"+qualifiers[i+1])
		}
	}
	return url.Values{
		"q":        {strings.Join(parts, " ")},
		"per_page": {"30"},
	}
}

func searchResults[T any](doc gjson.Result, item func(gjson.Result) T) map[string]any {
	items := []T{}
	for _, r := range doc.Get("items").Array() {
		items = append(items, item(r))
	}
	return map[string]any{
		"total":      doc.Get("total_count").Int(),
		"incomplete": doc.Get("incomplete_results").Bool(),
		"items":      items,
	}
}

func searchCode(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	doc, err := getJSON(ctx, ex, "/search/code", searchQuery(ex, args))
	if err != nil {
		return nil, err
	}
	type hit struct {
		Name string `json:"name"`
		Path string `json:"path"`
		SHA  string `json:"sha"`
		URL  string `json:"url"`
	}
	return searchResults(doc, func(r gjson.Result) hit {
		return hit{
			Name: r.Get("name").String(),
			Path: r.Get("path").String(),
			SHA:  r.Get("sha").String(),
			URL:  r.Get("html_url").String(),
		}
	}), nil
}

func searchCommits(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	doc, err := getJSON(ctx, ex, "/search/commits", searchQuery(ex, args))
	if err != nil {
		return nil, err
	}
	return searchResults(doc, commitSummary), nil
}

func searchIssues(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	q := searchQuery(ex, args, "state", args.String("state"), "type", args.String("type"))
	doc, err := getJSON(ctx, ex, "/search/issues", q)
	if err != nil {
		return nil, err
	}
	return searchResults(doc, issue), nil
}
