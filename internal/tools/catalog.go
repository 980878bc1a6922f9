// Package tools implements the bridge's capabilities.
//
// Every capability is a plain function of validated arguments and the
// shared execution context. Handlers return Go values that the dispatcher
// renders as JSON, or classified errors from the capability package.
// Upstream JSON is reshaped with gjson so only the fields a client needs
// travel back over the stream.
package tools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
)

// All returns every capability in registration order.
func All() []capability.Capability {
	var all []capability.Capability
	all = append(all, projectCapabilities()...)
	all = append(all, fileCapabilities()...)
	all = append(all, historyCapabilities()...)
	all = append(all, collaborationCapabilities()...)
	all = append(all, searchCapabilities()...)
	all = append(all, conventionCapabilities()...)
	all = append(all, wellKnownFileCapabilities()...)
	all = append(all, analysisCapabilities()...)
	all = append(all, insightCapabilities()...)
	all = append(all, buildCapabilities()...)
	return all
}

// --- Shared schema options ---

func repoParam() mcp.ToolOption {
	return mcp.WithString("repo",
		mcp.Required(),
		mcp.Description("Repository name under the configured owner"),
	)
}

func branchParam() mcp.ToolOption {
	return mcp.WithString("branch",
		mcp.Description("Branch or ref (default: the repository's default branch)"),
	)
}

func messageParam() mcp.ToolOption {
	return mcp.WithString("message",
		mcp.Required(),
		mcp.Description("Commit message"),
	)
}

// --- Shared upstream helpers ---

// getJSON fetches path and parses the body.
func getJSON(ctx context.Context, ex capability.Exec, path string, query url.Values) (gjson.Result, error) {
	data, err := ex.Upstream.Get(ctx, path, query)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(data), nil
}

// defaultBranch returns the repository's default branch.
func defaultBranch(ctx context.Context, ex capability.Exec, repo string) (string, error) {
	doc, err := getJSON(ctx, ex, ex.Repo(repo), nil)
	if err != nil {
		return "", err
	}
	return doc.Get("default_branch").String(), nil
}

// headSHA resolves the commit sha a branch points at.
func headSHA(ctx context.Context, ex capability.Exec, repo, branch string) (string, error) {
	doc, err := getJSON(ctx, ex, ex.Repo(repo, "git/ref/heads", branch), nil)
	if err != nil {
		return "", err
	}
	return doc.Get("object.sha").String(), nil
}

// pageQuery builds a query with per_page and optional extra pairs.
// Empty values are skipped.
func pageQuery(perPage int, kv ...string) url.Values {
	q := url.Values{"per_page": {strconv.Itoa(perPage)}}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	return q
}

// invalidArg reports a semantic argument problem that the schema cannot
// express.
func invalidArg(field, format string, args ...any) *capability.Error {
	e := capability.Errorf(capability.KindInvalidArguments, format, args...)
	e.Field = field
	return e
}

// absent is the explicit marker returned when a conventional path does
// not exist.
type absent struct {
	Found bool     `json:"found"`
	Tried []string `json:"tried"`
}

func notFound(paths ...string) absent {
	return absent{Found: false, Tried: paths}
}

// entriesOf reshapes a directory listing.
func entriesOf(c *github.Content) []github.Entry {
	if c.Entries == nil {
		return []github.Entry{}
	}
	return c.Entries
}
