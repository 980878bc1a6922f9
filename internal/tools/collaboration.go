package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
)

func collaborationCapabilities() []capability.Capability {
	return []capability.Capability{
		{
			Tool: mcp.NewTool("list_pull_requests",
				mcp.WithDescription("List pull requests."),
				repoParam(),
				mcp.WithString("state",
					mcp.Enum("open", "closed", "all"),
					mcp.DefaultString("open"),
				),
			),
			Handler: listPullRequests,
		},
		{
			Tool: mcp.NewTool("create_pull_request",
				mcp.WithDescription("Open a pull request from head into base."),
				repoParam(),
				mcp.WithString("title", mcp.Required()),
				mcp.WithString("head", mcp.Required(), mcp.Description("Branch with the changes")),
				mcp.WithString("base", mcp.Required(), mcp.Description("Branch to merge into")),
				mcp.WithString("body", mcp.Description("Description (markdown)")),
			),
			Handler: createPullRequest,
		},
		{
			Tool: mcp.NewTool("merge_pull_request",
				mcp.WithDescription("Merge a pull request."),
				repoParam(),
				mcp.WithNumber("number", mcp.Required(), mcp.Min(1)),
				mcp.WithString("method",
					mcp.Enum("merge", "squash", "rebase"),
					mcp.DefaultString("merge"),
				),
				mcp.WithString("commitTitle", mcp.Description("Title of the merge commit")),
			),
			Handler: mergePullRequest,
		},
		{
			Tool: mcp.NewTool("list_issues",
				mcp.WithDescription("List issues (pull requests excluded)."),
				repoParam(),
				mcp.WithString("state",
					mcp.Enum("open", "closed", "all"),
					mcp.DefaultString("open"),
				),
				mcp.WithArray("labels",
					mcp.Description("Only issues carrying all of these labels"),
					mcp.WithStringItems(),
				),
			),
			Handler: listIssues,
		},
		{
			Tool: mcp.NewTool("create_issue",
				mcp.WithDescription("Open an issue."),
				repoParam(),
				mcp.WithString("title", mcp.Required()),
				mcp.WithString("body"),
				mcp.WithArray("labels", mcp.WithStringItems()),
			),
			Handler: createIssue,
		},
		{
			Tool: mcp.NewTool("update_issue",
				mcp.WithDescription("Edit an issue's title, body, state or labels. Omitted fields are left unchanged."),
				repoParam(),
				mcp.WithNumber("number", mcp.Required(), mcp.Min(1)),
				mcp.WithString("title"),
				mcp.WithString("body"),
				mcp.WithString("state", mcp.Enum("open", "closed")),
				mcp.WithArray("labels", mcp.WithStringItems()),
			),
			Handler: updateIssue,
		},
	}
}

// PullRequest is a pull request summary.
type PullRequest struct {
	Number    int64  `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Draft     bool   `json:"draft"`
	Author    string `json:"author"`
	Head      string `json:"head"`
	Base      string `json:"base"`
	CreatedAt string `json:"createdAt"`
	URL       string `json:"url"`
}

func pullRequest(p gjson.Result) PullRequest {
	return PullRequest{
		Number:    p.Get("number").Int(),
		Title:     p.Get("title").String(),
		State:     p.Get("state").String(),
		Draft:     p.Get("draft").Bool(),
		Author:    p.Get("user.login").String(),
		Head:      p.Get("head.ref").String(),
		Base:      p.Get("base.ref").String(),
		CreatedAt: p.Get("created_at").String(),
		URL:       p.Get("html_url").String(),
	}
}

// Issue is an issue summary.
type Issue struct {
	Number   int64    `json:"number"`
	Title    string   `json:"title"`
	State    string   `json:"state"`
	Author   string   `json:"author"`
	Labels   []string `json:"labels"`
	Comments int64    `json:"comments"`
	URL      string   `json:"url"`
}

func issue(i gjson.Result) Issue {
	labels := []string{}
	for _, l := range i.Get("labels.#.name").Array() {
		labels = append(labels, l.String())
	}
	return Issue{
		Number:   i.Get("number").Int(),
		Title:    i.Get("title").String(),
		State:    i.Get("state").String(),
		Author:   i.Get("user.login").String(),
		Labels:   labels,
		Comments: i.Get("comments").Int(),
		URL:      i.Get("html_url").String(),
	}
}

func listPullRequests(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	list, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "pulls"), pageQuery(50, "state", args.String("state")))
	if err != nil {
		return nil, err
	}
	out := []PullRequest{}
	for _, p := range list.Array() {
		out = append(out, pullRequest(p))
	}
	return out, nil
}

func createPullRequest(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	body, _ := sjson.SetBytes(nil, "title", args.String("title"))
	body, _ = sjson.SetBytes(body, "head", args.String("head"))
	body, _ = sjson.SetBytes(body, "base", args.String("base"))
	if text := args.String("body"); text != "" {
		body, _ = sjson.SetBytes(body, "body", text)
	}
	data, err := ex.Upstream.Post(ctx, ex.Repo(args.String("repo"), "pulls"), body)
	if err != nil {
		return nil, err
	}
	return pullRequest(gjson.ParseBytes(data)), nil
}

func mergePullRequest(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	body, _ := sjson.SetBytes(nil, "merge_method", args.String("method"))
	if title := args.String("commitTitle"); title != "" {
		body, _ = sjson.SetBytes(body, "commit_title", title)
	}
	data, err := ex.Upstream.Put(ctx, ex.Repo(args.String("repo"), "pulls", prNumber(args), "merge"), body)
	if err != nil {
		// 409: the head moved since the caller last looked.
		if github.StatusCode(err) == 409 {
			return nil, capability.Wrap(capability.KindConflictOrStale, err,
				"pull request #%s head changed; review it again before merging", prNumber(args))
		}
		return nil, err
	}
	doc := gjson.ParseBytes(data)
	return map[string]any{
		"merged":  doc.Get("merged").Bool(),
		"sha":     doc.Get("sha").String(),
		"message": doc.Get("message").String(),
	}, nil
}

func listIssues(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	q := pageQuery(50,
		"state", args.String("state"),
		"labels", strings.Join(args.Strings("labels"), ","),
	)
	list, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "issues"), q)
	if err != nil {
		return nil, err
	}
	out := []Issue{}
	for _, i := range list.Array() {
		// The issues endpoint also returns pull requests.
		if i.Get("pull_request").Exists() {
			continue
		}
		out = append(out, issue(i))
	}
	return out, nil
}

func createIssue(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	body, _ := sjson.SetBytes(nil, "title", args.String("title"))
	if text := args.String("body"); text != "" {
		body, _ = sjson.SetBytes(body, "body", text)
	}
	if labels := args.Strings("labels"); len(labels) > 0 {
		body, _ = sjson.SetBytes(body, "labels", labels)
	}
	data, err := ex.Upstream.Post(ctx, ex.Repo(args.String("repo"), "issues"), body)
	if err != nil {
		return nil, err
	}
	return issue(gjson.ParseBytes(data)), nil
}

func updateIssue(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	var body []byte
	for _, key := range []string{"title", "body", "state"} {
		if args.Has(key) {
			body, _ = sjson.SetBytes(body, key, args.String(key))
		}
	}
	if args.Has("labels") {
		body, _ = sjson.SetBytes(body, "labels", args.Strings("labels"))
	}
	if body == nil {
		return nil, invalidArg("title", "nothing to update: pass title, body, state or labels")
	}

	data, err := ex.Upstream.Patch(ctx, ex.Repo(args.String("repo"), "issues", prNumber(args)), body)
	if err != nil {
		return nil, err
	}
	return issue(gjson.ParseBytes(data)), nil
}
