package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
)

func historyCapabilities() []capability.Capability {
	return []capability.Capability{
		{
			Tool: mcp.NewTool("get_commits",
				mcp.WithDescription("List recent commits, optionally for one branch or path."),
				repoParam(),
				branchParam(),
				mcp.WithString("path", mcp.Description("Only commits touching this path")),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of commits (1-100)"),
					mcp.DefaultNumber(10),
					mcp.Min(1),
					mcp.Max(100),
				),
			),
			Handler: getCommits,
		},
		{
			Tool: mcp.NewTool("get_commit",
				mcp.WithDescription("Get one commit with its stats and changed files."),
				repoParam(),
				mcp.WithString("sha", mcp.Required(), mcp.Description("Commit sha or ref")),
			),
			Handler: getCommit,
		},
		{
			Tool: mcp.NewTool("get_branches",
				mcp.WithDescription("List branches."),
				repoParam(),
			),
			Handler: getBranches,
		},
		{
			Tool: mcp.NewTool("create_branch",
				mcp.WithDescription("Create a branch from another branch (default: the default branch)."),
				repoParam(),
				mcp.WithString("branch", mcp.Required(), mcp.Description("Name of the new branch")),
				mcp.WithString("from", mcp.Description("Source branch")),
			),
			Handler: createBranch,
		},
		{
			Tool: mcp.NewTool("list_tags",
				mcp.WithDescription("List tags."),
				repoParam(),
			),
			Handler: listTags,
		},
		{
			Tool: mcp.NewTool("create_tag",
				mcp.WithDescription("Create a lightweight tag at a commit (default: head of the default branch)."),
				repoParam(),
				mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
				mcp.WithString("sha", mcp.Description("Commit sha to tag")),
			),
			Handler: createTag,
		},
		{
			Tool: mcp.NewTool("list_releases",
				mcp.WithDescription("List releases."),
				repoParam(),
			),
			Handler: listReleases,
		},
		{
			Tool: mcp.NewTool("create_release",
				mcp.WithDescription("Create a release for a tag. The tag is created from the default branch if missing."),
				repoParam(),
				mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
				mcp.WithString("name", mcp.Description("Release title")),
				mcp.WithString("body", mcp.Description("Release notes (markdown)")),
				mcp.WithBoolean("draft", mcp.DefaultBool(false)),
				mcp.WithBoolean("prerelease", mcp.DefaultBool(false)),
			),
			Handler: createRelease,
		},
		{
			Tool: mcp.NewTool("compare",
				mcp.WithDescription("Compare two refs: ahead/behind counts, commits and changed files."),
				repoParam(),
				mcp.WithString("base", mcp.Required(), mcp.Description("Base ref")),
				mcp.WithString("head", mcp.Required(), mcp.Description("Head ref")),
			),
			Handler: compareRefs,
		},
		{
			Tool: mcp.NewTool("get_diff",
				mcp.WithDescription("Get the unified diff between two refs."),
				repoParam(),
				mcp.WithString("base", mcp.Required(), mcp.Description("Base ref")),
				mcp.WithString("head", mcp.Required(), mcp.Description("Head ref")),
			),
			Handler: getDiff,
		},
	}
}

// CommitSummary is one line of history.
type CommitSummary struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	URL     string `json:"url,omitempty"`
}

func commitSummary(c gjson.Result) CommitSummary {
	author := c.Get("author.login").String()
	if author == "" {
		author = c.Get("commit.author.name").String()
	}
	return CommitSummary{
		SHA:     c.Get("sha").String(),
		Message: firstLine(c.Get("commit.message").String()),
		Author:  author,
		Date:    c.Get("commit.author.date").String(),
		URL:     c.Get("html_url").String(),
	}
}

func commitSummaries(list gjson.Result) []CommitSummary {
	out := []CommitSummary{}
	for _, c := range list.Array() {
		out = append(out, commitSummary(c))
	}
	return out
}

// FileChange is one file of a commit or comparison.
type FileChange struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int64  `json:"additions"`
	Deletions int64  `json:"deletions"`
}

func fileChanges(list gjson.Result) []FileChange {
	out := []FileChange{}
	for _, f := range list.Array() {
		out = append(out, FileChange{
			Filename:  f.Get("filename").String(),
			Status:    f.Get("status").String(),
			Additions: f.Get("additions").Int(),
			Deletions: f.Get("deletions").Int(),
		})
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func getCommits(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	q := pageQuery(args.Int("limit"), "sha", args.String("branch"), "path", args.String("path"))
	list, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "commits"), q)
	if err != nil {
		return nil, err
	}
	return commitSummaries(list), nil
}

func getCommit(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	c, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "commits", args.String("sha")), nil)
	if err != nil {
		return nil, err
	}
	summary := commitSummary(c)
	summary.Message = c.Get("commit.message").String()
	return map[string]any{
		"commit": summary,
		"stats": map[string]int64{
			"additions": c.Get("stats.additions").Int(),
			"deletions": c.Get("stats.deletions").Int(),
			"total":     c.Get("stats.total").Int(),
		},
		"files": fileChanges(c.Get("files")),
	}, nil
}

func getBranches(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	list, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "branches"), pageQuery(100))
	if err != nil {
		return nil, err
	}
	type branch struct {
		Name      string `json:"name"`
		SHA       string `json:"sha"`
		Protected bool   `json:"protected"`
	}
	out := []branch{}
	for _, b := range list.Array() {
		out = append(out, branch{
			Name:      b.Get("name").String(),
			SHA:       b.Get("commit.sha").String(),
			Protected: b.Get("protected").Bool(),
		})
	}
	return out, nil
}

// createRef creates refs/<kind>/<name> at sha.
func createRef(ctx context.Context, ex capability.Exec, repo, ref, sha string) (gjson.Result, error) {
	body, _ := sjson.SetBytes(nil, "ref", ref)
	body, _ = sjson.SetBytes(body, "sha", sha)
	data, err := ex.Upstream.Post(ctx, ex.Repo(repo, "git/refs"), body)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(data), nil
}

// resolveBase returns the head sha of branch, or of the default branch
// when branch is empty.
func resolveBase(ctx context.Context, ex capability.Exec, repo, branch string) (string, string, error) {
	if branch == "" {
		var err error
		if branch, err = defaultBranch(ctx, ex, repo); err != nil {
			return "", "", err
		}
	}
	sha, err := headSHA(ctx, ex, repo, branch)
	return branch, sha, err
}

func createBranch(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	repo, name := args.String("repo"), args.String("branch")
	from, sha, err := resolveBase(ctx, ex, repo, args.String("from"))
	if err != nil {
		return nil, err
	}
	if _, err := createRef(ctx, ex, repo, "refs/heads/"+name, sha); err != nil {
		// 422 "Reference already exists".
		if github.StatusCode(err) == 422 {
			return nil, capability.Wrap(capability.KindConflictOrStale, err, "branch %s already exists", name)
		}
		return nil, err
	}
	return map[string]string{"branch": name, "from": from, "sha": sha}, nil
}

func listTags(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	list, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "tags"), pageQuery(100))
	if err != nil {
		return nil, err
	}
	type tag struct {
		Name string `json:"name"`
		SHA  string `json:"sha"`
	}
	out := []tag{}
	for _, t := range list.Array() {
		out = append(out, tag{Name: t.Get("name").String(), SHA: t.Get("commit.sha").String()})
	}
	return out, nil
}

func createTag(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	repo, name, sha := args.String("repo"), args.String("tag"), args.String("sha")
	if sha == "" {
		var err error
		if _, sha, err = resolveBase(ctx, ex, repo, ""); err != nil {
			return nil, err
		}
	}
	if _, err := createRef(ctx, ex, repo, "refs/tags/"+name, sha); err != nil {
		if github.StatusCode(err) == 422 {
			return nil, capability.Wrap(capability.KindConflictOrStale, err, "tag %s already exists", name)
		}
		return nil, err
	}
	return map[string]string{"tag": name, "sha": sha}, nil
}

// ReleaseSummary describes a release.
type ReleaseSummary struct {
	Tag         string `json:"tag"`
	Name        string `json:"name"`
	Draft       bool   `json:"draft"`
	Prerelease  bool   `json:"prerelease"`
	PublishedAt string `json:"publishedAt,omitempty"`
	URL         string `json:"url"`
}

func releaseSummary(r gjson.Result) ReleaseSummary {
	return ReleaseSummary{
		Tag:         r.Get("tag_name").String(),
		Name:        r.Get("name").String(),
		Draft:       r.Get("draft").Bool(),
		Prerelease:  r.Get("prerelease").Bool(),
		PublishedAt: r.Get("published_at").String(),
		URL:         r.Get("html_url").String(),
	}
}

func listReleases(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	list, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "releases"), pageQuery(50))
	if err != nil {
		return nil, err
	}
	out := []ReleaseSummary{}
	for _, r := range list.Array() {
		out = append(out, releaseSummary(r))
	}
	return out, nil
}

func createRelease(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	tag := args.String("tag")
	name := args.String("name")
	if name == "" {
		name = tag
	}
	body, _ := sjson.SetBytes(nil, "tag_name", tag)
	body, _ = sjson.SetBytes(body, "name", name)
	body, _ = sjson.SetBytes(body, "draft", args.Bool("draft"))
	body, _ = sjson.SetBytes(body, "prerelease", args.Bool("prerelease"))
	if notes := args.String("body"); notes != "" {
		body, _ = sjson.SetBytes(body, "body", notes)
	}

	data, err := ex.Upstream.Post(ctx, ex.Repo(args.String("repo"), "releases"), body)
	if err != nil {
		return nil, err
	}
	return releaseSummary(gjson.ParseBytes(data)), nil
}

// comparePath is compare/{base}...{head}.
func comparePath(ex capability.Exec, args capability.Args) string {
	return ex.Repo(args.String("repo"), "compare", args.String("base")+"..."+args.String("head"))
}

func compareRefs(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	c, err := getJSON(ctx, ex, comparePath(ex, args), nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":       c.Get("status").String(),
		"aheadBy":      c.Get("ahead_by").Int(),
		"behindBy":     c.Get("behind_by").Int(),
		"totalCommits": c.Get("total_commits").Int(),
		"commits":      commitSummaries(c.Get("commits")),
		"files":        fileChanges(c.Get("files")),
	}, nil
}

func getDiff(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	data, err := ex.Upstream.GetRaw(ctx, comparePath(ex, args), nil, github.AcceptDiff)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return "No differences between " + args.String("base") + " and " + args.String("head") + ".", nil
	}
	return data, nil
}

// prNumber formats an issue or pull request number for a path segment.
func prNumber(args capability.Args) string {
	return strconv.Itoa(args.Int("number"))
}
