package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RepoPath builds "/repos/{owner}/{repo}/{parts...}" with each part escaped.
func RepoPath(owner, repo string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString("/repos/")
	sb.WriteString(url.PathEscape(owner))
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(repo))
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString("/")
		sb.WriteString(escapePath(p))
	}
	return sb.String()
}

// escapePath escapes every segment of a slash separated path.
func escapePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Content is a file or directory at a ref.
type Content struct {
	Path string
	// SHA is the blob sha, the version token required to overwrite or
	// delete the file.
	SHA     string
	IsDir   bool
	Data    []byte
	Entries []Entry
}

// CommitRef identifies the commit created by a content mutation.
type CommitRef struct {
	SHA        string `json:"commit"`
	URL        string `json:"url,omitempty"`
	ContentSHA string `json:"contentSha,omitempty"`
}

// GetContent fetches a file (decoded) or directory listing at ref.
// An empty ref means the default branch.
func (c *Client) GetContent(ctx context.Context, owner, repo, path, ref string) (*Content, error) {
	var q url.Values
	if ref != "" {
		q = url.Values{"ref": {ref}}
	}
	data, err := c.Get(ctx, RepoPath(owner, repo, "contents", path), q)
	if err != nil {
		return nil, err
	}
	return parseContent(path, data)
}

func parseContent(path string, data []byte) (*Content, error) {
	doc := gjson.ParseBytes(data)

	if doc.IsArray() {
		out := &Content{Path: path, IsDir: true}
		for _, item := range doc.Array() {
			out.Entries = append(out.Entries, Entry{
				Name: item.Get("name").String(),
				Path: item.Get("path").String(),
				Type: item.Get("type").String(),
				Size: item.Get("size").Int(),
			})
		}
		return out, nil
	}

	out := &Content{
		Path: doc.Get("path").String(),
		SHA:  doc.Get("sha").String(),
	}
	if doc.Get("type").String() == "dir" {
		out.IsDir = true
		return out, nil
	}

	raw := doc.Get("content").String()
	if doc.Get("encoding").String() == "base64" {
		// GitHub wraps base64 payloads at 60 columns.
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		out.Data = decoded
	} else {
		out.Data = []byte(raw)
	}
	return out, nil
}

// PutContentParams describes a create-or-update of one file.
type PutContentParams struct {
	Message string
	Content []byte
	// SHA must be the current blob sha when updating; empty creates.
	SHA    string
	Branch string
}

// PutContent creates or updates a file.
func (c *Client) PutContent(ctx context.Context, owner, repo, path string, p PutContentParams) (*CommitRef, error) {
	body, err := contentBody(p.Message, p.SHA, p.Branch)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "content", base64.StdEncoding.EncodeToString(p.Content))
	if err != nil {
		return nil, fmt.Errorf("encoding content: %w", err)
	}

	data, err := c.Put(ctx, RepoPath(owner, repo, "contents", path), body)
	if err != nil {
		return nil, err
	}
	return parseCommitRef(data), nil
}

// DeleteContent deletes a file; sha must be its current blob sha.
func (c *Client) DeleteContent(ctx context.Context, owner, repo, path, message, sha, branch string) (*CommitRef, error) {
	body, err := contentBody(message, sha, branch)
	if err != nil {
		return nil, err
	}
	data, err := c.Delete(ctx, RepoPath(owner, repo, "contents", path), body)
	if err != nil {
		return nil, err
	}
	return parseCommitRef(data), nil
}

// contentBody builds the shared {message, sha?, branch?} request body.
func contentBody(message, sha, branch string) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "message", message); err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	if sha != "" {
		if body, err = sjson.SetBytes(body, "sha", sha); err != nil {
			return nil, fmt.Errorf("encoding sha: %w", err)
		}
	}
	if branch != "" {
		if body, err = sjson.SetBytes(body, "branch", branch); err != nil {
			return nil, fmt.Errorf("encoding branch: %w", err)
		}
	}
	return body, nil
}

func parseCommitRef(data []byte) *CommitRef {
	doc := gjson.ParseBytes(data)
	return &CommitRef{
		SHA:        doc.Get("commit.sha").String(),
		URL:        doc.Get("commit.html_url").String(),
		ContentSHA: doc.Get("content.sha").String(),
	}
}

// LatestRelease returns the tag name and page URL of a repository's latest release.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (tag, htmlURL string, err error) {
	data, err := c.Get(ctx, RepoPath(owner, repo, "releases", "latest"), nil)
	if err != nil {
		return "", "", err
	}
	doc := gjson.ParseBytes(data)
	return doc.Get("tag_name").String(), doc.Get("html_url").String(), nil
}
