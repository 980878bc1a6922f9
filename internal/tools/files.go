package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
	"github.com/HendryAvila/repobridge/internal/logging"
)

func fileCapabilities() []capability.Capability {
	return []capability.Capability{
		{
			Tool: mcp.NewTool("read_file",
				mcp.WithDescription("Read a file's text content and its current sha."),
				repoParam(),
				mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the repository root")),
				branchParam(),
			),
			Handler: readFile,
		},
		{
			Tool: mcp.NewTool("update_file",
				mcp.WithDescription(
					"Create or overwrite a file. The current sha is read first; if the file "+
						"changes before the write lands the call fails with ConflictOrStale and "+
						"should be retried after a fresh read.",
				),
				repoParam(),
				mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the repository root")),
				mcp.WithString("content", mcp.Required(), mcp.Description("New file content (UTF-8 text)")),
				messageParam(),
				branchParam(),
			),
			Handler: updateFile,
		},
		{
			Tool: mcp.NewTool("delete_file",
				mcp.WithDescription("Delete a file."),
				repoParam(),
				mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the repository root")),
				messageParam(),
				branchParam(),
			),
			Handler: deleteFile,
		},
		{
			Tool: mcp.NewTool("rename_file",
				mcp.WithDescription(
					"Move a file by creating it at the new path and deleting the old one. "+
						"Not atomic: if the delete fails the result is PartialSuccess and both paths exist.",
				),
				repoParam(),
				mcp.WithString("oldPath", mcp.Required(), mcp.Description("Current file path")),
				mcp.WithString("newPath", mcp.Required(), mcp.Description("Target file path (must not exist)")),
				messageParam(),
				branchParam(),
			),
			Handler: renameFile,
		},
		{
			Tool: mcp.NewTool("copy_file",
				mcp.WithDescription("Copy a file to a new path. Fails with ConflictOrStale if the target exists."),
				repoParam(),
				mcp.WithString("sourcePath", mcp.Required(), mcp.Description("File to copy")),
				mcp.WithString("targetPath", mcp.Required(), mcp.Description("Destination path (must not exist)")),
				messageParam(),
				branchParam(),
			),
			Handler: copyFile,
		},
	}
}

// readBlob fetches a file and rejects folders.
func readBlob(ctx context.Context, ex capability.Exec, repo, path, branch, field string) (*github.Content, error) {
	c, err := ex.Upstream.GetContent(ctx, ex.Owner, repo, path, branch)
	if err != nil {
		return nil, err
	}
	if c.IsDir {
		return nil, invalidArg(field, "%s is a folder, not a file", path)
	}
	return c, nil
}

// staleOr converts an upstream version-token rejection into
// ConflictOrStale and passes every other error through.
func staleOr(err error, path string) error {
	if github.IsStale(err) {
		return capability.Wrap(capability.KindConflictOrStale, err,
			"%s changed or already exists upstream; read it again before writing", path)
	}
	return err
}

func readFile(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	c, err := readBlob(ctx, ex, args.String("repo"), args.String("path"), args.String("branch"), "path")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"path":    c.Path,
		"sha":     c.SHA,
		"size":    len(c.Data),
		"content": string(c.Data),
	}, nil
}

func updateFile(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	repo, path, branch := args.String("repo"), args.String("path"), args.String("branch")

	var sha string
	current, err := readBlob(ctx, ex, repo, path, branch, "path")
	switch {
	case github.IsNotFound(err):
		// Create.
	case err != nil:
		return nil, err
	default:
		sha = current.SHA
	}

	ref, err := ex.Upstream.PutContent(ctx, ex.Owner, repo, path, github.PutContentParams{
		Message: args.String("message"),
		Content: []byte(args.String("content")),
		SHA:     sha,
		Branch:  branch,
	})
	if err != nil {
		return nil, staleOr(err, path)
	}
	return map[string]any{
		"path":    path,
		"created": sha == "",
		"commit":  ref,
	}, nil
}

func deleteFile(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	repo, path, branch := args.String("repo"), args.String("path"), args.String("branch")

	current, err := readBlob(ctx, ex, repo, path, branch, "path")
	if err != nil {
		return nil, err
	}
	ref, err := ex.Upstream.DeleteContent(ctx, ex.Owner, repo, path, args.String("message"), current.SHA, branch)
	if err != nil {
		return nil, staleOr(err, path)
	}
	return map[string]any{
		"path":    path,
		"deleted": true,
		"commit":  ref,
	}, nil
}

// Outcome is the end state of a multi-step file operation.
type Outcome string

const (
	FullSuccess    Outcome = "FullSuccess"
	PartialSuccess Outcome = "PartialSuccess"
	Failure        Outcome = "Failure"
)

// Step records one completed or failed step of a multi-step operation.
type Step struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	OK     bool   `json:"ok"`
	Commit string `json:"commit,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SagaResult is the report of a multi-step file operation.
type SagaResult struct {
	Outcome Outcome `json:"outcome"`
	Steps   []Step  `json:"steps"`
}

func (r *SagaResult) record(name, path string, ref *github.CommitRef, err error) {
	s := Step{Name: name, Path: path, OK: err == nil}
	if ref != nil {
		s.Commit = ref.SHA
	}
	if err != nil {
		s.Error = err.Error()
	}
	r.Steps = append(r.Steps, s)
}

// createCopy reads src and creates dst with its content. dst must not
// exist; the upstream rejects a create without sha over an existing file.
func createCopy(ctx context.Context, ex capability.Exec, args capability.Args, src, dst, srcField string, res *SagaResult) (*github.Content, error) {
	repo, branch := args.String("repo"), args.String("branch")

	c, err := readBlob(ctx, ex, repo, src, branch, srcField)
	res.record("read", src, nil, err)
	if err != nil {
		return nil, err
	}

	ref, err := ex.Upstream.PutContent(ctx, ex.Owner, repo, dst, github.PutContentParams{
		Message: args.String("message"),
		Content: c.Data,
		Branch:  branch,
	})
	res.record("create", dst, ref, err)
	if err != nil {
		return nil, staleOr(err, dst)
	}
	return c, nil
}

func renameFile(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	repo, branch := args.String("repo"), args.String("branch")
	oldPath, newPath := args.String("oldPath"), args.String("newPath")
	if oldPath == newPath {
		return nil, invalidArg("newPath", "newPath equals oldPath")
	}

	res := &SagaResult{Outcome: Failure}
	old, err := createCopy(ctx, ex, args, oldPath, newPath, "oldPath", res)
	if err != nil {
		return nil, err
	}

	// Deleting with the sha read before the create fails as stale if
	// oldPath was modified in between.
	ref, err := ex.Upstream.DeleteContent(ctx, ex.Owner, repo, oldPath, args.String("message"), old.SHA, branch)
	res.record("delete", oldPath, ref, err)
	if err != nil {
		res.Outcome = PartialSuccess
		logging.Warn().
			Err(err).
			Str("repo", repo).
			Str("steps", describeSteps(res)).
			Msg("rename left both paths in place")
		return nil, capability.Wrap(capability.KindPartialSuccess, err,
			"created %s but could not delete %s; both paths now exist", newPath, oldPath)
	}

	res.Outcome = FullSuccess
	return res, nil
}

func copyFile(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	src, dst := args.String("sourcePath"), args.String("targetPath")
	if src == dst {
		return nil, invalidArg("targetPath", "targetPath equals sourcePath")
	}

	res := &SagaResult{Outcome: Failure}
	if _, err := createCopy(ctx, ex, args, src, dst, "sourcePath", res); err != nil {
		return nil, err
	}
	res.Outcome = FullSuccess
	return res, nil
}

// describeSteps renders a saga for log lines.
func describeSteps(r *SagaResult) string {
	var sb strings.Builder
	sb.WriteString(string(r.Outcome))
	for _, st := range r.Steps {
		fmt.Fprintf(&sb, " %s(%s)=%t", st.Name, st.Path, st.OK)
	}
	return sb.String()
}
