package tools

import (
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
)

func TestGetCommits_DefaultLimit(t *testing.T) {
	var perPage, path string
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/repos/acme/demo/commits", func(w http.ResponseWriter, r *http.Request) {
			perPage = r.URL.Query().Get("per_page")
			path = r.URL.Query().Get("path")
			writeJSON(w, http.StatusOK, []map[string]any{
				{"sha": "c1", "author": map[string]any{"login": "ana"}, "commit": map[string]any{"message": "fix: thing"}},
			})
		})
	})

	doc := requireOK(t, f.dispatch(t, "get_commits", map[string]any{"repo": "demo", "path": "src"}))

	assert.Equal(t, "10", perPage)
	assert.Equal(t, "src", path)
	assert.Equal(t, "ana", doc.Get("0.author").String())
}

func TestGetCommits_LimitOutOfRange(t *testing.T) {
	f := newFakeGitHub(t, nil)

	failure := requireFailure(t, f.dispatch(t, "get_commits", map[string]any{"repo": "demo", "limit": 500}), capability.KindInvalidArguments)

	assert.Equal(t, "limit", failure.Field)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestCreateBranch_FromDefaultBranch(t *testing.T) {
	var created gjson.Result
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/repos/acme/demo", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"default_branch": "main"})
		})
		r.Get("/repos/acme/demo/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"object": map[string]any{"sha": "head-sha"}})
		})
		r.Post("/repos/acme/demo/git/refs", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if created.Exists() {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Reference already exists"})
				return
			}
			created = gjson.ParseBytes(body)
			writeJSON(w, http.StatusCreated, map[string]any{"ref": created.Get("ref").String()})
		})
	})

	doc := requireOK(t, f.dispatch(t, "create_branch", map[string]any{"repo": "demo", "branch": "feature/login"}))

	assert.Equal(t, "main", doc.Get("from").String())
	assert.Equal(t, "refs/heads/feature/login", created.Get("ref").String())
	assert.Equal(t, "head-sha", created.Get("sha").String())

	requireFailure(t, f.dispatch(t, "create_branch", map[string]any{"repo": "demo", "branch": "feature/login"}),
		capability.KindConflictOrStale)
}

func TestCompareAndDiff(t *testing.T) {
	var accept string
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/repos/acme/demo/compare/{basehead}", func(w http.ResponseWriter, r *http.Request) {
			accept = r.Header.Get("Accept")
			if accept == github.AcceptDiff {
				io.WriteString(w, "diff --git a/x b/x\n")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "ahead", "ahead_by": 2, "behind_by": 0, "total_commits": 2,
				"files": []map[string]any{{"filename": "x", "status": "modified", "additions": 1, "deletions": 1}},
			})
		})
	})

	doc := requireOK(t, f.dispatch(t, "compare", map[string]any{"repo": "demo", "base": "main", "head": "dev"}))
	assert.Equal(t, int64(2), doc.Get("aheadBy").Int())
	assert.Equal(t, "x", doc.Get("files.0.filename").String())

	res := f.dispatch(t, "get_diff", map[string]any{"repo": "demo", "base": "main", "head": "dev"})
	requireOK(t, res)
	assert.Equal(t, "diff --git a/x b/x\n", res.Content[0].Text)
	assert.Equal(t, github.AcceptDiff, accept)
}

func TestCreateRelease_Body(t *testing.T) {
	var sent gjson.Result
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Post("/repos/acme/demo/releases", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			sent = gjson.ParseBytes(body)
			writeJSON(w, http.StatusCreated, map[string]any{"tag_name": "v1.0.0", "name": "v1.0.0", "html_url": "https://github.example/r"})
		})
	})

	doc := requireOK(t, f.dispatch(t, "create_release", map[string]any{"repo": "demo", "tag": "v1.0.0"}))

	assert.Equal(t, "v1.0.0", sent.Get("name").String())
	assert.False(t, sent.Get("draft").Bool())
	assert.True(t, sent.Get("draft").Exists())
	assert.False(t, sent.Get("body").Exists())
	assert.Equal(t, "v1.0.0", doc.Get("tag").String())
}
