package tools

import (
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/HendryAvila/repobridge/internal/capability"
)

func TestListIssues_SkipsPullRequests(t *testing.T) {
	var labels string
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/repos/acme/demo/issues", func(w http.ResponseWriter, r *http.Request) {
			labels = r.URL.Query().Get("labels")
			writeJSON(w, http.StatusOK, []map[string]any{
				{"number": 1, "title": "bug", "labels": []map[string]any{{"name": "bug"}}},
				{"number": 2, "title": "pr", "pull_request": map[string]any{"url": "x"}},
			})
		})
	})

	doc := requireOK(t, f.dispatch(t, "list_issues", map[string]any{"repo": "demo", "labels": []any{"bug", "p1"}}))

	assert.Equal(t, "bug,p1", labels)
	assert.Len(t, doc.Array(), 1)
	assert.Equal(t, []any{"bug"}, doc.Get("0.labels").Value())
}

func TestUpdateIssue(t *testing.T) {
	var sent gjson.Result
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Patch("/repos/acme/demo/issues/{number}", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			sent = gjson.ParseBytes(body)
			writeJSON(w, http.StatusOK, map[string]any{"number": 7, "state": "closed"})
		})
	})

	doc := requireOK(t, f.dispatch(t, "update_issue", map[string]any{"repo": "demo", "number": 7, "state": "closed"}))
	assert.Equal(t, "closed", sent.Get("state").String())
	assert.False(t, sent.Get("title").Exists())
	assert.Equal(t, int64(7), doc.Get("number").Int())

	failure := requireFailure(t, f.dispatch(t, "update_issue", map[string]any{"repo": "demo", "number": 7}),
		capability.KindInvalidArguments)
	assert.Contains(t, failure.Message, "nothing to update")
	assert.Equal(t, "title", failure.Field)

	requireFailure(t, f.dispatch(t, "update_issue", map[string]any{"repo": "demo", "number": 7, "state": "reopened"}),
		capability.KindInvalidArguments)
}

func TestMergePullRequest_HeadMovedIsConflict(t *testing.T) {
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Put("/repos/acme/demo/pulls/{number}/merge", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Head branch was modified. Review and try the merge again."})
		})
	})

	requireFailure(t, f.dispatch(t, "merge_pull_request", map[string]any{"repo": "demo", "number": 3}),
		capability.KindConflictOrStale)
}

func TestSearchIssues_Qualifiers(t *testing.T) {
	var q string
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/search/issues", func(w http.ResponseWriter, r *http.Request) {
			q = r.URL.Query().Get("q")
			writeJSON(w, http.StatusOK, map[string]any{"total_count": 1, "items": []map[string]any{{"number": 4, "title": "login"}}})
		})
	})

	doc := requireOK(t, f.dispatch(t, "search_issues", map[string]any{"repo": "demo", "query": "login", "type": "pr"}))

	assert.Equal(t, "login repo:acme/demo type:pr", q)
	assert.Equal(t, int64(1), doc.Get("total").Int())
	assert.Equal(t, "login", doc.Get("items.0.title").String())
}
