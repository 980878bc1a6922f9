package tools

import (
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/repobridge/internal/capability"
)

func TestAll_RegistersEveryCapabilityOnce(t *testing.T) {
	reg := capability.NewRegistry()
	require.NoError(t, reg.RegisterAll(All()))

	assert.Equal(t, 47, reg.Len())
	for _, name := range []string{
		"list_projects", "get_project", "get_project_structure", "get_repo_stats",
		"read_file", "update_file", "delete_file", "rename_file", "copy_file",
		"get_commits", "get_commit", "get_branches", "create_branch", "list_tags", "create_tag",
		"list_releases", "create_release", "compare", "get_diff",
		"list_pull_requests", "create_pull_request", "merge_pull_request",
		"list_issues", "create_issue", "update_issue",
		"search_code", "search_commits", "search_issues",
		"analyze_dependencies", "get_routes", "get_contributors", "get_languages",
		"generate_build_url",
	} {
		_, ok := reg.Resolve(name)
		assert.True(t, ok, name)
	}
}

func TestListProjects_FiltersByMarkers(t *testing.T) {
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/users/acme/repos", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]any{
				{"name": "shop", "full_name": "acme/shop", "default_branch": "main", "html_url": "https://github.example/acme/shop"},
				{"name": "api", "full_name": "acme/api", "default_branch": "main"},
				{"name": "empty", "full_name": "acme/empty", "default_branch": "main"},
			})
		})
	})
	f.put("shop", "package.json", "{}")
	f.put("shop", "vite.config.ts", "")
	f.put("shop", "tailwind.config.ts", "")
	f.put("api", "package.json", "{}")
	f.put("api", "vite.config.ts", "")

	doc := requireOK(t, f.dispatch(t, "list_projects", nil))

	assert.Equal(t, int64(1), doc.Get("count").Int())
	assert.Equal(t, "shop", doc.Get("projects.0.name").String())
	assert.Equal(t, "main", doc.Get("projects.0.defaultBranch").String())
}

func TestListProjects_IncludePrivateUsesAuthenticatedListing(t *testing.T) {
	var visibility string
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/user/repos", func(w http.ResponseWriter, r *http.Request) {
			visibility = r.URL.Query().Get("visibility")
			writeJSON(w, http.StatusOK, []map[string]any{})
		})
	})

	doc := requireOK(t, f.dispatch(t, "list_projects", map[string]any{"includePrivate": true}))

	assert.Equal(t, "all", visibility)
	assert.Equal(t, int64(0), doc.Get("count").Int())
}

func TestGetProjectStructure(t *testing.T) {
	f := newFakeGitHub(t, nil)
	f.put("demo", "src/main.tsx", "")
	f.put("demo", "index.html", "")
	f.put("demo", "public/favicon.ico", "")

	doc := requireOK(t, f.dispatch(t, "get_project_structure", map[string]any{"repo": "demo"}))

	assert.Equal(t, "/", doc.Get("path").String())
	assert.Equal(t, []any{"public", "src", "index.html"}, doc.Get("entries.#.name").Value())

	res := f.dispatch(t, "get_project_structure", map[string]any{"repo": "demo", "path": "index.html"})
	failure := requireFailure(t, res, capability.KindInvalidArguments)
	assert.Equal(t, "path", failure.Field)
}

func TestGetRepoStats_ContributorFailureIsEmpty(t *testing.T) {
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/repos/acme/demo", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"name": "demo", "stargazers_count": 3, "default_branch": "main"})
		})
		r.Get("/repos/acme/demo/languages", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"TypeScript": 900, "CSS": 100})
		})
		r.Get("/repos/acme/demo/contributors", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "too large"})
		})
		r.Get("/repos/acme/demo/commits", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]any{
				{"sha": "abc", "commit": map[string]any{"message": "init\n\nbody", "author": map[string]any{"name": "Ana", "date": "2024-01-01T00:00:00Z"}}},
			})
		})
	})

	doc := requireOK(t, f.dispatch(t, "get_repo_stats", map[string]any{"repo": "demo"}))

	assert.Equal(t, int64(3), doc.Get("stars").Int())
	assert.Equal(t, int64(0), doc.Get("contributors").Int())
	assert.Equal(t, "TypeScript", doc.Get("languages.0.name").String())
	assert.Equal(t, float64(90), doc.Get("languages.0.percentage").Float())
	assert.Equal(t, "init", doc.Get("recentCommits.0.message").String())
	assert.Equal(t, "Ana", doc.Get("recentCommits.0.author").String())
}

func TestGetRepoStats_RepoFailurePropagates(t *testing.T) {
	f := newFakeGitHub(t, nil)

	res := f.dispatch(t, "get_repo_stats", map[string]any{"repo": "missing"})

	requireFailure(t, res, capability.KindUpstreamFailure)
}

func TestGetProject_MergesCommitsAndManifest(t *testing.T) {
	var commitHits atomic.Int32
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/repos/acme/demo", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"name": "demo", "full_name": "acme/demo", "default_branch": "main",
				"stargazers_count": 7, "topics": []string{"react"},
			})
		})
		r.Get("/repos/acme/demo/commits", func(w http.ResponseWriter, r *http.Request) {
			commitHits.Add(1)
			writeJSON(w, http.StatusOK, []map[string]any{
				{"sha": "c1", "commit": map[string]any{"message": "add cart\n\ndetails", "author": map[string]any{"name": "Ana", "date": "2024-02-01T00:00:00Z"}}},
			})
		})
	})
	f.put("demo", "package.json", `{"name":"demo","version":"1.0.0"}`)

	doc := requireOK(t, f.dispatch(t, "get_project", map[string]any{"repo": "demo"}))

	assert.Equal(t, int32(1), commitHits.Load())
	assert.Equal(t, "acme/demo", doc.Get("summary.fullName").String())
	assert.Equal(t, int64(7), doc.Get("stars").Int())
	assert.Equal(t, "add cart", doc.Get("recentCommits.0.message").String())
	assert.Equal(t, "c1", doc.Get("recentCommits.0.sha").String())
	assert.True(t, doc.Get("packageJson.found").Bool())
	assert.Equal(t, "package.json", doc.Get("packageJson.path").String())
	assert.Contains(t, doc.Get("packageJson.content").String(), `"version":"1.0.0"`)
}

func TestGetProject_MissingManifestIsMarked(t *testing.T) {
	f := newFakeGitHub(t, func(r chi.Router) {
		r.Get("/repos/acme/bare", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"name": "bare", "full_name": "acme/bare"})
		})
		r.Get("/repos/acme/bare/commits", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Git Repository is empty."})
		})
	})

	doc := requireOK(t, f.dispatch(t, "get_project", map[string]any{"repo": "bare"}))

	assert.False(t, doc.Get("packageJson.found").Bool())
	assert.Equal(t, "package.json", doc.Get("packageJson.tried.0").String())
	assert.True(t, doc.Get("recentCommits").IsArray())
	assert.Empty(t, doc.Get("recentCommits").Array())
}
