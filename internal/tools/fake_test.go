package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/HendryAvila/repobridge/internal/capability"
	"github.com/HendryAvila/repobridge/internal/github"
)

const (
	testOwner       = "acme"
	testBuildPrefix = "https://build.example/?autosubmit=true#prompt="
)

type fakeFile struct {
	content string
	sha     string
}

// fakeGitHub serves the contents API from memory and lets tests mount
// extra endpoints. Writes check the presented sha the way GitHub does.
type fakeGitHub struct {
	mu    sync.Mutex
	files map[string]fakeFile // "repo/path"
	seq   int

	// afterGet runs after a contents GET has taken its snapshot and
	// before the response is written.
	afterGet func()
	// deleteStatus, when set, fails every contents DELETE.
	deleteStatus int

	calls  atomic.Int32
	server *httptest.Server
}

func newFakeGitHub(t *testing.T, routes func(r chi.Router)) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{files: map[string]fakeFile{}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.calls.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/repos/{owner}/{repo}/contents", f.getContents)
	r.Get("/repos/{owner}/{repo}/contents/*", f.getContents)
	r.Put("/repos/{owner}/{repo}/contents/*", f.putContents)
	r.Delete("/repos/{owner}/{repo}/contents/*", f.deleteContents)
	if routes != nil {
		routes(r)
	}

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) put(repo, path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.files[repo+"/"+path] = fakeFile{content: content, sha: fmt.Sprintf("sha-%d", f.seq)}
}

func (f *fakeGitHub) file(repo, path string) (fakeFile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ff, ok := f.files[repo+"/"+path]
	return ff, ok
}

func (f *fakeGitHub) exec() capability.Exec {
	return capability.Exec{
		Upstream:       github.NewClient(f.server.URL, "test-token", github.WithMaxRetries(0)),
		Owner:          testOwner,
		BuildURLPrefix: testBuildPrefix,
	}
}

// dispatch runs one capability through a registry holding every tool.
func (f *fakeGitHub) dispatch(t *testing.T, name string, args map[string]any) capability.Result {
	t.Helper()
	reg := capability.NewRegistry()
	require.NoError(t, reg.RegisterAll(All()))
	reg.Seal()
	return capability.NewDispatcher(reg, f.exec()).Dispatch(context.Background(), capability.Request{
		SessionID: "test",
		Name:      name,
		Arguments: args,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func notFoundBody(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}

func (f *fakeGitHub) getContents(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	path := strings.Trim(chi.URLParam(r, "*"), "/")

	f.mu.Lock()
	var body any
	if ff, ok := f.files[repo+"/"+path]; ok && path != "" {
		// GitHub wraps base64 content with newlines.
		enc := base64.StdEncoding.EncodeToString([]byte(ff.content))
		if len(enc) > 20 {
			enc = enc[:20] + "\n" + enc[20:]
		}
		body = map[string]any{
			"type":     "file",
			"path":     path,
			"sha":      ff.sha,
			"encoding": "base64",
			"content":  enc,
		}
	} else if entries := f.listing(repo, path); len(entries) > 0 {
		body = entries
	}
	f.mu.Unlock()

	if f.afterGet != nil {
		f.afterGet()
	}
	if body == nil {
		notFoundBody(w)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// listing returns the immediate children of dir. Callers hold mu.
func (f *fakeGitHub) listing(repo, dir string) []map[string]any {
	prefix := repo + "/"
	if dir != "" {
		prefix += dir + "/"
	}
	seen := map[string]string{}
	for key := range f.files {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		name, _, nested := strings.Cut(rest, "/")
		if nested {
			seen[name] = "dir"
		} else if _, dup := seen[name]; !dup {
			seen[name] = "file"
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	out := []map[string]any{}
	for _, n := range names {
		p := n
		if dir != "" {
			p = dir + "/" + n
		}
		out = append(out, map[string]any{"name": n, "path": p, "type": seen[n], "size": 1})
	}
	return out
}

func (f *fakeGitHub) putContents(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	path := chi.URLParam(r, "*")
	raw, _ := io.ReadAll(r.Body)
	req := gjson.ParseBytes(raw)

	content, err := base64.StdEncoding.DecodeString(req.Get("content").String())
	if err != nil || !req.Get("message").Exists() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid request."})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := repo + "/" + path
	current, exists := f.files[key]
	sha := req.Get("sha").String()
	switch {
	case exists && sha == "":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid request.\n\n\"sha\" wasn't supplied."})
		return
	case exists && sha != current.sha:
		writeJSON(w, http.StatusConflict, map[string]string{"message": path + " does not match " + sha})
		return
	case !exists && sha != "":
		notFoundBody(w)
		return
	}

	f.seq++
	next := fakeFile{content: string(content), sha: fmt.Sprintf("sha-%d", f.seq)}
	f.files[key] = next
	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"content": map[string]any{"path": path, "sha": next.sha},
		"commit":  map[string]any{"sha": fmt.Sprintf("commit-%d", f.seq), "html_url": "https://github.example/commit"},
	})
}

func (f *fakeGitHub) deleteContents(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	path := chi.URLParam(r, "*")
	raw, _ := io.ReadAll(r.Body)
	sha := gjson.GetBytes(raw, "sha").String()

	if f.deleteStatus != 0 {
		writeJSON(w, f.deleteStatus, map[string]string{"message": "delete refused"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := repo + "/" + path
	current, exists := f.files[key]
	switch {
	case !exists:
		notFoundBody(w)
		return
	case sha != current.sha:
		writeJSON(w, http.StatusConflict, map[string]string{"message": path + " does not match " + sha})
		return
	}
	delete(f.files, key)
	f.seq++
	writeJSON(w, http.StatusOK, map[string]any{
		"content": nil,
		"commit":  map[string]any{"sha": fmt.Sprintf("commit-%d", f.seq)},
	})
}

// requireOK fails unless res succeeded and returns its text parsed.
func requireOK(t *testing.T, res capability.Result) gjson.Result {
	t.Helper()
	require.Nil(t, res.Failure, "unexpected failure: %s", res.Text())
	require.Len(t, res.Content, 1)
	return gjson.Parse(res.Content[0].Text)
}

// requireFailure fails unless res failed with kind.
func requireFailure(t *testing.T, res capability.Result, kind capability.Kind) *capability.Failure {
	t.Helper()
	require.NotNil(t, res.Failure, "expected %s, got success: %s", kind, res.Text())
	require.Equal(t, kind, res.Failure.Kind, res.Text())
	return res.Failure
}
