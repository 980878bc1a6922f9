package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFolderConventions_AbsentFolderIsMarker(t *testing.T) {
	f := newFakeGitHub(t, nil)
	f.put("demo", "README.md", "# demo")

	for _, fc := range folderConventions {
		t.Run(fc.name, func(t *testing.T) {
			doc := requireOK(t, f.dispatch(t, fc.name, map[string]any{"repo": "demo"}))
			assert.False(t, doc.Get("found").Bool())
			assert.True(t, doc.Get("found").Exists(), "absence must be explicit")
			assert.Equal(t, len(fc.paths), len(doc.Get("tried").Array()))
		})
	}
}

func TestFolderConventions_Listing(t *testing.T) {
	f := newFakeGitHub(t, nil)
	f.put("demo", "src/components/Header.tsx", "h")
	f.put("demo", "src/components/ui/button.tsx", "b")
	f.put("demo", "src/context/AuthContext.tsx", "a")

	doc := requireOK(t, f.dispatch(t, "list_components", map[string]any{"repo": "demo"}))
	assert.True(t, doc.Get("found").Bool())
	assert.Equal(t, int64(2), doc.Get("count").Int())

	custom := requireOK(t, f.dispatch(t, "list_custom_components", map[string]any{"repo": "demo"}))
	assert.Equal(t, []any{"Header.tsx"}, custom.Get("entries.#.name").Value())

	contexts := requireOK(t, f.dispatch(t, "list_contexts", map[string]any{"repo": "demo"}))
	assert.Equal(t, "src/context", contexts.Get("path").String())
	assert.Equal(t, []any{"AuthContext.tsx"}, contexts.Get("entries.#.name").Value())
}

func TestWellKnownFiles_AbsentFileIsMarker(t *testing.T) {
	f := newFakeGitHub(t, nil)

	for _, wf := range wellKnownFiles {
		t.Run(wf.name, func(t *testing.T) {
			doc := requireOK(t, f.dispatch(t, wf.name, map[string]any{"repo": "demo"}))
			assert.False(t, doc.Get("found").Bool())
			assert.Equal(t, len(wf.candidates), len(doc.Get("tried").Array()))
		})
	}
}

func TestWellKnownFiles_FallsBackThroughCandidates(t *testing.T) {
	f := newFakeGitHub(t, nil)
	f.put("demo", "tailwind.config.js", "module.exports = {}")

	doc := requireOK(t, f.dispatch(t, "get_tailwind_config", map[string]any{"repo": "demo"}))

	assert.True(t, doc.Get("found").Bool())
	assert.Equal(t, "tailwind.config.js", doc.Get("path").String())
	assert.Equal(t, "module.exports = {}", doc.Get("content").String())
}
