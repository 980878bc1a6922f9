package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HendryAvila/repobridge/internal/capability"
)

func TestGenerateBuildURL(t *testing.T) {
	f := newFakeGitHub(t, nil)

	res := f.dispatch(t, "generate_build_url", map[string]any{"prompt": "todo app"})

	requireOK(t, res)
	assert.Equal(t, testBuildPrefix+"todo%20app", res.Content[0].Text)
	assert.Equal(t, int32(0), f.calls.Load(), "no upstream call")
}

func TestGenerateBuildURL_Images(t *testing.T) {
	f := newFakeGitHub(t, nil)

	res := f.dispatch(t, "generate_build_url", map[string]any{
		"prompt": "landing page",
		"images": []any{"https://img.example/a.png?x=1&y=2"},
	})

	requireOK(t, res)
	assert.Equal(t,
		testBuildPrefix+"landing%20page&images=https%3A%2F%2Fimg.example%2Fa.png%3Fx%3D1%26y%3D2",
		res.Content[0].Text)
}

func TestGenerateBuildURL_InvalidPrompt(t *testing.T) {
	f := newFakeGitHub(t, nil)

	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "missing", args: map[string]any{}},
		{name: "blank", args: map[string]any{"prompt": "   "}},
		{name: "wrong type", args: map[string]any{"prompt": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure := requireFailure(t, f.dispatch(t, "generate_build_url", tt.args), capability.KindInvalidArguments)
			assert.Equal(t, "prompt", failure.Field)
		})
	}
}

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc-_.!~*'()", "abc-_.!~*'()"},
		{"a b", "a%20b"},
		{"a+b=c&d", "a%2Bb%3Dc%26d"},
		{"#/?", "%23%2F%3F"},
		{"café", "caf%C3%A9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, encodeURIComponent(tt.in), tt.in)
	}
}
