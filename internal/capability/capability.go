// Package capability holds the named remote procedures the bridge exposes:
// the registry that describes them, the argument validation applied before
// a handler runs, and the dispatcher that turns every request into exactly
// one Result.
//
// Handlers are plain functions of (arguments, execution context). They never
// see the transport; the dispatcher is the only place where errors are
// classified and converted into the wire format.
package capability

import (
	"context"

	"github.com/HendryAvila/repobridge/internal/github"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler executes one capability with validated arguments.
// The returned value is rendered as text (strings) or indented JSON.
type Handler func(ctx context.Context, ex Exec, args Args) (any, error)

// Capability pairs a tool definition (name + input schema) with its handler.
type Capability struct {
	Tool    mcp.Tool
	Handler Handler
}

// Name returns the capability name.
func (c Capability) Name() string {
	return c.Tool.Name
}

// Exec is the execution context shared by every handler invocation.
type Exec struct {
	Upstream *github.Client
	// Owner is the account whose repositories the bridge operates on.
	Owner string
	// BuildURLPrefix is prepended to generated build links.
	BuildURLPrefix string
}

// Repo builds an API path under /repos/{Owner}/{repo}.
func (e Exec) Repo(repo string, parts ...string) string {
	return github.RepoPath(e.Owner, repo, parts...)
}

// Request is one inbound call.
type Request struct {
	SessionID string
	Name      string
	Arguments map[string]any
}

// Args is a validated argument record. Optional arguments with a declared
// default are always present.
type Args map[string]any

// String returns the string at key, or "".
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Bool returns the boolean at key, or false.
func (a Args) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

// Int returns the number at key truncated to int, or 0.
// JSON numbers decode as float64.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Has reports whether key was supplied (or defaulted).
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Strings returns the string array at key, skipping non-string items.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
