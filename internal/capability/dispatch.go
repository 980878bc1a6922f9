package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/HendryAvila/repobridge/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Dispatcher turns Requests into Results. It holds no mutable state, so
// concurrent dispatches for any mix of sessions run independently.
type Dispatcher struct {
	registry *Registry
	exec     Exec
}

// NewDispatcher creates a Dispatcher over a sealed registry.
func NewDispatcher(registry *Registry, ex Exec) *Dispatcher {
	return &Dispatcher{registry: registry, exec: ex}
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch resolves, validates and runs one request. It always returns a
// Result; handler panics and errors are converted into failures.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	log := logging.With().
		Str("tool", req.Name).
		Str("session", req.SessionID).
		Logger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("capability handler panicked")
			res = FailureResult(KindInternal, "", fmt.Sprintf("handler panicked: %v", rec))
		}
		if res.Failure != nil {
			log.Warn().
				Str("kind", string(res.Failure.Kind)).
				Str("field", res.Failure.Field).
				Int("status", res.Failure.Status).
				Dur("elapsed", time.Since(start)).
				Msg(res.Failure.Message)
			return
		}
		log.Debug().Dur("elapsed", time.Since(start)).Msg("capability completed")
	}()

	e, ok := d.registry.entries[req.Name]
	if !ok {
		return FailureResult(KindUnknownCapability, "", fmt.Sprintf("unknown capability %q", req.Name))
	}

	args, verr := e.validate(req.Arguments)
	if verr != nil {
		return Result{Failure: &Failure{Kind: verr.Kind, Field: verr.Field, Message: verr.Message}}
	}

	out, err := e.cap.Handler(ctx, d.exec, args)
	if err != nil {
		return Result{Failure: Classify(err)}
	}

	text, err := render(out)
	if err != nil {
		return FailureResult(KindInternal, "", fmt.Sprintf("rendering result: %v", err))
	}
	return TextResult(text)
}

// render converts handler output into text.
func render(out any) (string, error) {
	switch v := out.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Install registers every capability as an MCP tool on s. Tool calls flow
// through Dispatch so validation and error shaping are the same for every
// transport. A tools/call naming an unregistered tool never reaches
// Dispatch: mcp-go rejects it with a JSON-RPC error.
func (d *Dispatcher) Install(s *server.MCPServer) {
	for _, c := range d.registry.Capabilities() {
		s.AddTool(c.Tool, d.toolHandler(c.Name()))
	}
}

// toolHandler adapts Dispatch to mcp-go's handler signature.
func (d *Dispatcher) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sessionID string
		if cs := server.ClientSessionFromContext(ctx); cs != nil {
			sessionID = cs.SessionID()
		}

		if req.Params.Arguments != nil {
			if _, ok := req.Params.Arguments.(map[string]any); !ok {
				return ToCallToolResult(FailureResult(KindInvalidArguments, "", "arguments must be an object")), nil
			}
		}

		res := d.Dispatch(ctx, Request{
			SessionID: sessionID,
			Name:      name,
			Arguments: req.GetArguments(),
		})
		return ToCallToolResult(res), nil
	}
}

// ToCallToolResult converts a Result into the MCP wire shape. Failures are
// ordinary results flagged IsError, with the classified failure attached as
// structured content.
func ToCallToolResult(res Result) *mcp.CallToolResult {
	if res.Failure != nil {
		out := mcp.NewToolResultError(res.Text())
		out.StructuredContent = res.Failure
		return out
	}
	content := make([]mcp.Content, 0, len(res.Content))
	for _, b := range res.Content {
		content = append(content, mcp.NewTextContent(b.Text))
	}
	return &mcp.CallToolResult{Content: content}
}
