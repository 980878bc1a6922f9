package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/repobridge/internal/config"
	"github.com/HendryAvila/repobridge/internal/resources"
	"github.com/HendryAvila/repobridge/internal/tools"
	"github.com/HendryAvila/repobridge/internal/transport"
)

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Token:                 "test-token",
		Owner:                 "acme",
		APIURL:                apiURL,
		Host:                  "127.0.0.1",
		Port:                  3000,
		BuildURLPrefix:        "https://builder.test/#prompt=",
		UpstreamTimeout:       5 * time.Second,
		MaxConcurrentUpstream: 4,
		IdleTimeout:           time.Minute,
		HeartbeatInterval:     time.Minute,
	}
}

func TestNew_RegistersEveryCapability(t *testing.T) {
	b, err := New(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	assert.Equal(t, len(tools.All()), b.Registry.Len())
	_, ok := b.Registry.Resolve("read_file")
	assert.True(t, ok)
	assert.NotNil(t, b.MCP)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestBridge_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/shop":
			w.Write([]byte(`{"name":"shop","full_name":"acme/shop","default_branch":"main","private":false}`))
		case "/repos/acme/shop/commits":
			w.Write([]byte(`[{"sha":"c1","commit":{"message":"init","author":{"name":"Ana","date":"2024-01-01T00:00:00Z"}}}]`))
		case "/rate_limit":
			w.Write([]byte(`{"resources":{"core":{"limit":5000,"remaining":5000,"reset":0}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	b, err := New(testConfig(upstream.URL))
	require.NoError(t, err)

	tcfg := transport.DefaultConfig()
	tcfg.Heartbeat = time.Minute
	srv := transport.New(tcfg, b.MCP, b.Registry)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.SSEClientTransport{Endpoint: ts.URL + "/sse"}, nil)
	require.NoError(t, err)
	defer session.Close()

	t.Run("list tools", func(t *testing.T) {
		list, err := session.ListTools(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, list.Tools, b.Registry.Len())
	})

	t.Run("build url without upstream", func(t *testing.T) {
		res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "generate_build_url",
			Arguments: map[string]any{"prompt": "todo app"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)
		text, ok := res.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "https://builder.test/#prompt=todo%20app")
	})

	t.Run("upstream call", func(t *testing.T) {
		res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "get_project",
			Arguments: map[string]any{"repo": "shop"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)
		text, ok := res.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "acme/shop")
		assert.Contains(t, text.Text, `"recentCommits"`)
		assert.Contains(t, text.Text, `"packageJson"`)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "get_project",
			Arguments: map[string]any{},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("prompts", func(t *testing.T) {
		list, err := session.ListPrompts(ctx, nil)
		require.NoError(t, err)
		names := map[string]bool{}
		for _, p := range list.Prompts {
			names[p.Name] = true
		}
		assert.True(t, names["project-overview"])
		assert.True(t, names["safe-edit"])
	})

	t.Run("status resource", func(t *testing.T) {
		res, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: resources.StatusURI})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Contains(t, res.Contents[0].Text, `"owner": "acme"`)
	})
}
