package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/repobridge/internal/capability"
)

func buildCapabilities() []capability.Capability {
	return []capability.Capability{
		{
			Tool: mcp.NewTool("generate_build_url",
				mcp.WithDescription("Build a link that opens the app builder with the prompt (and optional reference images) prefilled."),
				mcp.WithString("prompt", mcp.Required(), mcp.Description("What to build")),
				mcp.WithArray("images",
					mcp.Description("Reference image URLs"),
					mcp.WithStringItems(),
				),
			),
			Handler: generateBuildURL,
		},
	}
}

func generateBuildURL(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	prompt := args.String("prompt")
	if strings.TrimSpace(prompt) == "" {
		return nil, invalidArg("prompt", "prompt must not be empty")
	}
	return BuildURL(ex.BuildURLPrefix, prompt, args.Strings("images")), nil
}

// BuildURL appends the encoded prompt to prefix, then one images
// parameter per image.
func BuildURL(prefix, prompt string, images []string) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(encodeURIComponent(prompt))
	for _, img := range images {
		sb.WriteString("&images=")
		sb.WriteString(encodeURIComponent(img))
	}
	return sb.String()
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 and -_.!~*'().
// url.QueryEscape differs: it writes spaces as + and escapes !*'().
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
