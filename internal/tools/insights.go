package tools

import (
	"context"
	"math"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/HendryAvila/repobridge/internal/capability"
)

func insightCapabilities() []capability.Capability {
	return []capability.Capability{
		{
			Tool: mcp.NewTool("get_contributors",
				mcp.WithDescription("List contributors ordered by number of commits."),
				repoParam(),
			),
			Handler: getContributors,
		},
		{
			Tool: mcp.NewTool("get_languages",
				mcp.WithDescription("Language breakdown in bytes and percent."),
				repoParam(),
			),
			Handler: getLanguages,
		},
	}
}

// Contributor is one contributor.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int64  `json:"contributions"`
	URL           string `json:"url"`
}

func getContributors(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	list, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "contributors"), pageQuery(100))
	if err != nil {
		return nil, err
	}
	out := []Contributor{}
	for _, c := range list.Array() {
		out = append(out, Contributor{
			Login:         c.Get("login").String(),
			Contributions: c.Get("contributions").Int(),
			URL:           c.Get("html_url").String(),
		})
	}
	return out, nil
}

// Language is one entry of a language breakdown.
type Language struct {
	Name       string  `json:"name"`
	Bytes      int64   `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// languageBreakdown converts {"Go": 1234, ...} into entries sorted by
// size, with percentages rounded to one decimal.
func languageBreakdown(doc gjson.Result) []Language {
	out := []Language{}
	var total int64
	doc.ForEach(func(k, v gjson.Result) bool {
		out = append(out, Language{Name: k.String(), Bytes: v.Int()})
		total += v.Int()
		return true
	})
	for i := range out {
		if total > 0 {
			out[i].Percentage = math.Round(float64(out[i].Bytes)*1000/float64(total)) / 10
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func getLanguages(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	doc, err := getJSON(ctx, ex, ex.Repo(args.String("repo"), "languages"), nil)
	if err != nil {
		return nil, err
	}
	langs := languageBreakdown(doc)
	var total int64
	for _, l := range langs {
		total += l.Bytes
	}
	return map[string]any{
		"totalBytes": total,
		"languages":  langs,
	}, nil
}
