package tools

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"github.com/HendryAvila/repobridge/internal/capability"
)

func analysisCapabilities() []capability.Capability {
	return []capability.Capability{
		{
			Tool: mcp.NewTool("analyze_dependencies",
				mcp.WithDescription(
					"Group package.json dependencies into categories (ui, state, forms, routing, data, "+
						"backend, styling, testing, build, utilities, other).",
				),
				repoParam(),
				branchParam(),
			),
			Handler: analyzeDependencies,
		},
		{
			Tool: mcp.NewTool("get_routes",
				mcp.WithDescription("Extract client-side routes (path and element) from the router entry file."),
				repoParam(),
				mcp.WithString("file",
					mcp.Description("File declaring the routes"),
					mcp.DefaultString("src/App.tsx"),
				),
				branchParam(),
			),
			Handler: getRoutes,
		},
	}
}

// category pairs a bucket with the name fragments that select it. Order
// matters: the first matching category wins.
type category struct {
	name      string
	fragments []string
}

var dependencyCategories = []category{
	{"testing", []string{"vitest", "jest", "@testing-library", "playwright", "cypress"}},
	{"ui", []string{"@radix-ui", "shadcn", "lucide", "@headlessui", "@mui", "antd", "chakra", "framer-motion", "react-icons", "cmdk", "sonner", "vaul", "embla", "recharts"}},
	{"state", []string{"zustand", "redux", "jotai", "recoil", "mobx", "valtio"}},
	{"forms", []string{"react-hook-form", "@hookform", "formik", "zod", "yup"}},
	{"routing", []string{"react-router", "wouter", "@tanstack/react-router"}},
	{"data", []string{"@tanstack/react-query", "react-query", "swr", "axios", "graphql", "apollo"}},
	{"backend", []string{"supabase", "firebase", "prisma", "drizzle", "@trpc", "stripe"}},
	{"styling", []string{"tailwind", "styled-components", "@emotion", "sass", "postcss", "autoprefixer", "class-variance-authority", "clsx"}},
	{"build", []string{"vite", "typescript", "eslint", "prettier", "webpack", "esbuild", "@types/", "globals"}},
	{"utilities", []string{"date-fns", "lodash", "dayjs", "uuid", "moment", "nanoid"}},
}

const otherCategory = "other"

// categorize returns the bucket for a dependency name.
func categorize(name string) string {
	lower := strings.ToLower(name)
	for _, c := range dependencyCategories {
		for _, f := range c.fragments {
			if strings.Contains(lower, f) {
				return c.name
			}
		}
	}
	return otherCategory
}

// Dependency is one declared package.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dev     bool   `json:"dev"`
}

// DependencyReport is the categorized manifest.
type DependencyReport struct {
	Found      bool                    `json:"found"`
	Name       string                  `json:"name,omitempty"`
	Version    string                  `json:"version,omitempty"`
	Total      int                     `json:"total"`
	Categories map[string][]Dependency `json:"categories"`
}

// categorizeManifest parses a package.json (comments and trailing commas
// tolerated) and buckets its dependencies.
func categorizeManifest(raw []byte) (*DependencyReport, error) {
	clean := jsonc.ToJSON(raw)
	if !gjson.ValidBytes(clean) {
		return nil, capability.Errorf(capability.KindUpstreamFailure, "package.json is not valid JSON")
	}
	doc := gjson.ParseBytes(clean)

	report := &DependencyReport{
		Found:      true,
		Name:       doc.Get("name").String(),
		Version:    doc.Get("version").String(),
		Categories: map[string][]Dependency{},
	}
	add := func(section string, dev bool) {
		doc.Get(section).ForEach(func(k, v gjson.Result) bool {
			dep := Dependency{Name: k.String(), Version: v.String(), Dev: dev}
			cat := categorize(dep.Name)
			report.Categories[cat] = append(report.Categories[cat], dep)
			report.Total++
			return true
		})
	}
	add("dependencies", false)
	add("devDependencies", true)

	for _, deps := range report.Categories {
		sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	}
	return report, nil
}

func analyzeDependencies(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	f, err := firstFile(ctx, ex, args.String("repo"), args.String("branch"), []string{"package.json"})
	if err != nil {
		return nil, err
	}
	if f == nil {
		return notFound("package.json"), nil
	}
	return categorizeManifest([]byte(f.Content))
}

// Route is one declared client-side route.
type Route struct {
	Path    string `json:"path"`
	Element string `json:"element,omitempty"`
}

var (
	jsxRouteStart = regexp.MustCompile(`<Route\b`)
	routePathAttr = regexp.MustCompile(`\bpath\s*=\s*(?:\{\s*)?["'` + "`" + `]([^"'` + "`" + `]*)["'` + "`" + `]`)
	routeIndex    = regexp.MustCompile(`^\s+index\b`)
	routeElement  = regexp.MustCompile(`\belement\s*=\s*\{\s*<\s*([A-Za-z_][\w.]*)`)
	objectRoute   = regexp.MustCompile(`\{\s*path\s*:\s*["'` + "`" + `]([^"'` + "`" + `]*)["'` + "`" + `](?:[^{}]*?element\s*:\s*<\s*([A-Za-z_][\w.]*))?`)
)

// extractRoutes finds JSX <Route> declarations, falling back to
// createBrowserRouter-style objects.
func extractRoutes(src string) []Route {
	routes := []Route{}

	starts := jsxRouteStart.FindAllStringIndex(src, -1)
	for i, loc := range starts {
		end := len(src)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		tag := src[loc[1]:end]

		var r Route
		if m := routePathAttr.FindStringSubmatch(tag); m != nil {
			r.Path = m[1]
		} else if routeIndex.MatchString(tag) {
			r.Path = "(index)"
		} else {
			// Layout route without a path.
			continue
		}
		if m := routeElement.FindStringSubmatch(tag); m != nil {
			r.Element = m[1]
		}
		routes = append(routes, r)
	}
	if len(routes) > 0 {
		return routes
	}

	for _, m := range objectRoute.FindAllStringSubmatch(src, -1) {
		routes = append(routes, Route{Path: m[1], Element: m[2]})
	}
	return routes
}

func getRoutes(ctx context.Context, ex capability.Exec, args capability.Args) (any, error) {
	file := args.String("file")
	f, err := firstFile(ctx, ex, args.String("repo"), args.String("branch"), []string{file})
	if err != nil {
		return nil, err
	}
	if f == nil {
		return notFound(file), nil
	}
	routes := extractRoutes(f.Content)
	return map[string]any{
		"found":  true,
		"file":   file,
		"count":  len(routes),
		"routes": routes,
	}, nil
}
