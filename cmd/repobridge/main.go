// repobridge: GitHub repositories as MCP tools over SSE.
//
// Exposes one owner's repositories (files, history, pull requests,
// issues, search and project introspection) to any MCP client.
//
// Usage:
//
//	repobridge serve          # Start the SSE server
//	repobridge tools          # List exposed tools
//	repobridge check-update   # Look for a newer release
//	repobridge version
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
