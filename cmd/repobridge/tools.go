package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/repobridge/internal/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools exposed to MCP clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range tools.All() {
				if _, err := fmt.Fprintf(w, "%s\t%s\n", c.Name(), c.Tool.Description); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
}
