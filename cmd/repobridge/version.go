package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HendryAvila/repobridge/internal/config"
	"github.com/HendryAvila/repobridge/internal/github"
	"github.com/HendryAvila/repobridge/internal/server"
	"github.com/HendryAvila/repobridge/internal/updater"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "repobridge v%s\n", server.Version)
			return err
		},
	}
}

func newCheckUpdateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check-update",
		Short: "Check GitHub for a newer release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A token is optional here; public releases need none.
			apiURL := config.DefaultAPIURL
			token := ""
			if cfg, err := loadConfig(cmd, v); err == nil {
				apiURL, token = cfg.APIURL, cfg.Token
			}

			client := github.NewClient(apiURL, token, github.WithUserAgent(server.Name+"/"+server.Version))
			result := updater.CheckVersion(cmd.Context(), client, server.Version)

			out := cmd.OutOrStdout()
			switch {
			case result.LatestVersion == "":
				_, err := fmt.Fprintln(out, "Could not determine the latest release.")
				return err
			case result.UpdateAvailable:
				_, err := fmt.Fprintf(out, "Update available: v%s -> v%s\n%s\n",
					result.CurrentVersion, result.LatestVersion, result.ReleaseURL)
				return err
			default:
				_, err := fmt.Fprintf(out, "Already at the latest version (v%s)\n", result.CurrentVersion)
				return err
			}
		},
	}
}
