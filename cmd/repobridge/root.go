package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HendryAvila/repobridge/internal/config"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "repobridge",
		Short: "GitHub repositories as MCP tools over SSE",
		Long: `repobridge exposes the repositories of one GitHub owner to MCP clients.

Configuration comes from the environment (GITHUB_TOKEN, GITHUB_OWNER, ...),
an optional .env file, and command-line flags, in increasing precedence.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Human-readable console logs")
	_ = v.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogPretty, rootCmd.PersistentFlags().Lookup("log-pretty"))

	rootCmd.AddCommand(
		newServeCmd(v),
		newToolsCmd(),
		newCheckUpdateCmd(v),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig resolves the configuration through v after reading the
// dotenv file named by --env-file.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	return config.Load(v, files...)
}
