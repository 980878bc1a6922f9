package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HendryAvila/repobridge/internal/config"
	"github.com/HendryAvila/repobridge/internal/logging"
	"github.com/HendryAvila/repobridge/internal/server"
	"github.com/HendryAvila/repobridge/internal/transport"
	"github.com/HendryAvila/repobridge/internal/updater"
)

// shutdownTimeout bounds the wait for in-flight tool calls on exit.
const shutdownTimeout = 15 * time.Second

// Set at build time via ldflags.
var (
	commit    = ""
	buildTime = ""
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (SSE transport)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			skipCheck, _ := cmd.Flags().GetBool("no-update-check")
			return runServe(cmd.Context(), cfg, !skipCheck)
		},
	}

	cmd.Flags().String("host", config.DefaultHost, "Interface to listen on")
	cmd.Flags().IntP("port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().Duration("idle-timeout", config.DefaultIdleTimeout, "Close sessions idle for this long (0 disables)")
	cmd.Flags().Duration("heartbeat", config.DefaultHeartbeatInterval, "Interval between SSE keep-alive comments")
	cmd.Flags().Duration("upstream-timeout", config.DefaultUpstreamTimeout, "Per-request timeout for GitHub calls")
	cmd.Flags().Int("max-concurrent", config.DefaultMaxConcurrentUpstream, "Maximum concurrent GitHub calls")
	cmd.Flags().Bool("no-update-check", false, "Skip the background release check")

	_ = v.BindPFlag(config.KeyHost, cmd.Flags().Lookup("host"))
	_ = v.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port"))
	_ = v.BindPFlag(config.KeyIdleTimeout, cmd.Flags().Lookup("idle-timeout"))
	_ = v.BindPFlag(config.KeyHeartbeatInterval, cmd.Flags().Lookup("heartbeat"))
	_ = v.BindPFlag(config.KeyUpstreamTimeout, cmd.Flags().Lookup("upstream-timeout"))
	_ = v.BindPFlag(config.KeyMaxConcurrentUpstream, cmd.Flags().Lookup("max-concurrent"))

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, checkUpdates bool) error {
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: os.Stderr,
		Pretty: cfg.LogPretty,
	})

	bridge, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	tcfg := transport.DefaultConfig()
	tcfg.Addr = cfg.Addr()
	tcfg.Heartbeat = cfg.HeartbeatInterval
	tcfg.IdleTimeout = cfg.IdleTimeout
	tcfg.Version = server.Version
	tcfg.Commit = commit
	tcfg.BuildTime = buildTime
	srv := transport.New(tcfg, bridge.MCP, bridge.Registry)

	logging.Info().
		Str("version", server.Version).
		Str("owner", cfg.Owner).
		Str("api", cfg.APIURL).
		Int("tools", bridge.Registry.Len()).
		Msg("starting repobridge")

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if checkUpdates {
		go checkForUpdates(ctx, bridge)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("shutdown incomplete")
	}
	return <-errCh
}

// checkForUpdates logs a notice when a newer release exists.
func checkForUpdates(ctx context.Context, bridge *server.Bridge) {
	result := updater.CheckVersion(ctx, bridge.Upstream, server.Version)
	if result.UpdateAvailable {
		logging.Info().
			Str("current", result.CurrentVersion).
			Str("latest", result.LatestVersion).
			Str("release", result.ReleaseURL).
			Msg("update available")
	}
}
