package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/vidvault/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the staging janitor",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default: server.host:server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	return withApp(func(a *app) error {
		if !a.muxer.Available() {
			a.log.Warn("muxer binary not found, split streams will not be merged", "binary", a.cfg.Muxer.Binary)
		}
		if err := os.MkdirAll(a.cfg.Paths.StagingDir, 0755); err != nil {
			return fmt.Errorf("create staging dir: %w", err)
		}

		api, err := a.apiServer()
		if err != nil {
			return err
		}

		if addr == "" {
			addr = net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
		}
		runner := server.NewRunner(api.Handler(), a.cache, server.Config{
			Addr:            addr,
			JanitorEnabled:  a.cfg.Janitor.Enabled,
			JanitorInterval: a.cfg.Janitor.Interval,
			JanitorMaxAge:   a.cfg.Janitor.MaxAge,
			StagingDir:      a.cfg.Paths.StagingDir,
		}, a.log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a.log.Info("vidvault starting",
			"version", version,
			"addr", addr,
			"library", a.cfg.Paths.LibraryDir,
			"staging", a.cfg.Paths.StagingDir)

		if err := runner.Run(ctx); err != nil {
			return err
		}
		a.log.Info("server stopped")
		return nil
	})
}
