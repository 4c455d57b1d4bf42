package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/browserflow/pkg/server"
)

func getCmdServe(gs *globalState) *cobra.Command {
	var cfg server.Config

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow engine over HTTP",
		Long: `Serve the workflow engine over HTTP.

  One browser session is shared by every request. It is launched on the
  first request, closed after the idle timeout, and always closed on
  shutdown.`,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			address, requestTimeout, maxBody, idle := gs.config.Server().Settings()
			flags := cmd.Flags()
			if !flags.Changed("address") {
				cfg.Address = address
			}
			if !flags.Changed("request-timeout") {
				cfg.RequestTimeout = requestTimeout
			}
			if !flags.Changed("idle-timeout") {
				cfg.IdleTimeout = idle
			}
			cfg.MaxBodyBytes = maxBody
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			interpreter, err := gs.newInterpreter()
			if err != nil {
				return err
			}

			sessions := gs.newSessions()
			defer gs.shutdown(sessions)

			srv := server.New(cfg, sessions, interpreter, gs.logger.With("server"))
			return srv.Run(gs.ctx)
		},
	}

	flags := serveCmd.Flags()
	flags.StringVarP(&cfg.Address, "address", "a", "", "listen address (default from config, 127.0.0.1:3000)")
	flags.DurationVar(&cfg.RequestTimeout, "request-timeout", 0, "per-request timeout (default from config, 90s)")
	flags.DurationVar(&cfg.IdleTimeout, "idle-timeout", 0, "close the browser after this long unused, 0 to disable")
	flags.StringVar(&cfg.SearchURL, "search-url", server.DefaultSearchURL, "results page for /search, %s is the query")
	return serveCmd
}
