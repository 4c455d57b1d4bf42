package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/browserflow/pkg/browser"
	"github.com/entrhq/browserflow/pkg/config"
	"github.com/entrhq/browserflow/pkg/logging"
	"github.com/entrhq/browserflow/pkg/workflow"
)

// globalState is shared by every subcommand.
type globalState struct {
	ctx    context.Context
	stdout io.Writer

	flags struct {
		configPath string
		logLevel   string
		install    bool
		headed     bool
	}

	config *config.Manager
	logger *logging.Logger
}

func newRootCommand(ctx context.Context) *cobra.Command {
	gs := &globalState{ctx: ctx, stdout: os.Stdout}

	rootCmd := &cobra.Command{
		Use:               "browserflow",
		Short:             "Run declarative browser workflows",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: gs.init,
		PersistentPostRun: func(*cobra.Command, []string) {
			if gs.logger != nil {
				_ = gs.logger.Close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&gs.flags.configPath, "config", "c", "", "config file (default ~/.browserflow/config.json)")
	flags.StringVar(&gs.flags.logLevel, "log-level", "info", "file log level: debug, info, warn, error")
	flags.BoolVar(&gs.flags.install, "install", false, "download the Playwright driver and Chromium before launching")
	flags.BoolVar(&gs.flags.headed, "headed", false, "show the browser window")

	rootCmd.AddCommand(getCmdRun(gs), getCmdServe(gs), getCmdConfig(gs))
	return rootCmd
}

func (gs *globalState) init(cmd *cobra.Command, _ []string) error {
	manager, err := config.Load(gs.flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	gs.config = manager

	level, err := logging.ParseLevel(gs.flags.logLevel)
	if err != nil {
		return err
	}
	// A logger is returned even on error, writing to stderr
	gs.logger, _ = logging.NewLogger("browserflow")
	gs.logger.SetLevel(level)
	gs.logger.Debugf("Command %s started (log file %s)", cmd.Name(), gs.logger.LogPath())

	if store, ok := manager.Store().(*config.FileStore); ok && store.IsModified() {
		gs.logger.Warnf("Configuration %s has no sections object, run 'browserflow config init' to rewrite it", store.Path())
	}
	return nil
}

// newSessions builds the session manager from configuration and flags.
func (gs *globalState) newSessions() *browser.SessionManager {
	sessionConfig := gs.config.Browser().SessionConfig()
	if gs.flags.headed {
		sessionConfig.Launch.Headless = false
	}
	sessionConfig.Logger = gs.logger.With("browser")

	driver := browser.NewPlaywrightDriver(browser.PlaywrightOptions{
		Install: gs.flags.install,
		Verbose: gs.flags.logLevel == "debug",
	})
	return browser.NewSessionManager(driver, sessionConfig)
}

func (gs *globalState) newInterpreter() (*workflow.Interpreter, error) {
	policy, err := gs.config.Browser().HostPolicy()
	if err != nil {
		return nil, err
	}
	return workflow.NewInterpreter(workflow.InterpreterConfig{
		HostPolicy: policy,
		Logger:     gs.logger.With("interpreter"),
	}), nil
}

// shutdown closes the browser and stops the driver, logging instead of
// failing the command.
func (gs *globalState) shutdown(sessions *browser.SessionManager) {
	if err := sessions.Shutdown(); err != nil {
		gs.logger.Warnf("Shutdown: %v", err)
	}
}
