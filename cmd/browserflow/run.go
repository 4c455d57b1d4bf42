package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/browserflow/pkg/runner"
)

func getCmdRun(gs *globalState) *cobra.Command {
	var (
		outputDir   string
		verbosity   string
		timeout     time.Duration
		noArtifacts bool
	)

	runCmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Run a workflow file",
		Long: `Run the steps of a YAML or JSON workflow file in a headless browser.

  The browser is closed when the run ends. Results are written to the
  artifacts directory unless --no-artifacts is set.`,
		Example: `  browserflow run checkout.yaml
  browserflow run --verbosity verbose --output out/ scrape.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := runner.LoadConfig(args[0])
			if err != nil {
				return err
			}

			// Flags override the workflow file
			if cmd.Flags().Changed("output") {
				config.Artifacts.OutputDir = outputDir
			}
			if cmd.Flags().Changed("verbosity") {
				config.Logging.Verbosity = verbosity
			}
			if cmd.Flags().Changed("timeout") {
				config.Timeout = timeout
			}
			if noArtifacts {
				config.Artifacts.Enabled = false
			}

			interpreter, err := gs.newInterpreter()
			if err != nil {
				return fmt.Errorf("invalid host policy: %w", err)
			}

			sessions := gs.newSessions()
			defer gs.shutdown(sessions)

			r, err := runner.New(config, sessions, interpreter, gs.logger.With("workflow"),
				runner.WithOutput(gs.stdout), runner.WithSource(args[0]))
			if err != nil {
				return err
			}

			_, err = r.Run(gs.ctx)
			return err
		},
	}

	flags := runCmd.Flags()
	flags.StringVarP(&outputDir, "output", "o", "", "artifacts directory")
	flags.StringVar(&verbosity, "verbosity", "normal", "console output: quiet, normal, verbose, debug")
	flags.DurationVar(&timeout, "timeout", 0, "bound the whole run")
	flags.BoolVar(&noArtifacts, "no-artifacts", false, "do not write artifacts")
	return runCmd
}
