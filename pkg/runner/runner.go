// Package runner executes workflow files from the command line: it runs
// the steps, prints progress and a summary, and writes artifacts.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/entrhq/browserflow/pkg/logging"
	"github.com/entrhq/browserflow/pkg/workflow"
)

// ErrWorkflowFailed is returned when a run completes with failed steps.
var ErrWorkflowFailed = errors.New("workflow failed")

// Runner executes one workflow file.
type Runner struct {
	config       *Config
	source       string
	orchestrator *workflow.Orchestrator
	console      *Logger
	artifacts    *ArtifactWriter
	logger       *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sends console output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		level, _ := parseLogLevel(r.config.Logging.Verbosity)
		r.console = NewLogger(level, w)
	}
}

// WithSource records the workflow file path in artifacts.
func WithSource(path string) Option {
	return func(r *Runner) {
		r.source = path
	}
}

// New creates a runner for config. A nil interpreter gets the default
// configuration.
func New(config *Config, sessions workflow.Sessions, interpreter *workflow.Interpreter, logger *logging.Logger, opts ...Option) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := parseLogLevel(config.Logging.Verbosity)
	r := &Runner{
		config:       config,
		orchestrator: workflow.NewOrchestrator(sessions, interpreter, logger),
		console:      NewLogger(level, nil),
		logger:       logger,
	}
	if config.Artifacts.Enabled {
		r.artifacts = NewArtifactWriter(config.Artifacts.OutputDir, config.Artifacts)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes the workflow. The execution is returned even when the run
// fails; the error is ErrWorkflowFailed for failed steps, or the
// acquisition error when no page could be opened.
func (r *Runner) Run(ctx context.Context) (*workflow.Execution, error) {
	title := "Browserflow"
	if r.config.Name != "" {
		title += ": " + r.config.Name
	}
	r.console.Header(title)
	r.console.Verbosef("%d steps, continueOnError=%t, startNew=%t",
		len(r.config.Steps), r.config.Options.ContinueOnError, r.config.Options.StartNew)

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
		r.console.Debugf("Run timeout: %s", r.config.Timeout)
	}

	exec, runErr := r.orchestrator.Run(ctx, r.config.Steps, r.config.Options)

	r.console.Section("Steps")
	for _, step := range exec.Steps {
		r.console.Step(step, len(r.config.Steps))
	}

	var written []string
	if r.artifacts != nil {
		var err error
		report := &Report{
			Name:      r.config.Name,
			Source:    r.source,
			Execution: exec,
		}
		if r.logger != nil {
			report.LogSession = r.logger.SessionID()
			report.LogFile = r.logger.LogPath()
		}
		written, err = r.artifacts.WriteAll(report)
		if err != nil {
			r.console.Warningf("failed to write artifacts: %v", err)
		}
	}

	r.console.Summary(r.config.Name, exec, written)

	if runErr != nil {
		return exec, runErr
	}
	if !exec.Success {
		return exec, fmt.Errorf("%w: %s", ErrWorkflowFailed, exec.Error)
	}
	return exec, nil
}
