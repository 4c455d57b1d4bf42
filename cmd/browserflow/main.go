// Package main is the browserflow command: run workflow files against a
// headless browser, or serve the workflow engine over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/browserflow/pkg/runner"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand(ctx).Execute()
	stop()
	if err == nil {
		return
	}

	if !errors.Is(err, runner.ErrWorkflowFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
