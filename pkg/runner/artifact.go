package runner

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/browserflow/pkg/workflow"
)

// Report is what the artifact writer records for one run.
type Report struct {
	Name      string              `json:"name,omitempty"`
	Source    string              `json:"source,omitempty"`
	Execution *workflow.Execution `json:"execution"`

	// LogSession and LogFile locate the detailed log of the run
	LogSession string `json:"logSession,omitempty"`
	LogFile    string `json:"logFile,omitempty"`
}

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    config,
	}
}

// WriteAll writes all configured artifact formats and returns the paths
// written.
func (w *ArtifactWriter) WriteAll(report *Report) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	if w.config.JSON {
		path, err := w.WriteExecutionJSON(report)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if w.config.Markdown {
		path, err := w.WriteSummaryMarkdown(report)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if w.config.Screenshots {
		paths, err := w.WriteScreenshots(report.Execution)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// WriteExecutionJSON writes the full execution report as JSON
func (w *ArtifactWriter) WriteExecutionJSON(report *Report) (string, error) {
	path := filepath.Join(w.outputDir, "execution.json")

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution report: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write execution JSON: %w", writeErr)
	}

	return path, nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(report *Report) (string, error) {
	path := filepath.Join(w.outputDir, "summary.md")
	exec := report.Execution

	var md strings.Builder

	md.WriteString("# Browserflow Execution Summary\n\n")
	if report.Name != "" {
		md.WriteString(fmt.Sprintf("**Workflow:** %s\n\n", report.Name))
	}
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", exec.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", exec.StartedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %dms\n\n", exec.DurationMs))

	md.WriteString("## Result\n\n")
	if exec.Success {
		md.WriteString("✅ **Success**\n\n")
	} else {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", exec.Error))
		if exec.FailingStepIndex != nil && *exec.FailingStepIndex >= 0 {
			md.WriteString(fmt.Sprintf("First failing step: %d\n\n", *exec.FailingStepIndex+1))
		}
	}

	if exec.Final != nil {
		md.WriteString(fmt.Sprintf("**Final page:** %s (%s)\n\n", exec.Final.URL, exec.Final.Title))
	}
	if report.LogFile != "" {
		md.WriteString(fmt.Sprintf("**Log:** %s (session %s)\n\n", report.LogFile, report.LogSession))
	}

	if len(exec.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		md.WriteString("| # | Type | Label | Result | Duration |\n")
		md.WriteString("|---|------|-------|--------|----------|\n")
		for _, step := range exec.Steps {
			outcome := "✅"
			if !step.Success {
				outcome = "❌ " + escapeCell(step.Error)
			}
			md.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %dms |\n",
				step.Index+1, step.Type, escapeCell(step.Label), outcome, step.DurationMs))
		}
		md.WriteString("\n")
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return path, nil
}

// WriteScreenshots decodes every successful screenshot step to a PNG file
// named after its step index.
func (w *ArtifactWriter) WriteScreenshots(exec *workflow.Execution) ([]string, error) {
	var written []string
	for _, step := range exec.Screenshots() {
		data, err := base64.StdEncoding.DecodeString(step.Result.Image)
		if err != nil {
			return written, fmt.Errorf("step %d: invalid screenshot data: %w", step.Index, err)
		}

		path := filepath.Join(w.outputDir, fmt.Sprintf("step-%02d-screenshot.png", step.Index+1))
		if err := os.WriteFile(path, data, 0600); err != nil {
			return written, fmt.Errorf("failed to write screenshot: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
