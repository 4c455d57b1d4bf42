package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/browserflow/pkg/workflow"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only errors, warnings and the final summary
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows one line per step (default)
	LogLevelNormal
	// LogLevelVerbose adds step results
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	mintGreen   = lipgloss.Color("#A8E6CF")
	amber       = lipgloss.Color("#FCD34D")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")

	headerStyle  = lipgloss.NewStyle().Foreground(brightWhite).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(amber)
	detailStyle  = lipgloss.NewStyle().Foreground(mutedGray)
)

// Logger prints run progress and the final summary to the console.
type Logger struct {
	level  LogLevel
	writer io.Writer
}

// NewLogger creates a logger writing to w, or stdout when w is nil.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{level: level, writer: w}
}

func (l *Logger) println(style lipgloss.Style, s string) {
	fmt.Fprintln(l.writer, style.Render(s))
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		rule := strings.Repeat("=", 70)
		fmt.Fprintln(l.writer)
		l.println(headerStyle, rule)
		l.println(headerStyle, "  "+message)
		l.println(headerStyle, rule)
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		l.println(sectionStyle, "▶ "+title)
		l.println(detailStyle, strings.Repeat("─", 50))
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...any) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer, fmt.Sprintf(format, args...))
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...any) {
	l.println(warningStyle, "⚠ Warning: "+fmt.Sprintf(format, args...))
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...any) {
	l.println(failureStyle, "✗ Error: "+fmt.Sprintf(format, args...))
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...any) {
	if l.level >= LogLevelVerbose {
		l.println(detailStyle, "→ "+fmt.Sprintf(format, args...))
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...any) {
	if l.level >= LogLevelDebug {
		l.println(detailStyle, "[DEBUG] "+fmt.Sprintf(format, args...))
	}
}

// Step prints the outcome of one step.
func (l *Logger) Step(result workflow.StepResult, total int) {
	if l.level < LogLevelNormal {
		if !result.Success {
			l.Errorf("step %d (%s): %s", result.Index+1, result.Type, result.Error)
		}
		return
	}

	name := result.Type
	if result.Label != "" {
		name = fmt.Sprintf("%s %q", result.Type, result.Label)
	}
	line := fmt.Sprintf("[%d/%d] %s (%dms)", result.Index+1, total, name, result.DurationMs)
	if result.Success {
		l.println(successStyle, "✓ "+line)
	} else {
		l.println(failureStyle, "✗ "+line)
		l.println(detailStyle, "    "+result.Error)
	}

	if result.Success && result.Result != nil && l.level >= LogLevelVerbose {
		if detail := describeResult(result.Result); detail != "" {
			l.println(detailStyle, "    "+detail)
		}
	}
}

// describeResult renders the interesting part of a step result on one line.
func describeResult(r *workflow.Result) string {
	switch r.Type {
	case workflow.KindNavigate, workflow.KindClick:
		if r.URL == "" {
			return ""
		}
		return fmt.Sprintf("%s (%s)", r.URL, r.Title)
	case workflow.KindExtract:
		if r.Values != nil {
			return fmt.Sprintf("%d values", len(r.Values))
		}
		return truncate(r.Text, 120)
	case workflow.KindEvaluate:
		return truncate(fmt.Sprint(r.Value), 120)
	case workflow.KindScreenshot:
		return fmt.Sprintf("%d bytes (base64)", len(r.Image))
	case workflow.KindWait:
		return fmt.Sprintf("waited %dms", r.Duration)
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// Summary prints the final execution summary. It is shown at every level.
func (l *Logger) Summary(name string, exec *workflow.Execution, artifacts []string) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(l.writer)
	l.println(headerStyle, rule)
	l.println(headerStyle, "  EXECUTION SUMMARY")
	l.println(headerStyle, rule)

	status := string(exec.Status)
	switch exec.Status {
	case workflow.StatusSucceeded:
		status = successStyle.Render("✓ SUCCEEDED")
	case workflow.StatusFailed:
		status = warningStyle.Render("⚠ FAILED (continued on error)")
	case workflow.StatusAborted:
		status = failureStyle.Render("✗ ABORTED")
	case workflow.StatusError:
		status = failureStyle.Render("✗ ERROR")
	}
	fmt.Fprintf(l.writer, "  Status: %s\n", status)
	if name != "" {
		fmt.Fprintf(l.writer, "  Workflow: %s\n", name)
	}
	fmt.Fprintf(l.writer, "  Steps: %d run, %d failed\n", len(exec.Steps), len(exec.Failed()))
	fmt.Fprintf(l.writer, "  Duration: %s\n", (time.Duration(exec.DurationMs) * time.Millisecond).String())

	if exec.Final != nil {
		fmt.Fprintf(l.writer, "  Final page: %s", exec.Final.URL)
		if exec.Final.Title != "" {
			fmt.Fprintf(l.writer, " (%s)", exec.Final.Title)
		}
		fmt.Fprintln(l.writer)
	}

	if exec.Error != "" {
		fmt.Fprintln(l.writer)
		l.println(failureStyle, "  Error Details:")
		fmt.Fprintf(l.writer, "    %s\n", exec.Error)
	}

	if len(artifacts) > 0 && l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		fmt.Fprintln(l.writer, "  Artifacts:")
		for _, path := range artifacts {
			fmt.Fprintf(l.writer, "    • %s\n", path)
		}
	}

	l.println(headerStyle, rule)
	fmt.Fprintln(l.writer)
}

// parseLogLevel converts a verbosity name to a LogLevel.
func parseLogLevel(level string) (LogLevel, bool) {
	switch level {
	case "quiet":
		return LogLevelQuiet, true
	case "normal", "":
		return LogLevelNormal, true
	case "verbose":
		return LogLevelVerbose, true
	case "debug":
		return LogLevelDebug, true
	default:
		return LogLevelNormal, false
	}
}
