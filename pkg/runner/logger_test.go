package runner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/browserflow/pkg/workflow"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
		ok    bool
	}{
		{"quiet", LogLevelQuiet, true},
		{"normal", LogLevelNormal, true},
		{"", LogLevelNormal, true},
		{"verbose", LogLevelVerbose, true},
		{"debug", LogLevelDebug, true},
		{"loud", LogLevelNormal, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLogLevel(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	ok := workflow.StepResult{
		Index:   0,
		Success: true,
		Type:    "extract",
		Result:  &workflow.Result{Type: workflow.KindExtract, Text: "Example   Domain\n"},
	}
	failed := workflow.StepResult{Index: 1, Type: "click", Error: "step 1 (click #x): element not found"}

	tests := []struct {
		name        string
		level       LogLevel
		contains    []string
		notContains []string
	}{
		{
			name:        "quiet shows only failures",
			level:       LogLevelQuiet,
			contains:    []string{"element not found"},
			notContains: []string{"[1/2]", "Example Domain", "debug line"},
		},
		{
			name:        "normal shows each step",
			level:       LogLevelNormal,
			contains:    []string{"[1/2] extract", "[2/2] click", "element not found"},
			notContains: []string{"Example Domain", "debug line"},
		},
		{
			name:        "verbose adds results",
			level:       LogLevelVerbose,
			contains:    []string{"Example Domain"},
			notContains: []string{"debug line"},
		},
		{
			name:     "debug shows everything",
			level:    LogLevelDebug,
			contains: []string{"Example Domain", "debug line"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(tt.level, &buf)
			l.Step(ok, 2)
			l.Step(failed, 2)
			l.Debugf("debug line")

			out := buf.String()
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestLogger_Summary(t *testing.T) {
	index := 1
	exec := &workflow.Execution{
		Status:           workflow.StatusFailed,
		Steps:            []workflow.StepResult{{Success: true}, {Index: 1}},
		Error:            "step 1 (click): boom",
		FailingStepIndex: &index,
		Final:            &workflow.Final{URL: "https://example.com", Title: "Example Domain"},
		DurationMs:       1500,
	}

	var buf bytes.Buffer
	NewLogger(LogLevelQuiet, &buf).Summary("checkout", exec, []string{"out/execution.json"})

	out := buf.String()
	assert.Contains(t, out, "EXECUTION SUMMARY")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Workflow: checkout")
	assert.Contains(t, out, "Steps: 2 run, 1 failed")
	assert.Contains(t, out, "Duration: 1.5s")
	assert.Contains(t, out, "https://example.com (Example Domain)")
	assert.Contains(t, out, "step 1 (click): boom")
	assert.NotContains(t, out, "execution.json", "artifact list is hidden in quiet mode")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b", truncate(" a\n  b ", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 3))
}
