package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_JSON(t *testing.T) {
	data := []byte(`{
		"steps": [
			{"type": "navigate", "url": "https://example.com", "waitUntil": "networkidle2"},
			{"type": "select", "selector": "select#role", "value": "admin"},
			{"type": "select", "selector": "select#tags", "value": ["a", "b"]},
			{"type": "select", "selector": "select#qty", "value": 3},
			{"type": "type", "selector": "input", "text": "", "clear": true},
			{"type": "waitForSelector", "selector": "#x", "visible": false}
		],
		"options": {"startNew": true, "waitBetweenSteps": 250, "keepOpen": false}
	}`)

	req, err := ParseRequest(data)
	require.NoError(t, err)
	require.Len(t, req.Steps, 6)

	assert.Equal(t, "networkidle2", req.Steps[0].WaitUntil)
	assert.Equal(t, StringList{"admin"}, req.Steps[1].Value)
	assert.Equal(t, StringList{"a", "b"}, req.Steps[2].Value)
	assert.Equal(t, StringList{"3"}, req.Steps[3].Value)
	require.NotNil(t, req.Steps[4].Text, "an empty text is present, not missing")
	assert.Equal(t, "", *req.Steps[4].Text)
	require.NotNil(t, req.Steps[5].Visible)
	assert.False(t, *req.Steps[5].Visible)

	assert.True(t, req.Options.StartNew)
	assert.Equal(t, 250, req.Options.WaitBetweenSteps)
	assert.False(t, req.Options.keepOpen())
}

func TestParseRequest_YAML(t *testing.T) {
	data := []byte(`
steps:
  - type: goto
    url: https://example.com
  - type: select
    selector: select#role
    value: admin
  - type: select
    selector: select#tags
    value: [a, b]
  - type: evaluate
    script: |
      const t = document.title;
      return t;
options:
  continueOnError: true
`)

	req, err := ParseRequest(data)
	require.NoError(t, err)
	require.Len(t, req.Steps, 4)

	assert.Equal(t, "goto", req.Steps[0].Type)
	assert.Equal(t, StringList{"admin"}, req.Steps[1].Value)
	assert.Equal(t, StringList{"a", "b"}, req.Steps[2].Value)
	assert.Contains(t, req.Steps[3].Script, "return t;")
	assert.True(t, req.Options.ContinueOnError)
	assert.True(t, req.Options.keepOpen(), "keepOpen defaults to true")
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "   "},
		{"no steps", `{"steps": []}`},
		{"bad json", `{"steps": [}`},
		{"bad yaml", "steps: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseRequest_MalformedFieldsFailTheirStep(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		index int
		field string
	}{
		{
			name:  "numeric url",
			data:  `{"steps": [{"type": "navigate", "url": 42}]}`,
			index: 0,
			field: "url",
		},
		{
			name:  "string ms",
			data:  `{"steps": [{"type": "navigate", "url": "https://example.com"}, {"type": "wait", "ms": "250"}]}`,
			index: 1,
			field: "ms",
		},
		{
			name:  "object value",
			data:  `{"steps": [{"type": "select", "selector": "s", "value": {"a": 1}}]}`,
			index: 0,
			field: "value",
		},
		{
			name:  "step is not an object",
			data:  `{"steps": ["navigate"]}`,
			index: 0,
			field: "step",
		},
		{
			name:  "yaml string ms",
			data:  "steps:\n  - type: wait\n    ms: \"250\"\n",
			index: 0,
			field: "ms",
		},
		{
			name:  "yaml list url",
			data:  "steps:\n  - type: extract\n  - type: navigate\n    url: [a, b]\n",
			index: 1,
			field: "url",
		},
	}

	in := NewInterpreter(InterpreterConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.data))
			require.NoError(t, err)

			_, err = in.Validate(req.Steps[tt.index], tt.index)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.index, vErr.Index)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestParseRequest_MalformedStepKeepsOtherFields(t *testing.T) {
	req, err := ParseRequest([]byte(`{"steps": [{"type": "wait", "label": "pause", "ms": "250"}]}`))
	require.NoError(t, err)

	step := req.Steps[0]
	assert.Equal(t, "wait", step.Type)
	assert.Equal(t, "pause", step.Label)
	assert.Zero(t, step.Ms)
}

func TestParseRequest_MalformedStepIsReportedInOrder(t *testing.T) {
	req, err := ParseRequest([]byte(`{"steps": [
		{"type": "navigate", "url": "https://example.com"},
		{"type": "wait", "ms": "250"},
		{"type": "extract"}
	]}`))
	require.NoError(t, err)

	o, _, _ := newTestOrchestrator(t)
	exec, err := o.Run(context.Background(), req.Steps, req.Options)
	require.NoError(t, err)

	assert.False(t, exec.Success)
	require.Len(t, exec.Steps, 2)
	assert.True(t, exec.Steps[0].Success)
	assert.False(t, exec.Steps[1].Success)
	assert.Equal(t, "wait", exec.Steps[1].Type)
	assert.Contains(t, exec.Steps[1].Error, "invalid ms")
	require.NotNil(t, exec.FailingStepIndex)
	assert.Equal(t, 1, *exec.FailingStepIndex)
}
