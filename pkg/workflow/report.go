package workflow

import "time"

// Result is the payload of a successful step. Only the fields that apply to
// the step's kind are set.
type Result struct {
	Type     Kind   `json:"type"`
	Selector string `json:"selector,omitempty"`

	// navigate, click with navigation
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`

	// extract
	Text   string   `json:"text,omitempty"`
	Values []string `json:"values,omitempty"`
	HTML   string   `json:"html,omitempty"`

	// screenshot, base64 PNG
	Image string `json:"image,omitempty"`

	// evaluate
	Value any `json:"value,omitempty"`

	// wait, milliseconds
	Duration int `json:"duration,omitempty"`

	// scroll
	To string `json:"to,omitempty"`
	By int    `json:"by,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index      int     `json:"index"`
	Success    bool    `json:"success"`
	Type       string  `json:"type"`
	Label      string  `json:"label,omitempty"`
	Result     *Result `json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs int64   `json:"durationMs"`
}

// Final is the page state captured when a run finishes.
type Final struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Status summarizes how a run ended.
type Status string

const (
	// StatusSucceeded means every step succeeded
	StatusSucceeded Status = "succeeded"

	// StatusFailed means every step ran but at least one failed
	StatusFailed Status = "failed"

	// StatusAborted means a failure stopped the run early
	StatusAborted Status = "aborted"

	// StatusError means no page could be acquired
	StatusError Status = "error"
)

// Execution is the report of one run.
type Execution struct {
	ID               string       `json:"id"`
	Success          bool         `json:"success"`
	Status           Status       `json:"status"`
	Steps            []StepResult `json:"steps"`
	Final            *Final       `json:"final,omitempty"`
	Error            string       `json:"error,omitempty"`
	FailingStepIndex *int         `json:"failingStepIndex,omitempty"`
	StartedAt        time.Time    `json:"startedAt"`
	FinishedAt       time.Time    `json:"finishedAt"`
	DurationMs       int64        `json:"durationMs"`
}

// Failed returns the results of the steps that failed.
func (e *Execution) Failed() []StepResult {
	var failed []StepResult
	for _, step := range e.Steps {
		if !step.Success {
			failed = append(failed, step)
		}
	}
	return failed
}

// Screenshots returns the results of successful screenshot steps.
func (e *Execution) Screenshots() []StepResult {
	var shots []StepResult
	for _, step := range e.Steps {
		if step.Success && step.Result != nil && step.Result.Type == KindScreenshot {
			shots = append(shots, step)
		}
	}
	return shots
}

func (e *Execution) fail(index int, message string) {
	e.Success = false
	if e.FailingStepIndex == nil {
		e.FailingStepIndex = &index
		e.Error = message
	}
}
