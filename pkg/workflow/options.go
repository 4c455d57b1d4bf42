package workflow

import "time"

// Options control error handling and page retention for one run.
type Options struct {
	// StartNew runs on a fresh isolated page instead of the session page
	StartNew bool `json:"startNew,omitempty" yaml:"startNew,omitempty"`

	// ContinueOnError records failed steps and keeps going
	ContinueOnError bool `json:"continueOnError,omitempty" yaml:"continueOnError,omitempty"`

	// WaitBetweenSteps pauses this many milliseconds after each successful
	// step that has a successor
	WaitBetweenSteps int `json:"waitBetweenSteps,omitempty" yaml:"waitBetweenSteps,omitempty"`

	// CloseOnFinish closes the page after a run that was not aborted
	CloseOnFinish bool `json:"closeOnFinish,omitempty" yaml:"closeOnFinish,omitempty"`

	// KeepOpen keeps the page as the session page after the run. Nil means true.
	KeepOpen *bool `json:"keepOpen,omitempty" yaml:"keepOpen,omitempty"`

	// CloseOnError closes the page when the run is aborted
	CloseOnError bool `json:"closeOnError,omitempty" yaml:"closeOnError,omitempty"`
}

func (o Options) keepOpen() bool {
	return o.KeepOpen == nil || *o.KeepOpen
}

func (o Options) pause() time.Duration {
	if o.WaitBetweenSteps <= 0 {
		return 0
	}
	return time.Duration(o.WaitBetweenSteps) * time.Millisecond
}
