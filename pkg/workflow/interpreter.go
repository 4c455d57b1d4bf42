package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/browserflow/pkg/browser"
	"github.com/entrhq/browserflow/pkg/logging"
)

// Default step parameters.
const (
	DefaultWait      = time.Second
	DefaultTypeDelay = 20 * time.Millisecond
)

// action is the registry entry for one kind. validate must not touch the
// page; run is only called with a step validate accepted.
type action struct {
	validate func(*Interpreter, Step) error
	run      func(context.Context, *Interpreter, browser.Page, Step) (*Result, error)
}

// actions is the closed registry of step kinds. Every entry of kinds has one.
var actions = map[Kind]action{
	KindNavigate:        {validate: validateNavigate, run: runNavigate},
	KindWaitForSelector: {validate: validateWaitForSelector, run: runWaitForSelector},
	KindWait:            {validate: validateWait, run: runWait},
	KindClick:           {validate: validateClick, run: runClick},
	KindType:            {validate: validateType, run: runType},
	KindSelect:          {validate: validateSelect, run: runSelect},
	KindHover:           {validate: requireSelector, run: runHover},
	KindScroll:          {validate: validateScroll, run: runScroll},
	KindExtract:         {validate: validateExtract, run: runExtract},
	KindScreenshot:      {validate: validateScreenshot, run: runScreenshot},
	KindEvaluate:        {validate: validateEvaluate, run: runEvaluate},
}

func init() {
	if missing := unregisteredKinds(); len(missing) > 0 {
		panic(fmt.Sprintf("workflow: no action registered for %v", missing))
	}
}

func unregisteredKinds() []Kind {
	var missing []Kind
	for _, kind := range kinds {
		if _, ok := actions[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	return missing
}

// InterpreterConfig configures an Interpreter.
type InterpreterConfig struct {
	// HostPolicy rejects navigation to disallowed hosts. Nil allows all.
	HostPolicy *browser.HostPolicy

	// DefaultWait is used by wait steps without a duration
	DefaultWait time.Duration

	// DefaultTypeDelay is the per-character delay of type steps
	DefaultTypeDelay time.Duration

	Logger *logging.Logger
}

// Interpreter executes single steps against a page.
type Interpreter struct {
	policy      *browser.HostPolicy
	defaultWait time.Duration
	typeDelay   time.Duration
	logger      *logging.Logger
}

// NewInterpreter creates an interpreter.
func NewInterpreter(config InterpreterConfig) *Interpreter {
	if config.DefaultWait <= 0 {
		config.DefaultWait = DefaultWait
	}
	if config.DefaultTypeDelay < 0 {
		config.DefaultTypeDelay = 0
	} else if config.DefaultTypeDelay == 0 {
		config.DefaultTypeDelay = DefaultTypeDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard("interpreter")
	}
	return &Interpreter{
		policy:      config.HostPolicy,
		defaultWait: config.DefaultWait,
		typeDelay:   config.DefaultTypeDelay,
		logger:      logger,
	}
}

// Validate checks a step without running it.
func (in *Interpreter) Validate(step Step, index int) (Kind, error) {
	if step.decodeErr != nil {
		vErr := *step.decodeErr
		vErr.Index = index
		vErr.Kind, _ = ParseKind(step.Type)
		return vErr.Kind, &vErr
	}

	kind, ok := ParseKind(step.Type)
	if !ok {
		return "", &UnsupportedStepTypeError{Index: index, Type: step.Type}
	}
	if err := actions[kind].validate(in, step); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			vErr.Index = index
			vErr.Kind = kind
			return kind, vErr
		}
		return kind, &ValidationError{Index: index, Kind: kind, Field: "step", Reason: err.Error()}
	}
	return kind, nil
}

// Execute runs step against page. The returned StepResult is filled in for
// failures too; the error is one of *ValidationError,
// *UnsupportedStepTypeError, *ActionError or *ConnectivityError.
func (in *Interpreter) Execute(ctx context.Context, page browser.Page, step Step, index int) (StepResult, error) {
	start := time.Now()
	sr := StepResult{
		Index: index,
		Type:  step.Type,
		Label: step.Label,
	}

	kind, err := in.Validate(step, index)
	if err == nil {
		var result *Result
		result, err = in.run(ctx, page, kind, step, index)
		sr.Result = result
	}

	sr.DurationMs = time.Since(start).Milliseconds()
	observeStep(kind, err, time.Since(start))

	if err != nil {
		sr.Error = err.Error()
		in.logger.Warnf("Step %d (%s) failed: %v", index, step.Type, err)
		return sr, err
	}
	sr.Success = true
	in.logger.Debugf("Step %d (%s) done in %dms", index, kind, sr.DurationMs)
	return sr, nil
}

func (in *Interpreter) run(ctx context.Context, page browser.Page, kind Kind, step Step, index int) (*Result, error) {
	if page == nil {
		return nil, &ConnectivityError{Index: index, Kind: kind, Err: browser.ErrDisconnected}
	}

	result, err := actions[kind].run(ctx, in, page, step)
	if err == nil {
		return result, nil
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		vErr.Index = index
		vErr.Kind = kind
		return nil, vErr
	}
	if browser.IsDisconnected(err) {
		return nil, &ConnectivityError{Index: index, Kind: kind, Err: err}
	}
	return nil, &ActionError{Index: index, Kind: kind, Selector: step.Selector, Err: err}
}

// milliseconds converts a millisecond step field, treating 0 as unset.
func milliseconds(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
