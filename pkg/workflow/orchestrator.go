package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/browserflow/pkg/browser"
	"github.com/entrhq/browserflow/pkg/logging"
)

// Sessions supplies pages to the orchestrator. *browser.SessionManager
// implements it.
type Sessions interface {
	Ensure(ctx context.Context) (browser.Browser, browser.Page, error)
	AcquireFresh(ctx context.Context) (browser.Page, error)
	Retain(page browser.Page)
	Release(page browser.Page) error
}

// Phase is a state of a single run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAcquiring
	PhaseRunning
	PhaseFinalizing
	PhaseAborting
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAcquiring:
		return "acquiring"
	case PhaseRunning:
		return "running"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseAborting:
		return "aborting"
	case PhaseTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Orchestrator runs step sequences on pages obtained from Sessions.
//
// Runs that share the session page (StartNew unset) are not serialized:
// concurrent runs may interleave their steps on that page. Use StartNew for
// isolation.
type Orchestrator struct {
	sessions    Sessions
	interpreter *Interpreter
	logger      *logging.Logger
}

// NewOrchestrator creates an orchestrator. A nil interpreter gets the
// default configuration.
func NewOrchestrator(sessions Sessions, interpreter *Interpreter, logger *logging.Logger) *Orchestrator {
	if interpreter == nil {
		interpreter = NewInterpreter(InterpreterConfig{Logger: logger})
	}
	if logger == nil {
		logger = logging.Discard("workflow")
	}
	return &Orchestrator{
		sessions:    sessions,
		interpreter: interpreter,
		logger:      logger,
	}
}

// run holds the state of a single Run call.
type run struct {
	o     *Orchestrator
	id    string
	phase Phase
	page  browser.Page
	steps []Step
	opts  Options
	exec  *Execution

	// lost is set once a step found the browser gone
	lost bool
}

func (r *run) enter(phase Phase) {
	r.o.logger.Debugf("Workflow %s: %s -> %s", r.id, r.phase, phase)
	r.phase = phase
}

// Run executes steps in order and returns the execution report. Step
// failures are reported in the Execution, not as an error; the error is
// non-nil only when no page could be acquired.
func (o *Orchestrator) Run(ctx context.Context, steps []Step, opts Options) (*Execution, error) {
	r := &run{
		o:     o,
		id:    uuid.NewString(),
		phase: PhaseIdle,
		steps: steps,
		opts:  opts,
	}
	r.exec = &Execution{
		ID:        r.id,
		Steps:     make([]StepResult, 0, len(steps)),
		StartedAt: time.Now(),
	}
	o.logger.Infof("Workflow %s started: %d steps (startNew=%t, continueOnError=%t)",
		r.id, len(steps), opts.StartNew, opts.ContinueOnError)

	err := r.acquire(ctx)
	if err == nil {
		if r.execute(ctx) {
			r.finalize(ctx)
		} else {
			r.abort()
		}
	}
	r.enter(PhaseTerminal)

	exec := r.exec
	exec.FinishedAt = time.Now()
	exec.DurationMs = exec.FinishedAt.Sub(exec.StartedAt).Milliseconds()
	metricRuns.WithLabelValues(string(exec.Status)).Inc()
	o.logger.Infof("Workflow %s %s in %dms (%d/%d steps)", r.id, exec.Status, exec.DurationMs, len(exec.Steps), len(steps))
	return exec, err
}

func (r *run) acquire(ctx context.Context) error {
	r.enter(PhaseAcquiring)

	var page browser.Page
	var err error
	if r.opts.StartNew {
		page, err = r.o.sessions.AcquireFresh(ctx)
	} else {
		_, page, err = r.o.sessions.Ensure(ctx)
	}
	if err != nil {
		err = fmt.Errorf("failed to acquire page: %w", err)
		r.exec.Status = StatusError
		r.exec.fail(-1, err.Error())
		r.o.logger.Errorf("Workflow %s: %v", r.id, err)
		return err
	}
	r.page = page
	return nil
}

// execute runs the steps and reports whether the run may finalize.
func (r *run) execute(ctx context.Context) bool {
	r.enter(PhaseRunning)
	r.exec.Success = true

	for i, step := range r.steps {
		if err := ctx.Err(); err != nil {
			r.exec.Steps = append(r.exec.Steps, StepResult{
				Index: i,
				Type:  step.Type,
				Label: step.Label,
				Error: fmt.Sprintf("step %d (%s): %v", i, step.Type, err),
			})
			r.exec.fail(i, err.Error())
			return false
		}

		result, err := r.o.interpreter.Execute(ctx, r.page, step, i)
		r.exec.Steps = append(r.exec.Steps, result)

		if err != nil {
			r.exec.fail(i, err.Error())
			if IsConnectivity(err) {
				r.lost = true
			}
			if !r.opts.ContinueOnError {
				return false
			}
			continue
		}

		if pause := r.opts.pause(); pause > 0 && i < len(r.steps)-1 {
			// Cancellation is picked up before the next step
			_ = sleep(ctx, pause)
		}
	}
	return true
}

func (r *run) finalize(ctx context.Context) {
	r.enter(PhaseFinalizing)

	if r.exec.Success {
		r.exec.Status = StatusSucceeded
	} else {
		r.exec.Status = StatusFailed
	}

	// The final snapshot describes a successful run only
	if r.exec.Success && !r.page.IsClosed() {
		final := &Final{URL: r.page.URL()}
		title, err := r.page.Title(ctx)
		if err != nil {
			r.o.logger.Warnf("Workflow %s: failed to read final title: %v", r.id, err)
		}
		final.Title = title
		r.exec.Final = final
	}

	if r.lost {
		r.dropLostPage()
		return
	}
	if r.opts.CloseOnFinish || !r.opts.keepOpen() {
		r.release()
		return
	}
	r.o.sessions.Retain(r.page)
}

func (r *run) abort() {
	r.enter(PhaseAborting)
	r.exec.Status = StatusAborted

	if r.lost {
		r.dropLostPage()
		return
	}
	if r.opts.CloseOnError {
		r.release()
		return
	}
	// The page stays open as the session page so a continuation resumes
	// where this run stopped
	r.o.sessions.Retain(r.page)
}

func (r *run) release() {
	if err := r.o.sessions.Release(r.page); err != nil {
		r.o.logger.Warnf("Workflow %s: %v", r.id, err)
	}
}

// dropLostPage leaves a page whose browser is gone to the session manager,
// which discards it and relaunches on the next acquisition.
func (r *run) dropLostPage() {
	r.o.logger.Warnf("Workflow %s: browser lost, page %s dropped", r.id, r.page.ID())
}
