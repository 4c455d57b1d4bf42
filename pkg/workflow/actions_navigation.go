package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/browserflow/pkg/browser"
)

// waitUntilStates maps accepted waitUntil values to driver load states.
var waitUntilStates = map[string]string{
	"":                 "load",
	"load":             "load",
	"domcontentloaded": "domcontentloaded",
	"networkidle":      "networkidle",
	"networkidle0":     "networkidle",
	"networkidle2":     "networkidle",
	"commit":           "commit",
}

func validateNavigate(in *Interpreter, step Step) error {
	if strings.TrimSpace(step.URL) == "" {
		return invalid("url", "is required")
	}
	if _, ok := waitUntilStates[step.WaitUntil]; !ok {
		return invalid("waitUntil", fmt.Sprintf("unknown state %q", step.WaitUntil))
	}
	if step.Timeout < 0 {
		return invalid("timeout", "must not be negative")
	}
	if err := in.policy.Check(step.URL); err != nil {
		return invalid("url", err.Error())
	}
	return nil
}

func runNavigate(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	err := page.Goto(ctx, strings.TrimSpace(step.URL), browser.NavigateOptions{
		WaitUntil: waitUntilStates[step.WaitUntil],
		Timeout:   milliseconds(step.Timeout),
	})
	if err != nil {
		return nil, err
	}

	title, err := page.Title(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Type: KindNavigate, URL: page.URL(), Title: title}, nil
}

func requireSelector(_ *Interpreter, step Step) error {
	if strings.TrimSpace(step.Selector) == "" {
		return invalid("selector", "is required")
	}
	return nil
}

func validateWaitForSelector(in *Interpreter, step Step) error {
	if err := requireSelector(in, step); err != nil {
		return err
	}
	if step.Timeout < 0 {
		return invalid("timeout", "must not be negative")
	}
	return nil
}

func runWaitForSelector(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	visible := step.Visible == nil || *step.Visible
	err := page.WaitForSelector(ctx, step.Selector, browser.WaitOptions{
		Visible: visible,
		Timeout: milliseconds(step.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Type: KindWaitForSelector, Selector: step.Selector}, nil
}

// waitDuration picks the first duration field that is set.
func waitDuration(in *Interpreter, step Step) int {
	for _, ms := range []int{step.Ms, step.Timeout, step.Duration} {
		if ms > 0 {
			return ms
		}
	}
	return int(in.defaultWait.Milliseconds())
}

func validateWait(_ *Interpreter, step Step) error {
	if step.Ms < 0 || step.Timeout < 0 || step.Duration < 0 {
		return invalid("ms", "must not be negative")
	}
	return nil
}

func runWait(ctx context.Context, in *Interpreter, _ browser.Page, step Step) (*Result, error) {
	ms := waitDuration(in, step)
	if err := sleep(ctx, milliseconds(ms)); err != nil {
		return nil, err
	}
	return &Result{Type: KindWait, Duration: ms}, nil
}

var mouseButtons = map[string]bool{"": true, "left": true, "right": true, "middle": true}

func validateClick(in *Interpreter, step Step) error {
	if err := requireSelector(in, step); err != nil {
		return err
	}
	if !mouseButtons[step.Button] {
		return invalid("button", fmt.Sprintf("must be left, right or middle, got %q", step.Button))
	}
	if step.ClickCount < 0 {
		return invalid("clickCount", "must not be negative")
	}
	if step.DelayBefore < 0 || step.DelayAfter < 0 {
		return invalid("delay", "must not be negative")
	}
	if _, ok := waitUntilStates[step.WaitUntil]; !ok {
		return invalid("waitUntil", fmt.Sprintf("unknown state %q", step.WaitUntil))
	}
	return nil
}

func runClick(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	if err := sleep(ctx, milliseconds(step.DelayBefore)); err != nil {
		return nil, err
	}
	if step.ScrollIntoView {
		if err := page.ScrollIntoView(ctx, step.Selector); err != nil {
			return nil, err
		}
	}

	opts := browser.ClickOptions{
		Button:     step.Button,
		ClickCount: step.ClickCount,
	}
	result := &Result{Type: KindClick, Selector: step.Selector}

	if step.WaitForNavigation {
		if err := clickAndWait(ctx, page, step, opts); err != nil {
			return nil, err
		}
		result.URL = page.URL()
	} else if err := page.Click(ctx, step.Selector, opts); err != nil {
		return nil, err
	}

	if err := sleep(ctx, milliseconds(step.DelayAfter)); err != nil {
		return nil, err
	}
	return result, nil
}

// clickAndWait runs the click and the navigation wait as a join. The click
// is issued only after the navigation waiter is armed so the navigation
// cannot be missed; both must succeed.
func clickAndWait(ctx context.Context, page browser.Page, step Step, opts browser.ClickOptions) error {
	armed := make(chan struct{})
	var once sync.Once

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return page.WaitForNavigation(gctx, browser.NavigateOptions{
			WaitUntil: waitUntilStates[step.WaitUntil],
			Timeout:   milliseconds(step.Timeout),
		}, func() {
			once.Do(func() { close(armed) })
		})
	})
	g.Go(func() error {
		select {
		case <-armed:
		case <-gctx.Done():
			return gctx.Err()
		}
		return page.Click(gctx, step.Selector, opts)
	})
	return g.Wait()
}
