package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/browserflow/pkg/browser"
)

func validateType(in *Interpreter, step Step) error {
	if err := requireSelector(in, step); err != nil {
		return err
	}
	if step.Text == nil {
		return invalid("text", "is required")
	}
	if step.Delay != nil && *step.Delay < 0 {
		return invalid("delay", "must not be negative")
	}
	return nil
}

func runType(ctx context.Context, in *Interpreter, page browser.Page, step Step) (*Result, error) {
	if step.FocusFirst {
		if err := page.Focus(ctx, step.Selector); err != nil {
			return nil, err
		}
	}
	if step.Clear {
		if err := page.Clear(ctx, step.Selector); err != nil {
			return nil, err
		}
	}

	delay := in.typeDelay
	if step.Delay != nil {
		delay = milliseconds(*step.Delay)
	}
	if err := page.Type(ctx, step.Selector, *step.Text, browser.TypeOptions{Delay: delay}); err != nil {
		return nil, err
	}
	return &Result{Type: KindType, Selector: step.Selector}, nil
}

func validateSelect(in *Interpreter, step Step) error {
	if err := requireSelector(in, step); err != nil {
		return err
	}
	if len(step.Value) == 0 {
		return invalid("value", "is required")
	}
	return nil
}

func runSelect(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	selected, err := page.Select(ctx, step.Selector, step.Value)
	if err != nil {
		return nil, err
	}
	return &Result{Type: KindSelect, Selector: step.Selector, Values: selected}, nil
}

func runHover(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	if err := page.Hover(ctx, step.Selector); err != nil {
		return nil, err
	}
	return &Result{Type: KindHover, Selector: step.Selector}, nil
}

const (
	scrollTopScript    = `() => window.scrollTo(0, 0)`
	scrollBottomScript = `() => window.scrollTo(0, document.body.scrollHeight)`
	scrollByScript     = `(dy) => window.scrollBy(0, dy)`
)

func validateScroll(_ *Interpreter, step Step) error {
	switch step.To {
	case "", "top", "bottom":
		return nil
	default:
		return invalid("to", fmt.Sprintf("must be top or bottom, got %q", step.To))
	}
}

// runScroll resolves the target in order: selector, to, by, then bottom.
func runScroll(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	switch {
	case strings.TrimSpace(step.Selector) != "":
		if err := page.ScrollIntoView(ctx, step.Selector); err != nil {
			return nil, err
		}
		return &Result{Type: KindScroll, Selector: step.Selector}, nil

	case step.To == "top":
		if _, err := page.Evaluate(ctx, scrollTopScript, nil); err != nil {
			return nil, err
		}
		return &Result{Type: KindScroll, To: "top"}, nil

	case step.To == "" && step.By != 0:
		if _, err := page.Evaluate(ctx, scrollByScript, step.By); err != nil {
			return nil, err
		}
		return &Result{Type: KindScroll, By: step.By}, nil

	default:
		if _, err := page.Evaluate(ctx, scrollBottomScript, nil); err != nil {
			return nil, err
		}
		return &Result{Type: KindScroll, To: "bottom"}, nil
	}
}
