package workflow

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/browserflow/pkg/browser"
)

const (
	formatText = "text"
	formatHTML = "html"
)

func validateExtract(_ *Interpreter, step Step) error {
	switch step.Format {
	case "", formatText:
	case formatHTML:
		if step.All {
			return invalid("all", "is not supported with format html")
		}
	default:
		return invalid("format", fmt.Sprintf("must be text or html, got %q", step.Format))
	}
	return nil
}

func runExtract(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	if step.Format == formatHTML {
		return extractHTML(ctx, page, step)
	}

	result := &Result{Type: KindExtract, Selector: step.Selector}
	switch {
	case step.Selector != "" && step.All:
		texts, err := page.AllTextContents(ctx, step.Selector)
		if err != nil {
			return nil, err
		}
		values := make([]string, len(texts))
		for i, text := range texts {
			values[i] = strings.TrimSpace(text)
		}
		result.Values = values

	case step.Selector != "":
		text, err := page.TextContent(ctx, step.Selector)
		if err != nil {
			return nil, err
		}
		result.Text = strings.TrimSpace(text)

	default:
		text, err := page.InnerText(ctx, "body")
		if err != nil {
			return nil, err
		}
		result.Text = strings.TrimSpace(text)
	}
	return result, nil
}

func extractHTML(ctx context.Context, page browser.Page, step Step) (*Result, error) {
	var raw string
	var err error
	if step.Selector != "" {
		raw, err = page.OuterHTML(ctx, step.Selector)
	} else {
		raw, err = page.Content(ctx)
	}
	if err != nil {
		return nil, err
	}

	cleaned, err := browser.CleanHTML(raw, browser.DefaultMaxHTMLLength)
	if err != nil {
		return nil, err
	}
	return &Result{
		Type:     KindExtract,
		Selector: step.Selector,
		Title:    cleaned.Title,
		HTML:     cleaned.HTML,
	}, nil
}

func validateScreenshot(_ *Interpreter, step Step) error {
	if step.FullPage && step.Selector != "" {
		return invalid("fullPage", "cannot be combined with selector")
	}
	return nil
}

func runScreenshot(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	png, err := page.Screenshot(ctx, browser.ScreenshotOptions{
		Selector: step.Selector,
		FullPage: step.FullPage,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Type:     KindScreenshot,
		Selector: step.Selector,
		Image:    base64.StdEncoding.EncodeToString(png),
	}, nil
}

func validateEvaluate(_ *Interpreter, step Step) error {
	if strings.TrimSpace(step.Script) == "" {
		return invalid("script", "is required")
	}
	return nil
}

// runEvaluate runs a caller-supplied script with page privileges. Callers
// submitting evaluate steps must be trusted.
func runEvaluate(ctx context.Context, _ *Interpreter, page browser.Page, step Step) (*Result, error) {
	value, err := page.Evaluate(ctx, evaluationScript(step.Script), nil)
	if err != nil {
		return nil, err
	}
	return &Result{Type: KindEvaluate, Value: value}, nil
}

var (
	functionPrefix = regexp.MustCompile(`^(async\s+)?(function\b|\(|[A-Za-z_$][\w$]*\s*=>)`)
	topLevelReturn = regexp.MustCompile(`(^|[;\n])\s*return\b`)
)

// evaluationScript turns a script body with a top-level return statement
// into a function expression. Expressions and function literals pass
// through unchanged.
func evaluationScript(script string) string {
	trimmed := strings.TrimSpace(script)
	if functionPrefix.MatchString(trimmed) || !topLevelReturn.MatchString(trimmed) {
		return trimmed
	}
	return "() => {\n" + trimmed + "\n}"
}
