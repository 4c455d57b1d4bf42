package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// PlaywrightOptions configures the Playwright driver.
type PlaywrightOptions struct {
	// Install downloads the driver and Chromium before the first launch
	Install bool

	// Verbose forwards driver installation output to stderr
	Verbose bool
}

// PlaywrightDriver launches Chromium through Playwright. The Playwright
// driver process is started lazily on the first launch.
type PlaywrightDriver struct {
	mu          sync.Mutex
	opts        PlaywrightOptions
	pw          *playwright.Playwright
	initialized bool
}

// NewPlaywrightDriver creates a Playwright-backed driver.
func NewPlaywrightDriver(opts PlaywrightOptions) *PlaywrightDriver {
	return &PlaywrightDriver{opts: opts}
}

func (d *PlaywrightDriver) initialize() error {
	if d.initialized {
		return nil
	}

	// Discard driver output unless asked for it
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  d.opts.Verbose,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if d.opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	d.pw = pw
	d.initialized = true
	return nil
}

// Launch starts Chromium with opts.
func (d *PlaywrightDriver) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.initialize(); err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.Timeout > 0 {
		launchOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	b, err := await(ctx, func() (playwright.Browser, error) {
		return d.pw.Chromium.Launch(launchOpts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", classify(err))
	}
	return &playwrightBrowser{browser: b}, nil
}

// Stop shuts the Playwright driver process down.
func (d *PlaywrightDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized || d.pw == nil {
		return nil
	}
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	d.pw = nil
	d.initialized = false
	return nil
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) IsConnected() bool {
	return b.browser.IsConnected()
}

// NewPage opens a page inside its own browser context so that cookies and
// storage never leak between pages.
func (b *playwrightBrowser) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		contextOpts.Viewport = &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		}
	}

	bctx, err := await(ctx, func() (playwright.BrowserContext, error) {
		return b.browser.NewContext(contextOpts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", classify(err))
	}

	if opts.InitScript != "" {
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(opts.InitScript)}); err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("failed to add init script: %w", classify(err))
		}
	}

	page, err := await(ctx, func() (playwright.Page, error) {
		return bctx.NewPage()
	})
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", classify(err))
	}

	if opts.DefaultTimeout > 0 {
		page.SetDefaultTimeout(float64(opts.DefaultTimeout.Milliseconds()))
	}

	return &playwrightPage{
		id:      uuid.NewString(),
		page:    page,
		context: bctx,
	}, nil
}

func (b *playwrightBrowser) Close() error {
	return classify(b.browser.Close())
}

type playwrightPage struct {
	id      string
	page    playwright.Page
	context playwright.BrowserContext
	closed  atomic.Bool
}

func (p *playwrightPage) ID() string {
	return p.id
}

func (p *playwrightPage) Goto(ctx context.Context, url string, opts NavigateOptions) error {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	return run(ctx, func() error {
		_, err := p.page.Goto(url, gotoOpts)
		return navigationError(err)
	})
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Title(ctx context.Context) (string, error) {
	return await(ctx, p.page.Title)
}

func (p *playwrightPage) WaitForSelector(ctx context.Context, selector string, opts WaitOptions) error {
	state := playwright.WaitForSelectorState("attached")
	if opts.Visible {
		state = playwright.WaitForSelectorState("visible")
	}
	waitOpts := playwright.PageWaitForSelectorOptions{State: &state}
	if opts.Timeout > 0 {
		waitOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	return run(ctx, func() error {
		_, err := p.page.WaitForSelector(selector, waitOpts)
		if err != nil {
			return &SelectorError{Selector: selector, Err: classify(err)}
		}
		return nil
	})
}

func (p *playwrightPage) WaitForNavigation(ctx context.Context, opts NavigateOptions, armed func()) error {
	navOpts := playwright.PageExpectNavigationOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		navOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		navOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	return run(ctx, func() error {
		// The callback runs once the navigation waiter is registered
		_, err := p.page.ExpectNavigation(func() error {
			if armed != nil {
				armed()
			}
			return nil
		}, navOpts)
		return navigationError(err)
	})
}

// navigationError marks a failed navigation unless the failure already
// belongs to the disconnect or timeout class.
func navigationError(err error) error {
	if err == nil {
		return nil
	}
	err = classify(err)
	if errors.Is(err, ErrDisconnected) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrNavigationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNavigationFailed, err)
}

// element resolves selector to its first match. A missing element fails
// immediately instead of waiting for the action timeout.
func (p *playwrightPage) element(selector string) (playwright.ElementHandle, error) {
	el, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, &SelectorError{Selector: selector, Err: err}
	}
	if el == nil {
		return nil, NotFound(selector)
	}
	return el, nil
}

func (p *playwrightPage) Click(ctx context.Context, selector string, opts ClickOptions) error {
	clickOpts := playwright.ElementHandleClickOptions{}
	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		clickOpts.Button = &button
	}
	if opts.ClickCount > 0 {
		clickOpts.ClickCount = playwright.Int(opts.ClickCount)
	}
	if opts.Timeout > 0 {
		clickOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	return run(ctx, func() error {
		el, err := p.element(selector)
		if err != nil {
			return err
		}
		return el.Click(clickOpts)
	})
}

func (p *playwrightPage) ScrollIntoView(ctx context.Context, selector string) error {
	return run(ctx, func() error {
		el, err := p.element(selector)
		if err != nil {
			return err
		}
		return el.ScrollIntoViewIfNeeded()
	})
}

func (p *playwrightPage) Focus(ctx context.Context, selector string) error {
	return run(ctx, func() error {
		el, err := p.element(selector)
		if err != nil {
			return err
		}
		return el.Focus()
	})
}

// Clear empties inputs, textareas and contenteditable elements alike.
func (p *playwrightPage) Clear(ctx context.Context, selector string) error {
	return run(ctx, func() error {
		el, err := p.element(selector)
		if err != nil {
			return err
		}
		return el.Fill("")
	})
}

func (p *playwrightPage) Type(ctx context.Context, selector, text string, opts TypeOptions) error {
	typeOpts := playwright.ElementHandleTypeOptions{}
	if opts.Delay > 0 {
		typeOpts.Delay = playwright.Float(float64(opts.Delay.Milliseconds()))
	}

	return run(ctx, func() error {
		el, err := p.element(selector)
		if err != nil {
			return err
		}
		return el.Type(text, typeOpts)
	})
}

func (p *playwrightPage) Select(ctx context.Context, selector string, values []string) ([]string, error) {
	return await(ctx, func() ([]string, error) {
		el, err := p.element(selector)
		if err != nil {
			return nil, err
		}
		return el.SelectOption(playwright.SelectOptionValues{Values: &values})
	})
}

func (p *playwrightPage) Hover(ctx context.Context, selector string) error {
	return run(ctx, func() error {
		el, err := p.element(selector)
		if err != nil {
			return err
		}
		return el.Hover()
	})
}

func (p *playwrightPage) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	return await(ctx, func() (any, error) {
		if arg == nil {
			return p.page.Evaluate(script)
		}
		return p.page.Evaluate(script, arg)
	})
}

func (p *playwrightPage) TextContent(ctx context.Context, selector string) (string, error) {
	return await(ctx, func() (string, error) {
		el, err := p.element(selector)
		if err != nil {
			return "", err
		}
		return el.TextContent()
	})
}

func (p *playwrightPage) AllTextContents(ctx context.Context, selector string) ([]string, error) {
	return await(ctx, func() ([]string, error) {
		elements, err := p.page.QuerySelectorAll(selector)
		if err != nil {
			return nil, &SelectorError{Selector: selector, Err: err}
		}
		texts := make([]string, 0, len(elements))
		for _, el := range elements {
			text, err := el.TextContent()
			if err != nil {
				return nil, err
			}
			texts = append(texts, text)
		}
		return texts, nil
	})
}

func (p *playwrightPage) InnerText(ctx context.Context, selector string) (string, error) {
	return await(ctx, func() (string, error) {
		el, err := p.element(selector)
		if err != nil {
			return "", err
		}
		return el.InnerText()
	})
}

func (p *playwrightPage) OuterHTML(ctx context.Context, selector string) (string, error) {
	return await(ctx, func() (string, error) {
		el, err := p.element(selector)
		if err != nil {
			return "", err
		}
		v, err := el.Evaluate("el => el.outerHTML")
		if err != nil {
			return "", err
		}
		html, _ := v.(string)
		return html, nil
	})
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	return await(ctx, p.page.Content)
}

func (p *playwrightPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	return await(ctx, func() ([]byte, error) {
		if opts.Selector != "" {
			el, err := p.element(opts.Selector)
			if err != nil {
				return nil, err
			}
			return el.Screenshot(playwright.ElementHandleScreenshotOptions{
				Type: playwright.ScreenshotTypePng,
			})
		}
		return p.page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(opts.FullPage),
			Type:     playwright.ScreenshotTypePng,
		})
	})
}

// Close closes the page together with its browser context.
func (p *playwrightPage) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	var errs []error
	if err := p.page.Close(); err != nil && !errors.Is(classify(err), ErrDisconnected) {
		errs = append(errs, err)
	}
	if err := p.context.Close(); err != nil && !errors.Is(classify(err), ErrDisconnected) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *playwrightPage) IsClosed() bool {
	return p.closed.Load() || p.page.IsClosed()
}

// run executes fn on its own goroutine and returns early when ctx ends.
// Playwright calls are not cancellable, so an abandoned call keeps running
// until the driver finishes it.
func run(ctx context.Context, fn func() error) error {
	_, err := await(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, classify(r.err)
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
