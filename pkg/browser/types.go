package browser

import (
	"context"
	"time"
)

// Driver launches browser processes. The production driver is backed by
// Playwright; tests use the fake in package browsertest.
type Driver interface {
	// Launch starts a new browser process.
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)

	// Stop releases driver-level resources. Browsers launched by the driver
	// must be closed before Stop is called.
	Stop() error
}

// Browser is a running browser process.
type Browser interface {
	// IsConnected reports whether the process is still reachable.
	IsConnected() bool

	// NewPage opens a page in its own browser context.
	NewPage(ctx context.Context, opts PageOptions) (Page, error)

	// Close shuts the process down.
	Close() error
}

// Page is a single browser tab. Every blocking method takes a context; when
// the context ends first the method returns the context error while the
// underlying driver call is left to complete on its own.
type Page interface {
	// ID uniquely identifies the page for the lifetime of the process.
	ID() string

	// Goto navigates to url and waits per opts.
	Goto(ctx context.Context, url string, opts NavigateOptions) error

	// URL returns the current location.
	URL() string

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// WaitForSelector blocks until selector reaches the requested state.
	WaitForSelector(ctx context.Context, selector string, opts WaitOptions) error

	// WaitForNavigation blocks until the next navigation completes. armed is
	// invoked once the navigation listener is installed, so an action that
	// triggers navigation can be released without racing the listener.
	WaitForNavigation(ctx context.Context, opts NavigateOptions, armed func()) error

	Click(ctx context.Context, selector string, opts ClickOptions) error
	ScrollIntoView(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	Clear(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string, opts TypeOptions) error
	Select(ctx context.Context, selector string, values []string) ([]string, error)
	Hover(ctx context.Context, selector string) error

	// Evaluate runs a script in the page context and returns its
	// JSON-compatible result.
	Evaluate(ctx context.Context, script string, arg any) (any, error)

	// TextContent returns the text of the first element matching selector.
	TextContent(ctx context.Context, selector string) (string, error)

	// AllTextContents returns the text of every element matching selector.
	AllTextContents(ctx context.Context, selector string) ([]string, error)

	// InnerText returns the rendered (visible) text of selector.
	InnerText(ctx context.Context, selector string) (string, error)

	// OuterHTML returns the serialized HTML of the first element matching
	// selector.
	OuterHTML(ctx context.Context, selector string) (string, error)

	// Content returns the serialized HTML of the document.
	Content(ctx context.Context) (string, error)

	// Screenshot captures a PNG of the viewport, the full page, or a single
	// element when opts.Selector is set.
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)

	Close() error
	IsClosed() bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// LaunchOptions configures a browser process.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Args are extra command line flags passed to the browser
	Args []string

	// Timeout bounds process startup
	Timeout time.Duration
}

// PageOptions configures every page (and its browser context) the manager
// opens.
type PageOptions struct {
	UserAgent string
	Viewport  Viewport

	// InitScript runs in every document before page scripts
	InitScript string

	// DefaultTimeout applies to actions that don't set their own
	DefaultTimeout time.Duration
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle", "commit"
	WaitUntil string

	// Timeout of 0 means the page default
	Timeout time.Duration
}

// WaitOptions configures waiting for a selector.
type WaitOptions struct {
	// Visible waits for visibility instead of mere attachment
	Visible bool

	Timeout time.Duration
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Button specifies which mouse button to use (left, right, middle)
	Button string

	// ClickCount is the number of times to click (1 for single, 2 for double)
	ClickCount int

	Timeout time.Duration
}

// TypeOptions configures keyboard input.
type TypeOptions struct {
	// Delay between key presses
	Delay time.Duration
}

// ScreenshotOptions configures screenshot capture.
type ScreenshotOptions struct {
	// Selector limits the capture to a single element
	Selector string

	// FullPage captures the full scrollable page instead of the viewport
	FullPage bool
}

// Default values for launch and page configuration.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1366
	DefaultViewportHeight = 768

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// DefaultInitScript hides the most common automation fingerprint.
	DefaultInitScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

	DefaultMaxRelaunchAttempts = 3
	DefaultRelaunchBackoff     = 250 * time.Millisecond
	DefaultMaxRelaunchBackoff  = 5 * time.Second
)

// DefaultLaunchArgs are passed to every launched browser to reduce
// automation detection and to run inside containers.
var DefaultLaunchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
	"--disable-infobars",
}

// DefaultLaunchOptions returns the launch profile used when none is
// configured.
func DefaultLaunchOptions() LaunchOptions {
	args := make([]string, len(DefaultLaunchArgs))
	copy(args, DefaultLaunchArgs)
	return LaunchOptions{
		Headless: true,
		Args:     args,
		Timeout:  DefaultTimeout,
	}
}

// DefaultPageOptions returns the page profile used when none is configured.
func DefaultPageOptions() PageOptions {
	return PageOptions{
		UserAgent: DefaultUserAgent,
		Viewport: Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		InitScript:     DefaultInitScript,
		DefaultTimeout: DefaultTimeout,
	}
}
