// Package browsertest provides an in-memory browser.Driver for tests.
//
// A Driver serves a scripted Site: each URL maps to a Document listing the
// elements that selectors resolve to. Pages record the actions applied to
// them so tests can assert on what reached the browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/browserflow/pkg/browser"
)

// PNG is the screenshot payload returned by fake pages.
var PNG = []byte("\x89PNG\r\n\x1a\nbrowsertest")

// Element is a node a selector resolves to.
type Element struct {
	Text   string
	HTML   string
	Hidden bool

	// Options lists the values a select element accepts. Empty accepts any.
	Options []string

	// NavigatesTo makes a click load another URL
	NavigatesTo string
}

// Document is the content served for one URL.
type Document struct {
	Title string

	// RedirectTo makes navigation end at another URL
	RedirectTo string

	// BodyText is the visible text of the whole page
	BodyText string
	HTML     string

	Elements map[string]*Element

	// Lists holds the texts of selectors that match several elements
	Lists map[string][]string
}

// Site maps URLs to documents.
type Site map[string]*Document

// Call is one action recorded by a page.
type Call struct {
	Op       string
	Selector string
	Arg      string
	At       time.Time
}

// Driver is a fake browser.Driver.
type Driver struct {
	mu sync.Mutex

	site      Site
	launches  int
	stops     int
	launchErr []error
	pageErr   []error
	fail      map[string]error
	evaluate  func(script string, arg any) (any, error)
	browsers  []*Browser
	pages     []*Page
	latency   time.Duration
}

// NewDriver creates a driver serving site.
func NewDriver(site Site) *Driver {
	if site == nil {
		site = Site{}
	}
	return &Driver{site: site, fail: make(map[string]error)}
}

// Launch starts a fake browser, or fails with the next queued launch error.
func (d *Driver) Launch(ctx context.Context, _ browser.LaunchOptions) (browser.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.launches++
	if len(d.launchErr) > 0 {
		err := d.launchErr[0]
		d.launchErr = d.launchErr[1:]
		return nil, err
	}
	b := &Browser{driver: d, connected: true}
	d.browsers = append(d.browsers, b)
	return b, nil
}

// Stop records a driver stop.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

// FailLaunch queues errors returned by the next launches.
func (d *Driver) FailLaunch(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.launchErr = append(d.launchErr, errs...)
}

// FailNewPage queues errors returned by the next page creations.
func (d *Driver) FailNewPage(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pageErr = append(d.pageErr, errs...)
}

// FailOn makes every page return err for op ("goto", "click", "type", ...).
// A nil err clears the failure.
func (d *Driver) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fail, op)
		return
	}
	d.fail[op] = err
}

// OnEvaluate installs the function that answers Evaluate calls.
func (d *Driver) OnEvaluate(fn func(script string, arg any) (any, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evaluate = fn
}

// SetLatency delays every page action by latency, honouring ctx.
func (d *Driver) SetLatency(latency time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latency = latency
}

// Disconnect kills the current browser as a crash would.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.browsers {
		b.connected = false
	}
}

// Launches returns how many launches were attempted.
func (d *Driver) Launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

// Stops returns how many times Stop was called.
func (d *Driver) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// Pages returns every page opened so far, oldest first.
func (d *Driver) Pages() []*Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Page(nil), d.pages...)
}

// OpenPages returns the pages that are not closed.
func (d *Driver) OpenPages() []*Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	var open []*Page
	for _, p := range d.pages {
		if !p.closed && p.browser.connected {
			open = append(open, p)
		}
	}
	return open
}

// Browser is a fake browser.Browser.
type Browser struct {
	driver    *Driver
	connected bool
	closed    bool
}

func (b *Browser) IsConnected() bool {
	b.driver.mu.Lock()
	defer b.driver.mu.Unlock()
	return b.connected
}

func (b *Browser) NewPage(ctx context.Context, opts browser.PageOptions) (browser.Page, error) {
	d := b.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !b.connected {
		return nil, fmt.Errorf("new page: %w", browser.ErrDisconnected)
	}
	if len(d.pageErr) > 0 {
		err := d.pageErr[0]
		d.pageErr = d.pageErr[1:]
		return nil, err
	}

	p := &Page{
		id:        uuid.NewString(),
		driver:    d,
		browser:   b,
		url:       "about:blank",
		userAgent: opts.UserAgent,
		viewport:  opts.Viewport,
		values:    make(map[string]string),
		navigated: make(chan struct{}, 1),
	}
	d.pages = append(d.pages, p)
	return p, nil
}

func (b *Browser) Close() error {
	b.driver.mu.Lock()
	defer b.driver.mu.Unlock()
	b.connected = false
	b.closed = true
	return nil
}

// Page is a fake browser.Page.
type Page struct {
	id        string
	driver    *Driver
	browser   *Browser
	url       string
	userAgent string
	viewport  browser.Viewport
	closed    bool
	values    map[string]string
	selected  map[string][]string
	hovered   string
	focused   string
	calls     []Call
	navigated chan struct{}
}

// begin records the call and checks liveness and injected failures. It
// returns with the driver lock held on success.
func (p *Page) begin(ctx context.Context, op, selector, arg string) error {
	p.driver.mu.Lock()
	latency := p.driver.latency
	p.driver.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	p.driver.mu.Lock()
	if err := ctx.Err(); err != nil {
		p.driver.mu.Unlock()
		return err
	}
	p.calls = append(p.calls, Call{Op: op, Selector: selector, Arg: arg, At: time.Now()})
	if p.closed || !p.browser.connected {
		p.driver.mu.Unlock()
		return fmt.Errorf("%s: target closed: %w", op, browser.ErrDisconnected)
	}
	if err := p.driver.fail[op]; err != nil {
		p.driver.mu.Unlock()
		return err
	}
	return nil
}

func (p *Page) end() {
	p.driver.mu.Unlock()
}

func (p *Page) document() *Document {
	if doc, ok := p.driver.site[p.url]; ok {
		return doc
	}
	return &Document{}
}

func (p *Page) element(selector string) (*Element, error) {
	el, ok := p.document().Elements[selector]
	if !ok {
		return nil, browser.NotFound(selector)
	}
	return el, nil
}

// load follows redirects from url and makes the result current.
func (p *Page) load(url string) error {
	for hops := 0; hops < 10; hops++ {
		doc, ok := p.driver.site[url]
		if !ok {
			return fmt.Errorf("%w: net::ERR_NAME_NOT_RESOLVED at %s", browser.ErrNavigationFailed, url)
		}
		if doc.RedirectTo == "" {
			p.url = url
			return nil
		}
		url = doc.RedirectTo
	}
	return fmt.Errorf("%w: net::ERR_TOO_MANY_REDIRECTS", browser.ErrNavigationFailed)
}

func (p *Page) signalNavigation() {
	select {
	case p.navigated <- struct{}{}:
	default:
	}
}

func (p *Page) ID() string { return p.id }

func (p *Page) Goto(ctx context.Context, url string, opts browser.NavigateOptions) error {
	if err := p.begin(ctx, "goto", "", url); err != nil {
		return err
	}
	defer p.end()
	if err := p.load(url); err != nil {
		return err
	}
	p.signalNavigation()
	return nil
}

func (p *Page) URL() string {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.url
}

func (p *Page) Title(ctx context.Context) (string, error) {
	if err := p.begin(ctx, "title", "", ""); err != nil {
		return "", err
	}
	defer p.end()
	return p.document().Title, nil
}

// WaitForSelector resolves at once: a missing or hidden element times out
// without waiting.
func (p *Page) WaitForSelector(ctx context.Context, selector string, opts browser.WaitOptions) error {
	if err := p.begin(ctx, "waitForSelector", selector, fmt.Sprint(opts.Visible)); err != nil {
		return err
	}
	defer p.end()
	el, ok := p.document().Elements[selector]
	if !ok || (opts.Visible && el.Hidden) {
		return &browser.SelectorError{Selector: selector, Err: browser.ErrTimeout}
	}
	return nil
}

// WaitForNavigation arms, then blocks until a click or goto navigates the
// page, opts.Timeout (default one second) passes, or ctx ends.
func (p *Page) WaitForNavigation(ctx context.Context, opts browser.NavigateOptions, armed func()) error {
	if err := p.begin(ctx, "waitForNavigation", "", opts.WaitUntil); err != nil {
		return err
	}
	// Drop a stale signal from an earlier navigation
	select {
	case <-p.navigated:
	default:
	}
	p.end()

	if armed != nil {
		armed()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.navigated:
		return nil
	case <-timer.C:
		return fmt.Errorf("navigation: %w", browser.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Page) Click(ctx context.Context, selector string, opts browser.ClickOptions) error {
	if err := p.begin(ctx, "click", selector, opts.Button); err != nil {
		return err
	}
	defer p.end()
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if el.NavigatesTo != "" {
		if err := p.load(el.NavigatesTo); err != nil {
			return err
		}
		p.signalNavigation()
	}
	return nil
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	if err := p.begin(ctx, "scrollIntoView", selector, ""); err != nil {
		return err
	}
	defer p.end()
	_, err := p.element(selector)
	return err
}

func (p *Page) Focus(ctx context.Context, selector string) error {
	if err := p.begin(ctx, "focus", selector, ""); err != nil {
		return err
	}
	defer p.end()
	if _, err := p.element(selector); err != nil {
		return err
	}
	p.focused = selector
	return nil
}

func (p *Page) Clear(ctx context.Context, selector string) error {
	if err := p.begin(ctx, "clear", selector, ""); err != nil {
		return err
	}
	defer p.end()
	if _, err := p.element(selector); err != nil {
		return err
	}
	p.values[selector] = ""
	return nil
}

func (p *Page) Type(ctx context.Context, selector, text string, opts browser.TypeOptions) error {
	if err := p.begin(ctx, "type", selector, text); err != nil {
		return err
	}
	defer p.end()
	if _, err := p.element(selector); err != nil {
		return err
	}
	p.values[selector] += text
	return nil
}

func (p *Page) Select(ctx context.Context, selector string, values []string) ([]string, error) {
	if err := p.begin(ctx, "select", selector, strings.Join(values, ",")); err != nil {
		return nil, err
	}
	defer p.end()
	el, err := p.element(selector)
	if err != nil {
		return nil, err
	}

	var selected []string
	for _, v := range values {
		if len(el.Options) == 0 || contains(el.Options, v) {
			selected = append(selected, v)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no option matches %v in %s", values, selector)
	}
	if p.selected == nil {
		p.selected = make(map[string][]string)
	}
	p.selected[selector] = selected
	return selected, nil
}

func (p *Page) Hover(ctx context.Context, selector string) error {
	if err := p.begin(ctx, "hover", selector, ""); err != nil {
		return err
	}
	defer p.end()
	if _, err := p.element(selector); err != nil {
		return err
	}
	p.hovered = selector
	return nil
}

// Evaluate answers with the driver's OnEvaluate function, or nil.
func (p *Page) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := p.begin(ctx, "evaluate", "", script); err != nil {
		return nil, err
	}
	fn := p.driver.evaluate
	p.end()

	if fn == nil {
		return nil, nil
	}
	return fn(script, arg)
}

func (p *Page) TextContent(ctx context.Context, selector string) (string, error) {
	if err := p.begin(ctx, "textContent", selector, ""); err != nil {
		return "", err
	}
	defer p.end()
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (p *Page) AllTextContents(ctx context.Context, selector string) ([]string, error) {
	if err := p.begin(ctx, "allTextContents", selector, ""); err != nil {
		return nil, err
	}
	defer p.end()
	doc := p.document()
	if texts, ok := doc.Lists[selector]; ok {
		return append([]string(nil), texts...), nil
	}
	if el, ok := doc.Elements[selector]; ok {
		return []string{el.Text}, nil
	}
	return []string{}, nil
}

func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	if err := p.begin(ctx, "innerText", selector, ""); err != nil {
		return "", err
	}
	defer p.end()
	if selector == "body" {
		return p.document().BodyText, nil
	}
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	if el.Hidden {
		return "", nil
	}
	return el.Text, nil
}

func (p *Page) OuterHTML(ctx context.Context, selector string) (string, error) {
	if err := p.begin(ctx, "outerHTML", selector, ""); err != nil {
		return "", err
	}
	defer p.end()
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	return el.HTML, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	if err := p.begin(ctx, "content", "", ""); err != nil {
		return "", err
	}
	defer p.end()
	return p.document().HTML, nil
}

func (p *Page) Screenshot(ctx context.Context, opts browser.ScreenshotOptions) ([]byte, error) {
	if err := p.begin(ctx, "screenshot", opts.Selector, fmt.Sprint(opts.FullPage)); err != nil {
		return nil, err
	}
	defer p.end()
	if opts.Selector != "" {
		if _, err := p.element(opts.Selector); err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), PNG...), nil
}

func (p *Page) Close() error {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Page) IsClosed() bool {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.closed || !p.browser.connected
}

// Calls returns the actions recorded on the page.
func (p *Page) Calls() []Call {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Ops returns the recorded operation names in order.
func (p *Page) Ops() []string {
	calls := p.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Value returns the text typed into selector.
func (p *Page) Value(selector string) string {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.values[selector]
}

// SetValue pre-fills selector as if the page had rendered a value.
func (p *Page) SetValue(selector, value string) {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	p.values[selector] = value
}

// Selected returns the values selected in selector.
func (p *Page) Selected(selector string) []string {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return append([]string(nil), p.selected[selector]...)
}

// Hovered returns the selector hovered last.
func (p *Page) Hovered() string {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.hovered
}

// Focused returns the selector focused last.
func (p *Page) Focused() string {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.focused
}

// UserAgent returns the user agent the page was opened with.
func (p *Page) UserAgent() string { return p.userAgent }

// Viewport returns the viewport the page was opened with.
func (p *Page) Viewport() browser.Viewport { return p.viewport }

// Closed reports whether Close was called on the page.
func (p *Page) Closed() bool {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.closed
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

var (
	_ browser.Driver  = (*Driver)(nil)
	_ browser.Browser = (*Browser)(nil)
	_ browser.Page    = (*Page)(nil)
)
