package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/browserflow/pkg/browser"
	"github.com/entrhq/browserflow/pkg/browser/browsertest"
)

const (
	exampleURL = "https://example.com"
	ianaURL    = "https://www.iana.org/help/example-domains"
)

func testSite() browsertest.Site {
	return browsertest.Site{
		"http://example.com": {RedirectTo: exampleURL},
		exampleURL: {
			Title:    "Example Domain",
			BodyText: "\n  Example Domain\nThis domain is for use in illustrative examples.  \n",
			HTML: `<html><head><title>Example Domain</title><script>track()</script></head>` +
				`<body><div id="main"><h1>Example Domain</h1><a class="more" href="/help">More information</a></div></body></html>`,
			Elements: map[string]*browsertest.Element{
				"h1":            {Text: "  Example Domain \n", HTML: `<h1 style="x">Example Domain</h1>`},
				"a.more":        {Text: "More information", NavigatesTo: ianaURL},
				"button.noop":   {Text: "Nothing"},
				"#banner":       {Text: "hidden banner", Hidden: true},
				"input[name=q]": {},
				"select#role":   {Options: []string{"admin", "user", "guest"}},
				"#footer":       {Text: "Footer"},
			},
			Lists: map[string][]string{
				"li.item": {"  one ", "two\n", " three"},
			},
		},
		ianaURL: {Title: "Example Domains", BodyText: "IANA-managed Reserved Domains"},
	}
}

// newTestPage opens a page directly on a fake browser, bypassing the
// session manager.
func newTestPage(t *testing.T) (*browsertest.Driver, *browsertest.Page) {
	t.Helper()
	driver := browsertest.NewDriver(testSite())
	ctx := context.Background()

	b, err := driver.Launch(ctx, browser.LaunchOptions{})
	require.NoError(t, err)
	page, err := b.NewPage(ctx, browser.PageOptions{})
	require.NoError(t, err)
	return driver, page.(*browsertest.Page)
}

// newTestOrchestrator wires an orchestrator to a session manager backed by
// the fake driver.
func newTestOrchestrator(t *testing.T) (*Orchestrator, *browser.SessionManager, *browsertest.Driver) {
	t.Helper()
	driver := browsertest.NewDriver(testSite())
	config := browser.DefaultSessionConfig()
	config.Backoff = browser.NoBackoff{}
	sessions := browser.NewSessionManager(driver, config)
	t.Cleanup(func() { _ = sessions.Shutdown() })

	interpreter := NewInterpreter(InterpreterConfig{DefaultTypeDelay: -1})
	return NewOrchestrator(sessions, interpreter, nil), sessions, driver
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
