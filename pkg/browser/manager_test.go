package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/browserflow/pkg/browser"
	"github.com/entrhq/browserflow/pkg/browser/browsertest"
)

func newManager(t *testing.T, driver *browsertest.Driver) *browser.SessionManager {
	t.Helper()
	config := browser.DefaultSessionConfig()
	config.Backoff = browser.NoBackoff{}
	m := browser.NewSessionManager(driver, config)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func TestSessionManager_LazyLaunch(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)

	assert.False(t, m.IsActive())
	assert.Equal(t, 0, driver.Launches(), "construction must not launch")

	b, page, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NotNil(t, page)

	assert.True(t, m.IsActive())
	assert.Equal(t, 1, driver.Launches())
	assert.Equal(t, page.ID(), m.Status().PageID)
}

func TestSessionManager_EnsureIdempotent(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)
	ctx := context.Background()

	_, first, err := m.Ensure(ctx)
	require.NoError(t, err)
	_, second, err := m.Ensure(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, 1, driver.Launches())
	assert.Len(t, driver.Pages(), 1)
}

func TestSessionManager_PageProfile(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)

	_, _, err := m.Ensure(context.Background())
	require.NoError(t, err)

	page := driver.Pages()[0]
	assert.Equal(t, browser.DefaultUserAgent, page.UserAgent())
	assert.Equal(t, browser.Viewport{Width: 1366, Height: 768}, page.Viewport())
}

func TestSessionManager_AcquireFreshIsolated(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)
	ctx := context.Background()

	_, retained, err := m.Ensure(ctx)
	require.NoError(t, err)

	fresh1, err := m.AcquireFresh(ctx)
	require.NoError(t, err)
	fresh2, err := m.AcquireFresh(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, retained.ID(), fresh1.ID())
	assert.NotEqual(t, fresh1.ID(), fresh2.ID())
	assert.Equal(t, retained.ID(), m.Status().PageID, "fresh pages must not replace the session page")
	assert.Equal(t, 1, driver.Launches())
}

func TestSessionManager_RetainSwapsAndClosesPrevious(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)
	ctx := context.Background()

	_, old, err := m.Ensure(ctx)
	require.NoError(t, err)
	fresh, err := m.AcquireFresh(ctx)
	require.NoError(t, err)

	m.Retain(fresh)

	assert.True(t, old.IsClosed(), "replaced session page should be closed")
	assert.Equal(t, fresh.ID(), m.Status().PageID)

	_, page, err := m.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID(), page.ID())
}

func TestSessionManager_RetainSamePageKeepsIt(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)

	_, page, err := m.Ensure(context.Background())
	require.NoError(t, err)

	m.Retain(page)
	assert.False(t, page.IsClosed())
	assert.Equal(t, page.ID(), m.Status().PageID)
}

func TestSessionManager_Release(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)
	ctx := context.Background()

	_, page, err := m.Ensure(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Release(page))
	assert.True(t, page.IsClosed())
	assert.Empty(t, m.Status().PageID)
	assert.True(t, m.IsActive(), "releasing a page keeps the browser")

	// Releasing twice is harmless
	require.NoError(t, m.Release(page))

	_, next, err := m.Ensure(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, page.ID(), next.ID())
}

func TestSessionManager_RelaunchAfterDisconnect(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)
	ctx := context.Background()

	_, before, err := m.Ensure(ctx)
	require.NoError(t, err)

	driver.Disconnect()
	assert.False(t, m.IsActive())

	_, after, err := m.Ensure(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, before.ID(), after.ID())
	assert.Equal(t, 2, driver.Launches())
	assert.True(t, m.IsActive())

	status := m.Status()
	assert.Equal(t, 2, status.Launches)
	assert.Equal(t, 1, status.Relaunches)
}

func TestSessionManager_RelaunchWhenNewPageDisconnects(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)

	driver.FailNewPage(browser.ErrDisconnected)

	page, err := m.AcquireFresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Equal(t, 2, driver.Launches())
	assert.Equal(t, 1, m.Status().Relaunches)
}

func TestSessionManager_RelaunchBounded(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	config := browser.DefaultSessionConfig()
	config.Backoff = browser.NoBackoff{}
	config.MaxRelaunchAttempts = 2
	m := browser.NewSessionManager(driver, config)

	launchErr := errors.New("chromium exited with code 1")
	driver.FailLaunch(launchErr, launchErr, launchErr)

	_, _, err := m.Ensure(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrRelaunchExhausted)
	assert.ErrorIs(t, err, launchErr)
	assert.Equal(t, 3, driver.Launches(), "one launch plus two relaunch attempts")

	// Every queued failure is consumed, so the next call recovers
	_, page, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, page)
}

func TestSessionManager_NewPageFailureNotRetried(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)

	pageErr := errors.New("invalid viewport")
	driver.FailNewPage(pageErr)

	_, err := m.AcquireFresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, pageErr)
	assert.NotErrorIs(t, err, browser.ErrRelaunchExhausted)
	assert.Equal(t, 1, driver.Launches())
}

func TestSessionManager_BackoffHonoursContext(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	config := browser.DefaultSessionConfig()
	config.Backoff = browser.NewExponentialBackoff(time.Hour, time.Hour)
	m := browser.NewSessionManager(driver, config)

	driver.FailLaunch(errors.New("boom"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := m.Ensure(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionManager_CloseAll(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)
	ctx := context.Background()

	_, page, err := m.Ensure(ctx)
	require.NoError(t, err)

	require.NoError(t, m.CloseAll())
	assert.False(t, m.IsActive())
	assert.True(t, page.IsClosed())
	assert.Empty(t, m.Status().PageID)

	// Idempotent
	require.NoError(t, m.CloseAll())

	// The next request relaunches lazily
	_, _, err = m.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, driver.Launches())
	assert.Equal(t, 0, m.Status().Relaunches, "an explicit close is not a relaunch")
}

func TestSessionManager_Shutdown(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := browser.NewSessionManager(driver, browser.DefaultSessionConfig())
	ctx := context.Background()

	_, _, err := m.Ensure(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Shutdown())
	require.NoError(t, m.Shutdown())
	assert.Equal(t, 1, driver.Stops())
	assert.False(t, m.IsActive())

	_, _, err = m.Ensure(ctx)
	assert.ErrorIs(t, err, browser.ErrClosed)
	_, err = m.AcquireFresh(ctx)
	assert.ErrorIs(t, err, browser.ErrClosed)
}

func TestSessionManager_CloseIdle(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)

	closed, err := m.CloseIdle(time.Millisecond)
	require.NoError(t, err)
	assert.False(t, closed, "nothing to close before launch")

	_, _, err = m.Ensure(context.Background())
	require.NoError(t, err)

	closed, err = m.CloseIdle(time.Hour)
	require.NoError(t, err)
	assert.False(t, closed)

	time.Sleep(5 * time.Millisecond)
	closed, err = m.CloseIdle(time.Millisecond)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.False(t, m.IsActive())
}

func TestSessionManager_Status(t *testing.T) {
	driver := browsertest.NewDriver(browsertest.Site{
		"https://example.com/": {Title: "Example"},
	})
	m := newManager(t, driver)
	ctx := context.Background()

	status := m.Status()
	assert.False(t, status.BrowserActive)
	assert.False(t, status.PageOpen)

	_, page, err := m.Ensure(ctx)
	require.NoError(t, err)
	require.NoError(t, page.Goto(ctx, "https://example.com/", browser.NavigateOptions{}))

	status = m.Status()
	assert.True(t, status.BrowserActive)
	assert.True(t, status.PageOpen)
	assert.Equal(t, "https://example.com/", status.URL)
	assert.Equal(t, 1, status.Launches)
	assert.False(t, status.LastUsedAt.IsZero())
}

func TestSessionManager_DisconnectClearsSession(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)

	_, page, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, page.ID(), m.Status().PageID)

	driver.Disconnect()
	assert.False(t, m.IsActive())

	status := m.Status()
	assert.False(t, status.BrowserActive)
	assert.False(t, status.PageOpen)
	assert.Empty(t, status.PageID, "the session page is dropped with the browser")
	assert.Empty(t, status.URL)
}

func TestSessionManager_StatusDetectsDisconnect(t *testing.T) {
	driver := browsertest.NewDriver(nil)
	m := newManager(t, driver)
	ctx := context.Background()

	_, _, err := m.Ensure(ctx)
	require.NoError(t, err)

	driver.Disconnect()
	status := m.Status()
	assert.False(t, status.BrowserActive)
	assert.False(t, status.PageOpen)

	_, _, err = m.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Status().Relaunches, "the next acquisition relaunches")
}
