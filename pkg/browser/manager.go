package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/browserflow/pkg/logging"
)

// SessionConfig configures a SessionManager.
type SessionConfig struct {
	Launch LaunchOptions
	Page   PageOptions

	// MaxRelaunchAttempts bounds how many times a disconnected or failed
	// browser is relaunched while opening a single page.
	MaxRelaunchAttempts int

	// Backoff spaces out relaunch attempts
	Backoff Backoff

	Logger *logging.Logger
}

// DefaultSessionConfig returns the configuration used by the service when
// nothing else is configured.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Launch:              DefaultLaunchOptions(),
		Page:                DefaultPageOptions(),
		MaxRelaunchAttempts: DefaultMaxRelaunchAttempts,
		Backoff:             NewExponentialBackoff(DefaultRelaunchBackoff, DefaultMaxRelaunchBackoff),
	}
}

// SessionManager owns the browser process and the retained session page.
//
// The retained page is process-wide state: callers that share it without
// asking for a fresh page may interleave their actions on it.
type SessionManager struct {
	mu       sync.Mutex
	driver   Driver
	config   SessionConfig
	logger   *logging.Logger
	browser  Browser
	retained Page
	closed   bool

	launches   int
	relaunches int
	lastUsedAt time.Time

	// discarded is set when handles were dropped for a dead browser, so the
	// next launch counts as a relaunch
	discarded bool
}

// NewSessionManager creates a session manager. The browser is not launched
// until the first page is requested.
func NewSessionManager(driver Driver, config SessionConfig) *SessionManager {
	if config.MaxRelaunchAttempts < 0 {
		config.MaxRelaunchAttempts = 0
	}
	if config.Backoff == nil {
		config.Backoff = NoBackoff{}
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard("browser")
	}
	return &SessionManager{
		driver: driver,
		config: config,
		logger: logger,
	}
}

// Ensure returns the browser and the retained page, launching the browser
// and opening the page as needed. Repeated calls return the same page while
// the browser stays connected.
func (m *SessionManager) Ensure(ctx context.Context) (Browser, Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, ErrClosed
	}
	m.lastUsedAt = time.Now()

	if m.retained != nil && !m.retained.IsClosed() && m.browser != nil && m.browser.IsConnected() {
		return m.browser, m.retained, nil
	}

	page, err := m.openPageLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	m.retained = page
	m.logger.Infof("Retained session page %s", page.ID())
	return m.browser, page, nil
}

// AcquireFresh opens a new page isolated from the retained page. The caller
// owns it until it is passed to Retain or Release.
func (m *SessionManager) AcquireFresh(ctx context.Context) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	m.lastUsedAt = time.Now()

	page, err := m.openPageLocked(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Debugf("Opened fresh page %s", page.ID())
	return page, nil
}

// Retain makes page the session page. A different page that was retained
// before is closed.
func (m *SessionManager) Retain(page Page) {
	if page == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || page.IsClosed() {
		return
	}
	m.lastUsedAt = time.Now()

	if m.retained != nil && m.retained.ID() != page.ID() {
		previous := m.retained
		if err := previous.Close(); err != nil {
			m.logger.Warnf("Failed to close replaced session page %s: %v", previous.ID(), err)
		}
		m.logger.Infof("Session page %s replaced by %s", previous.ID(), page.ID())
	}
	m.retained = page
}

// Release closes page and detaches it from the session if it is retained.
func (m *SessionManager) Release(page Page) error {
	if page == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.retained != nil && m.retained.ID() == page.ID() {
		m.retained = nil
	}
	if page.IsClosed() {
		return nil
	}
	if err := page.Close(); err != nil {
		return fmt.Errorf("failed to close page %s: %w", page.ID(), err)
	}
	m.logger.Debugf("Released page %s", page.ID())
	return nil
}

// IsActive reports whether a connected browser is held. A browser found
// disconnected is discarded along with the session page.
func (m *SessionManager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveLocked()
}

// liveLocked reports whether the held browser is connected, discarding
// the session when it is not.
func (m *SessionManager) liveLocked() bool {
	if m.browser == nil {
		return false
	}
	if m.browser.IsConnected() {
		return true
	}
	m.logger.Warnf("Browser disconnected, discarding session")
	m.discardLocked()
	return false
}

// Status is a point-in-time view of the session.
type Status struct {
	BrowserActive bool      `json:"browserActive"`
	PageOpen      bool      `json:"pageOpen"`
	PageID        string    `json:"pageId,omitempty"`
	URL           string    `json:"url,omitempty"`
	Launches      int       `json:"launches"`
	Relaunches    int       `json:"relaunches"`
	LastUsedAt    time.Time `json:"lastUsedAt,omitempty"`
}

// Status reports session liveness. It never launches anything.
func (m *SessionManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{
		BrowserActive: m.liveLocked(),
		Launches:      m.launches,
		Relaunches:    m.relaunches,
		LastUsedAt:    m.lastUsedAt,
	}
	if m.retained != nil && !m.retained.IsClosed() {
		status.PageOpen = true
		status.PageID = m.retained.ID()
		status.URL = m.retained.URL()
	}
	return status
}

// CloseAll closes the retained page and the browser. It is a no-op when
// nothing is open.
func (m *SessionManager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeAllLocked()
}

// CloseIdle closes the session when it has not been used for longer than
// idle. It reports whether anything was closed.
func (m *SessionManager) CloseIdle(idle time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil || idle <= 0 || time.Since(m.lastUsedAt) <= idle {
		return false, nil
	}
	m.logger.Infof("Closing browser idle for more than %s", idle)
	return true, m.closeAllLocked()
}

// Shutdown closes everything and stops the driver. It is the teardown hook
// for the hosting process and is safe to call more than once.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	if err := m.closeAllLocked(); err != nil {
		errs = append(errs, err)
	}
	if err := m.driver.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop driver: %w", err))
	}
	return errors.Join(errs...)
}

func (m *SessionManager) closeAllLocked() error {
	var errs []error
	if m.retained != nil && !m.retained.IsClosed() {
		if err := m.retained.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close session page: %w", err))
		}
	}
	if m.browser != nil {
		if err := m.browser.Close(); err != nil && m.browser.IsConnected() {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		m.logger.Infof("Browser closed")
	}
	m.retained = nil
	m.browser = nil
	m.discarded = false
	metricActive.Set(0)
	return errors.Join(errs...)
}

// openPageLocked opens a page, relaunching the browser when it is found
// disconnected. Attempts are bounded by MaxRelaunchAttempts.
func (m *SessionManager) openPageLocked(ctx context.Context) (Page, error) {
	var lastErr error
	for attempt := 0; attempt <= m.config.MaxRelaunchAttempts; attempt++ {
		if attempt > 0 {
			delay := m.config.Backoff.Delay(attempt)
			m.logger.Warnf("Retrying page creation (attempt %d/%d) in %s: %v",
				attempt, m.config.MaxRelaunchAttempts, delay, lastErr)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, err
			}
		}

		b, err := m.browserLocked(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		page, err := b.NewPage(ctx, m.config.Page)
		if err == nil {
			metricPagesOpened.Inc()
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if b.IsConnected() && !IsDisconnected(err) {
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		lastErr = err
		m.discardLocked()
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRelaunchExhausted, m.config.MaxRelaunchAttempts+1, lastErr)
}

// browserLocked returns a connected browser, discarding a dead one and
// launching a replacement.
func (m *SessionManager) browserLocked(ctx context.Context) (Browser, error) {
	if m.liveLocked() {
		return m.browser, nil
	}

	b, err := m.driver.Launch(ctx, m.config.Launch)
	if err != nil {
		m.logger.Errorf("Browser launch failed: %v", err)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.browser = b
	m.launches++
	metricLaunches.Inc()
	metricActive.Set(1)
	if m.discarded {
		m.discarded = false
		m.relaunches++
		metricRelaunches.Inc()
	}
	m.logger.Infof("Browser launched (headless=%t, launches=%d)", m.config.Launch.Headless, m.launches)
	return b, nil
}

// discardLocked drops every handle held for the current browser.
func (m *SessionManager) discardLocked() {
	if m.browser != nil {
		_ = m.browser.Close() // Ignore errors, the process is already gone
	}
	m.browser = nil
	m.retained = nil
	m.discarded = true
	metricActive.Set(0)
}
