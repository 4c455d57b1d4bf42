package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDisconnected is returned when the browser process is gone or the
	// page's target was closed underneath an action.
	ErrDisconnected = errors.New("browser disconnected")

	// ErrElementNotFound is returned when a selector matches nothing
	ErrElementNotFound = errors.New("element not found")

	// ErrTimeout is returned when an action exceeds its timeout
	ErrTimeout = errors.New("operation timed out")

	// ErrNavigationFailed is returned when a navigation does not complete
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrRelaunchExhausted is returned when the browser could not be
	// relaunched within the configured number of attempts
	ErrRelaunchExhausted = errors.New("browser relaunch attempts exhausted")

	// ErrClosed is returned by a SessionManager after Shutdown
	ErrClosed = errors.New("session manager is shut down")
)

// SelectorError ties a failure to the selector that caused it.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Selector)
}

func (e *SelectorError) Unwrap() error {
	return e.Err
}

// NotFound returns a SelectorError for a selector that matched nothing.
func NotFound(selector string) error {
	return &SelectorError{Selector: selector, Err: ErrElementNotFound}
}

// IsDisconnected reports whether err means the browser or page is gone.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrDisconnected)
}

// classifyMessage maps raw driver error text to a sentinel. It returns nil
// when the message matches no known class.
func classifyMessage(msg string) error {
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "target closed"),
		strings.Contains(lower, "has been closed"),
		strings.Contains(lower, "browser has disconnected"),
		strings.Contains(lower, "connection closed"),
		strings.Contains(lower, "websocket closed"):
		return ErrDisconnected
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return ErrTimeout
	case strings.Contains(lower, "net::err_"),
		strings.Contains(lower, "navigation"):
		return ErrNavigationFailed
	case strings.Contains(lower, "no element found"),
		strings.Contains(lower, "failed to find element"):
		return ErrElementNotFound
	default:
		return nil
	}
}

// classifiedError keeps the driver's message while exposing the sentinel to
// errors.Is.
type classifiedError struct {
	kind error
	err  error
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() []error {
	return []error{e.kind, e.err}
}

// classify wraps err so that errors.Is matches the sentinel its message
// implies. Errors that already match a sentinel are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrDisconnected, ErrTimeout, ErrNavigationFailed, ErrElementNotFound} {
		if errors.Is(err, known) {
			return err
		}
	}
	if kind := classifyMessage(err.Error()); kind != nil {
		return &classifiedError{kind: kind, err: err}
	}
	return err
}
