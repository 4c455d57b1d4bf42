package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a step with a missing or malformed field. It is
// raised before the step touches the page.
type ValidationError struct {
	Index  int
	Kind   Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("step %d: invalid %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("step %d (%s): invalid %s: %s", e.Index, e.Kind, e.Field, e.Reason)
}

// UnsupportedStepTypeError reports a step type no action is registered for.
type UnsupportedStepTypeError struct {
	Index int
	Type  string
}

func (e *UnsupportedStepTypeError) Error() string {
	var names []string
	for _, kind := range Kinds() {
		names = append(names, string(kind))
	}
	return fmt.Sprintf("step %d: unsupported step type %q (supported: %s)", e.Index, e.Type, strings.Join(names, ", "))
}

// ActionError reports a browser action that failed, such as a missing
// element, a timeout or a failed navigation.
type ActionError struct {
	Index    int
	Kind     Kind
	Selector string
	Err      error
}

func (e *ActionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("step %d (%s %s): %v", e.Index, e.Kind, e.Selector, e.Err)
	}
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ConnectivityError reports that the browser went away while a step ran.
// The session is invalid; the next acquisition relaunches the browser.
type ConnectivityError struct {
	Index int
	Kind  Kind
	Err   error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("step %d (%s): browser disconnected: %v", e.Index, e.Kind, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err means the browser is gone.
func IsConnectivity(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
