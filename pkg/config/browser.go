package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/browserflow/pkg/browser"
)

// SectionIDBrowser is the identifier for the browser settings section
const SectionIDBrowser = "browser"

// BrowserSection configures the browser process, the page profile and the
// navigation host policy.
type BrowserSection struct {
	Headless            bool          `json:"headless"`
	UserAgent           string        `json:"user_agent"`
	ViewportWidth       int           `json:"viewport_width"`
	ViewportHeight      int           `json:"viewport_height"`
	LaunchArgs          []string      `json:"launch_args"`
	DefaultTimeout      time.Duration `json:"default_timeout"`
	MaxRelaunchAttempts int           `json:"max_relaunch_attempts"`
	RelaunchBackoff     time.Duration `json:"relaunch_backoff"`
	AllowedHosts        []string      `json:"allowed_hosts"`
	DeniedHosts         []string      `json:"denied_hosts"`
	mu                  sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.reset()
	return s
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Browser launch profile, page defaults, relaunch policy and allowed navigation hosts."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"headless":              s.Headless,
		"user_agent":            s.UserAgent,
		"viewport_width":        s.ViewportWidth,
		"viewport_height":       s.ViewportHeight,
		"launch_args":           cloneStrings(s.LaunchArgs),
		"default_timeout":       s.DefaultTimeout.String(),
		"max_relaunch_attempts": s.MaxRelaunchAttempts,
		"relaunch_backoff":      s.RelaunchBackoff.String(),
		"allowed_hosts":         cloneStrings(s.AllowedHosts),
		"denied_hosts":          cloneStrings(s.DeniedHosts),
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for key, value := range data {
		switch key {
		case "headless":
			s.Headless, err = boolValue(key, value)
		case "user_agent":
			s.UserAgent, err = stringValue(key, value)
		case "viewport_width":
			s.ViewportWidth, err = intValue(key, value)
		case "viewport_height":
			s.ViewportHeight, err = intValue(key, value)
		case "launch_args":
			s.LaunchArgs, err = stringsValue(key, value)
		case "default_timeout":
			s.DefaultTimeout, err = durationValue(key, value)
		case "max_relaunch_attempts":
			s.MaxRelaunchAttempts, err = intValue(key, value)
		case "relaunch_backoff":
			s.RelaunchBackoff, err = durationValue(key, value)
		case "allowed_hosts":
			s.AllowedHosts, err = stringsValue(key, value)
		case "denied_hosts":
			s.DeniedHosts, err = stringsValue(key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight))
	}
	if s.DefaultTimeout <= 0 {
		errs = append(errs, fmt.Errorf("default_timeout must be positive, got %v", s.DefaultTimeout))
	}
	if s.MaxRelaunchAttempts < 1 || s.MaxRelaunchAttempts > 10 {
		errs = append(errs, fmt.Errorf("max_relaunch_attempts must be between 1 and 10, got %d", s.MaxRelaunchAttempts))
	}
	if s.RelaunchBackoff < 0 {
		errs = append(errs, fmt.Errorf("relaunch_backoff must not be negative, got %v", s.RelaunchBackoff))
	}
	if _, err := browser.NewHostPolicy(s.AllowedHosts, s.DeniedHosts); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *BrowserSection) reset() {
	launch := browser.DefaultLaunchOptions()
	page := browser.DefaultPageOptions()

	s.Headless = launch.Headless
	s.UserAgent = page.UserAgent
	s.ViewportWidth = page.Viewport.Width
	s.ViewportHeight = page.Viewport.Height
	s.LaunchArgs = launch.Args
	s.DefaultTimeout = page.DefaultTimeout
	s.MaxRelaunchAttempts = browser.DefaultMaxRelaunchAttempts
	s.RelaunchBackoff = browser.DefaultRelaunchBackoff
	s.AllowedHosts = nil
	s.DeniedHosts = nil
}

// SessionConfig builds the session manager configuration described by the
// section. The logger is left for the caller to set.
func (s *BrowserSection) SessionConfig() browser.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config := browser.DefaultSessionConfig()
	config.Launch.Headless = s.Headless
	config.Launch.Args = cloneStrings(s.LaunchArgs)
	config.Launch.Timeout = s.DefaultTimeout
	config.Page.UserAgent = s.UserAgent
	config.Page.Viewport = browser.Viewport{Width: s.ViewportWidth, Height: s.ViewportHeight}
	config.Page.DefaultTimeout = s.DefaultTimeout
	config.MaxRelaunchAttempts = s.MaxRelaunchAttempts
	if s.RelaunchBackoff == 0 {
		config.Backoff = browser.NoBackoff{}
	} else {
		config.Backoff = browser.NewExponentialBackoff(s.RelaunchBackoff, browser.DefaultMaxRelaunchBackoff)
	}
	return config
}

// HostPolicy compiles the allowed and denied host patterns. A section with
// neither returns a nil policy, which allows every host.
func (s *BrowserSection) HostPolicy() (*browser.HostPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.AllowedHosts) == 0 && len(s.DeniedHosts) == 0 {
		return nil, nil
	}
	return browser.NewHostPolicy(s.AllowedHosts, s.DeniedHosts)
}
