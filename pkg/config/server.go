package config

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	// SectionIDServer is the identifier for the HTTP server section
	SectionIDServer = "server"

	defaultServerAddress  = "127.0.0.1:3000"
	defaultRequestTimeout = 90 * time.Second
	defaultMaxBodyBytes   = 1 << 20
	defaultIdleTimeout    = 10 * time.Minute
)

// ServerSection configures the HTTP service.
type ServerSection struct {
	Address        string        `json:"address"`
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxBodyBytes   int           `json:"max_body_bytes"`

	// IdleTimeout closes the browser after this long without use; zero
	// keeps it open until shutdown
	IdleTimeout time.Duration `json:"idle_timeout"`
	mu          sync.RWMutex
}

// NewServerSection creates a server section with default settings.
func NewServerSection() *ServerSection {
	s := &ServerSection{}
	s.reset()
	return s
}

// ID returns the section identifier.
func (s *ServerSection) ID() string {
	return SectionIDServer
}

// Title returns the section title.
func (s *ServerSection) Title() string {
	return "Server"
}

// Description returns the section description.
func (s *ServerSection) Description() string {
	return "HTTP listen address, per-request timeout, body size limit and idle browser shutdown."
}

// Data returns the current configuration data.
func (s *ServerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"address":         s.Address,
		"request_timeout": s.RequestTimeout.String(),
		"max_body_bytes":  s.MaxBodyBytes,
		"idle_timeout":    s.IdleTimeout.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *ServerSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for key, value := range data {
		switch key {
		case "address":
			s.Address, err = stringValue(key, value)
		case "request_timeout":
			s.RequestTimeout, err = durationValue(key, value)
		case "max_body_bytes":
			s.MaxBodyBytes, err = intValue(key, value)
		case "idle_timeout":
			s.IdleTimeout, err = durationValue(key, value)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *ServerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	if _, _, err := net.SplitHostPort(s.Address); err != nil {
		errs = append(errs, fmt.Errorf("invalid address %q: %w", s.Address, err))
	}
	if s.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %v", s.RequestTimeout))
	}
	if s.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be positive, got %d", s.MaxBodyBytes))
	}
	if s.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("idle_timeout must not be negative, got %v", s.IdleTimeout))
	}
	return errors.Join(errs...)
}

// Reset resets the section to default configuration.
func (s *ServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *ServerSection) reset() {
	s.Address = defaultServerAddress
	s.RequestTimeout = defaultRequestTimeout
	s.MaxBodyBytes = defaultMaxBodyBytes
	s.IdleTimeout = defaultIdleTimeout
}

// Settings returns a consistent snapshot of the section.
func (s *ServerSection) Settings() (address string, requestTimeout time.Duration, maxBodyBytes int64, idleTimeout time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Address, s.RequestTimeout, int64(s.MaxBodyBytes), s.IdleTimeout
}
