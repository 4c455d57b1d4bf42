package browser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// ErrHostNotAllowed is returned by HostPolicy.Check for a rejected URL.
var ErrHostNotAllowed = errors.New("host not allowed")

// HostPolicy restricts navigation targets by host name. Patterns are globs
// with '.' as separator, so "*.example.com" matches one label and
// "**.example.com" matches any depth. Denied patterns win over allowed ones;
// an empty allow list allows every host that is not denied.
type HostPolicy struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewHostPolicy compiles allow and deny patterns.
func NewHostPolicy(allowed, denied []string) (*HostPolicy, error) {
	p := &HostPolicy{}
	var err error
	if p.allowed, err = compileHosts(allowed); err != nil {
		return nil, err
	}
	if p.denied, err = compileHosts(denied); err != nil {
		return nil, err
	}
	return p, nil
}

func compileHosts(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid host pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Check reports whether rawURL may be navigated to. Non-network schemes
// such as about: and data: carry no host and are always allowed.
func (p *HostPolicy) Check(rawURL string) error {
	if p == nil || (len(p.allowed) == 0 && len(p.denied) == 0) {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}

	for _, g := range p.denied {
		if g.Match(host) {
			return fmt.Errorf("%w: %s is denied", ErrHostNotAllowed, host)
		}
	}
	if len(p.allowed) == 0 {
		return nil
	}
	for _, g := range p.allowed {
		if g.Match(host) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not in the allow list", ErrHostNotAllowed, host)
}
