package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/browserflow/pkg/browser"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		manager, err := Load(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, err)

		require.Len(t, manager.GetSections(), 2)
		assert.True(t, manager.Browser().Headless)
		assert.Equal(t, 90*time.Second, manager.Server().RequestTimeout)
	})

	t.Run("stored values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		writeConfigFile(t, path, map[string]map[string]any{
			"browser": {
				"headless":      false,
				"allowed_hosts": []any{"*.example.com"},
			},
			"server": {
				"address":         "0.0.0.0:8080",
				"request_timeout": "30s",
				"unknown":         "ignored",
			},
		})

		manager, err := Load(path)
		require.NoError(t, err)
		assert.False(t, manager.Browser().Headless)
		assert.Equal(t, []string{"*.example.com"}, manager.Browser().AllowedHosts)
		assert.Equal(t, "0.0.0.0:8080", manager.Server().Address)
		assert.Equal(t, 30*time.Second, manager.Server().RequestTimeout)
	})

	t.Run("wrong value type", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		writeConfigFile(t, path, map[string]map[string]any{
			"browser": {"headless": "yes"},
		})

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestLoad_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	manager, err := Load(path)
	require.NoError(t, err)

	manager.Browser().ViewportWidth = 1920
	manager.Browser().DeniedHosts = []string{"localhost"}
	manager.Server().IdleTimeout = time.Minute
	require.NoError(t, manager.SaveAll())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1920, reloaded.Browser().ViewportWidth)
	assert.Equal(t, []string{"localhost"}, reloaded.Browser().DeniedHosts)
	assert.Equal(t, time.Minute, reloaded.Server().IdleTimeout)
}

func TestBrowserSection_SetData(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
		check   func(t *testing.T, s *BrowserSection)
	}{
		{
			name: "json numbers and durations",
			data: map[string]any{
				"viewport_width":        float64(1280),
				"viewport_height":       float64(720),
				"default_timeout":       "45s",
				"max_relaunch_attempts": float64(5),
				"relaunch_backoff":      float64(time.Second),
			},
			check: func(t *testing.T, s *BrowserSection) {
				assert.Equal(t, 1280, s.ViewportWidth)
				assert.Equal(t, 720, s.ViewportHeight)
				assert.Equal(t, 45*time.Second, s.DefaultTimeout)
				assert.Equal(t, 5, s.MaxRelaunchAttempts)
				assert.Equal(t, time.Second, s.RelaunchBackoff)
			},
		},
		{
			name: "string lists",
			data: map[string]any{
				"launch_args":  []any{"--no-sandbox"},
				"denied_hosts": []string{"**.internal"},
			},
			check: func(t *testing.T, s *BrowserSection) {
				assert.Equal(t, []string{"--no-sandbox"}, s.LaunchArgs)
				assert.Equal(t, []string{"**.internal"}, s.DeniedHosts)
			},
		},
		{name: "fractional int", data: map[string]any{"viewport_width": 10.5}, wantErr: true},
		{name: "bad duration", data: map[string]any{"default_timeout": "soon"}, wantErr: true},
		{name: "mixed list", data: map[string]any{"allowed_hosts": []any{"a.com", 1}}, wantErr: true},
		{name: "bad user agent", data: map[string]any{"user_agent": 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBrowserSection()
			err := s.SetData(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestBrowserSection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *BrowserSection)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*BrowserSection) {}},
		{name: "zero viewport", mutate: func(s *BrowserSection) { s.ViewportHeight = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(s *BrowserSection) { s.DefaultTimeout = 0 }, wantErr: true},
		{name: "no relaunch attempts", mutate: func(s *BrowserSection) { s.MaxRelaunchAttempts = 0 }, wantErr: true},
		{name: "negative backoff", mutate: func(s *BrowserSection) { s.RelaunchBackoff = -time.Second }, wantErr: true},
		{name: "bad host pattern", mutate: func(s *BrowserSection) { s.AllowedHosts = []string{"[a-"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBrowserSection()
			tt.mutate(s)
			if tt.wantErr {
				assert.Error(t, s.Validate())
			} else {
				assert.NoError(t, s.Validate())
			}
		})
	}
}

func TestBrowserSection_SessionConfig(t *testing.T) {
	s := NewBrowserSection()
	require.NoError(t, s.SetData(map[string]any{
		"headless":        false,
		"user_agent":      "browserflow-test",
		"viewport_width":  800,
		"viewport_height": 600,
		"default_timeout": "10s",
	}))

	config := s.SessionConfig()
	assert.False(t, config.Launch.Headless)
	assert.Equal(t, "browserflow-test", config.Page.UserAgent)
	assert.Equal(t, browser.Viewport{Width: 800, Height: 600}, config.Page.Viewport)
	assert.Equal(t, 10*time.Second, config.Page.DefaultTimeout)
	assert.Equal(t, browser.DefaultInitScript, config.Page.InitScript)
	assert.Equal(t, browser.DefaultMaxRelaunchAttempts, config.MaxRelaunchAttempts)
	assert.IsType(t, &browser.ExponentialBackoff{}, config.Backoff)

	s.RelaunchBackoff = 0
	assert.Equal(t, browser.NoBackoff{}, s.SessionConfig().Backoff)
}

func TestBrowserSection_HostPolicy(t *testing.T) {
	s := NewBrowserSection()
	policy, err := s.HostPolicy()
	require.NoError(t, err)
	assert.Nil(t, policy, "no patterns means no policy")

	s.AllowedHosts = []string{"example.com", "*.example.com"}
	s.DeniedHosts = []string{"admin.example.com"}
	policy, err = s.HostPolicy()
	require.NoError(t, err)

	assert.NoError(t, policy.Check("https://www.example.com/"))
	assert.ErrorIs(t, policy.Check("https://admin.example.com/"), browser.ErrHostNotAllowed)
	assert.ErrorIs(t, policy.Check("https://other.org/"), browser.ErrHostNotAllowed)
}

func TestBrowserSection_Reset(t *testing.T) {
	s := NewBrowserSection()
	s.Headless = false
	s.AllowedHosts = []string{"example.com"}

	s.Reset()
	assert.True(t, s.Headless)
	assert.Nil(t, s.AllowedHosts)
	assert.Equal(t, browser.DefaultLaunchArgs, s.LaunchArgs)
}

func TestServerSection(t *testing.T) {
	s := NewServerSection()
	require.NoError(t, s.Validate())

	address, timeout, maxBody, idle := s.Settings()
	assert.Equal(t, "127.0.0.1:3000", address)
	assert.Equal(t, 90*time.Second, timeout)
	assert.Equal(t, int64(1<<20), maxBody)
	assert.Equal(t, 10*time.Minute, idle)

	require.NoError(t, s.SetData(map[string]any{
		"address":        ":8080",
		"max_body_bytes": float64(4096),
		"idle_timeout":   "0s",
	}))
	require.NoError(t, s.Validate())
	assert.Equal(t, ":8080", s.Address)
	assert.Equal(t, 4096, s.MaxBodyBytes)
	assert.Zero(t, s.IdleTimeout)

	s.Address = "no-port"
	s.RequestTimeout = 0
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
	assert.Contains(t, err.Error(), "request_timeout")

	assert.Error(t, s.SetData(map[string]any{"request_timeout": true}))

	s.Reset()
	assert.Equal(t, defaultServerAddress, s.Address)
}
