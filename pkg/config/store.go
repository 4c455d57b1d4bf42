package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store provides persistence for configuration data.
type Store interface {
	// Load loads the configuration from disk
	Load() error

	// Save saves the configuration to disk
	Save() error

	// GetSection retrieves configuration data for a specific section
	GetSection(sectionID string) (map[string]any, error)

	// SetSection stores configuration data for a specific section
	SetSection(sectionID string, data map[string]any) error

	// GetAll retrieves all configuration data
	GetAll() (map[string]map[string]any, error)

	// SetAll stores all configuration data
	SetAll(data map[string]map[string]any) error
}

// fileFormatVersion is written to every saved config file. Files with a
// newer major version are rejected rather than silently rewritten.
const fileFormatVersion = "1.0"

// DefaultPath returns ~/.browserflow/config.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".browserflow", "config.json"), nil
}

// document is the on-disk layout of a FileStore.
type document struct {
	Version  string                    `json:"version"`
	Sections map[string]map[string]any `json:"sections"`
}

// FileStore keeps sections in a JSON file of the form
//
//	{"version": "1.0", "sections": {"browser": {...}, "server": {...}}}
//
// Hand-written files without the envelope, with sections at the top level,
// are read too and rewritten with the envelope on the next Save.
type FileStore struct {
	path     string
	mu       sync.RWMutex
	sections map[string]map[string]any
	modified bool
}

// NewFileStore opens the store at path, or DefaultPath when path is empty.
// A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	store := &FileStore{path: path}
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Load replaces the in-memory sections with the file's contents.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.sections = make(map[string]map[string]any)
		s.modified = false
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", s.path, err)
	}

	sections, migrated, err := decodeDocument(raw)
	if err != nil {
		return fmt.Errorf("config %s: %w", s.path, err)
	}
	s.sections = sections
	s.modified = migrated
	return nil
}

// decodeDocument parses a config file and reports whether it used the
// legacy layout without the sections envelope.
func decodeDocument(raw []byte) (map[string]map[string]any, bool, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, false, fmt.Errorf("not a JSON object: %w", err)
	}

	var version string
	if v, ok := top["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return nil, false, fmt.Errorf("version must be a string: %w", err)
		}
		if err := checkVersion(version); err != nil {
			return nil, false, err
		}
	}

	rawSections := top
	migrated := false
	if envelope, ok := top["sections"]; ok {
		rawSections = nil
		if err := json.Unmarshal(envelope, &rawSections); err != nil {
			return nil, false, fmt.Errorf("sections must be an object: %w", err)
		}
	} else {
		delete(rawSections, "version")
		migrated = len(rawSections) > 0
	}

	sections := make(map[string]map[string]any, len(rawSections))
	for id, value := range rawSections {
		var section map[string]any
		if err := json.Unmarshal(value, &section); err != nil {
			return nil, false, fmt.Errorf("section %q must be an object", id)
		}
		if section == nil {
			section = make(map[string]any)
		}
		sections[id] = section
	}
	return sections, migrated, nil
}

func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	major, _, _ := strings.Cut(version, ".")
	supported, _, _ := strings.Cut(fileFormatVersion, ".")
	if major != supported {
		return fmt.Errorf("unsupported format version %q (this build reads %s)", version, fileFormatVersion)
	}
	return nil
}

// Save writes every section to a temporary file next to the config and
// renames it into place.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(document{Version: fileFormatVersion, Sections: s.sections}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	defer os.Remove(tmp.Name()) // No-op once renamed

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace config %s: %w", s.path, err)
	}

	s.modified = false
	return nil
}

// GetSection returns a copy of one section; unknown sections are empty.
func (s *FileStore) GetSection(sectionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySection(s.sections[sectionID]), nil
}

// SetSection replaces one section with a copy of data.
func (s *FileStore) SetSection(sectionID string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sections == nil {
		s.sections = make(map[string]map[string]any)
	}
	s.sections[sectionID] = copySection(data)
	s.modified = true
	return nil
}

// GetAll returns a deep copy of every section.
func (s *FileStore) GetAll() (map[string]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySections(s.sections), nil
}

// SetAll replaces every section with a deep copy of data.
func (s *FileStore) SetAll(data map[string]map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sections = copySections(data)
	s.modified = true
	return nil
}

// IsModified reports unsaved changes, including a legacy file that
// still needs rewriting.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

func copySection(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func copySections(data map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(data))
	for id, section := range data {
		out[id] = copySection(section)
	}
	return out
}
