package runner

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/browserflow/pkg/workflow"
)

// Config is a workflow file: the steps to run plus how to run and report
// them. YAML and JSON files are both accepted.
type Config struct {
	// Name labels the run in output and artifacts
	Name string `yaml:"name" json:"name"`

	Steps   []workflow.Step  `yaml:"steps" json:"steps"`
	Options workflow.Options `yaml:"options" json:"options"`

	// Timeout bounds the whole run; zero means no limit
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`
	Logging   LoggingConfig  `yaml:"logging" json:"logging"`
}

// LoggingConfig defines console output configuration
type LoggingConfig struct {
	// Verbosity controls output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON        bool `yaml:"json" json:"json"`
	Markdown    bool `yaml:"markdown" json:"markdown"`
	Screenshots bool `yaml:"screenshots" json:"screenshots"`
}

// DefaultConfig returns the settings a workflow file starts from.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
		Artifacts: ArtifactConfig{
			Enabled:     true,
			OutputDir:   "browserflow-artifacts",
			JSON:        true,
			Markdown:    true,
			Screenshots: true,
		},
		Logging: LoggingConfig{Verbosity: "normal"},
	}
}

// LoadConfig reads and validates a workflow file. Values missing from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a workflow file. JSON parses as YAML.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow file: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.Options.WaitBetweenSteps < 0 {
		return fmt.Errorf("waitBetweenSteps cannot be negative")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, ok := parseLogLevel(c.Logging.Verbosity); !ok {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}
