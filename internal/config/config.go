package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"saysh/internal/logging"
)

// ErrInvalidThresholds is returned by Validate when the confidence
// thresholds are out of order or out of range.
var ErrInvalidThresholds = errors.New("invalid confidence thresholds")

// Config holds all saysh configuration.
type Config struct {
	// Intent resolution confidence cut-offs
	Intent IntentConfig `yaml:"intent"`

	// Recent-command window for reference resolution
	Context ContextConfig `yaml:"context"`

	// Learning record persistence
	Learning LearningConfig `yaml:"learning"`

	// User phrase mappings overlaid on the built-in vocabulary
	Vocabulary VocabularyConfig `yaml:"vocabulary"`

	// Execution journal
	Journal JournalConfig `yaml:"journal"`

	// Process execution
	Execution ExecutionConfig `yaml:"execution"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Session toggle defaults
	Session SessionConfig `yaml:"session"`
}

// IntentConfig holds the similarity thresholds, on a 0-100 scale.
type IntentConfig struct {
	ExecThreshold       float64 `yaml:"exec_threshold"`
	SuggestThreshold    float64 `yaml:"suggest_threshold"`
	CorrectionThreshold float64 `yaml:"correction_threshold"`
}

// ContextConfig configures the context store.
type ContextConfig struct {
	HistorySize int `yaml:"history_size"`
}

// LearningConfig configures where the learning record lives.
type LearningConfig struct {
	Path string `yaml:"path"` // default: <home>/learning_data.json
}

// VocabularyConfig configures the user mapping file.
type VocabularyConfig struct {
	Path  string `yaml:"path"`  // default: <home>/vocabulary.yaml
	Watch bool   `yaml:"watch"` // reload on change
}

// JournalConfig configures the SQLite execution journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: <home>/journal.db
}

// ExecutionConfig configures process execution.
type ExecutionConfig struct {
	Timeout        string `yaml:"timeout"` // empty = no timeout
	MaxOutputBytes int64  `yaml:"max_output_bytes"`
	WorkingDir     string `yaml:"working_dir"`
}

// SessionConfig holds the initial values of the session toggles.
type SessionConfig struct {
	Verbose   bool `yaml:"verbose"`
	Preview   bool `yaml:"preview"`
	Feedback  bool `yaml:"feedback"`
	Execution bool `yaml:"execution"`
	Suggest   bool `yaml:"suggest"`
	TestMode  bool `yaml:"test_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Intent: IntentConfig{
			ExecThreshold:       90,
			SuggestThreshold:    65,
			CorrectionThreshold: 90,
		},
		Context: ContextConfig{HistorySize: 10},
		Vocabulary: VocabularyConfig{
			Watch: true,
		},
		Journal: JournalConfig{Enabled: true},
		Execution: ExecutionConfig{
			MaxOutputBytes: 10 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Session: SessionConfig{
			Preview:   true,
			Feedback:  false,
			Execution: true,
		},
	}
}

// Home returns the saysh home directory: $SAYSH_HOME, else ~/.saysh.
func Home() string {
	if h := os.Getenv("SAYSH_HOME"); h != "" {
		return h
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".saysh")
	}
	return ".saysh"
}

// DefaultPath is the config file inside home.
func DefaultPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logging.Config("No config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SAYSH_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
		} else {
			logging.ConfigWarn("Ignoring SAYSH_DEBUG=%q: %v", v, err)
		}
	}
	if v := os.Getenv("SAYSH_EXEC_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Intent.ExecThreshold = f
		} else {
			logging.ConfigWarn("Ignoring SAYSH_EXEC_THRESHOLD=%q: %v", v, err)
		}
	}
	if v := os.Getenv("SAYSH_SUGGEST_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Intent.SuggestThreshold = f
		} else {
			logging.ConfigWarn("Ignoring SAYSH_SUGGEST_THRESHOLD=%q: %v", v, err)
		}
	}
	if path := os.Getenv("SAYSH_VOCABULARY"); path != "" {
		c.Vocabulary.Path = path
	}
}

// ResolvePaths fills empty file paths with their defaults under home and
// makes relative paths absolute against it.
func (c *Config) ResolvePaths(home string) {
	resolve := func(p *string, def string) {
		switch {
		case *p == "":
			*p = filepath.Join(home, def)
		case *p == "~" || strings.HasPrefix(*p, "~/"):
			if dir, err := os.UserHomeDir(); err == nil {
				*p = filepath.Join(dir, (*p)[1:])
			}
		case !filepath.IsAbs(*p):
			*p = filepath.Join(home, *p)
		}
	}
	resolve(&c.Learning.Path, "learning_data.json")
	resolve(&c.Vocabulary.Path, "vocabulary.yaml")
	resolve(&c.Journal.Path, "journal.db")
}

// GetExecutionTimeout returns the process timeout; zero means none.
func (c *Config) GetExecutionTimeout() time.Duration {
	if c.Execution.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Execution.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	in := c.Intent
	if in.SuggestThreshold <= 0 || in.ExecThreshold > 100 || in.SuggestThreshold >= in.ExecThreshold {
		return fmt.Errorf("%w: need 0 < suggest (%.1f) < exec (%.1f) <= 100",
			ErrInvalidThresholds, in.SuggestThreshold, in.ExecThreshold)
	}
	if in.CorrectionThreshold <= 0 || in.CorrectionThreshold > 100 {
		return fmt.Errorf("%w: correction threshold %.1f not in (0, 100]", ErrInvalidThresholds, in.CorrectionThreshold)
	}
	if c.Context.HistorySize < 1 {
		return fmt.Errorf("context history_size must be at least 1, got %d", c.Context.HistorySize)
	}
	if c.Execution.Timeout != "" {
		if _, err := time.ParseDuration(c.Execution.Timeout); err != nil {
			return fmt.Errorf("invalid execution timeout %q: %w", c.Execution.Timeout, err)
		}
	}
	return nil
}
