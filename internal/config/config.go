// Package config holds taskmind configuration: YAML file with defaults,
// environment overrides, and a hot-reload watcher for the logging section.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all taskmind configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Chat orchestration settings
	Chat ChatConfig `yaml:"chat"`

	// Conversation memory compaction
	Memory MemoryConfig `yaml:"memory"`

	// Workspace datastore
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the language-model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // anthropic, openai
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// ChatConfig configures the tool-use orchestration loop.
type ChatConfig struct {
	// MaxToolIterations caps provider round-trips per request.
	MaxToolIterations int `yaml:"max_tool_iterations"`
}

// MemoryConfig configures conversation memory compaction.
type MemoryConfig struct {
	// CompactionThreshold is the message count at which compaction becomes
	// eligible.
	CompactionThreshold int `yaml:"compaction_threshold"`

	// CompactionInterval re-arms the trigger every N messages past the
	// threshold, so compaction does not run on every turn.
	CompactionInterval int `yaml:"compaction_interval"`

	// KeepRecent is how many of the newest messages survive a prune.
	KeepRecent int `yaml:"keep_recent"`
}

// WorkspaceConfig configures the workspace datastore.
type WorkspaceConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures categorized logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // master toggle, false = no logging
	Categories map[string]bool `yaml:"categories"` // per-category toggles
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "taskmind",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			BaseURL:     "https://api.anthropic.com/v1",
			Timeout:     "120s",
			MaxTokens:   4096,
			Temperature: 0.7,
		},

		Chat: ChatConfig{
			MaxToolIterations: 10,
		},

		Memory: MemoryConfig{
			CompactionThreshold: 60,
			CompactionInterval:  10,
			KeepRecent:          50,
		},

		Workspace: WorkspaceConfig{
			DatabasePath: "data/taskmind.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
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
	// Provider API keys, checked in priority order: an explicitly set
	// ANTHROPIC key loses to an OPENAI key, matching doc'd precedence.
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("TASKMIND_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	if model := os.Getenv("TASKMIND_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("TASKMIND_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if path := os.Getenv("TASKMIND_DB"); path != "" {
		c.Workspace.DatabasePath = path
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"anthropic", "openai"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set ANTHROPIC_API_KEY or OPENAI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Chat.MaxToolIterations <= 0 {
		return fmt.Errorf("chat.max_tool_iterations must be positive, got %d", c.Chat.MaxToolIterations)
	}
	if c.Memory.KeepRecent <= 0 {
		return fmt.Errorf("memory.keep_recent must be positive, got %d", c.Memory.KeepRecent)
	}
	if c.Memory.CompactionInterval <= 0 {
		return fmt.Errorf("memory.compaction_interval must be positive, got %d", c.Memory.CompactionInterval)
	}
	return nil
}

// DefaultPath returns the conventional config file location inside a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".taskmind", "config.yaml")
}
