// Package config provides configuration loading and management for DraftForge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete DraftForge configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	NATS       NATSConfig       `yaml:"nats"`
	Models     ModelsConfig     `yaml:"models"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// ShutdownTimeout is how long to wait for in-flight requests on shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
	// StoreDir is the JetStream storage directory for the embedded server
	StoreDir string `yaml:"store_dir"`
}

// ModelsConfig configures model registry and LLM client settings
type ModelsConfig struct {
	// RegistryPath is the path to the model registry JSON file
	// (empty = built-in defaults)
	RegistryPath string `yaml:"registry_path"`
	// WatchRegistry reloads the registry file when it changes
	WatchRegistry bool `yaml:"watch_registry"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// GenerationConfig configures drafting and validation behavior
type GenerationConfig struct {
	// DraftTemperature controls randomness for section drafting (0.0-1.0)
	DraftTemperature float64 `yaml:"draft_temperature"`
	// ValidateTemperature controls randomness for rule validation (0.0-1.0)
	ValidateTemperature float64 `yaml:"validate_temperature"`
	// MaxOutputTokens caps the tokens requested per section
	MaxOutputTokens int `yaml:"max_output_tokens"`
	// ContextCharLimit caps each prior-section digest entry in prompts
	ContextCharLimit int `yaml:"context_char_limit"`
	// ValidationCharBudget caps the assembled content sent for validation
	ValidationCharBudget int `yaml:"validation_char_budget"`
	// MaxRules caps how many rules are sent per validation call
	MaxRules int `yaml:"max_rules"`
	// RuleDescriptionLimit caps each rule description in prompts
	RuleDescriptionLimit int `yaml:"rule_description_limit"`
}

// LogConfig configures logging output
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format is the output format (text or json)
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
			StoreDir: "",
		},
		Models: ModelsConfig{
			RegistryPath:  "",
			WatchRegistry: false,
			Timeout:       5 * time.Minute,
		},
		Generation: GenerationConfig{
			DraftTemperature:     0.7,
			ValidateTemperature:  0.3,
			MaxOutputTokens:      4000,
			ContextCharLimit:     2000,
			ValidationCharBudget: 30000,
			MaxRules:             15,
			RuleDescriptionLimit: 200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Generation.DraftTemperature < 0 || c.Generation.DraftTemperature > 1 {
		return fmt.Errorf("generation.draft_temperature must be between 0 and 1")
	}
	if c.Generation.ValidateTemperature < 0 || c.Generation.ValidateTemperature > 1 {
		return fmt.Errorf("generation.validate_temperature must be between 0 and 1")
	}
	if c.Generation.MaxOutputTokens <= 0 {
		return fmt.Errorf("generation.max_output_tokens must be positive")
	}
	if c.Generation.MaxRules <= 0 {
		return fmt.Errorf("generation.max_rules must be positive")
	}
	if !c.NATS.Embedded && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.embedded is false")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.StoreDir != "" {
		c.NATS.StoreDir = other.NATS.StoreDir
	}

	if other.Models.RegistryPath != "" {
		c.Models.RegistryPath = other.Models.RegistryPath
	}
	if other.Models.WatchRegistry {
		c.Models.WatchRegistry = true
	}
	if other.Models.Timeout != 0 {
		c.Models.Timeout = other.Models.Timeout
	}

	if other.Generation.DraftTemperature != 0 {
		c.Generation.DraftTemperature = other.Generation.DraftTemperature
	}
	if other.Generation.ValidateTemperature != 0 {
		c.Generation.ValidateTemperature = other.Generation.ValidateTemperature
	}
	if other.Generation.MaxOutputTokens != 0 {
		c.Generation.MaxOutputTokens = other.Generation.MaxOutputTokens
	}
	if other.Generation.ContextCharLimit != 0 {
		c.Generation.ContextCharLimit = other.Generation.ContextCharLimit
	}
	if other.Generation.ValidationCharBudget != 0 {
		c.Generation.ValidationCharBudget = other.Generation.ValidationCharBudget
	}
	if other.Generation.MaxRules != 0 {
		c.Generation.MaxRules = other.Generation.MaxRules
	}
	if other.Generation.RuleDescriptionLimit != 0 {
		c.Generation.RuleDescriptionLimit = other.Generation.RuleDescriptionLimit
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
