// Package config holds the yaml-backed configuration for the answering
// pipeline: provider credentials, pool sizing, retrieval tunables and the
// pipeline knobs. Every struct carries SetDefaults and Validate; Load wires
// them together after environment expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database,omitempty" json:"database,omitempty"`
	Embedder EmbedderConfig `yaml:"embedder,omitempty" json:"embedder,omitempty"`
	RAG      RAGConfig      `yaml:"rag,omitempty" json:"rag,omitempty"`
	Pipeline PipelineConfig `yaml:"pipeline,omitempty" json:"pipeline,omitempty"`

	// LogLevel: debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	// LogFormat: simple or verbose.
	LogFormat string `yaml:"log_format,omitempty" json:"log_format,omitempty"`
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	if c.Database.URL == "" {
		c.Database.URL = os.Getenv("DATABASE_URL")
	}
	c.Database.SetDefaults()
	c.Embedder.SetDefaults()
	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	c.RAG.SetDefaults()
	c.Pipeline.SetDefaults()

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "simple"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.RAG.Validate(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// Load reads, expands, defaults and validates a yaml config file. An empty
// path yields a config built purely from defaults and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
