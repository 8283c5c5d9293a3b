package config

import "fmt"

// EmbedderConfig configures the embedding provider.
type EmbedderConfig struct {
	// Provider type. Only "openai" (and OpenAI-compatible hosts) is supported.
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`

	// Model name (e.g., "text-embedding-3-small").
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// APIKey for authentication. Defaults to OPENAI_API_KEY.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Dimension of produced vectors. The chunk index stores 512-dim vectors.
	Dimension int `yaml:"dimension,omitempty" json:"dimension,omitempty"`

	// Timeout in seconds per embedding call.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *EmbedderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Dimension == 0 {
		c.Dimension = 512
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

// Validate checks the embedder configuration.
func (c *EmbedderConfig) Validate() error {
	if c.Provider != "openai" {
		return fmt.Errorf("unsupported embedder provider %q (supported: openai)", c.Provider)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("embedder dimension must be positive")
	}
	return nil
}

// RAGConfig tunes the retrieval stage.
type RAGConfig struct {
	// InitialK is the nearest-neighbor candidate count.
	InitialK int `yaml:"initial_k,omitempty" json:"initial_k,omitempty"`

	// FinalK is the context size after reranking.
	FinalK int `yaml:"final_k,omitempty" json:"final_k,omitempty"`

	// MinSimilarity is the cosine similarity floor for candidates.
	MinSimilarity float64 `yaml:"min_similarity,omitempty" json:"min_similarity,omitempty"`

	// Probes sets ivfflat probe count for the vector index.
	Probes int `yaml:"probes,omitempty" json:"probes,omitempty"`
}

// SetDefaults applies default values.
func (c *RAGConfig) SetDefaults() {
	if c.InitialK == 0 {
		c.InitialK = 15
	}
	if c.FinalK == 0 {
		c.FinalK = 5
	}
	if c.MinSimilarity == 0 {
		c.MinSimilarity = 0.25
	}
	if c.Probes == 0 {
		c.Probes = 10
	}
}

// Validate checks the retrieval configuration.
func (c *RAGConfig) Validate() error {
	if c.FinalK > c.InitialK {
		return fmt.Errorf("final_k (%d) cannot exceed initial_k (%d)", c.FinalK, c.InitialK)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be between 0 and 1")
	}
	return nil
}
