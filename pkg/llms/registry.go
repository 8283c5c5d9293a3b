package llms

import (
	"context"
	"fmt"
	"sync"

	"github.com/castellsqa/enxaneta/pkg/config"
)

// Provider is the uniform adapter contract. Generate returns non-empty
// trimmed text; Parse fills out with a value conforming to schema, using the
// vendor's native structured output when available and schema injection
// otherwise.
type Provider interface {
	Generate(ctx context.Context, msgs Messages) (string, error)

	Parse(ctx context.Context, msgs Messages, schema map[string]interface{}, out interface{}) error

	SupportsStructuredOutput() bool

	ModelName() string

	// LastUsage returns the token usage of the most recent call, when the
	// vendor reported it.
	LastUsage() TokenUsage

	Close() error
}

// NewProvider builds the adapter variant for cfg.Provider. New vendors are
// added by extending this switch with a type implementing Provider.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.LLMProviderOpenAI,
		config.LLMProviderGroq,
		config.LLMProviderDeepSeek,
		config.LLMProviderCerebras,
		config.LLMProviderSambaNova:
		return NewOpenAICompatProvider(cfg)
	case config.LLMProviderAnthropic:
		return NewAnthropicProvider(cfg)
	case config.LLMProviderGemini:
		return NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Registry caches one adapter per "provider:model" reference so HTTP clients
// (and their TLS state) are reused across requests. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Resolve returns the cached adapter for ref, building it on first use.
func (r *Registry) Resolve(ref string) (Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[ref]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	cfg, err := config.ParseModelRef(ref)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[ref]; ok {
		return p, nil
	}

	p, err = NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider for %q: %w", ref, err)
	}
	r.providers[ref] = p
	return p, nil
}

// Close closes every cached adapter.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for ref, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", ref, err)
		}
	}
	r.providers = make(map[string]Provider)
	return firstErr
}
