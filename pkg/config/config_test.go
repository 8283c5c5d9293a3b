package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelRef(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := ParseModelRef("openai:gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, LLMProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)

	cfg, err = ParseModelRef("groq:llama-3.3-70b-versatile")
	require.NoError(t, err)
	assert.Equal(t, LLMProviderGroq, cfg.Provider)

	_, err = ParseModelRef("gpt-4o")
	assert.Error(t, err, "reference without provider must fail")

	_, err = ParseModelRef("nosuchvendor:model")
	assert.Error(t, err)
}

func TestLLMConfigMissingKeyIsFatal(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")

	_, err := ParseModelRef("deepseek:deepseek-chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEEPSEEK_API_KEY")
}

func TestLLMConfigDefaults(t *testing.T) {
	cfg := LLMConfig{Provider: LLMProviderOpenAI, Model: "gpt-4o"}
	cfg.SetDefaults()

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, 60, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 2, cfg.RetryDelay)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CASTELLS_DB", "postgres://db")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		in   string
		want string
	}{
		{"url: ${CASTELLS_DB}", "url: postgres://db"},
		{"url: $CASTELLS_DB", "url: postgres://db"},
		{"url: ${EMPTY_VAR:-fallback}", "url: fallback"},
		{"url: ${CASTELLS_DB:-fallback}", "url: postgres://db"},
		{"no variables here", "no variables here"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in), "expand(%q)", tt.in)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://user:pw@localhost:5432/castells")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `database:
  url: ${DATABASE_URL}
  pool_max: 20
rag:
  final_k: 3
  min_similarity: 0.4
pipeline:
  router_model: "openai:gpt-4o-mini"
  hybrid_enabled: true
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgresql://user:pw@localhost:5432/castells", cfg.Database.URL)
	assert.Equal(t, int32(20), cfg.Database.PoolMax)
	assert.Equal(t, int32(2), cfg.Database.PoolMin, "defaults fill unset fields")
	assert.Equal(t, 3, cfg.RAG.FinalK)
	assert.InDelta(t, 0.4, cfg.RAG.MinSimilarity, 1e-9)
	assert.Equal(t, 15, cfg.RAG.InitialK)
	assert.True(t, cfg.Pipeline.HybridEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Database.PoolAcquireTimeout)
}

func TestLoadDefaultsOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://user:pw@localhost:5432/castells")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai:gpt-4o-mini", cfg.Pipeline.RouterModel)
	assert.Equal(t, "openai:gpt-4o", cfg.Pipeline.AnswerModel)
	assert.Equal(t, 50, cfg.Pipeline.ResultLimitUI)
	assert.Equal(t, 10, cfg.Pipeline.ResultLimitLLM)
	assert.False(t, cfg.Pipeline.HybridEnabled)
	assert.Equal(t, 512, cfg.Embedder.Dimension)
	assert.InDelta(t, 0.25, cfg.RAG.MinSimilarity, 1e-9)
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := Load("")
	assert.Error(t, err)
}
