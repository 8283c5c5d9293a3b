package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellsqa/enxaneta/pkg/config"
)

func newGeminiServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.RawQuery, "credentials must not travel in the URL")

		resp := geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Parts: []geminiPart{{Text: reply}}},
			}},
			Usage: &geminiUsage{PromptTokenCount: 9, CandidatesTokenCount: 4},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newGeminiTestProvider(t *testing.T, baseURL string) *GeminiProvider {
	t.Helper()
	cfg := config.LLMConfig{
		Provider: config.LLMProviderGemini,
		Model:    "test-model",
		APIKey:   "test-key",
		BaseURL:  baseURL,
	}
	cfg.SetDefaults()
	cfg.BaseURL = baseURL

	p, err := NewGeminiProvider(cfg)
	require.NoError(t, err)
	return p
}

func TestGeminiKeyTravelsInHeader(t *testing.T) {
	srv := newGeminiServer(t, "resposta")
	defer srv.Close()

	p := newGeminiTestProvider(t, srv.URL)

	got, err := p.Generate(context.Background(), Messages{User: "pregunta"})
	require.NoError(t, err)
	assert.Equal(t, "resposta", got)
	assert.Equal(t, TokenUsage{Input: 9, Output: 4}, p.LastUsage())
}
