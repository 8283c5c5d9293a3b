package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/castellsqa/enxaneta/pkg/config"
	"github.com/castellsqa/enxaneta/pkg/httpclient"
)

// GeminiProvider speaks the Gemini generateContent protocol.
// Based on: https://ai.google.dev/gemini-api/docs/structured-output
// System and developer text both go into systemInstruction; Gemini has no
// separate developer role.
type GeminiProvider struct {
	cfg        config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client

	usageMu   sync.Mutex
	lastUsage TokenUsage
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      *float64               `json:"temperature,omitempty"`
	MaxOutputTokens  int                    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string                 `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]interface{} `json:"responseSchema,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Usage      *geminiUsage      `json:"usageMetadata,omitempty"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func NewGeminiProvider(cfg config.LLMConfig) (*GeminiProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
	)

	return &GeminiProvider{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

func (p *GeminiProvider) ModelName() string {
	return p.cfg.Model
}

func (p *GeminiProvider) LastUsage() TokenUsage {
	p.usageMu.Lock()
	defer p.usageMu.Unlock()
	return p.lastUsage
}

func (p *GeminiProvider) SupportsStructuredOutput() bool {
	return true
}

func (p *GeminiProvider) Close() error {
	return nil
}

func (p *GeminiProvider) Generate(ctx context.Context, msgs Messages) (string, error) {
	resp, err := p.makeRequest(ctx, p.buildRequest(msgs, nil))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(candidateText(resp))
	if text == "" {
		return "", newProviderError("gemini", ErrKindMalformed, "empty completion", nil)
	}
	return text, nil
}

func (p *GeminiProvider) Parse(ctx context.Context, msgs Messages, schema map[string]interface{}, out interface{}) error {
	resp, err := p.makeRequest(ctx, p.buildRequest(msgs, schema))
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(candidateText(resp)), out); err != nil {
		return newProviderError("gemini", ErrKindMalformed, "structured response does not match schema", err)
	}
	return nil
}

func (p *GeminiProvider) buildRequest(msgs Messages, schema map[string]interface{}) geminiRequest {
	req := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: msgs.User}}},
		},
	}

	systemParts := make([]geminiPart, 0, 2)
	if msgs.System != "" {
		systemParts = append(systemParts, geminiPart{Text: msgs.System})
	}
	if msgs.Developer != "" {
		systemParts = append(systemParts, geminiPart{Text: msgs.Developer})
	}
	if len(systemParts) > 0 {
		req.SystemInstruction = &geminiContent{Parts: systemParts}
	}

	genConfig := &geminiGenerationConfig{
		Temperature:     p.cfg.Temperature,
		MaxOutputTokens: p.cfg.MaxTokens,
	}
	if schema != nil {
		genConfig.ResponseMimeType = "application/json"
		genConfig.ResponseSchema = toGeminiSchema(schema)
	}
	req.GenerationConfig = genConfig

	return req
}

// toGeminiSchema strips JSON-Schema keywords the Gemini API rejects.
func toGeminiSchema(schema map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		if k == "additionalProperties" || k == "$schema" || k == "$id" {
			continue
		}
		switch child := v.(type) {
		case map[string]interface{}:
			out[k] = toGeminiSchema(child)
		default:
			out[k] = v
		}
	}
	return out
}

func (p *GeminiProvider) makeRequest(ctx context.Context, request geminiRequest) (*geminiResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, newProviderError("gemini", ErrKindMalformed, "failed to marshal request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, newProviderError("gemini", ErrKindTransport, "failed to create request", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")
	// Header keeps the key out of access logs and error strings.
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, newProviderError("gemini", ErrKindTimeout, "request deadline exceeded", ctx.Err())
		}
		if httpclient.IsRateLimited(err) {
			return nil, newProviderError("gemini", ErrKindRateLimited, "rate limit retries exhausted", err)
		}
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, newProviderError("gemini", ErrKindAuth, "authentication failed", err)
		}
		return nil, newProviderError("gemini", ErrKindTransport, "request failed", err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newProviderError("gemini", ErrKindTransport, "failed to read response", err)
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, newProviderError("gemini", ErrKindMalformed, "failed to decode response", err)
	}

	if response.Error != nil {
		return nil, newProviderError("gemini", ErrKindMalformed,
			fmt.Sprintf("%s: %s", response.Error.Status, response.Error.Message), nil)
	}
	if len(response.Candidates) == 0 {
		return nil, newProviderError("gemini", ErrKindMalformed, "no candidates returned", nil)
	}

	if response.Usage != nil {
		p.usageMu.Lock()
		p.lastUsage = TokenUsage{
			Input:  response.Usage.PromptTokenCount,
			Output: response.Usage.CandidatesTokenCount,
		}
		p.usageMu.Unlock()
	}

	return &response, nil
}

func candidateText(resp *geminiResponse) string {
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}
