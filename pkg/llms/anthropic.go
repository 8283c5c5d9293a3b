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

const anthropicVersion = "2023-06-01"

// AnthropicProvider speaks the Anthropic messages protocol. The wire format
// has a single system string and no developer role, so the triplet's system
// and developer parts are joined with a blank line. Structured output goes
// through schema injection.
type AnthropicProvider struct {
	cfg        config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client

	usageMu   sync.Mutex
	lastUsage TokenUsage
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewAnthropicProvider(cfg config.LLMConfig) (*AnthropicProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
		httpclient.WithHeaderParser(httpclient.ParseAnthropicRateLimitHeaders),
	)

	return &AnthropicProvider{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

func (p *AnthropicProvider) ModelName() string {
	return p.cfg.Model
}

func (p *AnthropicProvider) LastUsage() TokenUsage {
	p.usageMu.Lock()
	defer p.usageMu.Unlock()
	return p.lastUsage
}

func (p *AnthropicProvider) SupportsStructuredOutput() bool {
	return false
}

func (p *AnthropicProvider) Close() error {
	return nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, msgs Messages) (string, error) {
	resp, err := p.makeRequest(ctx, p.buildRequest(msgs))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(collectText(resp.Content))
	if text == "" {
		return "", newProviderError("anthropic", ErrKindMalformed, "empty completion", nil)
	}
	return text, nil
}

func (p *AnthropicProvider) Parse(ctx context.Context, msgs Messages, schema map[string]interface{}, out interface{}) error {
	resp, err := p.makeRequest(ctx, p.buildRequest(injectSchema(msgs, schema)))
	if err != nil {
		return err
	}
	return parseInjected("anthropic", collectText(resp.Content), out)
}

func (p *AnthropicProvider) buildRequest(msgs Messages) anthropicRequest {
	systemParts := make([]string, 0, 2)
	if msgs.System != "" {
		systemParts = append(systemParts, msgs.System)
	}
	if msgs.Developer != "" {
		systemParts = append(systemParts, msgs.Developer)
	}

	maxTokens := p.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return anthropicRequest{
		Model:       p.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: p.cfg.Temperature,
		System:      strings.Join(systemParts, "\n\n"),
		Messages: []anthropicMessage{
			{Role: "user", Content: msgs.User},
		},
	}
}

func (p *AnthropicProvider) makeRequest(ctx context.Context, request anthropicRequest) (*anthropicResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, newProviderError("anthropic", ErrKindMalformed, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewReader(requestBody))
	if err != nil {
		return nil, newProviderError("anthropic", ErrKindTransport, "failed to create request", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, newProviderError("anthropic", ErrKindTimeout, "request deadline exceeded", ctx.Err())
		}
		if httpclient.IsRateLimited(err) {
			return nil, newProviderError("anthropic", ErrKindRateLimited, "rate limit retries exhausted", err)
		}
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, newProviderError("anthropic", ErrKindAuth, "authentication failed", err)
		}
		return nil, newProviderError("anthropic", ErrKindTransport, "request failed", err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newProviderError("anthropic", ErrKindTransport, "failed to read response", err)
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, newProviderError("anthropic", ErrKindMalformed, "failed to decode response", err)
	}

	if response.Error != nil {
		return nil, newProviderError("anthropic", ErrKindMalformed,
			fmt.Sprintf("%s: %s", response.Error.Type, response.Error.Message), nil)
	}
	if len(response.Content) == 0 {
		return nil, newProviderError("anthropic", ErrKindMalformed, "no content blocks returned", nil)
	}

	p.usageMu.Lock()
	p.lastUsage = TokenUsage{
		Input:  response.Usage.InputTokens,
		Output: response.Usage.OutputTokens,
	}
	p.usageMu.Unlock()

	return &response, nil
}

func collectText(blocks []anthropicContent) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
