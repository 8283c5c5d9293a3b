package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/castellsqa/enxaneta/pkg/config"
	"github.com/castellsqa/enxaneta/pkg/httpclient"
)

// OpenAICompatProvider speaks the OpenAI chat-completions protocol. It covers
// OpenAI itself plus the compatible endpoints (Groq, DeepSeek, Cerebras,
// SambaNova); the host comes from config. Native structured output is only
// requested from vendors known to honor json_schema; the rest go through
// schema injection.
type OpenAICompatProvider struct {
	cfg        config.LLMConfig
	httpClient *httpclient.Client

	usageMu   sync.Mutex
	lastUsage TokenUsage
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name   string                 `json:"name"`
	Schema map[string]interface{} `json:"schema"`
	Strict bool                   `json:"strict,omitempty"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func NewOpenAICompatProvider(cfg config.LLMConfig) (*OpenAICompatProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("no endpoint known for provider %q", cfg.Provider)
	}

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
	)

	return &OpenAICompatProvider{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

func (p *OpenAICompatProvider) name() string {
	return string(p.cfg.Provider)
}

func (p *OpenAICompatProvider) ModelName() string {
	return p.cfg.Model
}

func (p *OpenAICompatProvider) LastUsage() TokenUsage {
	p.usageMu.Lock()
	defer p.usageMu.Unlock()
	return p.lastUsage
}

// SupportsStructuredOutput reports native json_schema support. DeepSeek,
// Cerebras and SambaNova accept json_object at best, so they take the
// schema-injection path.
func (p *OpenAICompatProvider) SupportsStructuredOutput() bool {
	switch p.cfg.Provider {
	case config.LLMProviderOpenAI, config.LLMProviderGroq:
		return true
	default:
		return false
	}
}

func (p *OpenAICompatProvider) Close() error {
	return nil
}

func (p *OpenAICompatProvider) Generate(ctx context.Context, msgs Messages) (string, error) {
	req := p.buildRequest(msgs)

	resp, err := p.makeRequest(ctx, req)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", newProviderError(p.name(), ErrKindMalformed, "empty completion", nil)
	}
	return text, nil
}

func (p *OpenAICompatProvider) Parse(ctx context.Context, msgs Messages, schema map[string]interface{}, out interface{}) error {
	if p.SupportsStructuredOutput() {
		req := p.buildRequest(msgs)
		req.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: &openAIJSONSchema{
				Name:   "response",
				Schema: schema,
				Strict: true,
			},
		}

		resp, err := p.makeRequest(ctx, req)
		if err != nil {
			return err
		}

		if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
			return newProviderError(p.name(), ErrKindMalformed, "structured response does not match schema", err)
		}
		return nil
	}

	req := p.buildRequest(injectSchema(msgs, schema))
	req.ResponseFormat = &openAIResponseFormat{Type: "json_object"}

	resp, err := p.makeRequest(ctx, req)
	if err != nil {
		return err
	}

	return parseInjected(p.name(), resp.Choices[0].Message.Content, out)
}

// buildRequest maps the prompt triplet onto chat-completion roles. OpenAI
// accepts a first-class developer role; the compatible vendors get the
// developer text as a second system message.
func (p *OpenAICompatProvider) buildRequest(msgs Messages) openAIRequest {
	messages := make([]openAIMessage, 0, 3)
	if msgs.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: msgs.System})
	}
	if msgs.Developer != "" {
		role := "system"
		if p.cfg.Provider == config.LLMProviderOpenAI {
			role = "developer"
		}
		messages = append(messages, openAIMessage{Role: role, Content: msgs.Developer})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: msgs.User})

	temperature := 0.3
	if p.cfg.Temperature != nil {
		temperature = *p.cfg.Temperature
	}

	request := openAIRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
	}

	if p.cfg.MaxTokens > 0 {
		maxTokens := p.cfg.MaxTokens
		request.MaxTokens = &maxTokens
	}

	return request
}

func (p *OpenAICompatProvider) makeRequest(ctx context.Context, request openAIRequest) (*openAIResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, newProviderError(p.name(), ErrKindMalformed, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.BaseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, newProviderError(p.name(), ErrKindTransport, "failed to create request", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, p.classifyError(ctx, resp, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newProviderError(p.name(), ErrKindTransport, "failed to read response", err)
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, newProviderError(p.name(), ErrKindMalformed, "failed to decode response", err)
	}

	if response.Error != nil {
		return nil, newProviderError(p.name(), ErrKindMalformed, response.Error.Message, nil)
	}
	if len(response.Choices) == 0 {
		return nil, newProviderError(p.name(), ErrKindMalformed, "no response choices returned", nil)
	}

	p.usageMu.Lock()
	p.lastUsage = TokenUsage{
		Input:  response.Usage.PromptTokens,
		Output: response.Usage.CompletionTokens,
	}
	p.usageMu.Unlock()

	return &response, nil
}

func (p *OpenAICompatProvider) classifyError(ctx context.Context, resp *http.Response, err error) error {
	if ctx.Err() != nil {
		return newProviderError(p.name(), ErrKindTimeout, "request deadline exceeded", ctx.Err())
	}
	if httpclient.IsRateLimited(err) {
		return newProviderError(p.name(), ErrKindRateLimited, "rate limit retries exhausted", err)
	}
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return newProviderError(p.name(), ErrKindAuth, "authentication failed", err)
		case http.StatusTooManyRequests:
			return newProviderError(p.name(), ErrKindRateLimited, "rate limit retries exhausted", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr == nil && len(body) > 0 {
			var errResp struct {
				Error openAIError `json:"error"`
			}
			if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
				return newProviderError(p.name(), ErrKindTransport, errResp.Error.Message, err)
			}
		}
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newProviderError(p.name(), ErrKindTimeout, "request timed out", err)
	}

	return newProviderError(p.name(), ErrKindTransport, "request failed", err)
}
