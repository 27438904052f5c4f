// Package llm routes chat-completion requests to external language-model
// providers: OpenAI-compatible primary with a single Anthropic fallback.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caredraft/internal/jsonx"
	"go.uber.org/zap"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage carries token counters reported by the provider.
type Usage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

// Completion is the provider response plus invocation metadata.
type Completion struct {
	Text         string
	Model        string
	Provider     string
	FallbackUsed bool
	Usage        Usage
}

// Invoker is the interface handlers depend on; tests substitute deterministic
// fakes.
type Invoker interface {
	Complete(ctx context.Context, messages []Message, complex bool) (*Completion, error)
}

// Config holds provider endpoints and credentials.
type Config struct {
	OpenAIKey        string
	AnthropicKey     string
	OpenAIBaseURL    string
	AnthropicBaseURL string
	RequestTimeout   time.Duration
}

// Router invokes the primary provider and retries exactly once against the
// fallback on provider error. It holds no per-request state.
type Router struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// Model names per complexity tier.
const (
	openAIModelFast    = "gpt-4o-mini"
	openAIModelComplex = "gpt-4o"
	claudeModelFast    = "claude-3-5-haiku-20241022"
	claudeModelComplex = "claude-3-5-sonnet-20241022"
)

// New creates a Router. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.AnthropicBaseURL == "" {
		cfg.AnthropicBaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	return &Router{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.Named("llm"),
	}
}

// Complete sends the messages to the primary provider. On a provider error it
// retries once against the fallback; there is no further retry and no backoff.
func (r *Router) Complete(ctx context.Context, messages []Message, complex bool) (*Completion, error) {
	primary, err := r.callOpenAI(ctx, messages, complex)
	if err == nil {
		return primary, nil
	}

	r.logger.Warn("primary provider failed",
		zap.String("provider", "openai"),
		zap.Error(err))

	if r.cfg.AnthropicKey == "" {
		return nil, err
	}

	fallback, ferr := r.callAnthropic(ctx, messages, complex)
	if ferr != nil {
		r.logger.Error("fallback provider failed",
			zap.String("provider", "anthropic"),
			zap.Error(ferr))
		return nil, ferr
	}
	fallback.FallbackUsed = true
	return fallback, nil
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage  `json:"usage"`
	Model string `json:"model"`
}

func (r *Router) callOpenAI(ctx context.Context, messages []Message, complex bool) (*Completion, error) {
	if r.cfg.OpenAIKey == "" {
		return nil, &ModelError{Kind: KindAuthentication, Provider: "openai", Err: fmt.Errorf("no API key configured")}
	}

	model := openAIModelFast
	if complex {
		model = openAIModelComplex
	}

	body, err := r.post(ctx, "openai", r.cfg.OpenAIBaseURL+"/chat/completions",
		openAIRequest{Model: model, Messages: messages, MaxTokens: 2048, Temperature: 0.7},
		map[string]string{
			"Authorization": "Bearer " + r.cfg.OpenAIKey,
			"Content-Type":  "application/json",
		})
	if err != nil {
		return nil, err
	}

	var parsed openAIResponse
	if uerr := jsonx.Unmarshal(body, &parsed); uerr != nil {
		return nil, &ModelError{Kind: KindUnavailable, Provider: "openai", Err: fmt.Errorf("parse response: %w", uerr)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ModelError{Kind: KindUnavailable, Provider: "openai", Err: fmt.Errorf("response contains no choices")}
	}
	if parsed.Model == "" {
		parsed.Model = model
	}
	return &Completion{
		Text:     parsed.Choices[0].Message.Content,
		Model:    parsed.Model,
		Provider: "openai",
		Usage:    parsed.Usage,
	}, nil
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r *Router) callAnthropic(ctx context.Context, messages []Message, complex bool) (*Completion, error) {
	model := claudeModelFast
	if complex {
		model = claudeModelComplex
	}

	// Anthropic takes the system prompt as a top-level field.
	var system string
	chat := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		chat = append(chat, m)
	}

	body, err := r.post(ctx, "anthropic", r.cfg.AnthropicBaseURL+"/messages",
		anthropicRequest{Model: model, MaxTokens: 2048, System: system, Messages: chat},
		map[string]string{
			"x-api-key":         r.cfg.AnthropicKey,
			"anthropic-version": "2023-06-01",
			"Content-Type":      "application/json",
		})
	if err != nil {
		return nil, err
	}

	var parsed anthropicResponse
	if uerr := jsonx.Unmarshal(body, &parsed); uerr != nil {
		return nil, &ModelError{Kind: KindUnavailable, Provider: "anthropic", Err: fmt.Errorf("parse response: %w", uerr)}
	}
	if len(parsed.Content) == 0 {
		return nil, &ModelError{Kind: KindUnavailable, Provider: "anthropic", Err: fmt.Errorf("response contains no content blocks")}
	}
	if parsed.Model == "" {
		parsed.Model = model
	}
	return &Completion{
		Text:     parsed.Content[0].Text,
		Model:    parsed.Model,
		Provider: "anthropic",
		Usage: Usage{
			Prompt:     parsed.Usage.InputTokens,
			Completion: parsed.Usage.OutputTokens,
			Total:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

// post sends a JSON POST and returns the raw response body, classifying
// failures into ModelError kinds.
func (r *Router) post(ctx context.Context, provider, url string, payload interface{}, headers map[string]string) ([]byte, error) {
	data, err := jsonx.Marshal(payload)
	if err != nil {
		return nil, &ModelError{Kind: KindValidation, Provider: provider, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &ModelError{Kind: KindValidation, Provider: provider, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &ModelError{Kind: KindUnavailable, Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ModelError{Kind: KindUnavailable, Provider: provider, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ModelError{
			Kind:     classifyStatus(resp.StatusCode),
			Provider: provider,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("upstream status %d: %s", resp.StatusCode, truncate(body, 256)),
		}
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
