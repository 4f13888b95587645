// Package llm provides the uniform backend adapter contract for
// generative-text providers. Every supported provider speaks the
// OpenAI-compatible chat-completions protocol, so a single go-openai backed
// implementation covers them all, parameterized by provider id.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/finsight-ai/finsight/internal/profile"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Adapter is the uniform call contract to a single generative-text service.
// Context is optional serialized schema metadata; when non-empty it is sent
// as an additional system message ahead of the user prompt.
type Adapter interface {
	// Name returns the provider id this adapter talks to.
	Name() string

	// Model returns the model identifier used for requests.
	Model() string

	// Configured reports whether a credential is available. An unconfigured
	// adapter fails with a *ConfigError before any network attempt.
	Configured() bool

	// Call sends the prompt and returns the first completion's text content.
	Call(ctx context.Context, prompt string, context string) (string, error)
}

// Options tunes request building shared by all adapters.
type Options struct {
	SystemPrompt string
	MaxTokens    int     // default: 2048
	Temperature  float32 // default: 0.2
	Timeout      int     // request timeout in seconds (default: 120)
}

// DefaultSystemPrompt is the assistant instruction sent with every request.
const DefaultSystemPrompt = "You are a personal finance assistant. Answer questions about the user's " +
	"expenses and investments. When dataset metadata and a structured-query contract are provided, " +
	"follow the contract exactly and reply with a single JSON object."

type openAIAdapter struct {
	client       *openai.Client
	provider     string
	model        string
	apiKey       string
	local        bool // local providers (ollama) need no credential
	systemPrompt string
	maxTokens    int
	temperature  float32
	timeout      int
}

// NewAdapter builds an adapter for one provider from its configuration.
func NewAdapter(cfg profile.ProviderConfig, opts Options) Adapter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120
	}

	return &openAIAdapter{
		client:       openai.NewClientWithConfig(clientConfig),
		provider:     cfg.ID,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		local:        cfg.ID == "ollama",
		systemPrompt: opts.SystemPrompt,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
		timeout:      opts.Timeout,
	}
}

func (a *openAIAdapter) Name() string { return a.provider }

func (a *openAIAdapter) Model() string { return a.model }

func (a *openAIAdapter) Configured() bool { return a.apiKey != "" || a.local }

func (a *openAIAdapter) Call(ctx context.Context, prompt string, metadata string) (string, error) {
	if !a.Configured() {
		return "", &ConfigError{Provider: a.provider}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.timeout)*time.Second)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt},
	}
	if metadata != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: metadata,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	slog.Debug("llm: chat request",
		"provider", a.provider,
		"model", a.model,
		"messages_count", len(messages),
		"max_tokens", a.maxTokens,
	)

	startTime := time.Now()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", wrapProviderError(a.provider, a.model, err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{
			Provider: a.provider,
			Model:    a.model,
			Message:  "empty response from provider",
		}
	}

	slog.Debug("llm: chat response received",
		"provider", a.provider,
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	return resp.Choices[0].Message.Content, nil
}

// newHTTPClient creates an HTTP client tuned for LLM traffic: generous
// connect timeout, no overall client timeout (per-request contexts bound the
// call instead).
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// wrapProviderError converts a go-openai error into a *ProviderError carrying
// provider name, model and the service's message plus HTTP status when known.
func wrapProviderError(provider, model string, err error) error {
	var apiErr *openai.APIError
	if ok := asAPIError(err, &apiErr); ok {
		return &ProviderError{
			Provider:   provider,
			Model:      model,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return &ProviderError{
		Provider: provider,
		Model:    model,
		Message:  fmt.Sprintf("request failed: %v", err),
		Err:      err,
	}
}
