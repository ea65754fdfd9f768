package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIInvoker talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, Groq, Azure OpenAI).
type OpenAIInvoker struct {
	client *openai.Client
	model  string
}

// OpenAIOptions carries per-provider request shaping for the
// OpenAI-compatible path.
type OpenAIOptions struct {
	BaseURL     string
	Headers     map[string]string
	QueryParams map[string]string
}

// NewOpenAIInvoker builds an invoker for an OpenAI-compatible endpoint.
func NewOpenAIInvoker(apiKey string, model string, opts OpenAIOptions) *OpenAIInvoker {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if v := strings.TrimSpace(opts.BaseURL); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if len(opts.Headers) > 0 || len(opts.QueryParams) > 0 {
		cfg.HTTPClient = &http.Client{
			Transport: &decoratedTransport{
				base:    http.DefaultTransport,
				headers: opts.Headers,
				query:   opts.QueryParams,
			},
		}
	}

	return &OpenAIInvoker{
		client: openai.NewClientWithConfig(cfg),
		model:  strings.TrimSpace(model),
	}
}

// NewAzureInvoker builds an invoker for an Azure OpenAI deployment. The
// deployment name, when set, replaces the model id on the wire.
func NewAzureInvoker(apiKey, endpoint, apiVersion, model, deployment string) *OpenAIInvoker {
	cfg := openai.DefaultAzureConfig(strings.TrimSpace(apiKey), strings.TrimRight(strings.TrimSpace(endpoint), "/"))
	if v := strings.TrimSpace(apiVersion); v != "" {
		cfg.APIVersion = v
	}

	model = strings.TrimSpace(model)
	deployment = strings.TrimSpace(deployment)
	if deployment == "" {
		deployment = model
	}
	cfg.AzureModelMapperFunc = func(string) string { return deployment }

	return &OpenAIInvoker{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (v *OpenAIInvoker) Model() string {
	if v == nil {
		return ""
	}
	return v.model
}

func (v *OpenAIInvoker) Ask(ctx context.Context, question string) (string, error) {
	if v == nil || v.client == nil {
		return "", errors.New("llm: openai: nil client")
	}
	if ctx == nil {
		return "", errors.New("llm: openai: nil context")
	}

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens:   defaultMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: openai: empty choices")
	}

	return StripReasoning(resp.Choices[0].Message.Content), nil
}

// decoratedTransport injects provider default headers and query params
// into every outgoing request.
type decoratedTransport struct {
	base    http.RoundTripper
	headers map[string]string
	query   map[string]string
}

func (t *decoratedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	if len(t.query) > 0 {
		q := r.URL.Query()
		for k, v := range t.query {
			if q.Get(k) == "" {
				q.Set(k, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
	return base.RoundTrip(r)
}
