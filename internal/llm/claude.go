package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeInvoker talks to the Anthropic messages API.
type ClaudeInvoker struct {
	client *anthropic.Client
	model  string
}

// ClaudeOptions carries per-provider request shaping for the Anthropic path.
type ClaudeOptions struct {
	BaseURL     string
	Headers     map[string]string
	QueryParams map[string]string
}

// NewClaudeInvoker builds an invoker for an Anthropic model. Retries are
// disabled: the scheduler accounts for exactly one attempt per item.
func NewClaudeInvoker(apiKey, model string, o ClaudeOptions) *ClaudeInvoker {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithMaxRetries(0),
	}
	if v := strings.TrimSpace(o.BaseURL); v != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(v, "/")))
	}
	for k, v := range o.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	for k, v := range o.QueryParams {
		opts = append(opts, option.WithQuery(k, v))
	}

	client := anthropic.NewClient(opts...)
	return &ClaudeInvoker{
		client: &client,
		model:  strings.TrimSpace(model),
	}
}

func (v *ClaudeInvoker) Model() string {
	if v == nil {
		return ""
	}
	return v.model
}

func (v *ClaudeInvoker) Ask(ctx context.Context, question string) (string, error) {
	if v == nil || v.client == nil {
		return "", errors.New("llm: claude: nil client")
	}
	if ctx == nil {
		return "", errors.New("llm: claude: nil context")
	}

	msg, err := v.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(v.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{{
			Text: SystemPrompt,
			Type: "text",
		}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(question),
			},
		}},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		sb.WriteString(block.AsText().Text)
	}
	return StripReasoning(sb.String()), nil
}
