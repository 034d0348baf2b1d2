package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModelName = "claude-sonnet-4-5"

// AnthropicProvider completes prompts with the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
	opts   Options
}

// NewAnthropicProvider creates an Anthropic provider. SDK-level retries are
// disabled; the Router owns retry policy.
func NewAnthropicProvider(apiKey string, opts Options) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(reqOpts...)

	return &AnthropicProvider{
		client: &client,
		model:  defaultAnthropicModel(opts.Model),
		opts:   opts,
	}, nil
}

func (p *AnthropicProvider) Name() string  { return ProviderAnthropic }
func (p *AnthropicProvider) Model() string { return p.model }

// Complete sends prompt as a single user message and joins the text blocks.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := p.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultOptions().MaxTokens
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(p.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", completionErr(ProviderAnthropic, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := cleanText(sb.String())
	if text == "" {
		return "", completionErr(ProviderAnthropic, ErrEmptyResponse)
	}
	return text, nil
}

func defaultAnthropicModel(model string) string {
	if strings.HasPrefix(model, "claude") {
		return model
	}
	return defaultAnthropicModelName
}
