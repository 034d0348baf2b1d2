package llm

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModelName = "gpt-4o-mini"
	defaultOllamaModelName = "llama3.1"
)

// OpenAIProvider completes prompts with the Chat Completions API. It also
// serves Ollama through its OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	name   string
	model  string
	opts   Options
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts Options) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModelName
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		name:   ProviderOpenAI,
		model:  model,
		opts:   opts,
	}, nil
}

// NewOllamaProvider creates a provider for a local Ollama server.
// ollamaURL is the server root, e.g. http://localhost:11434.
func NewOllamaProvider(ollamaURL string, opts Options) (*OpenAIProvider, error) {
	if ollamaURL == "" {
		return nil, ErrNoProviders
	}

	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimRight(ollamaURL, "/") + "/v1"

	model := opts.Model
	if model == "" {
		model = defaultOllamaModelName
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		name:   ProviderOllama,
		model:  model,
		opts:   opts,
	}, nil
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends prompt as a single user message.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(p.opts.Temperature),
		MaxTokens:   p.opts.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", completionErr(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", completionErr(p.name, ErrEmptyResponse)
	}

	text := cleanText(resp.Choices[0].Message.Content)
	if text == "" {
		return "", completionErr(p.name, ErrEmptyResponse)
	}
	return text, nil
}
