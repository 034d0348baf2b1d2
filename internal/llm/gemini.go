package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModelName = "gemini-2.5-flash"

// GeminiProvider completes prompts with the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
	opts   Options
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string, opts Options) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, completionErr(ProviderGemini, err)
	}

	return &GeminiProvider{
		client: client,
		model:  defaultGeminiModel(opts.Model),
		opts:   opts,
	}, nil
}

func (p *GeminiProvider) Name() string  { return ProviderGemini }
func (p *GeminiProvider) Model() string { return p.model }

// Complete sends prompt as a single user turn and joins the text parts of
// the first candidate that has any.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.opts.Temperature)),
	}
	if p.opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.opts.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		return "", completionErr(ProviderGemini, err)
	}

	var sb strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					sb.WriteString(part.Text)
				}
			}
			if sb.Len() > 0 {
				break
			}
		}
	}

	text := cleanText(sb.String())
	if text == "" {
		return "", completionErr(ProviderGemini, ErrEmptyResponse)
	}
	return text, nil
}

func defaultGeminiModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return defaultGeminiModelName
}
