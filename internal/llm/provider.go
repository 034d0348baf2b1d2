// Package llm wraps the text-completion providers (Gemini, Anthropic, OpenAI,
// Ollama) behind a single Completer interface, with routing and fallback.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider names for routing and configuration.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Common errors returned by LLM providers.
var (
	ErrCompletion    = errors.New("llm: completion failed")
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrNoProviders   = errors.New("llm: no providers configured")
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Completer turns a prompt into narrative text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider is a named Completer backed by one model API.
type Provider interface {
	Completer
	Name() string
	Model() string
}

// Options are the generation settings shared by all providers.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // override for self-hosted or test endpoints
}

// DefaultOptions returns conservative generation settings.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		MaxTokens:   2048,
	}
}

// CompletionError records which provider failed. It matches ErrCompletion.
type CompletionError struct {
	Provider string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCompletion, e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() []error { return []error{ErrCompletion, e.Err} }

func completionErr(provider string, err error) error {
	return &CompletionError{Provider: provider, Err: err}
}

// FuncCompleter adapts a function to Completer.
type FuncCompleter func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f FuncCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func cleanText(s string) string {
	return strings.TrimSpace(s)
}
