package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/config"
)

// Router sends completions to the primary provider and walks the fallback
// chain when it fails. Each provider is retried with linear backoff.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	primary    string
	fallbacks  []string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logger     arbor.ILogger
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithMaxRetries sets the maximum number of retry attempts per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// WithTimeout bounds each single provider call. Zero means no bound.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.timeout = d }
}

// WithLogger sets the router logger.
func WithLogger(logger arbor.ILogger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// NewRouter creates a new LLM router with the given primary provider.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]Provider),
		primary:    primary,
		maxRetries: 1,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = arbor.NewLogger()
	}
	return r
}

// RegisterProvider adds a provider to the router.
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// ProviderNames returns the registered providers in chain order.
func (r *Router) ProviderNames() []string {
	var names []string
	for _, name := range r.providerChain() {
		if _, ok := r.GetProvider(name); ok {
			names = append(names, name)
		}
	}
	return names
}

// Complete tries each provider in the chain until one returns text.
// Failures are reported as ErrCompletion wrapping the last provider error.
func (r *Router) Complete(ctx context.Context, prompt string) (string, error) {
	chain := r.ProviderNames()
	if len(chain) == 0 {
		return "", completionErr("router", ErrNoProviders)
	}

	var lastErr error
	for _, name := range chain {
		provider, _ := r.GetProvider(name)

		text, err := r.completeWithRetry(ctx, provider, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", completionErr(name, ctx.Err())
		}

		r.logger.Warn().
			Str("provider", name).
			Str("model", provider.Model()).
			Err(err).
			Msg("LLM provider failed, trying next")
	}

	if errors.Is(lastErr, ErrCompletion) {
		return "", lastErr
	}
	return "", completionErr("router", lastErr)
}

func (r *Router) providerChain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := []string{r.primary}
	for _, fb := range r.fallbacks {
		if fb != r.primary {
			chain = append(chain, fb)
		}
	}
	return chain
}

func (r *Router) completeWithRetry(ctx context.Context, provider Provider, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := r.completeOnce(ctx, provider, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || isNonRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (r *Router) completeOnce(ctx context.Context, provider Provider, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := provider.Complete(ctx, prompt)
	r.logger.Debug().
		Str("provider", provider.Name()).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Bool("ok", err == nil).
		Msg("LLM completion")
	return text, err
}

func isNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoAPIKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "invalid model") ||
		strings.Contains(msg, "context length")
}

// NewRouterFromConfig registers every provider that has credentials (or a
// URL, for Ollama). The configured primary leads the chain; the configured
// fallbacks follow, then any other registered provider.
func NewRouterFromConfig(ctx context.Context, cfg config.LLMConfig, logger arbor.ILogger) (*Router, error) {
	opts := Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	router := NewRouter(cfg.Primary,
		WithMaxRetries(cfg.MaxRetries),
		WithRetryDelay(cfg.RetryDelay),
		WithTimeout(cfg.Timeout),
		WithLogger(logger),
	)

	// Only the primary provider gets the configured model name; the others
	// fall back to their own defaults.
	optsFor := func(name string) Options {
		o := opts
		if name != cfg.Primary {
			o.Model = ""
		}
		return o
	}

	var registered []string
	register := func(name string, p Provider, err error) {
		if err != nil {
			logger.Warn().Str("provider", name).Err(err).Msg("LLM provider not registered")
			return
		}
		router.RegisterProvider(p)
		registered = append(registered, name)
	}

	if cfg.GeminiKey != "" {
		p, err := NewGeminiProvider(ctx, cfg.GeminiKey, optsFor(ProviderGemini))
		register(ProviderGemini, p, err)
	}
	if cfg.AnthropicKey != "" {
		p, err := NewAnthropicProvider(cfg.AnthropicKey, optsFor(ProviderAnthropic))
		register(ProviderAnthropic, p, err)
	}
	if cfg.OpenAIKey != "" {
		p, err := NewOpenAIProvider(cfg.OpenAIKey, optsFor(ProviderOpenAI))
		register(ProviderOpenAI, p, err)
	}
	if cfg.OllamaURL != "" && (cfg.Primary == ProviderOllama || contains(cfg.Fallbacks, ProviderOllama)) {
		p, err := NewOllamaProvider(cfg.OllamaURL, optsFor(ProviderOllama))
		register(ProviderOllama, p, err)
	}

	if len(registered) == 0 {
		return nil, ErrNoProviders
	}

	fallbacks := append([]string{}, cfg.Fallbacks...)
	for _, name := range registered {
		if name != cfg.Primary && !contains(fallbacks, name) {
			fallbacks = append(fallbacks, name)
		}
	}
	router.fallbacks = fallbacks

	logger.Info().
		Str("primary", cfg.Primary).
		Strs("providers", router.ProviderNames()).
		Msg("LLM router ready")

	if _, ok := router.GetProvider(cfg.Primary); !ok {
		logger.Warn().
			Str("primary", cfg.Primary).
			Msgf("primary provider %q has no credentials, using fallbacks", cfg.Primary)
	}

	return router, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
