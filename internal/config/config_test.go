package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/marketbrief/pkg/models"
)

var credentialEnv = []string{
	"MARKETBRIEF_LLM_GEMINI_KEY", "GEMINI_API_KEY",
	"MARKETBRIEF_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY",
	"MARKETBRIEF_LLM_OPENAI_KEY", "OPENAI_API_KEY",
	"MARKETBRIEF_EMAIL_PASSWORD", "EMAIL_PASSWORD",
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, e := range credentialEnv {
		t.Setenv(e, "")
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META"}, cfg.Report.DefaultTickers)
	require.Len(t, cfg.Report.Sectors, 3)
	assert.Equal(t, "Technology", cfg.Report.Sectors[0].Name)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "META"}, cfg.Report.Sectors[0].Tickers)
	assert.Equal(t, "Financial", cfg.Report.Sectors[1].Name)
	assert.Equal(t, "Healthcare", cfg.Report.Sectors[2].Name)

	require.Len(t, cfg.Report.NewsSources, 2)
	assert.Equal(t, "Yahoo Finance", cfg.Report.NewsSources[0].Name)
	assert.Equal(t, "h3", cfg.Report.NewsSources[0].Selector)
	assert.Equal(t, "CNBC", cfg.Report.NewsSources[1].Name)
	assert.Equal(t, "Card-title", cfg.Report.NewsSources[1].ClassFilter)

	assert.Equal(t, "en", cfg.Report.Language)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.Equal(t, "market_analysis", cfg.Report.FilenamePrefix)
	assert.Equal(t, 1, cfg.Report.SectorConcurrency)

	assert.Equal(t, time.Second, cfg.Prices.Delay)
	assert.Equal(t, "5d", cfg.Prices.Range)
	assert.Equal(t, 10*time.Second, cfg.Prices.RequestTimeout)

	assert.Equal(t, 5, cfg.Scraper.MaxHeadlines)
	assert.False(t, cfg.Scraper.Browser.Enabled)

	assert.Equal(t, "gemini", cfg.LLM.Primary)
	assert.Equal(t, 1, cfg.LLM.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)

	assert.Equal(t, "smtp.office365.com", cfg.Email.SMTPHost)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "Market Report", cfg.Email.Subject)

	assert.Equal(t, 5000, cfg.API.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestDefaultMatchesLoad(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "market_analysis", cfg.Report.FilenamePrefix)
	assert.NoError(t, cfg.Validate())
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearCredentialEnv(t)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
report:
  default_tickers: ["nvda", " amd "]
  language: es
  sectors:
    - name: Semis
      tickers: [nvda, AMD]
  news_sources:
    - name: Feed
      url: https://example.com/rss
      kind: rss
prices:
  delay: 250ms
llm:
  primary: anthropic
  anthropic_key: "sk-ant-test-1234567890"
  max_retries: 2
api:
  port: 9090
logging:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))

	cfg, err := LoadFromFile(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"NVDA", "AMD"}, cfg.Report.DefaultTickers)
	require.Len(t, cfg.Report.Sectors, 1)
	assert.Equal(t, []string{"NVDA", "AMD"}, cfg.Report.Sectors[0].Tickers)
	require.Len(t, cfg.Report.NewsSources, 1)
	assert.Equal(t, models.SourceRSS, cfg.Report.NewsSources[0].Kind)
	assert.Equal(t, "Resumen del Mercado de valores", cfg.Report.DocumentTitle())
	assert.Equal(t, 250*time.Millisecond, cfg.Prices.Delay)
	assert.Equal(t, "anthropic", cfg.LLM.Primary)
	assert.Equal(t, "sk-ant-test-1234567890", cfg.LLM.AnthropicKey)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromFileEnvOverride(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("MARKETBRIEF_API_PORT", "7070")
	t.Setenv("MARKETBRIEF_REPORT_LANGUAGE", "es")

	cfgPath := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api:\n  port: 9090\n"), 0644))

	cfg, err := LoadFromFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.API.Port)
	assert.Equal(t, "es", cfg.Report.Language)
}

// ── Validate ──

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown language", func(c *Config) { c.Report.Language = "fr" }},
		{"no default tickers", func(c *Config) { c.Report.DefaultTickers = nil }},
		{"duplicate source names", func(c *Config) {
			c.Report.NewsSources = append(c.Report.NewsSources, c.Report.NewsSources[0])
		}},
		{"html source without selector", func(c *Config) { c.Report.NewsSources[0].Selector = "" }},
		{"bad source url", func(c *Config) { c.Report.NewsSources[0].URL = "not a url" }},
		{"unknown provider", func(c *Config) { c.LLM.Primary = "bard" }},
		{"bad port", func(c *Config) { c.API.Port = 0 }},
		{"bad recipient", func(c *Config) { c.Email.To = []string{"nobody"} }},
		{"zero sector concurrency", func(c *Config) { c.Report.SectorConcurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAllowsRSSWithoutSelector(t *testing.T) {
	cfg := Default()
	cfg.Report.NewsSources = []models.NewsSource{
		{Name: "Feed", URL: "https://example.com/feed.xml", Kind: models.SourceRSS},
	}
	assert.NoError(t, cfg.Validate())
}

// ── Email readiness ──

func TestEmailReadiness(t *testing.T) {
	tests := []struct {
		name           string
		cfg            EmailConfig
		configured     bool
		withRecipients bool
	}{
		{"defaults", Default().Email, false, false},
		{"no recipients", EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "r@example.com"}, true, false},
		{"complete", EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "r@example.com", To: []string{"desk@example.com"}}, true, true},
		{"recipients without sender", EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, To: []string{"desk@example.com"}}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.configured, tt.cfg.IsConfigured())
			assert.Equal(t, tt.withRecipients, tt.cfg.HasRecipients())
		})
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("MARKETBRIEF_LLM_GEMINI_KEY", "gemini-key-789")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("MARKETBRIEF_EMAIL_PASSWORD", "hunter2")

	cfg := &Config{LLM: LLMConfig{OpenAIKey: "from-config"}}
	overrideFromEnv(cfg)

	assert.Equal(t, "gemini-key-789", cfg.LLM.GeminiKey)
	assert.Equal(t, "sk-ant-test", cfg.LLM.AnthropicKey)
	assert.Equal(t, "from-config", cfg.LLM.OpenAIKey)
	assert.Equal(t, "hunter2", cfg.Email.Password)
}

func TestOverrideFromEnvPrefersPrefixed(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "bare")
	t.Setenv("MARKETBRIEF_LLM_GEMINI_KEY", "prefixed")

	cfg := &Config{}
	overrideFromEnv(cfg)
	assert.Equal(t, "prefixed", cfg.LLM.GeminiKey)
}

// ── maskKey ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"sk-abcdef1234567890xyz", "sk-...xyz"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, maskKey(tc.input), "maskKey(%q)", tc.input)
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	clearCredentialEnv(t)

	statuses := CheckAPIKeys(&Config{})
	require.Len(t, statuses, 4)
	for _, s := range statuses {
		assert.False(t, s.IsSet, s.Name)
		assert.Equal(t, KeySourceNone, s.Source, s.Name)
	}
}

func TestCheckAPIKeysSource(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "AIza-from-env-123")

	cfg := &Config{LLM: LLMConfig{
		GeminiKey: "AIza-from-env-123",
		OpenAIKey: "sk-test-very-long-key-value",
	}}

	byName := map[string]KeyStatus{}
	for _, s := range CheckAPIKeys(cfg) {
		byName[s.Name] = s
	}

	assert.Equal(t, KeySourceEnv, byName["Gemini API Key"].Source)
	assert.Equal(t, KeySourceConfig, byName["OpenAI API Key"].Source)
	assert.Equal(t, "sk-...lue", byName["OpenAI API Key"].Masked)
	assert.Equal(t, KeySourceNone, byName["Anthropic API Key"].Source)
}

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, homeDir())
}
