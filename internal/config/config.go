// Package config handles configuration loading for marketbrief.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/marketbrief/pkg/models"
)

// EnvPrefix is the prefix for all environment overrides.
const EnvPrefix = "MARKETBRIEF"

// Config represents the complete application configuration.
// It is built once at startup and treated as read-only afterwards.
type Config struct {
	Report   ReportConfig   `mapstructure:"report"   yaml:"report"`
	Prices   PricesConfig   `mapstructure:"prices"   yaml:"prices"`
	Scraper  ScraperConfig  `mapstructure:"scraper"  yaml:"scraper"`
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Email    EmailConfig    `mapstructure:"email"    yaml:"email"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// ReportConfig holds the static report definition: tickers, sectors, sources.
type ReportConfig struct {
	DefaultTickers    []string                  `mapstructure:"default_tickers"    yaml:"default_tickers"    validate:"required,min=1,dive,required"`
	Sectors           []models.SectorDefinition `mapstructure:"sectors"            yaml:"sectors"            validate:"unique=Name,dive"`
	NewsSources       []models.NewsSource       `mapstructure:"news_sources"       yaml:"news_sources"       validate:"unique=Name,dive"`
	Language          string                    `mapstructure:"language"           yaml:"language"           validate:"oneof=en es"`
	Title             string                    `mapstructure:"title"              yaml:"title"` // empty = per-language default
	OutputDir         string                    `mapstructure:"output_dir"         yaml:"output_dir"`
	FilenamePrefix    string                    `mapstructure:"filename_prefix"    yaml:"filename_prefix"    validate:"required"`
	SectorConcurrency int                       `mapstructure:"sector_concurrency" yaml:"sector_concurrency" validate:"min=1"`
}

// DocumentTitle returns the configured title or the default for the report language.
func (r ReportConfig) DocumentTitle() string {
	if r.Title != "" {
		return r.Title
	}
	if r.Language == "es" {
		return "Resumen del Mercado de valores"
	}
	return "Market Summary Report"
}

// PricesConfig holds price history settings.
type PricesConfig struct {
	BaseURL        string        `mapstructure:"base_url"        yaml:"base_url"        validate:"required,url"`
	Range          string        `mapstructure:"range"           yaml:"range"           validate:"required"`
	Interval       string        `mapstructure:"interval"        yaml:"interval"        validate:"required"`
	Delay          time.Duration `mapstructure:"delay"           yaml:"delay"           validate:"gte=0"`
	Jitter         time.Duration `mapstructure:"jitter"          yaml:"jitter"          validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
}

// ScraperConfig holds headline scraping settings.
type ScraperConfig struct {
	UserAgent    string        `mapstructure:"user_agent"    yaml:"user_agent"    validate:"required"`
	MaxHeadlines int           `mapstructure:"max_headlines" yaml:"max_headlines"` // <= 0 disables the cap
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"       validate:"gt=0"`
	Browser      BrowserConfig `mapstructure:"browser"       yaml:"browser"`
}

// BrowserConfig controls headless Chrome for "browser" news sources.
type BrowserConfig struct {
	Enabled  bool          `mapstructure:"enabled"   yaml:"enabled"`
	Wait     time.Duration `mapstructure:"wait"      yaml:"wait"`
	ExecPath string        `mapstructure:"exec_path" yaml:"exec_path"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary      string        `mapstructure:"primary"       yaml:"primary"       validate:"oneof=gemini anthropic openai ollama"`
	Fallbacks    []string      `mapstructure:"fallbacks"     yaml:"fallbacks"     validate:"dive,oneof=gemini anthropic openai ollama"`
	GeminiKey    string        `mapstructure:"gemini_key"    yaml:"gemini_key"`
	AnthropicKey string        `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	OpenAIKey    string        `mapstructure:"openai_key"    yaml:"openai_key"`
	OllamaURL    string        `mapstructure:"ollama_url"    yaml:"ollama_url"    validate:"omitempty,url"`
	Model        string        `mapstructure:"model"         yaml:"model"` // empty = provider default
	Temperature  float64       `mapstructure:"temperature"   yaml:"temperature"   validate:"gte=0,lte=2"`
	MaxTokens    int           `mapstructure:"max_tokens"    yaml:"max_tokens"    validate:"gt=0"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"       validate:"gt=0"`
	MaxRetries   int           `mapstructure:"max_retries"   yaml:"max_retries"   validate:"gte=0,lte=5"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"   yaml:"retry_delay"`
}

// EmailConfig holds SMTP settings for report delivery.
type EmailConfig struct {
	SMTPHost string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port" yaml:"smtp_port" validate:"omitempty,min=1,max=65535"`
	Username string   `mapstructure:"username"  yaml:"username"`
	Password string   `mapstructure:"password"  yaml:"password"`
	From     string   `mapstructure:"from"      yaml:"from"      validate:"omitempty,email"`
	To       []string `mapstructure:"to"        yaml:"to"        validate:"omitempty,dive,email"`
	Subject  string   `mapstructure:"subject"   yaml:"subject"`
	Body     string   `mapstructure:"body"      yaml:"body"`
}

// IsConfigured reports whether enough is set to send mail.
func (e EmailConfig) IsConfigured() bool {
	return e.SMTPHost != "" && e.SMTPPort > 0 && e.From != ""
}

// HasRecipients reports whether mail can go out without a recipient
// override: SMTP is configured and email.to is not empty. Scheduled runs and
// the HTTP email endpoint only ever send to email.to.
func (e EmailConfig) HasRecipients() bool {
	return e.IsConfigured() && len(e.To) > 0
}

// ScheduleConfig holds the periodic report schedule.
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"     yaml:"cron"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host           string        `mapstructure:"host"            yaml:"host"`
	Port           int           `mapstructure:"port"            yaml:"port"            validate:"min=1,max=65535"`
	CORSOrigins    []string      `mapstructure:"cors_origins"    yaml:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.marketbrief/config.yaml (home directory)
//  3. /etc/marketbrief/config.yaml (system)
//
// A .env file in the working directory is loaded first when present.
// Environment variables override config file values.
// Format: MARKETBRIEF_<SECTION>_<KEY>, e.g., MARKETBRIEF_LLM_GEMINI_KEY
func Load() (*Config, error) {
	_ = godotenv.Load() // optional

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".marketbrief"))
	v.AddConfigPath("/etc/marketbrief")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override sensitive values from environment
	overrideFromEnv(&cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// normalize uppercases configured tickers so they compare exactly with
// uppercased user input.
func (c *Config) normalize() {
	for i, t := range c.Report.DefaultTickers {
		c.Report.DefaultTickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	for i := range c.Report.Sectors {
		for j, t := range c.Report.Sectors[i].Tickers {
			c.Report.Sectors[i].Tickers[j] = strings.ToUpper(strings.TrimSpace(t))
		}
	}
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Report defaults
	v.SetDefault("report.default_tickers", []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META"})
	v.SetDefault("report.sectors", []map[string]any{
		{"name": "Technology", "tickers": []string{"AAPL", "MSFT", "GOOGL", "META"}},
		{"name": "Financial", "tickers": []string{"JPM", "BAC", "GS", "MS"}},
		{"name": "Healthcare", "tickers": []string{"JNJ", "PFE", "UNH", "ABBV"}},
	})
	v.SetDefault("report.news_sources", []map[string]any{
		{"name": "Yahoo Finance", "url": "https://finance.yahoo.com/topic/stock-market-news/", "selector": "h3"},
		{"name": "CNBC", "url": "https://www.cnbc.com/markets/", "selector": "a", "class_filter": "Card-title"},
	})
	v.SetDefault("report.language", "en")
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.filename_prefix", "market_analysis")
	v.SetDefault("report.sector_concurrency", 1)

	// Price defaults
	v.SetDefault("prices.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("prices.range", "5d")
	v.SetDefault("prices.interval", "1d")
	v.SetDefault("prices.delay", "1s")
	v.SetDefault("prices.jitter", "0s")
	v.SetDefault("prices.request_timeout", "10s")

	// Scraper defaults
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.max_headlines", 5)
	v.SetDefault("scraper.timeout", "15s")
	v.SetDefault("scraper.browser.enabled", false)
	v.SetDefault("scraper.browser.wait", "2s")

	// LLM defaults
	v.SetDefault("llm.primary", "gemini")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 1)
	v.SetDefault("llm.retry_delay", "1s")

	// Email defaults
	v.SetDefault("email.smtp_host", "smtp.office365.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.subject", "Market Report")
	v.SetDefault("email.body", "Hello,\n\nPlease find attached the latest market report.\n")

	// Schedule defaults: weekdays after the US close
	v.SetDefault("schedule.cron", "30 16 * * 1-5")
	v.SetDefault("schedule.timezone", "America/New_York")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.request_timeout", "120s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// Bare provider variables (GEMINI_API_KEY etc.) are honored when the
// prefixed form is unset.
func overrideFromEnv(cfg *Config) {
	if key := firstEnv(EnvPrefix+"_LLM_GEMINI_KEY", "GEMINI_API_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := firstEnv(EnvPrefix+"_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := firstEnv(EnvPrefix+"_LLM_OPENAI_KEY", "OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if pw := firstEnv(EnvPrefix+"_EMAIL_PASSWORD", "EMAIL_PASSWORD"); pw != "" {
		cfg.Email.Password = pw
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
