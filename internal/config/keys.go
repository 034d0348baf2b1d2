package config

// APIKeySource represents where a credential comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of a credential.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "AIz...abc"
}

// CheckAPIKeys returns the status of every credential the service can use.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Gemini API Key", cfg.LLM.GeminiKey, EnvPrefix+"_LLM_GEMINI_KEY", "GEMINI_API_KEY"),
		checkKey("Anthropic API Key", cfg.LLM.AnthropicKey, EnvPrefix+"_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"),
		checkKey("OpenAI API Key", cfg.LLM.OpenAIKey, EnvPrefix+"_LLM_OPENAI_KEY", "OPENAI_API_KEY"),
		checkKey("SMTP Password", cfg.Email.Password, EnvPrefix+"_EMAIL_PASSWORD", "EMAIL_PASSWORD"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	if firstEnv(envVars...) != "" {
		status.Source = KeySourceEnv
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks a key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
