package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"
)

const defaultRequestTimeout = 120

// Config is read from config.json (or config.yaml).
type Config struct {
	LLM                   *LLMConfig `json:"llm,omitempty" yaml:"llm,omitempty"`
	ServerAddr            string     `json:"server_addr,omitempty" yaml:"server_addr,omitempty"`
	RequestTimeoutSeconds int        `json:"request_timeout_seconds,omitempty" yaml:"request_timeout_seconds,omitempty"`
}

// LLMConfig selects the model provider and its tuning knobs.
type LLMConfig struct {
	Provider  string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Zero keeps the built-in budgets.
	GenerationThinkingBudget int `json:"generation_thinking_budget,omitempty" yaml:"generation_thinking_budget,omitempty"`
	ChatThinkingBudget       int `json:"chat_thinking_budget,omitempty" yaml:"chat_thinking_budget,omitempty"`
}

// Default is used when no config file exists.
func Default() Config {
	return Config{
		LLM:                   &LLMConfig{Provider: ProviderGemini},
		ServerAddr:            ":8080",
		RequestTimeoutSeconds: defaultRequestTimeout,
	}
}

// Load reads JSON config from disk; .yaml/.yml files are parsed as YAML.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM == nil {
		c.LLM = &LLMConfig{}
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = defaultRequestTimeout
	}
}

// Validate checks the provider name and provider-specific requirements.
func (c Config) Validate() error {
	if c.LLM == nil {
		return fmt.Errorf("llm config missing")
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderMock:
	case ProviderDeepSeek:
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	return nil
}

// RequestTimeout bounds every model call.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return defaultRequestTimeout * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ResolveAPIKey returns the configured key, falling back to api_key_env and
// then the provider's conventional variable.
func (l LLMConfig) ResolveAPIKey() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	if l.APIKeyEnv != "" {
		if v := os.Getenv(l.APIKeyEnv); v != "" {
			return v
		}
	}
	switch l.Provider {
	case ProviderGemini:
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderDeepSeek:
		return os.Getenv("DEEPSEEK_API_KEY")
	}
	return ""
}
