package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "llm": {"provider": "OpenAI", "model": "gpt-4o-mini", "api_key_env": "MY_KEY", "chat_thinking_budget": 2048},
  "server_addr": ":9090",
  "request_timeout_seconds": 30
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.ChatThinkingBudget)
	assert.Zero(t, cfg.LLM.GenerationThinkingBudget)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "llm:\n  model: gemini-2.5-flash\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
}

func TestLoad_EmptyObject(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", "{}"))
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"malformed json", "config.json", `{"llm":`, "parse config"},
		{"malformed yaml", "config.yml", "llm: [", "parse config"},
		{"unknown provider", "config.json", `{"llm":{"provider":"anthropic"}}`, "not supported"},
		{"deepseek without base_url", "config.json", `{"llm":{"provider":"deepseek"}}`, "requires base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("CUSTOM_KEY", "")

	assert.Equal(t, "inline", LLMConfig{Provider: ProviderGemini, APIKey: "inline"}.ResolveAPIKey())

	t.Setenv("API_KEY", "legacy")
	assert.Equal(t, "legacy", LLMConfig{Provider: ProviderGemini}.ResolveAPIKey())
	t.Setenv("GEMINI_API_KEY", "gemini")
	assert.Equal(t, "gemini", LLMConfig{Provider: ProviderGemini}.ResolveAPIKey())

	t.Setenv("CUSTOM_KEY", "custom")
	assert.Equal(t, "custom", LLMConfig{Provider: ProviderGemini, APIKeyEnv: "CUSTOM_KEY"}.ResolveAPIKey())

	t.Setenv("OPENAI_API_KEY", "openai")
	assert.Equal(t, "openai", LLMConfig{Provider: ProviderOpenAI}.ResolveAPIKey())
	t.Setenv("DEEPSEEK_API_KEY", "deepseek")
	assert.Equal(t, "deepseek", LLMConfig{Provider: ProviderDeepSeek}.ResolveAPIKey())
	assert.Empty(t, LLMConfig{Provider: ProviderMock}.ResolveAPIKey())
}
