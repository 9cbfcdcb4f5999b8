package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano2zit/internal/llm"
)

var envKeys = []string{
	"LLM_PROVIDER", "LLM_MODEL", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "OPENAI_COMPAT_BASE_URL",
	"ANTHROPIC_API_KEY", "OPENAI_COMPAT_API_KEY", "GEMINI_API_KEY", "GEMINI_BASE_URL", "GEMINI_API_VERSION",
	"LOG_LEVEL", "DEBUG", "PREFER_IPV4", "HTTP_TIMEOUT_SECONDS", "REQUEST_TIMEOUT_SECONDS", "WEB_ADDR",
	"TELEGRAM_BOT_TOKEN", "MAX_CONCURRENT", "MESSAGE_DEBOUNCE_MS", "MAX_INPUT_JSON_CHARS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.PreferIPv4)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 1200*time.Millisecond, cfg.MessageDebounce)
	assert.Equal(t, 60000, cfg.MaxInputJSONChars)
	assert.Equal(t, llm.ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.LLM.Model)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.OpenAICompatBaseURL)
	assert.Error(t, cfg.RequireTelegram())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "OpenAI-Compat")
	t.Setenv("LLM_TEMPERATURE", "0.9")
	t.Setenv("LLM_MAX_TOKENS", "nope")
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("TELEGRAM_BOT_TOKEN", " token ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderOpenAICompat, cfg.LLM.Provider)
	assert.Equal(t, "Qwen/Qwen3-32B", cfg.LLM.Model)
	assert.InDelta(t, 0.9, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.NoError(t, cfg.RequireTelegram())

	opts := cfg.LLMOptions()
	require.NotNil(t, opts.Defaults.Temperature)
	assert.InDelta(t, 0.9, *opts.Defaults.Temperature, 1e-9)
	assert.Equal(t, "Qwen/Qwen3-32B", opts.Defaults.Model)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "cohere")

	_, err := Load()
	assert.ErrorIs(t, err, llm.ErrUnsupportedProvider)
}
