package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nano2zit/internal/llm"
)

type Config struct {
	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	WebAddr string

	TelegramToken   string
	MaxConcurrent   int
	MessageDebounce time.Duration

	MaxInputJSONChars int

	LLM LLM
}

// LLM holds the generator defaults; requests may override provider, model
// and sampling settings per call.
type LLM struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64

	AnthropicAPIKey     string
	OpenAICompatAPIKey  string
	OpenAICompatBaseURL string
	GeminiAPIKey        string
	GeminiBaseURL       string
	GeminiAPIVersion    string
}

func Load() (Config, error) {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", llm.ProviderAnthropic))

	cfg := Config{
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Debug:             getEnvBool("DEBUG", false),
		PreferIPv4:        getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		WebAddr:           getEnv("WEB_ADDR", ":8080"),
		TelegramToken:     strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		MaxConcurrent:     getEnvInt("MAX_CONCURRENT", 4),
		MessageDebounce:   time.Duration(getEnvInt("MESSAGE_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxInputJSONChars: getEnvInt("MAX_INPUT_JSON_CHARS", 60000),
		LLM: LLM{
			Provider:            provider,
			Model:               getEnv("LLM_MODEL", llm.DefaultModel(provider)),
			MaxTokens:           getEnvInt("LLM_MAX_TOKENS", llm.DefaultMaxTokens),
			Temperature:         getEnvFloat("LLM_TEMPERATURE", llm.DefaultTemperature),
			AnthropicAPIKey:     strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
			OpenAICompatAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_COMPAT_API_KEY")),
			OpenAICompatBaseURL: getEnv("OPENAI_COMPAT_BASE_URL", llm.DefaultOpenAICompatURL),
			GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			GeminiBaseURL:       getEnv("GEMINI_BASE_URL", llm.DefaultGeminiURL),
			GeminiAPIVersion:    getEnv("GEMINI_API_VERSION", llm.DefaultGeminiAPIVersion),
		},
	}

	switch provider {
	case llm.ProviderAnthropic, llm.ProviderOpenAICompat, llm.ProviderGemini:
	default:
		return Config{}, fmt.Errorf("LLM_PROVIDER %q: %w", provider, llm.ErrUnsupportedProvider)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.MessageDebounce <= 0 {
		cfg.MessageDebounce = 1200 * time.Millisecond
	}
	if cfg.MaxInputJSONChars <= 0 {
		cfg.MaxInputJSONChars = 60000
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = llm.DefaultMaxTokens
	}

	return cfg, nil
}

// RequireTelegram reports a missing bot token; only the bot needs one.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c Config) LLMOptions() llm.Options {
	temperature := c.LLM.Temperature
	return llm.Options{
		Defaults: llm.Runtime{
			Provider:    c.LLM.Provider,
			Model:       c.LLM.Model,
			MaxTokens:   c.LLM.MaxTokens,
			Temperature: &temperature,
		},
		AnthropicAPIKey:     c.LLM.AnthropicAPIKey,
		OpenAICompatAPIKey:  c.LLM.OpenAICompatAPIKey,
		OpenAICompatBaseURL: c.LLM.OpenAICompatBaseURL,
		GeminiAPIKey:        c.LLM.GeminiAPIKey,
		GeminiBaseURL:       c.LLM.GeminiBaseURL,
		GeminiAPIVersion:    c.LLM.GeminiAPIVersion,
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
