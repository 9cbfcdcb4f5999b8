package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderAnthropic    = "anthropic"
	ProviderOpenAICompat = "openai-compat"
	ProviderGemini       = "gemini"
)

const (
	DefaultMaxTokens        = 4096
	DefaultTemperature      = 0.2
	DefaultOpenAICompatURL  = "https://openrouter.ai/api/v1"
	DefaultAnthropicURL     = "https://api.anthropic.com"
	DefaultGeminiURL        = "https://generativelanguage.googleapis.com"
	DefaultGeminiAPIVersion = "v1beta"

	anthropicVersion      = "2023-06-01"
	errorBodyPreviewBytes = 400
)

var (
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
	ErrMissingAPIKey       = errors.New("api key not configured")
)

// DefaultModel is the model used when neither the environment nor the
// request names one.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-5-20250929"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "Qwen/Qwen3-32B"
	}
}

// Runtime selects the provider and sampling settings for one call. Zero
// fields fall back to the client defaults.
type Runtime struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	BaseURL     string   `json:"baseUrl,omitempty"`
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	Runtime      Runtime
}

type Completion struct {
	Text     string
	Provider string
	Model    string
	Usage    json.RawMessage
}

// APIError is returned when a provider answers with a non-success status.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Provider, e.Status, e.Message)
}

type Options struct {
	Defaults Runtime

	AnthropicAPIKey    string
	OpenAICompatAPIKey string
	GeminiAPIKey       string

	AnthropicBaseURL    string
	OpenAICompatBaseURL string
	GeminiBaseURL       string
	GeminiAPIVersion    string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	defaults Runtime

	keys     map[string]string
	baseURLs map[string]string

	geminiAPIVersion string

	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	defaults := opts.Defaults
	defaults.Provider = strings.ToLower(strings.TrimSpace(defaults.Provider))
	if defaults.Provider == "" {
		defaults.Provider = ProviderAnthropic
	}
	if strings.TrimSpace(defaults.Model) == "" {
		defaults.Model = DefaultModel(defaults.Provider)
	}
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = DefaultMaxTokens
	}
	if defaults.Temperature == nil {
		t := DefaultTemperature
		defaults.Temperature = &t
	}

	apiVersion := strings.TrimSpace(opts.GeminiAPIVersion)
	if apiVersion == "" {
		apiVersion = DefaultGeminiAPIVersion
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		defaults: defaults,
		keys: map[string]string{
			ProviderAnthropic:    strings.TrimSpace(opts.AnthropicAPIKey),
			ProviderOpenAICompat: strings.TrimSpace(opts.OpenAICompatAPIKey),
			ProviderGemini:       strings.TrimSpace(opts.GeminiAPIKey),
		},
		baseURLs: map[string]string{
			ProviderAnthropic:    firstNonEmpty(opts.AnthropicBaseURL, DefaultAnthropicURL),
			ProviderOpenAICompat: firstNonEmpty(opts.OpenAICompatBaseURL, DefaultOpenAICompatURL),
			ProviderGemini:       firstNonEmpty(opts.GeminiBaseURL, DefaultGeminiURL),
		},
		geminiAPIVersion: apiVersion,
		httpClient:       httpClient,
		logger:           logger,
	}
}

// Runtime merges an override over the client defaults. A provider switch
// without a model picks that provider's default model.
func (c *Client) Runtime(override Runtime) Runtime {
	rt := c.defaults
	if p := strings.ToLower(strings.TrimSpace(override.Provider)); p != "" && p != rt.Provider {
		rt.Provider = p
		rt.Model = DefaultModel(p)
		rt.BaseURL = ""
	}
	if m := strings.TrimSpace(override.Model); m != "" {
		rt.Model = m
	}
	if override.MaxTokens > 0 {
		rt.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		rt.Temperature = override.Temperature
	}
	if u := strings.TrimSpace(override.BaseURL); u != "" {
		rt.BaseURL = u
	}
	return rt
}

// Generate runs one completion against the provider selected by the merged
// runtime.
func (c *Client) Generate(ctx context.Context, req Request) (Completion, error) {
	rt := c.Runtime(req.Runtime)

	var fn func(context.Context, callParams) (Completion, error)
	switch rt.Provider {
	case ProviderAnthropic:
		fn = c.callAnthropic
	case ProviderOpenAICompat:
		fn = c.callOpenAICompat
	case ProviderGemini:
		fn = c.callGemini
	default:
		return Completion{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, rt.Provider)
	}

	key := c.keys[rt.Provider]
	if key == "" {
		return Completion{}, fmt.Errorf("%w: %s", ErrMissingAPIKey, APIKeyEnv(rt.Provider))
	}

	baseURL := rt.BaseURL
	if baseURL == "" {
		baseURL = c.baseURLs[rt.Provider]
	}

	start := time.Now()
	out, err := fn(ctx, callParams{
		apiKey:  key,
		baseURL: strings.TrimRight(baseURL, "/"),
		runtime: rt,
		system:  req.SystemPrompt,
		user:    req.UserPrompt,
	})
	if err != nil {
		return Completion{}, err
	}

	out.Provider = rt.Provider
	out.Model = rt.Model
	c.logger.Debug("llm completion",
		"provider", rt.Provider,
		"model", rt.Model,
		"chars", len(out.Text),
		"duration", time.Since(start),
	)
	return out, nil
}

// APIKeyEnv names the environment variable that carries a provider's key.
func APIKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAICompat:
		return "OPENAI_COMPAT_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

type callParams struct {
	apiKey  string
	baseURL string
	runtime Runtime
	system  string
	user    string
}

func (c *Client) postJSON(ctx context.Context, provider, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, &APIError{
			Provider: provider,
			Status:   httpResp.StatusCode,
			Message:  errorMessage(rawBody),
		}
	}
	return rawBody, nil
}

// errorMessage pulls error.message (or a string error) out of a provider
// error body, falling back to the leading bytes of the body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}

	if len(body) > errorBodyPreviewBytes {
		body = body[:errorBodyPreviewBytes]
	}
	return strings.TrimSpace(string(body))
}

func usageOf(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
