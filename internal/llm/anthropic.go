package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage json.RawMessage `json:"usage"`
}

func (c *Client) callAnthropic(ctx context.Context, p callParams) (Completion, error) {
	payload := anthropicRequest{
		Model:       p.runtime.Model,
		MaxTokens:   p.runtime.MaxTokens,
		Temperature: *p.runtime.Temperature,
		System:      p.system,
		Messages:    []anthropicMessage{{Role: "user", Content: p.user}},
	}

	raw, err := c.postJSON(ctx, ProviderAnthropic, p.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}, payload)
	if err != nil {
		return Completion{}, err
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Completion{}, fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	for _, chunk := range decoded.Content {
		text.WriteString(chunk.Text)
	}
	return Completion{Text: text.String(), Usage: usageOf(decoded.Usage)}, nil
}
