package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

type chatRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage json.RawMessage `json:"usage"`
}

func (c *Client) callOpenAICompat(ctx context.Context, p callParams) (Completion, error) {
	payload := chatRequest{
		Model:       p.runtime.Model,
		MaxTokens:   p.runtime.MaxTokens,
		Temperature: *p.runtime.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: p.system},
			{Role: "user", Content: p.user},
		},
	}

	raw, err := c.postJSON(ctx, ProviderOpenAICompat, p.baseURL+"/chat/completions", map[string]string{
		"authorization": "Bearer " + p.apiKey,
	}, payload)
	if err != nil {
		return Completion{}, err
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Completion{}, fmt.Errorf("decode response: %w", err)
	}

	var text string
	if len(decoded.Choices) > 0 {
		text = decoded.Choices[0].Message.Content
	}
	return Completion{Text: text, Usage: usageOf(decoded.Usage)}, nil
}
