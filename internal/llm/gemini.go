package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata json.RawMessage `json:"usageMetadata"`
}

func (c *Client) callGemini(ctx context.Context, p callParams) (Completion, error) {
	payload := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: p.user}}},
		},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: p.system}}},
		GenerationConfig: generationConfig{
			Temperature:     *p.runtime.Temperature,
			MaxOutputTokens: p.runtime.MaxTokens,
		},
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", p.baseURL, c.geminiAPIVersion, p.runtime.Model)
	raw, err := c.postJSON(ctx, ProviderGemini, url, map[string]string{
		"x-goog-api-key": p.apiKey,
	}, payload)
	if err != nil {
		return Completion{}, err
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Completion{}, fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	if len(decoded.Candidates) > 0 {
		for _, pt := range decoded.Candidates[0].Content.Parts {
			text.WriteString(pt.Text)
		}
	}
	return Completion{Text: text.String(), Usage: usageOf(decoded.UsageMetadata)}, nil
}
