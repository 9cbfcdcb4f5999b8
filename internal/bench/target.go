package bench

import (
	"fmt"
	"strings"

	"nano2zit/internal/llm"
)

// Target is one provider/model pair under benchmark.
type Target struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	BaseURL  string `json:"baseUrl,omitempty"`
}

func (t Target) Runtime() llm.Runtime {
	return llm.Runtime{Provider: t.Provider, Model: t.Model, BaseURL: t.BaseURL}
}

// ParseTargets reads a comma-separated list of provider:model[@baseURL]
// specs. An empty list yields the single fallback runtime.
func ParseTargets(raw string, fallback llm.Runtime) ([]Target, error) {
	var specs []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			specs = append(specs, part)
		}
	}

	if len(specs) == 0 {
		return []Target{{
			ID:       fallback.Provider + ":" + fallback.Model,
			Provider: fallback.Provider,
			Model:    fallback.Model,
			BaseURL:  fallback.BaseURL,
		}}, nil
	}

	targets := make([]Target, 0, len(specs))
	for _, spec := range specs {
		t, err := parseTarget(spec)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func parseTarget(spec string) (Target, error) {
	head, baseURL := spec, ""
	if i := strings.LastIndex(spec, "@"); i >= 0 {
		head, baseURL = spec[:i], strings.TrimSpace(spec[i+1:])
	}

	provider, model, ok := strings.Cut(head, ":")
	provider, model = strings.TrimSpace(provider), strings.TrimSpace(model)
	if !ok || provider == "" || model == "" {
		return Target{}, fmt.Errorf("invalid target %q: use provider:model or provider:model@baseURL", spec)
	}

	return Target{
		ID:       provider + ":" + model,
		Provider: provider,
		Model:    model,
		BaseURL:  baseURL,
	}, nil
}
