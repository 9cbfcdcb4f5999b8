// Package convert runs one JSON prompt through the generator and returns the
// two recovered prompt sections.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"nano2zit/internal/hints"
	"nano2zit/internal/jsontree"
	"nano2zit/internal/llm"
	"nano2zit/internal/logging"
	"nano2zit/internal/prompt"
	"nano2zit/internal/sections"
	"nano2zit/internal/textnorm"
)

const (
	DefaultMaxInputChars = 60000
	previewChars         = 500
)

type Generator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Completion, error)
}

type Options struct {
	Generator     Generator
	Catalog       *prompt.Catalog
	Miner         hints.Miner
	MaxInputChars int
	Logger        *slog.Logger
}

type Service struct {
	gen           Generator
	catalog       *prompt.Catalog
	miner         hints.Miner
	maxInputChars int
	logger        *slog.Logger
}

func New(opts Options) *Service {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = prompt.Default
	}
	maxChars := opts.MaxInputChars
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		gen:           opts.Generator,
		catalog:       catalog,
		miner:         opts.Miner,
		maxInputChars: maxChars,
		logger:        logger,
	}
}

type Request struct {
	InputJSON string
	// Profile is a prompt profile id; empty selects the default.
	Profile string
	Runtime llm.Runtime
}

type Result struct {
	SFW      string          `json:"sfw"`
	NSFW     string          `json:"nsfw"`
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Profile  string          `json:"prompt_version"`
	Usage    json.RawMessage `json:"usage"`
}

// Generation is one raw generator round-trip. Parsed is false when no
// section strategy matched; Sections is then zero.
type Generation struct {
	Profile    string
	Hints      hints.Bundle
	Completion llm.Completion
	Sections   sections.Result
	Parsed     bool
	Latency    time.Duration
}

func (s *Service) Catalog() *prompt.Catalog {
	return s.catalog
}

// Convert validates the request, generates, and requires both sections.
func (s *Service) Convert(ctx context.Context, req Request) (Result, error) {
	profile, err := s.profile(req.Profile)
	if err != nil {
		return Result{}, err
	}
	if err := s.validate(req.InputJSON); err != nil {
		return Result{}, err
	}

	gen, err := s.Generate(ctx, profile, req.InputJSON, req.Runtime)
	if err != nil {
		return Result{}, err
	}

	if !gen.Parsed || !gen.Sections.Complete() {
		s.logger.Warn("unparseable model output",
			"provider", gen.Completion.Provider,
			"model", gen.Completion.Model,
			"profile", profile,
		)
		return Result{}, &UnparseableError{
			Preview:  textnorm.Truncate(gen.Completion.Text, previewChars),
			Provider: gen.Completion.Provider,
			Model:    gen.Completion.Model,
		}
	}

	return Result{
		SFW:      gen.Sections.SFW,
		NSFW:     gen.Sections.NSFW,
		Provider: gen.Completion.Provider,
		Model:    gen.Completion.Model,
		Profile:  profile,
		Usage:    gen.Completion.Usage,
	}, nil
}

// Generate performs the prompt assembly and generator call without input
// validation or the completeness requirement. Generator failures are
// returned wrapped; an unparseable answer is not an error here.
func (s *Service) Generate(ctx context.Context, profile, inputJSON string, rt llm.Runtime) (Generation, error) {
	if s.gen == nil {
		return Generation{}, fmt.Errorf("generate: no generator configured")
	}

	p := s.catalog.Resolve(profile)
	bundle := s.miner.Mine(inputJSON)

	start := time.Now()
	completion, err := s.gen.Generate(ctx, llm.Request{
		SystemPrompt: s.catalog.SystemPrompt(p.ID),
		UserPrompt:   prompt.UserPrompt(inputJSON, bundle.Directives),
		Runtime:      rt,
	})
	latency := time.Since(start)
	if err != nil {
		return Generation{}, fmt.Errorf("generate: %w", err)
	}

	parsed, ok := sections.Parse(completion.Text)
	s.logger.Debug("generation finished",
		"provider", completion.Provider,
		"model", completion.Model,
		"profile", p.ID,
		"hints", len(bundle.Hints),
		"parsed", ok,
		"strategy", parsed.Strategy,
		"latency_ms", latency.Milliseconds(),
	)

	return Generation{
		Profile:    p.ID,
		Hints:      bundle,
		Completion: completion,
		Sections:   parsed,
		Parsed:     ok,
		Latency:    latency,
	}, nil
}

// Inspect mines the hint bundle without calling the generator.
func (s *Service) Inspect(inputJSON string) (hints.Bundle, error) {
	if err := s.validate(inputJSON); err != nil {
		return hints.Bundle{}, err
	}
	return s.miner.Mine(inputJSON), nil
}

// profile resolves a requested id. Empty means default; anything else must
// name a catalog profile.
func (s *Service) profile(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == s.catalog.DefaultID() {
		return s.catalog.DefaultID(), nil
	}
	if _, ok := s.catalog.Lookup(requested); !ok {
		return "", &UnknownProfileError{Profile: requested, Valid: s.catalog.IDs()}
	}
	return requested, nil
}

func (s *Service) validate(inputJSON string) error {
	if strings.TrimSpace(inputJSON) == "" {
		return badRequest("input_json is required")
	}
	if utf8.RuneCountInString(inputJSON) > s.maxInputChars {
		return badRequest("input_json exceeds %d characters", s.maxInputChars)
	}
	if _, err := jsontree.ParseString(inputJSON); err != nil {
		return badRequest("invalid JSON input: %v", err)
	}
	return nil
}
