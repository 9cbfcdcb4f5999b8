package bench

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"nano2zit/internal/convert"
	"nano2zit/internal/llm"
	"nano2zit/internal/logging"
	"nano2zit/internal/rubric"
)

type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Generator is satisfied by *convert.Service.
type Generator interface {
	Generate(ctx context.Context, profile, inputJSON string, rt llm.Runtime) (convert.Generation, error)
}

// Case is the outcome of one (target, profile, sample) call. Error cases
// carry no rubric record.
type Case struct {
	Status    Status `json:"status"`
	TargetID  string `json:"targetId"`
	ProfileID string `json:"profileId"`
	PromptID  string `json:"promptId"`
	TweetID   string `json:"tweetId"`
	Signature string `json:"signature"`
	JSONChars int    `json:"jsonChars"`
	LatencyMs int64  `json:"latencyMs"`

	*rubric.Record

	Strategy string          `json:"strategy,omitempty"`
	Provider string          `json:"provider,omitempty"`
	Model    string          `json:"model,omitempty"`
	Usage    json.RawMessage `json:"usage,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type RunnerOptions struct {
	Generator Generator
	Targets   []Target
	Profiles  []string
	// Delay is the minimum spacing between calls to the same target.
	Delay time.Duration
	// Parallel bounds how many targets run at once.
	Parallel int
	Logger   *slog.Logger
}

type Runner struct {
	gen      Generator
	targets  []Target
	profiles []string
	delay    time.Duration
	parallel int
	logger   *slog.Logger
}

func NewRunner(opts RunnerOptions) *Runner {
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		gen:      opts.Generator,
		targets:  opts.Targets,
		profiles: opts.Profiles,
		delay:    opts.Delay,
		parallel: parallel,
		logger:   logger,
	}
}

// Run evaluates every sample for every target and profile. Cases come back
// grouped by target in target order, then profile, then sample. Generator
// failures become error cases; only cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, samples []Sample) ([]Case, error) {
	perTarget := make([][]Case, len(r.targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, target := range r.targets {
		g.Go(func() error {
			cases, err := r.runTarget(gctx, target, samples)
			perTarget[i] = cases
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Case
	for _, cases := range perTarget {
		out = append(out, cases...)
	}
	return out, nil
}

func (r *Runner) runTarget(ctx context.Context, target Target, samples []Sample) ([]Case, error) {
	limiter := rate.NewLimiter(rate.Every(r.delay), 1)
	cases := make([]Case, 0, len(r.profiles)*len(samples))

	for _, profile := range r.profiles {
		for _, sample := range samples {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
			c := r.runCase(ctx, target, profile, sample)
			if c.Status == StatusError && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			cases = append(cases, c)
		}
	}
	return cases, nil
}

func (r *Runner) runCase(ctx context.Context, target Target, profile string, sample Sample) Case {
	c := Case{
		TargetID:  target.ID,
		ProfileID: profile,
		PromptID:  sample.PromptID,
		TweetID:   sample.TweetID,
		Signature: sample.Signature,
		JSONChars: sample.JSONChars,
	}

	start := time.Now()
	gen, err := r.gen.Generate(ctx, profile, sample.JSON, target.Runtime())
	if err != nil {
		c.Status = StatusError
		c.LatencyMs = time.Since(start).Milliseconds()
		c.Error = err.Error()
		r.logger.Warn("benchmark case failed",
			"target", target.ID,
			"profile", profile,
			"prompt_id", sample.PromptID,
			"err", err,
		)
		return c
	}

	var out *rubric.Output
	if gen.Parsed {
		out = &rubric.Output{Restricted: gen.Sections.SFW, Unrestricted: gen.Sections.NSFW}
		c.Strategy = string(gen.Sections.Strategy)
	}
	record := rubric.Evaluate(sample.Doc, gen.Completion.Text, out)

	c.Status = StatusOK
	c.LatencyMs = gen.Latency.Milliseconds()
	c.Record = &record
	c.Provider = gen.Completion.Provider
	c.Model = gen.Completion.Model
	c.Usage = gen.Completion.Usage

	r.logger.Info("benchmark case",
		"target", target.ID,
		"profile", profile,
		"prompt_id", sample.PromptID,
		"score", record.Score,
		"latency_ms", c.LatencyMs,
	)
	return c
}
