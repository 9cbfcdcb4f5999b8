package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nano2zit/internal/bench"
	"nano2zit/internal/config"
	"nano2zit/internal/convert"
	"nano2zit/internal/httpclient"
	"nano2zit/internal/llm"
	"nano2zit/internal/logging"
	"nano2zit/internal/prompt"
)

const summaryRows = 8

type runFlags struct {
	csvPath      string
	sampleSize   int
	maxJSONChars int
	profiles     string
	targets      string
	delayMs      int64
	parallel     int
	out          string
	dryRun       bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every sample against every target and profile, then write a JSON report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.csvPath, "csv", "prompts.csv", "Latin-1 CSV with prompt_id, tweet_id, prompt_json columns")
	flags.IntVar(&f.sampleSize, "sample-size", bench.DefaultSampleSize, "number of samples to select")
	flags.IntVar(&f.maxJSONChars, "max-json-chars", bench.DefaultMaxJSONChars, "skip rows whose JSON is longer than this")
	flags.StringVar(&f.profiles, "profiles", "", "comma-separated prompt profiles (default: all)")
	flags.StringVar(&f.targets, "targets", "", "comma-separated provider:model[@baseURL] targets (default: configured runtime)")
	flags.Int64Var(&f.delayMs, "delay-ms", 250, "minimum delay between calls to the same target")
	flags.IntVar(&f.parallel, "parallel", 1, "targets evaluated at once")
	flags.StringVar(&f.out, "out", "docs/benchmark-report.json", "report output path")
	flags.BoolVar(&f.dryRun, "dry-run", false, "select samples and print the plan without calling any model")
	return cmd
}

func runBench(cmd *cobra.Command, f runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)

	file, err := os.Open(f.csvPath)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	ds, err := bench.LoadSamples(file, bench.SampleOptions{
		SampleSize:   f.sampleSize,
		MaxJSONChars: f.maxJSONChars,
	})
	file.Close()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if len(ds.Samples) == 0 {
		return fmt.Errorf("no eligible samples in %s", f.csvPath)
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		UserAgent:  "nano2zit-bench",
	})
	llmOpts := cfg.LLMOptions()
	llmOpts.HTTPClient = httpClient
	llmOpts.Logger = logger
	gen := llm.New(llmOpts)

	svc := convert.New(convert.Options{Generator: gen, Logger: logger})

	profiles, err := parseProfiles(f.profiles, svc.Catalog())
	if err != nil {
		return err
	}
	runtime := gen.Runtime(llm.Runtime{})
	targets, err := bench.ParseTargets(f.targets, runtime)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Selected %d of %d eligible rows; %d target(s) x %d profile(s)\n",
		len(ds.Samples), ds.TotalRows, len(targets), len(profiles))

	if f.dryRun {
		for _, s := range ds.Samples {
			fmt.Fprintf(out, "  %s  %5d chars  %s\n", s.PromptID, s.JSONChars, s.Signature)
		}
		for _, t := range targets {
			fmt.Fprintf(out, "  target %s\n", t.ID)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := bench.NewRunner(bench.RunnerOptions{
		Generator: svc,
		Targets:   targets,
		Profiles:  profiles,
		Delay:     time.Duration(f.delayMs) * time.Millisecond,
		Parallel:  f.parallel,
		Logger:    logger,
	})

	started := time.Now()
	cases, err := runner.Run(ctx, ds.Samples)
	if err != nil {
		return fmt.Errorf("benchmark aborted: %w", err)
	}

	report := bench.NewReport(bench.ReportConfig{
		CSVPath:        f.csvPath,
		SampleSize:     f.sampleSize,
		MaxJSONChars:   f.maxJSONChars,
		DelayMs:        f.delayMs,
		Parallel:       f.parallel,
		Profiles:       profiles,
		Targets:        targets,
		DefaultProfile: svc.Catalog().DefaultID(),
		Runtime:        runtime,
	}, ds, cases, started, time.Now())

	if err := bench.WriteReport(f.out, report); err != nil {
		return err
	}

	fmt.Fprintln(out, renderSummary(report.Summary, summaryRows))
	fmt.Fprintf(out, "Report written to %s (run %s)\n", f.out, report.RunID)
	return nil
}

// parseProfiles validates a comma-separated profile list against the
// catalog. Empty means every profile.
func parseProfiles(raw string, catalog *prompt.Catalog) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if _, ok := catalog.Lookup(id); !ok {
			return nil, fmt.Errorf("unknown profile %q (valid: %s)", id, strings.Join(catalog.IDs(), ", "))
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return catalog.IDs(), nil
	}
	return out, nil
}
