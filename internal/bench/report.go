package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"nano2zit/internal/llm"
)

type ReportConfig struct {
	CSVPath        string      `json:"csvPath"`
	SampleSize     int         `json:"sampleSize"`
	MaxJSONChars   int         `json:"maxJsonChars"`
	DelayMs        int64       `json:"delayMs"`
	Parallel       int         `json:"parallel"`
	Profiles       []string    `json:"profiles"`
	Targets        []Target    `json:"targets"`
	DefaultProfile string      `json:"defaultProfile"`
	Runtime        llm.Runtime `json:"runtimeModelConfig"`
}

type Report struct {
	RunID      string       `json:"runId"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Config     ReportConfig `json:"config"`
	Dataset    Dataset      `json:"dataset"`
	Summary    []Summary    `json:"summary"`
	Cases      []Case       `json:"cases"`
}

// NewReport stamps a fresh run id and summarizes the cases.
func NewReport(cfg ReportConfig, ds Dataset, cases []Case, started, finished time.Time) Report {
	return Report{
		RunID:      uuid.NewString(),
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Config:     cfg,
		Dataset:    ds,
		Summary:    Summarize(cases),
		Cases:      cases,
	}
}

// WriteReport writes the report as indented JSON, creating parent
// directories.
func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
