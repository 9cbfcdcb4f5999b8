package bench

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano2zit/internal/rubric"
)

func okCase(target, profile string, score int, latency int64, metrics map[rubric.Metric]bool) Case {
	return Case{
		Status:    StatusOK,
		TargetID:  target,
		ProfileID: profile,
		LatencyMs: latency,
		Record: &rubric.Record{
			Metrics:           metrics,
			Score:             score,
			RestrictedWords:   200,
			UnrestrictedWords: 210,
		},
	}
}

func TestSummarize(t *testing.T) {
	all := map[rubric.Metric]bool{
		rubric.ParseOK:              true,
		rubric.ConstraintsRuleOK:    true,
		rubric.BannedTermsAbsent:    true,
		rubric.AspectRatioMentioned: true,
	}
	partial := map[rubric.Metric]bool{rubric.ParseOK: true}

	cases := []Case{
		okCase("a", "p1", 100, 1000, all),
		okCase("a", "p1", 70, 2000, partial),
		okCase("a", "p1", 70, 3000, partial),
		{Status: StatusError, TargetID: "a", ProfileID: "p1", LatencyMs: 5},
		okCase("b", "p1", 80, 500, all),
		okCase("c", "p1", 80, 400, all),
		{Status: StatusError, TargetID: "d", ProfileID: "p1"},
	}

	got := Summarize(cases)
	want := []Summary{
		{TargetID: "c", ProfileID: "p1", Total: 1, OK: 1, AvgScore: 80, AvgLatencyMs: 400, AvgSFWWords: 200, AvgNSFWWords: 210, ParseSuccessPct: 100, ConstraintsOKPct: 100, BannedCleanPct: 100, AspectOKPct: 100},
		{TargetID: "b", ProfileID: "p1", Total: 1, OK: 1, AvgScore: 80, AvgLatencyMs: 500, AvgSFWWords: 200, AvgNSFWWords: 210, ParseSuccessPct: 100, ConstraintsOKPct: 100, BannedCleanPct: 100, AspectOKPct: 100},
		{TargetID: "a", ProfileID: "p1", Total: 4, OK: 3, Errors: 1, AvgScore: 80, AvgLatencyMs: 2000, AvgSFWWords: 200, AvgNSFWWords: 210, ParseSuccessPct: 100, ConstraintsOKPct: 33.33, BannedCleanPct: 33.33, AspectOKPct: 33.33},
		{TargetID: "d", ProfileID: "p1", Total: 1, Errors: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, round2(200.0/3))
	assert.Equal(t, 0.0, round2(0))
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs", "report.json")

	cases := []Case{okCase("a", "p1", 100, 10, map[rubric.Metric]bool{rubric.ParseOK: true})}
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewReport(ReportConfig{SampleSize: 1, Profiles: []string{"p1"}}, Dataset{TotalRows: 1}, cases, started, started.Add(time.Minute))
	require.NotEmpty(t, r.RunID)
	require.Len(t, r.Summary, 1)

	require.NoError(t, WriteReport(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, r.RunID, decoded["runId"])
	assert.Equal(t, "2026-01-02T03:04:05Z", decoded["startedAt"])

	caseList, ok := decoded["cases"].([]any)
	require.True(t, ok)
	first := caseList[0].(map[string]any)
	assert.EqualValues(t, 100, first["score"])
	assert.EqualValues(t, 200, first["sfwWords"])
	assert.NotContains(t, first, "error")
}
