package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano2zit/internal/bench"
	"nano2zit/internal/prompt"
)

func writeCSV(t *testing.T, records [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.csv")
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write([]string{"prompt_id", "tweet_id", "prompt_json", "prompt_zit"}))
	require.NoError(t, w.WriteAll(records))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestParseProfiles(t *testing.T) {
	catalog := prompt.Default

	all, err := parseProfiles("", catalog)
	require.NoError(t, err)
	assert.Equal(t, catalog.IDs(), all)

	some, err := parseProfiles(" v3-rich, v3-strict ,v3-rich", catalog)
	require.NoError(t, err)
	assert.Equal(t, []string{"v3-rich", "v3-strict"}, some)

	_, err = parseProfiles("v3-rich,v7", catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown profile "v7"`)
}

func TestRenderSummary(t *testing.T) {
	rows := make([]bench.Summary, 10)
	for i := range rows {
		rows[i] = bench.Summary{TargetID: "anthropic:m" + string(rune('a'+i)), ProfileID: "v3-balanced", Total: 4, OK: 3, AvgScore: 88.5}
	}

	out := renderSummary(rows, summaryRows)
	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "anthropic:ma")
	assert.Contains(t, out, "anthropic:mh")
	assert.NotContains(t, out, "anthropic:mi")
	assert.Contains(t, out, "3/4")
	assert.Contains(t, out, "88.50")
}

func TestRunDryRun(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	path := writeCSV(t, [][]string{
		{"1", "t1", `{"subject":"cat"}`, ""},
		{"2", "t2", `{"scene":"forest","mood":"calm"}`, ""},
		{"3", "t3", `not json`, ""},
	})

	cmd := newRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--csv", path, "--dry-run", "--targets", "openai-compat:qwen,gemini:gemini-2.5-flash"})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "Selected 2 of 2 eligible rows; 2 target(s) x 3 profile(s)")
	assert.Contains(t, text, "target openai-compat:qwen")
	assert.Contains(t, text, "target gemini:gemini-2.5-flash")
	assert.Contains(t, text, "mood|scene")
}

func TestRunRejectsUnknownProfile(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	path := writeCSV(t, [][]string{{"1", "t1", `{"subject":"cat"}`, ""}})

	cmd := newRunCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--csv", path, "--dry-run", "--profiles", "nope"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")
}

func TestFewshotCommand(t *testing.T) {
	path := writeCSV(t, [][]string{
		{"1", "t1", `{"prompt":"a red fox in snow"}`, "A red fox stands in fresh snow at dawn."},
		{"2", "t2", `{"subject":"lighthouse"}`, "A masterpiece, best quality lighthouse."},
		{"3", "t3", `{"image_description":"harbor at night"}`, "A quiet harbor at night with lanterns."},
	})
	output := filepath.Join(t.TempDir(), "nested", "fewshot.yaml")

	cmd := newFewshotCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--csv", path, "--output", output})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Wrote 2 few-shot examples")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	catalog, err := prompt.Load([]byte("profiles:\n  - id: p\n"), data)
	require.NoError(t, err)

	ids := make([]string, 0, 2)
	for _, ex := range catalog.Examples(10) {
		ids = append(ids, ex.SourcePromptID)
	}
	assert.ElementsMatch(t, []string{"1", "3"}, ids)
	assert.True(t, strings.Contains(string(data), "source: prompts.csv"))
}
