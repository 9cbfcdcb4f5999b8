package bench

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func buildCSV(rows ...[4]string) []byte {
	var b bytes.Buffer
	b.WriteString("prompt_id,tweet_id,prompt_json,prompt_zit\r\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,%s\r\n", r[0], r[1], csvField(r[2]), csvField(r[3]))
	}
	return b.Bytes()
}

func TestReadRowsLatin1(t *testing.T) {
	data := buildCSV([4]string{"1", "t1", `{"scene":"caf` + "\xe9" + `"}`, "out"})

	rows, err := ReadRows(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, `{"scene":"café"}`, rows[0].PromptJSON)
	assert.Equal(t, "t1", rows[0].TweetID)
	assert.Equal(t, "out", rows[0].PromptZiT)
}

func TestReadRowsMissingColumns(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("prompt_json\n\"{\"\"a\"\":1}\"\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, `{"a":1}`, rows[0].PromptJSON)
	assert.Empty(t, rows[0].PromptID)

	rows, err = ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEligibleFiltersAndSorts(t *testing.T) {
	rows := []Row{
		{PromptID: "long", PromptJSON: `{"prompt":"a fairly long prompt string"}`},
		{PromptID: "array", PromptJSON: `[1,2]`},
		{PromptID: "bad", PromptJSON: `{"a":`},
		{PromptID: "empty", PromptJSON: "  "},
		{PromptID: "short", PromptJSON: ` {"b":1,"a":2} `},
		{PromptID: "tie", PromptJSON: `{"c":1,"d":2}`},
		{PromptID: "huge", PromptJSON: `{"x":"` + strings.Repeat("y", 100) + `"}`},
	}

	got := Eligible(rows, 50)
	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.PromptID)
	}
	assert.Equal(t, []string{"short", "tie", "long"}, ids)
	assert.Equal(t, "a|b", got[0].Signature)
	assert.Equal(t, []string{"a", "b"}, got[0].Keys)
	assert.Equal(t, 13, got[0].JSONChars)
}

func sample(id, raw string) Sample {
	s := Eligible([]Row{{PromptID: id, PromptJSON: raw}}, 0)
	return s[0]
}

func TestSelectDiverse(t *testing.T) {
	samples := []Sample{
		sample("a", `{"x":1}`),
		sample("b", `{"x":2}`),
		sample("c", `{"prompt":"p"}`),
		sample("d", `{"scene":"s"}`),
		sample("e", `{"prompt":"q","scene":"t"}`),
		sample("f", `{"y":1}`),
	}

	ids := func(in []Sample) []string {
		var out []string
		for _, s := range in {
			out = append(out, s.PromptID)
		}
		return out
	}

	// prompt -> c, subject none, scene -> d, then fill by order skipping b.
	got := SelectDiverse(samples, Families, 8)
	if diff := cmp.Diff([]string{"c", "d", "a", "e", "f"}, ids(got)); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"c"}, ids(SelectDiverse(samples, Families, 1)))
	assert.Empty(t, SelectDiverse(samples, Families, 0))
}

func TestLoadSamples(t *testing.T) {
	data := buildCSV(
		[4]string{"1", "", `{"subject":"woman","camera":{"lens":"35mm"}}`, ""},
		[4]string{"2", "", `{"subject":"man","camera":{"lens":"50mm"}}`, ""},
		[4]string{"3", "", `{"image_description":{"scene":"alley"}}`, ""},
		[4]string{"4", "", `not json`, ""},
	)

	ds, err := LoadSamples(bytes.NewReader(data), SampleOptions{SampleSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.TotalRows)
	require.Len(t, ds.Samples, 2)
	assert.Equal(t, "3", ds.Samples[0].PromptID)
	assert.Equal(t, "2", ds.Samples[1].PromptID)
}
