// Package bench loads benchmark samples, runs them against generator
// targets and aggregates rubric scores into a report.
package bench

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"nano2zit/internal/jsontree"
)

const (
	DefaultSampleSize   = 8
	DefaultMaxJSONChars = 4200
	signatureSep        = "|"
)

// Families are forced into a benchmark selection, one sample each, when the
// dataset has a row with an unused signature carrying the key.
var Families = []string{
	"image_generation_prompt",
	"image_description",
	"prompt",
	"subject",
	"scene",
}

// Row is one CSV record. Only the named columns are read.
type Row struct {
	PromptID   string
	TweetID    string
	PromptJSON string
	PromptZiT  string
}

type Sample struct {
	PromptID  string         `json:"promptId"`
	TweetID   string         `json:"tweetId"`
	JSON      string         `json:"-"`
	Doc       jsontree.Value `json:"-"`
	Keys      []string       `json:"-"`
	Signature string         `json:"signature"`
	JSONChars int            `json:"jsonChars"`
	Output    string         `json:"-"`
}

type SampleOptions struct {
	SampleSize   int
	MaxJSONChars int
}

type Dataset struct {
	TotalRows int      `json:"totalRows"`
	Samples   []Sample `json:"selectedSamples"`
}

// ReadRows decodes a Latin-1 CSV with a header row.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, Row{
			PromptID:   field(rec, "prompt_id"),
			TweetID:    field(rec, "tweet_id"),
			PromptJSON: field(rec, "prompt_json"),
			PromptZiT:  field(rec, "prompt_zit"),
		})
	}
	return rows, nil
}

// LoadSamples reads the CSV and selects a compact, schema-diverse sample.
func LoadSamples(r io.Reader, opts SampleOptions) (Dataset, error) {
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.MaxJSONChars <= 0 {
		opts.MaxJSONChars = DefaultMaxJSONChars
	}

	rows, err := ReadRows(r)
	if err != nil {
		return Dataset{}, err
	}

	eligible := Eligible(rows, opts.MaxJSONChars)
	return Dataset{
		TotalRows: len(eligible),
		Samples:   SelectDiverse(eligible, Families, opts.SampleSize),
	}, nil
}

// Eligible keeps rows whose prompt_json is a non-empty JSON object of at
// most maxChars characters (0 means unlimited), sorted shortest first.
// Rows of equal length keep file order.
func Eligible(rows []Row, maxChars int) []Sample {
	var out []Sample
	for _, row := range rows {
		raw := strings.TrimSpace(row.PromptJSON)
		if raw == "" {
			continue
		}
		n := utf8.RuneCountInString(raw)
		if maxChars > 0 && n > maxChars {
			continue
		}
		doc, err := jsontree.ParseString(raw)
		if err != nil || doc.Kind() != jsontree.Object {
			continue
		}
		keys := sortedKeys(doc)
		out = append(out, Sample{
			PromptID:  row.PromptID,
			TweetID:   row.TweetID,
			JSON:      raw,
			Doc:       doc,
			Keys:      keys,
			Signature: strings.Join(keys, signatureSep),
			JSONChars: n,
			Output:    strings.TrimSpace(row.PromptZiT),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JSONChars < out[j].JSONChars
	})
	return out
}

// Signature is the sorted top-level key list of an object, joined by "|".
func Signature(doc jsontree.Value) string {
	return strings.Join(sortedKeys(doc), signatureSep)
}

func sortedKeys(doc jsontree.Value) []string {
	keys := doc.Keys()
	sort.Strings(keys)
	return keys
}

// SelectDiverse takes, for each family key in order, the first sample that
// has the key and an unused signature, then fills up with the first samples
// of unused signature. Input order is preserved as the preference order.
func SelectDiverse(samples []Sample, families []string, size int) []Sample {
	if size <= 0 {
		return nil
	}

	selected := make([]Sample, 0, size)
	used := make(map[string]struct{})
	take := func(s Sample) {
		selected = append(selected, s)
		used[s.Signature] = struct{}{}
	}

	for _, family := range families {
		if len(selected) >= size {
			break
		}
		for _, s := range samples {
			if _, dup := used[s.Signature]; dup || !s.Doc.Has(family) {
				continue
			}
			take(s)
			break
		}
	}

	for _, s := range samples {
		if len(selected) >= size {
			break
		}
		if _, dup := used[s.Signature]; dup {
			continue
		}
		take(s)
	}
	return selected
}
