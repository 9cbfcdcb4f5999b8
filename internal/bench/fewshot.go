package bench

import (
	"fmt"

	"nano2zit/internal/jsontree"
	"nano2zit/internal/prompt"
	"nano2zit/internal/rubric"
	"nano2zit/internal/textnorm"
)

const (
	DefaultFewshotExamples = 4

	compactMaxDepth     = 4
	compactMaxKeys      = 10
	compactMaxItems     = 2
	compactStringWords  = 22
	compactLeafWords    = 16
	compactLeafItemWord = 12
	compactLeafKeys     = 2
	excerptMaxWords     = 120

	fewshotNote = "Shortest structurally unique rows, filtered to avoid quality-tag style leakage."
)

// FewshotFamilies are forced into the primer set before filling by length.
var FewshotFamilies = []string{
	"image_generation_prompt",
	"image_description",
	"prompt",
}

// SelectFewshot builds the primer file from rows that have both a JSON
// object and a reference output free of banned terms.
func SelectFewshot(source string, rows []Row, max int) (prompt.FewshotFile, error) {
	if max <= 0 {
		max = DefaultFewshotExamples
	}

	var withOutput []Row
	for _, row := range rows {
		if textnorm.Clean(row.PromptZiT) != "" {
			withOutput = append(withOutput, row)
		}
	}
	all := Eligible(withOutput, 0)

	var clean []Sample
	for _, s := range all {
		if !rubric.HasBannedTerms(textnorm.CollapseSpace(s.Output)) {
			clean = append(clean, s)
		}
	}

	selected := SelectDiverse(clean, FewshotFamilies, max)
	examples := make([]prompt.Example, 0, len(selected))
	for _, s := range selected {
		ex, err := toExample(s)
		if err != nil {
			return prompt.FewshotFile{}, fmt.Errorf("prompt %s: %w", s.PromptID, err)
		}
		examples = append(examples, ex)
	}

	return prompt.FewshotFile{
		Source:           source,
		TotalRows:        len(all),
		SelectedExamples: len(examples),
		SelectionNote:    fewshotNote,
		Examples:         examples,
	}, nil
}

func toExample(s Sample) (prompt.Example, error) {
	excerpt, err := CompactJSON(s.Doc).MarshalJSON()
	if err != nil {
		return prompt.Example{}, fmt.Errorf("compact json: %w", err)
	}
	return prompt.Example{
		SourcePromptID: s.PromptID,
		SourceTweetID:  s.TweetID,
		Signature:      append([]string(nil), s.Keys...),
		InputExcerpt:   string(excerpt),
		OutputExcerpt:  SanitizeOutput(s.Output),
	}, nil
}

// CompactJSON trims a document for use as a prompt excerpt: at most 10 keys
// per object and 2 items per array, strings cut to 22 words, and nodes at
// depth 4 reduced to short placeholders. Key order is kept.
func CompactJSON(v jsontree.Value) jsontree.Value {
	return compact(v, 0)
}

func compact(v jsontree.Value, depth int) jsontree.Value {
	if depth >= compactMaxDepth {
		return compactLeaf(v)
	}

	switch v.Kind() {
	case jsontree.String:
		s, _ := v.Str()
		return jsontree.NewString(textnorm.TruncateWords(s, compactStringWords, "..."))
	case jsontree.Array:
		items := v.Items()
		items = items[:min(len(items), compactMaxItems)]
		out := make([]jsontree.Value, 0, len(items))
		for _, item := range items {
			out = append(out, compact(item, depth+1))
		}
		return jsontree.NewArray(out...)
	case jsontree.Object:
		fields := v.Fields()
		fields = fields[:min(len(fields), compactMaxKeys)]
		out := make([]jsontree.Field, 0, len(fields))
		for _, f := range fields {
			out = append(out, jsontree.Field{Key: f.Key, Value: compact(f.Value, depth+1)})
		}
		return jsontree.NewObject(out...)
	default:
		return v
	}
}

func compactLeaf(v jsontree.Value) jsontree.Value {
	switch v.Kind() {
	case jsontree.String:
		s, _ := v.Str()
		return jsontree.NewString(textnorm.TruncateWords(s, compactLeafWords, "..."))
	case jsontree.Array:
		items := v.Items()
		if len(items) == 0 {
			return jsontree.NewArray()
		}
		return jsontree.NewArray(jsontree.NewString(textnorm.TruncateWords(items[0].Text(), compactLeafItemWord, "...")))
	case jsontree.Object:
		fields := v.Fields()
		fields = fields[:min(len(fields), compactLeafKeys)]
		out := make([]jsontree.Field, 0, len(fields))
		for _, f := range fields {
			out = append(out, jsontree.Field{Key: f.Key, Value: jsontree.NewString("...")})
		}
		return jsontree.NewObject(out...)
	default:
		return v
	}
}

// SanitizeOutput strips banned terms from a reference output and keeps at
// most 120 words, closing a cut excerpt with a period.
func SanitizeOutput(s string) string {
	return textnorm.TruncateWords(rubric.StripBannedTerms(textnorm.CollapseSpace(s)), excerptMaxWords, ".")
}
