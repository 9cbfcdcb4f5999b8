// Package sections extracts the SFW and NSFW prompt sections from free-form
// model output.
package sections

import (
	"encoding/json"
	"regexp"
	"strings"

	"nano2zit/internal/textnorm"
)

type Strategy string

const (
	Tagged   Strategy = "tagged"
	Labeled  Strategy = "labeled"
	Embedded Strategy = "embedded"
)

// Result holds both cleaned sections. Either field may be empty, but a Result
// is only returned when its strategy matched in full.
type Result struct {
	SFW      string   `json:"sfw"`
	NSFW     string   `json:"nsfw"`
	Strategy Strategy `json:"strategy"`
}

// Complete reports whether both sections carry text.
func (r Result) Complete() bool {
	return r.SFW != "" && r.NSFW != ""
}

var (
	sfwTag  = regexp.MustCompile(`(?is)<SFW>\s*(.*?)\s*</SFW>`)
	nsfwTag = regexp.MustCompile(`(?is)<NSFW>\s*(.*?)\s*</NSFW>`)

	labeled    = regexp.MustCompile(`(?is)(?:^|\n)[ \t]*SFW[ \t]*:\s*(.*?)\n[ \t]*NSFW[ \t]*:\s*(.*)$`)
	sfwLabel   = regexp.MustCompile(`(?im)^[ \t]*SFW[ \t]*:`)
	nsfwLabel  = regexp.MustCompile(`(?im)^[ \t]*NSFW[ \t]*:`)
	strategies = []func(string) (Result, bool){fromTags, fromLabels, fromObject}
)

// Parse tries the tagged, labeled and embedded-object conventions in that
// order. The boolean is false when none of them match.
func Parse(raw string) (Result, bool) {
	src := textnorm.Clean(raw)
	for _, try := range strategies {
		if res, ok := try(src); ok {
			return res, true
		}
	}
	return Result{}, false
}

func fromTags(src string) (Result, bool) {
	sfw := sfwTag.FindStringSubmatch(src)
	nsfw := nsfwTag.FindStringSubmatch(src)
	if sfw == nil || nsfw == nil {
		return Result{}, false
	}
	return Result{
		SFW:      textnorm.Clean(sfw[1]),
		NSFW:     textnorm.Clean(nsfw[1]),
		Strategy: Tagged,
	}, true
}

func fromLabels(src string) (Result, bool) {
	if len(sfwLabel.FindAllStringIndex(src, 2)) != 1 || len(nsfwLabel.FindAllStringIndex(src, 2)) != 1 {
		return Result{}, false
	}
	m := labeled.FindStringSubmatch(src)
	if m == nil {
		return Result{}, false
	}
	return Result{
		SFW:      textnorm.Clean(m[1]),
		NSFW:     textnorm.Clean(m[2]),
		Strategy: Labeled,
	}, true
}

func fromObject(src string) (Result, bool) {
	span, ok := firstObjectSpan(src)
	if !ok {
		return Result{}, false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return Result{}, false
	}

	sfw, ok := stringField(payload, "sfw")
	if !ok {
		return Result{}, false
	}
	nsfw, ok := stringField(payload, "nsfw")
	if !ok {
		return Result{}, false
	}
	return Result{
		SFW:      textnorm.Clean(sfw),
		NSFW:     textnorm.Clean(nsfw),
		Strategy: Embedded,
	}, true
}

func stringField(payload map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// firstObjectSpan returns the text from the first '{' to its matching '}',
// ignoring braces inside JSON strings.
func firstObjectSpan(src string) (string, bool) {
	start := strings.IndexByte(src, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(src); i++ {
		c := src[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[start : i+1], true
			}
		}
	}
	return "", false
}
