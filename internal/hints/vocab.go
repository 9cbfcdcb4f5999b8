package hints

import (
	"regexp"
	"strings"
)

// DefaultMaxHints caps the number of hints a bundle carries.
const DefaultMaxHints = 24

// shortListMaxChars bounds the comma-separated tag-list heuristic.
const shortListMaxChars = 420

// constraintTokens marks a key as constraint-like when any of its tokens (or
// the whole key) is listed.
var constraintTokens = setOf(
	"negative",
	"constraint", "constraints",
	"forbid", "forbidden",
	"exclude", "excluded",
	"avoid",
	"ban", "banned",
	"prohibit", "prohibited",
	"restrict", "restriction",
	"disallow",
	"blacklist",
	"forbidden_elements",
	"exclude_elements",
	"forbidden_content",
	"crop_restriction",
	"no_filters",
)

// strongKeys are canonical negative-prompt field names; any string under them
// is a hint without further checks.
var strongKeys = setOf(
	"negative",
	"negatives",
	"negative_prompt",
	"negative_prompts",
	"negativeprompt",
	"forbidden_elements",
	"forbidden_content",
	"exclude_elements",
	"excluded_elements",
	"constraints",
	"realism_constraints",
	"crop_restriction",
	"crop_restrictions",
	"no_filters",
)

var (
	cuePattern = regexp.MustCompile(`(?i)\b(?:no\s+\w+|without\s+\w+|avoid|exclude|forbid(?:den)?|ban(?:ned)?|prohibit(?:ed)?|disallow|do\s+not|must\s+not|never|constraints?)\b`)

	explicitPattern = regexp.MustCompile(`(?i)\b(?:nsfw|nude|nudes|nudity|naked|topless|bottomless|explicit|sexual|sexually|sexy|erotic|erotica|porn|porno|pornographic|nipple|nipples|areola|areolae|genital|genitals|genitalia|lingerie|sensual|seductive|fetish|orgasm|intercourse)\b`)

	keyTokenSplit = regexp.MustCompile(`[^a-z0-9]+`)
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

func setOf(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// keyTokens returns the lower-cased key with separators and camelCase
// boundaries folded to '_' followed by its alphanumeric tokens.
func keyTokens(key string) []string {
	lower := strings.ToLower(camelBoundary.ReplaceAllString(strings.TrimSpace(key), "${1}_${2}"))
	if lower == "" {
		return nil
	}
	whole := strings.Trim(keyTokenSplit.ReplaceAllString(lower, "_"), "_")
	out := []string{whole}
	for _, tok := range keyTokenSplit.Split(lower, -1) {
		if tok != "" && tok != whole {
			out = append(out, tok)
		}
	}
	return out
}

func isConstraintKey(key string) bool {
	for _, tok := range keyTokens(key) {
		if _, ok := constraintTokens[tok]; ok {
			return true
		}
		if len(tok) > 2 && strings.HasPrefix(tok, "no") {
			return true
		}
	}
	return false
}

func isStrongKey(key string) bool {
	toks := keyTokens(key)
	if len(toks) == 0 {
		return false
	}
	_, ok := strongKeys[toks[0]]
	return ok
}

func hasCue(s string) bool {
	return cuePattern.MatchString(s)
}

func looksLikeTagList(s string) bool {
	return len(s) <= shortListMaxChars && strings.Count(s, ",") >= 2
}

// HasExplicitCues scans raw document text for sexual or explicit vocabulary.
func HasExplicitCues(raw string) bool {
	return explicitPattern.MatchString(raw)
}
