// Package hints mines constraint and exclusion phrases out of arbitrary image
// prompt JSON and renders them as generation directives.
package hints

import (
	"nano2zit/internal/jsontree"
	"nano2zit/internal/textnorm"
)

type Source uint8

const (
	// KeyBased hints were found under a constraint-like key.
	KeyBased Source = iota
	// Ambient hints are free text that reads as a constraint wherever it sits.
	Ambient
)

func (s Source) String() string {
	if s == Ambient {
		return "ambient"
	}
	return "key-based"
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Hint struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

type Bundle struct {
	Hints              []Hint `json:"hints"`
	HasConstraintHints bool   `json:"has_constraint_hints"`
	HasExplicitSignals bool   `json:"has_explicit_signals"`
	Directives         string `json:"directives"`
}

func (b Bundle) Texts() []string {
	out := make([]string, 0, len(b.Hints))
	for _, h := range b.Hints {
		out = append(out, h.Text)
	}
	return out
}

type Miner struct {
	// MaxHints defaults to DefaultMaxHints when <= 0.
	MaxHints int
}

// Mine runs the default miner.
func Mine(raw string) Bundle {
	return Miner{}.Mine(raw)
}

// Mine never fails: input that is not valid JSON yields the empty bundle.
func (m Miner) Mine(raw string) Bundle {
	doc, err := jsontree.ParseString(raw)
	if err != nil {
		return Bundle{}
	}

	max := m.MaxHints
	if max <= 0 {
		max = DefaultMaxHints
	}

	var c collector
	c.visit(doc)

	b := Bundle{
		Hints:              dedupe(append(c.keyed, c.ambient...), max),
		HasExplicitSignals: HasExplicitCues(raw),
	}
	b.HasConstraintHints = len(b.Hints) > 0
	b.Directives = Render(b)
	return b
}

type collector struct {
	keyed   []Hint
	ambient []Hint
}

func (c *collector) visit(v jsontree.Value) {
	switch v.Kind() {
	case jsontree.String:
		s, _ := v.Str()
		if hasCue(s) {
			c.ambient = appendHint(c.ambient, s, Ambient)
		}
	case jsontree.Array:
		for _, item := range v.Items() {
			c.visit(item)
		}
	case jsontree.Object:
		for _, f := range v.Fields() {
			if isConstraintKey(f.Key) {
				c.collectKeyed(f.Key, f.Value)
			}
			c.visit(f.Value)
		}
	case jsontree.Null, jsontree.Bool, jsontree.Number:
	}
}

func (c *collector) collectKeyed(key string, v jsontree.Value) {
	if s, ok := v.Str(); ok {
		if isStrongKey(key) || hasCue(s) || looksLikeTagList(s) {
			c.keyed = appendHint(c.keyed, s, KeyBased)
		}
		return
	}
	c.collectLeaves(key, v)
}

// collectLeaves takes every scalar below an explicitly negative key. Non-string
// scalars are labelled with their member name so "no_filters": true still reads.
func (c *collector) collectLeaves(key string, v jsontree.Value) {
	switch v.Kind() {
	case jsontree.Null:
	case jsontree.String:
		s, _ := v.Str()
		c.keyed = appendHint(c.keyed, s, KeyBased)
	case jsontree.Bool, jsontree.Number:
		c.keyed = appendHint(c.keyed, key+": "+v.Text(), KeyBased)
	case jsontree.Array:
		for _, item := range v.Items() {
			c.collectLeaves(key, item)
		}
	case jsontree.Object:
		for _, f := range v.Fields() {
			c.collectLeaves(f.Key, f.Value)
		}
	}
}

func appendHint(list []Hint, text string, src Source) []Hint {
	text = textnorm.CollapseSpace(text)
	if text == "" {
		return list
	}
	return append(list, Hint{Text: text, Source: src})
}

func dedupe(in []Hint, max int) []Hint {
	seen := make(map[string]struct{}, len(in))
	out := make([]Hint, 0, min(len(in), max))
	for _, h := range in {
		if len(out) >= max {
			break
		}
		k := textnorm.Key(h.Text)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, h)
	}
	return out
}
