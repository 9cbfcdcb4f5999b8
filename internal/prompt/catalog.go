package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

//go:embed fewshot.yaml
var fewshotYAML []byte

type Profile struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	FewshotCount int    `yaml:"fewshot_count" json:"fewshotCount"`
	SFWWords     [2]int `yaml:"sfw_words" json:"-"`
	NSFWWords    [2]int `yaml:"nsfw_words" json:"-"`
}

type Example struct {
	SourcePromptID string   `yaml:"source_prompt_id"`
	SourceTweetID  string   `yaml:"source_tweet_id,omitempty"`
	Signature      []string `yaml:"signature"`
	InputExcerpt   string   `yaml:"input_json_excerpt"`
	OutputExcerpt  string   `yaml:"sfw_output_excerpt"`
}

// FewshotFile is the on-disk layout of the few-shot primer set.
type FewshotFile struct {
	Source           string    `yaml:"source"`
	TotalRows        int       `yaml:"total_rows"`
	SelectedExamples int       `yaml:"selected_examples"`
	SelectionNote    string    `yaml:"selection_note"`
	Examples         []Example `yaml:"examples"`
}

type Catalog struct {
	defaultID string
	profiles  []Profile
	examples  []Example
}

type profileFile struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

// Default is the catalog compiled into the binary.
var Default = mustLoad(profilesYAML, fewshotYAML)

func mustLoad(profiles, fewshot []byte) *Catalog {
	c, err := Load(profiles, fewshot)
	if err != nil {
		panic(err)
	}
	return c
}

func Load(profiles, fewshot []byte) (*Catalog, error) {
	var pf profileFile
	if err := yaml.Unmarshal(profiles, &pf); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	if len(pf.Profiles) == 0 {
		return nil, fmt.Errorf("decode profiles: no profiles defined")
	}

	var ff FewshotFile
	if len(fewshot) > 0 {
		if err := yaml.Unmarshal(fewshot, &ff); err != nil {
			return nil, fmt.Errorf("decode few-shot examples: %w", err)
		}
	}

	c := &Catalog{defaultID: strings.TrimSpace(pf.Default), examples: ff.Examples}
	seen := make(map[string]struct{}, len(pf.Profiles))
	for _, p := range pf.Profiles {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("decode profiles: profile without id")
		}
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("decode profiles: duplicate profile %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		c.profiles = append(c.profiles, p)
	}
	if _, ok := c.Lookup(c.defaultID); !ok {
		c.defaultID = c.profiles[0].ID
	}
	return c, nil
}

func (c *Catalog) DefaultID() string {
	return c.defaultID
}

func (c *Catalog) Lookup(id string) (Profile, bool) {
	for _, p := range c.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// Resolve maps unknown or empty ids to the default profile.
func (c *Catalog) Resolve(id string) Profile {
	if p, ok := c.Lookup(strings.TrimSpace(id)); ok {
		return p
	}
	p, _ := c.Lookup(c.defaultID)
	return p
}

func (c *Catalog) List() []Profile {
	return append([]Profile(nil), c.profiles...)
}

func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p.ID)
	}
	return out
}

func (c *Catalog) Examples(max int) []Example {
	if max > len(c.examples) {
		max = len(c.examples)
	}
	if max <= 0 {
		return nil
	}
	return c.examples[:max]
}

func MarshalFewshot(f FewshotFile) ([]byte, error) {
	return yaml.Marshal(f)
}
