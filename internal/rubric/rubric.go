// Package rubric scores a generated SFW/NSFW pair against rules derived from
// the source prompt JSON.
package rubric

import (
	"regexp"
	"strings"

	"nano2zit/internal/jsontree"
	"nano2zit/internal/textnorm"
)

type Metric string

const (
	ParseOK                  Metric = "parseOk"
	XMLTags                  Metric = "xmlTags"
	RestrictedOneParagraph   Metric = "restrictedOneParagraph"
	UnrestrictedOneParagraph Metric = "unrestrictedOneParagraph"
	BannedTermsAbsent        Metric = "bannedTermsAbsent"
	NoNegativePromptLiteral  Metric = "noNegativePromptLiteral"
	ConstraintsRuleOK        Metric = "constraintsRuleOk"
	AspectRatioMentioned     Metric = "aspectRatioMentioned"
	CameraRuleOK             Metric = "cameraRuleOk"
)

type weight struct {
	metric Metric
	points int
}

// weights sum to MaxScore.
var weights = [...]weight{
	{ParseOK, 30},
	{XMLTags, 8},
	{RestrictedOneParagraph, 8},
	{UnrestrictedOneParagraph, 8},
	{BannedTermsAbsent, 12},
	{NoNegativePromptLiteral, 8},
	{ConstraintsRuleOK, 12},
	{AspectRatioMentioned, 10},
	{CameraRuleOK, 4},
}

const MaxScore = 100

const (
	LandscapeRatio = "16:9"
	DefaultRatio   = "4:5"
)

// Metrics lists every metric in scoring order.
func Metrics() []Metric {
	out := make([]Metric, len(weights))
	for i, w := range weights {
		out[i] = w.metric
	}
	return out
}

func Weight(m Metric) int {
	for _, w := range weights {
		if w.metric == m {
			return w.points
		}
	}
	return 0
}

var (
	negativeKeys = keySet("negative", "negative_prompt", "forbidden_elements", "exclude_elements")
	cameraKeys   = keySet("camera", "camera_perspective", "lens", "aperture", "focal_length", "iso", "shutter_speed")

	bannedTerms      = regexp.MustCompile(`(?i)\b(?:8k|uhd|masterpiece|best quality|octane render|ray[-\s]?traced)\b`)
	cameraCue        = regexp.MustCompile(`(?i)\b(?:camera|lens|aperture|f/\d|shot|angle|framing|focal)\b`)
	negativeLiteral  = regexp.MustCompile(`(?i)negative\s*prompt`)
	sfwBlock         = regexp.MustCompile(`(?is)<SFW>.*</SFW>`)
	nsfwBlock        = regexp.MustCompile(`(?is)<NSFW>.*</NSFW>`)
	constraintsLine  = regexp.MustCompile(`(?im)^\s*CONSTRAINTS:`)
	landscapeKeyword = regexp.MustCompile(`(?i)landscape`)
)

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// Output is the pair under evaluation, as produced by the section parser.
type Output struct {
	Restricted   string
	Unrestricted string
}

type Record struct {
	Metrics                map[Metric]bool `json:"metrics"`
	Score                  int             `json:"score"`
	ExpectedRatio          string          `json:"expectedRatio"`
	HasNegativeConstraints bool            `json:"hasNegativeConstraints"`
	HasCameraData          bool            `json:"hasCameraData"`
	RestrictedWords        int             `json:"sfwWords"`
	UnrestrictedWords      int             `json:"nsfwWords"`
}

// Expectations are the rules derived from the source document alone.
type Expectations struct {
	AspectRatio            string
	HasNegativeConstraints bool
	HasCameraData          bool
}

func Expect(doc jsontree.Value) Expectations {
	return Expectations{
		AspectRatio:            ExpectedAspectRatio(doc),
		HasNegativeConstraints: jsontree.HasAnyKey(doc, negativeKeys),
		HasCameraData:          jsontree.HasAnyKey(doc, cameraKeys),
	}
}

// ExpectedAspectRatio prefers an explicit aspect_ratio member, then falls back
// to 16:9 for landscape scenes and 4:5 otherwise.
func ExpectedAspectRatio(doc jsontree.Value) string {
	if ratio, ok := jsontree.FindString(doc, "aspect_ratio"); ok {
		return ratio
	}
	if landscapeKeyword.MatchString(doc.Text()) {
		return LandscapeRatio
	}
	return DefaultRatio
}

// Evaluate never fails. A nil out is scored as a failed parse with both
// sections empty.
func Evaluate(doc jsontree.Value, raw string, out *Output) Record {
	exp := Expect(doc)

	var restricted, unrestricted string
	if out != nil {
		restricted, unrestricted = out.Restricted, out.Unrestricted
	}
	joined := restricted + "\n" + unrestricted

	ratio := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(exp.AspectRatio) + `\b`)

	m := map[Metric]bool{
		ParseOK:                  out != nil && restricted != "" && unrestricted != "",
		XMLTags:                  sfwBlock.MatchString(raw) && nsfwBlock.MatchString(raw),
		RestrictedOneParagraph:   textnorm.ParagraphCount(restricted) == 1,
		UnrestrictedOneParagraph: textnorm.ParagraphCount(unrestricted) == 1,
		BannedTermsAbsent:        !bannedTerms.MatchString(joined),
		NoNegativePromptLiteral:  !negativeLiteral.MatchString(joined),
		ConstraintsRuleOK:        constraintsRule(exp.HasNegativeConstraints, restricted, unrestricted),
		AspectRatioMentioned:     ratio.MatchString(joined),
		CameraRuleOK:             !exp.HasCameraData || cameraCue.MatchString(joined),
	}

	return Record{
		Metrics:                m,
		Score:                  Score(m),
		ExpectedRatio:          exp.AspectRatio,
		HasNegativeConstraints: exp.HasNegativeConstraints,
		HasCameraData:          exp.HasCameraData,
		RestrictedWords:        textnorm.WordCount(restricted),
		UnrestrictedWords:      textnorm.WordCount(unrestricted),
	}
}

// Score sums the weights of satisfied metrics.
func Score(m map[Metric]bool) int {
	total := 0
	for _, w := range weights {
		if m[w.metric] {
			total += w.points
		}
	}
	return total
}

func constraintsRule(hasNegative bool, restricted, unrestricted string) bool {
	if hasNegative {
		return endsWithConstraints(restricted) && !constraintsLine.MatchString(unrestricted)
	}
	return !constraintsLine.MatchString(restricted) && !constraintsLine.MatchString(unrestricted)
}

// endsWithConstraints reports whether the last non-blank line starts with
// "CONSTRAINTS:".
func endsWithConstraints(s string) bool {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	return len(last) >= len("CONSTRAINTS:") && strings.EqualFold(last[:len("CONSTRAINTS:")], "CONSTRAINTS:")
}

// HasBannedTerms reports quality-puffery terms the outputs must avoid.
func HasBannedTerms(s string) bool {
	return bannedTerms.MatchString(s)
}

// StripBannedTerms removes every banned term and collapses the leftover
// whitespace.
func StripBannedTerms(s string) string {
	return textnorm.CollapseSpace(bannedTerms.ReplaceAllString(s, ""))
}
