package bench

import (
	"math"
	"sort"

	"nano2zit/internal/rubric"
)

// Summary aggregates the cases of one (target, profile) bucket. Averages and
// percentages cover ok cases only.
type Summary struct {
	TargetID         string  `json:"targetId"`
	ProfileID        string  `json:"profileId"`
	Total            int     `json:"total"`
	OK               int     `json:"ok"`
	Errors           int     `json:"errors"`
	AvgScore         float64 `json:"avgScore"`
	AvgLatencyMs     float64 `json:"avgLatencyMs"`
	AvgSFWWords      float64 `json:"avgSfwWords"`
	AvgNSFWWords     float64 `json:"avgNsfwWords"`
	ParseSuccessPct  float64 `json:"parseSuccessPct"`
	ConstraintsOKPct float64 `json:"constraintsOkPct"`
	BannedCleanPct   float64 `json:"bannedCleanPct"`
	AspectOKPct      float64 `json:"aspectOkPct"`
}

type bucketKey struct {
	target  string
	profile string
}

// Summarize buckets cases and sorts buckets by average score descending,
// then average latency ascending.
func Summarize(cases []Case) []Summary {
	var order []bucketKey
	buckets := make(map[bucketKey][]Case)
	for _, c := range cases {
		k := bucketKey{target: c.TargetID, profile: c.ProfileID}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], c)
	}

	out := make([]Summary, 0, len(order))
	for _, k := range order {
		out = append(out, summarize(k, buckets[k]))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgScore != out[j].AvgScore {
			return out[i].AvgScore > out[j].AvgScore
		}
		return out[i].AvgLatencyMs < out[j].AvgLatencyMs
	})
	return out
}

func summarize(k bucketKey, cases []Case) Summary {
	s := Summary{TargetID: k.target, ProfileID: k.profile, Total: len(cases)}

	var score, latency, sfwWords, nsfwWords float64
	var parsed, constraints, clean, aspect int
	for _, c := range cases {
		if c.Status != StatusOK || c.Record == nil {
			s.Errors++
			continue
		}
		s.OK++
		score += float64(c.Score)
		latency += float64(c.LatencyMs)
		sfwWords += float64(c.RestrictedWords)
		nsfwWords += float64(c.UnrestrictedWords)
		parsed += count(c.Metrics[rubric.ParseOK])
		constraints += count(c.Metrics[rubric.ConstraintsRuleOK])
		clean += count(c.Metrics[rubric.BannedTermsAbsent])
		aspect += count(c.Metrics[rubric.AspectRatioMentioned])
	}

	s.AvgScore = round2(mean(score, s.OK))
	s.AvgLatencyMs = round2(mean(latency, s.OK))
	s.AvgSFWWords = round2(mean(sfwWords, s.OK))
	s.AvgNSFWWords = round2(mean(nsfwWords, s.OK))
	s.ParseSuccessPct = round2(pct(parsed, s.OK))
	s.ConstraintsOKPct = round2(pct(constraints, s.OK))
	s.BannedCleanPct = round2(pct(clean, s.OK))
	s.AspectOKPct = round2(pct(aspect, s.OK))
	return s
}

func count(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
