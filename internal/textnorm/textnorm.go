package textnorm

import (
	"regexp"
	"strings"
)

var (
	spaceRun       = regexp.MustCompile(`\s+`)
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
)

// CollapseSpace replaces every whitespace run with one space and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Key is the identity form used for case-insensitive de-duplication.
func Key(s string) string {
	return strings.ToLower(CollapseSpace(s))
}

// Clean normalizes CRLF line endings and trims outer whitespace. Inner line
// structure is left alone.
func Clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Paragraphs splits on blank lines and drops empty blocks.
func Paragraphs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, block := range paragraphBreak.Split(s, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		out = append(out, block)
	}
	return out
}

func ParagraphCount(s string) int {
	return len(Paragraphs(s))
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// TruncateWords keeps the first max words of the whitespace-collapsed text and
// appends suffix when anything was cut.
func TruncateWords(s string, max int, suffix string) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.TrimRight(strings.Join(words[:max], " "), " ,.;:") + suffix
}
