package hints

import "strings"

const (
	directivesHeader = "INPUT ANALYSIS DIRECTIVES:"
	hintsHeader      = "CONSTRAINT_HINTS:"
)

// Render builds the directive block. The header and both status lines are
// always present; the hint and explicit blocks appear only when they apply.
func Render(b Bundle) string {
	var sb strings.Builder
	sb.WriteString(directivesHeader + "\n")
	sb.WriteString("constraint_hints_found: " + yesNo(b.HasConstraintHints) + "\n")
	sb.WriteString("explicit_or_nsfw_cues_found: " + yesNo(b.HasExplicitSignals) + "\n")

	if b.HasConstraintHints {
		sb.WriteString("- Convert every constraint hint below into positive descriptive guidance (describe what is present instead of what is absent).\n")
		sb.WriteString("- Append exactly one final \"CONSTRAINTS: ...\" line to each of the SFW and NSFW sections; together those lines must cover every hint.\n")
		sb.WriteString(hintsHeader + "\n")
		for _, h := range b.Hints {
			sb.WriteString("- " + h.Text + "\n")
		}
	}

	if b.HasExplicitSignals {
		sb.WriteString("- Explicit cues detected: in the SFW section attenuate nudity and sexual detail while preserving composition, scene, and camera intent.\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
