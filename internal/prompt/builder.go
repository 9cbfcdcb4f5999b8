package prompt

import (
	"fmt"
	"strings"
)

const userPromptLead = "Convert this JSON into SFW and NSFW ZiT prompts."

// SystemPrompt renders the converter instructions for a profile id. Unknown
// ids use the default profile.
func (c *Catalog) SystemPrompt(id string) string {
	p := c.Resolve(id)

	var b strings.Builder
	b.Grow(4096)

	b.WriteString("You are nano2zit, a converter from Nano Banana Pro JSON prompts into Z-Image Turbo freeform prompts (Qwen3-4B text encoder).\n\n")

	writeSection(&b, "GOAL", []string{
		"Convert one input JSON into two freeform English prompts: SFW and NSFW.",
	})

	writeSection(&b, "OUTPUT RULES", []string{
		"Output plain English prose only inside XML tags.",
		"No markdown, no bullet points, no JSON.",
		"Each version must be exactly one paragraph.",
		fmt.Sprintf("Target length: SFW %d-%d words, NSFW %d-%d words.", p.SFWWords[0], p.SFWWords[1], p.NSFWWords[0], p.NSFWWords[1]),
		"Use natural language, never comma-separated tag stacks.",
		`Never include quality tags like "8K", "UHD", "masterpiece", "best quality".`,
		`Do not mention "negative prompt".`,
	})

	writeSection(&b, "CONTENT MAPPING RULES", []string{
		"Preserve all concrete details from input: subject, pose, body descriptors, wardrobe, environment, lighting, color tone, mood, realism style, composition, and camera details.",
		"Handle different schemas robustly (nested or flat fields such as subject/environment/camera, image_generation_prompt, image_description, prompt + metadata).",
		"Keep exact camera granularity only when provided (model, lens, settings, framing, angle).",
		"Do not invent camera details missing from input.",
		"Do not include brand names/logos unless explicitly required by input.",
		`If reference-image instructions appear (e.g., "use attached"), remove them and describe identity generically.`,
		"Aspect ratio: use JSON aspect ratio if present; else if landscape use 16:9; else use 4:5.",
		"Reformulate negative/exclusion intent into positive descriptive wording.",
		"Ordering preference: subject and identity first, then wardrobe/pose, then setting and background, then lighting and mood, then camera/composition, then optional constraints.",
	})

	writeSection(&b, "CONSTRAINTS LINE", []string{
		"If input has negative/negative_prompt/forbidden_elements/exclude_elements, append exactly one extra final line to SFW only:\n  CONSTRAINTS: ...",
		"Keep only technical/compositional restrictions in CONSTRAINTS.",
		"Remove sensual/explicit restrictions (nudity, nipples, areola, genitals, pornographic, explicit) from CONSTRAINTS.",
		"NSFW must never include a CONSTRAINTS line.",
	})

	writeSection(&b, "SFW vs NSFW", []string{
		"SFW: faithful conversion of clothing, pose, framing, and tone.",
		"NSFW: same person, same scene, same lighting, same camera perspective; only escalate exposure/intimacy.",
		"NSFW can reduce/remove clothing and open pose while keeping consensual, confident mood.",
		"Never introduce coercion, violence, humiliation, minors, age ambiguity, or non-consensual framing.",
	})

	b.WriteString("RESPONSE FORMAT (STRICT)\n")
	b.WriteString("<SFW>\nOne paragraph SFW prompt here.\n</SFW>\n")
	b.WriteString("<NSFW>\nOne paragraph NSFW prompt here.\n</NSFW>\n")
	b.WriteString("No text outside these tags.\n")

	if examples := c.Examples(p.FewshotCount); len(examples) > 0 {
		b.WriteString("\nFEW-SHOT STYLE PRIMERS (SFW only):\n")
		b.WriteString("Use these examples to learn schema-to-prose mapping style and detail density.\n")
		for i, ex := range examples {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("Example %d\n", i+1))
			b.WriteString("INPUT JSON EXCERPT:\n" + strings.TrimSpace(ex.InputExcerpt) + "\n")
			b.WriteString("SFW STYLE TARGET:\n" + strings.TrimSpace(ex.OutputExcerpt) + "\n")
		}
	}

	return strings.TrimSpace(b.String())
}

// UserPrompt wraps the input document, placing mined directives (when any)
// between the instruction line and the JSON.
func UserPrompt(inputJSON, directives string) string {
	var b strings.Builder
	b.WriteString(userPromptLead + "\n\n")
	if d := strings.TrimSpace(directives); d != "" {
		b.WriteString(d + "\n\n")
	}
	b.WriteString("INPUT JSON:\n")
	b.WriteString(inputJSON)
	return b.String()
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")
}
