package continuity

import (
	"fmt"
	"strings"

	"github.com/shotflow/api/internal/model"
)

const styleSuffix = "Style: Consistent with previous shots."

const summaryHintLimit = 200

// PromptInput is everything the composer needs. Composition is pure:
// identical inputs always yield byte-identical prompts.
type PromptInput struct {
	BasePrompt string
	State      *model.ContinuityState
	Characters []model.Character
}

// ComposePrompt merges the base shot description with continuity
// instructions in a fixed order: base, style suffix, narrative facts,
// cross-shot continuity lines.
func ComposePrompt(in PromptInput) string {
	lines := []string{strings.TrimSpace(in.BasePrompt)}

	if in.State == nil {
		return strings.Join(lines, "\n")
	}

	lines = append(lines, styleSuffix)

	if len(in.State.NarrativeContext) > 0 {
		lines = append(lines, "NARRATIVE FACTS TO ENFORCE:")
		for _, fact := range in.State.NarrativeContext {
			lines = append(lines, fmt.Sprintf("%s: %s.", titleCaseKey(fact.Key), fact.Value))
		}
	}

	// Cross-shot hints only apply once a previous shot exists.
	if in.State.ShotIndex > 0 {
		lines = append(lines, "This shot must visually and stylistically CONTINUE from the previous shot.")

		if in.State.LastCamera != "" {
			lines = append(lines, fmt.Sprintf("Keep camera language consistent with previous shot (%s).", in.State.LastCamera))
		} else {
			lines = append(lines, "Maintain similar framing and composition as the previous shot.")
		}

		if in.State.LastShotSummary != "" {
			lines = append(lines, fmt.Sprintf("Previous shot summary: %s", truncate(in.State.LastShotSummary, summaryHintLimit)))
		}

		if len(in.State.GlobalPalette) > 0 {
			lines = append(lines, fmt.Sprintf("Global color palette to preserve across shots: %s.", strings.Join(in.State.GlobalPalette, ", ")))
		}
	}

	return strings.Join(lines, "\n")
}

// SummarizeCharacters renders the resolved character set for injection into
// the base description: name, role, description and dominant colors when
// known, one entry per character joined by " | ".
func SummarizeCharacters(characters []model.Character) string {
	if len(characters) == 0 {
		return "No specific characters defined."
	}

	parts := make([]string, 0, len(characters))
	for _, c := range characters {
		bits := []string{c.Name}
		if c.Role != "" {
			bits = append(bits, c.Role)
		}
		if c.Description != "" {
			bits = append(bits, c.Description)
		}
		line := strings.Join(bits, ", ")
		if len(c.DominantColors) > 0 {
			line += fmt.Sprintf(", dominant colors = %s", strings.Join(c.DominantColors, " "))
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " | ")
}

// titleCaseKey turns a fact key like "item_held" into "Item Held".
func titleCaseKey(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
