package continuity

import (
	"strings"
	"testing"

	"github.com/shotflow/api/internal/model"
)

func TestComposePrompt_NoState(t *testing.T) {
	got := ComposePrompt(PromptInput{BasePrompt: "A man walks into a bar"})
	if got != "A man walks into a bar" {
		t.Errorf("expected bare base prompt, got %q", got)
	}
}

func TestComposePrompt_StyleSuffix(t *testing.T) {
	state := &model.ContinuityState{ProjectID: "p1"}
	got := ComposePrompt(PromptInput{BasePrompt: "base", State: state})

	if !strings.Contains(got, "Style: Consistent with previous shots.") {
		t.Errorf("expected style suffix, got %q", got)
	}
	if !strings.HasPrefix(got, "base\n") {
		t.Errorf("expected base description first, got %q", got)
	}
}

func TestComposePrompt_NarrativeFacts(t *testing.T) {
	state := &model.ContinuityState{}
	state.NarrativeContext.Set("item_held", "glowing sword")
	state.NarrativeContext.Set("location", "rainy alley")

	got := ComposePrompt(PromptInput{BasePrompt: "base", State: state})

	if !strings.Contains(got, "NARRATIVE FACTS TO ENFORCE:") {
		t.Fatalf("expected facts block, got %q", got)
	}
	if !strings.Contains(got, "Item Held: glowing sword.") {
		t.Errorf("expected title-cased fact line, got %q", got)
	}
	// Facts render in insertion order.
	if strings.Index(got, "Item Held") > strings.Index(got, "Location") {
		t.Errorf("expected item_held before location, got %q", got)
	}
}

func TestComposePrompt_FirstShotHasNoContinuityLines(t *testing.T) {
	state := &model.ContinuityState{ShotIndex: 0}
	got := ComposePrompt(PromptInput{BasePrompt: "base", State: state})

	if strings.Contains(got, "CONTINUE from the previous shot") {
		t.Errorf("first shot should not carry cross-shot lines, got %q", got)
	}
}

func TestComposePrompt_CrossShotLines(t *testing.T) {
	state := &model.ContinuityState{
		ShotIndex:       2,
		LastCamera:      "close-up",
		LastShotSummary: "Joe orders a drink at the bar",
		GlobalPalette:   []string{"#223344", "#aabbcc"},
	}

	got := ComposePrompt(PromptInput{BasePrompt: "base", State: state})

	for _, want := range []string{
		"This shot must visually and stylistically CONTINUE from the previous shot.",
		"Keep camera language consistent with previous shot (close-up).",
		"Previous shot summary: Joe orders a drink at the bar",
		"Global color palette to preserve across shots: #223344, #aabbcc.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in prompt, got %q", want, got)
		}
	}
}

func TestComposePrompt_GenericFramingLineWithoutCamera(t *testing.T) {
	state := &model.ContinuityState{ShotIndex: 1}
	got := ComposePrompt(PromptInput{BasePrompt: "base", State: state})

	if !strings.Contains(got, "Maintain similar framing and composition as the previous shot.") {
		t.Errorf("expected generic framing line, got %q", got)
	}
}

func TestComposePrompt_SummaryTruncated(t *testing.T) {
	state := &model.ContinuityState{
		ShotIndex:       1,
		LastShotSummary: strings.Repeat("x", 500),
	}
	got := ComposePrompt(PromptInput{BasePrompt: "base", State: state})

	if strings.Contains(got, strings.Repeat("x", 201)) {
		t.Error("expected previous shot summary truncated to 200 characters")
	}
	if !strings.Contains(got, strings.Repeat("x", 200)) {
		t.Error("expected 200-character summary present")
	}
}

func TestComposePrompt_Deterministic(t *testing.T) {
	state := &model.ContinuityState{
		ShotIndex:       3,
		LastCamera:      "wide",
		LastShotSummary: "summary",
		GlobalPalette:   []string{"#000000"},
	}
	state.NarrativeContext.Set("location", "cave")
	in := PromptInput{BasePrompt: "base", State: state}

	first := ComposePrompt(in)
	for i := 0; i < 10; i++ {
		if got := ComposePrompt(in); got != first {
			t.Fatalf("composition not deterministic: %q vs %q", first, got)
		}
	}
}

func TestSummarizeCharacters(t *testing.T) {
	if got := SummarizeCharacters(nil); got != "No specific characters defined." {
		t.Errorf("unexpected empty summary: %q", got)
	}

	chars := []model.Character{
		{Name: "Joe", Role: "bartender", Description: "grizzled", DominantColors: []string{"#112233"}},
		{Name: "Sarah"},
	}
	got := SummarizeCharacters(chars)
	if !strings.Contains(got, "Joe, bartender, grizzled, dominant colors = #112233") {
		t.Errorf("unexpected summary: %q", got)
	}
	if !strings.Contains(got, " | Sarah") {
		t.Errorf("expected pipe-joined entries, got %q", got)
	}
}

func TestTitleCaseKey(t *testing.T) {
	cases := map[string]string{
		"item_held":      "Item Held",
		"location":       "Location",
		"outfit_color_2": "Outfit Color 2",
	}
	for in, want := range cases {
		if got := titleCaseKey(in); got != want {
			t.Errorf("titleCaseKey(%q) = %q, want %q", in, got, want)
		}
	}
}
