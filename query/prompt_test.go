package query

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGroundingPromptContainsContextAndExcerpts(t *testing.T) {
	pc := ProjectContext{BuildingClass: "1a", Jurisdiction: "VIC", ConstructionType: "C"}
	evidence := []ScoredPassage{
		{Passage: Passage{ID: uuid.New(), Section: "H1V3", Title: "External wall insulation", Content: "Walls must achieve R2.8."}, Similarity: 0.9},
		{Passage: Passage{ID: uuid.New(), Section: "S5C2", Title: "Fire hazard properties", Content: "Materials must comply with AS 1530."}, Similarity: 0.7},
	}

	prompt := groundingPrompt(pc, evidence)

	for _, want := range []string{
		"1a", "VIC", "C",
		"[H1V3] External wall insulation",
		"Walls must achieve R2.8.",
		"[S5C2] Fire hazard properties",
		"Materials must comply with AS 1530.",
		"bold",
		"References",
		"Never cite a section code",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGroundingPromptIsDeterministic(t *testing.T) {
	pc := ProjectContext{BuildingClass: "5", Jurisdiction: "NSW", ConstructionType: "A"}
	evidence := []ScoredPassage{
		{Passage: Passage{Section: "C2D2", Title: "Fire resistance", Content: "content"}, Similarity: 0.6},
	}

	if groundingPrompt(pc, evidence) != groundingPrompt(pc, evidence) {
		t.Fatal("expected identical prompts for identical input")
	}
}
