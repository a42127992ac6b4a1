package query

import (
	"fmt"
	"strings"
)

// groundingPrompt builds the system instruction that constrains the model
// to the retrieved excerpts and the bold-citation convention the
// reference validator scans for.
func groundingPrompt(pc ProjectContext, evidence []ScoredPassage) string {
	var sb strings.Builder

	sb.WriteString("You are an assistant for the National Construction Code (NCC). Answer questions about building compliance using only the code excerpts provided below.\n\n")

	sb.WriteString("Project context:\n")
	sb.WriteString(fmt.Sprintf("- Building classification: %s\n", pc.BuildingClass))
	sb.WriteString(fmt.Sprintf("- State/territory: %s\n", pc.Jurisdiction))
	sb.WriteString(fmt.Sprintf("- Construction type: %s\n\n", pc.ConstructionType))

	sb.WriteString("Rules:\n")
	sb.WriteString("- Cite the section code in bold (e.g. **H1V3**) for every factual claim you make.\n")
	sb.WriteString("- End your answer with a \"References\" section listing each cited section code with its title.\n")
	sb.WriteString("- If the excerpts do not cover the question, say so and qualify your answer rather than guessing.\n")
	sb.WriteString("- Never cite a section code that does not appear in the excerpts below.\n\n")

	sb.WriteString("NCC excerpts:\n\n")
	for i := range evidence {
		passage := &evidence[i].Passage
		sb.WriteString(fmt.Sprintf("[%s] %s\n", passage.Section, passage.Title))
		sb.WriteString(passage.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
