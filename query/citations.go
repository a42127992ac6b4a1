package query

import "regexp"

// citationPattern matches section-code tokens wrapped in the bold markers
// the grounding prompt asks for: clause codes like H1V3 or D2D24 and
// specification codes like S5C2.
var citationPattern = regexp.MustCompile(`\*\*([A-Z]\d+[A-Z]+\d+|S\d+C\d+)\*\*`)

// extractCitations returns the distinct section codes bold-cited in the
// generated text, in order of first appearance.
func extractCitations(answer string) []string {
	matches := citationPattern.FindAllStringSubmatch(answer, -1)

	seen := make(map[string]struct{}, len(matches))
	codes := make([]string, 0, len(matches))
	for _, match := range matches {
		code := match[1]
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// validateReferences keeps only citations that name a passage retrieved
// for this request. Codes the model invented are silently dropped: a
// citation is trustworthy only if it names evidence the system supplied.
func validateReferences(answer string, evidence []ScoredPassage) []Reference {
	titles := make(map[string]string, len(evidence))
	for i := range evidence {
		passage := &evidence[i].Passage
		if passage.Section == "" {
			continue
		}
		if _, ok := titles[passage.Section]; !ok {
			titles[passage.Section] = passage.Title
		}
	}

	references := make([]Reference, 0)
	for _, code := range extractCitations(answer) {
		title, ok := titles[code]
		if !ok {
			continue
		}
		references = append(references, Reference{Section: code, Title: title})
	}
	return references
}
