// Package ingestion builds the regulatory corpus: it extracts NCC volume
// PDFs into section-level chunks, embeds them in document mode, and
// stores them in the ncc_chunks table the query pipeline reads.
package ingestion

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxChunkChars = 2000
	minChunkChars = 50
)

// volumeClasses maps an NCC volume to the building classes it covers.
var volumeClasses = map[int][]int32{
	1: {2, 3, 4, 5, 6, 7, 8, 9},
	2: {1, 10},
}

var (
	// sectionLineRe matches a clause heading: a section code like H1V3 or
	// D2D24, or a specification code like S5C2, followed by its title.
	sectionLineRe = regexp.MustCompile(`^([A-Z]\d+[A-Z]+\d+|S\d+C\d+)\s+\S`)
	partLineRe    = regexp.MustCompile(`^Part\s+[A-Z]\d+\s+\S`)

	headerLineRe     = regexp.MustCompile(`^NCC 2022 Volume (One|Two) - Building Code of Australia$`)
	pageLineRe       = regexp.MustCompile(`^Page \d+$`)
	footerLineRe     = regexp.MustCompile(`\(1 May 2023\)\s*$`)
	versionAnnoRe    = regexp.MustCompile(`^\[(?:2019|New [Ff]or 2022):.+\]\s*$`)
	blankRunRe       = regexp.MustCompile(`\n[ \t]+\n`)
	paragraphBreakRe = regexp.MustCompile(`\n\s*\n`)
	sentenceBreakRe  = regexp.MustCompile(`(?:[.;])\s+|\n`)
)

var statePrefixes = map[string]bool{
	"ACT": true, "NSW": true, "NT": true, "QLD": true,
	"SA": true, "TAS": true, "VIC": true, "WA": true,
}

// Chunk is one corpus unit ready for embedding and storage.
type Chunk struct {
	Content           string
	Volume            int
	Part              string
	Section           string
	Title             string
	ApplicableClasses []int32
	StateSpecific     bool
}

// cleanPageText strips the running header, page number, footer date and
// version annotations from one page of extracted text.
func cleanPageText(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if headerLineRe.MatchString(trimmed) || pageLineRe.MatchString(trimmed) || versionAnnoRe.MatchString(trimmed) {
			continue
		}
		line = footerLineRe.ReplaceAllString(line, "")
		kept = append(kept, line)
	}
	cleaned := strings.Join(kept, "\n")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// chunkPages splits cleaned page texts into section-level chunks. A chunk
// starts at each clause heading and runs to the next one; part headings
// update the current part label; state appendix parts are skipped so the
// corpus holds only nationally applicable clauses.
func chunkPages(pages []string, volume int) []Chunk {
	classes, ok := volumeClasses[volume]
	if !ok {
		classes = volumeClasses[2]
	}

	var (
		chunks      []Chunk
		currentPart string
		inAppendix  bool
		section     string
		title       string
		content     strings.Builder
	)

	flush := func() {
		text := strings.TrimSpace(content.String())
		content.Reset()
		if section == "" || text == "" {
			section, title = "", ""
			return
		}
		for i, sub := range splitLongChunk(text) {
			chunkTitle := title
			if i > 0 {
				chunkTitle = fmt.Sprintf("%s (part %d)", title, i+1)
			}
			chunks = append(chunks, Chunk{
				Content:           sub,
				Volume:            volume,
				Part:              currentPart,
				Section:           section,
				Title:             chunkTitle,
				ApplicableClasses: classes,
				StateSpecific:     false,
			})
		}
		section, title = "", ""
	}

	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			trimmed := strings.TrimSpace(line)

			if partLineRe.MatchString(trimmed) {
				flush()
				currentPart = trimmed
				inAppendix = false
				continue
			}

			firstWord := strings.SplitN(trimmed, " ", 2)[0]
			if statePrefixes[strings.ToUpper(firstWord)] && looksLikeHeading(trimmed) {
				flush()
				inAppendix = true
				continue
			}

			if inAppendix {
				continue
			}

			if m := sectionLineRe.FindStringSubmatch(trimmed); m != nil {
				flush()
				section = m[1]
				title = trimmed
				continue
			}

			if section != "" {
				content.WriteString(line)
				content.WriteString("\n")
			}
		}
	}
	flush()

	return chunks
}

// looksLikeHeading guards the state-prefix check against body lines that
// merely mention a state: appendix headings are short title-case lines.
func looksLikeHeading(line string) bool {
	return len(line) > 0 && len(line) < 80 && !strings.HasSuffix(line, ".")
}

func splitLongChunk(text string) []string {
	if len(text) <= maxChunkChars {
		return []string{text}
	}

	paragraphs := paragraphBreakRe.Split(text, -1)
	result := make([]string, 0)
	current := ""

	for _, para := range paragraphs {
		if current != "" && len(current)+len(para)+2 > maxChunkChars {
			result = append(result, strings.TrimSpace(current))
			current = para
		} else if current == "" {
			current = para
		} else {
			current = current + "\n\n" + para
		}
	}
	if strings.TrimSpace(current) != "" {
		result = append(result, strings.TrimSpace(current))
	}

	// Merge heading stubs into a neighbor.
	merged := make([]string, 0, len(result))
	for _, chunk := range result {
		if len(merged) > 0 && (len(merged[len(merged)-1]) < minChunkChars || len(chunk) < minChunkChars) {
			merged[len(merged)-1] = merged[len(merged)-1] + "\n\n" + chunk
		} else {
			merged = append(merged, chunk)
		}
	}

	final := make([]string, 0, len(merged))
	for _, chunk := range merged {
		if len(chunk) <= maxChunkChars {
			final = append(final, chunk)
		} else {
			final = append(final, splitAtSentences(chunk)...)
		}
	}
	return final
}

// splitAtSentences force-splits an oversized paragraph at sentence
// boundaries. The terminator stays with its sentence so the stored text
// keeps the source punctuation.
func splitAtSentences(text string) []string {
	locs := sentenceBreakRe.FindAllStringIndex(text, -1)
	sentences := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		end := loc[0]
		if c := text[loc[0]]; c == '.' || c == ';' {
			end = loc[0] + 1
		}
		sentences = append(sentences, text[start:end])
		start = loc[1]
	}
	sentences = append(sentences, text[start:])

	result := make([]string, 0)
	current := ""
	for _, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		if current != "" && len(current)+len(sent)+1 > maxChunkChars {
			result = append(result, current)
			current = sent
		} else if current == "" {
			current = sent
		} else {
			current = current + " " + sent
		}
	}
	if current != "" {
		result = append(result, current)
	}
	if len(result) == 0 {
		return []string{text}
	}
	return result
}
