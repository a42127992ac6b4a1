package ingestion

import (
	"strings"
	"testing"
)

func TestCleanPageText(t *testing.T) {
	page := strings.Join([]string{
		"Some heading",
		"NCC 2022 Volume Two - Building Code of Australia",
		"Page 42",
		"[New for 2022: H1V3 restructured]",
		"Actual clause content here. (1 May 2023)",
	}, "\n")

	got := cleanPageText(page)

	if strings.Contains(got, "Volume Two") || strings.Contains(got, "Page 42") || strings.Contains(got, "New for 2022") {
		t.Fatalf("boilerplate not stripped:\n%s", got)
	}
	if !strings.Contains(got, "Actual clause content here.") {
		t.Fatalf("content lost:\n%s", got)
	}
	if strings.Contains(got, "(1 May 2023)") {
		t.Fatalf("footer date not stripped:\n%s", got)
	}
}

func TestChunkPagesSplitsOnSectionHeadings(t *testing.T) {
	pages := []string{strings.Join([]string{
		"Part H1 Structure",
		"H1V1 Structural stability",
		"Buildings must remain stable under load.",
		"H1V3 External wall insulation",
		"External walls must achieve a total R-value of 2.8.",
		"More detail on insulation values.",
	}, "\n")}

	chunks := chunkPages(pages, 2)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}

	first := chunks[0]
	if first.Section != "H1V1" {
		t.Fatalf("first chunk section = %q", first.Section)
	}
	if first.Part != "Part H1 Structure" {
		t.Fatalf("first chunk part = %q", first.Part)
	}
	if !strings.Contains(first.Content, "remain stable") {
		t.Fatalf("first chunk content = %q", first.Content)
	}

	second := chunks[1]
	if second.Section != "H1V3" {
		t.Fatalf("second chunk section = %q", second.Section)
	}
	if second.Title != "H1V3 External wall insulation" {
		t.Fatalf("second chunk title = %q", second.Title)
	}
	if !strings.Contains(second.Content, "R-value of 2.8") || !strings.Contains(second.Content, "More detail") {
		t.Fatalf("second chunk content = %q", second.Content)
	}
}

func TestChunkPagesAppliesVolumeClasses(t *testing.T) {
	pages := []string{"H1V1 Some clause\ncontent line"}

	vol2 := chunkPages(pages, 2)
	if len(vol2) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(vol2))
	}
	if got := vol2[0].ApplicableClasses; len(got) != 2 || got[0] != 1 || got[1] != 10 {
		t.Fatalf("volume 2 classes = %v", got)
	}

	vol1 := chunkPages(pages, 1)
	if got := vol1[0].ApplicableClasses; len(got) != 8 || got[0] != 2 || got[7] != 9 {
		t.Fatalf("volume 1 classes = %v", got)
	}
}

func TestChunkPagesSkipsStateAppendix(t *testing.T) {
	pages := []string{strings.Join([]string{
		"Part H1 Structure",
		"H1V1 Structural stability",
		"National clause content.",
		"VIC Additions to Volume Two",
		"H9V9 Victorian variation",
		"State-only clause content.",
	}, "\n")}

	chunks := chunkPages(pages, 2)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Section != "H1V1" {
		t.Fatalf("unexpected section %q", chunks[0].Section)
	}
}

func TestChunkPagesRecognizesSpecificationCodes(t *testing.T) {
	pages := []string{strings.Join([]string{
		"S5C2 Fire hazard properties",
		"Materials must comply with AS 1530.",
	}, "\n")}

	chunks := chunkPages(pages, 1)
	if len(chunks) != 1 || chunks[0].Section != "S5C2" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestSplitLongChunkRespectsMaxSize(t *testing.T) {
	para := strings.Repeat("Sentence about insulation requirements. ", 20)
	text := para + "\n\n" + para + "\n\n" + para

	parts := splitLongChunk(text)

	if len(parts) < 2 {
		t.Fatalf("expected multiple parts for %d chars, got %d", len(text), len(parts))
	}
	for i, part := range parts {
		if len(part) > maxChunkChars {
			t.Fatalf("part %d is %d chars, above max", i, len(part))
		}
	}
}

func TestSplitAtSentencesKeepsPunctuation(t *testing.T) {
	// One paragraph well above the max size, so the sentence-level
	// force-split kicks in.
	text := strings.TrimSpace(strings.Repeat("The wall must achieve an R-value of 2.8 in climate zone 6; see the energy efficiency provisions. ", 30))

	parts := splitAtSentences(text)

	if len(parts) < 2 {
		t.Fatalf("expected multiple parts for %d chars, got %d", len(text), len(parts))
	}
	for i, part := range parts {
		if len(part) > maxChunkChars {
			t.Fatalf("part %d is %d chars, above max", i, len(part))
		}
		if last := part[len(part)-1]; last != '.' && last != ';' {
			t.Fatalf("part %d lost its sentence terminator: %q", i, part[len(part)-40:])
		}
	}

	// Sentences in the source are separated by single spaces, so the
	// split must be lossless up to rejoining.
	if rejoined := strings.Join(parts, " "); rejoined != text {
		t.Fatalf("split altered the text:\n%q\nvs\n%q", rejoined[:80], text[:80])
	}
}

func TestSplitLongChunkShortTextUntouched(t *testing.T) {
	parts := splitLongChunk("a short clause")
	if len(parts) != 1 || parts[0] != "a short clause" {
		t.Fatalf("unexpected parts: %v", parts)
	}
}

func TestSplitLongChunkTitlesContinuation(t *testing.T) {
	long := strings.Repeat("Clause sentence text. ", 200)
	pages := []string{"H1V1 A very long clause\n" + long}

	chunks := chunkPages(pages, 2)
	if len(chunks) < 2 {
		t.Fatalf("expected split chunks, got %d", len(chunks))
	}
	if chunks[0].Title != "H1V1 A very long clause" {
		t.Fatalf("first title = %q", chunks[0].Title)
	}
	if !strings.HasSuffix(chunks[1].Title, "(part 2)") {
		t.Fatalf("second title = %q", chunks[1].Title)
	}
	for _, chunk := range chunks {
		if chunk.Section != "H1V1" {
			t.Fatalf("continuation chunk lost its section: %+v", chunk)
		}
	}
}
