package parsers

import "strings"

// civicVocabulary is a small sample of words that show up in almost every
// real agenda packet. A sample devoid of any of these after a successful
// extraction usually means pymupdf/ledongthuc recovered glyphs from a
// scanned image rather than real text.
var civicVocabulary = []string{
	"council", "city", "meeting", "agenda", "resolution", "ordinance",
	"public", "staff", "report", "motion", "county", "board", "commission",
}

// TextQuality judges whether extracted PDF text is usable for
// summarization, per spec.md §4.6's Tier-1 heuristics: a minimum length,
// a minimum letter-to-total-character ratio, not predominantly
// single-word lines (a symptom of broken column/table extraction), and
// at least a little recognizable civic vocabulary.
func TextQuality(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 50 {
		return false
	}
	if letterRatio(trimmed) < 0.3 {
		return false
	}
	if fragmentedLines(trimmed) {
		return false
	}
	return hasCivicVocabulary(trimmed)
}

func letterRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	letters := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	return float64(letters) / float64(len([]rune(text)))
}

// fragmentedLines reports whether more than half of non-blank lines are a
// single word — the signature of a PDF whose text layer is column debris
// rather than prose.
func fragmentedLines(text string) bool {
	lines := strings.Split(text, "\n")
	var nonBlank, singleWord int
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nonBlank++
		if len(strings.Fields(line)) == 1 {
			singleWord++
		}
	}
	if nonBlank == 0 {
		return true
	}
	return float64(singleWord)/float64(nonBlank) > 0.5
}

func hasCivicVocabulary(text string) bool {
	lower := strings.ToLower(text)
	longWords := 0
	for _, w := range strings.Fields(lower) {
		if len(w) >= 7 {
			longWords++
		}
	}
	if longWords == 0 {
		return false
	}
	for _, word := range civicVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
