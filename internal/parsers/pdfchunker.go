package parsers

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	formFeedPattern  = regexp.MustCompile(`\f+`)
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
	pageMarkerPattern = regexp.MustCompile(`--- PAGE (\d+) ---`)

	reportHeaderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\n\s*REPORT TO THE`),
		regexp.MustCompile(`(?i)\n\s*Item \d+\s*\n\s*Staff Report`),
		regexp.MustCompile(`(?i)\n\s*STAFF REPORT\s*\n`),
		regexp.MustCompile(`(?i)\n\s*ACTION ITEM\s*\n`),
	}

	coverNumberedMultiline = regexp.MustCompile(`\n\s*(\d+)\.\s*\n\s*([A-Z][^\n]{10,200})`)
	coverNumberedInline    = regexp.MustCompile(`\n\s*(\d+)\.\s+([A-Z][^\n]{10,200})`)
	coverDurationSuffix    = regexp.MustCompile(`(?i)[–—-]\s*(\d+)\s*minutes?`)

	junkCoverTitles = map[string]bool{
		"MINUTES": true, "AGENDA": true, "MEETING": true, "REPORTS": true,
	}
	junkPatternTitles = map[string]bool{
		"MINUTES": true, "PARKS": true, "RECREATION": true, "COMMISSION": true,
		"MEETING": true, "REGULAR": true,
	}

	footerItemTemplate       = `(?i)Item\s+%s[\s:]`
	staffReportNearItemTempl = `(?is)(?:Staff Report|STAFF REPORT).{0,200}?(?:Item\s+%s|Report\s+#.*%s)`

	agendaStartMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)BUSINESS\s+ITEMS?`),
		regexp.MustCompile(`(?i)ACTION\s+ITEMS?`),
		regexp.MustCompile(`(?i)CONSENT\s+(CALENDAR|AGENDA)`),
		regexp.MustCompile(`(?i)REGULAR\s+AGENDA`),
		regexp.MustCompile(`(?i)DISCUSSION\s+ITEMS?`),
		regexp.MustCompile(`(?i)PUBLIC\s+HEARINGS?`),
		regexp.MustCompile(`(?i)INFORMATION\s+REPORTS?`),
	}
	agendaEndMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?im)ADJOURNMENT`),
		regexp.MustCompile(`(?im)^\d+\s+(MINUTES|TRANSCRIPT)`),
		regexp.MustCompile(`(?im)Item\s+\d+[:\s]+Staff Report Pg\.`),
	}

	patternItemRegexes = []*regexp.Regexp{
		coverNumberedMultiline,
		coverNumberedInline,
		regexp.MustCompile(`\n\s*([A-Z])\.\s*\n\s*([A-Z][^\n]{10,200})`),
		regexp.MustCompile(`\n\s*([A-Z])\.\s+([A-Z][^\n]{10,200})`),
		regexp.MustCompile(`(?i)\n\s*(Item\s+\d+)[:\s]+([^\n]{10,200})`),
	}
)

// coverItem is one item's metadata as listed on an agenda's cover/summary page.
type coverItem struct {
	ID       string
	Number   int
	Title    string
	Duration int
}

type boundary struct {
	start int
	id    string
	title string
}

// ChunkByStructure is the primary PDF chunking strategy: it reads the
// item listing off the cover page, locates each title's first
// occurrence in the body, and splits on those boundaries. Returns nil
// when the document doesn't look structured enough to trust (too few
// boundaries, suspiciously small cover).
func ChunkByStructure(pdfText string) []Chunk {
	text := blankLinesPattern.ReplaceAllString(formFeedPattern.ReplaceAllString(pdfText, "\n\n"), "\n\n")

	coverEnd := detectCoverEnd(text)
	coverText := text[:coverEnd]
	bodyText := text[coverEnd:]

	items := parseCoverAgenda(coverText)
	if len(items) == 0 {
		return nil
	}

	coverPct := float64(coverEnd) / float64(len(text))
	if coverPct < 0.005 && len(items) < 3 {
		return nil
	}

	boundaries := findItemBoundariesByTitle(bodyText, items)
	if len(boundaries) < 2 {
		return nil
	}

	chunks := make([]Chunk, 0, len(boundaries))
	for i, b := range boundaries {
		end := len(bodyText)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].start
		}
		content := strings.TrimSpace(bodyText[b.start:end])
		chunks = append(chunks, Chunk{
			Sequence: i + 1,
			Title:    b.id + ". " + b.title,
			Text:     content,
		})
	}

	if len(chunks) < 2 {
		return nil
	}
	return chunks
}

func detectCoverEnd(text string) int {
	earliest := len(text)
	for _, pattern := range reportHeaderPatterns {
		if loc := pattern.FindStringIndex(text); loc != nil && loc[0] < earliest {
			earliest = loc[0]
		}
	}
	if earliest < len(text) {
		return earliest
	}

	// Fall back to a content-density shift: agenda listings are dense
	// with short lines, staff reports have long prose paragraphs.
	limit := len(text)
	if limit > 20000 {
		limit = 20000
	}
	const window = 2000
	var prevDensity float64
	pos := len(text)
	for i := 0; i < limit; i += window {
		end := i + window
		if end > len(text) {
			end = len(text)
		}
		chunk := text[i:end]
		density := lineDensity(chunk)
		if i > 0 && density < prevDensity*0.6 {
			pos = i
			break
		}
		prevDensity = density
	}
	if pos == len(text) {
		pos = int(float64(len(text)) * 0.15)
	}
	return pos
}

func lineDensity(chunk string) float64 {
	if len(chunk) == 0 {
		return 0
	}
	return float64(strings.Count(chunk, "\n")) / (float64(len(chunk)) / 100)
}

func parseCoverAgenda(coverText string) []coverItem {
	var items []coverItem
	for _, pattern := range []*regexp.Regexp{coverNumberedMultiline, coverNumberedInline} {
		for _, m := range pattern.FindAllStringSubmatch("\n"+coverText, -1) {
			num, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			title := strings.TrimSpace(m[2])

			duration := 0
			if dm := coverDurationSuffix.FindStringSubmatchIndex(title); dm != nil {
				if d, err := strconv.Atoi(title[dm[2]:dm[3]]); err == nil {
					duration = d
				}
				title = strings.TrimSpace(title[:dm[0]])
			}

			if len(title) < 10 || junkCoverTitles[strings.ToUpper(title)] {
				continue
			}
			title = strings.Join(strings.Fields(title), " ")
			if len(title) > 150 {
				title = title[:150]
			}

			items = append(items, coverItem{
				ID:       strconv.Itoa(num),
				Number:   num,
				Title:    title,
				Duration: duration,
			})
		}
	}

	seen := make(map[string]bool)
	var deduped []coverItem
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		deduped = append(deduped, it)
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Number < deduped[j].Number })
	return deduped
}

func findItemBoundariesByTitle(bodyText string, items []coverItem) []boundary {
	var boundaries []boundary
	for _, item := range items {
		pos, ok := locateTitle(bodyText, item)
		if !ok {
			continue
		}
		boundaries = append(boundaries, boundary{start: pos, id: item.ID, title: item.Title})
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i].start < boundaries[j].start })
	return boundaries
}

func locateTitle(bodyText string, item coverItem) (int, bool) {
	if pos, ok := fuzzyTitleSearch(bodyText, item.Title, 80); ok {
		return pos, true
	}
	if len(item.Title) > 40 {
		if pos, ok := fuzzyTitleSearch(bodyText, item.Title, 40); ok {
			return pos, true
		}
	}
	if loc := regexp.MustCompile(footerItemPattern(item.ID)).FindStringIndex(bodyText); loc != nil {
		return loc[0], true
	}
	if loc := regexp.MustCompile(staffReportPattern(item.ID)).FindStringIndex(bodyText); loc != nil {
		return loc[0], true
	}
	return 0, false
}

func fuzzyTitleSearch(body, title string, limit int) (int, bool) {
	if len(title) > limit {
		title = title[:limit]
	}
	pattern := flexibleWhitespacePattern(title)
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return 0, false
	}
	loc := re.FindStringIndex(body)
	if loc == nil {
		return 0, false
	}
	return loc[0], true
}

// flexibleWhitespacePattern escapes a literal string for regex use, then
// relaxes every space to `\s+` so line wraps in extracted PDF text don't
// break an otherwise-exact title match.
func flexibleWhitespacePattern(s string) string {
	escaped := regexp.QuoteMeta(s)
	return strings.ReplaceAll(escaped, " ", `\s+`)
}

func footerItemPattern(id string) string {
	return `(?i)Item\s+` + regexp.QuoteMeta(id) + `[\s:]`
}

func staffReportPattern(id string) string {
	q := regexp.QuoteMeta(id)
	return `(?is)(?:Staff Report|STAFF REPORT).{0,200}?(?:Item\s+` + q + `|Report\s+#.*` + q + `)`
}

// ChunkByPatterns is the fallback chunker for agendas that don't carry a
// clean cover-page listing: it scans the first ~20%/50KB for section
// markers and numbered/lettered item patterns, then re-finds each title
// in the remainder of the document to split on.
func ChunkByPatterns(text string) []Chunk {
	agendaSectionSize := len(text) / 5
	if agendaSectionSize > 50000 {
		agendaSectionSize = 50000
	}
	if agendaSectionSize > len(text) {
		agendaSectionSize = len(text)
	}
	agendaSection := text[:agendaSectionSize]

	agendaStart := 0
	foundStart := false
	for _, marker := range agendaStartMarkers {
		if loc := marker.FindStringIndex(agendaSection); loc != nil && loc[0] > agendaStart {
			agendaStart = loc[0]
			foundStart = true
		}
	}

	agendaEnd := agendaSectionSize
	foundEnd := false
	for _, marker := range agendaEndMarkers {
		if loc := marker.FindStringIndex(agendaSection[agendaStart:]); loc != nil {
			agendaEnd = agendaStart + loc[0]
			foundEnd = true
			break
		}
	}

	var actualAgenda string
	if foundStart && foundEnd {
		actualAgenda = agendaSection[agendaStart:agendaEnd]
	} else {
		actualAgenda = agendaSection
	}

	type patItem struct {
		number string
		title  string
	}
	var items []patItem
	for _, pattern := range patternItemRegexes {
		for _, m := range pattern.FindAllStringSubmatch(actualAgenda, -1) {
			number := m[1]
			title := strings.TrimSpace(m[2])
			if len(title) < 15 || junkPatternTitles[strings.ToUpper(title)] {
				continue
			}
			title = strings.Join(strings.Fields(title), " ")
			title = regexp.MustCompile(`(?i);?\s*CEQA[^;]*$`).ReplaceAllString(title, "")
			if len(title) > 150 {
				title = title[:150]
			}
			items = append(items, patItem{number: number, title: title})
		}
	}
	if len(items) == 0 {
		return nil
	}

	splitPoints := map[int]bool{0: true}
	for _, item := range items {
		searchStart := agendaSectionSize
		if searchStart >= len(text) {
			continue
		}
		pattern := flexibleWhitespacePattern(firstN(item.title, 50))
		re, err := regexp.Compile("(?i)" + pattern)
		if err == nil {
			if loc := re.FindStringIndex(text[searchStart:]); loc != nil {
				splitPoints[searchStart+loc[0]] = true
				continue
			}
		}
		numPattern := `(?i)\n\s*` + regexp.QuoteMeta(item.number) + `\.\s+`
		if loc := regexp.MustCompile(numPattern).FindStringIndex(text[searchStart:]); loc != nil {
			splitPoints[searchStart+loc[0]] = true
		}
	}

	points := make([]int, 0, len(splitPoints)+1)
	for p := range splitPoints {
		points = append(points, p)
	}
	sort.Ints(points)
	points = append(points, len(text))

	if len(points) < 3 {
		return nil
	}

	type rawChunk struct {
		start, end int
		text       string
		item       *patItem
	}
	var chunks []rawChunk
	for i := 1; i < len(points); i++ {
		chunkText := text[points[i-1]:points[i]]
		var matched *patItem
		if points[i-1] != 0 {
			preview := firstN(chunkText, 200)
			for j := range items {
				if regexp.MustCompile(`(?i)\n\s*`+regexp.QuoteMeta(items[j].number)+`\.\s+`).MatchString(preview) {
					matched = &items[j]
					break
				}
			}
		}
		chunks = append(chunks, rawChunk{start: points[i-1], end: points[i], text: chunkText, item: matched})
	}

	var meaningful []rawChunk
	for _, c := range chunks {
		if len(c.text) < 1000 && c.start == 0 {
			continue
		}
		meaningful = append(meaningful, c)
	}

	if len(meaningful) <= 1 || len(meaningful) > 50 {
		return nil
	}

	result := make([]Chunk, 0, len(meaningful))
	for i, c := range meaningful {
		title := "Section " + strconv.Itoa(i+1)
		if c.item != nil {
			title = c.item.number + ". " + c.item.title
		}
		result = append(result, Chunk{Sequence: i + 1, Title: title, Text: c.text})
	}
	return result
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// PageAtOffset recovers the "--- PAGE N ---" marker nearest before the
// given offset in text produced by ExtractText, or 0 if none precedes it.
func PageAtOffset(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	matches := pageMarkerPattern.FindAllStringSubmatchIndex(text[:offset], -1)
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1]
	n, _ := strconv.Atoi(text[last[2]:last[3]])
	return n
}
