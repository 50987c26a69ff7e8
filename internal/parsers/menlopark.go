package parsers

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	menloItemIDPattern  = regexp.MustCompile(`(?m)^([A-Z]\d+)\.\s*$`)
	menloSectionPattern = regexp.MustCompile(`(?m)^[A-Z]\.\s*$`)
	staffReportIDPattern = regexp.MustCompile(`\(Staff Report #([\d-]+(?:-CC)?)\)`)
	menloSequencePattern = regexp.MustCompile(`(\d+)$`)
)

// PDFLink is one hyperlink annotation extracted from a PDF page, as
// produced by whatever extraction step walks the document's link
// objects. The bounding rect is not modeled. Page is carried but not
// consulted: item-to-attachment matching uses the URL's filename prefix
// alone, across all pages.
type PDFLink struct {
	Page int
	URL  string
}

// ParseMenloParkAgenda parses Menlo Park's letter-numbered agenda
// format (H1., I1., J1., K1. ...) and matches each item to attachment
// hyperlinks whose filename is prefixed with the lowercased item id
// (e.g. "h1-20251021-cc-tour-de-menlo.pdf").
func ParseMenloParkAgenda(pdfText string, links []PDFLink) []Item {
	var items []Item
	pages := strings.Split(pdfText, "--- PAGE")

	for pageIdx, pageText := range pages {
		if pageIdx == 0 {
			continue
		}

		idMatches := menloItemIDPattern.FindAllStringSubmatchIndex(pageText, -1)
		for idx, m := range idMatches {
			itemID := pageText[m[2]:m[3]]
			startPos := m[1]

			endPos := len(pageText)
			if idx+1 < len(idMatches) {
				endPos = idMatches[idx+1][0]
			}
			if secLoc := menloSectionPattern.FindStringIndex(pageText[startPos:]); secLoc != nil {
				secEnd := startPos + secLoc[0]
				if secEnd < endPos {
					endPos = secEnd
				}
			}

			itemText := strings.TrimSpace(pageText[startPos:endPos])
			title := itemText
			if nl := strings.IndexByte(itemText, '\n'); nl >= 0 {
				title = itemText[:nl]
			}
			title = strings.TrimSpace(title)

			marker := ""
			switch {
			case strings.Contains(itemText, "(Attachment)"):
				marker = "Attachment"
			case staffReportIDPattern.MatchString(itemText):
				sm := staffReportIDPattern.FindStringSubmatch(itemText)
				marker = "Staff Report #" + sm[1]
			case strings.Contains(itemText, "(Presentation)"):
				marker = "Presentation"
			}

			sequence := 0
			if sm := menloSequencePattern.FindStringSubmatch(itemID); sm != nil {
				sequence, _ = strconv.Atoi(sm[1])
			}

			items = append(items, Item{
				VendorItemID: itemID,
				Title:        title,
				Sequence:     sequence,
				Attachments:  findMenloAttachments(itemID, marker, links),
			})
		}
	}

	return items
}

// findMenloAttachments matches item ids to attachment links purely by
// filename prefix, since PDF link rects carry no item association of
// their own. Menlo Park encodes the item id in every shared-asset
// filename (h1-..., j1-...), which makes this precise rather than a
// same-page guess.
func findMenloAttachments(itemID, marker string, links []PDFLink) []Attachment {
	var attachments []Attachment
	idLower := strings.ToLower(itemID)

	for _, link := range links {
		if !strings.Contains(link.URL, "/files/sharedassets/") {
			continue
		}
		if strings.HasPrefix(link.URL, "mailto:") || strings.HasPrefix(link.URL, "https://zoom") || strings.HasPrefix(link.URL, "http://www") {
			continue
		}

		parts := strings.Split(link.URL, "/")
		filename := strings.ToLower(parts[len(parts)-1])
		if !strings.HasPrefix(filename, idLower+"-") {
			continue
		}

		attachType := "pdf"
		lowerURL := strings.ToLower(link.URL)
		if strings.HasSuffix(lowerURL, ".doc") || strings.HasSuffix(lowerURL, ".docx") {
			attachType = "doc"
		}

		var name string
		switch {
		case marker == "":
			name = menloFilenameToName(filename)
		case strings.Contains(marker, "Staff Report"):
			name = marker
		case marker == "Presentation":
			name = itemID + " - Presentation"
		case marker == "Attachment":
			name = itemID + " - Attachment"
		default:
			name = itemID + " - Document"
		}

		attachments = append(attachments, Attachment{Name: name, URL: link.URL, Type: attachType})
	}

	return attachments
}

func menloFilenameToName(filename string) string {
	base := strings.TrimSuffix(filename, ".pdf")
	base = strings.ReplaceAll(base, "-", " ")
	return titleCaseWords(base)
}

func titleCaseWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
