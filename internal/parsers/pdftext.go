package parsers

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads every page of a PDF and joins them with
// "--- PAGE N ---" markers so downstream chunkers can recover page
// numbers from a plain-text offset.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("parsers: opening pdf %s: %w", path, err)
	}
	defer f.Close()

	return extractAllPages(r)
}

// ExtractTextFromBytes is ExtractText for a packet already downloaded into
// memory by the HTTP client, which is the common case in the Tier-1
// pipeline — adapters and the processor fetch a packet once and never
// round-trip it through disk.
func ExtractTextFromBytes(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsers: opening pdf from memory: %w", err)
	}
	return extractAllPages(r)
}

func extractAllPages(r *pdf.Reader) (string, error) {
	var buf bytes.Buffer
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&buf, "--- PAGE %d ---\n", i)
		buf.WriteString(text)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}
