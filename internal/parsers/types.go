// Package parsers turns vendor agenda pages and PDFs into structured
// items: HTML agenda parsing, PDF structural chunking, and the
// Menlo Park letter-numbered-section PDF format.
package parsers

// Attachment is a single document linked to an agenda item.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Item is one parsed agenda entry, vendor-agnostic.
type Item struct {
	VendorItemID string       `json:"vendor_item_id"`
	Title        string       `json:"title"`
	Sequence     int          `json:"sequence"`
	AgendaNumber string       `json:"agenda_number,omitempty"`
	MatterFile   string       `json:"matter_file,omitempty"`
	MatterType   string       `json:"matter_type,omitempty"`
	Attachments  []Attachment `json:"attachments"`
}

// Participation holds how the public can attend or comment on a meeting,
// scraped from free text near the top of an agenda page or PDF.
type Participation struct {
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	VirtualURL     string `json:"virtual_url,omitempty"`
	MeetingID      string `json:"meeting_id,omitempty"`
	HybridOrVirtual bool  `json:"hybrid_or_virtual"`
}

// ParsedAgenda is the common output shape every HTML and PDF parser
// in this package converges on.
type ParsedAgenda struct {
	Participation Participation `json:"participation"`
	Items         []Item        `json:"items"`
}

// Chunk is one item's worth of extracted PDF body text, produced by
// the structural or pattern chunker.
type Chunk struct {
	Title    string
	Sequence int
	Text     string
}
