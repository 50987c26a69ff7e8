package store

import (
	"encoding/json"
	"fmt"
)

// AttachmentType enumerates the kinds of documents linked from an agenda item.
type AttachmentType string

const (
	AttachmentPDF         AttachmentType = "pdf"
	AttachmentDoc         AttachmentType = "doc"
	AttachmentTextSegment AttachmentType = "text_segment"
	AttachmentUnknown     AttachmentType = "unknown"
)

// Attachment mirrors spec.md §3's attachment record.
type Attachment struct {
	ID      int64
	Name    string
	URL     string
	Type    AttachmentType
	Content string // only populated for text_segment
}

// AgendaItem mirrors spec.md §3's AgendaItem entity.
type AgendaItem struct {
	ID          string
	MeetingID   string
	Title       string
	Sequence    int
	ItemNumber  string
	Section     string
	Summary     string
	Topics      []string
	MatterID    string
	MatterFile  string
	MatterType  string
	Sponsors    []string
	Summarized  bool
	Attachments []Attachment
}

// UpsertAgendaItem inserts or updates an item and replaces its attachments.
func (s *Store) UpsertAgendaItem(item AgendaItem) error {
	topicsJSON, _ := json.Marshal(nonNilStrings(item.Topics))
	sponsorsJSON, _ := json.Marshal(nonNilStrings(item.Sponsors))

	summarized := 0
	if item.Summarized {
		summarized = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO agenda_items (id, meeting_id, title, sequence, item_number, section, summary, topics, matter_id, matter_file, matter_type, sponsors, summarized)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, sequence=excluded.sequence, item_number=excluded.item_number,
		   section=excluded.section, matter_id=excluded.matter_id, matter_file=excluded.matter_file,
		   matter_type=excluded.matter_type, sponsors=excluded.sponsors`,
		item.ID, item.MeetingID, item.Title, item.Sequence, item.ItemNumber, item.Section,
		item.Summary, string(topicsJSON), item.MatterID, item.MatterFile, item.MatterType,
		string(sponsorsJSON), summarized,
	)
	if err != nil {
		return fmt.Errorf("store: upsert agenda item %s: %w", item.ID, err)
	}

	if _, err := s.db.Exec(`DELETE FROM attachments WHERE item_id = ?`, item.ID); err != nil {
		return fmt.Errorf("store: clear attachments for %s: %w", item.ID, err)
	}
	for _, a := range item.Attachments {
		if _, err := s.db.Exec(
			`INSERT INTO attachments (item_id, name, url, type, content) VALUES (?, ?, ?, ?, ?)`,
			item.ID, a.Name, a.URL, string(a.Type), a.Content,
		); err != nil {
			return fmt.Errorf("store: insert attachment for %s: %w", item.ID, err)
		}
	}
	return nil
}

// UpdateItemSummary persists an item's summary/topics and marks it summarized.
func (s *Store) UpdateItemSummary(itemID, summary string, topics []string) error {
	topicsJSON, _ := json.Marshal(nonNilStrings(topics))
	res, err := s.db.Exec(
		`UPDATE agenda_items SET summary=?, topics=?, summarized=1 WHERE id=?`,
		summary, string(topicsJSON), itemID,
	)
	if err != nil {
		return fmt.Errorf("store: update item summary %s: %w", itemID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: update item summary %s: no such item", itemID)
	}
	return nil
}

// ListAgendaItems returns every item for a meeting, ordered by sequence, with attachments.
func (s *Store) ListAgendaItems(meetingID string) ([]AgendaItem, error) {
	rows, err := s.db.Query(
		`SELECT id, meeting_id, title, sequence, item_number, section, summary, topics, matter_id, matter_file, matter_type, sponsors, summarized
		 FROM agenda_items WHERE meeting_id = ? ORDER BY sequence ASC`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list agenda items for %s: %w", meetingID, err)
	}
	defer rows.Close()

	var items []AgendaItem
	for rows.Next() {
		var it AgendaItem
		var topicsJSON, sponsorsJSON string
		var summarized int
		if err := rows.Scan(&it.ID, &it.MeetingID, &it.Title, &it.Sequence, &it.ItemNumber, &it.Section,
			&it.Summary, &topicsJSON, &it.MatterID, &it.MatterFile, &it.MatterType, &sponsorsJSON, &summarized); err != nil {
			return nil, fmt.Errorf("store: scan agenda item: %w", err)
		}
		it.Summarized = summarized != 0
		if topicsJSON != "" {
			_ = json.Unmarshal([]byte(topicsJSON), &it.Topics)
		}
		if sponsorsJSON != "" {
			_ = json.Unmarshal([]byte(sponsorsJSON), &it.Sponsors)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		attachments, err := s.listAttachments(items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Attachments = attachments
	}
	return items, nil
}

func (s *Store) listAttachments(itemID string) ([]Attachment, error) {
	rows, err := s.db.Query(`SELECT id, name, url, type, content FROM attachments WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("store: list attachments for %s: %w", itemID, err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		var typ string
		if err := rows.Scan(&a.ID, &a.Name, &a.URL, &typ, &a.Content); err != nil {
			return nil, fmt.Errorf("store: scan attachment: %w", err)
		}
		a.Type = AttachmentType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}
