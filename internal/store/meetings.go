package store

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Meeting mirrors spec.md §3's Meeting entity.
type Meeting struct {
	ID               string
	Banana           string
	Title            string
	Date             sql.NullTime
	PacketURL        sql.NullString
	AgendaURL        sql.NullString
	Status           string
	Summary          string
	Topics           []string
	ProcessingStatus string // pending, processing, complete, failed
	ProcessingMethod string
	ProcessingTime   float64
	Participation    string
}

// GenerateMeetingID derives the 8-char stable fallback id used when a vendor
// doesn't supply one: sha1(slug|date|title|type)[:8].
func GenerateMeetingID(slug, date, title, meetingType string) string {
	sum := sha1.Sum([]byte(slug + "|" + date + "|" + title + "|" + meetingType))
	return hex.EncodeToString(sum[:])[:8]
}

// UpsertMeeting inserts or updates a meeting by id. Idempotent: re-running a
// sync with no upstream change must not create duplicate rows (spec.md §8).
func (s *Store) UpsertMeeting(m Meeting) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("store: meeting id is required")
	}
	topicsJSON, err := json.Marshal(nonNilStrings(m.Topics))
	if err != nil {
		return fmt.Errorf("store: marshal topics: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO meetings (id, banana, title, meeting_date, packet_url, agenda_url, status, summary, topics, processing_status, processing_method, processing_time, participation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, meeting_date=excluded.meeting_date,
		   packet_url=excluded.packet_url, agenda_url=excluded.agenda_url,
		   status=excluded.status, updated_at=datetime('now')`,
		m.ID, m.Banana, m.Title, m.Date, m.PacketURL, m.AgendaURL, m.Status,
		m.Summary, string(topicsJSON), nonEmptyOr(m.ProcessingStatus, "pending"),
		m.ProcessingMethod, m.ProcessingTime, m.Participation,
	)
	if err != nil {
		return fmt.Errorf("store: upsert meeting %s: %w", m.ID, err)
	}
	return nil
}

// StoreProcessingResult persists a meeting's summary/topics/processing_method/
// processing_time/participation and flips processing_status to complete.
// This is the only path that may leave summary non-empty, keeping the
// invariant from spec.md §7 ("never left with a summary set but
// processing_status not complete").
func (s *Store) StoreProcessingResult(meetingID, summary string, topics []string, method string, elapsed float64, participation string) error {
	topicsJSON, err := json.Marshal(nonNilStrings(topics))
	if err != nil {
		return fmt.Errorf("store: marshal topics: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE meetings SET summary=?, topics=?, processing_method=?, processing_time=?, participation=?,
		   processing_status='complete', updated_at=datetime('now') WHERE id=?`,
		summary, string(topicsJSON), method, elapsed, participation, meetingID,
	)
	if err != nil {
		return fmt.Errorf("store: store processing result for %s: %w", meetingID, err)
	}
	return nil
}

// MarkMeetingProcessingStatus sets processing_status without touching summary.
func (s *Store) MarkMeetingProcessingStatus(meetingID, status string) error {
	_, err := s.db.Exec(`UPDATE meetings SET processing_status=?, updated_at=datetime('now') WHERE id=?`, status, meetingID)
	if err != nil {
		return fmt.Errorf("store: mark meeting %s status %s: %w", meetingID, status, err)
	}
	return nil
}

// GetMeeting loads a meeting by id, or nil if not found.
func (s *Store) GetMeeting(id string) (*Meeting, error) {
	row := s.db.QueryRow(
		`SELECT id, banana, title, meeting_date, packet_url, agenda_url, status, summary, topics, processing_status, processing_method, processing_time, participation FROM meetings WHERE id=?`,
		id,
	)
	return scanMeeting(row)
}

func scanMeeting(row *sql.Row) (*Meeting, error) {
	var m Meeting
	var topicsJSON string
	if err := row.Scan(&m.ID, &m.Banana, &m.Title, &m.Date, &m.PacketURL, &m.AgendaURL, &m.Status,
		&m.Summary, &topicsJSON, &m.ProcessingStatus, &m.ProcessingMethod, &m.ProcessingTime, &m.Participation); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan meeting: %w", err)
	}
	if topicsJSON != "" {
		_ = json.Unmarshal([]byte(topicsJSON), &m.Topics)
	}
	return &m, nil
}

// MeetingProcessingStatusCounts tallies meetings by processing_status, for
// --status reporting.
func (s *Store) MeetingProcessingStatusCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT processing_status, COUNT(*) FROM meetings GROUP BY processing_status`)
	if err != nil {
		return nil, fmt.Errorf("store: meeting status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("store: scan meeting status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonEmptyOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
