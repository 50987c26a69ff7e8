package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Matter mirrors spec.md §3's [DOMAIN+] legislative matter: a resolution or
// ordinance tracked across multiple meetings under one file number.
type Matter struct {
	ID               string
	Banana           string
	MatterFile       string
	MatterType       string
	Title            string
	CanonicalSummary string
	CanonicalTopics  []string
	Sponsors         []string
	AppearanceCount  int
}

// MatterAppearance records one item's reference to a matter at a meeting,
// including the outcome of any vote taken on it.
type MatterAppearance struct {
	ID          int64
	MatterID    string
	MeetingID   string
	ItemID      string
	VoteOutcome string
	VoteTally   string
}

// UpsertMatter inserts or updates a matter keyed by (banana, matter_file),
// bumping appearance_count and last_seen. The matter id is stable so that
// agenda items across meetings can be linked to the same underlying matter.
func (s *Store) UpsertMatter(m Matter) error {
	if m.MatterFile == "" {
		return fmt.Errorf("store: matter_file is required")
	}
	topicsJSON, _ := json.Marshal(nonNilStrings(m.CanonicalTopics))
	sponsorsJSON, _ := json.Marshal(nonNilStrings(m.Sponsors))

	_, err := s.db.Exec(
		`INSERT INTO matters (id, banana, matter_file, matter_type, title, canonical_summary, canonical_topics, sponsors, appearance_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT(banana, matter_file) DO UPDATE SET
		   title=excluded.title, matter_type=excluded.matter_type,
		   canonical_summary=CASE WHEN excluded.canonical_summary != '' THEN excluded.canonical_summary ELSE matters.canonical_summary END,
		   canonical_topics=CASE WHEN excluded.canonical_topics != '[]' THEN excluded.canonical_topics ELSE matters.canonical_topics END,
		   sponsors=excluded.sponsors,
		   last_seen=datetime('now'),
		   appearance_count=matters.appearance_count + 1`,
		m.ID, m.Banana, m.MatterFile, m.MatterType, m.Title, m.CanonicalSummary, string(topicsJSON), string(sponsorsJSON),
	)
	if err != nil {
		return fmt.Errorf("store: upsert matter %s: %w", m.MatterFile, err)
	}
	return nil
}

// GetMatterByFile resolves a (banana, matter_file) pair to its matter row.
func (s *Store) GetMatterByFile(banana, matterFile string) (*Matter, error) {
	row := s.db.QueryRow(
		`SELECT id, banana, matter_file, matter_type, title, canonical_summary, canonical_topics, sponsors, appearance_count
		 FROM matters WHERE banana=? AND matter_file=?`,
		banana, matterFile,
	)
	return scanMatter(row)
}

func scanMatter(row *sql.Row) (*Matter, error) {
	var m Matter
	var topicsJSON, sponsorsJSON string
	if err := row.Scan(&m.ID, &m.Banana, &m.MatterFile, &m.MatterType, &m.Title, &m.CanonicalSummary,
		&topicsJSON, &sponsorsJSON, &m.AppearanceCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan matter: %w", err)
	}
	if topicsJSON != "" {
		_ = json.Unmarshal([]byte(topicsJSON), &m.CanonicalTopics)
	}
	if sponsorsJSON != "" {
		_ = json.Unmarshal([]byte(sponsorsJSON), &m.Sponsors)
	}
	return &m, nil
}

// RecordMatterAppearance links an agenda item to a matter at a given meeting,
// optionally with the vote outcome/tally recorded on that item.
func (s *Store) RecordMatterAppearance(a MatterAppearance) error {
	_, err := s.db.Exec(
		`INSERT INTO matter_appearances (matter_id, meeting_id, item_id, vote_outcome, vote_tally) VALUES (?, ?, ?, ?, ?)`,
		a.MatterID, a.MeetingID, a.ItemID, a.VoteOutcome, a.VoteTally,
	)
	if err != nil {
		return fmt.Errorf("store: record matter appearance for %s: %w", a.MatterID, err)
	}
	return nil
}

// ListMatterAppearances returns every appearance of a matter, oldest first.
func (s *Store) ListMatterAppearances(matterID string) ([]MatterAppearance, error) {
	rows, err := s.db.Query(
		`SELECT id, matter_id, meeting_id, item_id, vote_outcome, vote_tally FROM matter_appearances WHERE matter_id = ? ORDER BY id ASC`,
		matterID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list matter appearances for %s: %w", matterID, err)
	}
	defer rows.Close()

	var out []MatterAppearance
	for rows.Next() {
		var a MatterAppearance
		if err := rows.Scan(&a.ID, &a.MatterID, &a.MeetingID, &a.ItemID, &a.VoteOutcome, &a.VoteTally); err != nil {
			return nil, fmt.Errorf("store: scan matter appearance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
