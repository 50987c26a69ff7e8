package store

import "fmt"

// CouncilMember mirrors spec.md §3's [DOMAIN+] roster entry, used to resolve
// a vendor's free-text vote record ("Smith: Yes") to a stable member name.
type CouncilMember struct {
	Banana string
	Name   string
	Seat   string
	Active bool
}

// Vote mirrors spec.md §3's [DOMAIN+] per-member vote on an agenda item.
type Vote struct {
	ID        int64
	ItemID    string
	MeetingID string
	Member    string
	Choice    string // yes, no, abstain, absent, recuse
}

// UpsertCouncilMember inserts or refreshes a roster entry.
func (s *Store) UpsertCouncilMember(m CouncilMember) error {
	active := 0
	if m.Active {
		active = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO council_members (banana, name, seat, active) VALUES (?, ?, ?, ?)
		 ON CONFLICT(banana, name) DO UPDATE SET seat=excluded.seat, active=excluded.active`,
		m.Banana, m.Name, m.Seat, active,
	)
	if err != nil {
		return fmt.Errorf("store: upsert council member %s/%s: %w", m.Banana, m.Name, err)
	}
	return nil
}

// ListCouncilMembers returns a city's active roster.
func (s *Store) ListCouncilMembers(banana string) ([]CouncilMember, error) {
	rows, err := s.db.Query(
		`SELECT banana, name, seat, active FROM council_members WHERE banana = ? AND active = 1`,
		banana,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list council members for %s: %w", banana, err)
	}
	defer rows.Close()

	var out []CouncilMember
	for rows.Next() {
		var m CouncilMember
		var active int
		if err := rows.Scan(&m.Banana, &m.Name, &m.Seat, &active); err != nil {
			return nil, fmt.Errorf("store: scan council member: %w", err)
		}
		m.Active = active != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecordVote inserts one member's vote on an item.
func (s *Store) RecordVote(v Vote) error {
	_, err := s.db.Exec(
		`INSERT INTO votes (item_id, meeting_id, member, vote) VALUES (?, ?, ?, ?)`,
		v.ItemID, v.MeetingID, v.Member, v.Choice,
	)
	if err != nil {
		return fmt.Errorf("store: record vote for %s/%s: %w", v.ItemID, v.Member, err)
	}
	return nil
}

// TallyVotes groups an item's votes by choice, e.g. {"yes": 6, "no": 1}.
func (s *Store) TallyVotes(itemID string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT vote, COUNT(*) FROM votes WHERE item_id = ? GROUP BY vote`, itemID)
	if err != nil {
		return nil, fmt.Errorf("store: tally votes for %s: %w", itemID, err)
	}
	defer rows.Close()

	tally := make(map[string]int)
	for rows.Next() {
		var choice string
		var count int
		if err := rows.Scan(&choice, &count); err != nil {
			return nil, fmt.Errorf("store: scan vote tally: %w", err)
		}
		tally[choice] = count
	}
	return tally, rows.Err()
}

// ListVotes returns every vote recorded on an item.
func (s *Store) ListVotes(itemID string) ([]Vote, error) {
	rows, err := s.db.Query(`SELECT id, item_id, meeting_id, member, vote FROM votes WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("store: list votes for %s: %w", itemID, err)
	}
	defer rows.Close()

	var out []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.ItemID, &v.MeetingID, &v.Member, &v.Choice); err != nil {
			return nil, fmt.Errorf("store: scan vote: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
