package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// QueueEntry mirrors spec.md §3's ProcessingQueueEntry.
type QueueEntry struct {
	ID           int64
	PacketURL    string
	MeetingID    string
	Banana       string
	Status       string // pending, processing, complete, failed
	Priority     int
	RetryCount   int
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
}

// CanonicalizePacketURL reproduces the canonicalization spec.md §3/§8 require:
// a single URL passes through unchanged; a list of URLs is sorted then
// JSON-serialized, so two different orderings hit the same queue/cache row.
func CanonicalizePacketURL(urls []string) string {
	if len(urls) == 1 {
		return urls[0]
	}
	sorted := append([]string(nil), urls...)
	sort.Strings(sorted)
	out, _ := json.Marshal(sorted)
	return string(out)
}

// Priority computes max(0, 100 - days_old(meetingDate)) per spec.md §3.
func Priority(meetingDate time.Time) int {
	if meetingDate.IsZero() {
		return 0
	}
	days := int(time.Since(meetingDate).Hours() / 24)
	p := 100 - days
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// EnqueueIfAbsent inserts a queue entry keyed by the canonicalized packet URL.
// Re-enqueuing an already-processed URL is a no-op unless it is 'failed' and
// the caller resets it first, per spec.md §5.
func (s *Store) EnqueueIfAbsent(packetURL, meetingID, banana string, priority int) error {
	_, err := s.db.Exec(
		`INSERT INTO processing_queue (packet_url, meeting_id, banana, priority)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(packet_url) DO NOTHING`,
		packetURL, meetingID, banana, priority,
	)
	if err != nil {
		return fmt.Errorf("store: enqueue %s: %w", packetURL, err)
	}
	return nil
}

// ResetFailedEntry clears a failed entry back to pending so it can be retried.
func (s *Store) ResetFailedEntry(packetURL string) error {
	_, err := s.db.Exec(
		`UPDATE processing_queue SET status='pending', retry_count=0, error_message='' WHERE packet_url=? AND status='failed'`,
		packetURL,
	)
	if err != nil {
		return fmt.Errorf("store: reset failed entry %s: %w", packetURL, err)
	}
	return nil
}

// NextPending claims the highest-priority pending entry (priority desc, then
// FIFO by created_at) and marks it processing. Returns nil if the queue is empty.
func (s *Store) NextPending() (*QueueEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, packet_url, meeting_id, banana, status, priority, retry_count, error_message, created_at, started_at, completed_at
		 FROM processing_queue WHERE status='pending' ORDER BY priority DESC, created_at ASC LIMIT 1`,
	)
	entry, err := scanQueueEntry(row)
	if err != nil || entry == nil {
		return nil, err
	}

	if _, err := s.db.Exec(
		`UPDATE processing_queue SET status='processing', started_at=datetime('now') WHERE id=?`,
		entry.ID,
	); err != nil {
		return nil, fmt.Errorf("store: claim queue entry %d: %w", entry.ID, err)
	}
	entry.Status = "processing"
	return entry, nil
}

// CompleteEntry marks a queue entry complete.
func (s *Store) CompleteEntry(id int64) error {
	_, err := s.db.Exec(`UPDATE processing_queue SET status='complete', completed_at=datetime('now') WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("store: complete queue entry %d: %w", id, err)
	}
	return nil
}

// FailEntry increments retry_count and records the error. Once retry_count
// reaches maxRetries the entry is marked permanently 'failed'; otherwise it
// goes back to 'pending' for another pull.
func (s *Store) FailEntry(id int64, errMsg string, maxRetries int) error {
	var retryCount int
	if err := s.db.QueryRow(`SELECT retry_count FROM processing_queue WHERE id=?`, id).Scan(&retryCount); err != nil {
		return fmt.Errorf("store: load retry count for %d: %w", id, err)
	}
	retryCount++

	status := "pending"
	var completedAt any
	if retryCount >= maxRetries {
		status = "failed"
		completedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`UPDATE processing_queue SET status=?, retry_count=?, error_message=?, completed_at=? WHERE id=?`,
		status, retryCount, errMsg, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("store: fail queue entry %d: %w", id, err)
	}
	return nil
}

// StuckEntries returns processing entries whose started_at predates the cutoff,
// candidates for requeue when a worker died mid-flight.
func (s *Store) StuckEntries(timeout time.Duration) ([]QueueEntry, error) {
	cutoff := time.Now().Add(-timeout).UTC().Format(time.DateTime)
	rows, err := s.db.Query(
		`SELECT id, packet_url, meeting_id, banana, status, priority, retry_count, error_message, created_at, started_at, completed_at
		 FROM processing_queue WHERE status='processing' AND started_at < ?`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("store: stuck entries: %w", err)
	}
	defer rows.Close()

	var out []QueueEntry
	for rows.Next() {
		e, err := scanQueueEntryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// RequeueStuckEntry puts a stuck entry back to pending without counting against retry budget.
func (s *Store) RequeueStuckEntry(id int64) error {
	_, err := s.db.Exec(`UPDATE processing_queue SET status='pending', started_at=NULL WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("store: requeue stuck entry %d: %w", id, err)
	}
	return nil
}

// GetQueueEntryByPacketURL looks up a queue entry by its (already
// canonicalized) packet URL, the unique key spec.md §3 assigns it. Used by
// the Conductor's --process-meeting control-surface operation, which names
// a packet rather than a queue id.
func (s *Store) GetQueueEntryByPacketURL(packetURL string) (*QueueEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, packet_url, meeting_id, banana, status, priority, retry_count, error_message, created_at, started_at, completed_at
		 FROM processing_queue WHERE packet_url=?`,
		packetURL,
	)
	return scanQueueEntry(row)
}

// ClaimPendingForBanana claims the highest-priority pending entry belonging
// to one city, the unit --sync-and-process-city drains without touching
// other cities' queue entries.
func (s *Store) ClaimPendingForBanana(banana string) (*QueueEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, packet_url, meeting_id, banana, status, priority, retry_count, error_message, created_at, started_at, completed_at
		 FROM processing_queue WHERE status='pending' AND banana=? ORDER BY priority DESC, created_at ASC LIMIT 1`,
		banana,
	)
	entry, err := scanQueueEntry(row)
	if err != nil || entry == nil {
		return nil, err
	}
	if _, err := s.db.Exec(
		`UPDATE processing_queue SET status='processing', started_at=datetime('now') WHERE id=?`,
		entry.ID,
	); err != nil {
		return nil, fmt.Errorf("store: claim queue entry %d: %w", entry.ID, err)
	}
	entry.Status = "processing"
	return entry, nil
}

// ClaimEntry marks a specific, already-identified pending entry as
// processing. Used when a control-surface operation has located the entry
// by packet URL rather than by priority order.
func (s *Store) ClaimEntry(id int64) error {
	res, err := s.db.Exec(
		`UPDATE processing_queue SET status='processing', started_at=datetime('now') WHERE id=? AND status IN ('pending', 'failed')`,
		id,
	)
	if err != nil {
		return fmt.Errorf("store: claim entry %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: entry %d is not pending or failed", id)
	}
	return nil
}

// QueueStatusCounts tallies queue entries by status, for --status reporting.
func (s *Store) QueueStatusCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM processing_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("store: queue status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("store: scan queue status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanQueueEntry(row *sql.Row) (*QueueEntry, error) {
	var e QueueEntry
	if err := row.Scan(&e.ID, &e.PacketURL, &e.MeetingID, &e.Banana, &e.Status, &e.Priority,
		&e.RetryCount, &e.ErrorMessage, &e.CreatedAt, &e.StartedAt, &e.CompletedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan queue entry: %w", err)
	}
	return &e, nil
}

func scanQueueEntryRows(rows *sql.Rows) (*QueueEntry, error) {
	var e QueueEntry
	if err := rows.Scan(&e.ID, &e.PacketURL, &e.MeetingID, &e.Banana, &e.Status, &e.Priority,
		&e.RetryCount, &e.ErrorMessage, &e.CreatedAt, &e.StartedAt, &e.CompletedAt); err != nil {
		return nil, fmt.Errorf("store: scan queue entry row: %w", err)
	}
	return &e, nil
}
