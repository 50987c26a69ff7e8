package store

import (
	"database/sql"
	"fmt"
)

// CacheEntry mirrors spec.md §3's cache record, keyed by the same
// canonicalized packet URL used by the processing queue so a summary
// computed once is never recomputed for the same document set.
type CacheEntry struct {
	PacketURL      string
	Summary        string
	ProcessingTime float64
	HitCount       int
}

// GetCacheEntry looks up a cache entry and, on a hit, atomically bumps
// hit_count and last_accessed in a single UPDATE so concurrent readers
// never race on a read-modify-write.
func (s *Store) GetCacheEntry(packetURL string) (*CacheEntry, error) {
	row := s.db.QueryRow(
		`SELECT packet_url, summary, processing_time, hit_count FROM cache_entries WHERE packet_url = ?`,
		packetURL,
	)
	var e CacheEntry
	if err := row.Scan(&e.PacketURL, &e.Summary, &e.ProcessingTime, &e.HitCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get cache entry %s: %w", packetURL, err)
	}

	if _, err := s.db.Exec(
		`UPDATE cache_entries SET hit_count = hit_count + 1, last_accessed = datetime('now') WHERE packet_url = ?`,
		packetURL,
	); err != nil {
		return nil, fmt.Errorf("store: bump cache hit %s: %w", packetURL, err)
	}
	e.HitCount++
	return &e, nil
}

// PutCacheEntry stores (or overwrites) a cache entry for packetURL.
func (s *Store) PutCacheEntry(packetURL, summary string, processingTime float64) error {
	_, err := s.db.Exec(
		`INSERT INTO cache_entries (packet_url, summary, processing_time)
		 VALUES (?, ?, ?)
		 ON CONFLICT(packet_url) DO UPDATE SET
		   summary=excluded.summary, processing_time=excluded.processing_time, last_accessed=datetime('now')`,
		packetURL, summary, processingTime,
	)
	if err != nil {
		return fmt.Errorf("store: put cache entry %s: %w", packetURL, err)
	}
	return nil
}
