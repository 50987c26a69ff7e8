package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// City mirrors spec.md §3's City entity. Banana is the immutable identity key.
type City struct {
	Banana       string
	Name         string
	State        string
	County       string
	Vendor       string
	Slug         string
	Status       string
	ViewID       int
	Zipcodes     []string
	LastSyncedAt sql.NullTime
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Banana deterministically derives a city's identity key: lowercase(alnum(name)) + UPPER(state).
func Banana(name, state string) string {
	alnum := nonAlnum.ReplaceAllString(name, "")
	return strings.ToLower(alnum) + strings.ToUpper(strings.TrimSpace(state))
}

// UpsertCity inserts or updates a city by banana. Banana itself is immutable
// once created: callers that need to rename a city must delete and recreate it,
// since renames cascade to foreign keys per spec.md §3.
func (s *Store) UpsertCity(c City) error {
	if strings.TrimSpace(c.Banana) == "" {
		return fmt.Errorf("store: city banana is required")
	}
	if c.Status == "" {
		c.Status = "active"
	}
	_, err := s.db.Exec(
		`INSERT INTO cities (banana, name, state, county, vendor, slug, status, view_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(banana) DO UPDATE SET
		   name=excluded.name, state=excluded.state, county=excluded.county,
		   vendor=excluded.vendor, slug=excluded.slug, status=excluded.status, view_id=excluded.view_id`,
		c.Banana, c.Name, c.State, c.County, c.Vendor, c.Slug, c.Status, c.ViewID,
	)
	if err != nil {
		return fmt.Errorf("store: upsert city %s: %w", c.Banana, err)
	}

	for _, zip := range c.Zipcodes {
		zip = strings.TrimSpace(zip)
		if zip == "" {
			continue
		}
		if _, err := s.db.Exec(
			`INSERT INTO zipcodes (zipcode, banana) VALUES (?, ?)
			 ON CONFLICT(zipcode) DO UPDATE SET banana=excluded.banana`,
			zip, c.Banana,
		); err != nil {
			return fmt.Errorf("store: upsert zipcode %s: %w", zip, err)
		}
	}
	return nil
}

// MarkCitySynced stamps a city's last_synced_at to now.
func (s *Store) MarkCitySynced(banana string) error {
	_, err := s.db.Exec(`UPDATE cities SET last_synced_at = datetime('now') WHERE banana = ?`, banana)
	if err != nil {
		return fmt.Errorf("store: mark city synced %s: %w", banana, err)
	}
	return nil
}

// GetCity returns a city by banana, or nil if not found.
func (s *Store) GetCity(banana string) (*City, error) {
	row := s.db.QueryRow(
		`SELECT banana, name, state, county, vendor, slug, status, view_id, last_synced_at FROM cities WHERE banana = ?`,
		banana,
	)
	var c City
	if err := row.Scan(&c.Banana, &c.Name, &c.State, &c.County, &c.Vendor, &c.Slug, &c.Status, &c.ViewID, &c.LastSyncedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get city %s: %w", banana, err)
	}
	return &c, nil
}

// ListActiveCities returns every city with status = 'active'.
func (s *Store) ListActiveCities() ([]City, error) {
	rows, err := s.db.Query(
		`SELECT banana, name, state, county, vendor, slug, status, view_id, last_synced_at FROM cities WHERE status = 'active'`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list active cities: %w", err)
	}
	defer rows.Close()

	var out []City
	for rows.Next() {
		var c City
		if err := rows.Scan(&c.Banana, &c.Name, &c.State, &c.County, &c.Vendor, &c.Slug, &c.Status, &c.ViewID, &c.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("store: scan city: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CityByZipcode resolves a zipcode to its banana, or "" if unmapped.
func (s *Store) CityByZipcode(zipcode string) (string, error) {
	var banana string
	err := s.db.QueryRow(`SELECT banana FROM zipcodes WHERE zipcode = ?`, zipcode).Scan(&banana)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("store: city by zipcode %s: %w", zipcode, err)
	}
	return banana, nil
}

// RecentMeetingCount30d counts meetings for banana created within the last 30 days,
// used by the Conductor's activity-based sync gate (spec.md §4.7).
func (s *Store) RecentMeetingCount30d(banana string) (int, error) {
	cutoff := time.Now().Add(-30 * 24 * time.Hour).UTC().Format(time.DateTime)
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM meetings WHERE banana = ? AND created_at >= ?`,
		banana, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: recent meeting count for %s: %w", banana, err)
	}
	return count, nil
}
