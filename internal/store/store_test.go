package store

import (
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAndSchema(t *testing.T) {
	s := tempStore(t)
	if err := s.UpsertCity(City{Banana: "springfieldIL", Name: "Springfield", State: "IL", Vendor: "legistar", Slug: "springfield"}); err != nil {
		t.Fatalf("UpsertCity failed: %v", err)
	}
}
