package store

import "testing"

func TestCacheMissReturnsNil(t *testing.T) {
	s := tempStore(t)
	e, err := s.GetCacheEntry("https://example.com/a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Error("expected nil entry on cache miss")
	}
}

func TestCacheHitCountIsMonotonic(t *testing.T) {
	s := tempStore(t)
	if err := s.PutCacheEntry("https://example.com/a.pdf", "cached summary", 3.5); err != nil {
		t.Fatal(err)
	}

	var last int
	for i := 0; i < 3; i++ {
		e, err := s.GetCacheEntry("https://example.com/a.pdf")
		if err != nil {
			t.Fatal(err)
		}
		if e.HitCount <= last {
			t.Errorf("expected hit_count to increase monotonically, got %d after %d", e.HitCount, last)
		}
		last = e.HitCount
	}
	if last != 3 {
		t.Errorf("expected hit_count 3 after 3 reads, got %d", last)
	}
}

func TestPutCacheEntryOverwrites(t *testing.T) {
	s := tempStore(t)
	if err := s.PutCacheEntry("https://example.com/a.pdf", "first", 1.0); err != nil {
		t.Fatal(err)
	}
	if err := s.PutCacheEntry("https://example.com/a.pdf", "second", 2.0); err != nil {
		t.Fatal(err)
	}

	e, err := s.GetCacheEntry("https://example.com/a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if e.Summary != "second" {
		t.Errorf("expected overwritten summary, got %q", e.Summary)
	}
}
