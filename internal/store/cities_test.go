package store

import "testing"

func TestBanana(t *testing.T) {
	cases := []struct {
		name, state, want string
	}{
		{"Springfield", "IL", "springfieldIL"},
		{"St. Paul", "MN", "stpaulMN"},
		{"Winston-Salem", "NC", "winstonsalemNC"},
	}
	for _, c := range cases {
		if got := Banana(c.name, c.state); got != c.want {
			t.Errorf("Banana(%q, %q) = %q, want %q", c.name, c.state, got, c.want)
		}
	}
}

func TestBananaIsStableAcrossReruns(t *testing.T) {
	first := Banana("Cupertino", "CA")
	second := Banana("Cupertino", "CA")
	if first != second {
		t.Errorf("banana not stable: %q vs %q", first, second)
	}
}

func TestUpsertCityIsIdempotent(t *testing.T) {
	s := tempStore(t)
	c := City{Banana: "cupertinoCA", Name: "Cupertino", State: "CA", Vendor: "primegov", Slug: "cupertino", Zipcodes: []string{"95014"}}

	if err := s.UpsertCity(c); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertCity(c); err != nil {
		t.Fatal(err)
	}

	cities, err := s.ListActiveCities()
	if err != nil {
		t.Fatal(err)
	}
	if len(cities) != 1 {
		t.Fatalf("expected 1 city after double upsert, got %d", len(cities))
	}
}

func TestCityByZipcode(t *testing.T) {
	s := tempStore(t)
	c := City{Banana: "cupertinoCA", Name: "Cupertino", State: "CA", Vendor: "primegov", Slug: "cupertino", Zipcodes: []string{"95014", "95015"}}
	if err := s.UpsertCity(c); err != nil {
		t.Fatal(err)
	}

	banana, err := s.CityByZipcode("95014")
	if err != nil {
		t.Fatal(err)
	}
	if banana != "cupertinoCA" {
		t.Errorf("expected cupertinoCA, got %q", banana)
	}

	banana, err = s.CityByZipcode("00000")
	if err != nil {
		t.Fatal(err)
	}
	if banana != "" {
		t.Errorf("expected empty banana for unmapped zipcode, got %q", banana)
	}
}

func TestMarkCitySynced(t *testing.T) {
	s := tempStore(t)
	if err := s.UpsertCity(City{Banana: "renoNV", Name: "Reno", State: "NV", Vendor: "granicus", ViewID: 7}); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkCitySynced("renoNV"); err != nil {
		t.Fatal(err)
	}

	c, err := s.GetCity("renoNV")
	if err != nil {
		t.Fatal(err)
	}
	if !c.LastSyncedAt.Valid {
		t.Error("expected last_synced_at to be set")
	}
}

func TestGetCityNotFound(t *testing.T) {
	s := tempStore(t)
	c, err := s.GetCity("nowhereXX")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Error("expected nil city for unknown banana")
	}
}
