package topics

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTaxonomy(t *testing.T) string {
	t.Helper()
	body := `{
		"taxonomy": {
			"housing": {"canonical": "housing", "display_name": "Housing", "synonyms": ["affordable housing", "rezoning for housing"]},
			"budget": {"canonical": "budget", "display_name": "Budget & Finance", "synonyms": ["fiscal", "appropriations"]},
			"public_safety": {"canonical": "public_safety", "display_name": "Public Safety", "synonyms": ["police", "fire department"]}
		},
		"prompt_examples": ["housing", "budget", "public_safety"]
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNormalizeDirectMatch(t *testing.T) {
	n, err := Load(writeTaxonomy(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := n.Normalize([]string{"Budget", "housing"})
	want := []string{"budget", "housing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %v, want %v", got, want)
	}
}

func TestNormalizeSubstringMatch(t *testing.T) {
	n, err := Load(writeTaxonomy(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := n.Normalize([]string{"affordable housing plan"})
	if len(got) != 1 || got[0] != "housing" {
		t.Errorf("expected substring match to canonicalize to housing, got %v", got)
	}
}

func TestNormalizeUnknownTopicKeptLowercased(t *testing.T) {
	n, err := Load(writeTaxonomy(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := n.Normalize([]string{"Skateboard Parks"})
	if len(got) != 1 || got[0] != "skateboard parks" {
		t.Errorf("expected unknown topic lowercased and kept, got %v", got)
	}
}

func TestNormalizeDedupesAndSorts(t *testing.T) {
	n, err := Load(writeTaxonomy(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := n.Normalize([]string{"housing", "affordable housing", "budget"})
	want := []string{"budget", "housing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %v, want %v", got, want)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	n, err := Load(writeTaxonomy(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := n.Normalize(nil); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestDisplayNameFallsBackToTitleCase(t *testing.T) {
	n, err := Load(writeTaxonomy(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := n.DisplayName("budget"); got != "Budget & Finance" {
		t.Errorf("expected taxonomy display name, got %q", got)
	}
	if got := n.DisplayName("skateboard_parks"); got != "Skateboard Parks" {
		t.Errorf("expected fallback title case, got %q", got)
	}
}

func TestAggregateByFrequencySortsDescending(t *testing.T) {
	got := AggregateByFrequency([][]string{
		{"housing", "budget"},
		{"housing"},
		{"public_safety", "housing"},
	})
	want := []string{"housing", "budget", "public_safety"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateByFrequency() = %v, want %v", got, want)
	}
}
