package filters

import "testing"

func TestShouldSkipMeeting(t *testing.T) {
	cases := map[string]bool{
		"Mock Select Committee":       true,
		"Test Meeting":                true,
		"Regular City Council":        false,
		"Training Session for Clerks": true,
	}
	for title, want := range cases {
		if got := ShouldSkipMeeting(title); got != want {
			t.Errorf("ShouldSkipMeeting(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestShouldSkipItem(t *testing.T) {
	cases := map[string]bool{
		"Roll Call":                                        true,
		"Pledge of Allegiance":                              true,
		"Approval of Draft Raleigh Board of Adjustment Minutes": true,
		"Approve the minutes of the June 1 meeting":         true,
		"Adjournment":                                       true,
		"Rezoning of 123 Main Street":                       false,
	}
	for title, want := range cases {
		if got := ShouldSkipItem(title, ""); got != want {
			t.Errorf("ShouldSkipItem(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestShouldSkipProcessing(t *testing.T) {
	cases := map[string]bool{
		"Proclamation honoring Jane Doe":        true,
		"Liquor License renewal for The Tavern": true,
		"Appointment to Parks Commission":       true,
		"Approve 2027 Budget":                   false,
	}
	for title, want := range cases {
		if got := ShouldSkipProcessing(title, ""); got != want {
			t.Errorf("ShouldSkipProcessing(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestShouldSkipMatter(t *testing.T) {
	if !ShouldSkipMatter("Minutes (Min)") {
		t.Error("expected Minutes (Min) to be skipped")
	}
	if !ShouldSkipMatter("IRC") {
		t.Error("expected IRC to be skipped")
	}
	if ShouldSkipMatter("Ordinance") {
		t.Error("expected Ordinance to not be skipped")
	}
	if ShouldSkipMatter("") {
		t.Error("expected empty matter type to not be skipped")
	}
}

func TestIsLowValueAttachment(t *testing.T) {
	cases := map[string]bool{
		"Pub Corr - Smith Family.pdf":            true,
		"Pulbic Corr - Jones.pdf":                true,
		"Parcel Table - District 4.pdf":          true,
		"Omnia Partners Contract 2026.pdf":       true,
		"CEQA Det - Categorically Exempt.pdf":    true,
		"DEIR Appendix C.pdf":                    true,
		"Staff Report - Rezoning Analysis.pdf":   false,
	}
	for name, want := range cases {
		if got := IsLowValueAttachment(name); got != want {
			t.Errorf("IsLowValueAttachment(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCombinedSkipUsesTitleAndType(t *testing.T) {
	if !ShouldSkipItem("General Business", "communications") {
		t.Error("expected item_type to contribute to the combined match")
	}
}
