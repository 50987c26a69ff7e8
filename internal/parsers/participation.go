package parsers

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	zoomURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]*zoom\.us/[^\s"'<>]*`)
	teamsURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]*teams\.microsoft\.com/[^\s"'<>]*`)
	webexURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]*webex\.com/[^\s"'<>]*`)
	meetingIDPattern = regexp.MustCompile(`(?i)meeting\s*id[:\s]*([\d\s\-]{6,})`)
	hybridPattern = regexp.MustCompile(`(?i)\b(hybrid|virtual meeting|remote participation|teleconference|zoom meeting|join (?:by|via) (?:phone|zoom|webex|teams))\b`)
)

// ParseParticipation extracts how-to-attend information from a block of
// agenda page or PDF text. Absence of a field is not an error; most
// vendors surface only a subset of email/phone/URL/ID.
func ParseParticipation(text string) Participation {
	var p Participation

	if m := emailPattern.FindString(text); m != "" {
		p.Email = strings.ToLower(m)
	}
	if m := phonePattern.FindString(text); m != "" {
		p.Phone = normalizePhone(m)
	}

	for _, pat := range []*regexp.Regexp{zoomURLPattern, teamsURLPattern, webexURLPattern} {
		if m := pat.FindString(text); m != "" {
			p.VirtualURL = m
			break
		}
	}

	if m := meetingIDPattern.FindStringSubmatch(text); len(m) == 2 {
		p.MeetingID = strings.TrimSpace(m[1])
	}

	p.HybridOrVirtual = hybridPattern.MatchString(text) || p.VirtualURL != ""

	return p
}

// normalizePhone strips formatting and returns a US E.164-ish number
// (+1XXXXXXXXXX) when ten digits can be recovered, otherwise the
// original match untouched.
func normalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch len(d) {
	case 10:
		return "+1" + d
	case 11:
		if strings.HasPrefix(d, "1") {
			return "+" + d
		}
	}
	return raw
}
