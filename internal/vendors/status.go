package vendors

import "strings"

// statusKeywords maps a lowercase title/time keyword to the canonical
// Meeting.status value spec.md §3 defines. Checked in this order so that
// "cancelled and rescheduled" resolves to the first keyword encountered.
var statusKeywords = []struct {
	keyword string
	status  string
}{
	{"cancelled", "cancelled"},
	{"canceled", "cancelled"},
	{"postponed", "postponed"},
	{"rescheduled", "rescheduled"},
	{"revised", "revised"},
	{"amended", "revised"},
	{"deferred", "deferred"},
}

// ParseStatus extracts a meeting status keyword from a title (or combined
// title+time string), matching the teacher base adapter's status-keyword
// parser. Returns "" when no keyword is present — a plain, on-schedule
// meeting.
func ParseStatus(title string) string {
	lower := strings.ToLower(title)
	for _, sk := range statusKeywords {
		if strings.Contains(lower, sk.keyword) {
			return sk.status
		}
	}
	return ""
}
