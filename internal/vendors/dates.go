package vendors

import (
	"strings"
	"time"
)

// dateLayouts mirrors the teacher's base adapter's format list: ISO
// variants first, then the US and verbose forms municipal calendar
// systems actually emit.
var dateLayouts = []string{
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 at 3:04 PM",
	"01/02/2006 3:04 PM",
	"01/02/2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate tries every known municipal timestamp format in turn.
// Returning the zero value for empty or unparseable input is
// intentional: a meeting with an unknown start time is still worth
// storing, just not worth failing the whole sync over.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
