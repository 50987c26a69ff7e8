package filters

import "strings"

// ShouldSkipMeeting reports whether an entire meeting is a test/demo/training
// placeholder that shouldn't be synced.
func ShouldSkipMeeting(title string) bool {
	return anyMatch(meetingSkipPatterns, title)
}

// ShouldSkipItem reports whether an agenda item carries zero metadata value
// and should be dropped entirely by the adapter (never stored).
func ShouldSkipItem(title, itemType string) bool {
	combined := strings.ToLower(title + " " + itemType)
	return anyMatch(adapterSkipPatterns, combined)
}

// ShouldSkipProcessing reports whether an item should be stored but never
// sent to the summarizer — ceremonial, appointment, or low-value business.
func ShouldSkipProcessing(title, itemType string) bool {
	combined := strings.ToLower(title + " " + itemType)
	return anyMatch(processorSkipPatterns, combined)
}

// ShouldSkipMatter reports whether a matter type is administrative/procedural
// and should be excluded from matter tracking. Reserved for matter-level
// tracking once that feature lands; not yet called.
func ShouldSkipMatter(matterType string) bool {
	if matterType == "" {
		return false
	}
	lower := strings.ToLower(matterType)
	for _, skip := range skipMatterTypes {
		if strings.Contains(lower, skip) {
			return true
		}
	}
	return false
}

// IsLowValueAttachment reports whether an attachment name matches one of the
// low-value categories (public comment correspondence, parcel tables,
// cooperative-purchasing boilerplate, SF procedural stubs, EIRs) that should
// be excluded from the text fed to the LLM. Reserved for per-attachment
// filtering once attachment text is extracted individually; not yet called.
func IsLowValueAttachment(name string) bool {
	return anyMatch(attachmentSkipPatterns, strings.ToLower(name))
}
