// Package filters holds the precompiled regex rules that decide which
// agenda items and attachments are worth an adapter's time to save, a
// processor's time to summarize, or an LLM's token budget to read.
package filters

import "regexp"

// meetingSkipPatterns catches test/demo/training meetings that shouldn't
// be synced at all.
var meetingSkipPatterns = compileAll([]string{
	`\bmock\b`,
	`\btest\b`,
	`\bdemo\b`,
	`\btraining\b`,
	`\bpractice\b`,
})

// adapterSkipPatterns mark items with zero metadata value — not worth saving.
var adapterSkipPatterns = compileAll([]string{
	`roll call`,
	`invocation`,
	`pledge of allegiance`,
	`approval of (minutes|agenda)`,
	`approval of.*minutes`,
	`approve the minutes`,
	`adopt minutes`,
	`review of minutes`,
	`^minutes of`,
	`draft.*minutes`,
	`adjourn`,
	`public comment`,
	`communications`,
	`time fixed for next`,
	`identify items (to|for)`,
	`meeting schedule for`,
})

// processorSkipPatterns mark items worth saving but not worth an LLM call:
// ceremonial, appointment, and low-value administrative business.
var processorSkipPatterns = compileAll([]string{
	`proclamation`,
	`commendation`,
	`recognition`,
	`ceremonial`,
	`congratulations (to|extended to|for)`,
	`tribute to (late|the late)`,
	`\bon (his|her|their) retirement\b`,
	`retirement of`,
	`happy birthday`,
	`birthday (wishes|greetings|recognition|celebration)`,
	`appointment`,
	`confirmation`,
	`liquor license`,
	`beer (and|&) wine license`,
	`alcoholic beverage license`,
	`issuance of permits? for sign`,
	`signboard permit`,
	`fee waiver for`,
	`(various )?small claims?`,
})

var publicCommentPatterns = []string{
	`public comment`,
	`public correspondence`,
	`comment letter`,
	`comment ltrs`,
	`written comment`,
	`public hearing comment`,
	`citizen comment`,
	`correspondence received`,
	`public input`,
	`public testimony`,
	`letters received`,
	`petitions`,
	`pub corr`,
	`pulbic corr`,
	`comm pkt`,
	`cmte pkt`,
	`committee packet`,
	`board pkt`,
	`co-?sponsor(ship)?\s*(request|ltr|letter)`,
	`sponsor(ship)?\s*request`,
}

var parcelTablePatterns = []string{
	`parcel table`,
	`parcel list`,
	`parcel map`,
	`tax parcel`,
	`property list`,
	`property table`,
	`assessor`,
	`apn list`,
	`parcel number`,
}

var boilerplateContractPatterns = []string{
	`omnia partners contract`,
	`sourcewell contract`,
	`naspo valuepoint`,
	`u\.?s\.? communities`,
	`hgac.?buy`,
	`master agreement`,
	`terms and conditions`,
	`general conditions`,
	`insurance certificate`,
	`certificate of insurance`,
	`w-?9`,
	`bid tabulation`,
}

var sfProceduralPatterns = []string{
	`ceqa det`,
	`ceqa determination`,
	`referral ceqa`,
	`referral fyi`,
	`myr memo`,
	`mayor.?s? memo`,
	`comm rpt rqst`,
	`committee report request`,
	`referral.*pc\b`,
	`hearing notice`,
}

var eirPatterns = []string{
	`\bfeir\b`,
	`\bdeir\b`,
	`\bseir\b`,
	`\beir\b`,
	`environmental impact report`,
	`ceqa findings`,
	`initial study`,
	`negative declaration`,
	`notice of preparation`,
}

var attachmentSkipPatterns = compileAll(concat(
	publicCommentPatterns,
	parcelTablePatterns,
	boilerplateContractPatterns,
	sfProceduralPatterns,
	eirPatterns,
))

// skipMatterTypes are administrative, non-legislative matter types.
var skipMatterTypes = []string{
	"minutes (min)",
	"introduction & referral calendar (irc)",
	"information item (inf)",
	"minutes",
	"min",
	"irc",
	"inf",
	"information",
	"referral calendar",
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
