package leaderboard

import (
	"regexp"
	"strings"
)

// UnknownName is the sentinel for a card whose name could not be resolved.
// Such cards are treated as selector noise and skipped.
const UnknownName = "Unknown"

// cardSelectors is the discovery chain, strictest first. The first selector
// returning at least one element wins; extraction falls back to a raw div
// scan when the whole chain comes up empty.
var cardSelectors = []string{
	"div.p-4.transition",
	"div[class*='p-4'][class*='transition']",
	"div[class*='card']",
}

// nameSelectors locate the seller name inside a card before the rank-marker
// regex is tried against the card text.
var nameSelectors = []string{
	"span.font-semibold",
	"span[class*='name']",
	"h3",
}

// Names sit behind a "#<rank>" marker on the card's first line and are often
// decorated with trophy emoji; capture the plain run after the marker.
var rankNameRE = regexp.MustCompile(`#\d+\s*([^\n\x{1F000}-\x{1FFFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE0F}]+)`)

// detailPatterns match itemized sale lines, strictest first. Each captures
// (amount, invoice ID) on a single line of expanded card text. The first
// pattern that matches at least once wins and later ones are not tried.
var detailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Sale\s+of\s+Rs\.?\s*([\d,]+\.?\d*).*?Invoice\s+ID:\s*#?(\d+)`),
	regexp.MustCompile(`(?i)Rs\.?\s*([\d,]+\.?\d*).*?Invoice\s*ID\s*[:#]?\s*#?(\d+)`),
	regexp.MustCompile(`(?i)Rs\.?\s*([\d,]+\.?\d*).*?#(\d{5,})`),
}

// summaryRE matches the aggregate "N sales ... Rs. total" line shown on a
// card that never reveals itemized sales.
var summaryRE = regexp.MustCompile(`(?i)(\d+)\s+sales?\b.*?Rs\.?\s*([\d,]+\.?\d*)`)

// Detail is one (amount, invoice ID) pair captured from expanded card text.
type Detail struct {
	Amount    string
	InvoiceID string
}

// ExtractDetails runs the detail patterns over expanded card text and
// returns every capture of the first pattern that matched. Amounts are
// returned with thousands separators stripped. A nil result means no
// pattern matched.
func ExtractDetails(text string) []Detail {
	for _, pattern := range detailPatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		details := make([]Detail, 0, len(matches))
		for _, m := range matches {
			details = append(details, Detail{
				Amount:    strings.ReplaceAll(m[1], ",", ""),
				InvoiceID: m[2],
			})
		}
		return details
	}
	return nil
}

// ExtractSummary matches the aggregate sales line and returns the sale count
// and comma-stripped total amount.
func ExtractSummary(text string) (count, amount string, ok bool) {
	m := summaryRE.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.ReplaceAll(m[2], ",", ""), true
}

// NameFromText pulls the seller name out of a card's first line via the
// rank-marker regex. It returns UnknownName when the line has no rank
// marker or the captured run is empty.
func NameFromText(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	m := rankNameRE.FindStringSubmatch(line)
	if m == nil {
		return UnknownName
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return UnknownName
	}
	return name
}
