// Package links decides what kind of link a Netflix email URL is. The
// promotional denylist is checked before the action allow-list, so a URL
// matching both is never treated as a call-to-action. Labels come from an
// independent path-prefix table and do not depend on that judgment.
package links

import "strings"

// Classification is the advisory judgment for a single URL. The segment
// pipeline pre-filters to action links and does not consult IsMain; it is
// kept for callers that classify unfiltered URLs.
type Classification struct {
	IsMain bool
	Label  string
}

// promotionalPatterns mark navigational and marketing noise. First match
// wins and short-circuits the action check.
var promotionalPatterns = []string{
	"/browse",
	"/title/",
	"/watch/",
	"/marketing",
	"/legal/",
	"/privacy",
	"/termsofuse",
	"unsubscribe",
	"mailto:",
	"help.netflix.com",
	"media.netflix.com",
}

// actionPatterns mark primary call-to-action links: device verification,
// travel codes, password reset and the short-link paths Netflix uses in
// verification mail.
var actionPatterns = []string{
	"/account/travel",
	"/account/update",
	"/account/confirm",
	"/account/verify",
	"/password",
	"/loginhelp",
	"device-confirm",
	"yesitwasme",
	"yes-it-was-me",
	"yes_it_was_me",
	"notme",
	"verify",
	"confirm",
	"reset",
	"signin",
	"nflink",
	"/dnr/",
	"/e/",
}

// labelRules map a URL to its display label. Ordered, first match wins.
var labelRules = []struct {
	pattern string
	label   string
}{
	{"travel", "Get Code"},
	{"account", "Go to Account"},
	{"password", "Change Password"},
	{"help", "Help Center"},
	{"netflix", "Open Netflix"},
}

const defaultLabel = "Open Link"

// Classify returns the main/promotional judgment and label for url.
func Classify(url string) Classification {
	return Classification{
		IsMain: isMainAction(url),
		Label:  Label(url),
	}
}

func isMainAction(url string) bool {
	lower := strings.ToLower(url)
	for _, p := range promotionalPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	for _, p := range actionPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Label returns the human label for url, independent of classification.
func Label(url string) string {
	lower := strings.ToLower(url)
	for _, rule := range labelRules {
		if strings.Contains(lower, rule.pattern) {
			return rule.label
		}
	}
	return defaultLabel
}
