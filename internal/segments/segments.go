// Package segments turns a raw email body into an ordered sequence of
// displayable segments: the action links first, then a single cleaned (and
// optionally translated) text block.
package segments

import (
	"context"
	"regexp"
	"strings"

	"nfxcode/internal/links"
)

// Translator converts text to a target language on a best-effort basis.
// Implementations must never fail: on any problem they return the input
// unchanged.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) string
}

// Segment is one unit of renderable content. Type is "link" or "text".
type Segment struct {
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
	URL    string `json:"url,omitempty"`
	IsMain bool   `json:"isMain,omitempty"`
	Value  string `json:"value,omitempty"`
}

const (
	TypeLink = "link"
	TypeText = "text"
)

var hrefScanRe = regexp.MustCompile(`(?is)href\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// droppedLinkPatterns discard links before any other filtering.
var droppedLinkPatterns = []string{
	"unsubscribe",
	"mailto:",
	"help.netflix",
	"notification",
}

// actionIndicators keep a netflix.com link only when it carries at least one
// of these. A link that survives is by definition an action link for this
// consumer, hence IsMain is always true on the produced segments (the
// classifier's own advisory boolean is not consulted here).
var actionIndicators = []string{
	"/account",
	"/password",
	"/loginhelp",
	"/dnr",
	"/e/",
	"YesItWasMe",
	"NotMe",
	"nflink",
	"travel",
}

// ToSegments extracts the action links from html, derives a cleaned text
// body (preferring text, falling back to html), translates it to targetLang
// and returns the link segments followed by the trailing text segment, if
// any. Link order follows first appearance in the HTML; duplicates are
// dropped.
func ToSegments(ctx context.Context, html, text string, tr Translator, targetLang string) []Segment {
	var out []Segment

	for _, u := range extractActionLinks(html) {
		out = append(out, Segment{
			Type:   TypeLink,
			Label:  links.Label(u),
			URL:    u,
			IsMain: true,
		})
	}

	body := text
	if body == "" {
		body = htmlToText(html)
	}
	body = cleanBodyText(body)

	if body != "" {
		if tr != nil {
			body = tr.Translate(ctx, body, targetLang)
		}
		out = append(out, Segment{Type: TypeText, Value: body})
	}

	return out
}

// extractActionLinks scans href attributes (no full HTML parse), decodes the
// &amp; entity, drops noise, deduplicates and keeps only Netflix action
// links, in order of first appearance.
func extractActionLinks(html string) []string {
	seen := make(map[string]struct{})
	var kept []string

	for _, m := range hrefScanRe.FindAllStringSubmatch(html, -1) {
		u := m[1]
		if u == "" {
			u = m[2]
		}
		u = strings.ReplaceAll(u, "&amp;", "&")
		if u == "" {
			continue
		}

		if isDroppedLink(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		if !strings.Contains(u, "netflix.com") {
			continue
		}
		if !hasActionIndicator(u) {
			continue
		}
		kept = append(kept, u)
	}

	return kept
}

func isDroppedLink(u string) bool {
	lower := strings.ToLower(u)
	for _, p := range droppedLinkPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasActionIndicator(u string) bool {
	for _, p := range actionIndicators {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}
