package sanitize

import (
	"regexp"
	"strings"
)

// WrapperClass marks the containing element so the renderer knows the HTML
// inside has already been through sanitization.
const WrapperClass = "nfx-sanitized-email"

// actionStyle is merged into anchors that carry the primary call-to-action,
// so they render as a button even when the mail client strips stylesheets.
const actionStyle = "display:inline-block;background-color:#e50914;color:#ffffff;" +
	"padding:12px 24px;border-radius:4px;text-decoration:none;font-weight:bold"

var (
	scriptRe     = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	openScriptRe = regexp.MustCompile(`(?is)<script\b.*$`)
	anchorRe     = regexp.MustCompile(`(?is)<a\b[^>]*>`)
	hrefRe   = regexp.MustCompile(`(?is)href\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	targetRe = regexp.MustCompile(`(?is)\s+target\s*=\s*(?:"[^"]*"|'[^']*')`)
	relRe    = regexp.MustCompile(`(?is)\s+rel\s*=\s*(?:"[^"]*"|'[^']*')`)
	styleRe  = regexp.MustCompile(`(?is)style\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// identityPatterns mark "yes it was me" confirmation links.
var identityPatterns = []string{"yesitwasme", "yes-it-was-me", "yes_it_was_me"}

// StyleForDisplay strips script blocks and rewrites every anchor whose href
// survives SanitizeURL. Action links (identity confirmation, temporary travel
// access) get the button style; every rewritten anchor gets
// target="_blank" rel="noopener noreferrer". Anchors whose href fails
// sanitization are left byte-for-byte untouched. The result is wrapped in a
// single container div carrying WrapperClass.
func StyleForDisplay(html string) string {
	if strings.TrimSpace(html) == "" {
		return html
	}

	out := scriptRe.ReplaceAllString(html, "")
	// An unclosed <script> makes everything after it script content.
	out = openScriptRe.ReplaceAllString(out, "")

	out = anchorRe.ReplaceAllStringFunc(out, func(tag string) string {
		m := hrefRe.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		href := m[1]
		if href == "" {
			href = m[2]
		}
		href = strings.ReplaceAll(href, "&amp;", "&")

		clean, ok := SanitizeURL(href)
		if !ok {
			// Don't touch what we can't verify.
			return tag
		}

		rewritten := hrefRe.ReplaceAllLiteralString(tag, `href="`+clean+`"`)
		if isActionURL(clean) {
			rewritten = mergeStyle(rewritten, actionStyle)
		}
		return forceTargetRel(rewritten)
	})

	return `<div class="` + WrapperClass + `">` + out + `</div>`
}

// isActionURL reports whether a sanitized URL is a primary call-to-action:
// an identity confirmation link or a temporary travel access link.
func isActionURL(u string) bool {
	lower := strings.ToLower(u)
	for _, p := range identityPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return strings.Contains(lower, "travel") && strings.Contains(lower, "temporary")
}

// mergeStyle appends extra declarations to an existing style attribute, or
// adds one when the tag has none.
func mergeStyle(tag, style string) string {
	if m := styleRe.FindStringSubmatch(tag); m != nil {
		existing := m[1]
		if existing == "" {
			existing = m[2]
		}
		merged := strings.TrimRight(strings.TrimSpace(existing), ";")
		if merged != "" {
			merged += ";"
		}
		return styleRe.ReplaceAllLiteralString(tag, `style="`+merged+style+`"`)
	}
	return strings.TrimSuffix(tag, ">") + ` style="` + style + `">`
}

func forceTargetRel(tag string) string {
	tag = targetRe.ReplaceAllString(tag, "")
	tag = relRe.ReplaceAllString(tag, "")
	return strings.TrimSuffix(tag, ">") + ` target="_blank" rel="noopener noreferrer">`
}
