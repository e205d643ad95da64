package segments

import (
	"regexp"
	"strings"
)

var (
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	anchorTextRe  = regexp.MustCompile(`(?is)<a\b[^>]*>(.*?)</a>`)
	lineBreakRe   = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</tr>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	numEntityRe   = regexp.MustCompile(`&#x?[0-9a-fA-F]+;`)

	bareURLRe    = regexp.MustCompile(`https?://\S+`)
	hwsRunRe     = regexp.MustCompile(`[ \t]+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// entityReplacer decodes the six common HTML entities. Numeric entities are
// dropped afterwards, not decoded.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
)

// htmlToText derives a plain-text body from HTML when the message carries no
// text/plain part: style and script blocks go away, anchors collapse to
// their inner text, structural closers become newlines, remaining tags are
// stripped and common entities decoded.
func htmlToText(html string) string {
	s := styleBlockRe.ReplaceAllString(html, "")
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = anchorTextRe.ReplaceAllString(s, "$1")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = numEntityRe.ReplaceAllString(s, "")
	return s
}

// cleanBodyText strips bare URLs, collapses horizontal whitespace runs and
// 3+ newlines down to a blank line, and trims.
func cleanBodyText(s string) string {
	s = bareURLRe.ReplaceAllString(s, "")
	s = hwsRunRe.ReplaceAllString(s, " ")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
