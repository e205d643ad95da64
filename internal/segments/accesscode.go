package segments

import "regexp"

var (
	labeledCodeRe = regexp.MustCompile(`(?i)(?:code|verification)[^0-9]{0,20}(\d{4})\b`)
	bareCodeRe    = regexp.MustCompile(`\b(\d{4})\b`)
)

// ExtractAccessCode scans the combined text and HTML body for a 4-digit
// access code. A digit group preceded by "code" or "verification" wins over
// a bare 4-digit sequence. Returns "" when nothing matches.
func ExtractAccessCode(text, html string) string {
	combined := text + "\n" + html

	if m := labeledCodeRe.FindStringSubmatch(combined); m != nil {
		return m[1]
	}
	if m := bareCodeRe.FindStringSubmatch(combined); m != nil {
		return m[1]
	}
	return ""
}
