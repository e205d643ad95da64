// Package sanitize validates URLs against the Netflix domain allow-list and
// rewrites email HTML into a form that is safe to render. Any ambiguity
// rejects; nothing here ever tries to repair a suspicious value.
package sanitize

import (
	"net/url"
	"strings"
)

// allowedDomains are Netflix-owned domains. A URL passes only when its host
// equals one of these or is a subdomain (dot-anchored suffix match).
var allowedDomains = []string{
	"netflix.com",
	"netflix.net",
	"nflxext.com",
	"nflximg.net",
	"nflxso.net",
	"nflxvideo.net",
}

// dangerousSubstrings are scanned against the decoded, lowercased URL.
// A single hit rejects the whole URL.
var dangerousSubstrings = []string{
	"javascript:",
	"data:",
	"vbscript:",
	"<script",
	"onerror",
	"onclick",
	"onload",
	"onmouseover",
}

// SanitizeURL validates raw and returns it trimmed, or ok=false if it fails
// any check. The returned string is always the original input (trimmed),
// never a rewritten form.
func SanitizeURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	lowered := strings.ToLower(trimmed)
	decoded, err := url.QueryUnescape(lowered)
	if err != nil {
		// Best effort: scan the raw lowercase form instead.
		decoded = lowered
	}
	for _, bad := range dangerousSubstrings {
		if strings.Contains(decoded, bad) {
			return "", false
		}
	}

	host := strings.ToLower(u.Hostname())
	if !hostAllowed(host) {
		return "", false
	}

	return trimmed, true
}

func hostAllowed(host string) bool {
	for _, domain := range allowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
