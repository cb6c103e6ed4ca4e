// Package acquire turns ranked source candidates into usable document text.
// Candidate URLs arrive from model output and are messy; cleaning and the
// first-success fetch walk both live here.
package acquire

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/research-agent/internal/model"
)

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\)\]]+`)

// ExtractURLs pulls http(s) URLs out of free-form model text, deduplicates
// them in order of first appearance, and caps the result at max entries.
// max <= 0 means no cap.
func ExtractURLs(text string, max int) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, raw := range matches {
		cleaned, ok := CleanURL(raw)
		if !ok || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// CleanURL strips the markdown and punctuation artifacts model output leaves
// around links and rejects URLs that are not worth a fetch.
func CleanURL(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "[(<")
	s = strings.TrimRight(s, ".,;:!?")
	s = strings.TrimRight(s, ")]>")

	// Markdown link text glued to the URL: "text](https://..." keeps only
	// the address part.
	if i := strings.LastIndex(s, "]("); i >= 0 {
		s = s[i+2:]
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", false
	}

	// Search engine error interstitials are dead ends.
	if strings.Contains(s, "/error.htm?URL=") {
		return "", false
	}

	parsed, err := url.Parse(s)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return s, true
}

// Domain extracts the registrable host from a URL, dropping a leading
// "www." so reputation aggregates per site.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Candidates converts cleaned URLs into source candidates, skipping any
// whose domain cannot be determined.
func Candidates(urls []string) []model.SourceCandidate {
	out := make([]model.SourceCandidate, 0, len(urls))
	for _, u := range urls {
		domain := Domain(u)
		if domain == "" {
			continue
		}
		out = append(out, model.SourceCandidate{URL: u, Domain: domain})
	}
	return out
}
