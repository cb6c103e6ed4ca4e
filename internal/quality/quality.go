// Package quality holds the text heuristics that gate pipeline output:
// whether a summary is worth keeping, whether a report is substantial
// enough to ship, and how to read a yes/no judgement out of model text.
package quality

import "strings"

// Default gate thresholds. The pipeline overrides these from configuration.
const (
	DefaultMinSummaryChars = 60
	DefaultMinReportChars  = 300
)

// badSummaryPhrases flag summaries that are refusals or boilerplate rather
// than content. Matching is case-insensitive substring.
var badSummaryPhrases = []string{
	"irrelevant",
	"unhelpful",
	"not found",
	"cannot summarize",
	"no information",
	"insufficient",
	"missing",
	"error",
	"sorry",
	"does not contribute",
}

// IsLowQualitySummary reports whether a summary is too short or contains a
// refusal phrase. minChars <= 0 falls back to the default.
func IsLowQualitySummary(summary string, minChars int) bool {
	if minChars <= 0 {
		minChars = DefaultMinSummaryChars
	}
	trimmed := strings.TrimSpace(summary)
	if len(trimmed) < minChars {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range badSummaryPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsThinReport reports whether a synthesized report is too short to be a
// real answer. minChars <= 0 falls back to the default.
func IsThinReport(report string, minChars int) bool {
	if minChars <= 0 {
		minChars = DefaultMinReportChars
	}
	return len(strings.TrimSpace(report)) < minChars
}

// IsPromptEcho reports whether generated text is mostly a restatement of the
// prompt, which local models sometimes produce instead of an answer. It
// checks whether the output is a prefix of the prompt or vice versa after
// normalization.
func IsPromptEcho(prompt, output string) bool {
	p := normalize(prompt)
	o := normalize(output)
	if o == "" {
		return true
	}
	if len(o) >= len(p) {
		return strings.HasPrefix(o, p) && len(o)-len(p) < len(p)/4
	}
	return strings.HasPrefix(p, o)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
