package quality

import "strings"

// Verdict is the reading of a yes/no judgement from free-form model text.
type Verdict int

const (
	// VerdictAmbiguous means the text committed to neither answer.
	VerdictAmbiguous Verdict = iota
	// VerdictAffirmative means the text leads with agreement.
	VerdictAffirmative
	// VerdictNegative means the text leads with refusal.
	VerdictNegative
)

func (v Verdict) String() string {
	switch v {
	case VerdictAffirmative:
		return "yes"
	case VerdictNegative:
		return "no"
	default:
		return "ambiguous"
	}
}

// InterpretVerdict reads a model's answer to a yes/no question. Only the
// leading token decides; a "yes" buried later in an explanation does not
// count. Models are prompted to answer with a bare yes or no, so anything
// else is ambiguous and the caller must choose a conservative default.
func InterpretVerdict(text string) Verdict {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	trimmed = strings.TrimLeft(trimmed, "\"'*")

	switch {
	case strings.HasPrefix(trimmed, "yes"):
		return VerdictAffirmative
	case strings.HasPrefix(trimmed, "no"):
		return VerdictNegative
	default:
		return VerdictAmbiguous
	}
}
