package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/backend"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/quality"
)

// synthesizer turns subtopic summaries into the final report by walking the
// synthesis cascade cheapest tier first.
type synthesizer struct {
	gateway        *backend.Gateway
	chain          *ChainConfig
	minReportChars int
}

// synthesize walks the cascade and returns the first report that passes the
// substance gate, along with the tier that produced it.
func (s *synthesizer) synthesize(ctx context.Context, question string, summaries []string) (string, string, error) {
	prompt := synthesisPrompt(question, summaries)

	var lastErr error
	for _, step := range s.chain.Steps {
		if err := ctx.Err(); err != nil {
			return "", "", eris.Wrap(err, "synthesis")
		}

		stepPrompt := prompt
		if step.MaxPromptChars > 0 && len(stepPrompt) > step.MaxPromptChars {
			stepPrompt = stepPrompt[:step.MaxPromptChars]
		}

		report, err := s.gateway.Generate(ctx, step.Tier, backend.Request{
			Prompt:    stepPrompt,
			MaxTokens: step.MaxTokens,
			Check: func(text string) bool {
				return !quality.IsThinReport(text, s.minReportChars) &&
					!quality.IsPromptEcho(stepPrompt, text)
			},
		})
		if err != nil {
			lastErr = err
			zap.L().Warn("synthesis tier failed",
				zap.String("tier", step.Tier),
				zap.Error(err),
			)
			continue
		}
		return report, step.Tier, nil
	}

	if lastErr == nil {
		lastErr = eris.New("synthesis: cascade has no steps")
	}
	return "", "", lastErr
}

// citations renders the sources section appended to every report. Direct
// fallback answers are labelled as such rather than cited.
func citations(records []model.SubtopicRecord) string {
	var b strings.Builder
	b.WriteString("\n\n## Sources\n")
	for i, rec := range records {
		source := rec.UsedSource
		if source == "" || source == model.DirectFallback {
			source = "(answered from model knowledge, no source document)"
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, rec.Subtopic, source)
	}
	return b.String()
}

// escalationReport is produced when the pipeline could not assemble an
// acceptable report. It is explicit about what failed so a human can pick
// the run up.
func escalationReport(question string, reasons []string, records []model.SubtopicRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research incomplete: %s\n\n", question)
	b.WriteString("Automated synthesis did not produce an acceptable report. Review needed.\n\n## What went wrong\n")
	for _, reason := range reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	if len(records) > 0 {
		b.WriteString("\n## Partial findings\n")
		for _, rec := range records {
			if rec.Summary == "" {
				continue
			}
			fmt.Fprintf(&b, "\n### %s\n%s\n", rec.Subtopic, rec.Summary)
		}
	}
	return b.String()
}
