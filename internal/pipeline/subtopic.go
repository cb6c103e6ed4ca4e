package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/acquire"
	"github.com/sells-group/research-agent/internal/backend"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/quality"
	"github.com/sells-group/research-agent/internal/reputation"
)

// subtopicResearcher runs the evidence loop for a single subtopic: discover
// candidate sources, fetch one, summarize it, judge sufficiency, and retry
// down the candidate list until the budget runs out.
type subtopicResearcher struct {
	gateway *backend.Gateway
	fetcher *acquire.Fetcher
	rep     *reputation.Store

	tiers           []string
	maxAttempts     int
	maxCandidates   int
	minSummaryChars int
}

// discover asks the backends for candidate URLs and ranks them by domain
// reputation. An empty result is not an error; the loop falls back to a
// direct answer.
func (r *subtopicResearcher) discover(ctx context.Context, subtopic string) []model.SourceCandidate {
	text, _, err := r.gateway.GenerateFirst(ctx, r.tiers, backend.Request{
		Prompt: discoverSourcesPrompt(subtopic, r.maxCandidates),
	})
	if err != nil {
		zap.L().Warn("source discovery failed", zap.String("subtopic", subtopic), zap.Error(err))
		return nil
	}

	urls := acquire.ExtractURLs(text, r.maxCandidates)
	return r.rep.Rank(acquire.Candidates(urls))
}

// research runs the full loop for one subtopic and always returns a record,
// degraded if necessary. It only errors when the context is done.
func (r *subtopicResearcher) research(ctx context.Context, subtopic string) (*model.SubtopicRecord, error) {
	record := &model.SubtopicRecord{Subtopic: subtopic}
	record.Candidates = r.discover(ctx, subtopic)
	remaining := record.Candidates

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "subtopic research")
		}
		record.Attempts = attempt

		source, document := r.acquireNext(ctx, &remaining)

		summary, err := r.summarize(ctx, subtopic, source, document)
		if err != nil {
			// A document that only produces gate-failing summaries is a
			// rejection of its source like any other.
			r.rep.Adjust(acquire.Domain(source), -1)
			zap.L().Warn("summarization failed",
				zap.String("subtopic", subtopic),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		record.UsedSource = source
		record.Summary = summary

		verdict := r.judge(ctx, subtopic, summary)
		record.Verdict = verdict.String()

		domain := acquire.Domain(source)
		if verdict == quality.VerdictAffirmative {
			r.rep.Adjust(domain, 1)
			return record, nil
		}
		r.rep.Adjust(domain, -1)
		// Once a retry has happened, a wishy-washy verdict is good enough;
		// only a clear no keeps burning attempts.
		if attempt > 1 && verdict == quality.VerdictAmbiguous {
			return record, nil
		}
		zap.L().Info("summary judged insufficient, retrying",
			zap.String("subtopic", subtopic),
			zap.Int("attempt", attempt),
			zap.String("verdict", record.Verdict),
		)
	}

	// Budget exhausted. Keep the best-effort summary but flag it.
	record.Insufficient = true
	if record.Summary == "" {
		record.Summary = insufficiencyMarker(subtopic)
		record.UsedSource = model.DirectFallback
	} else {
		record.Summary += "\n" + insufficiencyMarker(subtopic)
	}
	return record, nil
}

// acquireNext fetches the next usable document, consuming candidates from
// the remaining list. When the list is exhausted it returns the direct
// fallback with no document.
func (r *subtopicResearcher) acquireNext(ctx context.Context, remaining *[]model.SourceCandidate) (string, string) {
	if len(*remaining) == 0 {
		return model.DirectFallback, ""
	}

	res, err := r.fetcher.TryAcquire(ctx, *remaining)
	if err != nil {
		*remaining = nil
		return model.DirectFallback, ""
	}

	for i, c := range *remaining {
		if c.URL == res.Candidate.URL {
			*remaining = (*remaining)[i+1:]
			break
		}
	}
	return res.Candidate.URL, res.Text
}

// summarize produces the subtopic summary, from the document when one was
// acquired or from general knowledge on the direct fallback.
func (r *subtopicResearcher) summarize(ctx context.Context, subtopic, source, document string) (string, error) {
	prompt := summarizePrompt(subtopic, document)
	if source == model.DirectFallback {
		prompt = directAnswerPrompt(subtopic)
	}

	text, _, err := r.gateway.GenerateFirst(ctx, r.tiers, backend.Request{
		Prompt: prompt,
		Check: func(text string) bool {
			return !quality.IsLowQualitySummary(text, r.minSummaryChars)
		},
	})
	return text, err
}

// judge asks a backend whether the summary addresses the subtopic. Anything
// other than a clear yes counts against the source.
func (r *subtopicResearcher) judge(ctx context.Context, subtopic, summary string) quality.Verdict {
	text, _, err := r.gateway.GenerateFirst(ctx, r.tiers, backend.Request{
		Prompt: sufficiencyPrompt(subtopic, summary),
	})
	if err != nil {
		zap.L().Warn("sufficiency check failed", zap.String("subtopic", subtopic), zap.Error(err))
		return quality.VerdictAmbiguous
	}
	return quality.InterpretVerdict(text)
}
