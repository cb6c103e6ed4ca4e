// Package analysis computes the post-synthesis analytics bundle: how well
// each subtopic summary correlates with the final report, plus sentiment,
// keywords and named entities. Analytics never fail a run; a dead feature
// service just leaves gaps in the bundle.
package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/textanalytics"
)

// Analyzer derives the analytics bundle for a finished run.
type Analyzer struct {
	client textanalytics.Client
}

// NewAnalyzer creates an Analyzer over the feature service client.
func NewAnalyzer(client textanalytics.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze computes similarities for each summary against the report along
// with the rest of the bundle. Individual service failures degrade to zero
// values rather than aborting.
func (a *Analyzer) Analyze(ctx context.Context, summaries []string, report string) *model.Analysis {
	out := &model.Analysis{
		Similarities:     make([]float64, len(summaries)),
		SummarySentiment: make([]float64, len(summaries)),
		SummaryKeywords:  make([][]string, len(summaries)),
	}

	for i, summary := range summaries {
		if ctx.Err() != nil {
			return out
		}

		sim, err := a.client.Similarity(ctx, summary, report)
		if err != nil {
			zap.L().Warn("similarity unavailable", zap.Int("summary", i), zap.Error(err))
		} else {
			out.Similarities[i] = sim
		}

		features, err := a.client.Analyze(ctx, summary)
		if err != nil {
			zap.L().Warn("summary analysis unavailable", zap.Int("summary", i), zap.Error(err))
			continue
		}
		out.SummarySentiment[i] = features.Sentiment
		out.SummaryKeywords[i] = features.Keywords
	}

	features, err := a.client.Analyze(ctx, report)
	if err != nil {
		zap.L().Warn("report analysis unavailable", zap.Error(err))
		return out
	}
	out.ReportSentiment = features.Sentiment
	out.ReportKeywords = features.Keywords
	out.Entities = model.EntityGroups{
		People:        features.Entities.People,
		Organizations: features.Entities.Organizations,
		Places:        features.Entities.Places,
	}
	return out
}

// Similarity exposes the raw pairwise correlation for callers that only
// need the reputation feedback signal.
func (a *Analyzer) Similarity(ctx context.Context, summary, report string) (float64, error) {
	return a.client.Similarity(ctx, summary, report)
}
