package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/acquire"
	"github.com/sells-group/research-agent/internal/analysis"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/reputation"
)

// applyFeedback rewards or penalizes source domains by how well their
// summary correlates with the final report. Direct fallback answers carry
// no source and are skipped. Similarities are recorded on the records for
// the analytics bundle.
func applyFeedback(
	ctx context.Context,
	an *analysis.Analyzer,
	rep *reputation.Store,
	records []model.SubtopicRecord,
	report string,
	threshold float64,
) {
	for i := range records {
		rec := &records[i]
		if rec.Summary == "" {
			continue
		}

		sim, err := an.Similarity(ctx, rec.Summary, report)
		if err != nil {
			zap.L().Warn("similarity feedback unavailable",
				zap.String("subtopic", rec.Subtopic),
				zap.Error(err),
			)
			continue
		}
		rec.Similarity = sim

		if rec.UsedSource == "" || rec.UsedSource == model.DirectFallback {
			continue
		}
		domain := acquire.Domain(rec.UsedSource)
		if sim >= threshold {
			rep.Adjust(domain, 1)
		} else {
			rep.Adjust(domain, -1)
		}
	}
}
