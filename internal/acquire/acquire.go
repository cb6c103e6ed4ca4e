package acquire

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/reputation"
	"github.com/sells-group/research-agent/internal/resilience"
	"github.com/sells-group/research-agent/pkg/reader"
)

// ErrNoneAcquired means every candidate was skipped or yielded unusable text.
var ErrNoneAcquired = eris.New("acquire: no candidate produced a usable document")

// DefaultMinDocumentChars is the floor below which fetched text is treated
// as an empty page.
const DefaultMinDocumentChars = 100

// Result is one successful acquisition.
type Result struct {
	Candidate model.SourceCandidate
	Text      string
}

// Fetcher walks ranked candidates through the reader service and returns the
// first document long enough to summarize. A breaker guards the reader so a
// dead extraction service fails the walk fast instead of once per URL.
type Fetcher struct {
	reader   reader.Client
	rep      *reputation.Store
	breaker  *resilience.CircuitBreaker
	minChars int
}

// NewFetcher creates a Fetcher. minChars <= 0 falls back to the default.
func NewFetcher(rc reader.Client, rep *reputation.Store, minChars int) *Fetcher {
	if minChars <= 0 {
		minChars = DefaultMinDocumentChars
	}
	return &Fetcher{
		reader:   rc,
		rep:      rep,
		breaker:  resilience.NewCircuitBreaker(5, time.Minute, 2*time.Minute),
		minChars: minChars,
	}
}

// TryAcquire fetches ranked candidates in order and returns the first usable
// document. Failed candidates cost their domain two reputation points. When
// the whole list is exhausted the remaining unfetched candidates are left
// untouched and ErrNoneAcquired is returned.
func (f *Fetcher) TryAcquire(ctx context.Context, ranked []model.SourceCandidate) (*Result, error) {
	for _, candidate := range ranked {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "acquire")
		}
		if f.rep.IsBlacklisted(candidate.Domain) {
			continue
		}
		if !f.breaker.Allow() {
			zap.L().Warn("reader circuit open, abandoning acquisition walk")
			return nil, eris.Wrap(resilience.ErrCircuitOpen, "acquire")
		}

		text, err := f.reader.Fetch(ctx, candidate.URL)
		if err != nil {
			f.breaker.RecordFailure()
			f.rep.Adjust(candidate.Domain, -2)
			zap.L().Debug("candidate fetch failed",
				zap.String("url", candidate.URL),
				zap.Error(err),
			)
			continue
		}
		f.breaker.RecordSuccess()

		if len(text) < f.minChars {
			f.rep.Adjust(candidate.Domain, -2)
			zap.L().Debug("candidate document too short",
				zap.String("url", candidate.URL),
				zap.Int("chars", len(text)),
			)
			continue
		}

		return &Result{Candidate: candidate, Text: text}, nil
	}
	return nil, ErrNoneAcquired
}
