package analysis

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/pkg/textanalytics"
)

type fakeAnalytics struct {
	similarity float64
	simErr     error
	analyzeErr error
}

func (f *fakeAnalytics) Similarity(context.Context, string, string) (float64, error) {
	return f.similarity, f.simErr
}

func (f *fakeAnalytics) Analyze(_ context.Context, text string) (*textanalytics.Analysis, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &textanalytics.Analysis{
		Keywords:  []string{"freight", "electrification"},
		Sentiment: 0.4,
		Entities: textanalytics.Entities{
			Organizations: []string{"Example Rail Co"},
		},
	}, nil
}

func TestAnalyzeFullBundle(t *testing.T) {
	a := NewAnalyzer(&fakeAnalytics{similarity: 0.7})

	out := a.Analyze(context.Background(), []string{"summary one", "summary two"}, "the report")
	require.NotNil(t, out)

	assert.Equal(t, []float64{0.7, 0.7}, out.Similarities)
	assert.Equal(t, []float64{0.4, 0.4}, out.SummarySentiment)
	assert.Equal(t, 0.4, out.ReportSentiment)
	assert.Equal(t, []string{"freight", "electrification"}, out.ReportKeywords)
	assert.Equal(t, []string{"Example Rail Co"}, out.Entities.Organizations)
}

func TestAnalyzeDegradesOnServiceFailure(t *testing.T) {
	a := NewAnalyzer(&fakeAnalytics{
		simErr:     eris.New("service down"),
		analyzeErr: eris.New("service down"),
	})

	out := a.Analyze(context.Background(), []string{"summary"}, "the report")
	require.NotNil(t, out)

	assert.Equal(t, []float64{0}, out.Similarities)
	assert.Equal(t, []float64{0}, out.SummarySentiment)
	assert.Zero(t, out.ReportSentiment)
	assert.Empty(t, out.ReportKeywords)
}

func TestAnalyzeNoSummaries(t *testing.T) {
	a := NewAnalyzer(&fakeAnalytics{similarity: 0.9})

	out := a.Analyze(context.Background(), nil, "the report")
	require.NotNil(t, out)
	assert.Empty(t, out.Similarities)
	assert.Equal(t, 0.4, out.ReportSentiment)
}
