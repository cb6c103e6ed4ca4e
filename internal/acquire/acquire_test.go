package acquire

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/reputation"
)

type fakeReader struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeReader) Fetch(_ context.Context, targetURL string) (string, error) {
	f.fetched = append(f.fetched, targetURL)
	text, ok := f.pages[targetURL]
	if !ok {
		return "", eris.Errorf("fetch failed for %s", targetURL)
	}
	return text, nil
}

func longDoc() string {
	return strings.Repeat("substantive document content. ", 10)
}

func TestTryAcquireFirstSuccess(t *testing.T) {
	rd := &fakeReader{pages: map[string]string{
		"https://a.example/x": longDoc(),
		"https://b.example/y": longDoc(),
	}}
	rep := reputation.NewStore(nil, nil, 0)
	f := NewFetcher(rd, rep, 0)

	res, err := f.TryAcquire(context.Background(), []model.SourceCandidate{
		{URL: "https://a.example/x", Domain: "a.example"},
		{URL: "https://b.example/y", Domain: "b.example"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a.example", res.Candidate.Domain)
	assert.Equal(t, []string{"https://a.example/x"}, rd.fetched)
}

func TestTryAcquireSkipsFailedAndPenalizes(t *testing.T) {
	rd := &fakeReader{pages: map[string]string{
		"https://b.example/y": longDoc(),
	}}
	rep := reputation.NewStore(nil, nil, 0)
	f := NewFetcher(rd, rep, 0)

	res, err := f.TryAcquire(context.Background(), []model.SourceCandidate{
		{URL: "https://a.example/x", Domain: "a.example"},
		{URL: "https://b.example/y", Domain: "b.example"},
	})
	require.NoError(t, err)
	assert.Equal(t, "b.example", res.Candidate.Domain)
	assert.Equal(t, -2, rep.Score("a.example"))
	assert.Equal(t, 0, rep.Score("b.example"))
}

func TestTryAcquireRejectsShortDocuments(t *testing.T) {
	rd := &fakeReader{pages: map[string]string{
		"https://a.example/x": "tiny page",
	}}
	rep := reputation.NewStore(nil, nil, 0)
	f := NewFetcher(rd, rep, 0)

	_, err := f.TryAcquire(context.Background(), []model.SourceCandidate{
		{URL: "https://a.example/x", Domain: "a.example"},
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoneAcquired))
	assert.Equal(t, -2, rep.Score("a.example"))
}

func TestTryAcquireSkipsBlacklisted(t *testing.T) {
	rd := &fakeReader{pages: map[string]string{
		"https://bad.example/x":  longDoc(),
		"https://good.example/y": longDoc(),
	}}
	rep := reputation.NewStore(nil, []string{"bad.example"}, 0)
	f := NewFetcher(rd, rep, 0)

	res, err := f.TryAcquire(context.Background(), []model.SourceCandidate{
		{URL: "https://bad.example/x", Domain: "bad.example"},
		{URL: "https://good.example/y", Domain: "good.example"},
	})
	require.NoError(t, err)
	assert.Equal(t, "good.example", res.Candidate.Domain)
	assert.NotContains(t, rd.fetched, "https://bad.example/x")
}

func TestTryAcquireExhaustion(t *testing.T) {
	rd := &fakeReader{pages: map[string]string{}}
	rep := reputation.NewStore(nil, nil, 0)
	f := NewFetcher(rd, rep, 0)

	_, err := f.TryAcquire(context.Background(), []model.SourceCandidate{
		{URL: "https://a.example/x", Domain: "a.example"},
		{URL: "https://b.example/y", Domain: "b.example"},
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoneAcquired))
	assert.Equal(t, -2, rep.Score("a.example"))
	assert.Equal(t, -2, rep.Score("b.example"))
}

func TestTryAcquireEmptyList(t *testing.T) {
	f := NewFetcher(&fakeReader{}, reputation.NewStore(nil, nil, 0), 0)
	_, err := f.TryAcquire(context.Background(), nil)
	assert.True(t, eris.Is(err, ErrNoneAcquired))
}

func TestTryAcquireCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(&fakeReader{}, reputation.NewStore(nil, nil, 0), 0)
	_, err := f.TryAcquire(ctx, []model.SourceCandidate{
		{URL: "https://a.example/x", Domain: "a.example"},
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled))
}
