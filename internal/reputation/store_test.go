package reputation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/model"
)

func TestScoreDefaultsToZero(t *testing.T) {
	s := NewStore(nil, nil, 0)
	assert.Equal(t, 0, s.Score("never-seen.example"))
}

func TestAdjustAccumulates(t *testing.T) {
	s := NewStore(nil, nil, 0)
	s.Adjust("docs.example", 1)
	s.Adjust("docs.example", 2)
	s.Adjust("docs.example", -1)
	assert.Equal(t, 2, s.Score("docs.example"))
}

func TestAdjustIgnoresDirectFallback(t *testing.T) {
	s := NewStore(nil, nil, 0)
	s.Adjust(model.DirectFallback, 1)
	s.Adjust("", 1)
	scores, _ := s.Snapshot()
	assert.Empty(t, scores)
}

func TestBlacklistOnFloorCrossing(t *testing.T) {
	s := NewStore(nil, nil, 0)
	for i := 0; i < 3; i++ {
		s.Adjust("spam.example", -2)
	}
	assert.True(t, s.IsBlacklisted("spam.example"))
	assert.Equal(t, -6, s.Score("spam.example"))

	s.ClearBlacklist()
	assert.False(t, s.IsBlacklisted("spam.example"))
	assert.Equal(t, -6, s.Score("spam.example"))
}

func TestRankOrdersByScoreAndDropsBlacklisted(t *testing.T) {
	s := NewStore(
		map[string]int{"good.example": 3, "bad.example": -9, "ok.example": 1},
		[]string{"bad.example"},
		0,
	)

	ranked := s.Rank([]model.SourceCandidate{
		{URL: "https://new.example/a", Domain: "new.example"},
		{URL: "https://ok.example/b", Domain: "ok.example"},
		{URL: "https://bad.example/c", Domain: "bad.example"},
		{URL: "https://good.example/d", Domain: "good.example"},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "good.example", ranked[0].Domain)
	assert.Equal(t, 3, ranked[0].Score)
	assert.Equal(t, "ok.example", ranked[1].Domain)
	assert.Equal(t, "new.example", ranked[2].Domain)
}

func TestRankIsStableForEqualScores(t *testing.T) {
	s := NewStore(nil, nil, 0)
	ranked := s.Rank([]model.SourceCandidate{
		{URL: "https://first.example", Domain: "first.example"},
		{URL: "https://second.example", Domain: "second.example"},
		{URL: "https://third.example", Domain: "third.example"},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "first.example", ranked[0].Domain)
	assert.Equal(t, "second.example", ranked[1].Domain)
	assert.Equal(t, "third.example", ranked[2].Domain)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewStore(nil, nil, 0)
	s.Adjust("a.example", 2)
	s.Adjust("b.example", -5)

	scores, blacklist := s.Snapshot()
	assert.Equal(t, map[string]int{"a.example": 2, "b.example": -5}, scores)
	assert.Equal(t, []string{"b.example"}, blacklist)

	restored := NewStore(scores, blacklist, 0)
	assert.Equal(t, 2, restored.Score("a.example"))
	assert.True(t, restored.IsBlacklisted("b.example"))
}

func TestConcurrentAdjust(t *testing.T) {
	s := NewStore(nil, nil, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Adjust("busy.example", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Score("busy.example"))
}
