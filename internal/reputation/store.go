// Package reputation tracks per-domain scores learned from past runs.
// Domains gain points when their content produces summaries that align with
// the final report and lose points when they waste a fetch. Domains that
// sink below the blacklist floor are excluded from future candidate lists.
package reputation

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/model"
)

// DefaultBlacklistFloor is the score below which a domain is blacklisted.
const DefaultBlacklistFloor = -4

// Store is a mutex-guarded domain score table. Unknown domains score zero.
type Store struct {
	mu        sync.Mutex
	scores    map[string]int
	blacklist map[string]bool
	floor     int
}

// NewStore creates a store seeded from prior state. Nil maps are fine.
// floor >= 0 falls back to the default.
func NewStore(scores map[string]int, blacklist []string, floor int) *Store {
	if floor >= 0 {
		floor = DefaultBlacklistFloor
	}
	s := &Store{
		scores:    make(map[string]int, len(scores)),
		blacklist: make(map[string]bool, len(blacklist)),
		floor:     floor,
	}
	for domain, score := range scores {
		s.scores[domain] = score
	}
	for _, domain := range blacklist {
		s.blacklist[domain] = true
	}
	return s
}

// Score returns the current score for a domain, zero if never seen.
func (s *Store) Score(domain string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[domain]
}

// Adjust applies a delta to a domain's score. Crossing the floor blacklists
// the domain immediately.
func (s *Store) Adjust(domain string, delta int) {
	if domain == "" || domain == model.DirectFallback {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[domain] += delta
	if s.scores[domain] < s.floor && !s.blacklist[domain] {
		s.blacklist[domain] = true
		zap.L().Info("domain blacklisted",
			zap.String("domain", domain),
			zap.Int("score", s.scores[domain]),
		)
	}
}

// IsBlacklisted reports whether a domain is excluded.
func (s *Store) IsBlacklisted(domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blacklist[domain]
}

// ClearBlacklist empties the blacklist without touching scores.
func (s *Store) ClearBlacklist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist = make(map[string]bool)
}

// Rank orders candidates by descending domain score, dropping blacklisted
// domains. The sort is stable so equal-score candidates keep their
// discovery order.
func (s *Store) Rank(candidates []model.SourceCandidate) []model.SourceCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.SourceCandidate, 0, len(candidates))
	for _, c := range candidates {
		if s.blacklist[c.Domain] {
			continue
		}
		c.Score = s.scores[c.Domain]
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Snapshot returns copies of the score table and blacklist for persistence.
func (s *Store) Snapshot() (map[string]int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := make(map[string]int, len(s.scores))
	for domain, score := range s.scores {
		scores[domain] = score
	}
	blacklist := make([]string, 0, len(s.blacklist))
	for domain := range s.blacklist {
		blacklist = append(blacklist, domain)
	}
	sort.Strings(blacklist)
	return scores, blacklist
}
