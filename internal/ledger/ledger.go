// Package ledger persists what the pipeline learns across runs: the
// append-only run history, the domain reputation table, and the blacklist.
// State is loaded wholesale at the start of a run and saved wholesale at the
// end; runs are immutable once appended.
package ledger

import (
	"context"

	"github.com/sells-group/research-agent/internal/model"
)

// State is everything a run inherits from its predecessors.
type State struct {
	Runs         []model.ResearchRun `json:"log"`
	DomainScores map[string]int      `json:"domain_scores"`
	Blacklist    []string            `json:"blacklist"`
}

// NewState returns an empty state with allocated maps.
func NewState() *State {
	return &State{DomainScores: make(map[string]int)}
}

// Ledger is the persistence interface for run history and reputation.
type Ledger interface {
	// Load returns the full persisted state. A missing backing store yields
	// an empty state, not an error.
	Load(ctx context.Context) (*State, error)
	// Save persists the full state, replacing reputation data and appending
	// any runs not yet stored.
	Save(ctx context.Context, state *State) error
	Close() error
}
