// Package billing tracks backend usage for one run and derives the billing
// record. A Meter is created per orchestration invocation and threaded
// through the pipeline explicitly; there is no ambient global state.
package billing

import (
	"sync"
	"time"

	"github.com/sells-group/research-agent/internal/model"
)

type tierEntry struct {
	usage   model.TierUsage
	costUSD float64
}

// Meter accumulates per-tier usage counters for a single run.
type Meter struct {
	mu        sync.Mutex
	tiers     map[string]*tierEntry
	finalTier string
}

// NewMeter creates an empty Meter.
func NewMeter() *Meter {
	return &Meter{tiers: make(map[string]*tierEntry)}
}

// Record accumulates one backend call against a tier. Token counts are zero
// for tiers that do not report them; cost is non-zero only when the backend
// can price the call itself (the cloud tier).
func (m *Meter) Record(tier string, elapsed time.Duration, inputTokens, outputTokens int64, costUSD float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.tiers[tier]
	if e == nil {
		e = &tierEntry{}
		m.tiers[tier] = e
	}
	e.usage.Calls++
	e.usage.Seconds += elapsed.Seconds()
	e.usage.InputTokens += inputTokens
	e.usage.OutputTokens += outputTokens
	e.costUSD += costUSD
}

// SetFinalReportTier records which tier produced the final report.
func (m *Meter) SetFinalReportTier(tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalTier = tier
}

// FinalReportTier returns the tier that produced the final report, or "".
func (m *Meter) FinalReportTier() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalTier
}

// Usage returns a snapshot of the accumulated per-tier usage.
func (m *Meter) Usage() map[string]model.TierUsage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]model.TierUsage, len(m.tiers))
	for name, e := range m.tiers {
		out[name] = e.usage
	}
	return out
}

func (m *Meter) snapshot() map[string]tierEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]tierEntry, len(m.tiers))
	for name, e := range m.tiers {
		out[name] = *e
	}
	return out
}
