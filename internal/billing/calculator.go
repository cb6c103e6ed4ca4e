package billing

import "github.com/sells-group/research-agent/internal/model"

// Rates holds per-tier cost rates.
type Rates struct {
	// LocalPerSecond prices tiers that bill by wall time (local subprocess,
	// self-hosted summarizer), in USD per second of inference.
	LocalPerSecond float64

	// CloudSurcharge is a flat fee added to the base cost when the cloud
	// tier produced the final report.
	CloudSurcharge float64
}

// Calculator derives a billing record from a run's usage meter.
type Calculator struct {
	rates  Rates
	markup float64
}

// NewCalculator creates a Calculator. markup scales the base cost into the
// user-facing charge.
func NewCalculator(rates Rates, markup float64) *Calculator {
	if markup <= 0 {
		markup = 2.0
	}
	return &Calculator{rates: rates, markup: markup}
}

// Compute derives the billing record for one run. Tiers that priced their
// own calls (token-metered cloud calls) are billed at that cost; all other
// tiers are billed by elapsed seconds.
func (c *Calculator) Compute(m *Meter) model.BillingRecord {
	breakdown := make(map[string]model.TierCost)
	base := 0.0

	for tier, e := range m.snapshot() {
		cost := e.costUSD
		if cost == 0 {
			cost = e.usage.Seconds * c.rates.LocalPerSecond
		}
		breakdown[tier] = model.TierCost{TierUsage: e.usage, CostUSD: cost}
		base += cost
	}

	if m.FinalReportTier() == model.TierAnthropic {
		base += c.rates.CloudSurcharge
	}

	return model.BillingRecord{
		BaseCostUSD:   base,
		UserChargeUSD: base * c.markup,
		Breakdown:     breakdown,
	}
}
