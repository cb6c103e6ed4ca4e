package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/model"
)

func TestMeterRecordAccumulates(t *testing.T) {
	m := NewMeter()
	m.Record(model.TierOllama, 2*time.Second, 0, 0, 0)
	m.Record(model.TierOllama, 3*time.Second, 0, 0, 0)
	m.Record(model.TierAnthropic, time.Second, 100, 50, 0.0015)

	usage := m.Usage()
	require.Contains(t, usage, model.TierOllama)
	assert.Equal(t, 2, usage[model.TierOllama].Calls)
	assert.InDelta(t, 5.0, usage[model.TierOllama].Seconds, 1e-9)

	require.Contains(t, usage, model.TierAnthropic)
	assert.Equal(t, int64(100), usage[model.TierAnthropic].InputTokens)
	assert.Equal(t, int64(50), usage[model.TierAnthropic].OutputTokens)
}

func TestMeterFinalReportTier(t *testing.T) {
	m := NewMeter()
	assert.Empty(t, m.FinalReportTier())
	m.SetFinalReportTier(model.TierSummarizer)
	assert.Equal(t, model.TierSummarizer, m.FinalReportTier())
}

func TestCalculatorPricesLocalBySeconds(t *testing.T) {
	m := NewMeter()
	m.Record(model.TierOllama, 10*time.Second, 0, 0, 0)
	m.SetFinalReportTier(model.TierOllama)

	calc := NewCalculator(Rates{LocalPerSecond: 0.001, CloudSurcharge: 0.05}, 2.0)
	bill := calc.Compute(m)

	assert.InDelta(t, 0.01, bill.BaseCostUSD, 1e-9)
	assert.InDelta(t, 0.02, bill.UserChargeUSD, 1e-9)
	assert.InDelta(t, 0.01, bill.Breakdown[model.TierOllama].CostUSD, 1e-9)
}

func TestCalculatorUsesSelfPricedCloudCost(t *testing.T) {
	m := NewMeter()
	m.Record(model.TierAnthropic, time.Second, 1000, 500, 0.003)

	calc := NewCalculator(Rates{LocalPerSecond: 0.001}, 2.0)
	bill := calc.Compute(m)

	// The token-metered cost wins over the per-second rate.
	assert.InDelta(t, 0.003, bill.BaseCostUSD, 1e-9)
}

func TestCalculatorAppliesCloudSurcharge(t *testing.T) {
	m := NewMeter()
	m.Record(model.TierAnthropic, time.Second, 1000, 500, 0.003)
	m.SetFinalReportTier(model.TierAnthropic)

	calc := NewCalculator(Rates{CloudSurcharge: 0.01}, 2.0)
	bill := calc.Compute(m)

	assert.InDelta(t, 0.013, bill.BaseCostUSD, 1e-9)
	assert.InDelta(t, 0.026, bill.UserChargeUSD, 1e-9)
}

func TestCalculatorNoSurchargeForLocalFinalReport(t *testing.T) {
	m := NewMeter()
	m.Record(model.TierAnthropic, time.Second, 1000, 500, 0.003)
	m.SetFinalReportTier(model.TierOllama)

	calc := NewCalculator(Rates{CloudSurcharge: 0.01}, 2.0)
	bill := calc.Compute(m)

	assert.InDelta(t, 0.003, bill.BaseCostUSD, 1e-9)
}

func TestCalculatorDefaultMarkup(t *testing.T) {
	m := NewMeter()
	m.Record(model.TierOllama, 10*time.Second, 0, 0, 0)

	calc := NewCalculator(Rates{LocalPerSecond: 0.001}, 0)
	bill := calc.Compute(m)

	assert.InDelta(t, bill.BaseCostUSD*2, bill.UserChargeUSD, 1e-9)
}
