package backend

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/billing"
	"github.com/sells-group/research-agent/internal/resilience"
)

// Gateway dispatches generation calls to named tiers and records usage
// against the run's meter.
type Gateway struct {
	tiers       []Generator
	meter       *billing.Meter
	rateRetries int
	rateDelay   time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithRateLimitRetry sets the bounded same-tier retry applied when a tier
// reports rate limiting.
func WithRateLimitRetry(attempts int, delay time.Duration) GatewayOption {
	return func(g *Gateway) {
		if attempts > 0 {
			g.rateRetries = attempts
		}
		if delay > 0 {
			g.rateDelay = delay
		}
	}
}

// NewGateway creates a gateway over the given tiers, ordered cheapest first.
// Usage for every call is recorded against meter.
func NewGateway(meter *billing.Meter, tiers []Generator, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		tiers:       tiers,
		meter:       meter,
		rateRetries: 3,
		rateDelay:   2 * time.Second,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// TierNames returns the configured tier names in order.
func (g *Gateway) TierNames() []string {
	names := make([]string, len(g.tiers))
	for i, t := range g.tiers {
		names[i] = t.Name()
	}
	return names
}

// Tier looks up a tier by name.
func (g *Gateway) Tier(name string) (Generator, bool) {
	for _, t := range g.tiers {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Generate runs one call on the named tier. Rate-limited calls are retried on
// the same tier with a fixed delay; any other failure is returned to the
// caller, which decides whether to move to the next tier.
func (g *Gateway) Generate(ctx context.Context, tier string, req Request) (string, error) {
	gen, ok := g.Tier(tier)
	if !ok {
		return "", eris.Errorf("backend: unknown tier %q", tier)
	}

	cfg := resilience.FixedDelay(g.rateRetries, g.rateDelay)
	cfg.ShouldRetry = func(err error) bool {
		return eris.Is(err, ErrRateLimited)
	}
	cfg.OnRetry = resilience.RetryLogger(gen.Name(), "generate")

	out, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Output, error) {
		start := time.Now()
		out, err := gen.Generate(ctx, req)
		elapsed := time.Since(start)
		if err != nil {
			g.meter.Record(gen.Name(), elapsed, 0, 0, 0)
			return nil, err
		}
		g.meter.Record(gen.Name(), elapsed, out.InputTokens, out.OutputTokens, out.CostUSD)
		return out, nil
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", eris.Wrapf(ErrEmptyOutput, "backend: tier %s", gen.Name())
	}
	if req.Check != nil && !req.Check(text) {
		return "", eris.Wrapf(ErrLowQuality, "backend: tier %s", gen.Name())
	}
	return text, nil
}

// GenerateFirst tries the named tiers in order and returns the first
// acceptable output along with the tier that produced it.
func (g *Gateway) GenerateFirst(ctx context.Context, tiers []string, req Request) (string, string, error) {
	var lastErr error
	for _, name := range tiers {
		text, err := g.Generate(ctx, name, req)
		if err == nil {
			return text, name, nil
		}
		lastErr = err
		zap.L().Warn("tier failed, falling through",
			zap.String("tier", name),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = eris.New("backend: no tiers configured")
	}
	return "", "", lastErr
}
