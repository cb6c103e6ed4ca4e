package backend

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/billing"
)

type fakeGenerator struct {
	name  string
	calls int
	fn    func(call int, req Request) (*Output, error)
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(_ context.Context, req Request) (*Output, error) {
	f.calls++
	return f.fn(f.calls, req)
}

func staticGenerator(name, text string) *fakeGenerator {
	return &fakeGenerator{
		name: name,
		fn: func(int, Request) (*Output, error) {
			return &Output{Text: text}, nil
		},
	}
}

func failingGenerator(name string, err error) *fakeGenerator {
	return &fakeGenerator{
		name: name,
		fn: func(int, Request) (*Output, error) {
			return nil, err
		},
	}
}

func TestGatewayGenerate(t *testing.T) {
	meter := billing.NewMeter()
	gen := staticGenerator("local", "a perfectly fine answer")
	gw := NewGateway(meter, []Generator{gen})

	text, err := gw.Generate(context.Background(), "local", Request{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "a perfectly fine answer", text)

	usage := meter.Usage()
	require.Contains(t, usage, "local")
	assert.Equal(t, 1, usage["local"].Calls)
}

func TestGatewayGenerateUnknownTier(t *testing.T) {
	gw := NewGateway(billing.NewMeter(), []Generator{staticGenerator("local", "x")})

	_, err := gw.Generate(context.Background(), "cloud", Request{Prompt: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tier")
}

func TestGatewayGenerateQualityCheck(t *testing.T) {
	gw := NewGateway(billing.NewMeter(), []Generator{staticGenerator("local", "nope")})

	_, err := gw.Generate(context.Background(), "local", Request{
		Prompt: "q",
		Check:  func(text string) bool { return len(text) > 10 },
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrLowQuality))
}

func TestGatewayGenerateRetriesRateLimit(t *testing.T) {
	gen := &fakeGenerator{
		name: "svc",
		fn: func(call int, _ Request) (*Output, error) {
			if call < 3 {
				return nil, ErrRateLimited
			}
			return &Output{Text: "recovered after throttling"}, nil
		},
	}
	meter := billing.NewMeter()
	gw := NewGateway(meter, []Generator{gen}, WithRateLimitRetry(3, time.Millisecond))

	text, err := gw.Generate(context.Background(), "svc", Request{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "recovered after throttling", text)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, 3, meter.Usage()["svc"].Calls)
}

func TestGatewayGenerateNoRetryOnHardFailure(t *testing.T) {
	gen := failingGenerator("svc", ErrUnavailable)
	gw := NewGateway(billing.NewMeter(), []Generator{gen}, WithRateLimitRetry(3, time.Millisecond))

	_, err := gw.Generate(context.Background(), "svc", Request{Prompt: "q"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnavailable))
	assert.Equal(t, 1, gen.calls)
}

func TestGatewayGenerateFirst(t *testing.T) {
	down := failingGenerator("local", ErrUnavailable)
	up := staticGenerator("svc", "served by the second tier")
	gw := NewGateway(billing.NewMeter(), []Generator{down, up})

	text, tier, err := gw.GenerateFirst(context.Background(), []string{"local", "svc"}, Request{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "svc", tier)
	assert.Equal(t, "served by the second tier", text)
}

func TestGatewayGenerateFirstAllFail(t *testing.T) {
	gw := NewGateway(billing.NewMeter(), []Generator{
		failingGenerator("local", ErrUnavailable),
		failingGenerator("svc", ErrEmptyOutput),
	})

	_, _, err := gw.GenerateFirst(context.Background(), []string{"local", "svc"}, Request{Prompt: "q"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrEmptyOutput))
}

func TestGatewayTierNames(t *testing.T) {
	gw := NewGateway(billing.NewMeter(), []Generator{
		staticGenerator("a", "x"),
		staticGenerator("b", "y"),
	})
	assert.Equal(t, []string{"a", "b"}, gw.TierNames())
}
