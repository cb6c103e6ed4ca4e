package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoValSucceedsAfterRetries(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), FixedDelay(3, time.Millisecond), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", eris.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoValExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), FixedDelay(2, time.Millisecond), func(context.Context) (int, error) {
		calls++
		return 0, eris.New("always fails")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoValRespectsShouldRetry(t *testing.T) {
	fatal := eris.New("fatal")
	cfg := FixedDelay(5, time.Millisecond)
	cfg.ShouldRetry = func(err error) bool { return !eris.Is(err, fatal) }

	calls := 0
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, fatal
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := DoVal(ctx, FixedDelay(5, 50*time.Millisecond), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, eris.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValOnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := FixedDelay(3, time.Millisecond)
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_, _ = DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		return 0, eris.New("transient")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestComputeDelayBackoffAndCap(t *testing.T) {
	cfg := applyDefaults(RetryConfig{Delay: 100 * time.Millisecond, Multiplier: 2.0, MaxDelay: 300 * time.Millisecond})

	assert.Equal(t, 100*time.Millisecond, computeDelay(0, cfg))
	assert.Equal(t, 200*time.Millisecond, computeDelay(1, cfg))
	assert.Equal(t, 300*time.Millisecond, computeDelay(2, cfg))
	assert.Equal(t, 300*time.Millisecond, computeDelay(5, cfg))
}
