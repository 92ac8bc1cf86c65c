package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestDoVal_RetriesTransient(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(eris.New("rate limited"), 429)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoVal_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(5), func(context.Context) (int, error) {
		calls++
		return 0, eris.New("bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 0, Transient(eris.New("upstream 503"), 503)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsTransient(err))
}

func TestDoVal_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, fastRetry(5), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, Transient(eris.New("flaky"), 500)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("validation failed")))
	assert.True(t, IsTransient(Transient(eris.New("x"), 503)))
	assert.True(t, IsTransient(eris.Wrap(Transient(eris.New("x"), 429), "outer")))
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(429))
	assert.True(t, RetryableStatus(500))
	assert.True(t, RetryableStatus(503))
	assert.False(t, RetryableStatus(404))
	assert.False(t, RetryableStatus(200))
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	fail := func(context.Context) (int, error) { return 0, eris.New("down") }

	_, _ = Execute(context.Background(), b, fail)
	assert.Equal(t, CircuitClosed, b.State())

	_, _ = Execute(context.Background(), b, fail)
	assert.Equal(t, CircuitOpen, b.State())

	_, err := Execute(context.Background(), b, fail)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_HalfOpenProbeRecovers(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	now := time.Now()
	b.nowFunc = func() time.Time { return now }

	_, _ = Execute(context.Background(), b, func(context.Context) (int, error) { return 0, eris.New("down") })
	require.Equal(t, CircuitOpen, b.State())

	// After the reset timeout a probe is allowed; success closes the
	// circuit.
	now = now.Add(2 * time.Minute)
	v, err := Execute(context.Background(), b, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	now := time.Now()
	b.nowFunc = func() time.Time { return now }

	_, _ = Execute(context.Background(), b, func(context.Context) (int, error) { return 0, eris.New("down") })
	now = now.Add(2 * time.Minute)
	_, _ = Execute(context.Background(), b, func(context.Context) (int, error) { return 0, eris.New("still down") })

	assert.Equal(t, CircuitOpen, b.State())
	_, err := Execute(context.Background(), b, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
