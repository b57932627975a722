package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(eris.New("flaky"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	permanent := eris.New("bad request")
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return NewTransientError(eris.New("still down"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastConfig(), func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(eris.New("flaky"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ReturnsValue(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), fastConfig(), func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(eris.New("flaky"), 429)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestDoVal_CustomShouldRetry(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.ShouldRetry = func(error) bool { return true }

	calls := 0
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, eris.New("not normally retryable")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
