//go:build unit

package backoff

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{"attempt zero", time.Second, 0, time.Second},
		{"attempt one doubles", time.Second, 1, 2 * time.Second},
		{"attempt three", 500 * time.Millisecond, 3, 4 * time.Second},
		{"negative attempt treated as zero", time.Second, -5, time.Second},
		{"zero base", 0, 4, 0},
		{"negative base", -time.Second, 2, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Exponential(tc.base, tc.attempt))
		})
	}
}

func TestExponential_OverflowClamps(t *testing.T) {
	t.Parallel()

	got := Exponential(time.Hour, 100)
	assert.Equal(t, time.Duration(math.MaxInt64), got)
}

func TestFullJitter_Range(t *testing.T) {
	t.Parallel()

	delay := 100 * time.Millisecond

	for i := 0; i < 50; i++ {
		got := FullJitter(delay)
		assert.GreaterOrEqual(t, got, time.Duration(0))
		assert.Less(t, got, delay)
	}

	assert.Equal(t, time.Duration(0), FullJitter(0))
	assert.Equal(t, time.Duration(0), FullJitter(-time.Second))
}

func TestExponentialWithJitter_Bounded(t *testing.T) {
	t.Parallel()

	base := 10 * time.Millisecond

	for attempt := 0; attempt < 5; attempt++ {
		upper := Exponential(base, attempt)
		for i := 0; i < 20; i++ {
			got := ExponentialWithJitter(base, attempt)
			assert.GreaterOrEqual(t, got, time.Duration(0))
			assert.Less(t, got, upper)
		}
	}
}

func TestSleepWithContext_Completes(t *testing.T) {
	t.Parallel()

	err := SleepWithContext(context.Background(), 5*time.Millisecond)
	assert.NoError(t, err)

	err = SleepWithContext(context.Background(), 0)
	assert.NoError(t, err)
}

func TestSleepWithContext_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepWithContext(ctx, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
