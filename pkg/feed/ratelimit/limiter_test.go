package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BudgetExhaustion(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(func() time.Time { return now })

	const budget = 5
	for i := 0; i < budget; i++ {
		require.True(t, l.Allow("coingecko", budget), "admission %d should fit the budget", i+1)
		l.Record("coingecko")
	}

	// The (N+1)-th attempt inside the same window is denied.
	assert.False(t, l.Allow("coingecko", budget))
	assert.Equal(t, budget, l.Recent("coingecko"))
}

func TestLimiter_WindowRoll(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(func() time.Time { return now })

	l.Record("cmc")
	l.Record("cmc")
	require.False(t, l.Allow("cmc", 2))

	// Just inside the window the oldest admission still counts.
	now = now.Add(59 * time.Second)
	assert.False(t, l.Allow("cmc", 2))

	// Once the window rolls past the oldest admission, capacity frees up.
	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("cmc", 2))
	assert.Equal(t, 0, l.Recent("cmc"))
}

func TestLimiter_UnlimitedBudget(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(func() time.Time { return now })

	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow("Fallback", 0))
		l.Record("Fallback")
	}
}

func TestLimiter_SourcesAreIndependent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(func() time.Time { return now })

	l.Record("a")
	l.Record("a")

	assert.False(t, l.Allow("a", 2))
	assert.True(t, l.Allow("b", 2))
}

func TestLimiter_DefaultClock(t *testing.T) {
	l := New(nil)
	assert.True(t, l.Allow("s", 1))
	l.Record("s")
	assert.False(t, l.Allow("s", 1))
}
