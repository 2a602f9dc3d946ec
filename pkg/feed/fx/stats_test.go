package fx

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

func series(prices ...float64) []sources.PriceRecord {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	recs := make([]sources.PriceRecord, 0, len(prices))
	for i, p := range prices {
		recs = append(recs, sources.PriceRecord{
			Price:      decimal.NewFromFloat(p),
			ObservedAt: base.Add(time.Duration(i) * time.Minute),
			Source:     "CoinGecko",
		})
	}
	return recs
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 0, s.Count)
	assert.Equal(t, TrendNeutral, s.Trend)
	assert.Nil(t, s.Earliest)
	assert.Nil(t, s.Latest)
}

func TestSummarize_Basics(t *testing.T) {
	s := Summarize(series(2, 4, 4, 4, 5, 5, 7, 9))

	assert.Equal(t, 8, s.Count)
	assert.True(t, s.Min.Equal(decimal.NewFromInt(2)), "min %s", s.Min)
	assert.True(t, s.Max.Equal(decimal.NewFromInt(9)), "max %s", s.Max)
	assert.True(t, s.Mean.Equal(decimal.NewFromInt(5)), "mean %s", s.Mean)

	// Well known series with a population standard deviation of exactly 2.
	vol, _ := s.Volatility.Float64()
	assert.InDelta(t, 2.0, vol, 1e-9)

	require.NotNil(t, s.Earliest)
	require.NotNil(t, s.Latest)
	assert.True(t, s.Earliest.Before(*s.Latest))
	assert.Equal(t, 7*time.Minute, s.Latest.Sub(*s.Earliest))
}

func TestSummarize_SinglePoint(t *testing.T) {
	s := Summarize(series(12.5))

	assert.Equal(t, 1, s.Count)
	assert.True(t, s.Min.Equal(s.Max))
	assert.True(t, s.Volatility.IsZero())
	assert.Equal(t, TrendNeutral, s.Trend)
	require.NotNil(t, s.Earliest)
	assert.True(t, s.Earliest.Equal(*s.Latest))
}

func TestSummarize_Trend(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   Trend
	}{
		{
			name:   "rising",
			prices: []float64{1, 1, 1, 1, 1, 2, 2, 2, 2, 2},
			want:   TrendUp,
		},
		{
			name:   "falling",
			prices: []float64{5, 5, 5, 5, 5, 3, 3, 3, 3, 3},
			want:   TrendDown,
		},
		{
			name:   "equal window means",
			prices: []float64{1, 2, 3, 4, 5, 5, 4, 3, 2, 1},
			want:   TrendNeutral,
		},
		{
			name:   "too few points",
			prices: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
			want:   TrendNeutral,
		},
		{
			name:   "only last two windows count",
			prices: []float64{100, 100, 100, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2},
			want:   TrendUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(series(tt.prices...)).Trend)
		})
	}
}
