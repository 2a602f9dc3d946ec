package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

func sampleRecord() sources.PriceRecord {
	change7d := decimal.RequireFromString("3.2")
	return sources.PriceRecord{
		Price:      decimal.RequireFromString("12.50"),
		ObservedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Change24h:  decimal.RequireFromString("-1.8"),
		Change7d:   &change7d,
		MarketCap:  decimal.RequireFromString("6700000000"),
		Volume24h:  decimal.RequireFromString("120000000"),
		Source:     "CoinMarketCap",
	}
}

func TestEncodeRecord_Layout(t *testing.T) {
	payload, err := EncodeRecord(sampleRecord())
	require.NoError(t, err)

	// Decimals persist as strings and the timestamp as ISO-8601, so the
	// payload stays readable and precision never passes through floats.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "12.5", raw["price"])
	assert.Equal(t, "2026-08-30T12:00:00Z", raw["observed_at"])
	assert.Equal(t, "-1.8", raw["change_24h"])
	assert.Equal(t, "3.2", raw["change_7d"])
	assert.Equal(t, "CoinMarketCap", raw["source"])
}

func TestEncodeRecord_OmitsAbsentChange7d(t *testing.T) {
	rec := sampleRecord()
	rec.Change7d = nil

	payload, err := EncodeRecord(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	_, present := raw["change_7d"]
	assert.False(t, present)
}

func TestDecodeRecord_RoundTrip(t *testing.T) {
	want := sampleRecord()

	payload, err := EncodeRecord(want)
	require.NoError(t, err)
	got, err := DecodeRecord(payload)
	require.NoError(t, err)

	assert.True(t, got.Price.Equal(want.Price))
	assert.True(t, got.ObservedAt.Equal(want.ObservedAt))
	assert.True(t, got.Change24h.Equal(want.Change24h))
	require.NotNil(t, got.Change7d)
	assert.True(t, got.Change7d.Equal(*want.Change7d))
	assert.True(t, got.MarketCap.Equal(want.MarketCap))
	assert.True(t, got.Volume24h.Equal(want.Volume24h))
	assert.Equal(t, want.Source, got.Source)
}

func TestDecodeRecord_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `nope`},
		{"bad price", `{"price":"twelve","observed_at":"2026-08-30T12:00:00Z","change_24h":"0","market_cap":"0","volume_24h":"0","source":"CoinGecko"}`},
		{"bad timestamp", `{"price":"12.5","observed_at":"yesterday","change_24h":"0","market_cap":"0","volume_24h":"0","source":"CoinGecko"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestMemory_ColdStart(t *testing.T) {
	m := NewMemory("ratefeed:test")

	_, ok, err := m.LoadRecord(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_SaveThenLoad(t *testing.T) {
	m := NewMemory("ratefeed:test")
	want := sampleRecord()

	require.NoError(t, m.SaveRecord(context.Background(), want))

	got, ok, err := m.LoadRecord(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Price.Equal(want.Price))
	assert.Equal(t, want.Source, got.Source)
}

func TestMemory_OverwritesPreviousRecord(t *testing.T) {
	m := NewMemory("ratefeed:test")

	first := sampleRecord()
	require.NoError(t, m.SaveRecord(context.Background(), first))

	second := first
	second.Price = decimal.RequireFromString("13.00")
	require.NoError(t, m.SaveRecord(context.Background(), second))

	got, ok, err := m.LoadRecord(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Price.Equal(second.Price))
}
