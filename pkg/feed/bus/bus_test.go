package bus

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

func record(price float64) sources.PriceRecord {
	return sources.PriceRecord{
		Price:      decimal.NewFromFloat(price),
		ObservedAt: time.Now(),
		Source:     "CoinGecko",
	}
}

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	b := New(nil, nil)

	var got1, got2 []sources.PriceRecord
	b.Subscribe(func(rec sources.PriceRecord) { got1 = append(got1, rec) })
	b.Subscribe(func(rec sources.PriceRecord) { got2 = append(got2, rec) })

	b.Publish(record(1.0))
	b.Publish(record(2.0))

	require.Len(t, got1, 2)
	require.Len(t, got2, 2)
	assert.True(t, got1[0].Price.Equal(decimal.NewFromFloat(1.0)))
	assert.True(t, got1[1].Price.Equal(decimal.NewFromFloat(2.0)))
}

func TestBus_LateSubscriberIsReplayed(t *testing.T) {
	current := record(7.5)
	b := New(func() (sources.PriceRecord, bool) { return current, true }, nil)

	var got []sources.PriceRecord
	b.Subscribe(func(rec sources.PriceRecord) { got = append(got, rec) })

	// The cached record arrives without waiting for the next refresh.
	require.Len(t, got, 1)
	assert.True(t, got[0].Price.Equal(decimal.NewFromFloat(7.5)))
}

func TestBus_NoReplayWithoutCachedRecord(t *testing.T) {
	b := New(func() (sources.PriceRecord, bool) { return sources.PriceRecord{}, false }, nil)

	called := false
	b.Subscribe(func(sources.PriceRecord) { called = true })
	assert.False(t, called)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(nil, nil)

	var got []sources.PriceRecord
	id := b.Subscribe(func(rec sources.PriceRecord) { got = append(got, rec) })

	b.Publish(record(1.0))
	b.Unsubscribe(id)
	b.Publish(record(2.0))

	require.Len(t, got, 1)
	assert.Equal(t, 0, b.Count())

	// Unknown IDs are ignored.
	b.Unsubscribe("not-a-subscription")
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	b := New(nil, nil)

	b.Subscribe(func(sources.PriceRecord) { panic("subscriber bug") })

	var got []sources.PriceRecord
	b.Subscribe(func(rec sources.PriceRecord) { got = append(got, rec) })

	require.NotPanics(t, func() { b.Publish(record(3.0)) })
	require.Len(t, got, 1)
}

func TestBus_SnapshotDelivery(t *testing.T) {
	b := New(nil, nil)

	var added bool
	// A subscriber that registers another subscriber mid-delivery must not
	// cause the new one to receive the in-progress record.
	b.Subscribe(func(sources.PriceRecord) {
		if !added {
			added = true
			b.Subscribe(func(sources.PriceRecord) {
				t.Error("subscriber added during delivery received the in-progress record")
			})
		}
	})

	b.Publish(record(1.0))
	assert.Equal(t, 2, b.Count())
}
