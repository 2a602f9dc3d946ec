// Package storage is the key-value persistence facade the engine uses to
// survive restarts. Only the single latest record is persisted; it is a
// warm-start convenience, never a source of truth while the process lives.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

// ErrCorruptRecord indicates the persisted payload could not be decoded.
var ErrCorruptRecord = errors.New("corrupt persisted record")

// Store loads and saves the latest price record under a fixed key. A
// missing key is a valid cold-start state, reported as ok=false without an
// error.
type Store interface {
	SaveRecord(ctx context.Context, rec sources.PriceRecord) error
	LoadRecord(ctx context.Context) (rec sources.PriceRecord, ok bool, err error)
}

// storedRecord is the persisted layout: canonical record attributes with
// decimals as strings and an ISO-8601 observation timestamp.
type storedRecord struct {
	Price      string  `json:"price"`
	ObservedAt string  `json:"observed_at"`
	Change24h  string  `json:"change_24h"`
	Change7d   *string `json:"change_7d,omitempty"`
	MarketCap  string  `json:"market_cap"`
	Volume24h  string  `json:"volume_24h"`
	Source     string  `json:"source"`
}

// EncodeRecord serializes a record into the persisted layout.
func EncodeRecord(rec sources.PriceRecord) ([]byte, error) {
	sr := storedRecord{
		Price:      rec.Price.String(),
		ObservedAt: rec.ObservedAt.UTC().Format(time.RFC3339),
		Change24h:  rec.Change24h.String(),
		MarketCap:  rec.MarketCap.String(),
		Volume24h:  rec.Volume24h.String(),
		Source:     rec.Source,
	}
	if rec.Change7d != nil {
		s := rec.Change7d.String()
		sr.Change7d = &s
	}
	return json.Marshal(sr)
}

// DecodeRecord deserializes the persisted layout back into a record.
func DecodeRecord(data []byte) (sources.PriceRecord, error) {
	var sr storedRecord
	if err := json.Unmarshal(data, &sr); err != nil {
		return sources.PriceRecord{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	price, err := decimal.NewFromString(sr.Price)
	if err != nil {
		return sources.PriceRecord{}, fmt.Errorf("%w: price %q", ErrCorruptRecord, sr.Price)
	}
	observed, err := time.Parse(time.RFC3339, sr.ObservedAt)
	if err != nil {
		return sources.PriceRecord{}, fmt.Errorf("%w: observed_at %q", ErrCorruptRecord, sr.ObservedAt)
	}
	change24h, err := decimal.NewFromString(sr.Change24h)
	if err != nil {
		return sources.PriceRecord{}, fmt.Errorf("%w: change_24h %q", ErrCorruptRecord, sr.Change24h)
	}
	marketCap, err := decimal.NewFromString(sr.MarketCap)
	if err != nil {
		return sources.PriceRecord{}, fmt.Errorf("%w: market_cap %q", ErrCorruptRecord, sr.MarketCap)
	}
	volume, err := decimal.NewFromString(sr.Volume24h)
	if err != nil {
		return sources.PriceRecord{}, fmt.Errorf("%w: volume_24h %q", ErrCorruptRecord, sr.Volume24h)
	}

	rec := sources.PriceRecord{
		Price:      price,
		ObservedAt: observed,
		Change24h:  change24h,
		MarketCap:  marketCap,
		Volume24h:  volume,
		Source:     sr.Source,
	}
	if sr.Change7d != nil {
		change7d, err := decimal.NewFromString(*sr.Change7d)
		if err != nil {
			return sources.PriceRecord{}, fmt.Errorf("%w: change_7d %q", ErrCorruptRecord, *sr.Change7d)
		}
		rec.Change7d = &change7d
	}
	return rec, nil
}
