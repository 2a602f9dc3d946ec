// Package fx derives conversions and descriptive statistics from the
// cached record and the retained history.
package fx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
	"github.com/OHMS-DeAI/ratefeed/pkg/metrics"
)

// Conversion is the result of a quote<->base conversion, including the
// provenance of the rate that was applied.
type Conversion struct {
	Amount     decimal.Decimal `json:"amount"`
	Converted  decimal.Decimal `json:"converted"`
	Rate       decimal.Decimal `json:"rate"`
	RateTime   *time.Time      `json:"rate_time,omitempty"` // nil when the fallback rate was used
	RateSource string          `json:"rate_source"`
}

// Service performs conversions against the current cached rate, degrading
// to a configured constant when no usable rate exists.
type Service struct {
	latest       func() (sources.PriceRecord, bool)
	fallbackRate decimal.Decimal
}

// NewService creates a conversion service. latest supplies the cached
// record; fallbackRate is applied when no record exists or its price is
// zero.
func NewService(latest func() (sources.PriceRecord, bool), fallbackRate decimal.Decimal) *Service {
	return &Service{
		latest:       latest,
		fallbackRate: fallbackRate,
	}
}

// QuoteToBase converts a quote-currency (fiat) amount into the base asset.
func (s *Service) QuoteToBase(amount decimal.Decimal) Conversion {
	rate, ts, source := s.rate()
	metrics.RecordConversion("quote_to_base", source)
	return Conversion{
		Amount:     amount,
		Converted:  amount.Div(rate),
		Rate:       rate,
		RateTime:   ts,
		RateSource: source,
	}
}

// BaseToQuote converts a base-asset amount into the quote currency.
func (s *Service) BaseToQuote(amount decimal.Decimal) Conversion {
	rate, ts, source := s.rate()
	metrics.RecordConversion("base_to_quote", source)
	return Conversion{
		Amount:     amount,
		Converted:  amount.Mul(rate),
		Rate:       rate,
		RateTime:   ts,
		RateSource: source,
	}
}

// rate resolves the rate to apply. A zero cached price is treated the same
// as no cache at all so division stays guarded.
func (s *Service) rate() (decimal.Decimal, *time.Time, string) {
	if s.latest != nil {
		if rec, ok := s.latest(); ok && rec.Price.IsPositive() {
			ts := rec.ObservedAt
			return rec.Price, &ts, rec.Source
		}
	}
	return s.fallbackRate, nil, sources.FallbackName
}
