package sources

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// FallbackName is the name carried by records produced by the synthetic
	// terminal source. Consumers use it to detect degraded provenance.
	FallbackName = "Fallback"

	// FallbackPriority is the priority rank of the synthetic terminal source.
	// Real sources must register with a lower priority so they sort first.
	FallbackPriority = 999
)

// PriceRecord is the canonical unit of market data produced by a source.
type PriceRecord struct {
	Price      decimal.Decimal  `json:"price"`
	ObservedAt time.Time        `json:"observed_at"`
	Change24h  decimal.Decimal  `json:"change_24h"`
	Change7d   *decimal.Decimal `json:"change_7d,omitempty"` // nil when the source omits 7-day data
	MarketCap  decimal.Decimal  `json:"market_cap"`
	Volume24h  decimal.Decimal  `json:"volume_24h"`
	Source     string           `json:"source"`
}

// Validate checks the record invariants every cached or delivered record
// must satisfy: provenance and timestamp set, price non-negative.
func (r PriceRecord) Validate() error {
	if r.Source == "" {
		return fmt.Errorf("%w: missing source name", ErrInvalidResponse)
	}
	if r.ObservedAt.IsZero() {
		return fmt.Errorf("%w: missing observation timestamp", ErrInvalidResponse)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: negative price %s", ErrInvalidResponse, r.Price)
	}
	return nil
}

// ParseFunc converts a raw upstream response into a PriceRecord. Parsers
// fail closed: any missing or non-numeric required field is a classified
// ErrInvalidResponse.
type ParseFunc func(raw []byte) (PriceRecord, error)

// Descriptor is the static configuration of one upstream source. A
// descriptor with an empty URL is synthetic: its Parse is invoked without a
// network round trip and constructs a record directly.
type Descriptor struct {
	Name              string
	URL               string
	Parse             ParseFunc
	RequestsPerMinute int // 0 means unlimited; only the fallback may use it
	Priority          int // lower sorts first
}

// Synthetic reports whether the descriptor has no network locator.
func (d Descriptor) Synthetic() bool {
	return d.URL == ""
}
