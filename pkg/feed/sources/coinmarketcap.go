package sources

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// coinMarketCapQuote mirrors the relevant slice of the
// /v1/cryptocurrency/quotes/latest response.
type coinMarketCapQuote struct {
	Price            *float64 `json:"price"`
	PercentChange24h *float64 `json:"percent_change_24h"`
	PercentChange7d  *float64 `json:"percent_change_7d"`
	MarketCap        *float64 `json:"market_cap"`
	Volume24h        *float64 `json:"volume_24h"`
	LastUpdated      string   `json:"last_updated"`
}

// CoinMarketCap returns a parser for the quotes/latest endpoint. symbol is
// the CoinMarketCap asset symbol, convert the uppercase quote currency.
// This source embeds its own observation timestamp and provides 7-day
// change.
func CoinMarketCap(symbol, convert string) ParseFunc {
	symbol = strings.ToUpper(symbol)
	convert = strings.ToUpper(convert)

	return func(raw []byte) (PriceRecord, error) {
		var payload struct {
			Data map[string]struct {
				Quote map[string]coinMarketCapQuote `json:"quote"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return PriceRecord{}, fmt.Errorf("%w: coinmarketcap: %v", ErrInvalidResponse, err)
		}

		asset, ok := payload.Data[symbol]
		if !ok {
			return PriceRecord{}, fmt.Errorf("%w: coinmarketcap: symbol %q not in response", ErrInvalidResponse, symbol)
		}
		quote, ok := asset.Quote[convert]
		if !ok {
			return PriceRecord{}, fmt.Errorf("%w: coinmarketcap: no %s quote", ErrInvalidResponse, convert)
		}

		if quote.Price == nil {
			return PriceRecord{}, fmt.Errorf("%w: coinmarketcap: missing price", ErrInvalidResponse)
		}
		if *quote.Price <= 0 {
			return PriceRecord{}, fmt.Errorf("%w: coinmarketcap: non-positive price %f", ErrInvalidResponse, *quote.Price)
		}
		if quote.PercentChange24h == nil {
			return PriceRecord{}, fmt.Errorf("%w: coinmarketcap: missing percent_change_24h", ErrInvalidResponse)
		}

		observed := time.Now()
		if quote.LastUpdated != "" {
			if ts, err := time.Parse(time.RFC3339, quote.LastUpdated); err == nil {
				observed = ts
			}
		}

		rec := PriceRecord{
			Price:      decimal.NewFromFloat(*quote.Price),
			ObservedAt: observed,
			Change24h:  decimal.NewFromFloat(*quote.PercentChange24h),
			Source:     "CoinMarketCap",
		}
		if quote.PercentChange7d != nil {
			change7d := decimal.NewFromFloat(*quote.PercentChange7d)
			rec.Change7d = &change7d
		}
		if quote.MarketCap != nil {
			rec.MarketCap = decimal.NewFromFloat(*quote.MarketCap)
		}
		if quote.Volume24h != nil {
			rec.Volume24h = decimal.NewFromFloat(*quote.Volume24h)
		}
		return rec, nil
	}
}
