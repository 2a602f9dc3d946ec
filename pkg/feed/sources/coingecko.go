package sources

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CoinGecko returns a parser for the /simple/price endpoint with market
// cap, 24h volume and 24h change included, e.g.
//
//	/api/v3/simple/price?ids=internet-computer&vs_currencies=usd&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true
//
// id is the CoinGecko coin identifier, currency the lowercase quote
// currency. CoinGecko omits 7-day change on this endpoint, so Change7d is
// absent. The endpoint carries no timestamp; records are stamped at parse
// time.
func CoinGecko(id, currency string) ParseFunc {
	currency = strings.ToLower(currency)
	priceKey := currency
	capKey := currency + "_market_cap"
	volKey := currency + "_24h_vol"
	changeKey := currency + "_24h_change"

	return func(raw []byte) (PriceRecord, error) {
		var payload map[string]map[string]*float64
		if err := json.Unmarshal(raw, &payload); err != nil {
			return PriceRecord{}, fmt.Errorf("%w: coingecko: %v", ErrInvalidResponse, err)
		}

		fields, ok := payload[id]
		if !ok {
			return PriceRecord{}, fmt.Errorf("%w: coingecko: id %q not in response", ErrInvalidResponse, id)
		}

		price := fields[priceKey]
		if price == nil {
			return PriceRecord{}, fmt.Errorf("%w: coingecko: missing %q", ErrInvalidResponse, priceKey)
		}
		if *price <= 0 {
			return PriceRecord{}, fmt.Errorf("%w: coingecko: non-positive price %f", ErrInvalidResponse, *price)
		}
		change := fields[changeKey]
		if change == nil {
			return PriceRecord{}, fmt.Errorf("%w: coingecko: missing %q", ErrInvalidResponse, changeKey)
		}

		rec := PriceRecord{
			Price:      decimal.NewFromFloat(*price),
			ObservedAt: time.Now(),
			Change24h:  decimal.NewFromFloat(*change),
			Source:     "CoinGecko",
		}
		if cap := fields[capKey]; cap != nil {
			rec.MarketCap = decimal.NewFromFloat(*cap)
		}
		if vol := fields[volKey]; vol != nil {
			rec.Volume24h = decimal.NewFromFloat(*vol)
		}
		return rec, nil
	}
}
