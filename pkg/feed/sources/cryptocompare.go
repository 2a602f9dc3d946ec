package sources

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// cryptoCompareRaw mirrors one RAW quote from /data/pricemultifull.
type cryptoCompareRaw struct {
	Price          *float64 `json:"PRICE"`
	ChangePct24h   *float64 `json:"CHANGEPCT24HOUR"`
	MarketCap      *float64 `json:"MKTCAP"`
	TotalVolume24h *float64 `json:"TOTALVOLUME24HTO"`
	LastUpdate     int64    `json:"LASTUPDATE"`
}

// CryptoCompare returns a parser for the pricemultifull endpoint. fsym is
// the asset symbol, tsym the uppercase quote currency. 7-day change is not
// provided by this endpoint; the observation timestamp comes from the
// response's LASTUPDATE unix field.
func CryptoCompare(fsym, tsym string) ParseFunc {
	fsym = strings.ToUpper(fsym)
	tsym = strings.ToUpper(tsym)

	return func(raw []byte) (PriceRecord, error) {
		var payload struct {
			Raw map[string]map[string]cryptoCompareRaw `json:"RAW"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return PriceRecord{}, fmt.Errorf("%w: cryptocompare: %v", ErrInvalidResponse, err)
		}

		quote, ok := payload.Raw[fsym][tsym]
		if !ok {
			return PriceRecord{}, fmt.Errorf("%w: cryptocompare: no %s/%s quote", ErrInvalidResponse, fsym, tsym)
		}

		if quote.Price == nil {
			return PriceRecord{}, fmt.Errorf("%w: cryptocompare: missing PRICE", ErrInvalidResponse)
		}
		if *quote.Price <= 0 {
			return PriceRecord{}, fmt.Errorf("%w: cryptocompare: non-positive price %f", ErrInvalidResponse, *quote.Price)
		}
		if quote.ChangePct24h == nil {
			return PriceRecord{}, fmt.Errorf("%w: cryptocompare: missing CHANGEPCT24HOUR", ErrInvalidResponse)
		}

		observed := time.Now()
		if quote.LastUpdate > 0 {
			observed = time.Unix(quote.LastUpdate, 0)
		}

		rec := PriceRecord{
			Price:      decimal.NewFromFloat(*quote.Price),
			ObservedAt: observed,
			Change24h:  decimal.NewFromFloat(*quote.ChangePct24h),
			Source:     "CryptoCompare",
		}
		if quote.MarketCap != nil {
			rec.MarketCap = decimal.NewFromFloat(*quote.MarketCap)
		}
		if quote.TotalVolume24h != nil {
			rec.Volume24h = decimal.NewFromFloat(*quote.TotalVolume24h)
		}
		return rec, nil
	}
}
