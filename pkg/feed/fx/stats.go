package fx

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

// Trend is a coarse direction signal over the recent history.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// trendWindow is the size of the two adjacent sub-windows compared for the
// trend signal. Fewer than 2*trendWindow points always yields neutral.
const trendWindow = 5

// Summary describes the retained price history.
type Summary struct {
	Count      int             `json:"count"`
	Min        decimal.Decimal `json:"min"`
	Max        decimal.Decimal `json:"max"`
	Mean       decimal.Decimal `json:"mean"`
	Volatility decimal.Decimal `json:"volatility"` // population standard deviation
	Trend      Trend           `json:"trend"`
	Earliest   *time.Time      `json:"earliest,omitempty"`
	Latest     *time.Time      `json:"latest,omitempty"`
}

// Summarize computes descriptive statistics over the history, oldest
// first. An empty history yields zero values, a neutral trend and absent
// timestamps.
func Summarize(history []sources.PriceRecord) Summary {
	summary := Summary{
		Count: len(history),
		Trend: TrendNeutral,
	}
	if len(history) == 0 {
		return summary
	}

	min := history[0].Price
	max := history[0].Price
	sum := decimal.Zero
	for _, rec := range history {
		if rec.Price.LessThan(min) {
			min = rec.Price
		}
		if rec.Price.GreaterThan(max) {
			max = rec.Price
		}
		sum = sum.Add(rec.Price)
	}
	count := decimal.NewFromInt(int64(len(history)))
	mean := sum.Div(count)

	// Population standard deviation; the square root forces a float round
	// trip, which is fine at this precision.
	meanF, _ := mean.Float64()
	var variance float64
	for _, rec := range history {
		p, _ := rec.Price.Float64()
		d := p - meanF
		variance += d * d
	}
	variance /= float64(len(history))

	summary.Min = min
	summary.Max = max
	summary.Mean = mean
	summary.Volatility = decimal.NewFromFloat(math.Sqrt(variance))
	summary.Trend = trend(history)

	earliest := history[0].ObservedAt
	latest := history[len(history)-1].ObservedAt
	summary.Earliest = &earliest
	summary.Latest = &latest

	return summary
}

// trend compares the mean of the last trendWindow points to the mean of
// the trendWindow points preceding them.
func trend(history []sources.PriceRecord) Trend {
	if len(history) < 2*trendWindow {
		return TrendNeutral
	}

	recent := windowMean(history[len(history)-trendWindow:])
	previous := windowMean(history[len(history)-2*trendWindow : len(history)-trendWindow])

	switch recent.Cmp(previous) {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendNeutral
	}
}

func windowMean(window []sources.PriceRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range window {
		sum = sum.Add(rec.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(window))))
}
