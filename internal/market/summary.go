package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	StatusLow    = "low"
	StatusNormal = "normal"
	StatusHigh   = "high"
	StatusSpike  = "spike"
)

// Summary is the consumer-facing reading of the current market.
type Summary struct {
	WholesaleStatus      string   `json:"wholesale_status,omitempty"`
	WholesalePriceMWh    *float64 `json:"wholesale_price_mwh,omitempty"`
	ImpliedRetailCents   *float64 `json:"implied_retail_cents,omitempty"`
	MarketSignal         string   `json:"market_signal,omitempty"`
	RenewablePct         *float64 `json:"renewable_pct,omitempty"`
	GreenStatus          string   `json:"green_status,omitempty"`
	TXAvgResidentialRate *float64 `json:"tx_avg_residential_rate,omitempty"`
	RateTrend            string   `json:"rate_trend,omitempty"`
}

// WholesaleStatus buckets a $/MWh price.
func WholesaleStatus(price float64) string {
	switch {
	case price < 25:
		return StatusLow
	case price < 50:
		return StatusNormal
	case price < 100:
		return StatusHigh
	default:
		return StatusSpike
	}
}

// ImpliedRetailCents adds typical delivery and retailer margin to a
// wholesale price to give a rough retail rate in cents per kWh.
func ImpliedRetailCents(price float64) float64 {
	return decimal.NewFromFloat(price).Div(decimal.NewFromInt(10)).Add(retailAdder).Round(1).InexactFloat64()
}

var retailAdder = decimal.RequireFromString("5.5")

var marketSignals = map[string]string{
	StatusLow:    "Wholesale prices are LOW. Good time to lock in a fixed rate.",
	StatusNormal: "Wholesale prices are NORMAL. Standard market conditions.",
	StatusHigh:   "Wholesale prices are ELEVATED. Variable rate customers may see higher bills.",
	StatusSpike:  "PRICE SPIKE detected. Avoid variable rate plans!",
}

func greenStatus(renewable float64) string {
	var note string
	switch {
	case renewable > 50:
		note = "very green! Wind and solar are carrying the grid."
	case renewable > 30:
		note = "solid renewable contribution."
	default:
		note = "moderate renewable output today."
	}
	return fmt.Sprintf("Texas grid is %s%% renewable right now: %s", formatNumber(renewable), note)
}

func rateTrend(a AnnualRates) string {
	return fmt.Sprintf("Texas residential rates have risen %s%% over the last several years. "+
		"Industry projections suggest another %s%% increase by 2030.",
		formatNumber(a.FiveYearChangePct), formatNumber(a.ProjectedIncreasePct))
}

// Summarize fills only the parts whose inputs are present.
func Summarize(prices *Prices, mix *FuelMix, annual *AnnualRates) Summary {
	var s Summary
	if prices != nil {
		wp := prices.CurrentWholesale
		retail := ImpliedRetailCents(wp)
		s.WholesaleStatus = WholesaleStatus(wp)
		s.WholesalePriceMWh = &wp
		s.ImpliedRetailCents = &retail
		s.MarketSignal = marketSignals[s.WholesaleStatus]
	}
	if mix != nil {
		renew := mix.RenewablePct
		s.RenewablePct = &renew
		s.GreenStatus = greenStatus(renew)
	}
	if annual != nil {
		avg := annual.CurrentAvgRate
		s.TXAvgResidentialRate = &avg
		s.RateTrend = rateTrend(*annual)
	}
	return s
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
