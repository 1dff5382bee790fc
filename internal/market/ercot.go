package market

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Column positions in the real-time settlement point price table.
const (
	colOperDay   = 0
	colInterval  = 1
	colHubAvg    = 4
	colLZHouston = 9
	colLZNorth   = 11
	colLZSouth   = 13
	colLZWest    = 14
	minPriceCols = 16
)

var ErrNoPrices = errors.New("market: no settlement prices parsed")

// Prices summarizes one operating day of wholesale prices in $/MWh.
type Prices struct {
	CurrentWholesale  float64 `json:"current_wholesale_price"`
	DailyAvgWholesale float64 `json:"daily_avg_wholesale"`
	DailyMinWholesale float64 `json:"daily_min_wholesale"`
	DailyMaxWholesale float64 `json:"daily_max_wholesale"`
	LZNorthAvg        float64 `json:"lz_north_avg"`
	LZHoustonAvg      float64 `json:"lz_houston_avg"`
	LZSouthAvg        float64 `json:"lz_south_avg"`
	LZWestAvg         float64 `json:"lz_west_avg"`
	Intervals         int     `json:"intervals_captured"`
	LastInterval      string  `json:"last_interval"`
	OperDate          string  `json:"oper_date"`
}

type priceInterval struct {
	date     string
	interval string
	hub      float64
	houston  float64
	north    float64
	south    float64
	west     float64
}

// ParseERCOTPrices reads the settlement point table. Rows with fewer than
// sixteen cells or non-numeric prices are skipped.
func ParseERCOTPrices(html []byte) (Prices, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Prices{}, err
	}

	var rows []priceInterval
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := make([]string, 0, minPriceCols)
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) < minPriceCols {
			return
		}
		row, ok := parseInterval(cells)
		if ok {
			rows = append(rows, row)
		}
	})
	if len(rows) == 0 {
		return Prices{}, ErrNoPrices
	}

	var sumHub, sumHouston, sumNorth, sumSouth, sumWest float64
	minHub, maxHub := rows[0].hub, rows[0].hub
	for _, r := range rows {
		sumHub += r.hub
		sumHouston += r.houston
		sumNorth += r.north
		sumSouth += r.south
		sumWest += r.west
		if r.hub < minHub {
			minHub = r.hub
		}
		if r.hub > maxHub {
			maxHub = r.hub
		}
	}
	n := float64(len(rows))
	latest := rows[len(rows)-1]

	return Prices{
		CurrentWholesale:  latest.hub,
		DailyAvgWholesale: roundTo(sumHub/n, 2),
		DailyMinWholesale: roundTo(minHub, 2),
		DailyMaxWholesale: roundTo(maxHub, 2),
		LZNorthAvg:        roundTo(sumNorth/n, 2),
		LZHoustonAvg:      roundTo(sumHouston/n, 2),
		LZSouthAvg:        roundTo(sumSouth/n, 2),
		LZWestAvg:         roundTo(sumWest/n, 2),
		Intervals:         len(rows),
		LastInterval:      latest.interval,
		OperDate:          latest.date,
	}, nil
}

func parseInterval(cells []string) (priceInterval, bool) {
	row := priceInterval{date: cells[colOperDay], interval: cells[colInterval]}
	targets := []struct {
		col int
		dst *float64
	}{
		{colHubAvg, &row.hub},
		{colLZHouston, &row.houston},
		{colLZNorth, &row.north},
		{colLZSouth, &row.south},
		{colLZWest, &row.west},
	}
	for _, t := range targets {
		v, err := strconv.ParseFloat(cells[t.col], 64)
		if err != nil {
			return priceInterval{}, false
		}
		*t.dst = v
	}
	return row, true
}

// FuelMix is the share of generation by fuel, in percent.
type FuelMix struct {
	WindPct      float64 `json:"wind_pct"`
	SolarPct     float64 `json:"solar_pct"`
	GasPct       float64 `json:"gas_pct"`
	CoalPct      float64 `json:"coal_pct"`
	NuclearPct   float64 `json:"nuclear_pct"`
	OtherPct     float64 `json:"other_pct"`
	RenewablePct float64 `json:"renewable_total_pct"`
	WindMW       float64 `json:"wind_mw,omitempty"`
	SolarMW      float64 `json:"solar_mw,omitempty"`
	TotalMW      float64 `json:"total_mw,omitempty"`
	Source       string  `json:"source"`
}

const (
	FuelSourceEstimated  = "estimated_average"
	FuelSourceConditions = "ercot_system_conditions"
	FuelSourceRealtime   = "ercot_realtime"
)

var (
	windMW  = regexp.MustCompile(`(?i)wind\D{0,60}?(\d[\d,]*(?:\.\d+)?)\s*mw`)
	solarMW = regexp.MustCompile(`(?i)solar\D{0,60}?(\d[\d,]*(?:\.\d+)?)\s*mw`)
	totalMW = regexp.MustCompile(`(?i)total\D{0,60}?(\d[\d,]*(?:\.\d+)?)\s*mw`)
)

// EstimatedFuelMix is the annual Texas generation average used when the
// grid conditions page is unavailable.
func EstimatedFuelMix() FuelMix {
	return FuelMix{
		WindPct: 28, SolarPct: 12, GasPct: 42, CoalPct: 12, NuclearPct: 5, OtherPct: 1,
		RenewablePct: 40,
		Source:       FuelSourceEstimated,
	}
}

// ParseFuelMix pulls wind and solar output against total demand from the
// system conditions page, keeping the estimates for anything it cannot read.
func ParseFuelMix(html []byte) FuelMix {
	mix := EstimatedFuelMix()
	mix.Source = FuelSourceConditions

	text := string(html)
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html)); err == nil {
		text = strings.Join(strings.Fields(doc.Text()), " ")
	}

	total, hasTotal := matchMW(totalMW, text)
	if hasTotal && total > 0 {
		if wind, ok := matchMW(windMW, text); ok {
			mix.WindPct = roundTo(wind/total*100, 1)
			mix.WindMW = wind
			mix.TotalMW = total
			mix.Source = FuelSourceRealtime
		}
		if solar, ok := matchMW(solarMW, text); ok {
			mix.SolarPct = roundTo(solar/total*100, 1)
			mix.SolarMW = solar
		}
	}
	mix.RenewablePct = roundTo(mix.WindPct+mix.SolarPct, 1)
	return mix
}

func matchMW(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	return v, err == nil
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
