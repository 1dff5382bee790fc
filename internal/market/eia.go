package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	EIASourceAPI      = "eia_api_v2"
	EIASourceFallback = "eia_hardcoded_2025"

	// ProjectedIncreasePct is the industry projection for residential rates
	// by 2030.
	ProjectedIncreasePct = 29.0
	projectionFactor     = 1.29
)

// AnnualRates holds Texas residential retail averages in cents per kWh.
type AnnualRates struct {
	Historical           map[string]float64 `json:"historical_rates"`
	FiveYearChangePct    float64            `json:"five_year_change_pct"`
	Projected2030Rate    float64            `json:"projected_2030_rate"`
	ProjectedIncreasePct float64            `json:"projected_increase_pct"`
	CurrentAvgRate       float64            `json:"current_avg_rate"`
	Source               string             `json:"source"`
}

type MonthlyRate struct {
	Month string  `json:"month"`
	Rate  float64 `json:"rate"`
}

// FallbackAnnualRates is used when no EIA key is configured.
func FallbackAnnualRates() AnnualRates {
	return AnnualRates{
		Historical: map[string]float64{
			"2020": 11.56, "2021": 12.08, "2022": 14.05,
			"2023": 14.72, "2024": 14.91, "2025": 15.03,
		},
		FiveYearChangePct:    30.0,
		Projected2030Rate:    19.4,
		ProjectedIncreasePct: ProjectedIncreasePct,
		CurrentAvgRate:       15.03,
		Source:               EIASourceFallback,
	}
}

// EIARetailURL builds the v2 retail-sales query for Texas residential prices,
// newest period first.
func EIARetailURL(baseURL, apiKey, frequency string, length int) string {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("frequency", frequency)
	q.Set("data[0]", "price")
	q.Set("facets[stateid][]", "TX")
	q.Set("facets[sectorid][]", "RES")
	q.Set("sort[0][column]", "period")
	q.Set("sort[0][direction]", "desc")
	q.Set("length", strconv.Itoa(length))
	return strings.TrimRight(baseURL, "/") + "/electricity/retail-sales/data/?" + q.Encode()
}

type eiaResponse struct {
	Response struct {
		Data []eiaRecord `json:"data"`
	} `json:"response"`
}

type eiaRecord struct {
	Period string      `json:"period"`
	Price  json.Number `json:"price"`
}

func decodeEIA(body []byte) ([]eiaRecord, error) {
	var resp eiaResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode eia response: %w", err)
	}
	return resp.Response.Data, nil
}

// ParseEIAAnnual turns the annual response into rates with the change over
// the returned window and a 2030 projection.
func ParseEIAAnnual(body []byte) (AnnualRates, error) {
	records, err := decodeEIA(body)
	if err != nil {
		return AnnualRates{}, err
	}

	rates := map[string]float64{}
	for _, r := range records {
		price, err := r.Price.Float64()
		if r.Period == "" || err != nil || price == 0 {
			continue
		}
		rates[r.Period] = roundTo(price, 2)
	}
	if len(rates) == 0 {
		return AnnualRates{}, fmt.Errorf("eia: no annual rates returned")
	}

	years := make([]string, 0, len(rates))
	for y := range rates {
		years = append(years, y)
	}
	sort.Strings(years)
	current := rates[years[len(years)-1]]
	oldest := rates[years[0]]
	change := 0.0
	if oldest != 0 {
		change = roundTo((current-oldest)/oldest*100, 1)
	}

	return AnnualRates{
		Historical:           rates,
		FiveYearChangePct:    change,
		Projected2030Rate:    roundTo(current*projectionFactor, 2),
		ProjectedIncreasePct: ProjectedIncreasePct,
		CurrentAvgRate:       current,
		Source:               EIASourceAPI,
	}, nil
}

// ParseEIAMonthly keeps the response order, newest month first.
func ParseEIAMonthly(body []byte) ([]MonthlyRate, error) {
	records, err := decodeEIA(body)
	if err != nil {
		return nil, err
	}
	out := make([]MonthlyRate, 0, len(records))
	for _, r := range records {
		price, err := r.Price.Float64()
		if r.Period == "" || err != nil || price == 0 {
			continue
		}
		out = append(out, MonthlyRate{Month: r.Period, Rate: roundTo(price, 2)})
	}
	return out, nil
}
