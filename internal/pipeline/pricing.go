package pipeline

import "wattwise/internal/util"

type Pricing struct {
	Rate500      float64
	Rate1000     float64
	Rate2000     float64
	WeightedRate float64
	RateSpread   float64
	IsGotcha     bool
}

// PriceTiers blends the tier rates into one comparable number and measures
// how much the price moves with usage. Missing 500/2000 tiers fall back to
// the 1000 kWh rate for the blend; the spread only looks at tiers the source
// actually published.
func PriceTiers(r500, r1000, r2000 *float64, s Settings) Pricing {
	if r1000 == nil {
		return Pricing{}
	}
	base := *r1000
	p := Pricing{Rate500: base, Rate1000: base, Rate2000: base}
	if r500 != nil {
		p.Rate500 = *r500
	}
	if r2000 != nil {
		p.Rate2000 = *r2000
	}

	w := s.Weights
	p.WeightedRate = util.Round2(p.Rate500*w.W500 + p.Rate1000*w.W1000 + p.Rate2000*w.W2000)

	present := make([]float64, 0, 3)
	for _, r := range []*float64{r500, r1000, r2000} {
		if r != nil {
			present = append(present, *r)
		}
	}
	if len(present) >= 2 {
		lo, hi := present[0], present[0]
		for _, v := range present[1:] {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		p.RateSpread = util.Round2(hi - lo)
	}
	p.IsGotcha = p.RateSpread > s.GotchaThreshold
	return p
}
