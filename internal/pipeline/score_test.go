package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"

	"wattwise/internal"
	"wattwise/internal/util"
)

func TestPriceTiers(t *testing.T) {
	s := DefaultSettings()

	p := PriceTiers(util.FloatPtr(15.8), util.FloatPtr(8.9), util.FloatPtr(12.1), s)
	if p.WeightedRate != 11.24 || p.RateSpread != 6.9 || !p.IsGotcha {
		t.Fatalf("got %+v", p)
	}

	p = PriceTiers(nil, util.FloatPtr(10), util.FloatPtr(12), s)
	if p.Rate500 != 10 || p.WeightedRate != 10.6 || p.RateSpread != 2 || p.IsGotcha {
		t.Fatalf("got %+v", p)
	}

	p = PriceTiers(nil, util.FloatPtr(10), nil, s)
	if p.WeightedRate != 10 || p.RateSpread != 0 || p.IsGotcha {
		t.Fatalf("got %+v", p)
	}

	// exactly at the threshold is not a gotcha
	p = PriceTiers(util.FloatPtr(13), util.FloatPtr(10), nil, s)
	if p.RateSpread != 3 || p.IsGotcha {
		t.Fatalf("got %+v", p)
	}

	if p := PriceTiers(nil, nil, nil, s); p != (Pricing{}) {
		t.Fatalf("got %+v", p)
	}
}

func TestScorePlanOrderAndClamp(t *testing.T) {
	s := DefaultSettings()
	in := ScoreInput{
		IsGotcha: true,
		FinePrint: FinePrint{
			HasRebate:      true,
			HasBaseCharge:  true,
			HasMinUsageFee: true,
			HasPassThrough: true,
		},
		UsageFeesCredits: true,
		IsNewCustomer:    true,
		IsPromotion:      true,
		IsPrepaid:        true,
		IsTOU:            true,
		RateType:         internal.RateVariable,
		CancelFee:        decimal.NewFromInt(250),
	}
	warnings, score := ScorePlan(in, s)
	want := []internal.Warning{
		internal.WarnPriceVariesByUsage,
		internal.WarnRebateCredit,
		internal.WarnBaseCharge,
		internal.WarnMinUsageFee,
		internal.WarnPassThrough,
		internal.WarnUsageFeesCredits,
		internal.WarnNewCustomersOnly,
		internal.WarnPromotionalRate,
		internal.WarnPrepaid,
		internal.WarnTimeOfUse,
		internal.WarnVariableRate,
		internal.WarnHighCancelFee,
	}
	if len(warnings) != len(want) {
		t.Fatalf("warnings=%v", warnings)
	}
	for i := range want {
		if warnings[i] != want[i] {
			t.Fatalf("warnings[%d]=%s want %s", i, warnings[i], want[i])
		}
	}
	if score != 0 {
		t.Fatalf("score=%d", score)
	}
}

func TestScorePlanClean(t *testing.T) {
	warnings, score := ScorePlan(ScoreInput{RateType: internal.RateFixed, CancelFee: decimal.NewFromInt(200)}, DefaultSettings())
	if len(warnings) != 0 || score != 100 {
		t.Fatalf("warnings=%v score=%d", warnings, score)
	}
}

func TestScorePlanInformationalWarnings(t *testing.T) {
	in := ScoreInput{
		FinePrint:        FinePrint{HasPassThrough: true},
		UsageFeesCredits: true,
		IsNewCustomer:    true,
		RateType:         internal.RateFixed,
		CancelFee:        decimal.NewFromInt(300),
	}
	warnings, score := ScorePlan(in, DefaultSettings())
	if len(warnings) != 4 || score != 100 {
		t.Fatalf("warnings=%v score=%d", warnings, score)
	}
}
