package pipeline

import (
	"github.com/shopspring/decimal"

	"wattwise/internal"
)

// ScoreInput is the subset of a plan the scorer looks at.
type ScoreInput struct {
	IsGotcha         bool
	FinePrint        FinePrint
	UsageFeesCredits bool
	IsNewCustomer    bool
	IsPromotion      bool
	IsPrepaid        bool
	IsTOU            bool
	RateType         internal.RateType
	CancelFee        decimal.Decimal
}

// ScorePlan lists the consumer-facing warnings and a 0..100 transparency
// score. The score ranks plans by how much their headline price can be
// trusted; it says nothing about what a given household will pay.
func ScorePlan(in ScoreInput, s Settings) ([]internal.Warning, int) {
	pen := s.Penalties
	fp := in.FinePrint
	nonFixed := in.RateType != internal.RateFixed
	highFee := in.CancelFee.GreaterThan(decimal.NewFromFloat(s.HighCancelFee))

	checks := []struct {
		hit     bool
		warning internal.Warning
		penalty int
	}{
		{in.IsGotcha, internal.WarnPriceVariesByUsage, pen.Gotcha},
		{fp.HasRebate, internal.WarnRebateCredit, pen.Rebate},
		{fp.HasBaseCharge, internal.WarnBaseCharge, pen.BaseCharge},
		{fp.HasMinUsageFee, internal.WarnMinUsageFee, pen.MinUsageFee},
		{fp.HasPassThrough, internal.WarnPassThrough, 0},
		{in.UsageFeesCredits, internal.WarnUsageFeesCredits, 0},
		{in.IsNewCustomer, internal.WarnNewCustomersOnly, 0},
		{in.IsPromotion, internal.WarnPromotionalRate, pen.Promotional},
		{in.IsPrepaid, internal.WarnPrepaid, pen.Prepaid},
		{in.IsTOU, internal.WarnTimeOfUse, pen.TimeOfUse},
		{nonFixed, internal.WarnVariableRate, pen.NonFixed},
		{highFee, internal.WarnHighCancelFee, 0},
	}

	warnings := make([]internal.Warning, 0, len(checks))
	score := 100
	for _, c := range checks {
		if !c.hit {
			continue
		}
		warnings = append(warnings, c.warning)
		score -= c.penalty
	}
	return warnings, clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
