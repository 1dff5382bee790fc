package pipeline

import (
	"time"

	"wattwise/internal"
	"wattwise/internal/directory"
	"wattwise/internal/util"
)

// Assembly carries everything the earlier stages produced for one record.
type Assembly struct {
	Record    NormalizedRecord
	Pricing   Pricing
	FinePrint FinePrint
	Warnings  []internal.Warning
	Score     int
}

// AssemblePlan merges the stage outputs into the published plan. It does no
// validation of its own.
func AssemblePlan(a Assembly, s Settings, dir *directory.Directory, now time.Time) internal.CanonicalPlan {
	rec := a.Record
	fp := a.FinePrint

	enrollURL := rec.EnrollURL
	if enrollURL == "" {
		if url, ok := dir.SignupURL(rec.Provider); ok {
			enrollURL = url
		}
	}

	flags := fp.Flags
	if flags == nil {
		flags = []string{}
	}
	warnings := a.Warnings
	if warnings == nil {
		warnings = []internal.Warning{}
	}

	return internal.CanonicalPlan{
		IDKey:    rec.IDKey,
		Source:   internal.SourcePowerToChoose,
		Provider: rec.Provider,
		PlanName: rec.PlanName,
		TDU:      rec.TDU,

		Rate500:      a.Pricing.Rate500,
		Rate1000:     a.Pricing.Rate1000,
		Rate2000:     a.Pricing.Rate2000,
		WeightedRate: a.Pricing.WeightedRate,

		TermMonths:   rec.TermMonths,
		RenewablePct: rec.RenewablePct,
		CancelFee:    rec.CancelFee,
		RateType:     rec.RateType,

		IsPrepaid:     rec.IsPrepaid,
		IsTOU:         rec.IsTOU,
		IsFixed:       rec.IsFixed,
		IsNewCustomer: rec.IsNewCustomer,
		IsPromotion:   rec.IsPromotion,

		FeesDetails:  util.Truncate(rec.FeesDetails, s.TextLimits.FeesDetails),
		SpecialTerms: util.Truncate(rec.SpecialTerms, s.TextLimits.SpecialTerms),
		PromoDesc:    util.Truncate(rec.PromoDesc, s.TextLimits.PromoDesc),

		HasRebate:           fp.HasRebate,
		RebateAmount:        fp.RebateAmount,
		HasBaseCharge:       fp.HasBaseCharge,
		BaseChargeAmount:    fp.BaseChargeAmount,
		HasMinUsageFee:      fp.HasMinUsageFee,
		MinUsageKWh:         fp.MinUsageKWh,
		HasPassThrough:      fp.HasPassThrough,
		HasUsageFeesCredits: usageFeesCredits(rec, fp),
		FinePrintFlags:      flags,

		RateSpread:        a.Pricing.RateSpread,
		IsGotcha:          a.Pricing.IsGotcha,
		Warnings:          warnings,
		TransparencyScore: a.Score,

		EFLURL:      rec.EFLURL,
		EnrollURL:   enrollURL,
		TermsURL:    rec.TermsURL,
		Website:     rec.Website,
		EnrollPhone: rec.EnrollPhone,

		ProcessedAt: now.UTC(),
	}
}

// usageFeesCredits is set by the export's own flag column or by any
// fine-print keyword hit.
func usageFeesCredits(rec NormalizedRecord, fp FinePrint) bool {
	return rec.UsageFeesCredits || len(fp.Flags) > 0
}
