package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"wattwise/internal"
)

// ScoreDisclaimer travels with every published score.
const ScoreDisclaimer = "transparency_score is a heuristic ranking aid based on published plan terms. It is not a cost guarantee; check the Electricity Facts Label for what you will pay at your usage."

var exportHeaders = []string{
	"provider", "plan_name", "tdu",
	"rate_500", "rate_1000", "rate_2000", "weighted_rate", "rate_spread",
	"term_months", "renewable_pct", "cancel_fee", "rate_type",
	"transparency_score", "is_gotcha", "warnings",
	"rebate_amount", "base_charge_amount", "min_usage_kwh",
	"is_prepaid", "is_tou", "efl_url", "enroll_url", "processed_at",
}

// RankPlans orders a copy of plans the way the store lists them: cheapest
// weighted rate first, then most transparent.
func RankPlans(plans []internal.CanonicalPlan) []internal.CanonicalPlan {
	ranked := append([]internal.CanonicalPlan(nil), plans...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.WeightedRate != b.WeightedRate {
			return a.WeightedRate < b.WeightedRate
		}
		if a.TransparencyScore != b.TransparencyScore {
			return a.TransparencyScore > b.TransparencyScore
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.PlanName < b.PlanName
	})
	return ranked
}

func ExportPlansToXLSX(plans []internal.CanonicalPlan, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "Plans"); err != nil {
		return err
	}
	sheet = "Plans"

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, p := range plans {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, p.Provider)
		set(2, p.PlanName)
		set(3, p.TDU)
		set(4, p.Rate500)
		set(5, p.Rate1000)
		set(6, p.Rate2000)
		set(7, p.WeightedRate)
		set(8, p.RateSpread)
		set(9, p.TermMonths)
		set(10, p.RenewablePct)
		set(11, p.CancelFee.InexactFloat64())
		set(12, string(p.RateType))
		set(13, p.TransparencyScore)
		set(14, p.IsGotcha)
		set(15, joinWarnings(p.Warnings))
		set(16, derefDecimal(p.RebateAmount))
		set(17, derefDecimal(p.BaseChargeAmount))
		set(18, derefInt(p.MinUsageKWh))
		set(19, p.IsPrepaid)
		set(20, p.IsTOU)
		set(21, p.EFLURL)
		set(22, p.EnrollURL)
		set(23, p.ProcessedAt.UTC().Format(time.RFC3339))
	}

	if _, err := f.NewSheet("About"); err != nil {
		return err
	}
	_ = f.SetCellValue("About", "A1", "Note")
	_ = f.SetCellValue("About", "A2", ScoreDisclaimer)
	_ = f.SetCellValue("About", "A3", "Plans exported")
	_ = f.SetCellValue("About", "B3", len(plans))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func joinWarnings(ws []internal.Warning) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = string(w)
	}
	return strings.Join(parts, "; ")
}

func derefDecimal(v *decimal.Decimal) any {
	if v == nil {
		return ""
	}
	return v.InexactFloat64()
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
