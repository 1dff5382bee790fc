package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FinePrint is what the scanner could read out of a plan's free text.
type FinePrint struct {
	Flags []string

	HasRebate    bool
	RebateAmount *decimal.Decimal

	HasBaseCharge    bool
	BaseChargeAmount *decimal.Decimal

	HasMinUsageFee bool
	MinUsageKWh    *int

	HasPassThrough bool
}

// patternRule is one named regular expression. The first capture group, if
// the expression has one, is the value the rule extracts.
type patternRule struct {
	name string
	re   *regexp.Regexp
}

func (r patternRule) find(text string) (string, bool) {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}

const dollarAmount = `\$\s?(\d[\d,]*(?:\.\d{1,2})?)`

var (
	rebateRules = []patternRule{
		{name: "rebate_after_amount", re: regexp.MustCompile(dollarAmount + `\s*(?:(?:usage|bill|energy|auto\s*pay|monthly)\s+)?(?:bill\s+)?(?:credit|rebate|bonus)`)},
		{name: "rebate_before_amount", re: regexp.MustCompile(`(?:credit|rebate|bonus)\s+(?:of\s+|up\s+to\s+|worth\s+|for\s+)?` + dollarAmount)},
	}
	baseChargeRule = patternRule{
		name: "base_charge",
		re:   regexp.MustCompile(`(?:base\s+charge|monthly\s+(?:service\s+)?(?:fee|charge))[^$;\n]{0,20}` + dollarAmount),
	}
	minUsageRules = []patternRule{
		{name: "min_usage_kwh", re: regexp.MustCompile(`minimum\s+usage[^;\n]{0,80}?(\d[\d,]*)\s*kwh`)},
		{name: "min_usage_kwh", re: regexp.MustCompile(`\b(?:less\s+than|fewer\s+than|under|below)\s+(\d[\d,]*)\s*kwh`)},
	}
	minUsagePhraseRule = patternRule{name: "min_usage", re: regexp.MustCompile(`minimum\s+usage`)}
	passThroughRule    = patternRule{name: "pass_through", re: regexp.MustCompile(`\bpass[\s-]?through\b`)}
)

// ScanFinePrint reads rebates, base charges, usage minimums and pass-through
// language out of free text. It never fails; anything it cannot read is left
// false or nil.
func ScanFinePrint(parts ...string) FinePrint {
	text := strings.ToLower(strings.Join(nonEmpty(parts), " "))
	fp := FinePrint{Flags: DetectFinePrintFlags(text)}
	if text == "" {
		return fp
	}

	for _, rule := range rebateRules {
		if raw, ok := rule.find(text); ok {
			fp.HasRebate = true
			fp.RebateAmount = parseDollars(raw)
			break
		}
	}

	if raw, ok := baseChargeRule.find(text); ok {
		fp.HasBaseCharge = true
		fp.BaseChargeAmount = parseDollars(raw)
	}

	for _, rule := range minUsageRules {
		if raw, ok := rule.find(text); ok {
			fp.HasMinUsageFee = true
			if n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", "")); err == nil {
				fp.MinUsageKWh = &n
			}
			break
		}
	}
	if !fp.HasMinUsageFee {
		_, fp.HasMinUsageFee = minUsagePhraseRule.find(text)
	}

	_, fp.HasPassThrough = passThroughRule.find(text)
	return fp
}

func parseDollars(raw string) *decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
