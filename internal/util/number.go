package util

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultTermMonths = 12

var (
	rateDecoration = strings.NewReplacer(
		"$", "", "¢", "", "%", "", " ", "", " ", "",
		"/kwh", "", "perkwh", "", "kwh", "", "cents", "", "cent", "",
	)
	firstNumberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	nonDigitPattern    = regexp.MustCompile(`[^\d]`)
	thousandsComma     = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	booleanTrue        = map[string]struct{}{"true": {}, "1": {}, "yes": {}, "y": {}, "t": {}}
	booleanLiterals    = map[string]struct{}{"true": {}, "false": {}, "yes": {}, "no": {}, "y": {}, "n": {}, "t": {}, "f": {}}
)

// ParseNumber strips currency, cent and percent decoration plus thousands
// separators and parses what is left.
func ParseNumber(input string) (float64, bool) {
	token := rateDecoration.Replace(strings.ToLower(strings.TrimSpace(input)))
	if token == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(token), 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if err != nil {
		m := firstNumberPattern.FindString(input)
		if m == "" {
			return 0, false
		}
		if parsed, err = strconv.ParseFloat(normalizeNumericToken(m), 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

// ParseRate returns a rate in cents/kWh. Values strictly between 0 and 1 are
// $/kWh fractions and get scaled by 100. Nil means absent.
func ParseRate(input string) *float64 {
	v, ok := ParseNumber(input)
	if !ok {
		return nil
	}
	if v > 0 && v < 1 {
		v *= 100
	}
	v = Round2(v)
	return &v
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseTerm strips every non-digit and parses the remainder as months.
func ParseTerm(input string) int {
	digits := nonDigitPattern.ReplaceAllString(input, "")
	if digits == "" {
		return DefaultTermMonths
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return DefaultTermMonths
	}
	return n
}

func ParseBool(input string) bool {
	_, ok := booleanTrue[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// IsBooleanLiteral reports whether a free-text cell only carries a flag value.
func IsBooleanLiteral(input string) bool {
	_, ok := booleanLiterals[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// ParsePercent reads the first number in the text as a whole percentage
// clamped to [0,100].
func ParsePercent(input string) int {
	m := firstNumberPattern.FindString(input)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	pct := int(math.Round(v))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ParseAmount reads the first currency-looking number in the text.
func ParseAmount(input string) (decimal.Decimal, bool) {
	m := firstNumberPattern.FindString(input)
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseCount parses an integer that may carry thousands separators ("1,000").
func ParseCount(input string) (int, bool) {
	compact := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
	n, err := strconv.Atoi(compact)
	if err != nil {
		return 0, false
	}
	return n, true
}

func normalizeNumericToken(token string) string {
	if strings.HasPrefix(token, "0,") && !strings.Contains(token, ".") {
		return strings.Replace(token, ",", ".", 1)
	}
	if thousandsComma.MatchString(token) {
		return strings.ReplaceAll(token, ",", "")
	}
	if strings.Contains(token, ",") && !strings.Contains(token, ".") {
		return strings.ReplaceAll(token, ",", ".")
	}
	return strings.ReplaceAll(token, ",", "")
}
