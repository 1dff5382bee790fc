package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reQuotes     = regexp.MustCompile(`["'` + "`" + `’“”]`)
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9&\-/\s.]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// NormalizeName upper-cases a provider or plan label and strips punctuation
// so that "Gexa Energy, LP" and "GEXA ENERGY LP" compare equal.
func NormalizeName(input string) string {
	s := strings.ToUpper(input)
	s = reQuotes.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ".", "")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func Tokenize(input string) []string {
	norm := NormalizeName(input)
	parts := strings.Split(norm, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

func FloatPtr(v float64) *float64 { return &v }
