package pipeline

import (
	"regexp"
	"strings"
)

var finePrintKeywords = []string{
	"credit",
	"rebate",
	"bill credit",
	"discount",
	"bonus",
	"minimum usage",
	"base charge",
	"pass-through",
	"pass through",
	"tdu charge",
	"tdsp",
	"monthly fee",
	"usage charge",
}

// Keywords that read as ordinary words inside longer ones ("compass
// throughout") only match on word boundaries.
var boundedKeywords = map[string]*regexp.Regexp{
	"pass-through": regexp.MustCompile(`\bpass-through\b`),
	"pass through": regexp.MustCompile(`\bpass\s+through\b`),
}

// DetectFinePrintFlags returns the keywords found in text, in keyword-list
// order. The flags are informational and do not feed the score.
func DetectFinePrintFlags(text string) []string {
	lower := strings.ToLower(text)
	flags := make([]string, 0, 4)
	for _, kw := range finePrintKeywords {
		if re, ok := boundedKeywords[kw]; ok {
			if re.MatchString(lower) {
				flags = append(flags, kw)
			}
			continue
		}
		if strings.Contains(lower, kw) {
			flags = append(flags, kw)
		}
	}
	return flags
}
