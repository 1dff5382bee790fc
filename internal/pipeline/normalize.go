package pipeline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"wattwise/internal"
	"wattwise/internal/util"
)

// NormalizedRecord is a RawRecord with every canonical field resolved and
// typed. Absent rates stay nil so the validator can tell them apart from 0.
type NormalizedRecord struct {
	IDKey    string
	Provider string
	PlanName string
	RawTDU   string
	TDU      string

	Rate500  *float64
	Rate1000 *float64
	Rate2000 *float64

	TermMonths   int
	RenewablePct int
	CancelFee    decimal.Decimal
	RateType     internal.RateType

	IsPrepaid        bool
	IsTOU            bool
	IsFixed          bool
	IsNewCustomer    bool
	IsPromotion      bool
	UsageFeesCredits bool

	FeesDetails  string
	SpecialTerms string
	PromoDesc    string

	EFLURL      string
	EnrollURL   string
	TermsURL    string
	Website     string
	EnrollPhone string
}

// recordView indexes a RawRecord by normalized header. When two raw headers
// collapse to the same key, the lexically first non-empty one wins so the
// result never depends on map order.
type recordView map[string]string

func newRecordView(raw internal.RawRecord) recordView {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	view := make(recordView, len(raw))
	for _, k := range keys {
		nk := normalizeKey(k)
		value := strings.TrimSpace(raw[k])
		if existing, ok := view[nk]; ok && existing != "" {
			continue
		}
		view[nk] = value
	}
	return view
}

// lookup returns the first non-empty value among the field's aliases.
func (v recordView) lookup(field Field) string {
	for _, alias := range FieldAliases[field] {
		if value := v[alias]; value != "" {
			return value
		}
	}
	return ""
}

// lookupText is lookup that skips aliases holding a bare boolean. The
// MinUsageFeesCredits column is a flag in newer exports and free text in
// older ones.
func (v recordView) lookupText(field Field) string {
	for _, alias := range FieldAliases[field] {
		value := v[alias]
		if value == "" || util.IsBooleanLiteral(value) {
			continue
		}
		return value
	}
	return ""
}

func (v recordView) has(field Field) bool {
	for _, alias := range FieldAliases[field] {
		if v[alias] != "" {
			return true
		}
	}
	return false
}

func NormalizeRecord(raw internal.RawRecord) NormalizedRecord {
	view := newRecordView(raw)

	rawTDU := view.lookup(FieldTDU)
	rateType := normalizeRateType(view.lookup(FieldRateType))

	isFixed := rateType == internal.RateFixed
	if view.has(FieldFixed) {
		isFixed = util.ParseBool(view.lookup(FieldFixed))
	}

	cancelFee, ok := util.ParseAmount(view.lookup(FieldCancelFee))
	if !ok {
		cancelFee = decimal.Zero
	}

	return NormalizedRecord{
		IDKey:    view.lookup(FieldIDKey),
		Provider: util.NormalizeSpaces(view.lookup(FieldProvider)),
		PlanName: util.NormalizeSpaces(view.lookup(FieldPlanName)),
		RawTDU:   rawTDU,
		TDU:      NormalizeTDU(rawTDU),

		Rate500:  util.ParseRate(view.lookup(FieldRate500)),
		Rate1000: util.ParseRate(view.lookup(FieldRate1000)),
		Rate2000: util.ParseRate(view.lookup(FieldRate2000)),

		TermMonths:   util.ParseTerm(view.lookup(FieldTerm)),
		RenewablePct: util.ParsePercent(view.lookup(FieldRenewable)),
		CancelFee:    cancelFee,
		RateType:     rateType,

		IsPrepaid:        util.ParseBool(view.lookup(FieldPrepaid)),
		IsTOU:            util.ParseBool(view.lookup(FieldTimeOfUse)),
		IsFixed:          isFixed,
		IsNewCustomer:    util.ParseBool(view.lookup(FieldNewCustomer)),
		IsPromotion:      util.ParseBool(view.lookup(FieldPromotion)),
		UsageFeesCredits: util.ParseBool(view.lookup(FieldUsageFeesCredits)),

		FeesDetails:  view.lookupText(FieldFeesDetails),
		SpecialTerms: view.lookup(FieldSpecialTerms),
		PromoDesc:    view.lookup(FieldPromoDesc),

		EFLURL:      view.lookup(FieldEFLURL),
		EnrollURL:   view.lookup(FieldEnrollURL),
		TermsURL:    view.lookup(FieldTermsURL),
		Website:     view.lookup(FieldWebsite),
		EnrollPhone: view.lookup(FieldEnrollPhone),
	}
}

// NormalizeTDU maps a free-form utility label to its code. Unknown labels are
// kept, upper-cased and cut to MaxTDULabelLen runes, so distinct utilities do
// not collapse together.
func NormalizeTDU(raw string) string {
	label := strings.TrimSpace(raw)
	if label == "" {
		return string(internal.TDUOther)
	}
	lower := strings.ToLower(label)
	for _, alias := range tduAliases {
		if strings.Contains(lower, alias.substring) {
			return string(alias.code)
		}
	}
	return strings.TrimSpace(util.Truncate(strings.ToUpper(label), MaxTDULabelLen))
}

func normalizeRateType(raw string) internal.RateType {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "variable"):
		return internal.RateVariable
	case strings.Contains(lower, "index"):
		return internal.RateIndexed
	default:
		return internal.RateFixed
	}
}
