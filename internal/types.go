package internal

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one input row keyed by whatever header the source used.
type RawRecord map[string]string

type TDUCode string

const (
	TDUOncor  TDUCode = "ONCOR"
	TDUCenter TDUCode = "CENTPT"
	TDUTNMP   TDUCode = "TNMP"
	TDUAEPTCC TDUCode = "AEP_TCC"
	TDUAEPTNC TDUCode = "AEP_TNC"
	TDULPL    TDUCode = "LPL"
	TDUOther  TDUCode = "OTHER"
)

type RateType string

const (
	RateFixed    RateType = "fixed"
	RateVariable RateType = "variable"
	RateIndexed  RateType = "indexed"
)

type Warning string

const (
	WarnPriceVariesByUsage Warning = "price_varies_by_usage"
	WarnRebateCredit       Warning = "has_rebate_credit"
	WarnBaseCharge         Warning = "has_base_charge"
	WarnMinUsageFee        Warning = "has_min_usage_fee"
	WarnPassThrough        Warning = "has_pass_through"
	WarnUsageFeesCredits   Warning = "has_usage_fees_credits"
	WarnNewCustomersOnly   Warning = "new_customers_only"
	WarnPromotionalRate    Warning = "promotional_rate"
	WarnPrepaid            Warning = "prepaid"
	WarnTimeOfUse          Warning = "time_of_use"
	WarnVariableRate       Warning = "variable_rate"
	WarnHighCancelFee      Warning = "high_cancel_fee"
)

type RejectReason string

const (
	RejectLowRate   RejectReason = "low_rate"
	RejectHighRate  RejectReason = "high_rate"
	RejectShortTerm RejectReason = "short_term"
	RejectNoData    RejectReason = "no_data"
	RejectDuplicate RejectReason = "duplicate"
	RejectException RejectReason = "exception"
)

const SourcePowerToChoose = "powertochoose"

// CanonicalPlan is the unit of output of one engine run.
type CanonicalPlan struct {
	IDKey    string `json:"id_key,omitempty"`
	Source   string `json:"source"`
	Provider string `json:"provider"`
	PlanName string `json:"plan_name"`
	TDU      string `json:"tdu"`

	Rate500      float64 `json:"rate_500"`
	Rate1000     float64 `json:"rate_1000"`
	Rate2000     float64 `json:"rate_2000"`
	WeightedRate float64 `json:"weighted_rate"`

	TermMonths   int             `json:"term_months"`
	RenewablePct int             `json:"renewable_pct"`
	CancelFee    decimal.Decimal `json:"cancel_fee"`
	RateType     RateType        `json:"rate_type"`

	IsPrepaid     bool `json:"is_prepaid"`
	IsTOU         bool `json:"is_tou"`
	IsFixed       bool `json:"is_fixed"`
	IsNewCustomer bool `json:"is_new_customer"`
	IsPromotion   bool `json:"is_promotion"`

	FeesDetails  string `json:"fees_details"`
	SpecialTerms string `json:"special_terms"`
	PromoDesc    string `json:"promo_desc"`

	HasRebate           bool             `json:"has_rebate"`
	RebateAmount        *decimal.Decimal `json:"rebate_amount"`
	HasBaseCharge       bool             `json:"has_base_charge"`
	BaseChargeAmount    *decimal.Decimal `json:"base_charge_amount"`
	HasMinUsageFee      bool             `json:"has_min_usage_fee"`
	MinUsageKWh         *int             `json:"min_usage_kwh"`
	HasPassThrough      bool             `json:"has_pass_through"`
	HasUsageFeesCredits bool             `json:"has_usage_fees_credits"`
	FinePrintFlags      []string         `json:"fine_print_flags"`

	RateSpread        float64   `json:"rate_spread"`
	IsGotcha          bool      `json:"is_gotcha"`
	Warnings          []Warning `json:"warnings"`
	TransparencyScore int       `json:"transparency_score"`

	EFLURL      string `json:"efl_url"`
	EnrollURL   string `json:"enroll_url"`
	TermsURL    string `json:"terms_url"`
	Website     string `json:"website"`
	EnrollPhone string `json:"enroll_phone"`

	ProcessedAt time.Time `json:"processed_at"`
}

// Identity is the run-scoped dedup key.
type Identity struct {
	Provider string
	PlanName string
	TDU      string
	Rate1000 float64
}

func (p CanonicalPlan) Identity() Identity {
	return Identity{Provider: p.Provider, PlanName: p.PlanName, TDU: p.TDU, Rate1000: p.Rate1000}
}

func (p CanonicalPlan) HasWarning(w Warning) bool {
	for _, got := range p.Warnings {
		if got == w {
			return true
		}
	}
	return false
}

// RunStats is the operator feedback for one run.
type RunStats struct {
	Seen     int                  `json:"seen"`
	Accepted int                  `json:"accepted"`
	Rejected map[RejectReason]int `json:"rejected"`
}

func (s RunStats) TotalRejected() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// Reasons returns the rejection reasons with a non-zero count, sorted.
func (s RunStats) Reasons() []RejectReason {
	out := make([]RejectReason, 0, len(s.Rejected))
	for reason, n := range s.Rejected {
		if n > 0 {
			out = append(out, reason)
		}
	}
	slices.Sort(out)
	return out
}

type RunRow struct {
	ID        string
	Source    string
	Status    string
	Error     string
	Stats     RunStats
	Timings   map[string]float64
	Published int
	CreatedAt string
}

type SnapshotRow struct {
	Source    string
	Hash      string
	RawRef    string
	SizeBytes int
	FetchedAt string
}
