package pipeline

import (
	"strings"

	"wattwise/internal"
)

type Field string

const (
	FieldIDKey            Field = "id_key"
	FieldTDU              Field = "tdu"
	FieldProvider         Field = "provider"
	FieldPlanName         Field = "plan_name"
	FieldRate500          Field = "rate_500"
	FieldRate1000         Field = "rate_1000"
	FieldRate2000         Field = "rate_2000"
	FieldFeesDetails      Field = "fees_details"
	FieldUsageFeesCredits Field = "usage_fees_credits"
	FieldPrepaid          Field = "is_prepaid"
	FieldTimeOfUse        Field = "is_tou"
	FieldFixed            Field = "is_fixed"
	FieldRateType         Field = "rate_type"
	FieldRenewable        Field = "renewable_pct"
	FieldTerm             Field = "term_months"
	FieldCancelFee        Field = "cancel_fee"
	FieldWebsite          Field = "website"
	FieldSpecialTerms     Field = "special_terms"
	FieldTermsURL         Field = "terms_url"
	FieldPromotion        Field = "is_promotion"
	FieldPromoDesc        Field = "promo_desc"
	FieldEFLURL           Field = "efl_url"
	FieldEnrollURL        Field = "enroll_url"
	FieldEnrollPhone      Field = "enroll_phone"
	FieldNewCustomer      Field = "is_new_customer"
)

// FieldAliases lists, per canonical field, the header names the export has
// used over its revisions, most recent first. Names are compared after
// normalizeKey, so "[RepCompany]" and "repcompany" are the same header, as
// are "Rep Company" and "rep_company".
var FieldAliases = map[Field][]string{
	FieldIDKey:            {"idkey", "id_key", "plan_id"},
	FieldTDU:              {"tducompanyname", "tdu_company_name", "tdsp_company_name", "tdu", "tdsp"},
	FieldProvider:         {"repcompany", "rep_company", "provider", "company_name"},
	FieldPlanName:         {"product", "product_name", "plan_name", "plan"},
	FieldRate500:          {"kwh500", "price_per_kwh_500", "price_kwh500", "rate_500"},
	FieldRate1000:         {"kwh1000", "price_per_kwh_1000", "price_kwh1000", "rate_1000", "rate_kwh"},
	FieldRate2000:         {"kwh2000", "price_per_kwh_2000", "price_kwh2000", "rate_2000"},
	FieldFeesDetails:      {"fees/credits", "feescredits", "fees_credits", "fees_details", "pricing_details", "minusagefeescredits", "min_usage_fees_credits"},
	FieldUsageFeesCredits: {"minusagefeescredits", "min_usage_fees_credits"},
	FieldPrepaid:          {"prepaid", "prepaid_plan", "is_prepaid"},
	FieldTimeOfUse:        {"timeofuse", "time_of_use", "tou", "is_tou"},
	FieldFixed:            {"fixed", "is_fixed"},
	FieldRateType:         {"ratetype", "rate_type", "plan_type", "product_type"},
	FieldRenewable:        {"renewable", "renewable_energy_description", "percent_renewable", "renewable_pct"},
	FieldTerm:             {"termvalue", "term_value", "contract_length", "term_months"},
	FieldCancelFee:        {"cancelfee", "cancellation_fee", "cancel_fee"},
	FieldWebsite:          {"website", "provider_website"},
	FieldSpecialTerms:     {"specialterms", "special_terms"},
	FieldTermsURL:         {"termsurl", "terms_url", "terms_of_service"},
	FieldPromotion:        {"promotion", "is_promotion"},
	FieldPromoDesc:        {"promotiondesc", "promotion_desc", "promotion_description", "promo_desc"},
	FieldEFLURL:           {"factsurl", "facts_url", "fact_sheet", "efl_url"},
	FieldEnrollURL:        {"enrollurl", "enroll_url", "signup_url"},
	FieldEnrollPhone:      {"enrollphone", "enroll_phone"},
	FieldNewCustomer:      {"newcustomer", "new_customer", "new_customers_only", "is_new_customer"},
}

type tduAlias struct {
	substring string
	code      internal.TDUCode
}

// tduAliases is matched in order against the lower-cased raw label; the
// generic "aep texas" entry must stay after the central/north variants.
var tduAliases = []tduAlias{
	{"oncor", internal.TDUOncor},
	{"centerpoint", internal.TDUCenter},
	{"cnp", internal.TDUCenter},
	{"texas-new mexico", internal.TDUTNMP},
	{"texas new mexico", internal.TDUTNMP},
	{"tnmp", internal.TDUTNMP},
	{"aep texas central", internal.TDUAEPTCC},
	{"aep central", internal.TDUAEPTCC},
	{"aep texas north", internal.TDUAEPTNC},
	{"aep north", internal.TDUAEPTNC},
	{"lubbock power", internal.TDULPL},
	{"aep texas", internal.TDUAEPTCC},
}

func normalizeKey(key string) string {
	k := strings.TrimSpace(key)
	k = strings.TrimPrefix(k, "\ufeff")
	k = strings.TrimPrefix(k, "[")
	k = strings.TrimSuffix(k, "]")
	return strings.ToLower(strings.Join(strings.Fields(k), "_"))
}
