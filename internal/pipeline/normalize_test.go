package pipeline

import (
	"testing"

	"wattwise/internal"
)

func TestNormalizeTDU(t *testing.T) {
	cases := map[string]string{
		"ONCOR ELECTRIC DELIVERY":                  "ONCOR",
		"CenterPoint Energy Houston Electric":      "CENTPT",
		"CNP":                                      "CENTPT",
		"Texas-New Mexico Power":                   "TNMP",
		"TEXAS NEW MEXICO POWER COMPANY":           "TNMP",
		"AEP TEXAS CENTRAL COMPANY":                "AEP_TCC",
		"AEP Central":                              "AEP_TCC",
		"AEP TEXAS NORTH COMPANY":                  "AEP_TNC",
		"Lubbock Power & Light":                    "LPL",
		"AEP Texas":                                "AEP_TCC",
		"Entergy Texas Incorporated Southeast":     "ENTERGY TEXAS INCORP",
		"Sharyland Utilities Electric Delivery Co": "SHARYLAND UTILITIES",
		"":                                         "OTHER",
	}
	for in, want := range cases {
		if got := NormalizeTDU(in); got != want {
			t.Fatalf("NormalizeTDU(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalizeRecordBracketedHeaders(t *testing.T) {
	rec := NormalizeRecord(internal.RawRecord{
		"\ufeff[idKey]":         "12345",
		"[TduCompanyName]":      "Oncor",
		"[RepCompany]":          "  Gexa   Energy ",
		"[Product]":             "Saver 12",
		"[kwh500]":              "0.142",
		"[kwh1000]":             "12.3",
		"[Fixed]":               "1",
		"[RateType]":            "Indexed",
		"[Renewable]":           "100",
		"[CancelFee]":           "$20 per month remaining",
		"[NewCustomer]":         "TRUE",
		"[MinUsageFeesCredits]": "TRUE",
		"[Fees/Credits]":        "",
		"[FactsURL]":            "https://example.com/efl.pdf",
	})
	if rec.IDKey != "12345" {
		t.Fatalf("id=%q", rec.IDKey)
	}
	if rec.Provider != "Gexa Energy" || rec.PlanName != "Saver 12" {
		t.Fatalf("provider=%q plan=%q", rec.Provider, rec.PlanName)
	}
	if rec.TDU != "ONCOR" || rec.RawTDU != "Oncor" {
		t.Fatalf("tdu=%q raw=%q", rec.TDU, rec.RawTDU)
	}
	if rec.Rate500 == nil || *rec.Rate500 != 14.2 {
		t.Fatalf("rate500=%v", rec.Rate500)
	}
	if rec.Rate2000 != nil {
		t.Fatalf("rate2000 should be absent")
	}
	if !rec.IsFixed || rec.RateType != internal.RateIndexed {
		t.Fatalf("fixed column must win: fixed=%v type=%q", rec.IsFixed, rec.RateType)
	}
	if rec.RenewablePct != 100 || rec.CancelFee.String() != "20" {
		t.Fatalf("renewable=%d cancel=%s", rec.RenewablePct, rec.CancelFee)
	}
	if !rec.IsNewCustomer || !rec.UsageFeesCredits {
		t.Fatalf("flags new=%v usage=%v", rec.IsNewCustomer, rec.UsageFeesCredits)
	}
	if rec.FeesDetails != "" {
		t.Fatalf("boolean cell must not become fee text: %q", rec.FeesDetails)
	}
	if rec.EFLURL != "https://example.com/efl.pdf" {
		t.Fatalf("efl=%q", rec.EFLURL)
	}
}

func TestNormalizeRecordDefaults(t *testing.T) {
	rec := NormalizeRecord(internal.RawRecord{"[TermValue]": "month-to-month"})
	if rec.TermMonths != 12 {
		t.Fatalf("term=%d", rec.TermMonths)
	}
	if !rec.CancelFee.IsZero() || rec.RenewablePct != 0 {
		t.Fatalf("cancel=%s renewable=%d", rec.CancelFee, rec.RenewablePct)
	}
	if rec.RateType != internal.RateFixed || !rec.IsFixed {
		t.Fatalf("type=%q fixed=%v", rec.RateType, rec.IsFixed)
	}
	if rec.TDU != "OTHER" || rec.Rate1000 != nil {
		t.Fatalf("tdu=%q rate=%v", rec.TDU, rec.Rate1000)
	}
}

func TestNormalizeRecordPrefersFirstAlias(t *testing.T) {
	rec := NormalizeRecord(internal.RawRecord{
		"[kwh1000]":          "",
		"Price_per_kWh_1000": "0.101",
		"rate_kwh":           "99",
	})
	if rec.Rate1000 == nil || *rec.Rate1000 != 10.1 {
		t.Fatalf("rate1000=%v", rec.Rate1000)
	}
}
