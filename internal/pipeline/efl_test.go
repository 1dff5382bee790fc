package pipeline

import "testing"

func TestScanEFLTextFoldsLines(t *testing.T) {
	text := "Base\ncharge:  $4.95 per\nbilling cycle\n\nA usage credit of\n$100 applies when usage is\n1,000 kWh or more.\nMinimum usage fee of $9.95\napplies below\n500 kWh."
	fp := ScanEFLText(text)
	if !fp.HasBaseCharge || fp.BaseChargeAmount.String() != "4.95" {
		t.Fatalf("base=%v %v", fp.HasBaseCharge, fp.BaseChargeAmount)
	}
	if !fp.HasRebate || fp.RebateAmount.String() != "100" {
		t.Fatalf("rebate=%v %v", fp.HasRebate, fp.RebateAmount)
	}
	if !fp.HasMinUsageFee || fp.MinUsageKWh == nil || *fp.MinUsageKWh != 500 {
		t.Fatalf("min usage=%v %v", fp.HasMinUsageFee, fp.MinUsageKWh)
	}
}

func TestExtractPDFTextRejectsGarbage(t *testing.T) {
	if _, _, err := ExtractPDFText([]byte("this is definitely not a pdf document")); err == nil {
		t.Fatal("expected error")
	}
}
