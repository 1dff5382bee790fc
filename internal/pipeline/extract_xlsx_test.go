package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{},
		{"[RepCompany]", "[Product]", "[TduCompanyName]", "[kwh1000]"},
		{"Gexa Energy", "Saver 12", "Oncor", "0.101"},
		{"", "", "", ""},
		{"TXU Energy", "Simple 24", "CenterPoint", 11.2},
	})
	records, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("len=%d", len(records))
	}
	if records[1]["[kwh1000]"] != "11.2" || records[0]["[Product]"] != "Saver 12" {
		t.Fatalf("records=%v", records)
	}
}

func TestParseCSVWithBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("[RepCompany],[Product],[kwh1000],[SpecialTerms]\n"+
		"Gexa Energy,Saver 12,0.101,\"Base charge $9.95, see EFL\"\n"+
		",,,\n"+
		"Short Row,Only Two\n")...)
	records, err := parseCSV(content)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("len=%d", len(records))
	}
	if _, ok := records[0]["[RepCompany]"]; !ok {
		t.Fatalf("BOM leaked into header: %v", records[0])
	}
	if records[0]["[SpecialTerms]"] != "Base charge $9.95, see EFL" {
		t.Fatalf("terms=%q", records[0]["[SpecialTerms]"])
	}
	if records[1]["[kwh1000]"] != "" {
		t.Fatalf("short row should pad: %v", records[1])
	}
}

func TestParseCSVEmpty(t *testing.T) {
	records, err := parseCSV(nil)
	if err != nil || len(records) != 0 {
		t.Fatalf("records=%v err=%v", records, err)
	}
}
