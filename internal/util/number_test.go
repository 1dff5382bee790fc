package util

import "testing"

func TestParseRate(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "dollar fraction", input: "0.089", want: 8.9},
		{name: "cents unchanged", input: "8.9", want: 8.9},
		{name: "dollar sign", input: "$0.1215", want: 12.15},
		{name: "cent sign", input: "15.8¢", want: 15.8},
		{name: "per kwh suffix", input: "11.2 ¢/kWh", want: 11.2},
		{name: "decimal comma", input: "0,089", want: 8.9},
		{name: "rounding", input: "0.12346", want: 12.35},
		{name: "trailing text", input: "9.4 cents per kWh", want: 9.4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseRate(tc.input)
			if got == nil {
				t.Fatalf("rate is nil")
			}
			if *got != tc.want {
				t.Fatalf("got %v want %v", *got, tc.want)
			}
		})
	}
}

func TestParseRateAbsent(t *testing.T) {
	for _, input := range []string{"", "  ", "N/A", "--", "1e400", "-1e400"} {
		if got := ParseRate(input); got != nil {
			t.Fatalf("input %q: got %v want nil", input, *got)
		}
	}
}

func TestParseNumberOutOfRange(t *testing.T) {
	if got, ok := ParseNumber("1e400"); ok {
		t.Fatalf("ParseNumber(1e400)=%v want absent", got)
	}
	if got, ok := ParseNumber("about 12.5 cents"); !ok || got != 12.5 {
		t.Fatalf("ParseNumber fallback=%v ok=%v", got, ok)
	}
}

func TestParseTerm(t *testing.T) {
	cases := map[string]int{
		"12":        12,
		"24 months": 24,
		"[36]":      36,
		"":          DefaultTermMonths,
		"month":     DefaultTermMonths,
		"1":         1,
	}
	for input, want := range cases {
		if got := ParseTerm(input); got != want {
			t.Fatalf("ParseTerm(%q)=%d want %d", input, got, want)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, input := range []string{"TRUE", "true", "1", "Yes", "y", "T", " t "} {
		if !ParseBool(input) {
			t.Fatalf("ParseBool(%q) = false", input)
		}
	}
	for _, input := range []string{"", "FALSE", "0", "no", "prepaid", "truthy"} {
		if ParseBool(input) {
			t.Fatalf("ParseBool(%q) = true", input)
		}
	}
}

func TestParsePercent(t *testing.T) {
	cases := map[string]int{
		"100":              100,
		"6.5%":             7,
		"23% Renewable":    23,
		"150":              100,
		"no renewable mix": 0,
	}
	for input, want := range cases {
		if got := ParsePercent(input); got != want {
			t.Fatalf("ParsePercent(%q)=%d want %d", input, got, want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	got, ok := ParseAmount("$1,150.00 early termination")
	if !ok || got.String() != "1150" {
		t.Fatalf("got %v ok=%v", got, ok)
	}
	if _, ok := ParseAmount("none"); ok {
		t.Fatalf("expected no amount")
	}
}
