package markdown

import "testing"

func TestCurrencyDutchFormatting(t *testing.T) {
	cases := map[string]string{
		"1234567.89": "€ 1.234.567,89",
		"1000":       "€ 1.000",
		"0.50":       "€ 0,50",
		"1,5":        "€ 1,50",
		"1.000":      "€ 1.000",
		"1.234,56":   "€ 1.234,56",
		"€ 250":      "€ 250",
		"19.99":      "€ 19,99",
		"0.500":      "€ 0,50",
		"0,500":      "€ 0,50",
	}
	for in, want := range cases {
		if got := Currency(in); got != want {
			t.Fatalf("Currency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCurrencyUnparseableInputPassedThrough(t *testing.T) {
	cases := map[string]string{
		"":       "",
		"   ":    "",
		"n.v.t.": "n.v.t.",
		"€":      "€",
	}
	for in, want := range cases {
		if got := Currency(in); got != want {
			t.Fatalf("Currency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPercentageFormatting(t *testing.T) {
	cases := map[string]string{
		"0.15":  "15%",
		"22":    "22%",
		"21,5%": "21,5%",
		"21.5":  "21,5%",
		"0.055": "5,5%",
		"100":   "100%",
	}
	for in, want := range cases {
		if got := Percentage(in); got != want {
			t.Fatalf("Percentage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseAmountSeparatorDisambiguation(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.000", 1000},
		{"1,000", 1000},
		{"1.000.000", 1000000},
		{"19.99", 19.99},
		{"19,99", 19.99},
		{"-42,5", -42.5},
		// Three digits after a lone separator, but a zero integer part:
		// a fraction, not a thousands group.
		{"0.055", 0.055},
		{"0.500", 0.5},
		{"-0.500", -0.5},
	}
	for _, c := range cases {
		got, ok := parseAmount(c.in)
		if !ok {
			t.Fatalf("parseAmount(%q) failed", c.in)
		}
		if got != c.want {
			t.Fatalf("parseAmount(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
