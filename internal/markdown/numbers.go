package markdown

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Dutch locale: "." groups thousands, "," separates decimals.
var dutch = message.NewPrinter(language.Dutch)

// Currency renders a numeric string as a euro amount, e.g. "1234567.89" →
// "€ 1.234.567,89". Whole amounts drop the decimals: "1000" → "€ 1.000".
// Unparseable input is returned trimmed but otherwise untouched.
func Currency(raw string) string {
	v, ok := parseAmount(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	v = math.Round(v*100) / 100
	frac := 2
	if v == math.Trunc(v) {
		frac = 0
	}
	return "€ " + dutch.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(frac), number.MaxFractionDigits(frac)))
}

// Percentage renders a numeric string as a percentage. Values strictly
// between 0 and 1 are read as fractions: "0.15" → "15%". Whole percentages
// drop the decimal, others keep one: "21.5" → "21,5%".
func Percentage(raw string) string {
	v, ok := parseAmount(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if !ok {
		return strings.TrimSpace(raw)
	}
	if v > 0 && v < 1 {
		v *= 100
	}
	v = math.Round(v*10) / 10
	frac := 1
	if v == math.Trunc(v) {
		frac = 0
	}
	return dutch.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(frac), number.MaxFractionDigits(frac))) + "%"
}

// parseAmount reads a number that may use either "." or "," as the decimal
// separator. When only one separator kind is present, a run of exactly three
// trailing digits marks it as a thousands separator; the later of the two
// kinds wins when both appear.
func parseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "EUR")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')

	var decimal byte
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			decimal = ','
		} else {
			decimal = '.'
		}
	case lastComma >= 0:
		if isThousandsSep(s, ',', lastComma) {
			decimal = 0
		} else {
			decimal = ','
		}
	case lastDot >= 0:
		if isThousandsSep(s, '.', lastDot) {
			decimal = 0
		} else {
			decimal = '.'
		}
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ',', '.':
			if c == decimal && i == int(lastIndexByte(s, decimal)) {
				b.WriteByte('.')
			}
		case '-':
			if i == 0 {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// isThousandsSep reports whether the sole separator kind in s groups
// thousands: multiple occurrences, or exactly three trailing digits. A
// leading-zero integer part can never open a thousands group, so "0.500"
// stays a fraction.
func isThousandsSep(s string, sep byte, last int) bool {
	if strings.Count(s, string(sep)) > 1 {
		return true
	}
	head := strings.TrimPrefix(s[:last], "-")
	if head == "" || head == "0" {
		return false
	}
	tail := s[last+1:]
	if len(tail) != 3 {
		return false
	}
	for i := 0; i < len(tail); i++ {
		if tail[i] < '0' || tail[i] > '9' {
			return false
		}
	}
	return true
}

func lastIndexByte(s string, c byte) int {
	if c == 0 {
		return -1
	}
	return strings.LastIndexByte(s, c)
}
