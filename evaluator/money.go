package evaluator

import (
	"math"
	"regexp"
	"strconv"
)

// ParsedMoney is a money literal from a predicate such as "19.99 USD".
// Arithmetic and comparisons use CentAmount only.
type ParsedMoney struct {
	Amount       float64
	CentAmount   int64
	CurrencyCode string
}

var (
	moneyPattern    = regexp.MustCompile(`^([\d.]+)\s+([A-Z]{3})$`)
	leadingNumber   = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
	defaultCurrency = "USD"
)

// ParseMoneyValue parses "<decimal> <currency>" or a bare decimal, which is taken as USD.
// The second result is false when s is neither.
func ParseMoneyValue(s string) (*ParsedMoney, bool) {
	if m := moneyPattern.FindStringSubmatch(s); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			// "1.2.3" matches the character class but is not a number
			amount = parseLeadingFloat(m[1])
		}
		return newParsedMoney(amount, m[2]), true
	}

	if amount, ok := parseFloatPrefix(s); ok {
		return newParsedMoney(amount, defaultCurrency), true
	}
	return nil, false
}

func newParsedMoney(amount float64, currency string) *ParsedMoney {
	return &ParsedMoney{
		Amount:       amount,
		CentAmount:   toCents(amount),
		CurrencyCode: currency,
	}
}

// toCents rounds a main-unit amount to minor units, half away from zero for positives
func toCents(amount float64) int64 {
	return int64(math.Floor(amount*100 + 0.5))
}

// centsToUnits converts minor units to main currency units for display
func centsToUnits(cents int64) float64 {
	return float64(cents) / 100
}

// parseFloatPrefix reads the longest leading decimal number of s
func parseFloatPrefix(s string) (float64, bool) {
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseLeadingFloat is parseFloatPrefix with 0 for no number
func parseLeadingFloat(s string) float64 {
	f, _ := parseFloatPrefix(s)
	return f
}
