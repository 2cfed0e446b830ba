package common

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount with its currency symbol and comma
// separators. KRW is a whole-unit currency; everything else gets two
// decimal places.
func FormatMoney(v decimal.Decimal, currency string) string {
	sym := currencySymbol(currency)
	negative := v.IsNegative()
	if negative {
		v = v.Neg()
	}

	places := int32(2)
	if strings.EqualFold(currency, "KRW") {
		places = 0
	}
	s := v.StringFixed(places)

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i:]
	}
	whole = groupThousands(whole)

	if negative {
		return "-" + sym + whole + frac
	}
	return sym + whole + frac
}

// FormatSignedMoney renders an amount with an explicit +/- prefix.
func FormatSignedMoney(v decimal.Decimal, currency string) string {
	if v.IsNegative() {
		return FormatMoney(v, currency)
	}
	return "+" + FormatMoney(v, currency)
}

// FormatSignedPct renders a percentage with an explicit +/- prefix.
func FormatSignedPct(v decimal.Decimal) string {
	if v.IsNegative() {
		return v.StringFixed(2) + "%"
	}
	return "+" + v.StringFixed(2) + "%"
}

func currencySymbol(currency string) string {
	switch strings.ToUpper(currency) {
	case "KRW":
		return "₩"
	case "USD":
		return "$"
	default:
		return "$"
	}
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}
