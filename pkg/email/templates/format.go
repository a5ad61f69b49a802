package templates

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders minor units as a localized amount, e.g. 49900 INR as "₹ 499.00".
// Unknown currency codes fall back to "499.00 XYZ".
func FormatAmount(minor int64, code string) string {
	major := float64(minor) / 100
	unit, err := currency.ParseISO(code)
	if err != nil {
		return printer.Sprintf("%.2f %s", major, code)
	}
	return printer.Sprint(currency.Symbol(unit.Amount(major)))
}

// FormatDate renders a date the way notification bodies show it.
func FormatDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}

// Title turns an identifier like "professional" into "Professional".
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
