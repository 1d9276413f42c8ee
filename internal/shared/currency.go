package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyPrinter = message.NewPrinter(language.English)

// FormatRupees renders an amount as "Rs. N,NNN.NN" for display. Rupees and
// paise are formatted from the decimal's integer parts, never through a float.
func FormatRupees(amount decimal.Decimal) string {
	r := amount.Round(2)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Abs()
	}
	units := r.IntPart()
	cents := r.Sub(decimal.NewFromInt(units)).Shift(2).IntPart()
	return fmt.Sprintf("Rs. %s%s.%02d", sign, currencyPrinter.Sprintf("%d", units), cents)
}
