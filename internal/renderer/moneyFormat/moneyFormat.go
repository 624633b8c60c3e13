package moneyFormat

import (
	"strings"

	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// priceFraction is wider than the currency fraction: fund NAVs and small coins
// are quoted with four decimals.
const priceFraction = 4

func currency(code model.Currency) money.Currency {
	// money.New never returns a nil currency, unknown codes get a bare one
	return *money.New(0, string(code)).Currency()
}

// Money rounds amount to the currency's minor unit and formats it with the
// currency's symbol.
func Money(amount decimal.Decimal, code model.Currency) string {
	cur := currency(code)
	return format(cur.Formatter(), amount)
}

// Price is Money with four decimals.
func Price(amount decimal.Decimal, code model.Currency) string {
	cur := currency(code)
	f := money.NewFormatter(priceFraction, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return format(f, amount)
}

// Subtotal formats a total held partly in USD and partly in CNY. A zero side is
// left out; an all-zero total is shown in preferred.
func Subtotal(usd, cny decimal.Decimal, preferred model.Currency) string {
	switch {
	case !usd.IsZero() && !cny.IsZero():
		return Money(usd, model.USD) + " + " + Money(cny, model.CNY)
	case !cny.IsZero():
		return Money(cny, model.CNY)
	case !usd.IsZero():
		return Money(usd, model.USD)
	}
	return Money(decimal.Zero, preferred)
}

// format lays amount out the way money.Formatter.Format does, working on the
// decimal digits so amounts beyond int64 minor units still format.
func format(f *money.Formatter, amount decimal.Decimal) string {
	fraction := int32(f.Fraction)
	intPart, fracPart, _ := strings.Cut(amount.Abs().StringFixed(fraction), ".")

	if f.Thousand != "" {
		for i := len(intPart) - 3; i > 0; i -= 3 {
			intPart = intPart[:i] + f.Thousand + intPart[i:]
		}
	}

	s := intPart
	if fraction > 0 {
		s += f.Decimal + fracPart
	}
	s = strings.Replace(f.Template, "1", s, 1)
	s = strings.Replace(s, "$", f.Grapheme, 1)

	if amount.Round(fraction).IsNegative() {
		s = "-" + s
	}
	return s
}

// SignedMoney prefixes gains with "+". Losses already carry "-".
func SignedMoney(amount decimal.Decimal, code model.Currency) string {
	s := Money(amount, code)
	if amount.Round(2).IsPositive() {
		return "+" + s
	}
	return s
}

func SignedPercent(p decimal.Decimal) string {
	p = p.Round(2)
	if p.IsPositive() {
		return "+" + p.StringFixed(2) + "%"
	}
	return p.StringFixed(2) + "%"
}

func RateLine(rate decimal.Decimal) string {
	return "1 USD = " + rate.StringFixed(4) + " CNY"
}
