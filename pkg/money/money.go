// Package money provides fixed-precision arithmetic for monetary amounts.
//
// Every balance mutation in the client goes through these helpers so that
// binary floating-point residue never accumulates into visible drift across
// repeated lock/unlock cycles. Amounts are rounded to 8 decimal places after
// each step, and magnitudes below 1e-9 collapse to exactly zero.
package money

import "github.com/shopspring/decimal"

// Precision is the number of decimal places kept after every operation.
const Precision = 8

// epsilon: anything smaller than this is float residue, not money.
var epsilon = decimal.New(1, -9) // 1e-9

// Round normalizes v to the canonical representation: 8 decimal places,
// sub-1e-9 magnitudes collapsed to zero.
func Round(v float64) float64 {
	d := decimal.NewFromFloat(v).Round(Precision)
	if d.Abs().LessThan(epsilon) {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// Add returns a+b normalized.
func Add(a, b float64) float64 {
	d := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b))
	return roundDecimal(d)
}

// Sub returns a-b normalized.
func Sub(a, b float64) float64 {
	d := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b))
	return roundDecimal(d)
}

// Mul returns a*b normalized.
func Mul(a, b float64) float64 {
	d := decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b))
	return roundDecimal(d)
}

// Div returns a/b normalized. A zero divisor yields 0 rather than a fault;
// callers deriving an implied price from a zero balance get the defined
// fallback instead of +Inf.
func Div(a, b float64) float64 {
	bd := decimal.NewFromFloat(b)
	if bd.IsZero() {
		return 0
	}
	d := decimal.NewFromFloat(a).DivRound(bd, Precision)
	return roundDecimal(d)
}

// ClampNonNegative returns v normalized, floored at zero.
func ClampNonNegative(v float64) float64 {
	r := Round(v)
	if r < 0 {
		return 0
	}
	return r
}

func roundDecimal(d decimal.Decimal) float64 {
	d = d.Round(Precision)
	if d.Abs().LessThan(epsilon) {
		return 0
	}
	f, _ := d.Float64()
	return f
}
