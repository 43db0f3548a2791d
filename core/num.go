package core

import (
	"github.com/shopspring/decimal"
)

// Amounts are integral decimals in [0, 2^128-1]; weights, prices and health
// factors are 18-dp fractions. Every amount*fraction product must pick floor
// or ceil explicitly. Ceil is used only where flooring would leak value to
// the account holder (debt minting, debt valuation, repay shortfalls).

const quotientPrecision = 38

var (
	ONE = decimal.NewFromInt(1)

	// MaxUint128 bounds every amount; crossing it is an overflow, never a clamp.
	MaxUint128 = decimal.RequireFromString("340282366920938463463374607431768211455")

	bootstrapShareMultiplier = decimal.NewFromInt(1_000_000)
)

func checkRange(d decimal.Decimal) (decimal.Decimal, error) {
	if d.GreaterThan(MaxUint128) {
		return decimal.Zero, ErrDecimalRangeExceeded
	}
	return d, nil
}

func CheckedAdd(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum := a.Add(b)
	if sum.GreaterThan(MaxUint128) {
		return decimal.Zero, ErrOverflow
	}
	return sum, nil
}

func CheckedSub(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.GreaterThan(a) {
		return decimal.Zero, NewInsufficientFundsError(b, a)
	}
	return a.Sub(b), nil
}

func MulDecFloor(amount, d decimal.Decimal) (decimal.Decimal, error) {
	return checkRange(amount.Mul(d).Floor())
}

func MulDecCeil(amount, d decimal.Decimal) (decimal.Decimal, error) {
	return checkRange(amount.Mul(d).Ceil())
}

func DivDecFloor(amount, d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}
	return checkRange(amount.DivRound(d, quotientPrecision).Floor())
}

func DivDecCeil(amount, d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}
	return checkRange(amount.DivRound(d, quotientPrecision).Ceil())
}

// QuoDec divides without rounding to an amount; health factors and other
// fractional ratios keep the full quotient precision.
func QuoDec(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}
	return a.DivRound(b, quotientPrecision), nil
}

// MulDivFloor computes floor(a*b/c) without intermediate truncation.
func MulDivFloor(a, b, c decimal.Decimal) (decimal.Decimal, error) {
	if c.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}
	return checkRange(a.Mul(b).DivRound(c, quotientPrecision).Floor())
}

// MulDivCeil computes ceil(a*b/c) without intermediate truncation.
func MulDivCeil(a, b, c decimal.Decimal) (decimal.Decimal, error) {
	if c.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}
	return checkRange(a.Mul(b).DivRound(c, quotientPrecision).Ceil())
}

func MinDec(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func MaxDec(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampDec bounds d to [lo, hi].
func ClampDec(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
