package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckedAdd(t *testing.T) {
	sum, err := CheckedAdd(dec("100"), dec("23"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("123")))

	_, err = CheckedAdd(MaxUint128, ONE)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestCheckedSub(t *testing.T) {
	diff, err := CheckedSub(dec("100"), dec("40"))
	require.NoError(t, err)
	assert.True(t, diff.Equal(dec("60")))

	_, err = CheckedSub(dec("40"), dec("100"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestMulDecRounding(t *testing.T) {
	tests := []struct {
		name      string
		amount    decimal.Decimal
		d         decimal.Decimal
		wantFloor decimal.Decimal
		wantCeil  decimal.Decimal
	}{
		{"exact", dec("100"), dec("0.5"), dec("50"), dec("50")},
		{"fractional", dec("100"), dec("0.333"), dec("33"), dec("34")},
		{"tiny", dec("1"), dec("0.0001"), dec("0"), dec("1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floor, err := MulDecFloor(tt.amount, tt.d)
			require.NoError(t, err)
			assert.True(t, floor.Equal(tt.wantFloor), "floor: want %s, got %s", tt.wantFloor, floor)

			ceil, err := MulDecCeil(tt.amount, tt.d)
			require.NoError(t, err)
			assert.True(t, ceil.Equal(tt.wantCeil), "ceil: want %s, got %s", tt.wantCeil, ceil)
		})
	}
}

func TestDivDecZero(t *testing.T) {
	_, err := DivDecFloor(dec("100"), decimal.Zero)
	assert.ErrorIs(t, err, ErrDivideByZero)

	_, err = DivDecCeil(dec("100"), decimal.Zero)
	assert.ErrorIs(t, err, ErrDivideByZero)

	_, err = QuoDec(dec("100"), decimal.Zero)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestMulDivNoIntermediateTruncation(t *testing.T) {
	// floor(7*3/21) is 1; flooring 7*3 first then dividing would also give 1,
	// but floor(floor(10/3)*3) would give 9 instead of 10.
	got, err := MulDivFloor(dec("10"), dec("3"), dec("3"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("10")))

	got, err = MulDivCeil(dec("10"), dec("1"), dec("3"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("4")))
}

func TestMulDivHugeOperands(t *testing.T) {
	// Close to the 128-bit bound the quotient precision must still land on
	// the exact integer.
	huge := MaxUint128.Sub(ONE)
	got, err := MulDivFloor(huge, dec("3"), dec("3"))
	require.NoError(t, err)
	assert.True(t, got.Equal(huge))

	_, err = MulDivFloor(huge, dec("2"), ONE)
	assert.ErrorIs(t, err, ErrDecimalRangeExceeded)
}

func TestClampDec(t *testing.T) {
	assert.True(t, ClampDec(dec("0.5"), dec("0.1"), dec("0.3")).Equal(dec("0.3")))
	assert.True(t, ClampDec(dec("0.05"), dec("0.1"), dec("0.3")).Equal(dec("0.1")))
	assert.True(t, ClampDec(dec("0.2"), dec("0.1"), dec("0.3")).Equal(dec("0.2")))
}
