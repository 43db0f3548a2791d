package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseLiquidationInput() LiquidationInput {
	return LiquidationInput{
		DebtRequested:      dec("2000"),
		DebtOutstanding:    dec("1000"),
		HealthFactor:       dec("0.9"),
		TotalDebtValue:     dec("1000"),
		LtCollateralValue:  dec("900"),
		RequestAvailable:   dec("5000"),
		PriceDebt:          dec("1"),
		PriceRequest:       dec("0.5"),
		RequestThreshold:   dec("0.75"),
		Bonus:              validBonus(),
		ProtocolFeeRate:    dec("0.02"),
		TargetHealthFactor: dec("1.2"),
	}
}

func TestCalcLiquidationTargetsHealthFactor(t *testing.T) {
	out, err := CalcLiquidation(baseLiquidationInput())
	require.NoError(t, err)

	// hf 0.9 pushes the bonus curve past its cap
	assert.True(t, out.EffectiveBonus.Equal(dec("0.1")))
	// target solve: (1.2*1000 - 900) / (1.2 - 1.1*1.02*0.75) = 836.82..
	assert.True(t, out.Debt.Equal(dec("836")), "got %s", out.Debt)
	// repaid value 836 * 1.1 = 919.6 in request units at price 0.5
	assert.True(t, out.LiquidatorReceives.Equal(dec("1839")), "got %s", out.LiquidatorReceives)
	assert.True(t, out.ProtocolFee.Equal(dec("36")), "got %s", out.ProtocolFee)
	assert.True(t, out.LiquidateeLoses.Equal(dec("1875")), "got %s", out.LiquidateeLoses)
}

func TestCalcLiquidationFeeExactness(t *testing.T) {
	inputs := []LiquidationInput{
		baseLiquidationInput(),
		func() LiquidationInput {
			in := baseLiquidationInput()
			in.RequestAvailable = dec("100")
			return in
		}(),
		func() LiquidationInput {
			in := baseLiquidationInput()
			in.DebtRequested = dec("10")
			return in
		}(),
	}
	for _, in := range inputs {
		out, err := CalcLiquidation(in)
		require.NoError(t, err)
		diff := out.LiquidateeLoses.Sub(out.LiquidatorReceives)
		assert.True(t, out.ProtocolFee.Equal(diff),
			"protocol fee %s must equal loses %s minus receives %s",
			out.ProtocolFee, out.LiquidateeLoses, out.LiquidatorReceives)
		assert.True(t, out.LiquidateeLoses.LessThanOrEqual(in.RequestAvailable))
		assert.True(t, out.Debt.LessThanOrEqual(in.DebtOutstanding))
		assert.True(t, out.Debt.LessThanOrEqual(in.DebtRequested))
	}
}

func TestCalcLiquidationCollateralBound(t *testing.T) {
	in := baseLiquidationInput()
	in.RequestAvailable = dec("100")

	out, err := CalcLiquidation(in)
	require.NoError(t, err)
	// max request value 50; scaled back to 50/1.02 then through the bonus
	assert.True(t, out.Debt.Equal(dec("44")), "got %s", out.Debt)
	assert.True(t, out.LiquidatorReceives.Equal(dec("96")), "got %s", out.LiquidatorReceives)
	assert.True(t, out.ProtocolFee.Equal(dec("1")), "got %s", out.ProtocolFee)
	assert.True(t, out.LiquidateeLoses.Equal(dec("97")), "got %s", out.LiquidateeLoses)
}

func TestCalcLiquidationRequestedCap(t *testing.T) {
	in := baseLiquidationInput()
	in.DebtRequested = dec("10")

	out, err := CalcLiquidation(in)
	require.NoError(t, err)
	assert.True(t, out.Debt.Equal(dec("10")))
}

func TestCalcLiquidationLeavesHealthAtMostTarget(t *testing.T) {
	in := baseLiquidationInput()
	out, err := CalcLiquidation(in)
	require.NoError(t, err)

	debtAfter := in.TotalDebtValue.Sub(out.Debt.Mul(in.PriceDebt))
	seizedValue := out.LiquidateeLoses.Mul(in.PriceRequest)
	collateralAfter := in.LtCollateralValue.Sub(seizedValue.Mul(in.RequestThreshold))
	hfAfter := collateralAfter.DivRound(debtAfter, 8)

	assert.True(t, hfAfter.GreaterThan(in.HealthFactor), "liquidation must improve health, got %s", hfAfter)
	// amount flooring can overshoot the target by a fraction of a unit
	tolerance := in.TargetHealthFactor.Mul(dec("1.001"))
	assert.True(t, hfAfter.LessThanOrEqual(tolerance), "hf after %s exceeds target %s", hfAfter, in.TargetHealthFactor)
}

func TestCalcLiquidationErrors(t *testing.T) {
	in := baseLiquidationInput()
	in.DebtOutstanding = decimal.Zero
	_, err := CalcLiquidation(in)
	assert.ErrorIs(t, err, ErrNoDebt)

	in = baseLiquidationInput()
	in.PriceRequest = decimal.Zero
	_, err = CalcLiquidation(in)
	assert.ErrorIs(t, err, ErrDivideByZero)

	in = baseLiquidationInput()
	in.RequestAvailable = decimal.Zero
	_, err = CalcLiquidation(in)
	assert.ErrorIs(t, err, ErrCoinNotAvailable)

	in = baseLiquidationInput()
	in.DebtRequested = decimal.Zero
	_, err = CalcLiquidation(in)
	assert.ErrorIs(t, err, ErrNoAmount)
}
