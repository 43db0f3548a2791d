package core

import (
	"github.com/shopspring/decimal"
)

// LiquidationInput gathers everything the closed-form liquidation math needs.
// All prices use the liquidation price kind.
type LiquidationInput struct {
	// DebtRequested is the liquidator's upper bound on the debt to repay.
	DebtRequested decimal.Decimal
	// DebtOutstanding is the liquidatee's current debt in the debt denom.
	DebtOutstanding decimal.Decimal
	// HealthFactor is the liquidatee's liquidation health factor, < 1.
	HealthFactor decimal.Decimal
	// TotalDebtValue and LtCollateralValue describe the liquidatee's balance
	// sheet under liquidation pricing.
	TotalDebtValue    decimal.Decimal
	LtCollateralValue decimal.Decimal
	// RequestAvailable is the liquidatee's balance of the requested
	// collateral, in request-asset units.
	RequestAvailable decimal.Decimal

	PriceDebt    decimal.Decimal
	PriceRequest decimal.Decimal
	// RequestThreshold is the liquidation threshold of the requested asset,
	// used when solving for the target health factor.
	RequestThreshold decimal.Decimal

	Bonus              LiquidationBonus
	ProtocolFeeRate    decimal.Decimal
	TargetHealthFactor decimal.Decimal
}

// LiquidationOutcome is expressed in amounts: debt repaid (debt denom) and
// the request-asset amounts moved. ProtocolFee is exactly LiquidateeLoses
// minus LiquidatorReceives.
type LiquidationOutcome struct {
	Debt               decimal.Decimal
	LiquidatorReceives decimal.Decimal
	LiquidateeLoses    decimal.Decimal
	ProtocolFee        decimal.Decimal
	EffectiveBonus     decimal.Decimal
}

// CalcLiquidation derives how much debt to repay and collateral to seize.
// The repayable debt targets the configured target health factor; the seized
// collateral is the repaid value inflated by the effective liquidation bonus
// plus the protocol fee, capped at what the liquidatee actually holds.
func CalcLiquidation(in LiquidationInput) (LiquidationOutcome, error) {
	if !in.DebtRequested.IsPositive() {
		return LiquidationOutcome{}, ErrNoAmount
	}
	if in.DebtOutstanding.IsZero() {
		return LiquidationOutcome{}, ErrNoDebt
	}
	if in.PriceDebt.IsZero() || in.PriceRequest.IsZero() {
		return LiquidationOutcome{}, ErrDivideByZero
	}
	if !in.RequestAvailable.IsPositive() {
		return LiquidationOutcome{}, ErrCoinNotAvailable
	}

	closeFactorCap := MinDec(in.DebtRequested, in.DebtOutstanding)
	lb := in.Bonus.Effective(in.HealthFactor)
	onePlusLb := ONE.Add(lb)
	onePlusFee := ONE.Add(in.ProtocolFeeRate)

	// Solve for the repaid value v that lifts the liquidation health factor
	// to the target:
	//   (ltColl - v*(1+lb)*(1+fee)*ltReq) / (debt - v) == target
	debtAmount := closeFactorCap
	denominator := in.TargetHealthFactor.Sub(onePlusLb.Mul(onePlusFee).Mul(in.RequestThreshold))
	if denominator.IsPositive() {
		numerator := in.TargetHealthFactor.Mul(in.TotalDebtValue).Sub(in.LtCollateralValue)
		if numerator.IsPositive() {
			targetValue := numerator.DivRound(denominator, quotientPrecision)
			targetAmount, err := DivDecFloor(targetValue, in.PriceDebt)
			if err != nil {
				return LiquidationOutcome{}, err
			}
			debtAmount = MinDec(debtAmount, targetAmount)
		}
	}
	if !debtAmount.IsPositive() {
		return LiquidationOutcome{}, ErrNoAmount
	}

	maxRequestValue, err := MulDecFloor(in.RequestAvailable, in.PriceRequest)
	if err != nil {
		return LiquidationOutcome{}, err
	}

	receivesValue := debtAmount.Mul(in.PriceDebt).Mul(onePlusLb)
	losesValue := receivesValue.Mul(onePlusFee)
	if losesValue.GreaterThan(maxRequestValue) {
		// Collateral-bound: shrink the repayment so the seizure fits what
		// the liquidatee holds, then re-derive.
		receivesValue = maxRequestValue.DivRound(onePlusFee, quotientPrecision)
		debtAmount, err = DivDecFloor(receivesValue, in.PriceDebt.Mul(onePlusLb))
		if err != nil {
			return LiquidationOutcome{}, err
		}
		if !debtAmount.IsPositive() {
			return LiquidationOutcome{}, ErrNoAmount
		}
		receivesValue = debtAmount.Mul(in.PriceDebt).Mul(onePlusLb)
	}

	receives, err := DivDecFloor(receivesValue, in.PriceRequest)
	if err != nil {
		return LiquidationOutcome{}, err
	}
	fee, err := DivDecFloor(receivesValue.Mul(in.ProtocolFeeRate), in.PriceRequest)
	if err != nil {
		return LiquidationOutcome{}, err
	}
	loses := receives.Add(fee)
	if loses.GreaterThan(in.RequestAvailable) {
		loses = in.RequestAvailable
		fee = MaxDec(loses.Sub(receives), decimal.Zero)
	}
	if !receives.IsPositive() {
		return LiquidationOutcome{}, ErrNoAmount
	}

	return LiquidationOutcome{
		Debt:               debtAmount,
		LiquidatorReceives: receives,
		LiquidateeLoses:    loses,
		ProtocolFee:        fee,
		EffectiveBonus:     lb,
	}, nil
}
