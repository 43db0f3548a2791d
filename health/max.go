package health

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/openmargin/rover/core"
)

// Estimates shave a safety margin off the closed-form solution and floor, so
// acting on them always lands at or under max ltv.
var conservativeFactor = decimal.RequireFromString("0.999")

// BorrowTarget says where a hypothetical borrow would land, which decides how
// much of it counts back as collateral.
type BorrowTarget interface {
	isBorrowTarget()
}

// TargetWallet: the borrowed coin leaves the account entirely.
type TargetWallet struct{}

// TargetDeposit: the borrowed coin stays as a deposit.
type TargetDeposit struct{}

// TargetVault: the borrowed coin is deposited into a vault.
type TargetVault struct {
	Vault string
}

// TargetSwap: the borrowed coin is swapped into DenomOut with the given
// slippage tolerance.
type TargetSwap struct {
	DenomOut string
	Slippage decimal.Decimal
}

func (TargetWallet) isBorrowTarget()  {}
func (TargetDeposit) isBorrowTarget() {}
func (TargetVault) isBorrowTarget()   {}
func (TargetSwap) isBorrowTarget()    {}

type SwapKind uint8

const (
	SwapKindDefault SwapKind = iota
	SwapKindMargin
)

func conservative(x decimal.Decimal) (decimal.Decimal, error) {
	return core.MulDecFloor(x, conservativeFactor)
}

func (c *Computer) depositAmount(denom string) decimal.Decimal {
	for _, coin := range c.Positions.Deposits {
		if coin.Denom == denom {
			return coin.Amount
		}
	}
	return decimal.Zero
}

// MaxWithdraw returns the largest amount of denom that can leave the account
// while keeping it at or under max ltv. From a healthy account, a denom that
// carries no ltv weight does not back any debt and withdraws freely.
func (c *Computer) MaxWithdraw(denom string) (decimal.Decimal, error) {
	balance := c.depositAmount(denom)
	if balance.IsZero() {
		return decimal.Zero, nil
	}
	vals, err := c.Compute()
	if err != nil {
		return decimal.Zero, err
	}
	if vals.AboveMaxLtv {
		return decimal.Zero, nil
	}
	ltv, _ := c.weights(denom)
	if ltv.IsZero() || vals.TotalDebtValue.IsZero() {
		return balance, nil
	}

	price, err := c.price(denom)
	if err != nil {
		return decimal.Zero, err
	}
	excess, err := core.CheckedSub(vals.MaxLtvAdjustedCollateral, vals.TotalDebtValue)
	if err != nil {
		return decimal.Zero, err
	}
	amount, err := core.DivDecFloor(excess, price.Mul(ltv))
	if err != nil {
		return decimal.Zero, err
	}
	amount, err = conservative(amount)
	if err != nil {
		return decimal.Zero, err
	}
	return core.MinDec(amount, balance), nil
}

// MaxBorrow solves for the borrow amount of denom that brings the max-ltv
// health factor exactly to 1 at the given target, then shaves the
// conservative margin.
func (c *Computer) MaxBorrow(denom string, target BorrowTarget) (decimal.Decimal, error) {
	params, ok := c.Denoms.Params[denom]
	if !ok || !params.BorrowEnabled {
		return decimal.Zero, nil
	}

	vals, err := c.Compute()
	if err != nil {
		return decimal.Zero, err
	}
	if vals.AboveMaxLtv {
		return decimal.Zero, nil
	}
	excess, err := core.CheckedSub(vals.MaxLtvAdjustedCollateral, vals.TotalDebtValue)
	if err != nil {
		return decimal.Zero, err
	}
	if excess.IsZero() {
		return decimal.Zero, nil
	}
	price, err := c.price(denom)
	if err != nil {
		return decimal.Zero, err
	}

	// Borrowing x adds x*price debt and x*price*w collateral, where w depends
	// on where the coin lands; solvency at the limit gives
	// x = excess / (price * (1 - w)).
	var w decimal.Decimal
	switch t := target.(type) {
	case TargetWallet:
		w = decimal.Zero
	case TargetDeposit:
		w, _ = c.weights(denom)
	case TargetVault:
		cfg, ok := c.Vaults.Configs[t.Vault]
		if !ok {
			return decimal.Zero, errors.Wrap(ErrMissingVaultConfig, t.Vault)
		}
		w = cfg.EffectiveLtv(c.Positions.Kind)
	case TargetSwap:
		outLtv, _ := c.weights(t.DenomOut)
		w = outLtv.Mul(core.ONE.Sub(t.Slippage))
	default:
		return decimal.Zero, errors.Wrapf(core.ErrInvalidParam, "unknown borrow target %T", target)
	}
	if w.GreaterThanOrEqual(core.ONE) {
		return decimal.Zero, errors.Wrapf(core.ErrInvalidParam, "borrow target weight %s must be < 1", w)
	}

	amount, err := core.DivDecFloor(excess, price.Mul(core.ONE.Sub(w)))
	if err != nil {
		return decimal.Zero, err
	}
	return conservative(amount)
}

// MaxSwap returns how much of denomIn can be swapped into denomOut. Default
// spends the deposit; Margin additionally borrows up to the swap-target
// limit.
func (c *Computer) MaxSwap(denomIn, denomOut string, kind SwapKind, slippage decimal.Decimal) (decimal.Decimal, error) {
	balance := c.depositAmount(denomIn)
	if kind == SwapKindDefault {
		return balance, nil
	}
	borrowable, err := c.MaxBorrow(denomIn, TargetSwap{DenomOut: denomOut, Slippage: slippage})
	if err != nil {
		return decimal.Zero, err
	}
	return core.CheckedAdd(balance, borrowable)
}
