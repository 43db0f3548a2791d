package core

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// liquidate settles part of an insolvent account's debt from the liquidator's
// deposits in exchange for a bonus-bearing slice of one of the liquidatee's
// positions. The purchased debt coin moves between deposits immediately; its
// repayment to the pool runs as a callback so it is valued after all transfers
// landed.
func (p *Pipeline) liquidate(ctx context.Context, liquidatorID string, act Liquidate) error {
	if act.Liquidatee == liquidatorID {
		return ErrSelfLiquidation
	}
	if err := act.DebtCoin.Validate(); err != nil {
		return err
	}

	lh, err := p.deps.Health.LiquidationState(ctx, p.state, act.Liquidatee)
	if err != nil {
		return err
	}
	if !lh.Liquidatable || lh.HealthFactor == nil {
		return NewNotLiquidatableError(act.Liquidatee, lh.HealthFactor)
	}

	outstanding, err := p.ledger.DebtAmount(ctx, act.Liquidatee, act.DebtCoin.Denom)
	if err != nil {
		return err
	}
	if outstanding.IsZero() {
		return ErrNoDebt
	}

	kind, err := p.state.GetAccountKind(ctx, act.Liquidatee)
	if err != nil {
		return err
	}
	target, err := p.requestTarget(ctx, act.Liquidatee, kind, act.Request)
	if err != nil {
		return err
	}

	requestParams, err := p.assetParams(ctx, target.paramsDenom)
	if err != nil {
		return err
	}
	priceDebt, err := p.deps.Oracle.Price(ctx, act.DebtCoin.Denom, PriceKindLiquidation)
	if err != nil {
		return err
	}
	priceRequest, err := p.deps.Oracle.Price(ctx, target.valueDenom, PriceKindLiquidation)
	if err != nil {
		return err
	}
	tHF, err := p.deps.Params.TargetHealthFactor(ctx)
	if err != nil {
		return err
	}

	out, err := CalcLiquidation(LiquidationInput{
		DebtRequested:      act.DebtCoin.Amount,
		DebtOutstanding:    outstanding,
		HealthFactor:       *lh.HealthFactor,
		TotalDebtValue:     lh.TotalDebtValue,
		LtCollateralValue:  lh.LiquidationThresholdAdjustedCollateral,
		RequestAvailable:   target.available,
		PriceDebt:          priceDebt,
		PriceRequest:       priceRequest,
		RequestThreshold:   target.threshold,
		Bonus:              requestParams.LiquidationBonus,
		ProtocolFeeRate:    requestParams.ProtocolLiquidationFee,
		TargetHealthFactor: tHF,
	})
	if err != nil {
		return err
	}
	p.deps.Log.Info().
		Str("liquidatee", act.Liquidatee).
		Str("liquidator", liquidatorID).
		Str("debt_denom", act.DebtCoin.Denom).
		Str("debt_amount", out.Debt.String()).
		Str("bonus", out.EffectiveBonus.String()).
		Msg("liquidation settled")

	debtCoin := NewCoin(act.DebtCoin.Denom, out.Debt)
	if err := p.pk.DecreaseDeposit(ctx, liquidatorID, debtCoin); err != nil {
		return err
	}
	if err := p.pk.IncreaseDeposit(ctx, act.Liquidatee, debtCoin); err != nil {
		return err
	}
	p.enqueue("liquidate_repay", func(ctx context.Context) error {
		return p.repay(ctx, act.Liquidatee, debtCoin)
	})

	if err := target.seize(ctx, out); err != nil {
		return err
	}
	received := NewCoin(target.valueDenom, out.LiquidatorReceives)
	if received.Amount.IsPositive() {
		if err := p.pk.IncreaseDeposit(ctx, liquidatorID, received); err != nil {
			return err
		}
	}
	if out.ProtocolFee.IsPositive() {
		fee := NewCoin(target.valueDenom, out.ProtocolFee)
		if err := p.pk.IncreaseDeposit(ctx, p.cfg.RewardsCollectorAccount, fee); err != nil {
			return err
		}
	}
	return nil
}

// requestTarget resolves the position kind the liquidator asked for. valueDenom
// is the denom the seized amounts are expressed in (the vault's base denom for
// vault positions), paramsDenom the denom whose risk params drive pricing.
type requestTarget struct {
	valueDenom  string
	paramsDenom string
	available   decimal.Decimal
	threshold   decimal.Decimal
	seize       func(ctx context.Context, out LiquidationOutcome) error
}

func (p *Pipeline) requestTarget(ctx context.Context, liquidatee string, kind AccountKind, req LiquidateRequest) (*requestTarget, error) {
	switch r := req.(type) {
	case RequestDeposit:
		params, err := p.assetParams(ctx, r.Denom)
		if err != nil {
			return nil, err
		}
		available, err := p.state.GetDeposit(ctx, liquidatee, r.Denom)
		if err != nil {
			return nil, err
		}
		if available.IsZero() {
			return nil, NewCoinNotAvailableError(r.Denom)
		}
		return &requestTarget{
			valueDenom:  r.Denom,
			paramsDenom: r.Denom,
			available:   available,
			threshold:   params.EffectiveThreshold(kind),
			seize: func(ctx context.Context, out LiquidationOutcome) error {
				return p.pk.DecreaseDeposit(ctx, liquidatee, NewCoin(r.Denom, out.LiquidateeLoses))
			},
		}, nil

	case RequestLend:
		params, err := p.assetParams(ctx, r.Denom)
		if err != nil {
			return nil, err
		}
		available, err := p.ledger.LentAmount(ctx, liquidatee, r.Denom)
		if err != nil {
			return nil, err
		}
		if available.IsZero() {
			return nil, ErrNoneLent
		}
		return &requestTarget{
			valueDenom:  r.Denom,
			paramsDenom: r.Denom,
			available:   available,
			threshold:   params.EffectiveThreshold(kind),
			seize: func(ctx context.Context, out LiquidationOutcome) error {
				reclaimed, err := p.ledger.Reclaim(ctx, liquidatee, NewCoin(r.Denom, out.LiquidateeLoses))
				if err != nil {
					return err
				}
				reclaimCoin := NewCoin(r.Denom, reclaimed)
				if err := p.deps.Pool.Reclaim(ctx, reclaimCoin, true); err != nil {
					return err
				}
				p.journal.Compensate("pool_reclaim", func(ctx context.Context) error {
					return p.deps.Pool.Lend(ctx, reclaimCoin)
				})
				return nil
			},
		}, nil

	case RequestStakedLp:
		params, err := p.assetParams(ctx, r.Denom)
		if err != nil {
			return nil, err
		}
		available, err := p.state.GetStakedLp(ctx, liquidatee, r.Denom)
		if err != nil {
			return nil, err
		}
		if available.IsZero() {
			return nil, ErrNoStakedLp
		}
		return &requestTarget{
			valueDenom:  r.Denom,
			paramsDenom: r.Denom,
			available:   available,
			threshold:   params.EffectiveThreshold(kind),
			seize: func(ctx context.Context, out LiquidationOutcome) error {
				seized := NewCoin(r.Denom, out.LiquidateeLoses)
				if err := p.creditPendingRewards(ctx, liquidatee, r.Denom); err != nil {
					return err
				}
				if err := p.pk.DecreaseStakedLp(ctx, liquidatee, seized); err != nil {
					return err
				}
				p.journal.Stage("incentives_unstake", func(ctx context.Context) error {
					return p.deps.Incentives.Unstake(ctx, liquidatee, seized)
				})
				return nil
			},
		}, nil

	case RequestVault:
		cfg, err := p.deps.Params.VaultConfig(ctx, r.Vault)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			return nil, NewNotWhitelistedError(r.Vault)
		}
		info, err := p.deps.Vaults.Info(ctx, r.Vault)
		if err != nil {
			return nil, err
		}
		pos, err := p.state.GetVaultPosition(ctx, liquidatee)
		if err != nil {
			return nil, err
		}
		if pos == nil || pos.Vault != r.Vault {
			return nil, ErrNoVaultPosition
		}
		tokens, err := CheckedAdd(pos.Unlocked, pos.Locked)
		if err != nil {
			return nil, err
		}
		if tokens.IsZero() {
			return nil, ErrNoVaultPosition
		}
		baseAvailable, err := p.deps.Vaults.PreviewRedeem(ctx, r.Vault, tokens)
		if err != nil {
			return nil, err
		}
		if baseAvailable.IsZero() {
			return nil, NewCoinNotAvailableError(info.BaseDenom)
		}
		return &requestTarget{
			valueDenom:  info.BaseDenom,
			paramsDenom: info.BaseDenom,
			available:   baseAvailable,
			threshold:   cfg.EffectiveThreshold(kind),
			seize: func(ctx context.Context, out LiquidationOutcome) error {
				return p.seizeVaultTokens(ctx, liquidatee, r.Vault, info.BaseDenom, pos, tokens, baseAvailable, out.LiquidateeLoses)
			},
		}, nil

	default:
		return nil, errors.Wrapf(ErrInvalidParam, "unknown liquidation request %T", req)
	}
}

// seizeVaultTokens burns the token slice worth baseLost base units, draining
// the unlocked bucket before force-withdrawing from the locked one.
func (p *Pipeline) seizeVaultTokens(ctx context.Context, liquidatee, vault, baseDenom string, pos *VaultPosition, tokens, baseAvailable, baseLost decimal.Decimal) error {
	burn, err := MulDivCeil(tokens, baseLost, baseAvailable)
	if err != nil {
		return err
	}
	burn = MinDec(burn, tokens)

	prev, err := p.deps.Bank.ContractBalance(ctx, baseDenom)
	if err != nil {
		return err
	}
	fromUnlocked := MinDec(burn, pos.Unlocked)
	if fromUnlocked.IsPositive() {
		if err := p.pk.WithdrawVaultTokens(ctx, liquidatee, vault, fromUnlocked, false); err != nil {
			return err
		}
		if err := p.deps.Vaults.Withdraw(ctx, vault, fromUnlocked); err != nil {
			return err
		}
	}
	fromLocked := burn.Sub(fromUnlocked)
	if fromLocked.IsPositive() {
		if err := p.pk.WithdrawVaultTokens(ctx, liquidatee, vault, fromLocked, true); err != nil {
			return err
		}
		if err := p.deps.Vaults.ForceWithdraw(ctx, vault, fromLocked); err != nil {
			return err
		}
	}
	p.compensateReceived("vault_seize", baseDenom, prev, func(ctx context.Context, received Coin) error {
		_, err := p.deps.Vaults.Deposit(ctx, vault, received)
		return err
	})
	return nil
}
