package rover

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/openmargin/rover/core"
	"github.com/openmargin/rover/health"
)

// The engine is the pipeline's health adapter: it assembles the position
// snapshot plus the price and params data and hands them to the pure
// computer, the way the deployed system queries its health contract.

func (e *Engine) AssertMaxLtv(ctx context.Context, st core.State, accountID string) error {
	comp, err := e.computer(ctx, st, accountID, core.PriceKindDefault)
	if err != nil {
		return err
	}
	if err := comp.CheckHlsCorrelations(); err != nil {
		return err
	}
	vals, err := comp.Compute()
	if err != nil {
		return err
	}
	if vals.AboveMaxLtv {
		return errors.Wrapf(core.ErrAboveMaxLtv,
			"account %s: max ltv health factor %s", accountID, vals.MaxLtvHealthFactor)
	}
	e.log.Debug().
		Str("account_id", accountID).
		Str("total_debt_value", vals.TotalDebtValue.String()).
		Str("max_ltv_adjusted", vals.MaxLtvAdjustedCollateral.String()).
		Msg("solvency check passed")
	return nil
}

func (e *Engine) LiquidationState(ctx context.Context, st core.State, accountID string) (*core.LiquidationHealth, error) {
	comp, err := e.computer(ctx, st, accountID, core.PriceKindLiquidation)
	if err != nil {
		return nil, err
	}
	vals, err := comp.Compute()
	if err != nil {
		return nil, err
	}
	return &core.LiquidationHealth{
		HealthFactor:                           vals.LiquidationHealthFactor,
		TotalDebtValue:                         vals.TotalDebtValue,
		LiquidationThresholdAdjustedCollateral: vals.LiquidationThresholdAdjustedCollateral,
		Liquidatable:                           vals.Liquidatable,
	}, nil
}

// computer gathers everything the health package needs for one account under
// the given price kind.
func (e *Engine) computer(ctx context.Context, st core.State, accountID string, priceKind core.PriceKind) (*health.Computer, error) {
	kind, err := st.GetAccountKind(ctx, accountID)
	if err != nil {
		return nil, err
	}
	deposits, err := st.ListDeposits(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ledger := core.NewLedger(st, e.collab.Pool)
	debts, err := ledger.Debts(ctx, accountID)
	if err != nil {
		return nil, err
	}
	lends, err := ledger.Lents(ctx, accountID)
	if err != nil {
		return nil, err
	}
	staked, err := st.ListStakedLps(ctx, accountID)
	if err != nil {
		return nil, err
	}

	denoms := map[string]struct{}{}
	for _, coin := range deposits {
		denoms[coin.Denom] = struct{}{}
	}
	for _, coin := range debts {
		denoms[coin.Denom] = struct{}{}
	}
	for _, coin := range lends {
		denoms[coin.Denom] = struct{}{}
	}
	for _, coin := range staked {
		denoms[coin.Denom] = struct{}{}
	}

	comp := &health.Computer{
		Positions: health.Positions{
			AccountID: accountID,
			Kind:      kind,
			Deposits:  deposits,
			Debts:     debts,
			Lends:     lends,
			StakedLps: staked,
		},
		Denoms: health.DenomsData{
			Prices: map[string]decimal.Decimal{},
			Params: map[string]core.AssetParams{},
		},
		Vaults: health.VaultsData{
			Values:  map[string]health.VaultValue{},
			Configs: map[string]core.VaultConfig{},
		},
	}

	pos, err := st.GetVaultPosition(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pos != nil {
		info, err := e.collab.Vaults.Info(ctx, pos.Vault)
		if err != nil {
			return nil, err
		}
		cfg, err := e.collab.Params.VaultConfig(ctx, pos.Vault)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			return nil, errors.Wrap(health.ErrMissingVaultConfig, pos.Vault)
		}
		tokens, err := core.CheckedAdd(pos.Unlocked, pos.Locked)
		if err != nil {
			return nil, err
		}
		for _, entry := range pos.Unlocking {
			tokens, err = core.CheckedAdd(tokens, entry.Amount)
			if err != nil {
				return nil, err
			}
		}
		base, err := e.collab.Vaults.PreviewRedeem(ctx, pos.Vault, tokens)
		if err != nil {
			return nil, err
		}
		basePrice, err := e.collab.Oracle.Price(ctx, info.BaseDenom, priceKind)
		if err != nil {
			return nil, err
		}
		vaultValue, err := core.MulDecFloor(base, basePrice)
		if err != nil {
			return nil, err
		}
		comp.Positions.Vaults = []health.VaultPosition{{
			Vault:     pos.Vault,
			BaseDenom: info.BaseDenom,
			Tokens:    tokens,
		}}
		comp.Vaults.Values[pos.Vault] = health.VaultValue{
			VaultValue: vaultValue,
			BaseValue:  decimal.Zero,
		}
		comp.Vaults.Configs[pos.Vault] = *cfg
		denoms[info.BaseDenom] = struct{}{}
	}

	for denom := range denoms {
		price, err := e.collab.Oracle.Price(ctx, denom, priceKind)
		if err != nil {
			return nil, err
		}
		comp.Denoms.Prices[denom] = price
		params, err := e.collab.Params.AssetParams(ctx, denom)
		if err != nil {
			return nil, err
		}
		if params != nil {
			comp.Denoms.Params[denom] = *params
		}
	}
	return comp, nil
}
