// Package health values credit account positions and derives the solvency
// measures that gate pipeline actions and liquidations. It is pure: callers
// assemble the position snapshot and the price/params data, the computer only
// does arithmetic.
package health

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/openmargin/rover/core"
)

var (
	ErrMissingPrice       = errors.New("missing price")
	ErrMissingParams      = errors.New("missing asset params")
	ErrMissingVaultValue  = errors.New("missing vault value")
	ErrMissingVaultConfig = errors.New("missing vault config")
)

// VaultPosition is the valued form of an account's vault stake: the token
// total across all buckets plus the vault's base denom.
type VaultPosition struct {
	Vault     string
	BaseDenom string
	Tokens    decimal.Decimal
}

// Positions is the snapshot the computer scores. Amounts are underlying
// (debt and lend shares already converted).
type Positions struct {
	AccountID string
	Kind      core.AccountKind
	Deposits  []core.Coin
	Debts     []core.Coin
	Lends     []core.Coin
	StakedLps []core.Coin
	Vaults    []VaultPosition
}

type DenomsData struct {
	Prices map[string]decimal.Decimal
	Params map[string]core.AssetParams
}

// VaultValue carries the two scored components of a vault position: the
// value of the vault tokens themselves and any residual base-token value
// (unlocking entries already denominated in the base token).
type VaultValue struct {
	VaultValue decimal.Decimal
	BaseValue  decimal.Decimal
}

type VaultsData struct {
	Values  map[string]VaultValue
	Configs map[string]core.VaultConfig
}

type Computer struct {
	Positions Positions
	Denoms    DenomsData
	Vaults    VaultsData
}

// Values is the computed health of one account. The health factors are nil
// when the account carries no debt: an account without debt has no defined
// factor and is never liquidatable.
type Values struct {
	TotalDebtValue                         decimal.Decimal
	TotalCollateralValue                   decimal.Decimal
	MaxLtvAdjustedCollateral               decimal.Decimal
	LiquidationThresholdAdjustedCollateral decimal.Decimal
	MaxLtvHealthFactor                     *decimal.Decimal
	LiquidationHealthFactor                *decimal.Decimal
	AboveMaxLtv                            bool
	Liquidatable                           bool
}

func (c *Computer) price(denom string) (decimal.Decimal, error) {
	p, ok := c.Denoms.Prices[denom]
	if !ok {
		return decimal.Zero, errors.Wrap(ErrMissingPrice, denom)
	}
	return p, nil
}

// weights returns the max-ltv and liquidation-threshold weights for a denom,
// honoring the account kind. An absent or non-whitelisted denom weighs zero
// but still prices into raw collateral value.
func (c *Computer) weights(denom string) (ltv, threshold decimal.Decimal) {
	params, ok := c.Denoms.Params[denom]
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	return params.EffectiveLtv(c.Positions.Kind), params.EffectiveThreshold(c.Positions.Kind)
}

// Compute scores the snapshot. Debt value rounds up per item, collateral
// contributions round down, so the factors never overstate solvency.
func (c *Computer) Compute() (*Values, error) {
	vals := &Values{
		TotalDebtValue:                         decimal.Zero,
		TotalCollateralValue:                   decimal.Zero,
		MaxLtvAdjustedCollateral:               decimal.Zero,
		LiquidationThresholdAdjustedCollateral: decimal.Zero,
	}

	for _, debt := range c.Positions.Debts {
		price, err := c.price(debt.Denom)
		if err != nil {
			return nil, err
		}
		value, err := core.MulDecCeil(debt.Amount, price)
		if err != nil {
			return nil, err
		}
		vals.TotalDebtValue, err = core.CheckedAdd(vals.TotalDebtValue, value)
		if err != nil {
			return nil, err
		}
	}

	score := func(coin core.Coin) error {
		price, err := c.price(coin.Denom)
		if err != nil {
			return err
		}
		raw, err := core.MulDecFloor(coin.Amount, price)
		if err != nil {
			return err
		}
		ltv, threshold := c.weights(coin.Denom)
		return vals.addCollateral(raw, ltv, threshold)
	}
	for _, coin := range c.Positions.Deposits {
		if err := score(coin); err != nil {
			return nil, err
		}
	}
	for _, coin := range c.Positions.Lends {
		if err := score(coin); err != nil {
			return nil, err
		}
	}
	for _, coin := range c.Positions.StakedLps {
		if err := score(coin); err != nil {
			return nil, err
		}
	}

	for _, vp := range c.Positions.Vaults {
		value, ok := c.Vaults.Values[vp.Vault]
		if !ok {
			return nil, errors.Wrap(ErrMissingVaultValue, vp.Vault)
		}
		cfg, ok := c.Vaults.Configs[vp.Vault]
		if !ok {
			return nil, errors.Wrap(ErrMissingVaultConfig, vp.Vault)
		}
		ltv := cfg.EffectiveLtv(c.Positions.Kind)
		threshold := cfg.EffectiveThreshold(c.Positions.Kind)
		if err := vals.addCollateral(value.VaultValue, ltv, threshold); err != nil {
			return nil, err
		}
		if value.BaseValue.IsPositive() {
			baseLtv, baseThreshold := c.weights(vp.BaseDenom)
			if err := vals.addCollateral(value.BaseValue, baseLtv, baseThreshold); err != nil {
				return nil, err
			}
		}
	}

	if vals.TotalDebtValue.IsPositive() {
		maxLtvHF, err := core.QuoDec(vals.MaxLtvAdjustedCollateral, vals.TotalDebtValue)
		if err != nil {
			return nil, err
		}
		liqHF, err := core.QuoDec(vals.LiquidationThresholdAdjustedCollateral, vals.TotalDebtValue)
		if err != nil {
			return nil, err
		}
		vals.MaxLtvHealthFactor = &maxLtvHF
		vals.LiquidationHealthFactor = &liqHF
		vals.AboveMaxLtv = maxLtvHF.LessThan(core.ONE)
		vals.Liquidatable = liqHF.LessThan(core.ONE)
	}
	return vals, nil
}

func (v *Values) addCollateral(raw, ltv, threshold decimal.Decimal) error {
	var err error
	v.TotalCollateralValue, err = core.CheckedAdd(v.TotalCollateralValue, raw)
	if err != nil {
		return err
	}
	ltvValue, err := core.MulDecFloor(raw, ltv)
	if err != nil {
		return err
	}
	v.MaxLtvAdjustedCollateral, err = core.CheckedAdd(v.MaxLtvAdjustedCollateral, ltvValue)
	if err != nil {
		return err
	}
	ltValue, err := core.MulDecFloor(raw, threshold)
	if err != nil {
		return err
	}
	v.LiquidationThresholdAdjustedCollateral, err = core.CheckedAdd(v.LiquidationThresholdAdjustedCollateral, ltValue)
	return err
}

// CheckHlsCorrelations enforces the high-levered-strategy allow list: every
// collateral denom the account holds must be correlated with every debt it
// carries. Non-HLS accounts always pass.
func (c *Computer) CheckHlsCorrelations() error {
	if c.Positions.Kind != core.AccountKindHLS {
		return nil
	}
	collateral := map[string]struct{}{}
	for _, coin := range c.Positions.Deposits {
		collateral[coin.Denom] = struct{}{}
	}
	for _, coin := range c.Positions.Lends {
		collateral[coin.Denom] = struct{}{}
	}
	for _, coin := range c.Positions.StakedLps {
		collateral[coin.Denom] = struct{}{}
	}
	for _, vp := range c.Positions.Vaults {
		collateral[vp.BaseDenom] = struct{}{}
	}
	for _, debt := range c.Positions.Debts {
		params, ok := c.Denoms.Params[debt.Denom]
		if !ok || params.Hls == nil {
			return errors.Wrap(core.ErrHlsNotCorrelated, debt.Denom)
		}
		for denom := range collateral {
			if !params.Hls.Correlated(denom) {
				return errors.Wrapf(core.ErrHlsNotCorrelated, "%s against debt %s", denom, debt.Denom)
			}
		}
	}
	return nil
}
