package core

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	lbStartingMax = decimal.NewFromFloat(0.1)
	lbSlopeMin    = decimal.NewFromInt(1)
	lbSlopeMax    = decimal.NewFromInt(5)
	lbMinMax      = decimal.NewFromFloat(0.1)
	lbMaxFloor    = decimal.NewFromFloat(0.05)
	lbMaxCeil     = decimal.NewFromFloat(0.3)
)

// LiquidationBonus parameterises the bonus curve paid to liquidators. The
// effective bonus grows as the liquidatee's health factor falls.
type LiquidationBonus struct {
	StartingLB decimal.Decimal `json:"startingLb" yaml:"starting_lb"`
	Slope      decimal.Decimal `json:"slope" yaml:"slope"`
	MinLB      decimal.Decimal `json:"minLb" yaml:"min_lb"`
	MaxLB      decimal.Decimal `json:"maxLb" yaml:"max_lb"`
}

func (lb LiquidationBonus) Validate() error {
	if lb.StartingLB.IsNegative() || lb.StartingLB.GreaterThan(lbStartingMax) {
		return errors.Wrapf(ErrInvalidParam, "starting_lb %s must be within [0, 0.1]", lb.StartingLB)
	}
	if lb.Slope.LessThan(lbSlopeMin) || lb.Slope.GreaterThan(lbSlopeMax) {
		return errors.Wrapf(ErrInvalidParam, "slope %s must be within [1, 5]", lb.Slope)
	}
	if lb.MinLB.IsNegative() || lb.MinLB.GreaterThan(lbMinMax) {
		return errors.Wrapf(ErrInvalidParam, "min_lb %s must be within [0, 0.1]", lb.MinLB)
	}
	if lb.MaxLB.LessThan(lbMaxFloor) || lb.MaxLB.GreaterThan(lbMaxCeil) {
		return errors.Wrapf(ErrInvalidParam, "max_lb %s must be within [0.05, 0.3]", lb.MaxLB)
	}
	if lb.MaxLB.LessThan(lb.MinLB) {
		return errors.Wrapf(ErrInvalidParam, "max_lb %s must not be less than min_lb %s", lb.MaxLB, lb.MinLB)
	}
	return nil
}

// Effective evaluates the bonus curve at the liquidatee's current liquidation
// health factor: starting_lb + slope*(1-hf), clamped to [min_lb, max_lb].
func (lb LiquidationBonus) Effective(healthFactor decimal.Decimal) decimal.Decimal {
	raw := lb.StartingLB.Add(lb.Slope.Mul(ONE.Sub(healthFactor)))
	return ClampDec(raw, lb.MinLB, lb.MaxLB)
}

// HlsParams is the alternate risk table used by high-levered-strategy
// accounts. Correlations is an allow-list: an HLS account with debt in this
// denom may only hold collateral denoms named here.
type HlsParams struct {
	MaxLTV               decimal.Decimal `json:"maxLtv" yaml:"max_ltv"`
	LiquidationThreshold decimal.Decimal `json:"liquidationThreshold" yaml:"liquidation_threshold"`
	Correlations         []string        `json:"correlations" yaml:"correlations"`
}

func (h *HlsParams) Validate() error {
	if h == nil {
		return nil
	}
	if h.MaxLTV.IsNegative() || h.MaxLTV.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidParam, "hls max_ltv %s must be within [0, 1)", h.MaxLTV)
	}
	if !h.LiquidationThreshold.GreaterThan(h.MaxLTV) {
		return errors.Wrapf(ErrInvalidParam, "hls liquidation_threshold %s must exceed hls max_ltv %s", h.LiquidationThreshold, h.MaxLTV)
	}
	for _, denom := range h.Correlations {
		if err := ValidateDenom(denom); err != nil {
			return err
		}
	}
	return nil
}

func (h *HlsParams) Correlated(denom string) bool {
	if h == nil {
		return false
	}
	for _, d := range h.Correlations {
		if d == denom {
			return true
		}
	}
	return false
}

type AssetParams struct {
	Denom                  string           `json:"denom" yaml:"denom"`
	MaxLTV                 decimal.Decimal  `json:"maxLtv" yaml:"max_ltv"`
	LiquidationThreshold   decimal.Decimal  `json:"liquidationThreshold" yaml:"liquidation_threshold"`
	LiquidationBonus       LiquidationBonus `json:"liquidationBonus" yaml:"liquidation_bonus"`
	ProtocolLiquidationFee decimal.Decimal  `json:"protocolLiquidationFee" yaml:"protocol_liquidation_fee"`
	DepositCap             decimal.Decimal  `json:"depositCap" yaml:"deposit_cap"`
	Whitelisted            bool             `json:"whitelisted" yaml:"whitelisted"`
	DepositEnabled         bool             `json:"depositEnabled" yaml:"deposit_enabled"`
	BorrowEnabled          bool             `json:"borrowEnabled" yaml:"borrow_enabled"`
	Hls                    *HlsParams       `json:"hls,omitempty" yaml:"hls"`
}

func (p *AssetParams) Validate() error {
	if err := ValidateDenom(p.Denom); err != nil {
		return err
	}
	if p.MaxLTV.IsNegative() || p.MaxLTV.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidParam, "max_ltv %s must be within [0, 1)", p.MaxLTV)
	}
	if !p.LiquidationThreshold.GreaterThan(p.MaxLTV) {
		return errors.Wrapf(ErrInvalidParam, "liquidation_threshold %s must exceed max_ltv %s", p.LiquidationThreshold, p.MaxLTV)
	}
	if p.ProtocolLiquidationFee.IsNegative() || p.ProtocolLiquidationFee.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidParam, "protocol_liquidation_fee %s must be within [0, 1)", p.ProtocolLiquidationFee)
	}
	if p.DepositCap.IsNegative() {
		return errors.Wrapf(ErrInvalidParam, "deposit_cap %s must not be negative", p.DepositCap)
	}
	if err := p.LiquidationBonus.Validate(); err != nil {
		return err
	}
	return p.Hls.Validate()
}

// EffectiveLtv returns the max LTV used for the given account kind.
func (p *AssetParams) EffectiveLtv(kind AccountKind) decimal.Decimal {
	if !p.Whitelisted {
		return decimal.Zero
	}
	if kind == AccountKindHLS && p.Hls != nil {
		return p.Hls.MaxLTV
	}
	return p.MaxLTV
}

// EffectiveThreshold returns the liquidation threshold for the account kind.
func (p *AssetParams) EffectiveThreshold(kind AccountKind) decimal.Decimal {
	if !p.Whitelisted {
		return decimal.Zero
	}
	if kind == AccountKindHLS && p.Hls != nil {
		return p.Hls.LiquidationThreshold
	}
	return p.LiquidationThreshold
}

type VaultConfig struct {
	Vault                string          `json:"vault" yaml:"vault"`
	DepositCap           decimal.Decimal `json:"depositCap" yaml:"deposit_cap"`
	MaxLTV               decimal.Decimal `json:"maxLtv" yaml:"max_ltv"`
	LiquidationThreshold decimal.Decimal `json:"liquidationThreshold" yaml:"liquidation_threshold"`
	Whitelisted          bool            `json:"whitelisted" yaml:"whitelisted"`
	Hls                  *HlsParams      `json:"hls,omitempty" yaml:"hls"`
}

func (v *VaultConfig) Validate() error {
	if v.Vault == "" {
		return errors.Wrap(ErrInvalidParam, "vault address must not be empty")
	}
	if v.MaxLTV.IsNegative() || v.MaxLTV.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidParam, "vault max_ltv %s must be within [0, 1)", v.MaxLTV)
	}
	if !v.LiquidationThreshold.GreaterThan(v.MaxLTV) {
		return errors.Wrapf(ErrInvalidParam, "vault liquidation_threshold %s must exceed max_ltv %s", v.LiquidationThreshold, v.MaxLTV)
	}
	return v.Hls.Validate()
}

func (v *VaultConfig) EffectiveLtv(kind AccountKind) decimal.Decimal {
	if !v.Whitelisted {
		return decimal.Zero
	}
	if kind == AccountKindHLS && v.Hls != nil {
		return v.Hls.MaxLTV
	}
	return v.MaxLTV
}

func (v *VaultConfig) EffectiveThreshold(kind AccountKind) decimal.Decimal {
	if !v.Whitelisted {
		return decimal.Zero
	}
	if kind == AccountKindHLS && v.Hls != nil {
		return v.Hls.LiquidationThreshold
	}
	return v.LiquidationThreshold
}
