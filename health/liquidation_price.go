package health

import (
	"github.com/shopspring/decimal"

	"github.com/openmargin/rover/core"
)

type LiquidationPriceKind uint8

const (
	// LiquidationPriceAsset solves for the price drop of a collateral asset.
	LiquidationPriceAsset LiquidationPriceKind = iota
	// LiquidationPriceDebt solves for the price rise of a borrowed asset.
	LiquidationPriceDebt
)

// LiquidationPrice returns the price of denom at which the liquidation health
// factor crosses 1, holding every other price fixed. Nil means no single move
// of that price alone can take the account to the threshold.
func (c *Computer) LiquidationPrice(denom string, kind LiquidationPriceKind) (*decimal.Decimal, error) {
	vals, err := c.Compute()
	if err != nil {
		return nil, err
	}
	if vals.TotalDebtValue.IsZero() {
		return nil, nil
	}
	switch kind {
	case LiquidationPriceAsset:
		_, threshold := c.weights(denom)
		amount := c.collateralAmount(denom)
		weighted := amount.Mul(threshold)
		if !weighted.IsPositive() {
			return nil, nil
		}
		price, err := c.price(denom)
		if err != nil {
			return nil, err
		}
		// lt_other + amount*threshold*p == total_debt
		other := vals.LiquidationThresholdAdjustedCollateral.Sub(weighted.Mul(price).Floor())
		numerator := vals.TotalDebtValue.Sub(other)
		if !numerator.IsPositive() {
			return nil, nil
		}
		p, err := core.QuoDec(numerator, weighted)
		if err != nil {
			return nil, err
		}
		return &p, nil

	case LiquidationPriceDebt:
		var amount decimal.Decimal
		for _, debt := range c.Positions.Debts {
			if debt.Denom == denom {
				amount = debt.Amount
				break
			}
		}
		if !amount.IsPositive() {
			return nil, nil
		}
		price, err := c.price(denom)
		if err != nil {
			return nil, err
		}
		// debt_other + amount*p == lt_adjusted
		other := vals.TotalDebtValue.Sub(amount.Mul(price).Ceil())
		numerator := vals.LiquidationThresholdAdjustedCollateral.Sub(other)
		if !numerator.IsPositive() {
			return nil, nil
		}
		p, err := core.QuoDec(numerator, amount)
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	return nil, nil
}

// collateralAmount totals denom across the directly priced position kinds.
// Vault tokens are valued through the vault, not through this denom's price,
// so they do not respond to it.
func (c *Computer) collateralAmount(denom string) decimal.Decimal {
	total := decimal.Zero
	for _, coin := range c.Positions.Deposits {
		if coin.Denom == denom {
			total = total.Add(coin.Amount)
		}
	}
	for _, coin := range c.Positions.Lends {
		if coin.Denom == denom {
			total = total.Add(coin.Amount)
		}
	}
	for _, coin := range c.Positions.StakedLps {
		if coin.Denom == denom {
			total = total.Add(coin.Amount)
		}
	}
	return total
}
