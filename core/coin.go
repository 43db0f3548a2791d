package core

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Coin struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

func NewCoin(denom string, amount decimal.Decimal) Coin {
	return Coin{Denom: denom, Amount: amount}
}

func NewCoinFromInt(denom string, amount int64) Coin {
	return Coin{Denom: denom, Amount: decimal.NewFromInt(amount)}
}

func (c Coin) String() string {
	return fmt.Sprintf("%s%s", c.Amount, c.Denom)
}

func (c Coin) IsZero() bool {
	return c.Amount.IsZero()
}

func (c Coin) Validate() error {
	if err := ValidateDenom(c.Denom); err != nil {
		return err
	}
	if !c.Amount.IsPositive() {
		return ErrNoAmount
	}
	if !c.Amount.Equal(c.Amount.Truncate(0)) {
		return errors.Wrapf(ErrInvalidParam, "amount %s is not a whole number", c.Amount)
	}
	if c.Amount.GreaterThan(MaxUint128) {
		return ErrDecimalRangeExceeded
	}
	return nil
}
