package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCoinValidate(t *testing.T) {
	tests := []struct {
		name    string
		coin    Coin
		wantErr error
	}{
		{"whole amount", NewCoinFromInt("uosmo", 100), nil},
		{"max uint128", NewCoin("uosmo", MaxUint128), nil},
		{"bad denom", NewCoinFromInt("u!", 1), ErrInvalidDenom},
		{"zero", NewCoinFromInt("uosmo", 0), ErrNoAmount},
		{"negative", NewCoinFromInt("uosmo", -5), ErrNoAmount},
		{"fractional", NewCoin("uosmo", decimal.RequireFromString("0.5")), ErrInvalidParam},
		{"tiny fraction", NewCoin("uosmo", decimal.RequireFromString("100.000000000000000001")), ErrInvalidParam},
		{"above range", NewCoin("uosmo", MaxUint128.Add(decimal.NewFromInt(1))), ErrDecimalRangeExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coin.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
