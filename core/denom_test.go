package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDenom(t *testing.T) {
	tests := []struct {
		name  string
		denom string
		ok    bool
	}{
		{"simple", "uosmo", true},
		{"ibc style", "ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2", true},
		{"factory style", "factory/osmo1abc/lptoken", true},
		{"with separators", "gamm.pool:1_2-3", true},
		{"too short", "ab", false},
		{"leading digit", "1uosmo", false},
		{"leading slash", "/uosmo", false},
		{"illegal char", "uosmo!", false},
		{"too long", "u" + strings.Repeat("o", 128), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDenom(tt.denom)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDenom)
			}
		})
	}
}
