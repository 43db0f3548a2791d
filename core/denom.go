package core

import (
	"github.com/pkg/errors"
)

const (
	minDenomLen = 3
	maxDenomLen = 128
)

// ValidateDenom checks coin denominations: 3-128 chars, leading ASCII letter,
// then alphanumerics or one of "/:._-".
func ValidateDenom(denom string) error {
	if len(denom) < minDenomLen || len(denom) > maxDenomLen {
		return errors.Wrapf(ErrInvalidDenom, "%q: length must be between %d and %d", denom, minDenomLen, maxDenomLen)
	}
	first := denom[0]
	if !isAlpha(first) {
		return errors.Wrapf(ErrInvalidDenom, "%q: first character must be alphabetic", denom)
	}
	for i := 1; i < len(denom); i++ {
		c := denom[i]
		if isAlpha(c) || isDigit(c) {
			continue
		}
		switch c {
		case '/', ':', '.', '_', '-':
		default:
			return errors.Wrapf(ErrInvalidDenom, "%q: invalid character %q", denom, c)
		}
	}
	return nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
