package core

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrOverflow             = errors.New("overflow")
	ErrDivideByZero         = errors.New("divide by zero")
	ErrDecimalRangeExceeded = errors.New("decimal range exceeded")
	ErrInsufficientFunds    = errors.New("insufficient funds")

	ErrNotTokenOwner      = errors.New("sender is not the owner of the credit account")
	ErrExternalInvocation = errors.New("callbacks may only be invoked by the contract itself")
	ErrUnauthorized       = errors.New("unauthorized")

	ErrReentrancyGuardActive   = errors.New("reentrancy guard is active")
	ErrReentrancyGuardInactive = errors.New("reentrancy guard is not active")
	ErrOnlyOneVaultPosition    = errors.New("only one vault position is allowed per credit account")
	ErrSelfLiquidation         = errors.New("cannot liquidate your own credit account")
	ErrInvalidConfig           = errors.New("invalid config")

	ErrNoAmount              = errors.New("amount must be positive")
	ErrNoDebt                = errors.New("no debt in this denom")
	ErrNoneLent              = errors.New("no lent position in this denom")
	ErrNoStakedLp            = errors.New("no staked lp position in this denom")
	ErrNoVaultPosition       = errors.New("no vault position")
	ErrNoLockup              = errors.New("vault has no lockup period")
	ErrUnlockNotReady        = errors.New("unlocking position has not reached its release time")
	ErrNoPositionMatch       = errors.New("no unlocking position matches the given id")
	ErrAccountNotEmpty       = errors.New("credit account still holds positions")
	ErrMaxUnlockingPositions = errors.New("vault position has too many unlocking entries")

	ErrNotLiquidatable    = errors.New("account is not liquidatable")
	ErrAboveMaxLtv        = errors.New("account is above the maximum loan to value")
	ErrDepositCapExceeded = errors.New("deposit cap exceeded")
	ErrHlsNotCorrelated   = errors.New("collateral denom is not correlated with the hls debt denom")

	ErrInvalidDenom = errors.New("invalid denom")
	ErrInvalidParam = errors.New("invalid param")
)

type InsufficientFundsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func NewInsufficientFundsError(requested, available decimal.Decimal) error {
	return &InsufficientFundsError{Requested: requested, Available: available}
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

type NotLiquidatableError struct {
	AccountID    string
	HealthFactor *decimal.Decimal
}

func NewNotLiquidatableError(accountID string, hf *decimal.Decimal) error {
	return &NotLiquidatableError{AccountID: accountID, HealthFactor: hf}
}

func (e *NotLiquidatableError) Error() string {
	hf := "undefined"
	if e.HealthFactor != nil {
		hf = e.HealthFactor.String()
	}
	return fmt.Sprintf("account %s is not liquidatable: liquidation health factor %s", e.AccountID, hf)
}

func (e *NotLiquidatableError) Is(target error) bool {
	return target == ErrNotLiquidatable
}

type NotWhitelistedError struct {
	Denom string
}

func NewNotWhitelistedError(denom string) error {
	return &NotWhitelistedError{Denom: denom}
}

func (e *NotWhitelistedError) Error() string {
	return fmt.Sprintf("%s is not whitelisted", e.Denom)
}

func (e *NotWhitelistedError) Is(target error) bool {
	return target == ErrNotWhitelisted
}

var ErrNotWhitelisted = errors.New("not whitelisted")

type CoinNotAvailableError struct {
	Denom string
}

func NewCoinNotAvailableError(denom string) error {
	return &CoinNotAvailableError{Denom: denom}
}

func (e *CoinNotAvailableError) Error() string {
	return fmt.Sprintf("coin %s is not available in the account", e.Denom)
}

func (e *CoinNotAvailableError) Is(target error) bool {
	return target == ErrCoinNotAvailable
}

var ErrCoinNotAvailable = errors.New("coin not available")
