package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// External collaborators are typed request/response surfaces. None of them
// ever writes position state directly; all mutation flows through the
// pipeline.

type PriceKind uint8

const (
	PriceKindDefault PriceKind = iota
	PriceKindLiquidation
)

func (k PriceKind) String() string {
	switch k {
	case PriceKindDefault:
		return "default"
	case PriceKindLiquidation:
		return "liquidation"
	default:
		return "unknown"
	}
}

type Oracle interface {
	Price(ctx context.Context, denom string, kind PriceKind) (decimal.Decimal, error)
}

type ParamsSource interface {
	// AssetParams returns nil when the denom has no registered params.
	AssetParams(ctx context.Context, denom string) (*AssetParams, error)
	VaultConfig(ctx context.Context, vault string) (*VaultConfig, error)
	TargetHealthFactor(ctx context.Context) (decimal.Decimal, error)
	// TotalDeposit reports the protocol-wide deposit cap and current amount.
	TotalDeposit(ctx context.Context, denom string) (cap, amount decimal.Decimal, err error)
	// AllAssetParams and AllVaultConfigs back the paginated query surface;
	// results are ordered by denom and vault address respectively.
	AllAssetParams(ctx context.Context) ([]AssetParams, error)
	AllVaultConfigs(ctx context.Context) ([]VaultConfig, error)
}

// LendingPool is the pool the credit manager borrows from and lends to. The
// pool tracks the credit manager as a single account; the scaled-share ledger
// apportions that aggregate across credit accounts.
type LendingPool interface {
	TotalDebtUnderlying(ctx context.Context, denom string) (decimal.Decimal, error)
	TotalLentUnderlying(ctx context.Context, denom string) (decimal.Decimal, error)
	Borrow(ctx context.Context, coin Coin) error
	Repay(ctx context.Context, coin Coin) error
	Lend(ctx context.Context, coin Coin) error
	Reclaim(ctx context.Context, coin Coin, liquidationRelated bool) error
}

type AccountNFT interface {
	OwnerOf(ctx context.Context, accountID string) (string, error)
	NextID(ctx context.Context) (string, error)
	Mint(ctx context.Context, owner string) (string, error)
	Burn(ctx context.Context, accountID string) error
	Tokens(ctx context.Context, owner string, startAfter string, limit int) ([]string, error)
}

type Incentives interface {
	PendingRewards(ctx context.Context, accountID, lpDenom string) ([]Coin, error)
	Stake(ctx context.Context, accountID string, lp Coin) error
	Unstake(ctx context.Context, accountID string, lp Coin) error
	Claim(ctx context.Context, accountID, lpDenom string) ([]Coin, error)
}

type VaultInfo struct {
	Vault           string
	BaseDenom       string
	VaultTokenDenom string
	// Lockup is zero for liquid vaults.
	Lockup time.Duration
}

type UnlockingPosition struct {
	ID        uint64
	Amount    decimal.Decimal
	ReleaseAt time.Time
}

// Vaults is the CosmWasm-vault-standard surface. Deposits and withdrawals
// settle against the contract's own bank balance; the pipeline observes the
// returned amounts via balance deltas.
type Vaults interface {
	Info(ctx context.Context, vault string) (*VaultInfo, error)
	// Deposit sends coin to the vault and returns the vault tokens minted.
	Deposit(ctx context.Context, vault string, coin Coin) (decimal.Decimal, error)
	// Withdraw redeems unlocked vault tokens for base tokens.
	Withdraw(ctx context.Context, vault string, tokens decimal.Decimal) error
	// ForceWithdraw breaks a mandatory lockup; only liquidation uses it.
	ForceWithdraw(ctx context.Context, vault string, tokens decimal.Decimal) error
	RequestUnlock(ctx context.Context, vault string, tokens decimal.Decimal) (UnlockingPosition, error)
	WithdrawUnlocked(ctx context.Context, vault string, id uint64) error
	UnlockingPositionInfo(ctx context.Context, vault string, id uint64) (UnlockingPosition, error)
	PreviewRedeem(ctx context.Context, vault string, tokens decimal.Decimal) (decimal.Decimal, error)
}

// Swapper executes exact-in swaps. The amount received is non-deterministic;
// the pipeline learns it by comparing contract balances before and after.
type Swapper interface {
	SwapExactIn(ctx context.Context, coinIn Coin, denomOut string, minReceive decimal.Decimal, route string) error
}

type Zapper interface {
	ProvideLiquidity(ctx context.Context, coins []Coin, lpDenom string, minReceive decimal.Decimal) error
	WithdrawLiquidity(ctx context.Context, lp Coin, minReceive []Coin) error
}

// Bank exposes the contract's own coin balances and outbound transfers.
type Bank interface {
	ContractBalance(ctx context.Context, denom string) (decimal.Decimal, error)
	Send(ctx context.Context, to string, coin Coin) error
}

// HealthAdapter gates solvency. The health computer lives outside the
// pipeline, mirroring the dedicated health contract in the deployed system.
type HealthAdapter interface {
	// AssertMaxLtv fails with ErrAboveMaxLtv when the account's max-LTV
	// health factor is defined and below one. Uses default pricing.
	AssertMaxLtv(ctx context.Context, state State, accountID string) error
	// LiquidationState reports solvency under liquidation pricing.
	LiquidationState(ctx context.Context, state State, accountID string) (*LiquidationHealth, error)
}

type LiquidationHealth struct {
	HealthFactor                           *decimal.Decimal
	TotalDebtValue                         decimal.Decimal
	LiquidationThresholdAdjustedCollateral decimal.Decimal
	Liquidatable                           bool
}
