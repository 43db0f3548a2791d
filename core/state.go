package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Persistent state is a key/value store with ordered iteration. Absence means
// zero: setting an entry to zero must delete it, and list operations never
// return zero entries.

type DepositStore interface {
	GetDeposit(ctx context.Context, accountID, denom string) (decimal.Decimal, error)
	SetDeposit(ctx context.Context, accountID, denom string, amount decimal.Decimal) error
	ListDeposits(ctx context.Context, accountID string) ([]Coin, error)
}

type DebtShareStore interface {
	GetDebtShares(ctx context.Context, accountID, denom string) (decimal.Decimal, error)
	SetDebtShares(ctx context.Context, accountID, denom string, shares decimal.Decimal) error
	ListDebtShares(ctx context.Context, accountID string) ([]Coin, error)
	TotalDebtShares(ctx context.Context, denom string) (decimal.Decimal, error)
	SetTotalDebtShares(ctx context.Context, denom string, shares decimal.Decimal) error
}

type LendShareStore interface {
	GetLendShares(ctx context.Context, accountID, denom string) (decimal.Decimal, error)
	SetLendShares(ctx context.Context, accountID, denom string, shares decimal.Decimal) error
	ListLendShares(ctx context.Context, accountID string) ([]Coin, error)
	TotalLendShares(ctx context.Context, denom string) (decimal.Decimal, error)
	SetTotalLendShares(ctx context.Context, denom string, shares decimal.Decimal) error
}

type StakedLpStore interface {
	GetStakedLp(ctx context.Context, accountID, denom string) (decimal.Decimal, error)
	SetStakedLp(ctx context.Context, accountID, denom string, amount decimal.Decimal) error
	ListStakedLps(ctx context.Context, accountID string) ([]Coin, error)
}

type VaultUnlockingEntry struct {
	ID     uint64          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	// ReleaseAt is a unix timestamp checked against block time on exit.
	ReleaseAt int64 `json:"releaseAt"`
}

type VaultPosition struct {
	Vault     string                `json:"vault"`
	Unlocked  decimal.Decimal       `json:"unlocked"`
	Locked    decimal.Decimal       `json:"locked"`
	Unlocking []VaultUnlockingEntry `json:"unlocking,omitempty"`
}

func (p *VaultPosition) IsEmpty() bool {
	return p.Unlocked.IsZero() && p.Locked.IsZero() && len(p.Unlocking) == 0
}

func (p *VaultPosition) Clone() *VaultPosition {
	cp := &VaultPosition{
		Vault:    p.Vault,
		Unlocked: p.Unlocked,
		Locked:   p.Locked,
	}
	cp.Unlocking = append(cp.Unlocking, p.Unlocking...)
	return cp
}

type VaultPositionStore interface {
	// GetVaultPosition returns nil when the account has no vault position.
	GetVaultPosition(ctx context.Context, accountID string) (*VaultPosition, error)
	// SetVaultPosition with a nil or empty position deletes the entry.
	SetVaultPosition(ctx context.Context, accountID string, position *VaultPosition) error
}

type AccountKindStore interface {
	GetAccountKind(ctx context.Context, accountID string) (AccountKind, error)
	SetAccountKind(ctx context.Context, accountID string, kind AccountKind) error
}

type GuardStore interface {
	GuardLocked(ctx context.Context) (bool, error)
	SetGuardLocked(ctx context.Context, locked bool) error
}

type State interface {
	DepositStore
	DebtShareStore
	LendShareStore
	StakedLpStore
	VaultPositionStore
	AccountKindStore
	GuardStore
}

// StateStore adds invocation-scoped atomicity: the pipeline runs inside one
// transaction and any error rolls every write back.
type StateStore interface {
	State
	InTransaction(ctx context.Context, fn func(State) error) error
}
