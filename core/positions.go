package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionKeeper mutates the coin and vault buckets of a credit account.
// Share-based debt and lend bookkeeping lives in Ledger.
type PositionKeeper struct {
	state State
	clk   clock.Clock
}

func NewPositionKeeper(state State, clk clock.Clock) *PositionKeeper {
	return &PositionKeeper{state: state, clk: clk}
}

func (pk *PositionKeeper) IncreaseDeposit(ctx context.Context, accountID string, coin Coin) error {
	if !coin.Amount.IsPositive() {
		return ErrNoAmount
	}
	cur, err := pk.state.GetDeposit(ctx, accountID, coin.Denom)
	if err != nil {
		return err
	}
	next, err := CheckedAdd(cur, coin.Amount)
	if err != nil {
		return err
	}
	return pk.state.SetDeposit(ctx, accountID, coin.Denom, next)
}

func (pk *PositionKeeper) DecreaseDeposit(ctx context.Context, accountID string, coin Coin) error {
	if !coin.Amount.IsPositive() {
		return ErrNoAmount
	}
	cur, err := pk.state.GetDeposit(ctx, accountID, coin.Denom)
	if err != nil {
		return err
	}
	if cur.IsZero() {
		return NewCoinNotAvailableError(coin.Denom)
	}
	next, err := CheckedSub(cur, coin.Amount)
	if err != nil {
		return err
	}
	return pk.state.SetDeposit(ctx, accountID, coin.Denom, next)
}

func (pk *PositionKeeper) IncreaseStakedLp(ctx context.Context, accountID string, lp Coin) error {
	if !lp.Amount.IsPositive() {
		return ErrNoAmount
	}
	cur, err := pk.state.GetStakedLp(ctx, accountID, lp.Denom)
	if err != nil {
		return err
	}
	next, err := CheckedAdd(cur, lp.Amount)
	if err != nil {
		return err
	}
	return pk.state.SetStakedLp(ctx, accountID, lp.Denom, next)
}

func (pk *PositionKeeper) DecreaseStakedLp(ctx context.Context, accountID string, lp Coin) error {
	if !lp.Amount.IsPositive() {
		return ErrNoAmount
	}
	cur, err := pk.state.GetStakedLp(ctx, accountID, lp.Denom)
	if err != nil {
		return err
	}
	if cur.IsZero() {
		return ErrNoStakedLp
	}
	next, err := CheckedSub(cur, lp.Amount)
	if err != nil {
		return err
	}
	return pk.state.SetStakedLp(ctx, accountID, lp.Denom, next)
}

// EnterVault credits freshly minted vault tokens to the unlocked bucket. An
// account may hold at most one vault position; entering a second, distinct
// vault fails.
func (pk *PositionKeeper) EnterVault(ctx context.Context, accountID, vault string, tokens decimal.Decimal) error {
	if !tokens.IsPositive() {
		return ErrNoAmount
	}
	pos, err := pk.state.GetVaultPosition(ctx, accountID)
	if err != nil {
		return err
	}
	if pos == nil {
		pos = &VaultPosition{Vault: vault, Unlocked: decimal.Zero, Locked: decimal.Zero}
	} else if pos.Vault != vault {
		return ErrOnlyOneVaultPosition
	}
	next, err := CheckedAdd(pos.Unlocked, tokens)
	if err != nil {
		return err
	}
	pos.Unlocked = next
	return pk.state.SetVaultPosition(ctx, accountID, pos)
}

// LockVaultTokens moves tokens from the unlocked to the locked bucket, used
// when entering a vault with a mandatory lockup.
func (pk *PositionKeeper) LockVaultTokens(ctx context.Context, accountID, vault string, tokens decimal.Decimal) error {
	pos, err := pk.vaultPosition(ctx, accountID, vault)
	if err != nil {
		return err
	}
	unlocked, err := CheckedSub(pos.Unlocked, tokens)
	if err != nil {
		return err
	}
	locked, err := CheckedAdd(pos.Locked, tokens)
	if err != nil {
		return err
	}
	pos.Unlocked = unlocked
	pos.Locked = locked
	return pk.state.SetVaultPosition(ctx, accountID, pos)
}

// AddUnlocking moves tokens from the locked bucket into a new unlocking
// entry issued by the vault.
func (pk *PositionKeeper) AddUnlocking(ctx context.Context, accountID, vault string, entry VaultUnlockingEntry, maxEntries int) error {
	if !entry.Amount.IsPositive() {
		return ErrNoAmount
	}
	pos, err := pk.vaultPosition(ctx, accountID, vault)
	if err != nil {
		return err
	}
	if maxEntries > 0 && len(pos.Unlocking) >= maxEntries {
		return ErrMaxUnlockingPositions
	}
	locked, err := CheckedSub(pos.Locked, entry.Amount)
	if err != nil {
		return err
	}
	pos.Locked = locked
	pos.Unlocking = append(pos.Unlocking, entry)
	return pk.state.SetVaultPosition(ctx, accountID, pos)
}

// TakeUnlocked removes the matching unlocking entry once its release time
// has passed and returns it.
func (pk *PositionKeeper) TakeUnlocked(ctx context.Context, accountID, vault string, id uint64) (VaultUnlockingEntry, error) {
	pos, err := pk.vaultPosition(ctx, accountID, vault)
	if err != nil {
		return VaultUnlockingEntry{}, err
	}
	idx := -1
	for i, e := range pos.Unlocking {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return VaultUnlockingEntry{}, errors.Wrapf(ErrNoPositionMatch, "id %d", id)
	}
	entry := pos.Unlocking[idx]
	if entry.ReleaseAt > pk.clk.Now().Unix() {
		return VaultUnlockingEntry{}, ErrUnlockNotReady
	}
	pos.Unlocking = append(pos.Unlocking[:idx], pos.Unlocking[idx+1:]...)
	return entry, pk.state.SetVaultPosition(ctx, accountID, pos)
}

// WithdrawVaultTokens decrements the unlocked bucket, or the locked bucket
// when force is set (the mandatory-lockup break path used by liquidation).
func (pk *PositionKeeper) WithdrawVaultTokens(ctx context.Context, accountID, vault string, tokens decimal.Decimal, force bool) error {
	if !tokens.IsPositive() {
		return ErrNoAmount
	}
	pos, err := pk.vaultPosition(ctx, accountID, vault)
	if err != nil {
		return err
	}
	if force {
		locked, err := CheckedSub(pos.Locked, tokens)
		if err != nil {
			return err
		}
		pos.Locked = locked
	} else {
		unlocked, err := CheckedSub(pos.Unlocked, tokens)
		if err != nil {
			return err
		}
		pos.Unlocked = unlocked
	}
	return pk.state.SetVaultPosition(ctx, accountID, pos)
}

func (pk *PositionKeeper) vaultPosition(ctx context.Context, accountID, vault string) (*VaultPosition, error) {
	pos, err := pk.state.GetVaultPosition(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pos == nil || pos.Vault != vault {
		return nil, ErrNoVaultPosition
	}
	return pos, nil
}

// IsEmpty reports whether the account holds no position of any kind.
func (pk *PositionKeeper) IsEmpty(ctx context.Context, accountID string) (bool, error) {
	deposits, err := pk.state.ListDeposits(ctx, accountID)
	if err != nil {
		return false, err
	}
	if len(deposits) > 0 {
		return false, nil
	}
	debts, err := pk.state.ListDebtShares(ctx, accountID)
	if err != nil {
		return false, err
	}
	if len(debts) > 0 {
		return false, nil
	}
	lends, err := pk.state.ListLendShares(ctx, accountID)
	if err != nil {
		return false, err
	}
	if len(lends) > 0 {
		return false, nil
	}
	staked, err := pk.state.ListStakedLps(ctx, accountID)
	if err != nil {
		return false, err
	}
	if len(staked) > 0 {
		return false, nil
	}
	pos, err := pk.state.GetVaultPosition(ctx, accountID)
	if err != nil {
		return false, err
	}
	return pos == nil, nil
}
