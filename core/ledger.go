package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger maps (account, denom) to scaled shares of the pool-wide debt and
// lend totals. Conversion always rounds against the account: debt shares
// mint with ceil, lend shares with floor, and the inverse conversions mirror
// that policy.
type Ledger struct {
	state State
	pool  LendingPool
}

func NewLedger(state State, pool LendingPool) *Ledger {
	return &Ledger{state: state, pool: pool}
}

func sharesFromAmount(amount, totalShares, totalUnderlying decimal.Decimal, ceil bool) (decimal.Decimal, error) {
	if totalUnderlying.IsZero() {
		return checkRange(amount.Mul(bootstrapShareMultiplier))
	}
	if ceil {
		return MulDivCeil(totalShares, amount, totalUnderlying)
	}
	return MulDivFloor(totalShares, amount, totalUnderlying)
}

// Borrow mints debt shares for amount. The caller is responsible for
// requesting the actual pool borrow and crediting the deposit.
func (l *Ledger) Borrow(ctx context.Context, accountID string, coin Coin) (decimal.Decimal, error) {
	if !coin.Amount.IsPositive() {
		return decimal.Zero, ErrNoAmount
	}
	totalShares, err := l.state.TotalDebtShares(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	totalUnderlying, err := l.pool.TotalDebtUnderlying(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	shares, err := sharesFromAmount(coin.Amount, totalShares, totalUnderlying, true)
	if err != nil {
		return decimal.Zero, err
	}

	cur, err := l.state.GetDebtShares(ctx, accountID, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	next, err := CheckedAdd(cur, shares)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetDebtShares(ctx, accountID, coin.Denom, next); err != nil {
		return decimal.Zero, err
	}
	newTotal, err := CheckedAdd(totalShares, shares)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetTotalDebtShares(ctx, coin.Denom, newTotal); err != nil {
		return decimal.Zero, err
	}
	return shares, nil
}

// Repay burns debt shares worth up to coin.Amount and returns the amount
// actually repaid, capped at the outstanding debt. Full repayment deletes
// the account's entry.
func (l *Ledger) Repay(ctx context.Context, accountID string, coin Coin) (decimal.Decimal, error) {
	if !coin.Amount.IsPositive() {
		return decimal.Zero, ErrNoAmount
	}
	accountShares, err := l.state.GetDebtShares(ctx, accountID, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	if accountShares.IsZero() {
		return decimal.Zero, ErrNoDebt
	}
	totalShares, err := l.state.TotalDebtShares(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	totalUnderlying, err := l.pool.TotalDebtUnderlying(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}

	owed, err := MulDivCeil(accountShares, totalUnderlying, totalShares)
	if err != nil {
		return decimal.Zero, err
	}

	repaid := MinDec(coin.Amount, owed)
	var sharesBurned decimal.Decimal
	if repaid.Equal(owed) {
		sharesBurned = accountShares
	} else {
		// Burning floor(shares) for a partial repayment keeps the residual
		// debt rounded against the account.
		sharesBurned, err = sharesFromAmount(repaid, totalShares, totalUnderlying, false)
		if err != nil {
			return decimal.Zero, err
		}
	}

	remaining, err := CheckedSub(accountShares, sharesBurned)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetDebtShares(ctx, accountID, coin.Denom, remaining); err != nil {
		return decimal.Zero, err
	}
	newTotal, err := CheckedSub(totalShares, sharesBurned)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetTotalDebtShares(ctx, coin.Denom, newTotal); err != nil {
		return decimal.Zero, err
	}
	return repaid, nil
}

// Lend mints lend shares for amount lent to the pool.
func (l *Ledger) Lend(ctx context.Context, accountID string, coin Coin) (decimal.Decimal, error) {
	if !coin.Amount.IsPositive() {
		return decimal.Zero, ErrNoAmount
	}
	totalShares, err := l.state.TotalLendShares(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	totalUnderlying, err := l.pool.TotalLentUnderlying(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	shares, err := sharesFromAmount(coin.Amount, totalShares, totalUnderlying, false)
	if err != nil {
		return decimal.Zero, err
	}

	cur, err := l.state.GetLendShares(ctx, accountID, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	next, err := CheckedAdd(cur, shares)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetLendShares(ctx, accountID, coin.Denom, next); err != nil {
		return decimal.Zero, err
	}
	newTotal, err := CheckedAdd(totalShares, shares)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetTotalLendShares(ctx, coin.Denom, newTotal); err != nil {
		return decimal.Zero, err
	}
	return shares, nil
}

// Reclaim burns lend shares worth up to coin.Amount and returns the amount
// reclaimed from the pool. Reclaiming everything deletes the entry.
func (l *Ledger) Reclaim(ctx context.Context, accountID string, coin Coin) (decimal.Decimal, error) {
	if !coin.Amount.IsPositive() {
		return decimal.Zero, ErrNoAmount
	}
	accountShares, err := l.state.GetLendShares(ctx, accountID, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	if accountShares.IsZero() {
		return decimal.Zero, ErrNoneLent
	}
	totalShares, err := l.state.TotalLendShares(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}
	totalUnderlying, err := l.pool.TotalLentUnderlying(ctx, coin.Denom)
	if err != nil {
		return decimal.Zero, err
	}

	lent, err := MulDivFloor(accountShares, totalUnderlying, totalShares)
	if err != nil {
		return decimal.Zero, err
	}
	if lent.IsZero() {
		return decimal.Zero, ErrNoneLent
	}

	reclaimed := MinDec(coin.Amount, lent)
	var sharesBurned decimal.Decimal
	if reclaimed.Equal(lent) {
		sharesBurned = accountShares
	} else {
		// Ceil burn: a partial reclaim removes at least the proportional
		// share count so the remaining claim never rounds in the account's
		// favor.
		sharesBurned, err = sharesFromAmount(reclaimed, totalShares, totalUnderlying, true)
		if err != nil {
			return decimal.Zero, err
		}
		sharesBurned = MinDec(sharesBurned, accountShares)
	}

	remaining, err := CheckedSub(accountShares, sharesBurned)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetLendShares(ctx, accountID, coin.Denom, remaining); err != nil {
		return decimal.Zero, err
	}
	newTotal, err := CheckedSub(totalShares, sharesBurned)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.state.SetTotalLendShares(ctx, coin.Denom, newTotal); err != nil {
		return decimal.Zero, err
	}
	return reclaimed, nil
}

// DebtAmount converts an account's debt shares to underlying, ceil-rounded.
func (l *Ledger) DebtAmount(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	shares, err := l.state.GetDebtShares(ctx, accountID, denom)
	if err != nil {
		return decimal.Zero, err
	}
	if shares.IsZero() {
		return decimal.Zero, nil
	}
	totalShares, err := l.state.TotalDebtShares(ctx, denom)
	if err != nil {
		return decimal.Zero, err
	}
	totalUnderlying, err := l.pool.TotalDebtUnderlying(ctx, denom)
	if err != nil {
		return decimal.Zero, err
	}
	return MulDivCeil(shares, totalUnderlying, totalShares)
}

// LentAmount converts an account's lend shares to underlying, floor-rounded.
func (l *Ledger) LentAmount(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	shares, err := l.state.GetLendShares(ctx, accountID, denom)
	if err != nil {
		return decimal.Zero, err
	}
	if shares.IsZero() {
		return decimal.Zero, nil
	}
	totalShares, err := l.state.TotalLendShares(ctx, denom)
	if err != nil {
		return decimal.Zero, err
	}
	totalUnderlying, err := l.pool.TotalLentUnderlying(ctx, denom)
	if err != nil {
		return decimal.Zero, err
	}
	return MulDivFloor(shares, totalUnderlying, totalShares)
}

// Debts lists the account's debts converted to underlying amounts.
func (l *Ledger) Debts(ctx context.Context, accountID string) ([]Coin, error) {
	shares, err := l.state.ListDebtShares(ctx, accountID)
	if err != nil {
		return nil, err
	}
	debts := make([]Coin, 0, len(shares))
	for _, s := range shares {
		amount, err := l.DebtAmount(ctx, accountID, s.Denom)
		if err != nil {
			return nil, err
		}
		debts = append(debts, NewCoin(s.Denom, amount))
	}
	return debts, nil
}

// Lents lists the account's lent positions converted to underlying amounts.
func (l *Ledger) Lents(ctx context.Context, accountID string) ([]Coin, error) {
	shares, err := l.state.ListLendShares(ctx, accountID)
	if err != nil {
		return nil, err
	}
	lents := make([]Coin, 0, len(shares))
	for _, s := range shares {
		amount, err := l.LentAmount(ctx, accountID, s.Denom)
		if err != nil {
			return nil, err
		}
		lents = append(lents, NewCoin(s.Denom, amount))
	}
	return lents, nil
}
