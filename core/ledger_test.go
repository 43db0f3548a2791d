package core

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerBorrowBootstrap(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pool := newFakePool()
	ledger := NewLedger(st, pool)

	shares, err := ledger.Borrow(ctx, "acct-1", NewCoinFromInt("uatom", 100))
	require.NoError(t, err)
	assert.True(t, shares.Equal(dec("100000000")), "bootstrap mints amount times the share multiplier")

	total, err := st.TotalDebtShares(ctx, "uatom")
	require.NoError(t, err)
	assert.True(t, total.Equal(shares))
}

func TestLedgerSharesTrackPoolGrowth(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pool := newFakePool()
	ledger := NewLedger(st, pool)

	_, err := ledger.Borrow(ctx, "acct-1", NewCoinFromInt("uatom", 100))
	require.NoError(t, err)
	require.NoError(t, pool.Borrow(ctx, NewCoinFromInt("uatom", 100)))

	_, err = ledger.Borrow(ctx, "acct-2", NewCoinFromInt("uatom", 50))
	require.NoError(t, err)
	require.NoError(t, pool.Borrow(ctx, NewCoinFromInt("uatom", 50)))

	// interest accrues pool-wide: 150 owed becomes 180
	pool.debtUnderlying["uatom"] = dec("180")

	owed1, err := ledger.DebtAmount(ctx, "acct-1", "uatom")
	require.NoError(t, err)
	owed2, err := ledger.DebtAmount(ctx, "acct-2", "uatom")
	require.NoError(t, err)
	assert.True(t, owed1.Equal(dec("120")), "got %s", owed1)
	assert.True(t, owed2.Equal(dec("60")), "got %s", owed2)
}

func TestLedgerShareConservation(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pool := newFakePool()
	ledger := NewLedger(st, pool)

	amounts := []int64{100, 37, 891, 4, 55}
	for i, amt := range amounts {
		account := string(rune('a' + i))
		coin := NewCoinFromInt("uosmo", amt)
		_, err := ledger.Borrow(ctx, account, coin)
		require.NoError(t, err)
		require.NoError(t, pool.Borrow(ctx, coin))
		_, err = ledger.Lend(ctx, account, coin)
		require.NoError(t, err)
		require.NoError(t, pool.Lend(ctx, coin))
	}
	_, err := ledger.Repay(ctx, "a", NewCoinFromInt("uosmo", 41))
	require.NoError(t, err)
	_, err = ledger.Reclaim(ctx, "c", NewCoinFromInt("uosmo", 500))
	require.NoError(t, err)

	sumDebt, sumLend := decimal.Zero, decimal.Zero
	for i := range amounts {
		account := string(rune('a' + i))
		ds, err := st.GetDebtShares(ctx, account, "uosmo")
		require.NoError(t, err)
		sumDebt = sumDebt.Add(ds)
		ls, err := st.GetLendShares(ctx, account, "uosmo")
		require.NoError(t, err)
		sumLend = sumLend.Add(ls)
	}
	totalDebt, err := st.TotalDebtShares(ctx, "uosmo")
	require.NoError(t, err)
	totalLend, err := st.TotalLendShares(ctx, "uosmo")
	require.NoError(t, err)
	assert.True(t, sumDebt.Equal(totalDebt), "debt shares: accounts sum %s, total %s", sumDebt, totalDebt)
	assert.True(t, sumLend.Equal(totalLend), "lend shares: accounts sum %s, total %s", sumLend, totalLend)
}

func TestLedgerRoundsAgainstAccount(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pool := newFakePool()
	ledger := NewLedger(st, pool)

	// seed awkward totals so conversions do not divide evenly
	_, err := ledger.Borrow(ctx, "seed", NewCoinFromInt("uatom", 7))
	require.NoError(t, err)
	require.NoError(t, pool.Borrow(ctx, NewCoinFromInt("uatom", 7)))
	pool.debtUnderlying["uatom"] = dec("10")

	borrowed := NewCoinFromInt("uatom", 3)
	_, err = ledger.Borrow(ctx, "acct-1", borrowed)
	require.NoError(t, err)
	require.NoError(t, pool.Borrow(ctx, borrowed))

	owed, err := ledger.DebtAmount(ctx, "acct-1", "uatom")
	require.NoError(t, err)
	assert.True(t, owed.GreaterThanOrEqual(borrowed.Amount),
		"converting freshly minted debt shares back must not owe less than borrowed: owed %s", owed)

	_, err = ledger.Lend(ctx, "seed", NewCoinFromInt("uosmo", 7))
	require.NoError(t, err)
	require.NoError(t, pool.Lend(ctx, NewCoinFromInt("uosmo", 7)))
	pool.lentUnderlying["uosmo"] = dec("10")

	lent := NewCoinFromInt("uosmo", 3)
	_, err = ledger.Lend(ctx, "acct-1", lent)
	require.NoError(t, err)
	require.NoError(t, pool.Lend(ctx, lent))

	claim, err := ledger.LentAmount(ctx, "acct-1", "uosmo")
	require.NoError(t, err)
	assert.True(t, claim.LessThanOrEqual(lent.Amount),
		"converting freshly minted lend shares back must not claim more than lent: claim %s", claim)
}

func TestLedgerRepayCapsAtOutstanding(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pool := newFakePool()
	ledger := NewLedger(st, pool)

	_, err := ledger.Borrow(ctx, "acct-1", NewCoinFromInt("uatom", 100))
	require.NoError(t, err)
	require.NoError(t, pool.Borrow(ctx, NewCoinFromInt("uatom", 100)))

	repaid, err := ledger.Repay(ctx, "acct-1", NewCoinFromInt("uatom", 250))
	require.NoError(t, err)
	assert.True(t, repaid.Equal(dec("100")), "repay caps at owed, got %s", repaid)

	shares, err := st.GetDebtShares(ctx, "acct-1", "uatom")
	require.NoError(t, err)
	assert.True(t, shares.IsZero(), "full repayment deletes the entry")

	_, err = ledger.Repay(ctx, "acct-1", NewCoinFromInt("uatom", 1))
	assert.ErrorIs(t, err, ErrNoDebt)
}

func TestLedgerReclaimErrors(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newFakeState(), newFakePool())

	_, err := ledger.Reclaim(ctx, "acct-1", NewCoinFromInt("uosmo", 10))
	assert.ErrorIs(t, err, ErrNoneLent)

	_, err = ledger.Borrow(ctx, "acct-1", NewCoin("uosmo", decimal.Zero))
	assert.ErrorIs(t, err, ErrNoAmount)
}
