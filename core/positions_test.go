package core

import (
	"context"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pk := NewPositionKeeper(st, clock.NewMock())

	require.NoError(t, pk.IncreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 100)))
	require.NoError(t, pk.IncreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 50)))

	bal, err := st.GetDeposit(ctx, "acct-1", "uosmo")
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("150")))

	require.NoError(t, pk.DecreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 150)))
	bal, err = st.GetDeposit(ctx, "acct-1", "uosmo")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	err = pk.DecreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 1))
	assert.ErrorIs(t, err, ErrCoinNotAvailable)

	err = pk.DecreaseDeposit(ctx, "acct-1", NewCoinFromInt("uatom", 1))
	assert.ErrorIs(t, err, ErrCoinNotAvailable)
}

func TestDecreaseDepositInsufficient(t *testing.T) {
	ctx := context.Background()
	pk := NewPositionKeeper(newFakeState(), clock.NewMock())

	require.NoError(t, pk.IncreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 10)))
	err := pk.DecreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 11))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSingleVaultPosition(t *testing.T) {
	ctx := context.Background()
	pk := NewPositionKeeper(newFakeState(), clock.NewMock())

	require.NoError(t, pk.EnterVault(ctx, "acct-1", "vault-a", dec("100")))
	require.NoError(t, pk.EnterVault(ctx, "acct-1", "vault-a", dec("20")))

	err := pk.EnterVault(ctx, "acct-1", "vault-b", dec("5"))
	assert.ErrorIs(t, err, ErrOnlyOneVaultPosition)
}

func TestVaultLockAndUnlockFlow(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	clk := clock.NewMock()
	pk := NewPositionKeeper(st, clk)

	require.NoError(t, pk.EnterVault(ctx, "acct-1", "vault-a", dec("100")))
	require.NoError(t, pk.LockVaultTokens(ctx, "acct-1", "vault-a", dec("100")))

	release := clk.Now().Add(14 * 24 * time.Hour).Unix()
	entry := VaultUnlockingEntry{ID: 7, Amount: dec("40"), ReleaseAt: release}
	require.NoError(t, pk.AddUnlocking(ctx, "acct-1", "vault-a", entry, 10))

	pos, err := st.GetVaultPosition(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, pos.Locked.Equal(dec("60")))
	assert.Len(t, pos.Unlocking, 1)

	_, err = pk.TakeUnlocked(ctx, "acct-1", "vault-a", 7)
	assert.ErrorIs(t, err, ErrUnlockNotReady)

	clk.Add(15 * 24 * time.Hour)
	got, err := pk.TakeUnlocked(ctx, "acct-1", "vault-a", 7)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("40")))

	_, err = pk.TakeUnlocked(ctx, "acct-1", "vault-a", 7)
	assert.ErrorIs(t, err, ErrNoPositionMatch)
}

func TestAddUnlockingCapped(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	pk := NewPositionKeeper(newFakeState(), clk)

	require.NoError(t, pk.EnterVault(ctx, "acct-1", "vault-a", dec("100")))
	require.NoError(t, pk.LockVaultTokens(ctx, "acct-1", "vault-a", dec("100")))

	release := clk.Now().Add(time.Hour).Unix()
	for i := uint64(0); i < 3; i++ {
		entry := VaultUnlockingEntry{ID: i, Amount: dec("10"), ReleaseAt: release}
		require.NoError(t, pk.AddUnlocking(ctx, "acct-1", "vault-a", entry, 3))
	}
	err := pk.AddUnlocking(ctx, "acct-1", "vault-a", VaultUnlockingEntry{ID: 9, Amount: dec("10"), ReleaseAt: release}, 3)
	assert.ErrorIs(t, err, ErrMaxUnlockingPositions)
}

func TestWithdrawVaultTokens(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pk := NewPositionKeeper(st, clock.NewMock())

	require.NoError(t, pk.EnterVault(ctx, "acct-1", "vault-a", dec("100")))
	require.NoError(t, pk.LockVaultTokens(ctx, "acct-1", "vault-a", dec("70")))

	require.NoError(t, pk.WithdrawVaultTokens(ctx, "acct-1", "vault-a", dec("30"), false))
	err := pk.WithdrawVaultTokens(ctx, "acct-1", "vault-a", dec("1"), false)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	require.NoError(t, pk.WithdrawVaultTokens(ctx, "acct-1", "vault-a", dec("70"), true))

	pos, err := st.GetVaultPosition(ctx, "acct-1")
	require.NoError(t, err)
	assert.Nil(t, pos, "a fully emptied vault position is deleted")

	err = pk.WithdrawVaultTokens(ctx, "acct-1", "vault-a", dec("1"), false)
	assert.ErrorIs(t, err, ErrNoVaultPosition)
}

func TestIsEmpty(t *testing.T) {
	ctx := context.Background()
	st := newFakeState()
	pk := NewPositionKeeper(st, clock.NewMock())

	empty, err := pk.IsEmpty(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, pk.IncreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 5)))
	empty, err = pk.IsEmpty(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, empty)

	require.NoError(t, pk.DecreaseDeposit(ctx, "acct-1", NewCoinFromInt("uosmo", 5)))
	empty, err = pk.IsEmpty(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, empty)
}
