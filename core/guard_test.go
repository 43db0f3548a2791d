package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardLockCycle(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(newFakeState())

	require.NoError(t, guard.TryLock(ctx))
	assert.ErrorIs(t, guard.TryLock(ctx), ErrReentrancyGuardActive)

	require.NoError(t, guard.TryUnlock(ctx))
	assert.ErrorIs(t, guard.TryUnlock(ctx), ErrReentrancyGuardInactive)

	require.NoError(t, guard.TryLock(ctx))
}
