package core

import "context"

// Guard is the process-wide reentrancy flag. It is locked exactly once at
// pipeline entry and released by the terminal callback; an aborted pipeline
// rolls the flag back with everything else.
type Guard struct {
	state GuardStore
}

func NewGuard(state GuardStore) *Guard {
	return &Guard{state: state}
}

func (g *Guard) TryLock(ctx context.Context) error {
	locked, err := g.state.GuardLocked(ctx)
	if err != nil {
		return err
	}
	if locked {
		return ErrReentrancyGuardActive
	}
	return g.state.SetGuardLocked(ctx, true)
}

func (g *Guard) TryUnlock(ctx context.Context) error {
	locked, err := g.state.GuardLocked(ctx)
	if err != nil {
		return err
	}
	if !locked {
		return ErrReentrancyGuardInactive
	}
	return g.state.SetGuardLocked(ctx, false)
}
