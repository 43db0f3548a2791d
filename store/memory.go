// Package store provides the two StateStore backends: an in-memory store for
// tests and simulations and a sqlite-backed one for durable deployments.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/openmargin/rover/core"
)

// memData holds the raw tables. Its methods implement core.State without
// locking; Memory adds the mutex and the copy-on-write transaction.
type memData struct {
	deposits    map[string]map[string]decimal.Decimal
	debtShares  map[string]map[string]decimal.Decimal
	totalDebt   map[string]decimal.Decimal
	lendShares  map[string]map[string]decimal.Decimal
	totalLend   map[string]decimal.Decimal
	stakedLps   map[string]map[string]decimal.Decimal
	vaults      map[string]*core.VaultPosition
	kinds       map[string]core.AccountKind
	guardLocked bool
}

func newMemData() *memData {
	return &memData{
		deposits:   map[string]map[string]decimal.Decimal{},
		debtShares: map[string]map[string]decimal.Decimal{},
		totalDebt:  map[string]decimal.Decimal{},
		lendShares: map[string]map[string]decimal.Decimal{},
		totalLend:  map[string]decimal.Decimal{},
		stakedLps:  map[string]map[string]decimal.Decimal{},
		vaults:     map[string]*core.VaultPosition{},
		kinds:      map[string]core.AccountKind{},
	}
}

func (d *memData) clone() *memData {
	cp := newMemData()
	for acct, byDenom := range d.deposits {
		cp.deposits[acct] = cloneDenomMap(byDenom)
	}
	for acct, byDenom := range d.debtShares {
		cp.debtShares[acct] = cloneDenomMap(byDenom)
	}
	for denom, v := range d.totalDebt {
		cp.totalDebt[denom] = v
	}
	for acct, byDenom := range d.lendShares {
		cp.lendShares[acct] = cloneDenomMap(byDenom)
	}
	for denom, v := range d.totalLend {
		cp.totalLend[denom] = v
	}
	for acct, byDenom := range d.stakedLps {
		cp.stakedLps[acct] = cloneDenomMap(byDenom)
	}
	for acct, pos := range d.vaults {
		cp.vaults[acct] = pos.Clone()
	}
	for acct, kind := range d.kinds {
		cp.kinds[acct] = kind
	}
	cp.guardLocked = d.guardLocked
	return cp
}

func cloneDenomMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	cp := make(map[string]decimal.Decimal, len(m))
	for denom, v := range m {
		cp[denom] = v
	}
	return cp
}

func getAmount(table map[string]map[string]decimal.Decimal, accountID, denom string) decimal.Decimal {
	if byDenom, ok := table[accountID]; ok {
		return byDenom[denom]
	}
	return decimal.Zero
}

func setAmount(table map[string]map[string]decimal.Decimal, accountID, denom string, amount decimal.Decimal) {
	byDenom, ok := table[accountID]
	if amount.IsZero() {
		if ok {
			delete(byDenom, denom)
			if len(byDenom) == 0 {
				delete(table, accountID)
			}
		}
		return
	}
	if !ok {
		byDenom = map[string]decimal.Decimal{}
		table[accountID] = byDenom
	}
	byDenom[denom] = amount
}

func listCoins(table map[string]map[string]decimal.Decimal, accountID string) []core.Coin {
	byDenom := table[accountID]
	coins := make([]core.Coin, 0, len(byDenom))
	for denom, amount := range byDenom {
		coins = append(coins, core.NewCoin(denom, amount))
	}
	sort.Slice(coins, func(i, j int) bool { return coins[i].Denom < coins[j].Denom })
	return coins
}

func (d *memData) GetDeposit(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return getAmount(d.deposits, accountID, denom), nil
}

func (d *memData) SetDeposit(_ context.Context, accountID, denom string, amount decimal.Decimal) error {
	setAmount(d.deposits, accountID, denom, amount)
	return nil
}

func (d *memData) ListDeposits(_ context.Context, accountID string) ([]core.Coin, error) {
	return listCoins(d.deposits, accountID), nil
}

func (d *memData) GetDebtShares(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return getAmount(d.debtShares, accountID, denom), nil
}

func (d *memData) SetDebtShares(_ context.Context, accountID, denom string, shares decimal.Decimal) error {
	setAmount(d.debtShares, accountID, denom, shares)
	return nil
}

func (d *memData) ListDebtShares(_ context.Context, accountID string) ([]core.Coin, error) {
	return listCoins(d.debtShares, accountID), nil
}

func (d *memData) TotalDebtShares(_ context.Context, denom string) (decimal.Decimal, error) {
	return d.totalDebt[denom], nil
}

func (d *memData) SetTotalDebtShares(_ context.Context, denom string, shares decimal.Decimal) error {
	if shares.IsZero() {
		delete(d.totalDebt, denom)
		return nil
	}
	d.totalDebt[denom] = shares
	return nil
}

func (d *memData) GetLendShares(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return getAmount(d.lendShares, accountID, denom), nil
}

func (d *memData) SetLendShares(_ context.Context, accountID, denom string, shares decimal.Decimal) error {
	setAmount(d.lendShares, accountID, denom, shares)
	return nil
}

func (d *memData) ListLendShares(_ context.Context, accountID string) ([]core.Coin, error) {
	return listCoins(d.lendShares, accountID), nil
}

func (d *memData) TotalLendShares(_ context.Context, denom string) (decimal.Decimal, error) {
	return d.totalLend[denom], nil
}

func (d *memData) SetTotalLendShares(_ context.Context, denom string, shares decimal.Decimal) error {
	if shares.IsZero() {
		delete(d.totalLend, denom)
		return nil
	}
	d.totalLend[denom] = shares
	return nil
}

func (d *memData) GetStakedLp(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return getAmount(d.stakedLps, accountID, denom), nil
}

func (d *memData) SetStakedLp(_ context.Context, accountID, denom string, amount decimal.Decimal) error {
	setAmount(d.stakedLps, accountID, denom, amount)
	return nil
}

func (d *memData) ListStakedLps(_ context.Context, accountID string) ([]core.Coin, error) {
	return listCoins(d.stakedLps, accountID), nil
}

func (d *memData) GetVaultPosition(_ context.Context, accountID string) (*core.VaultPosition, error) {
	pos, ok := d.vaults[accountID]
	if !ok {
		return nil, nil
	}
	return pos.Clone(), nil
}

func (d *memData) SetVaultPosition(_ context.Context, accountID string, position *core.VaultPosition) error {
	if position == nil || position.IsEmpty() {
		delete(d.vaults, accountID)
		return nil
	}
	d.vaults[accountID] = position.Clone()
	return nil
}

func (d *memData) GetAccountKind(_ context.Context, accountID string) (core.AccountKind, error) {
	if kind, ok := d.kinds[accountID]; ok {
		return kind, nil
	}
	return core.AccountKindDefault, nil
}

func (d *memData) SetAccountKind(_ context.Context, accountID string, kind core.AccountKind) error {
	d.kinds[accountID] = kind
	return nil
}

func (d *memData) GuardLocked(_ context.Context) (bool, error) {
	return d.guardLocked, nil
}

func (d *memData) SetGuardLocked(_ context.Context, locked bool) error {
	d.guardLocked = locked
	return nil
}

// Memory is the in-process StateStore. Transactions run against a deep copy
// that replaces the live tables only on success, so a failed pipeline leaves
// no trace, guard state included.
type Memory struct {
	mu   sync.Mutex
	data *memData
}

func NewMemory() *Memory {
	return &Memory{data: newMemData()}
}

func (m *Memory) InTransaction(ctx context.Context, fn func(core.State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	shadow := m.data.clone()
	if err := fn(shadow); err != nil {
		return err
	}
	m.data = shadow
	return nil
}

func (m *Memory) GetDeposit(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.GetDeposit(ctx, accountID, denom)
}

func (m *Memory) SetDeposit(ctx context.Context, accountID, denom string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetDeposit(ctx, accountID, denom, amount)
}

func (m *Memory) ListDeposits(ctx context.Context, accountID string) ([]core.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.ListDeposits(ctx, accountID)
}

func (m *Memory) GetDebtShares(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.GetDebtShares(ctx, accountID, denom)
}

func (m *Memory) SetDebtShares(ctx context.Context, accountID, denom string, shares decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetDebtShares(ctx, accountID, denom, shares)
}

func (m *Memory) ListDebtShares(ctx context.Context, accountID string) ([]core.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.ListDebtShares(ctx, accountID)
}

func (m *Memory) TotalDebtShares(ctx context.Context, denom string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.TotalDebtShares(ctx, denom)
}

func (m *Memory) SetTotalDebtShares(ctx context.Context, denom string, shares decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetTotalDebtShares(ctx, denom, shares)
}

func (m *Memory) GetLendShares(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.GetLendShares(ctx, accountID, denom)
}

func (m *Memory) SetLendShares(ctx context.Context, accountID, denom string, shares decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetLendShares(ctx, accountID, denom, shares)
}

func (m *Memory) ListLendShares(ctx context.Context, accountID string) ([]core.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.ListLendShares(ctx, accountID)
}

func (m *Memory) TotalLendShares(ctx context.Context, denom string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.TotalLendShares(ctx, denom)
}

func (m *Memory) SetTotalLendShares(ctx context.Context, denom string, shares decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetTotalLendShares(ctx, denom, shares)
}

func (m *Memory) GetStakedLp(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.GetStakedLp(ctx, accountID, denom)
}

func (m *Memory) SetStakedLp(ctx context.Context, accountID, denom string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetStakedLp(ctx, accountID, denom, amount)
}

func (m *Memory) ListStakedLps(ctx context.Context, accountID string) ([]core.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.ListStakedLps(ctx, accountID)
}

func (m *Memory) GetVaultPosition(ctx context.Context, accountID string) (*core.VaultPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.GetVaultPosition(ctx, accountID)
}

func (m *Memory) SetVaultPosition(ctx context.Context, accountID string, position *core.VaultPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetVaultPosition(ctx, accountID, position)
}

func (m *Memory) GetAccountKind(ctx context.Context, accountID string) (core.AccountKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.GetAccountKind(ctx, accountID)
}

func (m *Memory) SetAccountKind(ctx context.Context, accountID string, kind core.AccountKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetAccountKind(ctx, accountID, kind)
}

func (m *Memory) GuardLocked(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.GuardLocked(ctx)
}

func (m *Memory) SetGuardLocked(ctx context.Context, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetGuardLocked(ctx, locked)
}
