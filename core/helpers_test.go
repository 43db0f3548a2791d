package core

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// fakeState is a map-backed State for package tests.
type fakeState struct {
	deposits    map[string]decimal.Decimal
	debtShares  map[string]decimal.Decimal
	totalDebt   map[string]decimal.Decimal
	lendShares  map[string]decimal.Decimal
	totalLend   map[string]decimal.Decimal
	stakedLps   map[string]decimal.Decimal
	vaults      map[string]*VaultPosition
	kinds       map[string]AccountKind
	guardLocked bool
}

func newFakeState() *fakeState {
	return &fakeState{
		deposits:   map[string]decimal.Decimal{},
		debtShares: map[string]decimal.Decimal{},
		totalDebt:  map[string]decimal.Decimal{},
		lendShares: map[string]decimal.Decimal{},
		totalLend:  map[string]decimal.Decimal{},
		stakedLps:  map[string]decimal.Decimal{},
		vaults:     map[string]*VaultPosition{},
		kinds:      map[string]AccountKind{},
	}
}

func key(accountID, denom string) string { return accountID + "/" + denom }

func setEntry(m map[string]decimal.Decimal, k string, v decimal.Decimal) {
	if v.IsZero() {
		delete(m, k)
		return
	}
	m[k] = v
}

func listEntries(m map[string]decimal.Decimal, accountID string) []Coin {
	prefix := accountID + "/"
	var coins []Coin
	for k, v := range m {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			coins = append(coins, NewCoin(k[len(prefix):], v))
		}
	}
	sort.Slice(coins, func(i, j int) bool { return coins[i].Denom < coins[j].Denom })
	return coins
}

func (s *fakeState) GetDeposit(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return s.deposits[key(accountID, denom)], nil
}

func (s *fakeState) SetDeposit(_ context.Context, accountID, denom string, amount decimal.Decimal) error {
	setEntry(s.deposits, key(accountID, denom), amount)
	return nil
}

func (s *fakeState) ListDeposits(_ context.Context, accountID string) ([]Coin, error) {
	return listEntries(s.deposits, accountID), nil
}

func (s *fakeState) GetDebtShares(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return s.debtShares[key(accountID, denom)], nil
}

func (s *fakeState) SetDebtShares(_ context.Context, accountID, denom string, shares decimal.Decimal) error {
	setEntry(s.debtShares, key(accountID, denom), shares)
	return nil
}

func (s *fakeState) ListDebtShares(_ context.Context, accountID string) ([]Coin, error) {
	return listEntries(s.debtShares, accountID), nil
}

func (s *fakeState) TotalDebtShares(_ context.Context, denom string) (decimal.Decimal, error) {
	return s.totalDebt[denom], nil
}

func (s *fakeState) SetTotalDebtShares(_ context.Context, denom string, shares decimal.Decimal) error {
	setEntry(s.totalDebt, denom, shares)
	return nil
}

func (s *fakeState) GetLendShares(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return s.lendShares[key(accountID, denom)], nil
}

func (s *fakeState) SetLendShares(_ context.Context, accountID, denom string, shares decimal.Decimal) error {
	setEntry(s.lendShares, key(accountID, denom), shares)
	return nil
}

func (s *fakeState) ListLendShares(_ context.Context, accountID string) ([]Coin, error) {
	return listEntries(s.lendShares, accountID), nil
}

func (s *fakeState) TotalLendShares(_ context.Context, denom string) (decimal.Decimal, error) {
	return s.totalLend[denom], nil
}

func (s *fakeState) SetTotalLendShares(_ context.Context, denom string, shares decimal.Decimal) error {
	setEntry(s.totalLend, denom, shares)
	return nil
}

func (s *fakeState) GetStakedLp(_ context.Context, accountID, denom string) (decimal.Decimal, error) {
	return s.stakedLps[key(accountID, denom)], nil
}

func (s *fakeState) SetStakedLp(_ context.Context, accountID, denom string, amount decimal.Decimal) error {
	setEntry(s.stakedLps, key(accountID, denom), amount)
	return nil
}

func (s *fakeState) ListStakedLps(_ context.Context, accountID string) ([]Coin, error) {
	return listEntries(s.stakedLps, accountID), nil
}

func (s *fakeState) GetVaultPosition(_ context.Context, accountID string) (*VaultPosition, error) {
	pos, ok := s.vaults[accountID]
	if !ok {
		return nil, nil
	}
	return pos.Clone(), nil
}

func (s *fakeState) SetVaultPosition(_ context.Context, accountID string, position *VaultPosition) error {
	if position == nil || position.IsEmpty() {
		delete(s.vaults, accountID)
		return nil
	}
	s.vaults[accountID] = position.Clone()
	return nil
}

func (s *fakeState) GetAccountKind(_ context.Context, accountID string) (AccountKind, error) {
	if kind, ok := s.kinds[accountID]; ok {
		return kind, nil
	}
	return AccountKindDefault, nil
}

func (s *fakeState) SetAccountKind(_ context.Context, accountID string, kind AccountKind) error {
	s.kinds[accountID] = kind
	return nil
}

func (s *fakeState) GuardLocked(_ context.Context) (bool, error) {
	return s.guardLocked, nil
}

func (s *fakeState) SetGuardLocked(_ context.Context, locked bool) error {
	s.guardLocked = locked
	return nil
}

// fakePool reports fixed pool-wide totals.
type fakePool struct {
	debtUnderlying map[string]decimal.Decimal
	lentUnderlying map[string]decimal.Decimal

	borrows  []Coin
	repays   []Coin
	lends    []Coin
	reclaims []Coin
}

func newFakePool() *fakePool {
	return &fakePool{
		debtUnderlying: map[string]decimal.Decimal{},
		lentUnderlying: map[string]decimal.Decimal{},
	}
}

func (p *fakePool) TotalDebtUnderlying(_ context.Context, denom string) (decimal.Decimal, error) {
	return p.debtUnderlying[denom], nil
}

func (p *fakePool) TotalLentUnderlying(_ context.Context, denom string) (decimal.Decimal, error) {
	return p.lentUnderlying[denom], nil
}

func (p *fakePool) Borrow(_ context.Context, coin Coin) error {
	p.borrows = append(p.borrows, coin)
	p.debtUnderlying[coin.Denom] = p.debtUnderlying[coin.Denom].Add(coin.Amount)
	return nil
}

func (p *fakePool) Repay(_ context.Context, coin Coin) error {
	p.repays = append(p.repays, coin)
	p.debtUnderlying[coin.Denom] = p.debtUnderlying[coin.Denom].Sub(coin.Amount)
	return nil
}

func (p *fakePool) Lend(_ context.Context, coin Coin) error {
	p.lends = append(p.lends, coin)
	p.lentUnderlying[coin.Denom] = p.lentUnderlying[coin.Denom].Add(coin.Amount)
	return nil
}

func (p *fakePool) Reclaim(_ context.Context, coin Coin, _ bool) error {
	p.reclaims = append(p.reclaims, coin)
	p.lentUnderlying[coin.Denom] = p.lentUnderlying[coin.Denom].Sub(coin.Amount)
	return nil
}
