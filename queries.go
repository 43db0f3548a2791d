package rover

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/openmargin/rover/core"
	"github.com/openmargin/rover/health"
)

const defaultPageLimit = 10

// AccountPositions is the full position snapshot of one account with debt and
// lend shares already converted to underlying amounts.
type AccountPositions struct {
	AccountID string              `json:"accountId"`
	Kind      core.AccountKind    `json:"kind"`
	Deposits  []core.Coin         `json:"deposits"`
	Debts     []core.Coin         `json:"debts"`
	Lends     []core.Coin         `json:"lends"`
	StakedLps []core.Coin         `json:"stakedLps"`
	Vault     *core.VaultPosition `json:"vault,omitempty"`
}

func (e *Engine) Positions(ctx context.Context, accountID string) (*AccountPositions, error) {
	out := &AccountPositions{AccountID: accountID}
	err := e.store.InTransaction(ctx, func(st core.State) error {
		var err error
		if out.Kind, err = st.GetAccountKind(ctx, accountID); err != nil {
			return err
		}
		if out.Deposits, err = st.ListDeposits(ctx, accountID); err != nil {
			return err
		}
		ledger := core.NewLedger(st, e.collab.Pool)
		if out.Debts, err = ledger.Debts(ctx, accountID); err != nil {
			return err
		}
		if out.Lends, err = ledger.Lents(ctx, accountID); err != nil {
			return err
		}
		if out.StakedLps, err = st.ListStakedLps(ctx, accountID); err != nil {
			return err
		}
		out.Vault, err = st.GetVaultPosition(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Health computes the account's health values under default pricing.
func (e *Engine) Health(ctx context.Context, accountID string) (*health.Values, error) {
	var vals *health.Values
	err := e.store.InTransaction(ctx, func(st core.State) error {
		comp, err := e.computer(ctx, st, accountID, core.PriceKindDefault)
		if err != nil {
			return err
		}
		vals, err = comp.Compute()
		return err
	})
	if err != nil {
		return nil, err
	}
	return vals, nil
}

func (e *Engine) MaxWithdraw(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := e.store.InTransaction(ctx, func(st core.State) error {
		comp, err := e.computer(ctx, st, accountID, core.PriceKindDefault)
		if err != nil {
			return err
		}
		amount, err = comp.MaxWithdraw(denom)
		return err
	})
	return amount, err
}

func (e *Engine) MaxBorrow(ctx context.Context, accountID, denom string, target health.BorrowTarget) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := e.store.InTransaction(ctx, func(st core.State) error {
		comp, err := e.computer(ctx, st, accountID, core.PriceKindDefault)
		if err != nil {
			return err
		}
		amount, err = comp.MaxBorrow(denom, target)
		return err
	})
	return amount, err
}

func (e *Engine) MaxSwap(ctx context.Context, accountID, denomIn, denomOut string, kind health.SwapKind, slippage decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := e.store.InTransaction(ctx, func(st core.State) error {
		comp, err := e.computer(ctx, st, accountID, core.PriceKindDefault)
		if err != nil {
			return err
		}
		amount, err = comp.MaxSwap(denomIn, denomOut, kind, slippage)
		return err
	})
	return amount, err
}

func (e *Engine) LiquidationPrice(ctx context.Context, accountID, denom string, kind health.LiquidationPriceKind) (*decimal.Decimal, error) {
	var price *decimal.Decimal
	err := e.store.InTransaction(ctx, func(st core.State) error {
		comp, err := e.computer(ctx, st, accountID, core.PriceKindLiquidation)
		if err != nil {
			return err
		}
		price, err = comp.LiquidationPrice(denom, kind)
		return err
	})
	return price, err
}

type Account struct {
	ID   string           `json:"id"`
	Kind core.AccountKind `json:"kind"`
}

// Accounts lists the credit accounts owned by owner, paginated by account id.
func (e *Engine) Accounts(ctx context.Context, owner, startAfter string, limit int) ([]Account, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	ids, err := e.collab.NFT.Tokens(ctx, owner, startAfter, limit)
	if err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(ids))
	err = e.store.InTransaction(ctx, func(st core.State) error {
		for _, id := range ids {
			kind, err := st.GetAccountKind(ctx, id)
			if err != nil {
				return err
			}
			accounts = append(accounts, Account{ID: id, Kind: kind})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// AllowedCoins pages through the whitelisted denoms.
func (e *Engine) AllowedCoins(ctx context.Context, startAfter string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	all, err := e.collab.Params.AllAssetParams(ctx)
	if err != nil {
		return nil, err
	}
	denoms := make([]string, 0, limit)
	for _, params := range all {
		if !params.Whitelisted {
			continue
		}
		if startAfter != "" && params.Denom <= startAfter {
			continue
		}
		denoms = append(denoms, params.Denom)
		if len(denoms) == limit {
			break
		}
	}
	return denoms, nil
}

// VaultConfigs pages through the registered vault configurations.
func (e *Engine) VaultConfigs(ctx context.Context, startAfter string, limit int) ([]core.VaultConfig, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	all, err := e.collab.Params.AllVaultConfigs(ctx)
	if err != nil {
		return nil, err
	}
	configs := make([]core.VaultConfig, 0, limit)
	for _, cfg := range all {
		if startAfter != "" && cfg.Vault <= startAfter {
			continue
		}
		configs = append(configs, cfg)
		if len(configs) == limit {
			break
		}
	}
	return configs, nil
}

// ConfigView is the public configuration snapshot.
type ConfigView struct {
	ContractAddress         string   `json:"contractAddress"`
	BaseDenom               string   `json:"baseDenom"`
	RewardsCollectorAccount string   `json:"rewardsCollectorAccount"`
	SystemAddresses         []string `json:"systemAddresses"`
	MaxUnlockingPositions   int      `json:"maxUnlockingPositions"`
}

func (e *Engine) Config() ConfigView {
	return ConfigView{
		ContractAddress:         e.cfg.ContractAddress,
		BaseDenom:               e.cfg.BaseDenom,
		RewardsCollectorAccount: e.cfg.RewardsCollectorAccount,
		SystemAddresses:         append([]string(nil), e.cfg.SystemAddresses...),
		MaxUnlockingPositions:   e.cfg.MaxUnlockingPositions,
	}
}
