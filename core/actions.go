package core

import (
	"github.com/shopspring/decimal"
)

// UpdateCreditAccount is the sole entry point for position changes: an
// ordered batch of actions executed atomically.
type UpdateCreditAccount struct {
	AccountID string   `json:"accountId"`
	Actions   []Action `json:"actions"`
}

type Action interface {
	// Name labels the action in errors, logs and metrics.
	Name() string
	isAction()
}

type Deposit struct {
	Coin Coin `json:"coin"`
}

type Withdraw struct {
	Coin Coin `json:"coin"`
	// Recipient defaults to the account owner when empty.
	Recipient string `json:"recipient,omitempty"`
}

type Borrow struct {
	Coin Coin `json:"coin"`
}

type Repay struct {
	Coin Coin `json:"coin"`
}

type Lend struct {
	Coin Coin `json:"coin"`
}

type Reclaim struct {
	Coin Coin `json:"coin"`
}

type SwapExactIn struct {
	CoinIn   Coin            `json:"coinIn"`
	DenomOut string          `json:"denomOut"`
	Slippage decimal.Decimal `json:"slippage"`
	Route    string          `json:"route,omitempty"`
}

type EnterVault struct {
	Vault string `json:"vault"`
	Coin  Coin   `json:"coin"`
}

type RequestVaultUnlock struct {
	Vault  string          `json:"vault"`
	Amount decimal.Decimal `json:"amount"`
}

type ExitVault struct {
	Vault  string          `json:"vault"`
	Amount decimal.Decimal `json:"amount"`
}

type ExitVaultUnlocked struct {
	Vault string `json:"vault"`
	ID    uint64 `json:"id"`
}

type StakeLp struct {
	Lp Coin `json:"lp"`
}

type UnstakeLp struct {
	Lp Coin `json:"lp"`
}

type ClaimLpRewards struct {
	LpDenom string `json:"lpDenom"`
}

type ProvideLiquidity struct {
	CoinsIn  []Coin          `json:"coinsIn"`
	LpDenom  string          `json:"lpDenom"`
	Slippage decimal.Decimal `json:"slippage"`
}

type WithdrawLiquidity struct {
	Lp Coin `json:"lp"`
	// MinReceive lists the underlying coins expected back; its denoms drive
	// the balance-delta callbacks.
	MinReceive []Coin `json:"minReceive"`
}

type Liquidate struct {
	Liquidatee string           `json:"liquidatee"`
	DebtCoin   Coin             `json:"debtCoin"`
	Request    LiquidateRequest `json:"request"`
}

type RefundAllCoinBalances struct{}

func (Deposit) Name() string               { return "deposit" }
func (Withdraw) Name() string              { return "withdraw" }
func (Borrow) Name() string                { return "borrow" }
func (Repay) Name() string                 { return "repay" }
func (Lend) Name() string                  { return "lend" }
func (Reclaim) Name() string               { return "reclaim" }
func (SwapExactIn) Name() string           { return "swap_exact_in" }
func (EnterVault) Name() string            { return "enter_vault" }
func (RequestVaultUnlock) Name() string    { return "request_vault_unlock" }
func (ExitVault) Name() string             { return "exit_vault" }
func (ExitVaultUnlocked) Name() string     { return "exit_vault_unlocked" }
func (StakeLp) Name() string               { return "stake_lp" }
func (UnstakeLp) Name() string             { return "unstake_lp" }
func (ClaimLpRewards) Name() string        { return "claim_lp_rewards" }
func (ProvideLiquidity) Name() string      { return "provide_liquidity" }
func (WithdrawLiquidity) Name() string     { return "withdraw_liquidity" }
func (Liquidate) Name() string             { return "liquidate" }
func (RefundAllCoinBalances) Name() string { return "refund_all_coin_balances" }

func (Deposit) isAction()               {}
func (Withdraw) isAction()              {}
func (Borrow) isAction()                {}
func (Repay) isAction()                 {}
func (Lend) isAction()                  {}
func (Reclaim) isAction()               {}
func (SwapExactIn) isAction()           {}
func (EnterVault) isAction()            {}
func (RequestVaultUnlock) isAction()    {}
func (ExitVault) isAction()             {}
func (ExitVaultUnlocked) isAction()     {}
func (StakeLp) isAction()               {}
func (UnstakeLp) isAction()             {}
func (ClaimLpRewards) isAction()        {}
func (ProvideLiquidity) isAction()      {}
func (WithdrawLiquidity) isAction()     {}
func (Liquidate) isAction()             {}
func (RefundAllCoinBalances) isAction() {}

// LiquidateRequest selects which collateral kind the liquidator seizes. An
// unavailable request fails outright; the pipeline never switches collateral
// silently.
type LiquidateRequest interface {
	isLiquidateRequest()
}

type RequestDeposit struct {
	Denom string `json:"denom"`
}

type RequestLend struct {
	Denom string `json:"denom"`
}

type RequestVault struct {
	Vault string `json:"vault"`
}

type RequestStakedLp struct {
	Denom string `json:"denom"`
}

func (RequestDeposit) isLiquidateRequest()  {}
func (RequestLend) isLiquidateRequest()     {}
func (RequestVault) isLiquidateRequest()    {}
func (RequestStakedLp) isLiquidateRequest() {}
