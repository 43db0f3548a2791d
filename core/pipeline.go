package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type PipelineConfig struct {
	// ContractAddress is the credit manager's own address; callbacks assert
	// it as the sender.
	ContractAddress string
	// SystemAddresses are the configured collaborators. None of them may own
	// a credit account.
	SystemAddresses []string
	// RewardsCollectorAccount receives protocol liquidation fees.
	RewardsCollectorAccount string
	MaxUnlockingPositions   int
}

type PipelineDeps struct {
	Log        Log
	Clock      clock.Clock
	Oracle     Oracle
	Params     ParamsSource
	Pool       LendingPool
	NFT        AccountNFT
	Incentives Incentives
	Vaults     Vaults
	Swapper    Swapper
	Zapper     Zapper
	Bank       Bank
	Health     HealthAdapter
}

// Pipeline interprets one UpdateCreditAccount batch. Actions run in submitted
// order; work that depends on the outcome of an external call is deferred to
// a FIFO callback queue drained after the actions, ending with the solvency
// check and the guard release.
type Pipeline struct {
	cfg     PipelineConfig
	deps    PipelineDeps
	state   State
	ledger  *Ledger
	pk      *PositionKeeper
	guard   *Guard
	journal *Journal

	queue []callback
	owner string
}

type callback struct {
	name string
	fn   func(ctx context.Context) error
}

func NewPipeline(state State, cfg PipelineConfig, deps PipelineDeps, journal *Journal) *Pipeline {
	if journal == nil {
		journal = NewJournal()
	}
	return &Pipeline{
		cfg:     cfg,
		deps:    deps,
		state:   state,
		ledger:  NewLedger(state, deps.Pool),
		pk:      NewPositionKeeper(state, deps.Clock),
		guard:   NewGuard(state),
		journal: journal,
	}
}

func (p *Pipeline) enqueue(name string, fn func(ctx context.Context) error) {
	p.queue = append(p.queue, callback{name: name, fn: fn})
}

func (p *Pipeline) isSystemAddress(addr string) bool {
	for _, a := range p.cfg.SystemAddresses {
		if a == addr {
			return true
		}
	}
	return addr == p.cfg.ContractAddress
}

// Execute validates ownership, locks the guard, executes the batch and
// drains the callback queue. Any error aborts the whole invocation; the
// caller's transaction rolls all writes back, guard included.
func (p *Pipeline) Execute(ctx context.Context, sender string, req UpdateCreditAccount) error {
	if req.AccountID == "" {
		return errors.Wrap(ErrInvalidConfig, "account id must not be empty")
	}
	if len(req.Actions) == 0 {
		return errors.Wrap(ErrNoAmount, "no actions submitted")
	}

	owner, err := p.deps.NFT.OwnerOf(ctx, req.AccountID)
	if err != nil {
		return err
	}
	if owner != sender {
		return ErrNotTokenOwner
	}
	// A collaborator owning a credit account could re-enter the pipeline
	// through its own query surface.
	if p.isSystemAddress(sender) {
		return ErrUnauthorized
	}
	p.owner = owner

	if err := p.guard.TryLock(ctx); err != nil {
		return err
	}

	for _, action := range req.Actions {
		if err := p.dispatch(ctx, req.AccountID, action); err != nil {
			return errors.Wrapf(err, "action %s", action.Name())
		}
	}

	p.enqueue("health_check", func(ctx context.Context) error {
		return p.deps.Health.AssertMaxLtv(ctx, p.state, req.AccountID)
	})
	p.enqueue("guard_release", func(ctx context.Context) error {
		return p.guard.TryUnlock(ctx)
	})

	for len(p.queue) > 0 {
		cb := p.queue[0]
		p.queue = p.queue[1:]
		p.deps.Log.Debug().Str("callback", cb.name).Msg("dispatching callback")
		if err := cb.fn(ctx); err != nil {
			return errors.Wrapf(err, "callback %s", cb.name)
		}
	}
	return nil
}

func (p *Pipeline) dispatch(ctx context.Context, accountID string, action Action) error {
	switch act := action.(type) {
	case Deposit:
		return p.deposit(ctx, accountID, act)
	case Withdraw:
		return p.withdraw(ctx, accountID, act.Coin, act.Recipient)
	case Borrow:
		return p.borrow(ctx, accountID, act)
	case Repay:
		return p.repay(ctx, accountID, act.Coin)
	case Lend:
		return p.lend(ctx, accountID, act)
	case Reclaim:
		return p.reclaim(ctx, accountID, act)
	case SwapExactIn:
		return p.swapExactIn(ctx, accountID, act)
	case EnterVault:
		return p.enterVault(ctx, accountID, act)
	case RequestVaultUnlock:
		return p.requestVaultUnlock(ctx, accountID, act)
	case ExitVault:
		return p.exitVault(ctx, accountID, act)
	case ExitVaultUnlocked:
		return p.exitVaultUnlocked(ctx, accountID, act)
	case StakeLp:
		return p.stakeLp(ctx, accountID, act)
	case UnstakeLp:
		return p.unstakeLp(ctx, accountID, act)
	case ClaimLpRewards:
		return p.claimLpRewards(ctx, accountID, act)
	case ProvideLiquidity:
		return p.provideLiquidity(ctx, accountID, act)
	case WithdrawLiquidity:
		return p.withdrawLiquidity(ctx, accountID, act)
	case Liquidate:
		return p.liquidate(ctx, accountID, act)
	case RefundAllCoinBalances:
		return p.refundAll(ctx, accountID)
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown action %T", action)
	}
}

func (p *Pipeline) assetParams(ctx context.Context, denom string) (*AssetParams, error) {
	params, err := p.deps.Params.AssetParams(ctx, denom)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, NewNotWhitelistedError(denom)
	}
	return params, nil
}

func (p *Pipeline) deposit(ctx context.Context, accountID string, act Deposit) error {
	if err := act.Coin.Validate(); err != nil {
		return err
	}
	params, err := p.assetParams(ctx, act.Coin.Denom)
	if err != nil {
		return err
	}
	if !params.DepositEnabled {
		return errors.Wrapf(ErrUnauthorized, "deposits of %s are disabled", act.Coin.Denom)
	}
	cap, total, err := p.deps.Params.TotalDeposit(ctx, act.Coin.Denom)
	if err != nil {
		return err
	}
	if cap.IsPositive() {
		next, err := CheckedAdd(total, act.Coin.Amount)
		if err != nil {
			return err
		}
		if next.GreaterThan(cap) {
			return errors.Wrapf(ErrDepositCapExceeded, "%s cap %s", act.Coin.Denom, cap)
		}
	}
	return p.pk.IncreaseDeposit(ctx, accountID, act.Coin)
}

func (p *Pipeline) withdraw(ctx context.Context, accountID string, coin Coin, recipient string) error {
	if err := coin.Validate(); err != nil {
		return err
	}
	if err := p.pk.DecreaseDeposit(ctx, accountID, coin); err != nil {
		return err
	}
	if recipient == "" {
		recipient = p.owner
	}
	// Sends have no inverse, so they only leave the contract once the
	// transaction committed.
	p.journal.Stage("bank_send", func(ctx context.Context) error {
		return p.deps.Bank.Send(ctx, recipient, coin)
	})
	return nil
}

func (p *Pipeline) borrow(ctx context.Context, accountID string, act Borrow) error {
	if err := act.Coin.Validate(); err != nil {
		return err
	}
	params, err := p.assetParams(ctx, act.Coin.Denom)
	if err != nil {
		return err
	}
	if !params.BorrowEnabled {
		return errors.Wrapf(ErrUnauthorized, "borrowing %s is disabled", act.Coin.Denom)
	}
	if _, err := p.ledger.Borrow(ctx, accountID, act.Coin); err != nil {
		return err
	}
	if err := p.deps.Pool.Borrow(ctx, act.Coin); err != nil {
		return err
	}
	p.journal.Compensate("pool_borrow", func(ctx context.Context) error {
		return p.deps.Pool.Repay(ctx, act.Coin)
	})
	return p.pk.IncreaseDeposit(ctx, accountID, act.Coin)
}

func (p *Pipeline) repay(ctx context.Context, accountID string, coin Coin) error {
	if err := coin.Validate(); err != nil {
		return err
	}
	// The ledger caps the repayment at the outstanding debt; the deposit is
	// only debited for what was actually repaid.
	repaid, err := p.ledger.Repay(ctx, accountID, coin)
	if err != nil {
		return err
	}
	repayCoin := NewCoin(coin.Denom, repaid)
	if err := p.pk.DecreaseDeposit(ctx, accountID, repayCoin); err != nil {
		return err
	}
	if err := p.deps.Pool.Repay(ctx, repayCoin); err != nil {
		return err
	}
	p.journal.Compensate("pool_repay", func(ctx context.Context) error {
		return p.deps.Pool.Borrow(ctx, repayCoin)
	})
	return nil
}

func (p *Pipeline) lend(ctx context.Context, accountID string, act Lend) error {
	if err := act.Coin.Validate(); err != nil {
		return err
	}
	if err := p.pk.DecreaseDeposit(ctx, accountID, act.Coin); err != nil {
		return err
	}
	if _, err := p.ledger.Lend(ctx, accountID, act.Coin); err != nil {
		return err
	}
	if err := p.deps.Pool.Lend(ctx, act.Coin); err != nil {
		return err
	}
	p.journal.Compensate("pool_lend", func(ctx context.Context) error {
		return p.deps.Pool.Reclaim(ctx, act.Coin, true)
	})
	return nil
}

func (p *Pipeline) reclaim(ctx context.Context, accountID string, act Reclaim) error {
	if err := act.Coin.Validate(); err != nil {
		return err
	}
	reclaimed, err := p.ledger.Reclaim(ctx, accountID, act.Coin)
	if err != nil {
		return err
	}
	reclaimCoin := NewCoin(act.Coin.Denom, reclaimed)
	if err := p.deps.Pool.Reclaim(ctx, reclaimCoin, false); err != nil {
		return err
	}
	p.journal.Compensate("pool_reclaim", func(ctx context.Context) error {
		return p.deps.Pool.Lend(ctx, reclaimCoin)
	})
	return p.pk.IncreaseDeposit(ctx, accountID, reclaimCoin)
}

func (p *Pipeline) swapExactIn(ctx context.Context, accountID string, act SwapExactIn) error {
	if err := act.CoinIn.Validate(); err != nil {
		return err
	}
	if err := ValidateDenom(act.DenomOut); err != nil {
		return err
	}
	if act.Slippage.IsNegative() || act.Slippage.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidParam, "slippage %s must be within [0, 1)", act.Slippage)
	}
	if err := p.pk.DecreaseDeposit(ctx, accountID, act.CoinIn); err != nil {
		return err
	}

	priceIn, err := p.deps.Oracle.Price(ctx, act.CoinIn.Denom, PriceKindDefault)
	if err != nil {
		return err
	}
	priceOut, err := p.deps.Oracle.Price(ctx, act.DenomOut, PriceKindDefault)
	if err != nil {
		return err
	}
	expected, err := MulDivFloor(act.CoinIn.Amount, priceIn, priceOut)
	if err != nil {
		return err
	}
	minReceive, err := MulDecFloor(expected, ONE.Sub(act.Slippage))
	if err != nil {
		return err
	}

	prev, err := p.deps.Bank.ContractBalance(ctx, act.DenomOut)
	if err != nil {
		return err
	}
	if err := p.deps.Swapper.SwapExactIn(ctx, act.CoinIn, act.DenomOut, minReceive, act.Route); err != nil {
		return err
	}
	p.compensateReceived("swap_exact_in", act.DenomOut, prev, func(ctx context.Context, received Coin) error {
		return p.deps.Swapper.SwapExactIn(ctx, received, act.CoinIn.Denom, decimal.Zero, act.Route)
	})
	p.enqueueCoinBalanceUpdate(accountID, act.DenomOut, prev)
	return nil
}

// compensateReceived registers the undo of an external call whose return is
// observed as a contract balance delta. The delta is measured when the
// compensation runs; the journal's reverse order keeps earlier baselines
// valid.
func (p *Pipeline) compensateReceived(name, denom string, prev decimal.Decimal, undo func(ctx context.Context, received Coin) error) {
	p.journal.Compensate(name, func(ctx context.Context) error {
		current, err := p.deps.Bank.ContractBalance(ctx, denom)
		if err != nil {
			return err
		}
		delta := current.Sub(prev)
		if !delta.IsPositive() {
			return nil
		}
		return undo(ctx, NewCoin(denom, delta))
	})
}

// enqueueCoinBalanceUpdate defers the credit of a non-deterministic external
// return: the callback compares the contract's current balance of denom with
// the previously captured one and credits the delta to the account.
func (p *Pipeline) enqueueCoinBalanceUpdate(accountID, denom string, previous decimal.Decimal) {
	p.enqueue("update_coin_balance", func(ctx context.Context) error {
		current, err := p.deps.Bank.ContractBalance(ctx, denom)
		if err != nil {
			return err
		}
		delta := current.Sub(previous)
		if !delta.IsPositive() {
			return errors.Wrapf(ErrNoAmount, "no %s received", denom)
		}
		return p.pk.IncreaseDeposit(ctx, accountID, NewCoin(denom, delta))
	})
}

func (p *Pipeline) vaultConfig(ctx context.Context, vault string) (*VaultConfig, error) {
	cfg, err := p.deps.Params.VaultConfig(ctx, vault)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.Whitelisted {
		return nil, NewNotWhitelistedError(vault)
	}
	return cfg, nil
}

func (p *Pipeline) enterVault(ctx context.Context, accountID string, act EnterVault) error {
	if err := act.Coin.Validate(); err != nil {
		return err
	}
	cfg, err := p.vaultConfig(ctx, act.Vault)
	if err != nil {
		return err
	}
	if cfg.DepositCap.IsPositive() && act.Coin.Amount.GreaterThan(cfg.DepositCap) {
		return errors.Wrapf(ErrDepositCapExceeded, "vault %s cap %s", act.Vault, cfg.DepositCap)
	}
	info, err := p.deps.Vaults.Info(ctx, act.Vault)
	if err != nil {
		return err
	}
	if info.BaseDenom != act.Coin.Denom {
		return errors.Wrapf(ErrInvalidParam, "vault %s takes %s, got %s", act.Vault, info.BaseDenom, act.Coin.Denom)
	}
	if err := p.pk.DecreaseDeposit(ctx, accountID, act.Coin); err != nil {
		return err
	}
	tokens, err := p.deps.Vaults.Deposit(ctx, act.Vault, act.Coin)
	if err != nil {
		return err
	}
	p.journal.Compensate("vault_deposit", func(ctx context.Context) error {
		return p.deps.Vaults.Withdraw(ctx, act.Vault, tokens)
	})
	if err := p.pk.EnterVault(ctx, accountID, act.Vault, tokens); err != nil {
		return err
	}
	if info.Lockup > 0 {
		return p.pk.LockVaultTokens(ctx, accountID, act.Vault, tokens)
	}
	return nil
}

func (p *Pipeline) requestVaultUnlock(ctx context.Context, accountID string, act RequestVaultUnlock) error {
	if !act.Amount.IsPositive() {
		return ErrNoAmount
	}
	info, err := p.deps.Vaults.Info(ctx, act.Vault)
	if err != nil {
		return err
	}
	if info.Lockup == 0 {
		return ErrNoLockup
	}
	unlock, err := p.deps.Vaults.RequestUnlock(ctx, act.Vault, act.Amount)
	if err != nil {
		return err
	}
	entry := VaultUnlockingEntry{
		ID:        unlock.ID,
		Amount:    act.Amount,
		ReleaseAt: unlock.ReleaseAt.Unix(),
	}
	return p.pk.AddUnlocking(ctx, accountID, act.Vault, entry, p.cfg.MaxUnlockingPositions)
}

func (p *Pipeline) exitVault(ctx context.Context, accountID string, act ExitVault) error {
	if !act.Amount.IsPositive() {
		return ErrNoAmount
	}
	info, err := p.deps.Vaults.Info(ctx, act.Vault)
	if err != nil {
		return err
	}
	if err := p.pk.WithdrawVaultTokens(ctx, accountID, act.Vault, act.Amount, false); err != nil {
		return err
	}
	prev, err := p.deps.Bank.ContractBalance(ctx, info.BaseDenom)
	if err != nil {
		return err
	}
	if err := p.deps.Vaults.Withdraw(ctx, act.Vault, act.Amount); err != nil {
		return err
	}
	p.compensateReceived("vault_withdraw", info.BaseDenom, prev, func(ctx context.Context, received Coin) error {
		_, err := p.deps.Vaults.Deposit(ctx, act.Vault, received)
		return err
	})
	p.enqueueCoinBalanceUpdate(accountID, info.BaseDenom, prev)
	return nil
}

func (p *Pipeline) exitVaultUnlocked(ctx context.Context, accountID string, act ExitVaultUnlocked) error {
	info, err := p.deps.Vaults.Info(ctx, act.Vault)
	if err != nil {
		return err
	}
	if _, err := p.pk.TakeUnlocked(ctx, accountID, act.Vault, act.ID); err != nil {
		return err
	}
	prev, err := p.deps.Bank.ContractBalance(ctx, info.BaseDenom)
	if err != nil {
		return err
	}
	if err := p.deps.Vaults.WithdrawUnlocked(ctx, act.Vault, act.ID); err != nil {
		return err
	}
	p.compensateReceived("vault_withdraw_unlocked", info.BaseDenom, prev, func(ctx context.Context, received Coin) error {
		_, err := p.deps.Vaults.Deposit(ctx, act.Vault, received)
		return err
	})
	p.enqueueCoinBalanceUpdate(accountID, info.BaseDenom, prev)
	return nil
}

func (p *Pipeline) stakeLp(ctx context.Context, accountID string, act StakeLp) error {
	if err := act.Lp.Validate(); err != nil {
		return err
	}
	if err := p.pk.DecreaseDeposit(ctx, accountID, act.Lp); err != nil {
		return err
	}
	p.journal.Stage("incentives_stake", func(ctx context.Context) error {
		return p.deps.Incentives.Stake(ctx, accountID, act.Lp)
	})
	return p.pk.IncreaseStakedLp(ctx, accountID, act.Lp)
}

func (p *Pipeline) unstakeLp(ctx context.Context, accountID string, act UnstakeLp) error {
	if err := act.Lp.Validate(); err != nil {
		return err
	}
	if err := p.creditPendingRewards(ctx, accountID, act.Lp.Denom); err != nil {
		return err
	}
	if err := p.pk.DecreaseStakedLp(ctx, accountID, act.Lp); err != nil {
		return err
	}
	p.journal.Stage("incentives_unstake", func(ctx context.Context) error {
		return p.deps.Incentives.Unstake(ctx, accountID, act.Lp)
	})
	return p.pk.IncreaseDeposit(ctx, accountID, act.Lp)
}

func (p *Pipeline) claimLpRewards(ctx context.Context, accountID string, act ClaimLpRewards) error {
	staked, err := p.state.GetStakedLp(ctx, accountID, act.LpDenom)
	if err != nil {
		return err
	}
	if staked.IsZero() {
		return ErrNoStakedLp
	}
	rewards, err := p.deps.Incentives.Claim(ctx, accountID, act.LpDenom)
	if err != nil {
		return err
	}
	for _, reward := range rewards {
		if reward.Amount.IsPositive() {
			if err := p.pk.IncreaseDeposit(ctx, accountID, reward); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) creditPendingRewards(ctx context.Context, accountID, lpDenom string) error {
	pending, err := p.deps.Incentives.PendingRewards(ctx, accountID, lpDenom)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	rewards, err := p.deps.Incentives.Claim(ctx, accountID, lpDenom)
	if err != nil {
		return err
	}
	for _, reward := range rewards {
		if reward.Amount.IsPositive() {
			if err := p.pk.IncreaseDeposit(ctx, accountID, reward); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) provideLiquidity(ctx context.Context, accountID string, act ProvideLiquidity) error {
	if len(act.CoinsIn) == 0 {
		return ErrNoAmount
	}
	if err := ValidateDenom(act.LpDenom); err != nil {
		return err
	}
	if act.Slippage.IsNegative() || act.Slippage.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidParam, "slippage %s must be within [0, 1)", act.Slippage)
	}

	valueIn := decimal.Zero
	for _, coin := range act.CoinsIn {
		if err := coin.Validate(); err != nil {
			return err
		}
		if err := p.pk.DecreaseDeposit(ctx, accountID, coin); err != nil {
			return err
		}
		price, err := p.deps.Oracle.Price(ctx, coin.Denom, PriceKindDefault)
		if err != nil {
			return err
		}
		valueIn = valueIn.Add(coin.Amount.Mul(price))
	}
	priceLp, err := p.deps.Oracle.Price(ctx, act.LpDenom, PriceKindDefault)
	if err != nil {
		return err
	}
	expected, err := DivDecFloor(valueIn, priceLp)
	if err != nil {
		return err
	}
	minReceive, err := MulDecFloor(expected, ONE.Sub(act.Slippage))
	if err != nil {
		return err
	}

	prev, err := p.deps.Bank.ContractBalance(ctx, act.LpDenom)
	if err != nil {
		return err
	}
	if err := p.deps.Zapper.ProvideLiquidity(ctx, act.CoinsIn, act.LpDenom, minReceive); err != nil {
		return err
	}
	p.compensateReceived("provide_liquidity", act.LpDenom, prev, func(ctx context.Context, received Coin) error {
		return p.deps.Zapper.WithdrawLiquidity(ctx, received, nil)
	})
	p.enqueueCoinBalanceUpdate(accountID, act.LpDenom, prev)
	return nil
}

func (p *Pipeline) withdrawLiquidity(ctx context.Context, accountID string, act WithdrawLiquidity) error {
	if err := act.Lp.Validate(); err != nil {
		return err
	}
	if len(act.MinReceive) == 0 {
		return errors.Wrap(ErrInvalidParam, "min receive must name the underlying denoms")
	}
	if err := p.pk.DecreaseDeposit(ctx, accountID, act.Lp); err != nil {
		return err
	}
	previous := make(map[string]decimal.Decimal, len(act.MinReceive))
	for _, coin := range act.MinReceive {
		if err := ValidateDenom(coin.Denom); err != nil {
			return err
		}
		prev, err := p.deps.Bank.ContractBalance(ctx, coin.Denom)
		if err != nil {
			return err
		}
		previous[coin.Denom] = prev
	}
	if err := p.deps.Zapper.WithdrawLiquidity(ctx, act.Lp, act.MinReceive); err != nil {
		return err
	}
	p.journal.Compensate("withdraw_liquidity", func(ctx context.Context) error {
		var received []Coin
		for _, coin := range act.MinReceive {
			current, err := p.deps.Bank.ContractBalance(ctx, coin.Denom)
			if err != nil {
				return err
			}
			delta := current.Sub(previous[coin.Denom])
			if delta.IsPositive() {
				received = append(received, NewCoin(coin.Denom, delta))
			}
		}
		if len(received) == 0 {
			return nil
		}
		return p.deps.Zapper.ProvideLiquidity(ctx, received, act.Lp.Denom, decimal.Zero)
	})
	for _, coin := range act.MinReceive {
		p.enqueueCoinBalanceUpdate(accountID, coin.Denom, previous[coin.Denom])
	}
	return nil
}

// refundAll enumerates the account's deposits and enqueues one withdraw
// callback per non-zero denom, sending everything back to the owner.
func (p *Pipeline) refundAll(ctx context.Context, accountID string) error {
	deposits, err := p.state.ListDeposits(ctx, accountID)
	if err != nil {
		return err
	}
	for _, coin := range deposits {
		coin := coin
		p.enqueue("withdraw_refund", func(ctx context.Context) error {
			return p.withdraw(ctx, accountID, coin, p.owner)
		})
	}
	return nil
}
