// Package rover implements a credit manager: cross-collateralized credit
// accounts whose positions are mutated through an atomic action pipeline and
// bounded by loan-to-value health checks.
package rover

import (
	"context"
	"os"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/openmargin/rover/core"
)

// Collaborators bundles the external contract surfaces the engine drives.
type Collaborators struct {
	Oracle     core.Oracle
	Params     core.ParamsSource
	Pool       core.LendingPool
	NFT        core.AccountNFT
	Incentives core.Incentives
	Vaults     core.Vaults
	Swapper    core.Swapper
	Zapper     core.Zapper
	Bank       core.Bank
}

func (c Collaborators) validate() error {
	if c.Oracle == nil || c.Params == nil || c.Pool == nil || c.NFT == nil ||
		c.Incentives == nil || c.Vaults == nil || c.Swapper == nil ||
		c.Zapper == nil || c.Bank == nil {
		return errors.Wrap(core.ErrInvalidConfig, "all collaborators must be set")
	}
	return nil
}

type Engine struct {
	cfg     Config
	store   core.StateStore
	collab  Collaborators
	log     core.Log
	clk     clock.Clock
	metrics *Metrics
}

type Option func(*Engine)

func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clk = clk }
}

func WithLog(log core.Log) Option {
	return func(e *Engine) { e.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(cfg Config, store core.StateStore, collab Collaborators, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.Wrap(core.ErrInvalidConfig, "state store must be set")
	}
	if err := collab.validate(); err != nil {
		return nil, err
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	e := &Engine{
		cfg:    cfg,
		store:  store,
		collab: collab,
		log:    &logger,
		clk:    clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e, nil
}

// UpdateCreditAccount runs one action batch inside a single transaction. Any
// failure rolls every write back, the reentrancy guard included.
func (e *Engine) UpdateCreditAccount(ctx context.Context, sender string, req core.UpdateCreditAccount) error {
	journal := core.NewJournal()
	err := e.store.InTransaction(ctx, func(st core.State) error {
		pipeline := core.NewPipeline(st, e.pipelineConfig(), e.pipelineDeps(), journal)
		return pipeline.Execute(ctx, sender, req)
	})
	if err != nil {
		// The transaction rolled the store back; the journal walks the
		// collaborators back.
		journal.Revert(ctx, e.log)
		e.log.Warn().
			Str("account_id", req.AccountID).
			Str("sender", sender).
			Err(err).
			Msg("pipeline aborted")
		if len(req.Actions) > 0 {
			e.metrics.pipelineFailures.WithLabelValues(req.Actions[0].Name()).Inc()
		}
		return err
	}
	if err := journal.Flush(ctx); err != nil {
		return err
	}
	for _, action := range req.Actions {
		e.metrics.actionsTotal.WithLabelValues(action.Name()).Inc()
		if _, ok := action.(core.Liquidate); ok {
			e.metrics.liquidationsTotal.Inc()
		}
	}
	return nil
}

// CreateCreditAccount mints a fresh account NFT to owner and records the
// account kind.
func (e *Engine) CreateCreditAccount(ctx context.Context, owner string, kind core.AccountKind) (string, error) {
	if !kind.Valid() {
		return "", errors.Wrapf(core.ErrInvalidParam, "account kind %q", kind)
	}
	for _, addr := range e.cfg.SystemAddresses {
		if addr == owner {
			return "", core.ErrUnauthorized
		}
	}
	accountID, err := e.collab.NFT.Mint(ctx, owner)
	if err != nil {
		return "", err
	}
	err = e.store.InTransaction(ctx, func(st core.State) error {
		return st.SetAccountKind(ctx, accountID, kind)
	})
	if err != nil {
		return "", err
	}
	e.metrics.accountsCreated.Inc()
	e.log.Info().
		Str("account_id", accountID).
		Str("owner", owner).
		Str("kind", kind.String()).
		Msg("credit account created")
	return accountID, nil
}

// BurnCreditAccount destroys an empty account. Any remaining balance, debt
// or position blocks the burn.
func (e *Engine) BurnCreditAccount(ctx context.Context, sender, accountID string) error {
	owner, err := e.collab.NFT.OwnerOf(ctx, accountID)
	if err != nil {
		return err
	}
	if owner != sender {
		return core.ErrNotTokenOwner
	}
	return e.store.InTransaction(ctx, func(st core.State) error {
		pk := core.NewPositionKeeper(st, e.clk)
		empty, err := pk.IsEmpty(ctx, accountID)
		if err != nil {
			return err
		}
		if !empty {
			return core.ErrAccountNotEmpty
		}
		if err := e.collab.NFT.Burn(ctx, accountID); err != nil {
			return err
		}
		e.metrics.accountsBurned.Inc()
		return nil
	})
}

// Callback is the self-message entry point. Only the contract's own address
// may invoke it; it exists so hosts that deliver callbacks as external
// messages can gate them.
func (e *Engine) Callback(ctx context.Context, sender string) error {
	if sender != e.cfg.ContractAddress {
		return core.ErrExternalInvocation
	}
	return nil
}

func (e *Engine) pipelineConfig() core.PipelineConfig {
	return core.PipelineConfig{
		ContractAddress:         e.cfg.ContractAddress,
		SystemAddresses:         e.cfg.SystemAddresses,
		RewardsCollectorAccount: e.cfg.RewardsCollectorAccount,
		MaxUnlockingPositions:   e.cfg.MaxUnlockingPositions,
	}
}

func (e *Engine) pipelineDeps() core.PipelineDeps {
	return core.PipelineDeps{
		Log:        e.log,
		Clock:      e.clk,
		Oracle:     e.collab.Oracle,
		Params:     e.collab.Params,
		Pool:       e.collab.Pool,
		NFT:        e.collab.NFT,
		Incentives: e.collab.Incentives,
		Vaults:     e.collab.Vaults,
		Swapper:    e.collab.Swapper,
		Zapper:     e.collab.Zapper,
		Bank:       e.collab.Bank,
		Health:     e,
	}
}
