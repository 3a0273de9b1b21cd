// Package inspection implements InspectionEngine — the heart of the
// market: the bounded-recursion step function that decides, on a buyer's
// behalf, which offered information to purchase and when to spawn a child
// decision context to ask a narrower question first.
//
// The recursion is a plain step function — bound-check, load offers,
// agent call, purchase or spawn, poll for child offers, recurse — driven
// by a worker consuming inspect:{inspection_id} tasks off the queue.
package inspection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/agentbridge"
	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/trustledger"
)

// store is the slice of repository.Store the engine depends on.
type store interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	GetContext(ctx context.Context, id uuid.UUID) (*model.DecisionContext, error)
	CreateContext(ctx context.Context, c *model.DecisionContext) error
	ListOffersByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.InfoOffer, error)
	ListOffersByContext(ctx context.Context, contextID uuid.UUID) ([]*model.InfoOffer, error)
	MarkInspected(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error
	MarkPurchased(ctx context.Context, tx pgx.Tx, id uuid.UUID) error

	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetBuyerProfile(ctx context.Context, userID uuid.UUID) (*model.BuyerProfile, error)
	IncrementBuyerCounter(ctx context.Context, tx pgx.Tx, userID uuid.UUID, column string, priority model.Priority) error

	GetInspection(ctx context.Context, id uuid.UUID) (*model.Inspection, error)
	CreateInspection(ctx context.Context, tx pgx.Tx, insp *model.Inspection) error
	UpdateInspectionResult(ctx context.Context, tx pgx.Tx, insp *model.Inspection) error

	GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error)
	UpdateJobState(ctx context.Context, id uuid.UUID, state model.JobState, result []uuid.UUID, traceback string) error
}

// balanceKeeper is the slice of BalanceKeeper the engine settles against.
type balanceKeeper interface {
	Settle(ctx context.Context, userID, contextID uuid.UUID, spent, escrowed float64) error
	Refund(ctx context.Context, userID, contextID uuid.UUID, escrowed float64) error
}

// matcherIndex is the slice of MatcherIndex the engine triggers when it
// spawns a child context.
type matcherIndex interface {
	RefreshByContext(ctx context.Context, contextID uuid.UUID) error
}

// agentBridge is the slice of AgentBridge the engine's step 3 calls.
type agentBridge interface {
	Decide(ctx context.Context, req agentbridge.DecideRequest) (*agentbridge.DecideReply, error)
}

// eventDispatcher is the slice of the webhook dispatcher the engine
// notifies on completion.
type eventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload any) error
}

// Config holds the recursion bounds and the spawned-child poll thresholds.
type Config struct {
	MaxDepth   int
	MaxBreadth int

	FastPoll   time.Duration
	SlowPoll   time.Duration
	FastWindow time.Duration
	Deadline   time.Duration

	AgentModelFallback string
}

// DefaultConfig returns the stock bounds and poll thresholds.
func DefaultConfig() Config {
	return Config{
		MaxDepth:   3,
		MaxBreadth: 3,
		FastPoll:   1 * time.Second,
		SlowPoll:   3 * time.Second,
		FastWindow: 30 * time.Second,
		Deadline:   60 * time.Second,
	}
}

// Engine is InspectionEngine.
type Engine struct {
	store   store
	balance balanceKeeper
	matcher matcherIndex
	bridge  agentBridge
	ledger  trustledger.Ledger
	events  eventDispatcher
	cancels *CancelRegistry
	cfg     Config
	logger  *zap.Logger
}

// New constructs an Engine.
func New(store store, balance balanceKeeper, matcher matcherIndex, bridge agentBridge, ledger trustledger.Ledger, events eventDispatcher, cancels *CancelRegistry, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cancels == nil {
		cancels = NewCancelRegistry()
	}
	if cfg.MaxDepth == 0 && cfg.MaxBreadth == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		store:   store,
		balance: balance,
		matcher: matcher,
		bridge:  bridge,
		ledger:  ledger,
		events:  events,
		cancels: cancels,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes an inspection job end to end: it loads the inspection and its
// context, runs the recursive step function, settles escrow if the
// inspection is a root node, and records the job's terminal state. It is the
// entry point the inspect:{inspection_id} task handler calls.
func (e *Engine) Run(ctx context.Context, inspectionID uuid.UUID) ([]uuid.UUID, error) {
	insp, err := e.store.GetInspection(ctx, inspectionID)
	if err != nil {
		e.failJob(ctx, insp, err)
		return nil, err
	}

	// At-least-once delivery can hand us a job that already ran to
	// completion; replaying it must not settle escrow or bump counters a
	// second time, so a terminal job short-circuits to its persisted result.
	if job, jobErr := e.store.GetJob(ctx, insp.JobID); jobErr == nil && job != nil {
		if job.State == model.JobStateDone || job.State == model.JobStateFailed {
			return job.Result, nil
		}
	}

	runCtx, cancel := e.cancels.Register(insp.ID, ctx)
	defer e.cancels.Done(insp.ID)
	defer cancel()

	dc, err := e.store.GetContext(runCtx, insp.DecisionContextID)
	if err != nil {
		e.failJob(ctx, insp, err)
		return nil, err
	}

	purchased, stepErr := e.step(runCtx, insp, dc)
	// Cancellation and genuine step errors both still settle whatever was
	// collected; only infra errors unrelated to the recursion itself are
	// surfaced as job failures.
	if insp.IsRoot() {
		if settleErr := e.settleRoot(ctx, dc, purchased); settleErr != nil {
			e.logger.Error("settle root inspection failed", zap.Error(settleErr), zap.String("context_id", dc.ID.String()))
		}
	}

	if stepErr != nil && stepErr != context.Canceled && stepErr != context.DeadlineExceeded {
		e.failJob(ctx, insp, stepErr)
		return purchased, stepErr
	}

	if err := e.store.UpdateJobState(ctx, insp.JobID, model.JobStateDone, purchased, ""); err != nil {
		e.logger.Warn("update job state failed", zap.Error(err))
	}
	return purchased, nil
}

func (e *Engine) failJob(ctx context.Context, insp *model.Inspection, err error) {
	if insp == nil {
		return
	}
	if updateErr := e.store.UpdateJobState(ctx, insp.JobID, model.JobStateFailed, nil, err.Error()); updateErr != nil {
		e.logger.Warn("update failed job state failed", zap.Error(updateErr))
	}
}
