// Package botseller implements BotSellerDispatcher: synthesizing an
// InfoOffer for each bot-seller subscription that matched a root context.
package botseller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/agentbridge"
	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

// store is the slice of repository.Store the dispatcher depends on.
type store interface {
	GetContext(ctx context.Context, id uuid.UUID) (*model.DecisionContext, error)
	ListSubscriptionsForContext(ctx context.Context, maxBudget float64, priority model.Priority) ([]*model.Subscription, error)
	GetBotSellerProfile(ctx context.Context, id uuid.UUID) (*model.BotSellerProfile, error)
	CreateOffer(ctx context.Context, o *model.InfoOffer) error
}

// agentBridge is the slice of AgentBridge the dispatcher depends on for
// LLM-backed bot sellers.
type agentBridge interface {
	GenerateBotOffer(ctx context.Context, req agentbridge.BotOfferRequest) (agentbridge.BotOfferReply, error)
}

// healthMonitor is the slice of BotHealthMonitor the dispatcher
// consults before every LLM-backed dispatch and records outcomes to.
type healthMonitor interface {
	CircuitOpen(botID uuid.UUID) bool
	RecordOutcome(botID uuid.UUID, success bool)
}

// MetricsRecorder is an optional callback recording whether a dispatch
// attempt produced an offer.
type MetricsRecorder func(offered bool)

// Dispatcher is BotSellerDispatcher.
type Dispatcher struct {
	store     store
	bridge    agentBridge
	health    healthMonitor
	onMetrics MetricsRecorder
	logger    *zap.Logger
}

// SetMetricsRecorder configures the metrics callback.
func (d *Dispatcher) SetMetricsRecorder(fn MetricsRecorder) {
	d.onMetrics = fn
}

// New constructs a Dispatcher. health may be nil to disable circuit breaking
// (used in tests that exercise synthesis in isolation).
func New(store store, bridge agentBridge, health healthMonitor, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, bridge: bridge, health: health, logger: logger}
}

// DispatchContext synthesizes and stores an offer for every bot-seller
// subscription matching contextID. Failures for one bot never abort the
// others; each bot's own error is logged and swallowed rather than
// propagated.
func (d *Dispatcher) DispatchContext(ctx context.Context, contextID uuid.UUID) error {
	dc, err := d.store.GetContext(ctx, contextID)
	if err != nil {
		return err
	}

	subs, err := d.store.ListSubscriptionsForContext(ctx, dc.MaxBudget, dc.Priority)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		if sub.OwnerKind != model.SellerKindBot {
			continue
		}
		if !sub.PassesBudgetPrefilter(dc) {
			continue
		}
		if err := d.dispatchOne(ctx, sub.OwnerID, dc); err != nil {
			d.logger.Warn("bot seller dispatch failed, skipping",
				zap.String("bot_id", sub.OwnerID.String()), zap.Error(err))
		}
	}
	return nil
}

// dispatchOne synthesizes and persists an offer for a single bot seller, or
// returns without error (and without an offer) when synthesis fails — never
// a synthetic error offer.
func (d *Dispatcher) dispatchOne(ctx context.Context, botID uuid.UUID, dc *model.DecisionContext) error {
	bot, err := d.store.GetBotSellerProfile(ctx, botID)
	if err != nil {
		return err
	}

	var offer *model.InfoOffer
	switch {
	case bot.IsFixedText():
		offer = &model.InfoOffer{
			SellerKind:  model.SellerKindBot,
			SellerID:    bot.ID,
			ContextID:   dc.ID,
			PrivateInfo: bot.Info,
			PublicInfo:  fmt.Sprintf("Fixed information from bot seller %s", bot.Name),
			Price:       clampPrice(*bot.Price, dc.MaxBudget),
		}
	case bot.IsLLMBacked():
		if d.health != nil && d.health.CircuitOpen(bot.ID) {
			d.logger.Debug("bot seller circuit open, skipping dispatch", zap.String("bot_id", bot.ID.String()))
			d.recordDispatch(false)
			return nil
		}
		reply, err := d.bridge.GenerateBotOffer(ctx, agentbridge.BotOfferRequest{
			Model:        bot.LLMModel,
			Prompt:       bot.LLMPrompt,
			ContextQuery: dc.Query,
			ContextPages: dc.ContextPages,
			Priority:     dc.Priority,
			MaxBudget:    dc.MaxBudget,
		})
		if d.health != nil {
			d.health.RecordOutcome(bot.ID, err == nil)
		}
		if err != nil {
			// Silent failure: no synthetic error offer.
			d.recordDispatch(false)
			return nil
		}
		offer = &model.InfoOffer{
			SellerKind:  model.SellerKindBot,
			SellerID:    bot.ID,
			ContextID:   dc.ID,
			PrivateInfo: reply.PrivateInfo,
			PublicInfo:  reply.PublicInfo,
			Price:       clampPrice(reply.Price, dc.MaxBudget),
		}
	default:
		return nil
	}

	if err := d.store.CreateOffer(ctx, offer); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A redelivered dispatch task already produced this bot's offer.
			return nil
		}
		return err
	}
	d.recordDispatch(true)
	return nil
}

func (d *Dispatcher) recordDispatch(offered bool) {
	if d.onMetrics != nil {
		d.onMetrics(offered)
	}
}

func clampPrice(price, maxBudget float64) float64 {
	if price > maxBudget {
		return maxBudget
	}
	return price
}
