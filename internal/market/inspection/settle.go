package inspection

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/market/model"
)

// settleRoot is step 6: tree-wide settlement, run only against the root
// inspection of a context. It sums the price of every purchased offer
// (already deduplicated by appendUnique as the tree recursed), settles or
// refunds escrow accordingly, bumps the buyer's per-priority counters, and
// records the outcome to the trust ledger and event dispatcher.
func (e *Engine) settleRoot(ctx context.Context, dc *model.DecisionContext, purchased []uuid.UUID) error {
	offers, err := e.store.ListOffersByIDs(ctx, purchased)
	if err != nil {
		return err
	}
	spent := sumPrice(offers)

	if spent > 0 {
		if err := e.balance.Settle(ctx, dc.BuyerID, dc.ID, spent, dc.MaxBudget); err != nil {
			return err
		}
	} else {
		if err := e.balance.Refund(ctx, dc.BuyerID, dc.ID, dc.MaxBudget); err != nil {
			return err
		}
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := e.store.IncrementBuyerCounter(ctx, tx, dc.BuyerID, "inspected", dc.Priority); err != nil {
		return err
	}
	if spent > 0 {
		if err := e.store.IncrementBuyerCounter(ctx, tx, dc.BuyerID, "purchased", dc.Priority); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if e.ledger != nil {
		for _, o := range offers {
			if _, err := e.ledger.Append(ctx, dc.ID.String(), "purchase", "inspection-engine", map[string]any{
				"offer_id": o.ID.String(),
				"price":    o.Price,
			}); err != nil {
				e.logger.Warn("ledger append failed for settled offer", zap.Error(err))
			}
		}
	}

	if e.events != nil {
		if err := e.events.Dispatch(ctx, "inspection.completed", map[string]any{
			"context_id": dc.ID.String(),
			"purchased":  offerIDStrings(offers),
			"spent":      spent,
		}); err != nil {
			e.logger.Warn("event dispatch failed for completed inspection", zap.Error(err))
		}
	}

	return nil
}
