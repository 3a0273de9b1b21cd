package inspection

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/infomarket/server/internal/agentbridge"
	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

// step is one recursion step: bound check, load & filter, agent
// call, then either the purchase or the spawn branch.
func (e *Engine) step(ctx context.Context, insp *model.Inspection, dc *model.DecisionContext) ([]uuid.UUID, error) {
	if ctx.Err() != nil {
		return insp.Purchased, ctx.Err()
	}

	// Step 1: bound check.
	if insp.Depth >= e.cfg.MaxDepth || insp.Breadth >= e.cfg.MaxBreadth {
		return insp.Purchased, nil
	}

	// Step 2: load & filter.
	offers, err := e.store.ListOffersByIDs(ctx, insp.InfoOfferIDs)
	if err != nil {
		return insp.Purchased, err
	}
	if len(offers) == 0 {
		return insp.Purchased, nil
	}

	// The agent sees private payloads from here on: the offers count as
	// inspected whether or not anything ends up purchased.
	if err := e.markInspected(ctx, offerIDs(offers)); err != nil {
		return insp.Purchased, err
	}

	known, err := e.store.ListOffersByIDs(ctx, insp.KnownOffers)
	if err != nil {
		return insp.Purchased, err
	}
	budgetRemaining := dc.MaxBudget - sumPrice(known)

	// Step 3: agent call.
	reply, err := e.decide(ctx, dc, offers, known, budgetRemaining)
	if err != nil {
		var agentErr *model.ErrAgent
		if errors.As(err, &agentErr) {
			// Exhausted retries: treat this iteration as a no-op return.
			return insp.Purchased, nil
		}
		return insp.Purchased, err
	}

	if len(reply.ChosenOfferIDs) > 0 {
		return e.purchase(ctx, insp, dc, reply.ChosenOfferIDs)
	}
	return e.spawn(ctx, insp, dc, reply)
}

// decide renders the prompt inputs and issues the agent call.
func (e *Engine) decide(ctx context.Context, dc *model.DecisionContext, offers, known []*model.InfoOffer, budgetRemaining float64) (*agentbridge.DecideReply, error) {
	buyer, err := e.store.GetBuyerProfile(ctx, dc.BuyerID)
	if err != nil {
		return nil, err
	}
	user, err := e.store.GetUser(ctx, dc.BuyerID)
	if err != nil {
		return nil, err
	}

	req := agentbridge.DecideRequest{
		Model:           firstNonEmpty(buyer.DefaultAgentModel, e.cfg.AgentModelFallback),
		APIKey:          user.APIKeys["anthropic"],
		SystemPrompt:    decideSystemPrompt,
		ContextJSON:     renderContext(dc),
		KnownInfoJSON:   renderOffers(known),
		OffersJSON:      renderOffers(offers),
		BudgetUsed:      dc.MaxBudget - budgetRemaining,
		BudgetRemaining: budgetRemaining,
		OfferPrices:     offerPriceMap(offers),
	}
	return e.bridge.Decide(ctx, req)
}

// purchase is step 4: the terminal purchase branch. Settlement and the
// purchased[priority] counter are applied once, centrally, in settleRoot —
// this only marks offers purchased and records the tree-local result.
func (e *Engine) purchase(ctx context.Context, insp *model.Inspection, dc *model.DecisionContext, chosen []string) ([]uuid.UUID, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return insp.Purchased, err
	}
	defer tx.Rollback(ctx)

	for _, idStr := range chosen {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		if err := e.store.MarkPurchased(ctx, tx, id); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Already purchased by a racing branch; not fatal.
				continue
			}
			return insp.Purchased, err
		}
		insp.Purchased = appendUnique(insp.Purchased, id)
	}

	if err := e.store.UpdateInspectionResult(ctx, tx, insp); err != nil {
		return insp.Purchased, err
	}
	if err := tx.Commit(ctx); err != nil {
		return insp.Purchased, err
	}
	return insp.Purchased, nil
}

func (e *Engine) markInspected(ctx context.Context, ids []uuid.UUID) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := e.store.MarkInspected(ctx, tx, ids); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func sumPrice(offers []*model.InfoOffer) float64 {
	var total float64
	for _, o := range offers {
		total += o.Price
	}
	return total
}

func offerPriceMap(offers []*model.InfoOffer) map[string]float64 {
	out := make(map[string]float64, len(offers))
	for _, o := range offers {
		out[o.ID.String()] = o.Price
	}
	return out
}

func offerIDStrings(offers []*model.InfoOffer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.ID.String()
	}
	return out
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
