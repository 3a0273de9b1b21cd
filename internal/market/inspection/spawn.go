package inspection

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/agentbridge"
	"github.com/infomarket/server/internal/market/model"
)

// spawn is step 5: create a child decision context carved from the
// follow-up query, trigger matching and bot dispatch, wait for offers, and
// recurse into a child inspection; then create a younger-brother inspection
// over the same context with expanded knowledge and recurse into that.
// Returns the younger brother's result.
func (e *Engine) spawn(ctx context.Context, insp *model.Inspection, dc *model.DecisionContext, reply *agentbridge.DecideReply) ([]uuid.UUID, error) {
	child := &model.DecisionContext{
		Query:        derefOr(reply.FollowupQuery, ""),
		ParentID:     &dc.ID,
		ContextPages: dc.ContextPages,
		BuyerID:      dc.BuyerID,
		MaxBudget:    reply.FollowupQueryBudget,
		Priority:     model.PriorityHigh,
		ParentOffers: insp.InfoOfferIDs,
	}
	if len(reply.FollowupHumanSellerIDs) > 0 {
		child.TargetHumanSellerIDs = parseUUIDs(reply.FollowupHumanSellerIDs)
	} else {
		child.TargetHumanSellerIDs = dc.TargetHumanSellerIDs
	}
	if len(reply.FollowupBotSellerIDs) > 0 {
		child.TargetBotSellerIDs = parseUUIDs(reply.FollowupBotSellerIDs)
	} else {
		child.TargetBotSellerIDs = dc.TargetBotSellerIDs
	}

	if err := e.store.CreateContext(ctx, child); err != nil {
		return insp.Purchased, err
	}
	if e.matcher != nil {
		if err := e.matcher.RefreshByContext(ctx, child.ID); err != nil {
			e.logger.Warn("refresh by context failed for spawned child", zap.Error(err))
		}
	}

	offers, err := e.pollForOffers(ctx, child.ID)
	if err != nil {
		return insp.Purchased, err
	}

	childInsp := &model.Inspection{
		DecisionContextID: child.ID,
		BuyerID:           dc.BuyerID,
		InfoOfferIDs:      offerIDs(offers),
		Depth:             insp.Depth + 1,
		Breadth:           insp.Breadth,
		JobID:             insp.JobID,
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return insp.Purchased, err
	}
	if err := e.store.CreateInspection(ctx, tx, childInsp); err != nil {
		tx.Rollback(ctx)
		return insp.Purchased, err
	}
	insp.ChildContextID = &child.ID
	if err := e.store.UpdateInspectionResult(ctx, tx, insp); err != nil {
		tx.Rollback(ctx)
		return insp.Purchased, err
	}
	if err := tx.Commit(ctx); err != nil {
		return insp.Purchased, err
	}

	childResult, err := e.step(ctx, childInsp, child)
	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return insp.Purchased, err
	}
	for _, id := range childResult {
		insp.Purchased = appendUnique(insp.Purchased, id)
	}

	brother := &model.Inspection{
		DecisionContextID: insp.DecisionContextID,
		BuyerID:           insp.BuyerID,
		KnownOffers:       unionIDs(insp.KnownOffers, insp.Purchased),
		Purchased:         append([]uuid.UUID(nil), insp.Purchased...),
		InfoOfferIDs:      insp.InfoOfferIDs,
		Depth:             insp.Depth,
		Breadth:           insp.Breadth + 1,
		ElderBrotherID:    &insp.ID,
		JobID:             insp.JobID,
	}

	tx2, err := e.store.BeginTx(ctx)
	if err != nil {
		return insp.Purchased, err
	}
	if err := e.store.CreateInspection(ctx, tx2, brother); err != nil {
		tx2.Rollback(ctx)
		return insp.Purchased, err
	}
	insp.YoungerBrotherID = &brother.ID
	if err := e.store.UpdateInspectionResult(ctx, tx2, insp); err != nil {
		tx2.Rollback(ctx)
		return insp.Purchased, err
	}
	if err := tx2.Commit(ctx); err != nil {
		return insp.Purchased, err
	}

	return e.step(ctx, brother, dc)
}

func offerIDs(offers []*model.InfoOffer) []uuid.UUID {
	ids := make([]uuid.UUID, len(offers))
	for i, o := range offers {
		ids[i] = o.ID
	}
	return ids
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(a)+len(b))
	var out []uuid.UUID
	for _, id := range append(append([]uuid.UUID{}, a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func parseUUIDs(strs []string) []uuid.UUID {
	var out []uuid.UUID
	for _, s := range strs {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
