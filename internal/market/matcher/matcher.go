// Package matcher implements MatcherIndex: replaying seller subscriptions
// against decision contexts and materializing the per-subscription inbox.
package matcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/market/model"
)

// store is the slice of repository.Store the index depends on.
type store interface {
	GetContext(ctx context.Context, id uuid.UUID) (*model.DecisionContext, error)
	GetBuyerProfile(ctx context.Context, userID uuid.UUID) (*model.BuyerProfile, error)
	ListSubscriptionsForContext(ctx context.Context, maxBudget float64, priority model.Priority) ([]*model.Subscription, error)
	ListRootContextsForMatching(ctx context.Context, minBudget float64, minPriority model.Priority) ([]*model.DecisionContext, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	PurgeByContext(ctx context.Context, contextID uuid.UUID) error
	PurgeBySubscription(ctx context.Context, subscriptionID uuid.UUID) error
	CreateInboxItem(ctx context.Context, item *model.InboxItem) error
}

// taskEnqueuer is the slice of the task queue the index depends on.
type taskEnqueuer interface {
	EnqueueDispatchBots(ctx context.Context, contextID uuid.UUID) error
}

// eventDispatcher is the slice of the webhook dispatcher the index depends on.
type eventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload any) error
}

// Index is MatcherIndex: the two refresh entry points that keep the
// inbox consistent with live subscriptions and contexts.
type Index struct {
	store  store
	queue  taskEnqueuer
	events eventDispatcher
	logger *zap.Logger
}

// New constructs an Index. queue/events may be nil to disable dispatch (used
// in tests that only assert on inbox contents).
func New(store store, queue taskEnqueuer, events eventDispatcher, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{store: store, queue: queue, events: events, logger: logger}
}

// RefreshByContext purges and replays matches for a single context,
// invoked whenever a context is created, updated, or deleted.
// Recursive (child) contexts never fan out — they're consumed only by the
// parent's inspection.
func (idx *Index) RefreshByContext(ctx context.Context, contextID uuid.UUID) error {
	if err := idx.store.PurgeByContext(ctx, contextID); err != nil {
		return err
	}

	dc, err := idx.store.GetContext(ctx, contextID)
	if err != nil {
		return err
	}
	if !dc.IsRoot() {
		return nil
	}
	if dc.HasDirectTargets() {
		return idx.enqueueBotDispatch(ctx, contextID)
	}

	buyer, err := idx.store.GetBuyerProfile(ctx, dc.BuyerID)
	if err != nil {
		return err
	}

	subs, err := idx.store.ListSubscriptionsForContext(ctx, dc.MaxBudget, dc.Priority)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	newItems := 0
	for _, sub := range subs {
		if !sub.PassesBudgetPrefilter(dc) {
			continue
		}
		if !sub.Matches(dc, buyer, now) {
			continue
		}
		if err := idx.insertInboxItem(ctx, sub, dc, now); err != nil {
			return err
		}
		newItems++
	}

	if newItems > 0 {
		if err := idx.emitInboxNewItem(ctx, contextID, newItems); err != nil {
			idx.logger.Warn("emit inbox.new_item failed", zap.Error(err))
		}
	}

	return idx.enqueueBotDispatch(ctx, contextID)
}

// RefreshBySubscription purges and replays matches for a single subscription
// against every passing root context, invoked whenever a subscription is
// created, updated, or deleted (on delete: purge only).
func (idx *Index) RefreshBySubscription(ctx context.Context, subscriptionID uuid.UUID, deleted bool) error {
	if err := idx.store.PurgeBySubscription(ctx, subscriptionID); err != nil {
		return err
	}
	if deleted {
		return nil
	}

	sub, err := idx.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	contexts, err := idx.store.ListRootContextsForMatching(ctx, sub.MinBudget, sub.MinPriority)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, dc := range contexts {
		if dc.HasDirectTargets() {
			continue
		}
		buyer, err := idx.store.GetBuyerProfile(ctx, dc.BuyerID)
		if err != nil {
			return err
		}
		if !sub.Matches(dc, buyer, now) {
			continue
		}
		if err := idx.insertInboxItem(ctx, sub, dc, now); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) insertInboxItem(ctx context.Context, sub *model.Subscription, dc *model.DecisionContext, now time.Time) error {
	item := &model.InboxItem{
		SubscriptionID: sub.ID,
		ContextID:      dc.ID,
		Status:         model.InboxStatusNew,
	}
	if sub.AgeLimitSeconds != nil {
		expires := now.Add(time.Duration(*sub.AgeLimitSeconds) * time.Second)
		item.ExpiresAt = &expires
	}
	return idx.store.CreateInboxItem(ctx, item)
}

func (idx *Index) enqueueBotDispatch(ctx context.Context, contextID uuid.UUID) error {
	if idx.queue == nil {
		return nil
	}
	return idx.queue.EnqueueDispatchBots(ctx, contextID)
}

func (idx *Index) emitInboxNewItem(ctx context.Context, contextID uuid.UUID, count int) error {
	if idx.events == nil {
		return nil
	}
	return idx.events.Dispatch(ctx, "inbox.new_item", map[string]any{
		"context_id": contextID,
		"count":      count,
	})
}
