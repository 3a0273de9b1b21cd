package matcher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/infomarket/server/internal/market/matcher"
	"github.com/infomarket/server/internal/market/model"
)

// ── in-memory stub store ────────────────────────────────────────────────

type stubStore struct {
	mu              sync.Mutex
	contexts        map[uuid.UUID]*model.DecisionContext
	buyers          map[uuid.UUID]*model.BuyerProfile
	subs            map[uuid.UUID]*model.Subscription
	inbox           []*model.InboxItem
	purgedByContext []uuid.UUID
	purgedBySub     []uuid.UUID
}

func newStubStore() *stubStore {
	return &stubStore{
		contexts: make(map[uuid.UUID]*model.DecisionContext),
		buyers:   make(map[uuid.UUID]*model.BuyerProfile),
		subs:     make(map[uuid.UUID]*model.Subscription),
	}
}

func (s *stubStore) GetContext(_ context.Context, id uuid.UUID) (*model.DecisionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.contexts[id]
	if !ok {
		return nil, errNotFound
	}
	return dc, nil
}

func (s *stubStore) GetBuyerProfile(_ context.Context, userID uuid.UUID) (*model.BuyerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buyers[userID]
	if !ok {
		return &model.BuyerProfile{UserID: userID}, nil
	}
	return b, nil
}

func (s *stubStore) ListSubscriptionsForContext(_ context.Context, maxBudget float64, priority model.Priority) ([]*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range s.subs {
		if maxBudget >= sub.MinBudget && priority >= sub.MinPriority {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *stubStore) ListRootContextsForMatching(_ context.Context, minBudget float64, minPriority model.Priority) ([]*model.DecisionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.DecisionContext
	for _, dc := range s.contexts {
		if dc.IsRoot() && dc.MaxBudget >= minBudget && dc.Priority >= minPriority {
			out = append(out, dc)
		}
	}
	return out, nil
}

func (s *stubStore) GetSubscription(_ context.Context, id uuid.UUID) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, errNotFound
	}
	return sub, nil
}

func (s *stubStore) PurgeByContext(_ context.Context, contextID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgedByContext = append(s.purgedByContext, contextID)
	kept := s.inbox[:0]
	for _, item := range s.inbox {
		if item.ContextID != contextID {
			kept = append(kept, item)
		}
	}
	s.inbox = kept
	return nil
}

func (s *stubStore) PurgeBySubscription(_ context.Context, subscriptionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgedBySub = append(s.purgedBySub, subscriptionID)
	kept := s.inbox[:0]
	for _, item := range s.inbox {
		if item.SubscriptionID != subscriptionID {
			kept = append(kept, item)
		}
	}
	s.inbox = kept
	return nil
}

func (s *stubStore) CreateInboxItem(_ context.Context, item *model.InboxItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = time.Now().UTC()
	s.inbox = append(s.inbox, item)
	return nil
}

type stubErr string

func (e stubErr) Error() string { return string(e) }

const errNotFound = stubErr("not found")

// ── tests ──────────────────────────────────────────────────────────────

func TestRefreshByContext_MatchesOnKeywordAndBudget(t *testing.T) {
	s := newStubStore()
	buyerID := uuid.New()
	ctxID := uuid.New()
	s.contexts[ctxID] = &model.DecisionContext{
		ID: ctxID, BuyerID: buyerID, Query: "best espresso machine",
		MaxBudget: 50, Priority: model.PriorityHigh, CreatedAt: time.Now().UTC(),
	}

	matchingSub := &model.Subscription{ID: uuid.New(), Keywords: []string{"espresso"}, MinBudget: 10}
	nonMatchingSub := &model.Subscription{ID: uuid.New(), Keywords: []string{"bicycle"}, MinBudget: 10}
	tooExpensiveSub := &model.Subscription{ID: uuid.New(), MinBudget: 1000}
	s.subs[matchingSub.ID] = matchingSub
	s.subs[nonMatchingSub.ID] = nonMatchingSub
	s.subs[tooExpensiveSub.ID] = tooExpensiveSub

	idx := matcher.New(s, nil, nil, nil)
	if err := idx.RefreshByContext(context.Background(), ctxID); err != nil {
		t.Fatalf("RefreshByContext: %v", err)
	}

	if len(s.inbox) != 1 {
		t.Fatalf("got %d inbox items, want 1", len(s.inbox))
	}
	if s.inbox[0].SubscriptionID != matchingSub.ID {
		t.Errorf("matched wrong subscription: %v", s.inbox[0].SubscriptionID)
	}
}

func TestRefreshByContext_SkipsNonRootContexts(t *testing.T) {
	s := newStubStore()
	parentID := uuid.New()
	ctxID := uuid.New()
	s.contexts[ctxID] = &model.DecisionContext{
		ID: ctxID, ParentID: &parentID, MaxBudget: 50, Priority: model.PriorityHigh,
	}
	s.subs[uuid.New()] = &model.Subscription{MinBudget: 0}

	idx := matcher.New(s, nil, nil, nil)
	if err := idx.RefreshByContext(context.Background(), ctxID); err != nil {
		t.Fatalf("RefreshByContext: %v", err)
	}
	if len(s.inbox) != 0 {
		t.Fatalf("child context should never fan out, got %d inbox items", len(s.inbox))
	}
}

func TestRefreshBySubscription_PurgesThenDeleteSkipsReplay(t *testing.T) {
	s := newStubStore()
	subID := uuid.New()
	s.inbox = append(s.inbox, &model.InboxItem{ID: uuid.New(), SubscriptionID: subID})

	idx := matcher.New(s, nil, nil, nil)
	if err := idx.RefreshBySubscription(context.Background(), subID, true); err != nil {
		t.Fatalf("RefreshBySubscription: %v", err)
	}
	if len(s.inbox) != 0 {
		t.Fatalf("deleted subscription should purge its inbox rows, got %d remaining", len(s.inbox))
	}
}

func TestRefreshByContext_AgeLimitExcludesOldContext(t *testing.T) {
	s := newStubStore()
	buyerID := uuid.New()
	ctxID := uuid.New()
	s.contexts[ctxID] = &model.DecisionContext{
		ID: ctxID, BuyerID: buyerID, MaxBudget: 50, Priority: model.PriorityHigh,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	ageLimit := int64(60)
	s.subs[uuid.New()] = &model.Subscription{MinBudget: 0, AgeLimitSeconds: &ageLimit}

	idx := matcher.New(s, nil, nil, nil)
	if err := idx.RefreshByContext(context.Background(), ctxID); err != nil {
		t.Fatalf("RefreshByContext: %v", err)
	}
	if len(s.inbox) != 0 {
		t.Fatalf("context older than age_limit should not match, got %d inbox items", len(s.inbox))
	}
}
