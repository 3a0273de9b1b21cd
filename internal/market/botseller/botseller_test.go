package botseller_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/infomarket/server/internal/agentbridge"
	"github.com/infomarket/server/internal/market/botseller"
	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

type stubStore struct {
	contexts  map[uuid.UUID]*model.DecisionContext
	subs      []*model.Subscription
	bots      map[uuid.UUID]*model.BotSellerProfile
	created   []*model.InfoOffer
	createErr error
}

func (s *stubStore) GetContext(_ context.Context, id uuid.UUID) (*model.DecisionContext, error) {
	return s.contexts[id], nil
}

func (s *stubStore) ListSubscriptionsForContext(_ context.Context, maxBudget float64, priority model.Priority) ([]*model.Subscription, error) {
	return s.subs, nil
}

func (s *stubStore) GetBotSellerProfile(_ context.Context, id uuid.UUID) (*model.BotSellerProfile, error) {
	return s.bots[id], nil
}

func (s *stubStore) CreateOffer(_ context.Context, o *model.InfoOffer) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, o)
	return nil
}

type stubBridge struct {
	reply agentbridge.BotOfferReply
	err   error
}

func (b *stubBridge) GenerateBotOffer(_ context.Context, _ agentbridge.BotOfferRequest) (agentbridge.BotOfferReply, error) {
	return b.reply, b.err
}

func TestDispatchContext_FixedTextBot_ClampsPrice(t *testing.T) {
	ctxID := uuid.New()
	botID := uuid.New()
	price := 500.0

	s := &stubStore{
		contexts: map[uuid.UUID]*model.DecisionContext{ctxID: {ID: ctxID, MaxBudget: 40}},
		subs:     []*model.Subscription{{OwnerKind: model.SellerKindBot, OwnerID: botID}},
		bots:     map[uuid.UUID]*model.BotSellerProfile{botID: {ID: botID, Name: "FixedBot", Info: "static payload", Price: &price}},
	}

	d := botseller.New(s, nil, nil, nil)
	if err := d.DispatchContext(context.Background(), ctxID); err != nil {
		t.Fatalf("DispatchContext: %v", err)
	}
	if len(s.created) != 1 {
		t.Fatalf("got %d offers, want 1", len(s.created))
	}
	if s.created[0].Price != 40 {
		t.Errorf("price = %v, want clamped to 40", s.created[0].Price)
	}
}

func TestDispatchContext_LLMBot_SilentlySkipsOnError(t *testing.T) {
	ctxID := uuid.New()
	botID := uuid.New()

	s := &stubStore{
		contexts: map[uuid.UUID]*model.DecisionContext{ctxID: {ID: ctxID, MaxBudget: 40}},
		subs:     []*model.Subscription{{OwnerKind: model.SellerKindBot, OwnerID: botID}},
		bots:     map[uuid.UUID]*model.BotSellerProfile{botID: {ID: botID, LLMModel: "claude-3", LLMPrompt: "answer the query"}},
	}
	bridge := &stubBridge{err: errors.New("provider timeout")}

	d := botseller.New(s, bridge, nil, nil)
	if err := d.DispatchContext(context.Background(), ctxID); err != nil {
		t.Fatalf("DispatchContext: %v", err)
	}
	if len(s.created) != 0 {
		t.Fatalf("LLM failure must never synthesize an offer, got %d", len(s.created))
	}
}

func TestDispatchContext_SkipsOpenCircuit(t *testing.T) {
	ctxID := uuid.New()
	botID := uuid.New()

	s := &stubStore{
		contexts: map[uuid.UUID]*model.DecisionContext{ctxID: {ID: ctxID, MaxBudget: 40}},
		subs:     []*model.Subscription{{OwnerKind: model.SellerKindBot, OwnerID: botID}},
		bots:     map[uuid.UUID]*model.BotSellerProfile{botID: {ID: botID, LLMModel: "claude-3", LLMPrompt: "answer"}},
	}
	bridge := &stubBridge{reply: agentbridge.BotOfferReply{PrivateInfo: "secret", Price: 5}}
	health := &openCircuitHealth{}

	d := botseller.New(s, bridge, health, nil)
	if err := d.DispatchContext(context.Background(), ctxID); err != nil {
		t.Fatalf("DispatchContext: %v", err)
	}
	if len(s.created) != 0 {
		t.Fatalf("open circuit must suppress dispatch, got %d offers", len(s.created))
	}
}

func TestDispatchContext_RedeliveredTaskIsNoOp(t *testing.T) {
	ctxID := uuid.New()
	botID := uuid.New()
	price := 5.0

	s := &stubStore{
		contexts:  map[uuid.UUID]*model.DecisionContext{ctxID: {ID: ctxID, MaxBudget: 40}},
		subs:      []*model.Subscription{{OwnerKind: model.SellerKindBot, OwnerID: botID}},
		bots:      map[uuid.UUID]*model.BotSellerProfile{botID: {ID: botID, Name: "FixedBot", Info: "static payload", Price: &price}},
		createErr: repository.ErrConflict,
	}

	d := botseller.New(s, nil, nil, nil)
	if err := d.DispatchContext(context.Background(), ctxID); err != nil {
		t.Fatalf("a duplicate offer must be treated as already dispatched, got %v", err)
	}
	if len(s.created) != 0 {
		t.Fatalf("expected no duplicate offer rows, got %d", len(s.created))
	}
}

type openCircuitHealth struct{}

func (openCircuitHealth) CircuitOpen(uuid.UUID) bool    { return true }
func (openCircuitHealth) RecordOutcome(uuid.UUID, bool) {}
