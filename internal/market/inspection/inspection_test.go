package inspection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/agentbridge"
	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

// fakeTx satisfies the two pgx.Tx methods the engine actually calls; the
// embedded interface panics on anything else, which is what we want in a test.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Rollback(context.Context) error { return nil }
func (fakeTx) Commit(context.Context) error   { return nil }

// fakeStore implements the store interface with in-memory state. Methods not
// exercised by a given test simply return their zero value.
type fakeStore struct {
	offersByID      map[uuid.UUID]*model.InfoOffer
	contexts        map[uuid.UUID][]*model.InfoOffer
	inspections     map[uuid.UUID]*model.Inspection
	jobs            map[uuid.UUID]*model.Job
	buyer           *model.BuyerProfile
	user            *model.User
	inspected       []uuid.UUID
	purchased       []uuid.UUID
	createdContexts []*model.DecisionContext
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offersByID:  make(map[uuid.UUID]*model.InfoOffer),
		contexts:    make(map[uuid.UUID][]*model.InfoOffer),
		inspections: make(map[uuid.UUID]*model.Inspection),
		jobs:        make(map[uuid.UUID]*model.Job),
		buyer:       &model.BuyerProfile{},
		user:        &model.User{},
	}
}

func (s *fakeStore) BeginTx(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }
func (s *fakeStore) GetContext(ctx context.Context, id uuid.UUID) (*model.DecisionContext, error) {
	return nil, nil
}
func (s *fakeStore) CreateContext(ctx context.Context, c *model.DecisionContext) error {
	c.ID = uuid.New()
	s.createdContexts = append(s.createdContexts, c)
	return nil
}
func (s *fakeStore) ListOffersByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.InfoOffer, error) {
	var out []*model.InfoOffer
	for _, id := range ids {
		if o, ok := s.offersByID[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}
func (s *fakeStore) ListOffersByContext(ctx context.Context, contextID uuid.UUID) ([]*model.InfoOffer, error) {
	return s.contexts[contextID], nil
}
func (s *fakeStore) MarkInspected(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	s.inspected = append(s.inspected, ids...)
	return nil
}
func (s *fakeStore) MarkPurchased(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	s.purchased = append(s.purchased, id)
	return nil
}
func (s *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.user, nil
}
func (s *fakeStore) GetBuyerProfile(ctx context.Context, userID uuid.UUID) (*model.BuyerProfile, error) {
	return s.buyer, nil
}
func (s *fakeStore) IncrementBuyerCounter(ctx context.Context, tx pgx.Tx, userID uuid.UUID, column string, priority model.Priority) error {
	return nil
}
func (s *fakeStore) GetInspection(ctx context.Context, id uuid.UUID) (*model.Inspection, error) {
	insp, ok := s.inspections[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return insp, nil
}
func (s *fakeStore) CreateInspection(ctx context.Context, tx pgx.Tx, insp *model.Inspection) error {
	return nil
}
func (s *fakeStore) UpdateInspectionResult(ctx context.Context, tx pgx.Tx, insp *model.Inspection) error {
	return nil
}
func (s *fakeStore) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return job, nil
}
func (s *fakeStore) UpdateJobState(ctx context.Context, id uuid.UUID, state model.JobState, result []uuid.UUID, traceback string) error {
	return nil
}

func newTestEngine(s store) *Engine {
	return New(s, nil, nil, nil, nil, nil, NewCancelRegistry(), Config{MaxDepth: 3, MaxBreadth: 3}, nil)
}

func TestStep_BoundCheckDepthExhausted(t *testing.T) {
	e := newTestEngine(newFakeStore())
	insp := &model.Inspection{ID: uuid.New(), Depth: 3, Breadth: 0, InfoOfferIDs: []uuid.UUID{uuid.New()}}
	dc := &model.DecisionContext{ID: uuid.New()}

	got, err := e.step(context.Background(), insp, dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no purchases at exhausted depth, got %v", got)
	}
}

func TestStep_BoundCheckBreadthExhausted(t *testing.T) {
	e := newTestEngine(newFakeStore())
	insp := &model.Inspection{ID: uuid.New(), Depth: 0, Breadth: 3, InfoOfferIDs: []uuid.UUID{uuid.New()}}
	dc := &model.DecisionContext{ID: uuid.New()}

	got, err := e.step(context.Background(), insp, dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no purchases at exhausted breadth, got %v", got)
	}
}

func TestStep_NoOffersReturnsEarly(t *testing.T) {
	fs := newFakeStore()
	e := newTestEngine(fs)
	insp := &model.Inspection{ID: uuid.New(), InfoOfferIDs: []uuid.UUID{uuid.New()}}
	dc := &model.DecisionContext{ID: uuid.New()}

	got, err := e.step(context.Background(), insp, dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no purchases when the offer set is empty, got %v", got)
	}
}

// fakeBridge returns a canned decision for every call.
type fakeBridge struct {
	reply *agentbridge.DecideReply
	err   error
}

func (b *fakeBridge) Decide(ctx context.Context, req agentbridge.DecideRequest) (*agentbridge.DecideReply, error) {
	return b.reply, b.err
}

func TestStep_PurchaseBranchMarksOffers(t *testing.T) {
	fs := newFakeStore()
	o1 := &model.InfoOffer{ID: uuid.New(), Price: 10}
	o2 := &model.InfoOffer{ID: uuid.New(), Price: 20}
	fs.offersByID[o1.ID] = o1
	fs.offersByID[o2.ID] = o2

	bridge := &fakeBridge{reply: &agentbridge.DecideReply{
		ChosenOfferIDs: []string{o1.ID.String(), o2.ID.String()},
	}}
	e := New(fs, nil, nil, bridge, nil, nil, NewCancelRegistry(), Config{MaxDepth: 3, MaxBreadth: 3}, nil)

	insp := &model.Inspection{ID: uuid.New(), InfoOfferIDs: []uuid.UUID{o1.ID, o2.ID}}
	dc := &model.DecisionContext{ID: uuid.New(), MaxBudget: 40}

	got, err := e.step(context.Background(), insp, dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both chosen offers purchased, got %v", got)
	}
	if len(fs.inspected) != 2 {
		t.Fatalf("expected both presented offers marked inspected, got %v", fs.inspected)
	}
	if len(fs.purchased) != 2 {
		t.Fatalf("expected both chosen offers marked purchased, got %v", fs.purchased)
	}
}

func TestRun_CompletedJobIsNoOp(t *testing.T) {
	fs := newFakeStore()
	jobID := uuid.New()
	insp := &model.Inspection{ID: uuid.New(), JobID: jobID}
	fs.inspections[insp.ID] = insp
	want := []uuid.UUID{uuid.New()}
	fs.jobs[jobID] = &model.Job{ID: jobID, InspectionID: insp.ID, State: model.JobStateDone, Result: want}

	// The nil balance keeper doubles as the assertion: if the guard failed
	// and settlement re-ran, Run would panic on it.
	e := newTestEngine(fs)

	got, err := e.Run(context.Background(), insp.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("expected the persisted result, got %v", got)
	}
	if len(fs.inspected) != 0 || len(fs.purchased) != 0 {
		t.Error("replaying a completed job must not touch offer state")
	}
}

func TestStep_SpawnBranchBoundedByBreadth(t *testing.T) {
	fs := newFakeStore()
	o := &model.InfoOffer{ID: uuid.New(), Price: 10}
	fs.offersByID[o.ID] = o

	q := "which of these is still current?"
	bridge := &fakeBridge{reply: &agentbridge.DecideReply{FollowupQuery: &q, FollowupQueryBudget: 5}}
	e := New(fs, nil, nil, bridge, nil, nil, NewCancelRegistry(), Config{
		MaxDepth: 3, MaxBreadth: 3,
		FastPoll: 5 * time.Millisecond, SlowPoll: 5 * time.Millisecond,
		FastWindow: time.Second, Deadline: 20 * time.Millisecond,
	}, nil)

	insp := &model.Inspection{ID: uuid.New(), InfoOfferIDs: []uuid.UUID{o.ID}}
	dc := &model.DecisionContext{ID: uuid.New(), MaxBudget: 40}

	got, err := e.step(context.Background(), insp, dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("an always-clarifying agent should never purchase, got %v", got)
	}
	// Breadth 0, 1 and 2 each spawn once; breadth 3 hits the bound.
	if len(fs.createdContexts) != 3 {
		t.Fatalf("expected 3 spawned child contexts, got %d", len(fs.createdContexts))
	}
	for _, child := range fs.createdContexts {
		if child.ParentID == nil || *child.ParentID != dc.ID {
			t.Errorf("child context not linked to its parent: %+v", child)
		}
		if child.Priority != model.PriorityHigh {
			t.Errorf("spawned child priority = %v, want high", child.Priority)
		}
		if child.MaxBudget != 5 {
			t.Errorf("spawned child budget = %v, want the follow-up budget 5", child.MaxBudget)
		}
	}
}

func TestStep_AgentErrorIsNoOp(t *testing.T) {
	fs := newFakeStore()
	o := &model.InfoOffer{ID: uuid.New(), Price: 10}
	fs.offersByID[o.ID] = o

	bridge := &fakeBridge{err: &model.ErrAgent{Msg: "exhausted retries"}}
	e := New(fs, nil, nil, bridge, nil, nil, NewCancelRegistry(), Config{MaxDepth: 3, MaxBreadth: 3}, nil)

	insp := &model.Inspection{ID: uuid.New(), InfoOfferIDs: []uuid.UUID{o.ID}}
	dc := &model.DecisionContext{ID: uuid.New(), MaxBudget: 40}

	got, err := e.step(context.Background(), insp, dc)
	if err != nil {
		t.Fatalf("an exhausted agent should be a no-op, got error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no purchases from an exhausted agent, got %v", got)
	}
}

func TestSumPrice(t *testing.T) {
	offers := []*model.InfoOffer{{Price: 1.5}, {Price: 2.5}, {Price: 0}}
	if got := sumPrice(offers); got != 4.0 {
		t.Fatalf("sumPrice() = %v, want 4.0", got)
	}
}

func TestAppendUnique(t *testing.T) {
	id := uuid.New()
	ids := appendUnique(nil, id)
	ids = appendUnique(ids, id)
	if len(ids) != 1 {
		t.Fatalf("expected appendUnique to dedupe, got %d entries", len(ids))
	}
}

func TestUnionIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := unionIDs([]uuid.UUID{a}, []uuid.UUID{a, b})
	if len(got) != 2 {
		t.Fatalf("unionIDs() = %v, want 2 unique entries", got)
	}
}

func TestParseUUIDs_SkipsInvalid(t *testing.T) {
	valid := uuid.New()
	got := parseUUIDs([]string{valid.String(), "not-a-uuid"})
	if len(got) != 1 || got[0] != valid {
		t.Fatalf("parseUUIDs() = %v, want only the valid entry", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "b"); got != "b" {
		t.Fatalf("firstNonEmpty() = %q, want %q", got, "b")
	}
	if got := firstNonEmpty(); got != "" {
		t.Fatalf("firstNonEmpty() with no args = %q, want empty", got)
	}
}

func TestDerefOr(t *testing.T) {
	s := "hi"
	if got := derefOr(&s, "fallback"); got != "hi" {
		t.Fatalf("derefOr() = %q, want %q", got, "hi")
	}
	if got := derefOr(nil, "fallback"); got != "fallback" {
		t.Fatalf("derefOr(nil) = %q, want %q", got, "fallback")
	}
}

func TestRenderContext_RootVsRecursive(t *testing.T) {
	root := &model.DecisionContext{Query: "what is x?", ContextPages: []string{"https://a"}}
	if got := renderContext(root); got == "" {
		t.Fatal("expected non-empty rendering for a root context")
	}

	parentID := uuid.New()
	child := &model.DecisionContext{ParentID: &parentID, ParentOffers: []uuid.UUID{uuid.New()}}
	got := renderContext(child)
	if got == "" {
		t.Fatal("expected non-empty rendering for a recursive context")
	}
}

func TestCancelRegistry_RegisterCancelDone(t *testing.T) {
	r := NewCancelRegistry()
	id := uuid.New()

	runCtx, _ := r.Register(id, context.Background())
	if runCtx.Err() != nil {
		t.Fatal("freshly registered context should not be cancelled")
	}

	if !r.Cancel(id) {
		t.Fatal("expected Cancel to find the registered job")
	}
	select {
	case <-runCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected the derived context to be cancelled")
	}

	r.Done(id)
	if r.Cancel(id) {
		t.Fatal("expected Cancel to report false once the job is done")
	}
}

func TestCancelRegistry_CancelUnknownID(t *testing.T) {
	r := NewCancelRegistry()
	if r.Cancel(uuid.New()) {
		t.Fatal("expected Cancel on an unregistered id to return false")
	}
}

func TestPollForOffers_ReturnsAsSoonAsOffersAppear(t *testing.T) {
	fs := newFakeStore()
	contextID := uuid.New()
	offerID := uuid.New()
	fs.contexts[contextID] = []*model.InfoOffer{{ID: offerID}}

	e := New(fs, nil, nil, nil, nil, nil, NewCancelRegistry(), Config{
		FastPoll: 10 * time.Millisecond, SlowPoll: 50 * time.Millisecond,
		FastWindow: time.Second, Deadline: time.Second,
	}, nil)

	offers, err := e.pollForOffers(context.Background(), contextID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 1 || offers[0].ID != offerID {
		t.Fatalf("expected to find the seeded offer, got %v", offers)
	}
}

func TestPollForOffers_DeadlineWithNoOffers(t *testing.T) {
	fs := newFakeStore()
	contextID := uuid.New()

	e := New(fs, nil, nil, nil, nil, nil, NewCancelRegistry(), Config{
		FastPoll: 5 * time.Millisecond, SlowPoll: 5 * time.Millisecond,
		FastWindow: time.Second, Deadline: 30 * time.Millisecond,
	}, nil)

	offers, err := e.pollForOffers(context.Background(), contextID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("expected no offers at the deadline, got %v", offers)
	}
}
