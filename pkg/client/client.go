// Package client is the infomarket Go SDK: everything a buyer or seller
// integration needs to create decision contexts, post and inspect offers,
// manage subscriptions, and moderate abuse reports against a running market
// server, all behind one coherent API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnauthenticated is returned by calls that require a Bearer token when
// none has been obtained yet via Login, Signup, or WithBearerToken.
var ErrUnauthenticated = errors.New("client: not authenticated — call Login/Signup or use WithBearerToken")

// Client is the infomarket SDK entry point.
type Client struct {
	marketBase string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding any TLS options.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a pre-obtained user session token to every
// request, skipping Login/Signup.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Only use
// this in development against a locally-generated certificate.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates a Client connected to marketBase, e.g.
// client.New("https://market.example.com", client.WithBearerToken(tok)).
func New(marketBase string, opts ...Option) (*Client, error) {
	c := &Client{
		marketBase: strings.TrimRight(marketBase, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(marketBase string, opts ...Option) *Client {
	c, err := New(marketBase, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ── Account ──────────────────────────────────────────────────────────────

// AuthResult is the response common to Signup and Login.
type AuthResult struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

// Signup creates a new account and stores the returned token on the client
// for subsequent calls.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	var result AuthResult
	if err := c.post(ctx, "/api/v1/auth/signup", map[string]string{
		"email": email, "password": password, "display_name": displayName,
	}, &result); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = result.Token
	c.mu.Unlock()
	return &result, nil
}

// Login authenticates with email/password and stores the returned token on
// the client for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	if err := c.post(ctx, "/api/v1/auth/login", map[string]string{
		"email": email, "password": password,
	}, &result); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = result.Token
	c.mu.Unlock()
	return &result, nil
}

// ── Buyer / seller profiles ──────────────────────────────────────────────

// CreateBuyerProfileRequest is the payload for CreateBuyerProfile.
type CreateBuyerProfileRequest struct {
	DefaultAgentModel string  `json:"default_agent_model,omitempty"`
	DefaultMaxBudget  float64 `json:"default_max_budget,omitempty"`
}

// BuyerProfile mirrors the server's model.BuyerProfile JSON shape.
type BuyerProfile struct {
	UserID            uuid.UUID      `json:"user_id"`
	DefaultAgentModel string         `json:"default_agent_model"`
	DefaultMaxBudget  float64        `json:"default_max_budget"`
	Queries           map[string]int `json:"queries"`
	Inspected         map[string]int `json:"inspected"`
	Purchased         map[string]int `json:"purchased"`
	CreatedAt         time.Time      `json:"created_at"`
}

// CreateBuyerProfile registers the caller as a buyer. Fails if one already
// exists.
func (c *Client) CreateBuyerProfile(ctx context.Context, req CreateBuyerProfileRequest) (*BuyerProfile, error) {
	var b BuyerProfile
	if err := c.post(ctx, "/api/v1/buyers", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetMyBuyerProfile fetches the caller's buyer profile.
func (c *Client) GetMyBuyerProfile(ctx context.Context) (*BuyerProfile, error) {
	var b BuyerProfile
	if err := c.get(ctx, "/api/v1/buyers/me", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBuyerProfileRequest is the payload for UpdateBuyerProfile; nil
// fields are left unchanged.
type UpdateBuyerProfileRequest struct {
	DefaultAgentModel *string  `json:"default_agent_model,omitempty"`
	DefaultMaxBudget  *float64 `json:"default_max_budget,omitempty"`
}

// UpdateBuyerProfile patches the caller's buyer defaults.
func (c *Client) UpdateBuyerProfile(ctx context.Context, req UpdateBuyerProfileRequest) (*BuyerProfile, error) {
	var b BuyerProfile
	if err := c.put(ctx, "/api/v1/buyers/me", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateHumanSellerProfileRequest is the payload for CreateHumanSellerProfile.
type CreateHumanSellerProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// HumanSellerProfile mirrors the server's model.HumanSellerProfile JSON shape.
type HumanSellerProfile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateHumanSellerProfile registers the caller as a human seller. Fails if
// one already exists. Required before posting offers or subscriptions.
func (c *Client) CreateHumanSellerProfile(ctx context.Context, req CreateHumanSellerProfileRequest) (*HumanSellerProfile, error) {
	var p HumanSellerProfile
	if err := c.post(ctx, "/api/v1/sellers", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMySellerProfile fetches the caller's human-seller profile.
func (c *Client) GetMySellerProfile(ctx context.Context) (*HumanSellerProfile, error) {
	var p HumanSellerProfile
	if err := c.get(ctx, "/api/v1/sellers/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateMySellerProfile patches the caller's display name.
func (c *Client) UpdateMySellerProfile(ctx context.Context, displayName string) (*HumanSellerProfile, error) {
	var p HumanSellerProfile
	if err := c.put(ctx, "/api/v1/sellers/me", map[string]string{"display_name": displayName}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateBotSellerProfileRequest is the payload for CreateBotSellerProfile.
// Exactly one of (Info, Price) or (LLMModel, LLMPrompt) must be set.
type CreateBotSellerProfileRequest struct {
	Name      string   `json:"name"`
	Info      string   `json:"info,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	LLMModel  string   `json:"llm_model,omitempty"`
	LLMPrompt string   `json:"llm_prompt,omitempty"`
}

// BotSellerProfile mirrors the server's model.BotSellerProfile JSON shape.
type BotSellerProfile struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Info      string    `json:"info,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	LLMModel  string    `json:"llm_model,omitempty"`
	LLMPrompt string    `json:"llm_prompt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBotSellerProfile registers a new bot seller owned by the caller. The
// caller must already have a human-seller profile or own another bot seller.
func (c *Client) CreateBotSellerProfile(ctx context.Context, req CreateBotSellerProfileRequest) (*BotSellerProfile, error) {
	var b BotSellerProfile
	if err := c.post(ctx, "/api/v1/bot-sellers", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBotSellerProfiles lists every bot seller the caller owns.
func (c *Client) ListBotSellerProfiles(ctx context.Context) ([]*BotSellerProfile, error) {
	var wrapper struct {
		BotSellers []*BotSellerProfile `json:"bot_sellers"`
	}
	if err := c.get(ctx, "/api/v1/bot-sellers", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.BotSellers, nil
}

// GetBotSellerProfile fetches one bot seller the caller owns.
func (c *Client) GetBotSellerProfile(ctx context.Context, id uuid.UUID) (*BotSellerProfile, error) {
	var b BotSellerProfile
	if err := c.get(ctx, "/api/v1/bot-sellers/"+id.String(), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ── Decision contexts ────────────────────────────────────────────────────

// SellerTargets lists direct-dispatch seller ids, bypassing matcher fan-out.
type SellerTargets struct {
	HumanSellerIDs []uuid.UUID `json:"human_seller_ids,omitempty"`
	BotSellerIDs   []uuid.UUID `json:"bot_seller_ids,omitempty"`
}

// CreateContextRequest is the payload for CreateContext.
type CreateContextRequest struct {
	Query         string         `json:"query,omitempty"`
	Pages         []string       `json:"pages,omitempty"`
	MaxBudget     float64        `json:"max_budget"`
	Priority      int            `json:"priority"`
	SellerTargets *SellerTargets `json:"seller_targets,omitempty"`
}

// DecisionContext mirrors the server's model.DecisionContext JSON shape.
type DecisionContext struct {
	ID                   uuid.UUID   `json:"id"`
	Query                string      `json:"query,omitempty"`
	ContextPages         []string    `json:"context_pages,omitempty"`
	BuyerID              uuid.UUID   `json:"buyer_id"`
	MaxBudget            float64     `json:"max_budget"`
	Priority             int         `json:"priority"`
	CreatedAt            time.Time   `json:"created_at"`
	TargetHumanSellerIDs []uuid.UUID `json:"target_human_seller_ids,omitempty"`
	TargetBotSellerIDs   []uuid.UUID `json:"target_bot_seller_ids,omitempty"`
	ParentID             *uuid.UUID  `json:"parent_id,omitempty"`
	ParentOffers         []uuid.UUID `json:"parent_offers,omitempty"`
}

// CreateContext posts a new buyer decision context.
func (c *Client) CreateContext(ctx context.Context, req CreateContextRequest) (*DecisionContext, error) {
	var dc DecisionContext
	if err := c.post(ctx, "/api/v1/contexts", req, &dc); err != nil {
		return nil, err
	}
	return &dc, nil
}

// ListContexts lists the caller's own root contexts, newest first. A limit
// of 0 uses the server default page size.
func (c *Client) ListContexts(ctx context.Context, limit, offset int) ([]*DecisionContext, error) {
	var wrapper struct {
		Contexts []*DecisionContext `json:"contexts"`
	}
	path := "/api/v1/contexts"
	if limit > 0 || offset > 0 {
		path = fmt.Sprintf("/api/v1/contexts?limit=%d&offset=%d", limit, offset)
	}
	if err := c.get(ctx, path, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Contexts, nil
}

// GetContext fetches a context by id. Non-root (recursive) contexts are
// never directly addressable and return an error.
func (c *Client) GetContext(ctx context.Context, id uuid.UUID) (*DecisionContext, error) {
	var dc DecisionContext
	if err := c.get(ctx, "/api/v1/contexts/"+id.String(), &dc); err != nil {
		return nil, err
	}
	return &dc, nil
}

// UpdateContextRequest is the payload for UpdateContext; nil fields are left
// unchanged.
type UpdateContextRequest struct {
	Query *string   `json:"query,omitempty"`
	Pages *[]string `json:"pages,omitempty"`
}

// UpdateContext patches a context's query/pages.
func (c *Client) UpdateContext(ctx context.Context, id uuid.UUID, req UpdateContextRequest) (*DecisionContext, error) {
	var dc DecisionContext
	if err := c.patch(ctx, "/api/v1/contexts/"+id.String(), req, &dc); err != nil {
		return nil, err
	}
	return &dc, nil
}

// DeleteContext deletes a context and cancels an in-flight inspection, which
// then settles or refunds its own escrow. Deleting a context with no running
// inspection does not refund its escrow.
func (c *Client) DeleteContext(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/v1/contexts/"+id.String())
}

// ── Offers ───────────────────────────────────────────────────────────────

// CreateOfferRequest is the payload for CreateOffer.
type CreateOfferRequest struct {
	PrivateInfo string  `json:"private_info"`
	PublicInfo  string  `json:"public_info,omitempty"`
	Price       float64 `json:"price"`
}

// InfoOffer mirrors the server's model.InfoOffer JSON shape. PrivateInfo is
// empty unless the caller is the offer's seller or has purchased it.
type InfoOffer struct {
	ID          uuid.UUID `json:"id"`
	SellerKind  string    `json:"seller_kind"`
	SellerID    uuid.UUID `json:"seller_id"`
	ContextID   uuid.UUID `json:"context_id"`
	PrivateInfo string    `json:"private_info,omitempty"`
	PublicInfo  string    `json:"public_info"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	Inspected   bool      `json:"inspected"`
	Purchased   bool      `json:"purchased"`
}

// CreateOffer posts a human seller's offer against a context.
func (c *Client) CreateOffer(ctx context.Context, contextID uuid.UUID, req CreateOfferRequest) (*InfoOffer, error) {
	var o InfoOffer
	if err := c.post(ctx, "/api/v1/contexts/"+contextID.String()+"/offers", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOffers lists every offer on a context, projected per-viewer.
func (c *Client) ListOffers(ctx context.Context, contextID uuid.UUID) ([]*InfoOffer, error) {
	var wrapper struct {
		Offers []*InfoOffer `json:"offers"`
	}
	if err := c.get(ctx, "/api/v1/contexts/"+contextID.String()+"/offers", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Offers, nil
}

// GetOffer fetches a single offer, projected per-viewer.
func (c *Client) GetOffer(ctx context.Context, contextID, offerID uuid.UUID) (*InfoOffer, error) {
	var o InfoOffer
	if err := c.get(ctx, "/api/v1/contexts/"+contextID.String()+"/offers/"+offerID.String(), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOfferRequest is the payload for UpdateOffer; nil fields are left
// unchanged.
type UpdateOfferRequest struct {
	PrivateInfo *string  `json:"private_info,omitempty"`
	PublicInfo  *string  `json:"public_info,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// UpdateOffer patches an offer the caller owns as seller.
func (c *Client) UpdateOffer(ctx context.Context, contextID, offerID uuid.UUID, req UpdateOfferRequest) (*InfoOffer, error) {
	var o InfoOffer
	if err := c.patch(ctx, "/api/v1/contexts/"+contextID.String()+"/offers/"+offerID.String(), req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteOffer withdraws an offer the caller owns as seller.
func (c *Client) DeleteOffer(ctx context.Context, contextID, offerID uuid.UUID) error {
	return c.delete(ctx, "/api/v1/contexts/"+contextID.String()+"/offers/"+offerID.String())
}

// ── Inspections / jobs ───────────────────────────────────────────────────

// StartInspectionResult is the response to StartInspection.
type StartInspectionResult struct {
	JobID      uuid.UUID       `json:"job_id"`
	Inspection json.RawMessage `json:"inspection"`
}

// StartInspection kicks off the buyer's bounded-recursion inspection run
// over the given known offers and returns immediately with a
// job id to poll via GetJob.
func (c *Client) StartInspection(ctx context.Context, contextID uuid.UUID, infoOfferIDs []uuid.UUID) (*StartInspectionResult, error) {
	var result StartInspectionResult
	if err := c.post(ctx, "/api/v1/contexts/"+contextID.String()+"/inspections",
		map[string]any{"info_offer_ids": infoOfferIDs}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Job is the task-queue-visible state of an inspection run.
type Job struct {
	State     string      `json:"state"`
	Result    []uuid.UUID `json:"result,omitempty"`
	Traceback string      `json:"traceback,omitempty"`
}

// GetJob fetches an inspection job's current state.
func (c *Client) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	if err := c.get(ctx, "/api/v1/jobs/"+id.String(), &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// WaitForJob polls GetJob at interval until it reaches a terminal state
// ("done" or "failed") or ctx is cancelled.
func (c *Client) WaitForJob(ctx context.Context, id uuid.UUID, interval time.Duration) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		j, err := c.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if j.State == "done" || j.State == "failed" {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ── Subscriptions / inbox ────────────────────────────────────────────────

// CreateSubscriptionRequest is the payload for CreateSubscription.
type CreateSubscriptionRequest struct {
	Keywords          []string `json:"keywords,omitempty"`
	ContextPages      []string `json:"context_pages,omitempty"`
	MinBudget         float64  `json:"min_budget"`
	MinPriority       int      `json:"min_priority"`
	MinInspectionRate float64  `json:"min_inspection_rate"`
	MinPurchaseRate   float64  `json:"min_purchase_rate"`
	BuyerType         string   `json:"buyer_type,omitempty"`
	AgeLimitSeconds   *int64   `json:"age_limit_seconds,omitempty"`
}

// Subscription mirrors the server's model.Subscription JSON shape.
type Subscription struct {
	ID                uuid.UUID `json:"id"`
	OwnerKind         string    `json:"owner_kind"`
	OwnerID           uuid.UUID `json:"owner_id"`
	Keywords          []string  `json:"keywords,omitempty"`
	ContextPages      []string  `json:"context_pages,omitempty"`
	MinBudget         float64   `json:"min_budget"`
	MinPriority       int       `json:"min_priority"`
	MinInspectionRate float64   `json:"min_inspection_rate"`
	MinPurchaseRate   float64   `json:"min_purchase_rate"`
	BuyerType         string    `json:"buyer_type,omitempty"`
	AgeLimitSeconds   *int64    `json:"age_limit_seconds,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateSubscription registers a seller's standing match predicate.
func (c *Client) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*Subscription, error) {
	var s Subscription
	if err := c.post(ctx, "/api/v1/sellers/me/subscriptions", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSubscriptionRequest is the payload for UpdateSubscription; nil
// fields are left unchanged.
type UpdateSubscriptionRequest struct {
	Keywords          *[]string `json:"keywords,omitempty"`
	ContextPages      *[]string `json:"context_pages,omitempty"`
	MinBudget         *float64  `json:"min_budget,omitempty"`
	MinPriority       *int      `json:"min_priority,omitempty"`
	MinInspectionRate *float64  `json:"min_inspection_rate,omitempty"`
	MinPurchaseRate   *float64  `json:"min_purchase_rate,omitempty"`
	BuyerType         *string   `json:"buyer_type,omitempty"`
	AgeLimitSeconds   *int64    `json:"age_limit_seconds,omitempty"`
}

// UpdateSubscription patches a subscription the caller owns.
func (c *Client) UpdateSubscription(ctx context.Context, id uuid.UUID, req UpdateSubscriptionRequest) (*Subscription, error) {
	var s Subscription
	if err := c.patch(ctx, "/api/v1/sellers/me/subscriptions/"+id.String(), req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSubscription removes a subscription the caller owns.
func (c *Client) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, "/api/v1/sellers/me/subscriptions/"+id.String())
}

// GetInbox lists the unexpired, unresponded contexts matched to a subscription.
func (c *Client) GetInbox(ctx context.Context, subscriptionID uuid.UUID) ([]*DecisionContext, error) {
	var wrapper struct {
		Contexts []*DecisionContext `json:"contexts"`
	}
	if err := c.get(ctx, "/api/v1/subscriptions/"+subscriptionID.String()+"/inbox", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Contexts, nil
}

// ── Abuse reports ────────────────────────────────────────────────────────

// CreateAbuseReportRequest is the payload for FileAbuseReport.
type CreateAbuseReportRequest struct {
	TargetKind string    `json:"target_kind"`
	TargetID   uuid.UUID `json:"target_id"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details,omitempty"`
}

// AbuseReport mirrors the server's model.AbuseReport JSON shape.
type AbuseReport struct {
	ID             uuid.UUID `json:"id"`
	TargetKind     string    `json:"target_kind"`
	TargetID       uuid.UUID `json:"target_id"`
	ReporterUserID uuid.UUID `json:"reporter_user_id"`
	Reason         string    `json:"reason"`
	Details        string    `json:"details"`
	Status         string    `json:"status"`
	ResolutionNote string    `json:"resolution_note"`
	Score          float64   `json:"score"`
	CreatedAt      time.Time `json:"created_at"`
}

// FileAbuseReport flags an offer or subscription for manual moderator review.
func (c *Client) FileAbuseReport(ctx context.Context, req CreateAbuseReportRequest) (*AbuseReport, error) {
	var r AbuseReport
	if err := c.post(ctx, "/api/v1/abuse-reports", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListAbuseQueue lists open abuse reports for a moderator to triage. Requires
// an admin-role token.
func (c *Client) ListAbuseQueue(ctx context.Context, limit int) ([]*AbuseReport, error) {
	var wrapper struct {
		Reports []*AbuseReport `json:"reports"`
	}
	path := fmt.Sprintf("/api/v1/abuse-reports?limit=%d", limit)
	if err := c.get(ctx, path, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Reports, nil
}

// ResolveAbuseReport resolves or dismisses a report. Requires an admin-role
// token.
func (c *Client) ResolveAbuseReport(ctx context.Context, id uuid.UUID, status, resolutionNote string) error {
	return c.patch(ctx, "/api/v1/abuse-reports/"+id.String(), map[string]string{
		"status": status, "resolution_note": resolutionNote,
	}, nil)
}

// ── low-level HTTP plumbing ──────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.marketBase+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, string(respBytes))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBytes))
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
