// Package handler implements the HTTP surface: gin routes
// for contexts, offers, subscriptions, inbox, inspections, jobs and abuse
// reports, wired to the service layer underneath. Authorization is by
// ownership — a context only by its buyer, an offer only by its seller, a
// subscription only by its owning seller — enforced here rather than in the
// services below: auth checks live in the handler layer, business rules
// in the services.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/identity"
	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
	"github.com/infomarket/server/internal/threat"
)

// store is the slice of repository.Store the handler depends on.
type store interface {
	CreateContext(ctx context.Context, c *model.DecisionContext) error
	GetContext(ctx context.Context, id uuid.UUID) (*model.DecisionContext, error)
	UpdateContext(ctx context.Context, c *model.DecisionContext) error
	DeleteContext(ctx context.Context, id uuid.UUID) error
	ListContextsByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*model.DecisionContext, error)

	CreateOffer(ctx context.Context, o *model.InfoOffer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*model.InfoOffer, error)
	ListOffersByContext(ctx context.Context, contextID uuid.UUID) ([]*model.InfoOffer, error)
	UpdateOffer(ctx context.Context, o *model.InfoOffer) error
	DeleteOffer(ctx context.Context, id uuid.UUID) error

	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	DeleteSubscription(ctx context.Context, id uuid.UUID) error

	ListInboxBySubscription(ctx context.Context, subscriptionID uuid.UUID, status model.InboxStatus) ([]*model.InboxItem, error)
	ListInboxByContext(ctx context.Context, contextID uuid.UUID) ([]*model.InboxItem, error)
	UpdateInboxStatus(ctx context.Context, id uuid.UUID, status model.InboxStatus) error

	ListInspectionsByContext(ctx context.Context, contextID uuid.UUID) ([]*model.Inspection, error)
	CreateInspection(ctx context.Context, tx pgx.Tx, insp *model.Inspection) error
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error)

	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	IncrementBuyerCounter(ctx context.Context, tx pgx.Tx, userID uuid.UUID, column string, priority model.Priority) error
	CreateBuyerProfile(ctx context.Context, b *model.BuyerProfile) error
	GetBuyerProfile(ctx context.Context, userID uuid.UUID) (*model.BuyerProfile, error)
	UpdateBuyerProfileDefaults(ctx context.Context, b *model.BuyerProfile) error
	CreateHumanSellerProfile(ctx context.Context, p *model.HumanSellerProfile) error
	GetHumanSellerProfile(ctx context.Context, userID uuid.UUID) (*model.HumanSellerProfile, error)
	UpdateHumanSellerProfile(ctx context.Context, p *model.HumanSellerProfile) error
	CreateBotSellerProfile(ctx context.Context, b *model.BotSellerProfile) error
	GetBotSellerProfile(ctx context.Context, id uuid.UUID) (*model.BotSellerProfile, error)
	ListBotSellersByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.BotSellerProfile, error)
}

// balanceKeeper is the slice of balance.Keeper the handler depends on.
type balanceKeeper interface {
	Escrow(ctx context.Context, userID, contextID uuid.UUID, amount float64) error
}

// matcherIndex is the slice of matcher.Index the handler depends on, used to
// replay subscription matches synchronously on subscription mutation (the
// task queue only carries context fan-out, bot dispatch and inspection
// tasks).
type matcherIndex interface {
	RefreshBySubscription(ctx context.Context, subscriptionID uuid.UUID, deleted bool) error
}

// taskQueue is the slice of queue.Client the handler depends on.
type taskQueue interface {
	EnqueueFanout(ctx context.Context, contextID uuid.UUID) error
	EnqueueInspect(ctx context.Context, inspectionID uuid.UUID) error
}

// canceller is the slice of inspection.CancelRegistry the handler depends
// on, letting context deletion cooperatively cancel an in-flight inspection
// job. The escrow refund itself happens on the engine's normal settlement
// path once the cancelled run unwinds.
type canceller interface {
	Cancel(id uuid.UUID) bool
}

// abuseDesk is the slice of abuse.Desk the handler depends on.
type abuseDesk interface {
	File(ctx context.Context, reporterID uuid.UUID, req *model.CreateAbuseReportRequest) (*model.AbuseReport, error)
	Queue(ctx context.Context, limit int) ([]*model.AbuseReport, error)
	Resolve(ctx context.Context, id uuid.UUID, resolverID uuid.UUID, req *model.ResolveAbuseReportRequest, score float64) error
}

// Handler serves the market's HTTP command surface.
type Handler struct {
	store   store
	balance balanceKeeper
	matcher matcherIndex
	queue   taskQueue
	abuse   abuseDesk
	cancels canceller
	tokens  *identity.UserTokenIssuer
	scorer  threat.Scorer
	logger  *zap.Logger
}

// New constructs a Handler. tokens may be nil to disable auth enforcement
// (used by integration tests exercising the handler directly). cancels may
// be nil, in which case context deletion no longer cooperatively cancels an
// in-flight inspection (it still deletes the context row). scorer may be nil
// to skip pre-flight risk screening of new seller registrations.
func New(store store, balance balanceKeeper, matcher matcherIndex, queue taskQueue, abuse abuseDesk, cancels canceller, tokens *identity.UserTokenIssuer, scorer threat.Scorer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, balance: balance, matcher: matcher, queue: queue, abuse: abuse, cancels: cancels, tokens: tokens, scorer: scorer, logger: logger}
}

// Register mounts every market route on the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	auth := h.requireUserToken()

	contexts := rg.Group("/contexts")
	contexts.Use(auth)
	{
		contexts.POST("", h.CreateContext)
		contexts.GET("", h.ListContexts)
		contexts.GET("/:id", h.GetContext)
		contexts.PATCH("/:id", h.UpdateContext)
		contexts.DELETE("/:id", h.DeleteContext)

		contexts.POST("/:id/offers", h.CreateOffer)
		contexts.GET("/:id/offers", h.ListOffers)
		contexts.GET("/:id/offers/:oid", h.GetOffer)
		contexts.PATCH("/:id/offers/:oid", h.UpdateOffer)
		contexts.DELETE("/:id/offers/:oid", h.DeleteOffer)

		contexts.POST("/:id/inspections", h.StartInspection)
	}

	rg.POST("/buyers", auth, h.CreateBuyerProfile)
	rg.GET("/buyers/me", auth, h.GetMyBuyerProfile)
	rg.PUT("/buyers/me", auth, h.UpdateMyBuyerProfile)

	rg.POST("/sellers", auth, h.CreateHumanSellerProfile)
	rg.GET("/sellers/me", auth, h.GetMySellerProfile)
	rg.PUT("/sellers/me", auth, h.UpdateMySellerProfile)

	botSellers := rg.Group("/bot-sellers")
	botSellers.Use(auth)
	{
		botSellers.POST("", h.CreateBotSeller)
		botSellers.GET("", h.ListMyBotSellers)
		botSellers.GET("/:id", h.GetBotSeller)
	}

	sellers := rg.Group("/sellers/me/subscriptions")
	sellers.Use(auth)
	{
		sellers.POST("", h.CreateSubscription)
		sellers.PATCH("/:id", h.UpdateSubscription)
		sellers.DELETE("/:id", h.DeleteSubscription)
	}

	rg.GET("/subscriptions/:id/inbox", auth, h.GetInbox)
	rg.GET("/jobs/:id", auth, h.GetJob)

	abuseGroup := rg.Group("/abuse-reports")
	{
		abuseGroup.POST("", auth, h.FileAbuseReport)
		abuseGroup.GET("", h.requireAdmin(), h.ListAbuseQueue)
		abuseGroup.PATCH("/:id", h.requireAdmin(), h.ResolveAbuseReport)
	}
}

func (h *Handler) requireUserToken() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return identity.RequireUserToken(h.tokens)
}

// requireAdmin gates the abuse moderation queue (AbuseDesk.Queue/Resolve) on
// an admin-role token; filing a report (FileAbuseReport) stays open to any
// authenticated user.
func (h *Handler) requireAdmin() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return identity.RequireAdmin(h.tokens)
}

// actingUser returns the authenticated caller's user id, or uuid.Nil with ok
// false when no token was presented (only possible when auth is disabled).
func actingUser(c *gin.Context) (uuid.UUID, bool) {
	claims := identity.UserClaimsFromCtx(c)
	if claims == nil {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// writeErr maps a service-layer error onto its HTTP status.
func writeErr(c *gin.Context, err error) {
	var valErr *model.ErrValidation
	var authErr *model.ErrAuthorization
	var fundsErr *model.ErrInsufficientFunds
	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
	case errors.As(err, &authErr):
		c.JSON(http.StatusForbidden, gin.H{"error": authErr.Msg})
	case errors.As(err, &fundsErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": fundsErr.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
