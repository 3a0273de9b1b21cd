package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

// CreateOffer handles POST /contexts/{cid}/offers. Only a human seller may
// post an offer interactively — bot offers are synthesized exclusively by
// BotSellerDispatcher.
func (h *Handler) CreateOffer(c *gin.Context) {
	sellerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	contextID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid context id"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetHumanSellerProfile(ctx, sellerID); err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not a seller"})
			return
		}
		writeErr(c, err)
		return
	}
	if _, err := h.store.GetContext(ctx, contextID); err != nil {
		writeErr(c, err)
		return
	}

	var req model.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offer := &model.InfoOffer{
		SellerKind:  model.SellerKindHuman,
		SellerID:    sellerID,
		ContextID:   contextID,
		PrivateInfo: req.PrivateInfo,
		PublicInfo:  req.PublicInfo,
		Price:       req.Price,
	}
	if err := h.store.CreateOffer(ctx, offer); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeErr(c, err)
			return
		}
		h.logger.Error("create offer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.closeInboxItems(ctx, contextID, sellerID)

	c.JSON(http.StatusCreated, offer.View(true, false))
}

// closeInboxItems transitions the responding seller's inbox rows on a
// context to responded, so the context stops showing up in GET
// /subscriptions/{id}/inbox once an offer has been posted against it.
func (h *Handler) closeInboxItems(ctx context.Context, contextID, sellerID uuid.UUID) {
	items, err := h.store.ListInboxByContext(ctx, contextID)
	if err != nil {
		h.logger.Warn("list inbox for offer close", zap.Error(err))
		return
	}
	for _, item := range items {
		if item.Status != model.InboxStatusNew {
			continue
		}
		sub, err := h.store.GetSubscription(ctx, item.SubscriptionID)
		if err != nil || sub.OwnerKind != model.SellerKindHuman || sub.OwnerID != sellerID {
			continue
		}
		if err := h.store.UpdateInboxStatus(ctx, item.ID, model.InboxStatusResponded); err != nil {
			h.logger.Warn("close inbox item", zap.Error(err))
		}
	}
}

// ListOffers handles GET /contexts/{cid}/offers.
func (h *Handler) ListOffers(c *gin.Context) {
	viewerID, hasViewer := actingUser(c)
	contextID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid context id"})
		return
	}

	ctx := c.Request.Context()
	offers, err := h.store.ListOffersByContext(ctx, contextID)
	if err != nil {
		writeErr(c, err)
		return
	}

	viewerIsBuyer := false
	if hasViewer {
		if dc, err := h.store.GetContext(ctx, contextID); err == nil {
			viewerIsBuyer = dc.BuyerID == viewerID
		}
	}

	projected := make([]*model.InfoOffer, 0, len(offers))
	for _, o := range offers {
		isSeller := hasViewer && o.SellerID == viewerID
		projected = append(projected, o.View(isSeller, viewerIsBuyer && o.Purchased))
	}
	c.JSON(http.StatusOK, gin.H{"offers": projected})
}

// GetOffer handles GET /contexts/{cid}/offers/{oid}.
func (h *Handler) GetOffer(c *gin.Context) {
	viewerID, hasViewer := actingUser(c)
	oid, err := uuid.Parse(c.Param("oid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}

	ctx := c.Request.Context()
	offer, err := h.store.GetOffer(ctx, oid)
	if err != nil {
		writeErr(c, err)
		return
	}
	isSeller := hasViewer && offer.SellerID == viewerID
	viewerPurchased := false
	if hasViewer && offer.Purchased {
		if dc, err := h.store.GetContext(ctx, offer.ContextID); err == nil {
			viewerPurchased = dc.BuyerID == viewerID
		}
	}
	c.JSON(http.StatusOK, offer.View(isSeller, viewerPurchased))
}

// UpdateOffer handles PATCH /contexts/{cid}/offers/{oid}.
func (h *Handler) UpdateOffer(c *gin.Context) {
	sellerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	oid, err := uuid.Parse(c.Param("oid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}

	ctx := c.Request.Context()
	offer, err := h.store.GetOffer(ctx, oid)
	if err != nil {
		writeErr(c, err)
		return
	}
	if offer.SellerID != sellerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the seller of this offer"})
		return
	}

	var req model.UpdateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PrivateInfo != nil {
		offer.PrivateInfo = *req.PrivateInfo
	}
	if req.PublicInfo != nil {
		offer.PublicInfo = *req.PublicInfo
	}
	if req.Price != nil {
		offer.Price = *req.Price
	}

	if err := h.store.UpdateOffer(ctx, offer); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, offer.View(true, false))
}

// DeleteOffer handles DELETE /contexts/{cid}/offers/{oid}.
func (h *Handler) DeleteOffer(c *gin.Context) {
	sellerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	oid, err := uuid.Parse(c.Param("oid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}

	ctx := c.Request.Context()
	offer, err := h.store.GetOffer(ctx, oid)
	if err != nil {
		writeErr(c, err)
		return
	}
	if offer.SellerID != sellerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the seller of this offer"})
		return
	}
	if err := h.store.DeleteOffer(ctx, oid); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": oid})
}
