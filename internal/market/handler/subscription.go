package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

// CreateSubscription handles POST /sellers/me/subscriptions. The acting
// human seller owns the new subscription.
func (h *Handler) CreateSubscription(c *gin.Context) {
	ownerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetHumanSellerProfile(ctx, ownerID); err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "no seller profile"})
			return
		}
		writeErr(c, err)
		return
	}

	var req model.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := &model.Subscription{
		OwnerKind:         model.SellerKindHuman,
		OwnerID:           ownerID,
		Keywords:          req.Keywords,
		ContextPages:      req.ContextPages,
		MinBudget:         req.MinBudget,
		MinPriority:       req.MinPriority,
		MinInspectionRate: req.MinInspectionRate,
		MinPurchaseRate:   req.MinPurchaseRate,
		BuyerType:         req.BuyerType,
		AgeLimitSeconds:   req.AgeLimitSeconds,
	}
	if err := h.store.CreateSubscription(ctx, sub); err != nil {
		h.logger.Error("create subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.matcher.RefreshBySubscription(ctx, sub.ID, false); err != nil {
		h.logger.Warn("refresh by subscription", zap.Error(err))
	}
	c.JSON(http.StatusCreated, sub)
}

// UpdateSubscription handles PATCH /sellers/me/subscriptions/{id}.
func (h *Handler) UpdateSubscription(c *gin.Context) {
	ownerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	ctx := c.Request.Context()
	sub, err := h.store.GetSubscription(ctx, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	if sub.OwnerID != ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req model.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Keywords != nil {
		sub.Keywords = *req.Keywords
	}
	if req.ContextPages != nil {
		sub.ContextPages = *req.ContextPages
	}
	if req.MinBudget != nil {
		sub.MinBudget = *req.MinBudget
	}
	if req.MinPriority != nil {
		sub.MinPriority = *req.MinPriority
	}
	if req.MinInspectionRate != nil {
		sub.MinInspectionRate = *req.MinInspectionRate
	}
	if req.MinPurchaseRate != nil {
		sub.MinPurchaseRate = *req.MinPurchaseRate
	}
	if req.BuyerType != nil {
		sub.BuyerType = *req.BuyerType
	}
	if req.AgeLimitSeconds != nil {
		sub.AgeLimitSeconds = req.AgeLimitSeconds
	}

	if err := h.store.UpdateSubscription(ctx, sub); err != nil {
		writeErr(c, err)
		return
	}
	// An edited predicate invalidates prior matches: purge and replay.
	if err := h.matcher.RefreshBySubscription(ctx, sub.ID, false); err != nil {
		h.logger.Warn("refresh by subscription", zap.Error(err))
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteSubscription handles DELETE /sellers/me/subscriptions/{id}.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	ownerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	ctx := c.Request.Context()
	sub, err := h.store.GetSubscription(ctx, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	if sub.OwnerID != ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.store.DeleteSubscription(ctx, id); err != nil {
		writeErr(c, err)
		return
	}
	if err := h.matcher.RefreshBySubscription(ctx, id, true); err != nil {
		h.logger.Warn("refresh by subscription on delete", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
