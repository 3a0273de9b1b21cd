package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

// CreateContext handles POST /contexts.
func (h *Handler) CreateContext(c *gin.Context) {
	buyerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req model.CreateContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeErr(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetBuyerProfile(ctx, buyerID); err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no buyer profile"})
			return
		}
		h.logger.Error("get buyer profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	dc := &model.DecisionContext{
		Query:        req.Query,
		ContextPages: req.Pages,
		BuyerID:      buyerID,
		MaxBudget:    req.MaxBudget,
		Priority:     req.Priority,
	}
	if req.SellerTargets != nil {
		dc.TargetHumanSellerIDs = req.SellerTargets.HumanSellerIDs
		dc.TargetBotSellerIDs = req.SellerTargets.BotSellerIDs
	}

	if err := h.store.CreateContext(ctx, dc); err != nil {
		h.logger.Error("create context", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := h.balance.Escrow(ctx, buyerID, dc.ID, dc.MaxBudget); err != nil {
		_ = h.store.DeleteContext(ctx, dc.ID)
		writeErr(c, err)
		return
	}

	if err := h.bumpQueriesCounter(ctx, buyerID, dc.Priority); err != nil {
		h.logger.Warn("increment queries counter", zap.Error(err))
	}

	if h.queue != nil {
		if err := h.queue.EnqueueFanout(ctx, dc.ID); err != nil {
			h.logger.Warn("enqueue fanout", zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, dc)
}

// bumpQueriesCounter increments the buyer's queries[priority] counter, once
// per root context created. Children spawned by the inspection engine never
// pass through here, which keeps the count per-root by construction.
func (h *Handler) bumpQueriesCounter(ctx context.Context, buyerID uuid.UUID, priority model.Priority) error {
	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := h.store.IncrementBuyerCounter(ctx, tx, buyerID, "queries", priority); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListContexts handles GET /contexts, returning the caller's own root
// contexts newest-first.
func (h *Handler) ListContexts(c *gin.Context) {
	buyerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	contexts, err := h.store.ListContextsByBuyer(c.Request.Context(), buyerID, limit, offset)
	if err != nil {
		h.logger.Error("list contexts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contexts": contexts})
}

// GetContext handles GET /contexts/{id}. Child (recursive) contexts are
// never directly addressable — they exist only as inspection-engine state.
func (h *Handler) GetContext(c *gin.Context) {
	buyerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid context id"})
		return
	}

	dc, err := h.store.GetContext(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	if !dc.IsRoot() {
		c.JSON(http.StatusForbidden, gin.H{"error": "recursive contexts are not directly accessible"})
		return
	}
	if dc.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the buyer of this context"})
		return
	}
	c.JSON(http.StatusOK, dc)
}

// UpdateContext handles PATCH /contexts/{id}.
func (h *Handler) UpdateContext(c *gin.Context) {
	buyerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid context id"})
		return
	}

	ctx := c.Request.Context()
	dc, err := h.store.GetContext(ctx, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	if dc.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the buyer of this context"})
		return
	}

	var req model.UpdateContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Query != nil {
		dc.Query = *req.Query
	}
	if req.Pages != nil {
		dc.ContextPages = *req.Pages
	}

	if err := h.store.UpdateContext(ctx, dc); err != nil {
		writeErr(c, err)
		return
	}
	if h.queue != nil {
		if err := h.queue.EnqueueFanout(ctx, dc.ID); err != nil {
			h.logger.Warn("enqueue fanout", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, dc)
}

// DeleteContext handles DELETE /contexts/{id}.
func (h *Handler) DeleteContext(c *gin.Context) {
	buyerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid context id"})
		return
	}

	ctx := c.Request.Context()
	dc, err := h.store.GetContext(ctx, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	if dc.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the buyer of this context"})
		return
	}

	if h.cancels != nil {
		if insps, err := h.store.ListInspectionsByContext(ctx, id); err == nil {
			for _, insp := range insps {
				if insp.IsRoot() {
					h.cancels.Cancel(insp.ID)
				}
			}
		}
	}

	if err := h.store.DeleteContext(ctx, id); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
