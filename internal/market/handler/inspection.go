package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infomarket/server/internal/market/model"
)

// StartInspection handles POST /contexts/{id}/inspections — creates the
// root inspection node and its job-status row, then hands off to the task
// queue so the HTTP request returns before the (potentially multi-second,
// recursive) inspection run completes.
func (h *Handler) StartInspection(c *gin.Context) {
	buyerID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	contextID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid context id"})
		return
	}

	var req model.StartInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.InfoOfferIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "info_offer_ids must be non-empty"})
		return
	}

	ctx := c.Request.Context()
	dc, err := h.store.GetContext(ctx, contextID)
	if err != nil {
		writeErr(c, err)
		return
	}
	if dc.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the buyer of this context"})
		return
	}

	jobID := uuid.New()
	insp := &model.Inspection{
		DecisionContextID: contextID,
		BuyerID:           buyerID,
		InfoOfferIDs:      req.InfoOfferIDs,
		Depth:             0,
		Breadth:           0,
		JobID:             jobID,
	}

	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		h.logger.Error("begin tx", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer tx.Rollback(ctx)

	if err := h.store.CreateInspection(ctx, tx, insp); err != nil {
		h.logger.Error("create inspection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit inspection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	job := &model.Job{ID: jobID, InspectionID: insp.ID, State: model.JobStatePending}
	if err := h.store.CreateJob(ctx, job); err != nil {
		h.logger.Error("create job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if h.queue != nil {
		if err := h.queue.EnqueueInspect(ctx, insp.ID); err != nil {
			h.logger.Error("enqueue inspect", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule inspection"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"inspection": insp, "job_id": jobID})
}
