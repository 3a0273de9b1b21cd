package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/infomarket/server/internal/market/model"
)

// FileAbuseReport handles POST /abuse-reports — files a report against an
// offer or a subscription, rate-limited by AbuseDesk.
func (h *Handler) FileAbuseReport(c *gin.Context) {
	reporterID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req model.CreateAbuseReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.abuse.File(c.Request.Context(), reporterID, &req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ListAbuseQueue handles GET /abuse-reports — the moderator queue of open
// and investigating reports, oldest first.
func (h *Handler) ListAbuseQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	reports, err := h.abuse.Queue(c.Request.Context(), limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// ResolveAbuseReport handles PATCH /abuse-reports/{id} — manual moderator
// resolution; the score recorded is never auto-acted-on.
func (h *Handler) ResolveAbuseReport(c *gin.Context) {
	resolverID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	var req struct {
		model.ResolveAbuseReportRequest
		Score float64 `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.abuse.Resolve(c.Request.Context(), id, resolverID, &req.ResolveAbuseReportRequest, req.Score); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}
