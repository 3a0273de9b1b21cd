package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
)

// CreateBuyerProfile handles POST /buyers. Rejects if the caller already has
// a buyer profile.
func (h *Handler) CreateBuyerProfile(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetBuyerProfile(ctx, userID); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buyer profile already exists"})
		return
	} else if err != repository.ErrNotFound {
		writeErr(c, err)
		return
	}

	var req model.CreateBuyerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b := &model.BuyerProfile{
		UserID:            userID,
		DefaultAgentModel: req.DefaultAgentModel,
		DefaultMaxBudget:  req.DefaultMaxBudget,
	}
	if err := h.store.CreateBuyerProfile(ctx, b); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetMyBuyerProfile handles GET /buyers/me.
func (h *Handler) GetMyBuyerProfile(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	b, err := h.store.GetBuyerProfile(c.Request.Context(), userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateMyBuyerProfile handles PUT /buyers/me.
func (h *Handler) UpdateMyBuyerProfile(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	ctx := c.Request.Context()
	b, err := h.store.GetBuyerProfile(ctx, userID)
	if err != nil {
		writeErr(c, err)
		return
	}

	var req model.UpdateBuyerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DefaultAgentModel != nil {
		b.DefaultAgentModel = *req.DefaultAgentModel
	}
	if req.DefaultMaxBudget != nil {
		b.DefaultMaxBudget = *req.DefaultMaxBudget
	}
	if err := h.store.UpdateBuyerProfileDefaults(ctx, b); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CreateHumanSellerProfile handles POST /sellers. Rejects if the caller
// already has a human-seller profile.
func (h *Handler) CreateHumanSellerProfile(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetHumanSellerProfile(ctx, userID); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seller profile already exists"})
		return
	} else if err != repository.ErrNotFound {
		writeErr(c, err)
		return
	}

	var req model.CreateHumanSellerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &model.HumanSellerProfile{UserID: userID, DisplayName: req.DisplayName}
	if err := h.store.CreateHumanSellerProfile(ctx, p); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetMySellerProfile handles GET /sellers/me.
func (h *Handler) GetMySellerProfile(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	p, err := h.store.GetHumanSellerProfile(c.Request.Context(), userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateMySellerProfile handles PUT /sellers/me.
func (h *Handler) UpdateMySellerProfile(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req model.UpdateHumanSellerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &model.HumanSellerProfile{UserID: userID, DisplayName: req.DisplayName}
	if err := h.store.UpdateHumanSellerProfile(c.Request.Context(), p); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateBotSeller handles POST /bot-sellers. The caller must already have a
// human-seller profile or own at least one other bot seller — a bare buyer
// account cannot spin up a bot without ever registering as a seller.
func (h *Handler) CreateBotSeller(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetHumanSellerProfile(ctx, userID); err != nil {
		if err != repository.ErrNotFound {
			writeErr(c, err)
			return
		}
		existing, err := h.store.ListBotSellersByOwner(ctx, userID)
		if err != nil {
			writeErr(c, err)
			return
		}
		if len(existing) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "must have a seller profile to create bot sellers"})
			return
		}
	}

	var req model.CreateBotSellerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b := &model.BotSellerProfile{
		OwnerID:   userID,
		Name:      req.Name,
		Info:      req.Info,
		Price:     req.Price,
		LLMModel:  req.LLMModel,
		LLMPrompt: req.LLMPrompt,
	}

	if h.scorer != nil {
		pitch := req.Info
		if pitch == "" {
			pitch = req.LLMPrompt
		}
		report, err := h.scorer.Score(ctx, req.Name, pitch)
		if err != nil {
			writeErr(c, err)
			return
		}
		if report.Rejected {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "bot seller registration rejected by risk screening",
				"report": report,
			})
			return
		}
	}

	if err := h.store.CreateBotSellerProfile(ctx, b); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListMyBotSellers handles GET /bot-sellers.
func (h *Handler) ListMyBotSellers(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	bots, err := h.store.ListBotSellersByOwner(c.Request.Context(), userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot_sellers": bots})
}

// GetBotSeller handles GET /bot-sellers/{id}. Only the owner may view it.
func (h *Handler) GetBotSeller(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot seller id"})
		return
	}
	b, err := h.store.GetBotSellerProfile(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	if b.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this bot seller"})
		return
	}
	c.JSON(http.StatusOK, b)
}
