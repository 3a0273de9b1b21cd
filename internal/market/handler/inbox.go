package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/infomarket/server/internal/market/model"
)

// GetInbox handles GET /subscriptions/{id}/inbox — the list of contexts a
// subscription has matched that are still status=new and unexpired. Bot
// seller inboxes are never user-visible.
func (h *Handler) GetInbox(c *gin.Context) {
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
	if sub.OwnerKind == model.SellerKindBot {
		c.JSON(http.StatusForbidden, gin.H{"error": "bot seller inboxes are not user-visible"})
		return
	}
	if sub.OwnerID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this subscription"})
		return
	}

	items, err := h.store.ListInboxBySubscription(ctx, id, model.InboxStatusNew)
	if err != nil {
		writeErr(c, err)
		return
	}

	now := nowFunc()
	contexts := make([]*model.DecisionContext, 0, len(items))
	for _, item := range items {
		if item.Expired(now) {
			continue
		}
		dc, err := h.store.GetContext(ctx, item.ContextID)
		if err != nil {
			continue
		}
		contexts = append(contexts, dc)
	}
	c.JSON(http.StatusOK, gin.H{"contexts": contexts})
}
