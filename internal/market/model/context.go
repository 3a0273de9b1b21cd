package model

import (
	"time"

	"github.com/google/uuid"
)

// DecisionContext is the unit of work: a buyer's priced request for
// information, optionally scoped to a set of URL pages.
type DecisionContext struct {
	ID                   uuid.UUID   `json:"id"                         db:"id"`
	Query                string      `json:"query,omitempty"            db:"query"`
	ContextPages         []string    `json:"context_pages,omitempty"    db:"context_pages"`
	BuyerID              uuid.UUID   `json:"buyer_id"                   db:"buyer_id"`
	MaxBudget            float64     `json:"max_budget"                 db:"max_budget"`
	Priority             Priority    `json:"priority"                   db:"priority"`
	CreatedAt            time.Time   `json:"created_at"                 db:"created_at"`
	TargetHumanSellerIDs []uuid.UUID `json:"target_human_seller_ids,omitempty" db:"target_human_seller_ids"`
	TargetBotSellerIDs   []uuid.UUID `json:"target_bot_seller_ids,omitempty"   db:"target_bot_seller_ids"`
	ParentID             *uuid.UUID  `json:"parent_id,omitempty"        db:"parent_id"`
	// ParentOffers is the set of offer ids from the parent context this
	// child was spawned to clarify. Only populated on non-root contexts.
	ParentOffers []uuid.UUID `json:"parent_offers,omitempty" db:"parent_offers"`
}

// IsRoot reports whether this is a top-level context (parent_id is NULL).
func (c *DecisionContext) IsRoot() bool { return c.ParentID == nil }

// HasDirectTargets reports whether direct seller targeting bypasses matcher
// fan-out for this context.
func (c *DecisionContext) HasDirectTargets() bool {
	return len(c.TargetHumanSellerIDs) > 0 || len(c.TargetBotSellerIDs) > 0
}

// CreateContextRequest is the payload for POST /contexts.
type CreateContextRequest struct {
	Query         string         `json:"query,omitempty"`
	Pages         []string       `json:"pages,omitempty"`
	MaxBudget     float64        `json:"max_budget" binding:"required,gt=0"`
	Priority      Priority       `json:"priority"`
	SellerTargets *SellerTargets `json:"seller_targets,omitempty"`
}

// SellerTargets lists direct-dispatch seller ids, bypassing matcher fan-out.
type SellerTargets struct {
	HumanSellerIDs []uuid.UUID `json:"human_seller_ids,omitempty"`
	BotSellerIDs   []uuid.UUID `json:"bot_seller_ids,omitempty"`
}

// UpdateContextRequest is the payload for PATCH /contexts/{id}.
type UpdateContextRequest struct {
	Query *string   `json:"query,omitempty"`
	Pages *[]string `json:"pages,omitempty"`
}

// Validate checks context-creation invariants not already enforced by binding tags.
func (r *CreateContextRequest) Validate() error {
	if !ValidPriority(r.Priority) {
		return Validationf("priority must be 0 or 1")
	}
	if r.MaxBudget <= 0 {
		return Validationf("max_budget must be positive")
	}
	return nil
}
