package model

import (
	"time"

	"github.com/google/uuid"
)

// SellerKind tags the polymorphic seller reference used on offers and
// subscriptions. The market represents the human/bot split as a tagged
// reference rather than table inheritance — each kind has its own table and
// its own lifecycle.
type SellerKind string

const (
	SellerKindHuman SellerKind = "human"
	SellerKindBot   SellerKind = "bot"
)

// SellerRef is a polymorphic pointer to either a HumanSellerProfile or a
// BotSellerProfile.
type SellerRef struct {
	Kind SellerKind `json:"kind" db:"seller_kind"`
	ID   uuid.UUID  `json:"id"   db:"seller_id"`
}

// HumanSellerProfile is the (at most one per user) human-seller account.
type HumanSellerProfile struct {
	UserID      uuid.UUID `json:"user_id"      db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// BotSellerProfile is one automated seller owned by a user. A user may own
// any number of bot sellers. Exactly one of the two shapes holds:
//
//	fixed-text: Info != "" && Price set
//	LLM-backed: LLMModel != "" && LLMPrompt != ""
//
// enforced by Validate on both insert and update.
type BotSellerProfile struct {
	ID        uuid.UUID `json:"id"         db:"id"`
	OwnerID   uuid.UUID `json:"owner_id"   db:"owner_id"`
	Name      string    `json:"name"       db:"name"`
	Info      string    `json:"info,omitempty"       db:"info"`
	Price     *float64  `json:"price,omitempty"      db:"price"`
	LLMModel  string    `json:"llm_model,omitempty"  db:"llm_model"`
	LLMPrompt string    `json:"llm_prompt,omitempty" db:"llm_prompt"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsFixedText reports whether this bot serves a static payload.
func (b *BotSellerProfile) IsFixedText() bool {
	return b.Info != "" && b.Price != nil
}

// IsLLMBacked reports whether this bot synthesizes replies via an LLM call.
func (b *BotSellerProfile) IsLLMBacked() bool {
	return b.LLMModel != "" && b.LLMPrompt != ""
}

// Validate enforces the exactly-one-shape invariant.
func (b *BotSellerProfile) Validate() error {
	fixed, llm := b.IsFixedText(), b.IsLLMBacked()
	if fixed == llm {
		return &ErrValidation{Msg: "bot seller must be exactly one of fixed-text (info + price) or LLM-backed (llm_model + llm_prompt)"}
	}
	return nil
}

// CreateHumanSellerProfileRequest is the payload for POST /sellers.
type CreateHumanSellerProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// UpdateHumanSellerProfileRequest is the payload for PUT /sellers/me.
type UpdateHumanSellerProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// CreateBotSellerProfileRequest is the payload for POST /bot-sellers. Mirrors
// BotSellerProfile's exactly-one-shape invariant at the wire level.
type CreateBotSellerProfileRequest struct {
	Name      string   `json:"name" binding:"required"`
	Info      string   `json:"info,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	LLMModel  string   `json:"llm_model,omitempty"`
	LLMPrompt string   `json:"llm_prompt,omitempty"`
}
