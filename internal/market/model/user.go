package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder — buyer, seller, or both. Credentials (password
// hash, OAuth links) are owned by the thin auth collaborator; this record
// holds only the fields the market touches directly.
type User struct {
	ID               uuid.UUID `json:"id"                 db:"id"`
	Email            string    `json:"email"              db:"email"`
	Username         string    `json:"username"           db:"username"`
	DisplayName      string    `json:"display_name"       db:"display_name"`
	TotalBalance     float64   `json:"total_balance"      db:"total_balance"`
	AvailableBalance float64   `json:"available_balance"  db:"available_balance"`
	LastBonusDate    *string   `json:"last_bonus_date,omitempty" db:"last_bonus_date"` // "2026-07-31"
	DailyBonusAmount float64   `json:"daily_bonus_amount" db:"daily_bonus_amount"`
	APIKeys          APIKeys   `json:"-"                  db:"api_keys"` // provider name -> credential; never serialized
	CreatedAt        time.Time `json:"created_at"         db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"         db:"updated_at"`
}

// APIKeys is an opaque mapping from LLM provider name to credential,
// consulted only by AgentBridge when scoping a per-call credential override.
type APIKeys map[string]string

// CheckBalanceInvariant reports whether 0 <= available_balance <= total_balance.
func (u *User) CheckBalanceInvariant() bool {
	return u.AvailableBalance >= 0 && u.AvailableBalance <= u.TotalBalance
}

// Priority is the two-level decision context priority, {0, 1}.
type Priority int

const (
	PriorityLow  Priority = 0
	PriorityHigh Priority = 1
)

// ValidPriority reports whether p is one of the two defined levels.
func ValidPriority(p Priority) bool {
	return p == PriorityLow || p == PriorityHigh
}

// BuyerProfile holds one buyer's defaults and per-priority counters. The
// derived rates (InspectionRate, PurchaseRate) are never stored — they are
// computed on read from the counters, as consulted by subscription
// predicates (min_inspection_rate, min_purchase_rate).
type BuyerProfile struct {
	UserID            uuid.UUID        `json:"user_id"              db:"user_id"`
	DefaultAgentModel string           `json:"default_agent_model"  db:"default_agent_model"`
	DefaultMaxBudget  float64          `json:"default_max_budget"   db:"default_max_budget"`
	Queries           map[Priority]int `json:"queries"              db:"queries"`
	Inspected         map[Priority]int `json:"inspected"            db:"inspected"`
	Purchased         map[Priority]int `json:"purchased"            db:"purchased"`
	CreatedAt         time.Time        `json:"created_at"           db:"created_at"`
}

// InspectionRate returns inspected[p]/queries[p], or 0 when queries[p] is 0.
func (b *BuyerProfile) InspectionRate(p Priority) float64 {
	q := b.Queries[p]
	if q == 0 {
		return 0
	}
	return float64(b.Inspected[p]) / float64(q)
}

// PurchaseRate returns purchased[p]/queries[p], or 0 when queries[p] is 0.
func (b *BuyerProfile) PurchaseRate(p Priority) float64 {
	q := b.Queries[p]
	if q == 0 {
		return 0
	}
	return float64(b.Purchased[p]) / float64(q)
}

// CreateBuyerProfileRequest is the payload for POST /buyers.
type CreateBuyerProfileRequest struct {
	DefaultAgentModel string  `json:"default_agent_model,omitempty"`
	DefaultMaxBudget  float64 `json:"default_max_budget,omitempty"`
}

// UpdateBuyerProfileRequest is the payload for PUT /buyers/me.
type UpdateBuyerProfileRequest struct {
	DefaultAgentModel *string  `json:"default_agent_model,omitempty"`
	DefaultMaxBudget  *float64 `json:"default_max_budget,omitempty"`
}
