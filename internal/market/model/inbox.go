package model

import (
	"time"

	"github.com/google/uuid"
)

// InboxStatus is the materialized lifecycle of a (subscription, context) match.
type InboxStatus string

const (
	InboxStatusNew       InboxStatus = "new"
	InboxStatusIgnored   InboxStatus = "ignored"
	InboxStatusResponded InboxStatus = "responded"
)

// InboxItem is a materialized match between a subscription and a context. It
// exists only as long as both the owning subscription and the context exist
// (cascade delete on either).
type InboxItem struct {
	ID             uuid.UUID   `json:"id"              db:"id"`
	SubscriptionID uuid.UUID   `json:"subscription_id" db:"subscription_id"`
	ContextID      uuid.UUID   `json:"context_id"      db:"context_id"`
	Status         InboxStatus `json:"status"          db:"status"`
	CreatedAt      time.Time   `json:"created_at"      db:"created_at"`
	ExpiresAt      *time.Time  `json:"expires_at,omitempty" db:"expires_at"`
}

// Expired reports whether the inbox item is past its expiry at time now.
func (i *InboxItem) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}
