package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subscription (a.k.a. SellerMatcher in the source material) is a seller's
// standing predicate over incoming decision contexts. A nil/empty predicate
// field means "no constraint" on that axis.
type Subscription struct {
	ID                uuid.UUID  `json:"id"                   db:"id"`
	OwnerKind         SellerKind `json:"owner_kind"           db:"owner_kind"`
	OwnerID           uuid.UUID  `json:"owner_id"             db:"owner_id"`
	Keywords          []string   `json:"keywords,omitempty"           db:"keywords"`
	ContextPages      []string   `json:"context_pages,omitempty"      db:"context_pages"`
	MinBudget         float64    `json:"min_budget"           db:"min_budget"`
	MinPriority       Priority   `json:"min_priority"         db:"min_priority"`
	MinInspectionRate float64    `json:"min_inspection_rate"  db:"min_inspection_rate"`
	MinPurchaseRate   float64    `json:"min_purchase_rate"    db:"min_purchase_rate"`
	BuyerType         string     `json:"buyer_type,omitempty"         db:"buyer_type"`
	AgeLimitSeconds   *int64     `json:"age_limit_seconds,omitempty"  db:"age_limit_seconds"`
	CreatedAt         time.Time  `json:"created_at"           db:"created_at"`
}

// CreateSubscriptionRequest is the payload for POST /sellers/me/subscriptions.
type CreateSubscriptionRequest struct {
	Keywords          []string `json:"keywords,omitempty"`
	ContextPages      []string `json:"context_pages,omitempty"`
	MinBudget         float64  `json:"min_budget"`
	MinPriority       Priority `json:"min_priority"`
	MinInspectionRate float64  `json:"min_inspection_rate"`
	MinPurchaseRate   float64  `json:"min_purchase_rate"`
	BuyerType         string   `json:"buyer_type,omitempty"`
	AgeLimitSeconds   *int64   `json:"age_limit_seconds,omitempty"`
}

// UpdateSubscriptionRequest is the payload for PATCH /sellers/me/subscriptions/{id}.
// Every field is optional; nil means "leave unchanged".
type UpdateSubscriptionRequest struct {
	Keywords          *[]string `json:"keywords,omitempty"`
	ContextPages      *[]string `json:"context_pages,omitempty"`
	MinBudget         *float64  `json:"min_budget,omitempty"`
	MinPriority       *Priority `json:"min_priority,omitempty"`
	MinInspectionRate *float64  `json:"min_inspection_rate,omitempty"`
	MinPurchaseRate   *float64  `json:"min_purchase_rate,omitempty"`
	BuyerType         *string   `json:"buyer_type,omitempty"`
	AgeLimitSeconds   *int64    `json:"age_limit_seconds,omitempty"`
}

// Matches runs the predicate evaluation: age limit, buyer type, buyer
// rates, keywords, then pages. The cheap numeric prefilter is applied by
// the repository before rows ever reach this function, and inbox row
// insertion is the caller's responsibility.
func (s *Subscription) Matches(ctx *DecisionContext, buyer *BuyerProfile, now time.Time) bool {
	if s.AgeLimitSeconds != nil {
		age := now.Sub(ctx.CreatedAt).Seconds()
		if age > float64(*s.AgeLimitSeconds) {
			return false
		}
	}

	if s.BuyerType != "" && s.BuyerType != "human_buyer" {
		return false
	}

	if buyer.InspectionRate(ctx.Priority) < s.MinInspectionRate {
		return false
	}
	if buyer.PurchaseRate(ctx.Priority) < s.MinPurchaseRate {
		return false
	}

	if len(s.Keywords) > 0 {
		text := strings.ToLower(ctx.Query)
		found := false
		for _, kw := range s.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(s.ContextPages) > 0 {
		found := false
		for _, p := range s.ContextPages {
			for _, cp := range ctx.ContextPages {
				if p == cp {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// PassesBudgetPrefilter is the cheap numeric-floor check,
// pushed down to SQL by the repository but exposed here too for
// refresh-by-context and the bot dispatcher, which re-check each subscription
// the repository returned.
func (s *Subscription) PassesBudgetPrefilter(ctx *DecisionContext) bool {
	return ctx.MaxBudget >= s.MinBudget && ctx.Priority >= s.MinPriority
}
