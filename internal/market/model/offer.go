package model

import (
	"time"

	"github.com/google/uuid"
)

// InfoOffer is one seller's priced candidate reply to one context. Ownership
// is by context: deleting a context deletes its offers.
type InfoOffer struct {
	ID          uuid.UUID  `json:"id"                   db:"id"`
	SellerKind  SellerKind `json:"seller_kind"          db:"seller_kind"`
	SellerID    uuid.UUID  `json:"seller_id"            db:"seller_id"`
	ContextID   uuid.UUID  `json:"context_id"           db:"context_id"`
	PrivateInfo string     `json:"private_info,omitempty" db:"private_info"`
	PublicInfo  string     `json:"public_info"          db:"public_info"`
	Price       float64    `json:"price"                db:"price"`
	CreatedAt   time.Time  `json:"created_at"           db:"created_at"`
	// Inspected and Purchased are monotonic: both start false; Inspected may
	// be set without Purchased, never the reverse.
	Inspected bool `json:"inspected" db:"inspected"`
	Purchased bool `json:"purchased" db:"purchased"`
}

// SellerRef returns the tagged seller reference for this offer.
func (o *InfoOffer) SellerRef() SellerRef {
	return SellerRef{Kind: o.SellerKind, ID: o.SellerID}
}

// View projects an offer for a given viewer: private_info is included only
// when the viewer is the offer's seller or has purchased it.
func (o *InfoOffer) View(viewerIsSeller, viewerPurchased bool) *InfoOffer {
	v := *o
	if !viewerIsSeller && !viewerPurchased {
		v.PrivateInfo = ""
	}
	return &v
}

// CreateOfferRequest is the payload for POST /contexts/{cid}/offers.
type CreateOfferRequest struct {
	PrivateInfo string  `json:"private_info" binding:"required"`
	PublicInfo  string  `json:"public_info,omitempty"`
	Price       float64 `json:"price" binding:"required,gte=0"`
}

// UpdateOfferRequest is the payload for PATCH /contexts/{cid}/offers/{oid}.
type UpdateOfferRequest struct {
	PrivateInfo *string  `json:"private_info,omitempty"`
	PublicInfo  *string  `json:"public_info,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}
