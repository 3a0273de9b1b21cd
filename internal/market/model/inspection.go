package model

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the externally-visible lifecycle of an inspection's task-queue
// job, surfaced by GET /jobs/{id}.
type JobState string

const (
	JobStatePending JobState = "pending"
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateFailed  JobState = "failed"
)

// Inspection is a node in the bounded-recursion inspection tree.
// A non-root node has exactly one predecessor, linked either by
// ElderBrotherID (re-inspecting the same context with expanded knowledge) or
// by being the single child named in its predecessor's ChildContextID
// (spawned against a child context).
type Inspection struct {
	ID                uuid.UUID   `json:"id"                  db:"id"`
	DecisionContextID uuid.UUID   `json:"decision_context_id" db:"decision_context_id"`
	BuyerID           uuid.UUID   `json:"buyer_id"            db:"buyer_id"`
	KnownOffers       []uuid.UUID `json:"known_offers"        db:"known_offers"`
	Purchased         []uuid.UUID `json:"purchased"           db:"purchased"`
	InfoOfferIDs      []uuid.UUID `json:"info_offer_ids"      db:"info_offer_ids"`
	Depth             int         `json:"depth"               db:"depth"`
	Breadth           int         `json:"breadth"             db:"breadth"`
	JobID             uuid.UUID   `json:"job_id"              db:"job_id"`
	ElderBrotherID    *uuid.UUID  `json:"elder_brother_id,omitempty"   db:"elder_brother_id"`
	YoungerBrotherID  *uuid.UUID  `json:"younger_brother_id,omitempty" db:"younger_brother_id"`
	ChildContextID    *uuid.UUID  `json:"child_context_id,omitempty"   db:"child_context_id"`
	CreatedAt         time.Time   `json:"created_at"          db:"created_at"`
}

// IsRoot reports whether this inspection is the root of its tree (depth 0
// and no elder brother).
func (i *Inspection) IsRoot() bool { return i.Depth == 0 && i.ElderBrotherID == nil }

// Job tracks the task-queue-visible status of one inspection run, returned
// by GET /jobs/{id}.
type Job struct {
	ID           uuid.UUID   `json:"id"                    db:"id"`
	InspectionID uuid.UUID   `json:"inspection_id"         db:"inspection_id"`
	State        JobState    `json:"state"                 db:"state"`
	Result       []uuid.UUID `json:"result,omitempty"       db:"result"`
	Traceback    string      `json:"traceback,omitempty"   db:"traceback"`
	CreatedAt    time.Time   `json:"created_at"            db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"            db:"updated_at"`
}

// StartInspectionRequest is the payload for POST /contexts/{id}/inspections.
type StartInspectionRequest struct {
	InfoOfferIDs []uuid.UUID `json:"info_offer_ids" binding:"required"`
}

// RecursionBounds are the depth/breadth limits configured by
// insp_max_depth and insp_max_breadth.
type RecursionBounds struct {
	MaxDepth   int
	MaxBreadth int
}

// DefaultRecursionBounds returns the stock limits (3, 3).
func DefaultRecursionBounds() RecursionBounds {
	return RecursionBounds{MaxDepth: 3, MaxBreadth: 3}
}
