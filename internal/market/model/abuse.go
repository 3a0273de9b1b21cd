package model

import (
	"time"

	"github.com/google/uuid"
)

// AbuseReportStatus represents the lifecycle state of an abuse report.
type AbuseReportStatus string

const (
	AbuseStatusOpen          AbuseReportStatus = "open"
	AbuseStatusInvestigating AbuseReportStatus = "investigating"
	AbuseStatusResolved      AbuseReportStatus = "resolved"
	AbuseStatusDismissed     AbuseReportStatus = "dismissed"
)

// AbuseTargetKind names what kind of entity an abuse report was filed against.
type AbuseTargetKind string

const (
	AbuseTargetOffer        AbuseTargetKind = "offer"
	AbuseTargetSubscription AbuseTargetKind = "subscription"
)

// AbuseReport represents an abuse report filed against an offer or a
// subscription — e.g. a buyer flagging a seller's offer as spam, or a seller
// flagging a subscription owner's predicate as abusive targeting.
type AbuseReport struct {
	ID             uuid.UUID         `json:"id"               db:"id"`
	TargetKind     AbuseTargetKind   `json:"target_kind"      db:"target_kind"`
	TargetID       uuid.UUID         `json:"target_id"        db:"target_id"`
	ReporterUserID uuid.UUID         `json:"reporter_user_id" db:"reporter_user_id"`
	Reason         string            `json:"reason"           db:"reason"`
	Details        string            `json:"details"          db:"details"`
	Status         AbuseReportStatus `json:"status"           db:"status"`
	ResolutionNote string            `json:"resolution_note"  db:"resolution_note"`
	Score          float64           `json:"score"            db:"score"`
	CreatedAt      time.Time         `json:"created_at"       db:"created_at"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy     *uuid.UUID        `json:"resolved_by,omitempty" db:"resolved_by"`
}

// CreateAbuseReportRequest is the payload for filing an abuse report.
type CreateAbuseReportRequest struct {
	TargetKind AbuseTargetKind `json:"target_kind" binding:"required"`
	TargetID   uuid.UUID       `json:"target_id"   binding:"required"`
	Reason     string          `json:"reason"       binding:"required"`
	Details    string          `json:"details"`
}

// ResolveAbuseReportRequest is the payload for resolving/dismissing a report.
type ResolveAbuseReportRequest struct {
	Status         AbuseReportStatus `json:"status"          binding:"required"`
	ResolutionNote string            `json:"resolution_note"`
}
