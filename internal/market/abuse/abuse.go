// Package abuse implements manual-resolution abuse reports filed against an
// offer or a subscription, e.g. a buyer flagging a bot seller's offer as
// spam, or a seller flagging a subscription's predicate as predatory
// targeting.
package abuse

import (
	"context"

	"github.com/google/uuid"

	"github.com/infomarket/server/internal/market/model"
)

// maxOpenReportsPerTarget caps how many open reports one reporter may have
// against the same target at once.
const maxOpenReportsPerTarget = 3

// store is the slice of repository.Store the desk depends on.
type store interface {
	CreateAbuseReport(ctx context.Context, r *model.AbuseReport) error
	GetAbuseReport(ctx context.Context, id uuid.UUID) (*model.AbuseReport, error)
	ListAbuseReportsByTarget(ctx context.Context, kind model.AbuseTargetKind, targetID uuid.UUID) ([]*model.AbuseReport, error)
	ListOpenAbuseReports(ctx context.Context, limit int) ([]*model.AbuseReport, error)
	ResolveAbuseReport(ctx context.Context, id uuid.UUID, status model.AbuseReportStatus, note string, score float64, resolvedBy uuid.UUID) error
}

// Desk is AbuseDesk.
type Desk struct {
	store store
}

// New constructs a Desk.
func New(store store) *Desk {
	return &Desk{store: store}
}

// File records a new abuse report, rejecting it if the reporter already has
// maxOpenReportsPerTarget open reports against the same target.
func (d *Desk) File(ctx context.Context, reporterID uuid.UUID, req *model.CreateAbuseReportRequest) (*model.AbuseReport, error) {
	existing, err := d.store.ListAbuseReportsByTarget(ctx, req.TargetKind, req.TargetID)
	if err != nil {
		return nil, err
	}
	open := 0
	for _, r := range existing {
		if r.ReporterUserID == reporterID && (r.Status == model.AbuseStatusOpen || r.Status == model.AbuseStatusInvestigating) {
			open++
		}
	}
	if open >= maxOpenReportsPerTarget {
		return nil, model.Validationf("maximum %d open reports per target", maxOpenReportsPerTarget)
	}

	report := &model.AbuseReport{
		TargetKind:     req.TargetKind,
		TargetID:       req.TargetID,
		ReporterUserID: reporterID,
		Reason:         req.Reason,
		Details:        req.Details,
	}
	if err := d.store.CreateAbuseReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Queue returns open and investigating reports oldest-first, for a
// moderator's review queue.
func (d *Desk) Queue(ctx context.Context, limit int) ([]*model.AbuseReport, error) {
	return d.store.ListOpenAbuseReports(ctx, limit)
}

// ForTarget returns every report filed against a given offer or subscription.
func (d *Desk) ForTarget(ctx context.Context, kind model.AbuseTargetKind, targetID uuid.UUID) ([]*model.AbuseReport, error) {
	return d.store.ListAbuseReportsByTarget(ctx, kind, targetID)
}

// Resolve marks a report resolved, dismissed, or under investigation, with a
// moderator-assigned severity score recorded for audit but not acted on
// automatically — resolution is manual by design.
func (d *Desk) Resolve(ctx context.Context, id uuid.UUID, resolverID uuid.UUID, req *model.ResolveAbuseReportRequest, score float64) error {
	switch req.Status {
	case model.AbuseStatusResolved, model.AbuseStatusDismissed, model.AbuseStatusInvestigating:
	default:
		return model.Validationf("status must be 'resolved', 'dismissed', or 'investigating'")
	}
	return d.store.ResolveAbuseReport(ctx, id, req.Status, req.ResolutionNote, score, resolverID)
}
