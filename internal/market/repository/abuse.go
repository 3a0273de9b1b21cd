package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/market/model"
)

// CreateAbuseReport inserts a new report against an offer or subscription.
func (s *Store) CreateAbuseReport(ctx context.Context, r *model.AbuseReport) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	if r.Status == "" {
		r.Status = model.AbuseStatusOpen
	}
	_, err := s.db.Exec(ctx, `INSERT INTO abuse_reports (
		id, target_kind, target_id, reporter_user_id, reason, details, status,
		resolution_note, score, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.TargetKind, r.TargetID, r.ReporterUserID, r.Reason, r.Details, r.Status,
		r.ResolutionNote, r.Score, r.CreatedAt,
	)
	return err
}

// GetAbuseReport retrieves a report by id.
func (s *Store) GetAbuseReport(ctx context.Context, id uuid.UUID) (*model.AbuseReport, error) {
	return s.scanAbuseReport(ctx, `SELECT id, target_kind, target_id, reporter_user_id, reason,
		details, status, resolution_note, score, created_at, resolved_at, resolved_by
		FROM abuse_reports WHERE id = $1`, id)
}

func (s *Store) scanAbuseReport(ctx context.Context, query string, args ...any) (*model.AbuseReport, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanAbuseReportRow(rows)
}

func scanAbuseReportRow(rows pgx.Rows) (*model.AbuseReport, error) {
	var r model.AbuseReport
	if err := rows.Scan(&r.ID, &r.TargetKind, &r.TargetID, &r.ReporterUserID, &r.Reason,
		&r.Details, &r.Status, &r.ResolutionNote, &r.Score, &r.CreatedAt, &r.ResolvedAt,
		&r.ResolvedBy); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListAbuseReportsByTarget returns every report filed against a given offer or subscription.
func (s *Store) ListAbuseReportsByTarget(ctx context.Context, kind model.AbuseTargetKind, targetID uuid.UUID) ([]*model.AbuseReport, error) {
	rows, err := s.db.Query(ctx, `SELECT id, target_kind, target_id, reporter_user_id, reason,
		details, status, resolution_note, score, created_at, resolved_at, resolved_by
		FROM abuse_reports WHERE target_kind = $1 AND target_id = $2 ORDER BY created_at DESC`,
		kind, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AbuseReport
	for rows.Next() {
		r, err := scanAbuseReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOpenAbuseReports returns reports awaiting review, oldest first, for the
// abuse desk's scoring queue.
func (s *Store) ListOpenAbuseReports(ctx context.Context, limit int) ([]*model.AbuseReport, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT id, target_kind, target_id, reporter_user_id, reason,
		details, status, resolution_note, score, created_at, resolved_at, resolved_by
		FROM abuse_reports WHERE status IN ('open', 'investigating')
		ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AbuseReport
	for rows.Next() {
		r, err := scanAbuseReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResolveAbuseReport marks a report resolved/dismissed with a resolution note
// and score, recording who resolved it and when.
func (s *Store) ResolveAbuseReport(ctx context.Context, id uuid.UUID, status model.AbuseReportStatus, note string, score float64, resolvedBy uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `UPDATE abuse_reports SET status = $2, resolution_note = $3,
		score = $4, resolved_at = $5, resolved_by = $6 WHERE id = $1`,
		id, status, note, score, now, resolvedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
