package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/market/model"
)

// CreateInspection inserts a new inspection-tree node within tx. Balance
// changes are not part of tx; the balance keeper runs its own transactions.
func (s *Store) CreateInspection(ctx context.Context, tx pgx.Tx, insp *model.Inspection) error {
	insp.ID = uuid.New()
	insp.CreatedAt = time.Now().UTC()
	_, err := tx.Exec(ctx, `INSERT INTO inspections (
		id, decision_context_id, buyer_id, known_offers, purchased, info_offer_ids,
		depth, breadth, job_id, elder_brother_id, younger_brother_id, child_context_id, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		insp.ID, insp.DecisionContextID, insp.BuyerID, insp.KnownOffers, insp.Purchased,
		insp.InfoOfferIDs, insp.Depth, insp.Breadth, insp.JobID, insp.ElderBrotherID,
		insp.YoungerBrotherID, insp.ChildContextID, insp.CreatedAt,
	)
	return err
}

// GetInspection retrieves an inspection node by id.
func (s *Store) GetInspection(ctx context.Context, id uuid.UUID) (*model.Inspection, error) {
	rows, err := s.db.Query(ctx, `SELECT id, decision_context_id, buyer_id, known_offers, purchased,
		info_offer_ids, depth, breadth, job_id, elder_brother_id, younger_brother_id,
		child_context_id, created_at FROM inspections WHERE id = $1`, id)
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
	return scanInspectionRow(rows)
}

func scanInspectionRow(rows pgx.Rows) (*model.Inspection, error) {
	var insp model.Inspection
	if err := rows.Scan(&insp.ID, &insp.DecisionContextID, &insp.BuyerID, &insp.KnownOffers,
		&insp.Purchased, &insp.InfoOfferIDs, &insp.Depth, &insp.Breadth, &insp.JobID,
		&insp.ElderBrotherID, &insp.YoungerBrotherID, &insp.ChildContextID, &insp.CreatedAt); err != nil {
		return nil, err
	}
	return &insp, nil
}

// UpdateInspectionResult persists the purchased list and the spawned child
// context link once a recursion step completes, within tx.
func (s *Store) UpdateInspectionResult(ctx context.Context, tx pgx.Tx, insp *model.Inspection) error {
	tag, err := tx.Exec(ctx, `UPDATE inspections SET purchased = $2, younger_brother_id = $3,
		child_context_id = $4 WHERE id = $1`,
		insp.ID, insp.Purchased, insp.YoungerBrotherID, insp.ChildContextID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListInspectionsByContext returns every inspection node recorded against a
// context, used to compute already-inspected offer ids for a fresh run.
func (s *Store) ListInspectionsByContext(ctx context.Context, contextID uuid.UUID) ([]*model.Inspection, error) {
	rows, err := s.db.Query(ctx, `SELECT id, decision_context_id, buyer_id, known_offers, purchased,
		info_offer_ids, depth, breadth, job_id, elder_brother_id, younger_brother_id,
		child_context_id, created_at FROM inspections WHERE decision_context_id = $1 ORDER BY created_at ASC`,
		contextID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Inspection
	for rows.Next() {
		insp, err := scanInspectionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, insp)
	}
	return out, rows.Err()
}

// CreateJob inserts the task-queue-visible tracking row for an inspection run.
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	if job.State == "" {
		job.State = model.JobStatePending
	}
	_, err := s.db.Exec(ctx, `INSERT INTO jobs (
		id, inspection_id, state, result, traceback, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		job.ID, job.InspectionID, job.State, job.Result, job.Traceback, job.CreatedAt, job.UpdatedAt,
	)
	return err
}

// GetJob retrieves a job by id, for GET /jobs/{id}.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	err := s.db.QueryRow(ctx, `SELECT id, inspection_id, state, result, traceback, created_at,
		updated_at FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.InspectionID, &job.State, &job.Result, &job.Traceback, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// UpdateJobState transitions a job's state, optionally attaching a result or
// a failure traceback. Called by the task-queue worker at each lifecycle edge.
func (s *Store) UpdateJobState(ctx context.Context, id uuid.UUID, state model.JobState, result []uuid.UUID, traceback string) error {
	tag, err := s.db.Exec(ctx, `UPDATE jobs SET state = $2, result = $3, traceback = $4, updated_at = $5
		WHERE id = $1`, id, state, result, traceback, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
