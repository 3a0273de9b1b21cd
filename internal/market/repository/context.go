package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/market/model"
)

// CreateContext inserts a new decision context.
func (s *Store) CreateContext(ctx context.Context, c *model.DecisionContext) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO decision_contexts (
		id, query, context_pages, buyer_id, max_budget, priority, created_at,
		target_human_seller_ids, target_bot_seller_ids, parent_id, parent_offers
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.Query, c.ContextPages, c.BuyerID, c.MaxBudget, c.Priority, c.CreatedAt,
		c.TargetHumanSellerIDs, c.TargetBotSellerIDs, c.ParentID, c.ParentOffers,
	)
	return err
}

// GetContext retrieves a context by id.
func (s *Store) GetContext(ctx context.Context, id uuid.UUID) (*model.DecisionContext, error) {
	return s.scanContext(ctx, `SELECT id, query, context_pages, buyer_id, max_budget, priority,
		created_at, target_human_seller_ids, target_bot_seller_ids, parent_id, parent_offers
		FROM decision_contexts WHERE id = $1`, id)
}

func (s *Store) scanContext(ctx context.Context, query string, args ...any) (*model.DecisionContext, error) {
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
	return scanContextRow(rows)
}

func scanContextRow(rows pgx.Rows) (*model.DecisionContext, error) {
	var c model.DecisionContext
	if err := rows.Scan(&c.ID, &c.Query, &c.ContextPages, &c.BuyerID, &c.MaxBudget, &c.Priority,
		&c.CreatedAt, &c.TargetHumanSellerIDs, &c.TargetBotSellerIDs, &c.ParentID, &c.ParentOffers); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContext applies a partial update to query/pages.
func (s *Store) UpdateContext(ctx context.Context, c *model.DecisionContext) error {
	tag, err := s.db.Exec(ctx, `UPDATE decision_contexts SET query = $2, context_pages = $3 WHERE id = $1`,
		c.ID, c.Query, c.ContextPages)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContext removes a context. Offers and inbox items cascade via FK.
func (s *Store) DeleteContext(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM decision_contexts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRootContextsForMatching returns root contexts passing the cheap
// numeric prefilter, used by refresh-by-subscription.
func (s *Store) ListRootContextsForMatching(ctx context.Context, minBudget float64, minPriority model.Priority) ([]*model.DecisionContext, error) {
	rows, err := s.db.Query(ctx, `SELECT id, query, context_pages, buyer_id, max_budget, priority,
		created_at, target_human_seller_ids, target_bot_seller_ids, parent_id, parent_offers
		FROM decision_contexts
		WHERE parent_id IS NULL AND max_budget >= $1 AND priority >= $2
		ORDER BY created_at DESC`, minBudget, minPriority)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DecisionContext
	for rows.Next() {
		c, err := scanContextRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListContextsByBuyer returns a buyer's contexts newest-first, using the
// (buyer_id, created_at desc) index.
func (s *Store) ListContextsByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*model.DecisionContext, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT id, query, context_pages, buyer_id, max_budget, priority,
		created_at, target_human_seller_ids, target_bot_seller_ids, parent_id, parent_offers
		FROM decision_contexts WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DecisionContext
	for rows.Next() {
		c, err := scanContextRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
