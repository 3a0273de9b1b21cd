package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/market/model"
)

// CreateSubscription inserts a new subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO subscriptions (
		id, owner_kind, owner_id, keywords, context_pages, min_budget, min_priority,
		min_inspection_rate, min_purchase_rate, buyer_type, age_limit_seconds, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sub.ID, sub.OwnerKind, sub.OwnerID, sub.Keywords, sub.ContextPages, sub.MinBudget,
		sub.MinPriority, sub.MinInspectionRate, sub.MinPurchaseRate, sub.BuyerType,
		sub.AgeLimitSeconds, sub.CreatedAt,
	)
	return err
}

// GetSubscription retrieves a subscription by id.
func (s *Store) GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	return s.scanSubscription(ctx, `SELECT id, owner_kind, owner_id, keywords, context_pages,
		min_budget, min_priority, min_inspection_rate, min_purchase_rate, buyer_type,
		age_limit_seconds, created_at FROM subscriptions WHERE id = $1`, id)
}

func (s *Store) scanSubscription(ctx context.Context, query string, args ...any) (*model.Subscription, error) {
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
	return scanSubscriptionRow(rows)
}

func scanSubscriptionRow(rows pgx.Rows) (*model.Subscription, error) {
	var sub model.Subscription
	if err := rows.Scan(&sub.ID, &sub.OwnerKind, &sub.OwnerID, &sub.Keywords, &sub.ContextPages,
		&sub.MinBudget, &sub.MinPriority, &sub.MinInspectionRate, &sub.MinPurchaseRate,
		&sub.BuyerType, &sub.AgeLimitSeconds, &sub.CreatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubscription applies a partial predicate update.
func (s *Store) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	tag, err := s.db.Exec(ctx, `UPDATE subscriptions SET keywords = $2, context_pages = $3,
		min_budget = $4, min_priority = $5, min_inspection_rate = $6, min_purchase_rate = $7,
		buyer_type = $8, age_limit_seconds = $9 WHERE id = $1`,
		sub.ID, sub.Keywords, sub.ContextPages, sub.MinBudget, sub.MinPriority,
		sub.MinInspectionRate, sub.MinPurchaseRate, sub.BuyerType, sub.AgeLimitSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubscription removes a subscription. Inbox items cascade via FK.
func (s *Store) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBotSubscriptions returns all subscriptions owned by bot sellers.
func (s *Store) ListBotSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	rows, err := s.db.Query(ctx, `SELECT id, owner_kind, owner_id, keywords, context_pages,
		min_budget, min_priority, min_inspection_rate, min_purchase_rate, buyer_type,
		age_limit_seconds, created_at FROM subscriptions WHERE owner_kind = $1`, model.SellerKindBot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		sub, err := scanSubscriptionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ListSubscriptionsForContext returns subscriptions passing the cheap
// numeric prefilter for refresh-by-context, using the
// (subscription.min_budget, min_priority) index.
func (s *Store) ListSubscriptionsForContext(ctx context.Context, maxBudget float64, priority model.Priority) ([]*model.Subscription, error) {
	rows, err := s.db.Query(ctx, `SELECT id, owner_kind, owner_id, keywords, context_pages,
		min_budget, min_priority, min_inspection_rate, min_purchase_rate, buyer_type,
		age_limit_seconds, created_at
		FROM subscriptions WHERE min_budget <= $1 AND min_priority <= $2`, maxBudget, priority)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		sub, err := scanSubscriptionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
