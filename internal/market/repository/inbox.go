package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/market/model"
)

// CreateInboxItem inserts a new materialized match.
func (s *Store) CreateInboxItem(ctx context.Context, item *model.InboxItem) error {
	item.ID = uuid.New()
	item.CreatedAt = time.Now().UTC()
	if item.Status == "" {
		item.Status = model.InboxStatusNew
	}
	_, err := s.db.Exec(ctx, `INSERT INTO inbox_items (
		id, subscription_id, context_id, status, created_at, expires_at
	) VALUES ($1,$2,$3,$4,$5,$6)`,
		item.ID, item.SubscriptionID, item.ContextID, item.Status, item.CreatedAt, item.ExpiresAt,
	)
	return err
}

// GetInboxItem retrieves an inbox item by id.
func (s *Store) GetInboxItem(ctx context.Context, id uuid.UUID) (*model.InboxItem, error) {
	return s.scanInboxItem(ctx, `SELECT id, subscription_id, context_id, status, created_at,
		expires_at FROM inbox_items WHERE id = $1`, id)
}

func (s *Store) scanInboxItem(ctx context.Context, query string, args ...any) (*model.InboxItem, error) {
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
	return scanInboxItemRow(rows)
}

func scanInboxItemRow(rows pgx.Rows) (*model.InboxItem, error) {
	var item model.InboxItem
	if err := rows.Scan(&item.ID, &item.SubscriptionID, &item.ContextID, &item.Status,
		&item.CreatedAt, &item.ExpiresAt); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListInboxBySubscription returns inbox items for a subscription, newest
// first, using the (inbox.subscription_id, status) index. An empty status
// matches all statuses.
func (s *Store) ListInboxBySubscription(ctx context.Context, subscriptionID uuid.UUID, status model.InboxStatus) ([]*model.InboxItem, error) {
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query(ctx, `SELECT id, subscription_id, context_id, status, created_at,
			expires_at FROM inbox_items WHERE subscription_id = $1 ORDER BY created_at DESC`, subscriptionID)
	} else {
		rows, err = s.db.Query(ctx, `SELECT id, subscription_id, context_id, status, created_at,
			expires_at FROM inbox_items WHERE subscription_id = $1 AND status = $2
			ORDER BY created_at DESC`, subscriptionID, status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.InboxItem
	for rows.Next() {
		item, err := scanInboxItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListInboxByContext returns inbox items attached to a context, using the
// (inbox.context_id) index.
func (s *Store) ListInboxByContext(ctx context.Context, contextID uuid.UUID) ([]*model.InboxItem, error) {
	rows, err := s.db.Query(ctx, `SELECT id, subscription_id, context_id, status, created_at,
		expires_at FROM inbox_items WHERE context_id = $1`, contextID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.InboxItem
	for rows.Next() {
		item, err := scanInboxItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// UpdateInboxStatus transitions an inbox item's status (e.g. new -> ignored
// when a buyer dismisses it, or new -> responded once a matching offer lands).
func (s *Store) UpdateInboxStatus(ctx context.Context, id uuid.UUID, status model.InboxStatus) error {
	tag, err := s.db.Exec(ctx, `UPDATE inbox_items SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeBySubscription deletes every inbox item for a subscription, used when
// an edited predicate invalidates prior matches, so refresh-by-subscription
// rebuilds the set from scratch.
func (s *Store) PurgeBySubscription(ctx context.Context, subscriptionID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM inbox_items WHERE subscription_id = $1`, subscriptionID)
	return err
}

// PurgeByContext deletes every inbox item attached to a context, used when a
// context is edited or withdrawn so refresh-by-context rebuilds matches.
func (s *Store) PurgeByContext(ctx context.Context, contextID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM inbox_items WHERE context_id = $1`, contextID)
	return err
}

// ExistsInbox reports whether a (subscription, context) pair is already
// materialized.
func (s *Store) ExistsInbox(ctx context.Context, subscriptionID, contextID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM inbox_items WHERE subscription_id = $1 AND context_id = $2)`,
		subscriptionID, contextID).Scan(&exists)
	return exists, err
}
