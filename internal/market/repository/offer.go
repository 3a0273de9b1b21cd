package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/infomarket/server/internal/market/model"
)

// CreateOffer inserts a new offer against a context. A seller gets one offer
// per context: a second insert for the same (seller, context) pair returns
// ErrConflict off the unique index rather than a duplicate row.
func (s *Store) CreateOffer(ctx context.Context, o *model.InfoOffer) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO info_offers (
		id, seller_kind, seller_id, context_id, private_info, public_info, price,
		created_at, inspected, purchased
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.SellerKind, o.SellerID, o.ContextID, o.PrivateInfo, o.PublicInfo, o.Price,
		o.CreatedAt, o.Inspected, o.Purchased,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetOffer retrieves an offer by id.
func (s *Store) GetOffer(ctx context.Context, id uuid.UUID) (*model.InfoOffer, error) {
	return s.scanOffer(ctx, `SELECT id, seller_kind, seller_id, context_id, private_info,
		public_info, price, created_at, inspected, purchased FROM info_offers WHERE id = $1`, id)
}

func (s *Store) scanOffer(ctx context.Context, query string, args ...any) (*model.InfoOffer, error) {
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
	return scanOfferRow(rows)
}

func scanOfferRow(rows pgx.Rows) (*model.InfoOffer, error) {
	var o model.InfoOffer
	if err := rows.Scan(&o.ID, &o.SellerKind, &o.SellerID, &o.ContextID, &o.PrivateInfo,
		&o.PublicInfo, &o.Price, &o.CreatedAt, &o.Inspected, &o.Purchased); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOffersByContext returns all offers for a context, using the
// (offer.context_id) index.
func (s *Store) ListOffersByContext(ctx context.Context, contextID uuid.UUID) ([]*model.InfoOffer, error) {
	rows, err := s.db.Query(ctx, `SELECT id, seller_kind, seller_id, context_id, private_info,
		public_info, price, created_at, inspected, purchased
		FROM info_offers WHERE context_id = $1 ORDER BY created_at ASC`, contextID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.InfoOffer
	for rows.Next() {
		o, err := scanOfferRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOffersByIDs loads a specific set of offers by id, used by the
// inspection engine to fetch info_offer_ids / known_offers.
func (s *Store) ListOffersByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.InfoOffer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT id, seller_kind, seller_id, context_id, private_info,
		public_info, price, created_at, inspected, purchased
		FROM info_offers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.InfoOffer
	for rows.Next() {
		o, err := scanOfferRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOffer applies a partial update from the owning seller.
func (s *Store) UpdateOffer(ctx context.Context, o *model.InfoOffer) error {
	tag, err := s.db.Exec(ctx, `UPDATE info_offers SET private_info = $2, public_info = $3, price = $4
		WHERE id = $1`, o.ID, o.PrivateInfo, o.PublicInfo, o.Price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOffer removes an offer.
func (s *Store) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM info_offers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkInspected sets inspected = true for a batch of offers. Idempotent:
// offers already inspected are left untouched.
func (s *Store) MarkInspected(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE info_offers SET inspected = true WHERE id = ANY($1)`, ids)
	return err
}

// MarkPurchased sets purchased = true for a single offer, guarded by the
// WHERE clause so a second concurrent attempt affects zero rows instead of
// double-purchasing.
func (s *Store) MarkPurchased(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE info_offers SET purchased = true WHERE id = $1 AND purchased = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
