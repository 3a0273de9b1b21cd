package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/market/model"
)

// CreateHumanSellerProfile inserts the at-most-one human-seller profile for a user.
func (s *Store) CreateHumanSellerProfile(ctx context.Context, p *model.HumanSellerProfile) error {
	p.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO human_seller_profiles (user_id, display_name, created_at)
		VALUES ($1,$2,$3)`, p.UserID, p.DisplayName, p.CreatedAt)
	return err
}

// GetHumanSellerProfile retrieves a human seller profile by owning user id.
func (s *Store) GetHumanSellerProfile(ctx context.Context, userID uuid.UUID) (*model.HumanSellerProfile, error) {
	var p model.HumanSellerProfile
	err := s.db.QueryRow(ctx, `SELECT user_id, display_name, created_at
		FROM human_seller_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateHumanSellerProfile updates the display name.
func (s *Store) UpdateHumanSellerProfile(ctx context.Context, p *model.HumanSellerProfile) error {
	tag, err := s.db.Exec(ctx, `UPDATE human_seller_profiles SET display_name = $2 WHERE user_id = $1`,
		p.UserID, p.DisplayName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBotSellerProfile inserts a new bot seller, owned by a user who may own many.
func (s *Store) CreateBotSellerProfile(ctx context.Context, b *model.BotSellerProfile) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO bot_seller_profiles (
		id, owner_id, name, info, price, llm_model, llm_prompt, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.OwnerID, b.Name, b.Info, b.Price, b.LLMModel, b.LLMPrompt, b.CreatedAt,
	)
	return err
}

// GetBotSellerProfile retrieves a bot seller by id.
func (s *Store) GetBotSellerProfile(ctx context.Context, id uuid.UUID) (*model.BotSellerProfile, error) {
	return s.scanBotSeller(ctx, `SELECT id, owner_id, name, info, price, llm_model, llm_prompt,
		created_at FROM bot_seller_profiles WHERE id = $1`, id)
}

func (s *Store) scanBotSeller(ctx context.Context, query string, args ...any) (*model.BotSellerProfile, error) {
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
	return scanBotSellerRow(rows)
}

func scanBotSellerRow(rows pgx.Rows) (*model.BotSellerProfile, error) {
	var b model.BotSellerProfile
	if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Info, &b.Price, &b.LLMModel, &b.LLMPrompt,
		&b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBotSellersByOwner returns every bot a user owns.
func (s *Store) ListBotSellersByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.BotSellerProfile, error) {
	rows, err := s.db.Query(ctx, `SELECT id, owner_id, name, info, price, llm_model, llm_prompt,
		created_at FROM bot_seller_profiles WHERE owner_id = $1 ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BotSellerProfile
	for rows.Next() {
		b, err := scanBotSellerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBotSellerProfile applies a full-shape update, re-validating the
// exactly-one-shape invariant.
func (s *Store) UpdateBotSellerProfile(ctx context.Context, b *model.BotSellerProfile) error {
	if err := b.Validate(); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `UPDATE bot_seller_profiles SET name = $2, info = $3, price = $4,
		llm_model = $5, llm_prompt = $6 WHERE id = $1`,
		b.ID, b.Name, b.Info, b.Price, b.LLMModel, b.LLMPrompt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBotSellerProfile removes a bot seller. Subscriptions it owns are not
// removed; subscriptions.owner_id carries no foreign key.
func (s *Store) DeleteBotSellerProfile(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM bot_seller_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
