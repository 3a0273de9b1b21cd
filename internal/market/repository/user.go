package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/infomarket/server/internal/market/model"
)

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.scanUser(ctx, `SELECT id, email, username, display_name, total_balance,
		available_balance, last_bonus_date, daily_bonus_amount, api_keys, created_at, updated_at
		FROM users WHERE id = $1`, id)
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.scanUser(ctx, `SELECT id, email, username, display_name, total_balance,
		available_balance, last_bonus_date, daily_bonus_amount, api_keys, created_at, updated_at
		FROM users WHERE username = $1`, username)
}

func (s *Store) scanUser(ctx context.Context, query string, args ...any) (*model.User, error) {
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

	var u model.User
	var apiKeysRaw []byte
	if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.DisplayName, &u.TotalBalance,
		&u.AvailableBalance, &u.LastBonusDate, &u.DailyBonusAmount, &apiKeysRaw,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if len(apiKeysRaw) > 0 {
		if err := json.Unmarshal(apiKeysRaw, &u.APIKeys); err != nil {
			return nil, fmt.Errorf("unmarshal api_keys: %w", err)
		}
	}
	return &u, nil
}

// UpdateUserBalances persists total_balance, available_balance and
// last_bonus_date for a user outside of a transaction.
func (s *Store) UpdateUserBalances(ctx context.Context, u *model.User) error {
	return s.updateUserBalances(ctx, s.db, u)
}

// UpdateUserBalancesTx is the transactional counterpart, used exclusively by
// BalanceKeeper's compare-and-update loop so the update commits atomically
// with the FOR UPDATE lock taken by GetUserForUpdate. No other caller
// mutates these columns.
func (s *Store) UpdateUserBalancesTx(ctx context.Context, tx pgx.Tx, u *model.User) error {
	return s.updateUserBalances(ctx, tx, u)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) updateUserBalances(ctx context.Context, e execer, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := e.Exec(ctx, `UPDATE users SET
		total_balance = $2, available_balance = $3, last_bonus_date = $4, updated_at = $5
		WHERE id = $1`,
		u.ID, u.TotalBalance, u.AvailableBalance, u.LastBonusDate, u.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserForUpdate locks the user row within tx, for the BalanceKeeper's
// compare-and-update loop.
func (s *Store) GetUserForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.User, error) {
	rows, err := tx.Query(ctx, `SELECT id, email, username, display_name, total_balance,
		available_balance, last_bonus_date, daily_bonus_amount, api_keys, created_at, updated_at
		FROM users WHERE id = $1 FOR UPDATE`, id)
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
	var u model.User
	var apiKeysRaw []byte
	if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.DisplayName, &u.TotalBalance,
		&u.AvailableBalance, &u.LastBonusDate, &u.DailyBonusAmount, &apiKeysRaw,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if len(apiKeysRaw) > 0 {
		_ = json.Unmarshal(apiKeysRaw, &u.APIKeys)
	}
	return &u, nil
}

// BeginTx starts a transaction against the shared pool.
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) { return s.db.Begin(ctx) }

// CreateBuyerProfile inserts a new buyer profile with zeroed counters.
func (s *Store) CreateBuyerProfile(ctx context.Context, b *model.BuyerProfile) error {
	b.CreatedAt = time.Now().UTC()
	if b.Queries == nil {
		b.Queries = map[model.Priority]int{model.PriorityLow: 0, model.PriorityHigh: 0}
	}
	if b.Inspected == nil {
		b.Inspected = map[model.Priority]int{model.PriorityLow: 0, model.PriorityHigh: 0}
	}
	if b.Purchased == nil {
		b.Purchased = map[model.Priority]int{model.PriorityLow: 0, model.PriorityHigh: 0}
	}
	queries := encodePriorityCounts(b.Queries)
	inspected := encodePriorityCounts(b.Inspected)
	purchased := encodePriorityCounts(b.Purchased)
	_, err := s.db.Exec(ctx, `INSERT INTO buyer_profiles
		(user_id, default_agent_model, default_max_budget, queries, inspected, purchased, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.UserID, b.DefaultAgentModel, b.DefaultMaxBudget, queries, inspected, purchased, b.CreatedAt,
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

// UpdateBuyerProfileDefaults updates a buyer's adjustable defaults.
func (s *Store) UpdateBuyerProfileDefaults(ctx context.Context, b *model.BuyerProfile) error {
	tag, err := s.db.Exec(ctx, `UPDATE buyer_profiles SET
		default_agent_model = $2, default_max_budget = $3 WHERE user_id = $1`,
		b.UserID, b.DefaultAgentModel, b.DefaultMaxBudget)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBuyerProfile retrieves a buyer's defaults and counters.
func (s *Store) GetBuyerProfile(ctx context.Context, userID uuid.UUID) (*model.BuyerProfile, error) {
	var b model.BuyerProfile
	var queriesRaw, inspectedRaw, purchasedRaw []byte
	err := s.db.QueryRow(ctx, `SELECT user_id, default_agent_model, default_max_budget,
		queries, inspected, purchased, created_at FROM buyer_profiles WHERE user_id = $1`,
		userID,
	).Scan(&b.UserID, &b.DefaultAgentModel, &b.DefaultMaxBudget, &queriesRaw, &inspectedRaw, &purchasedRaw, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Queries = decodePriorityCounts(queriesRaw)
	b.Inspected = decodePriorityCounts(inspectedRaw)
	b.Purchased = decodePriorityCounts(purchasedRaw)
	return &b, nil
}

// IncrementBuyerCounter atomically bumps one of the queries/inspected/purchased
// counters for a priority level, within tx. The counter increments under the
// same transaction as the state change that triggers it.
func (s *Store) IncrementBuyerCounter(ctx context.Context, tx pgx.Tx, userID uuid.UUID, column string, priority model.Priority) error {
	switch column {
	case "queries", "inspected", "purchased":
	default:
		return fmt.Errorf("invalid counter column %q", column)
	}
	query := fmt.Sprintf(`UPDATE buyer_profiles SET %s = jsonb_set(
		%s, ARRAY[$2::text], (COALESCE((%s->>$2::text)::int, 0) + 1)::text::jsonb
	) WHERE user_id = $1`, column, column, column)
	_, err := tx.Exec(ctx, query, userID, fmt.Sprint(int(priority)))
	return err
}

func encodePriorityCounts(counts map[model.Priority]int) []byte {
	m := map[string]int{
		"0": counts[model.PriorityLow],
		"1": counts[model.PriorityHigh],
	}
	raw, _ := json.Marshal(m)
	return raw
}

func decodePriorityCounts(raw []byte) map[model.Priority]int {
	out := map[model.Priority]int{model.PriorityLow: 0, model.PriorityHigh: 0}
	if len(raw) == 0 {
		return out
	}
	var m map[string]int
	if err := json.Unmarshal(raw, &m); err != nil {
		return out
	}
	for k, v := range m {
		switch k {
		case "0":
			out[model.PriorityLow] = v
		case "1":
			out[model.PriorityHigh] = v
		}
	}
	return out
}
