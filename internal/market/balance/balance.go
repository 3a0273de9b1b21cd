// Package balance implements BalanceKeeper: the two-ledger account
// (total_balance, available_balance) and its escrow/settle/refund/daily_bonus
// primitives, the only code path allowed to mutate those two columns.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/infomarket/server/internal/market/model"
	"github.com/infomarket/server/internal/market/repository"
	"github.com/infomarket/server/internal/trustledger"
)

// maxCASRetries bounds the compare-and-update retry loop on serialization
// conflicts between concurrent BalanceKeeper calls against the same user.
const maxCASRetries = 3

// userStore is the slice of repository.Store the Keeper depends on.
// *repository.Store satisfies this; tests substitute an in-memory stub.
type userStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetUserForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.User, error)
	UpdateUserBalancesTx(ctx context.Context, tx pgx.Tx, u *model.User) error
}

// Keeper is the sole mutator of User.total_balance / User.available_balance.
// Every successful call appends a ledger entry to Ledger so the escrow
// lifecycle is independently auditable.
type Keeper struct {
	store        userStore
	ledger       trustledger.Ledger
	defaultBonus float64
}

// New constructs a Keeper over store, appending audit entries to ledger.
func New(store userStore, ledger trustledger.Ledger) *Keeper {
	return &Keeper{store: store, ledger: ledger}
}

// SetDefaultBonus sets the daily-bonus amount credited to users whose own
// daily_bonus_amount is zero (the daily_bonus_default configuration key).
func (k *Keeper) SetDefaultBonus(amount float64) {
	k.defaultBonus = amount
}

// Escrow deducts amount from the user's available_balance, failing with
// ErrInsufficientFunds when amount exceeds what's available. Called by the
// root-context create path; never called for child contexts, whose budget is
// carved from the parent's already-escrowed amount.
func (k *Keeper) Escrow(ctx context.Context, userID uuid.UUID, contextID uuid.UUID, amount float64) error {
	return k.withRetry(ctx, userID, func(tx pgx.Tx, u *model.User) error {
		if amount > u.AvailableBalance {
			return &model.ErrInsufficientFunds{Available: u.AvailableBalance, Requested: amount}
		}
		u.AvailableBalance -= amount
		return nil
	}, contextID, "escrow", map[string]any{"amount": amount})
}

// Settle applies the outcome of a completed root inspection: spent is
// deducted from total_balance, and the unspent remainder of what was
// escrowed flows back into available_balance. Never reduces available_balance.
func (k *Keeper) Settle(ctx context.Context, userID uuid.UUID, contextID uuid.UUID, spent, escrowed float64) error {
	if spent > escrowed {
		return fmt.Errorf("settle: spent %.2f exceeds escrowed %.2f", spent, escrowed)
	}
	return k.withRetry(ctx, userID, func(tx pgx.Tx, u *model.User) error {
		u.TotalBalance -= spent
		u.AvailableBalance += escrowed - spent
		return nil
	}, contextID, "settle", map[string]any{"spent": spent, "escrowed": escrowed})
}

// Refund returns the full escrowed amount to available_balance. Called when
// a root inspection ends with zero purchases.
func (k *Keeper) Refund(ctx context.Context, userID uuid.UUID, contextID uuid.UUID, escrowed float64) error {
	return k.withRetry(ctx, userID, func(tx pgx.Tx, u *model.User) error {
		u.AvailableBalance += escrowed
		return nil
	}, contextID, "refund", map[string]any{"escrowed": escrowed})
}

// DailyBonus credits daily_bonus_amount to both ledgers, once per calendar
// day per user. today is the caller's clock value, formatted "2006-01-02",
// so callers (not this package) own wall-clock time.
func (k *Keeper) DailyBonus(ctx context.Context, userID uuid.UUID, today string) error {
	tx, err := k.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	u, err := k.store.GetUserForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}
	if u.LastBonusDate != nil && *u.LastBonusDate == today {
		return nil
	}
	amount := u.DailyBonusAmount
	if amount == 0 {
		amount = k.defaultBonus
	}
	u.TotalBalance += amount
	u.AvailableBalance += amount
	u.LastBonusDate = &today
	if !u.CheckBalanceInvariant() {
		return fmt.Errorf("daily_bonus: balance invariant violated for user %s", userID)
	}
	if err := k.store.UpdateUserBalancesTx(ctx, tx, u); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	_, err = k.ledger.Append(ctx, userID.String(), "daily_bonus", "balance-keeper",
		map[string]any{"amount": amount, "date": today})
	return err
}

// withRetry runs mutate against the locked user row inside a transaction,
// re-checking the balance invariant before commit, retrying up to
// maxCASRetries times on a transient serialization conflict.
func (k *Keeper) withRetry(ctx context.Context, userID uuid.UUID, mutate func(tx pgx.Tx, u *model.User) error, contextID uuid.UUID, action string, payload map[string]any) error {
	var lastErr error
	for attempt := 0; attempt <= maxCASRetries; attempt++ {
		err := k.attempt(ctx, userID, mutate)
		if err == nil {
			_, ledgerErr := k.ledger.Append(ctx, contextID.String(), action, "balance-keeper", payload)
			return ledgerErr
		}
		if !repository.IsTransient(err) {
			return err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return fmt.Errorf("balance keeper: exceeded %d retries: %w", maxCASRetries, lastErr)
}

func (k *Keeper) attempt(ctx context.Context, userID uuid.UUID, mutate func(tx pgx.Tx, u *model.User) error) error {
	tx, err := k.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	u, err := k.store.GetUserForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}
	if err := mutate(tx, u); err != nil {
		return err
	}
	if !u.CheckBalanceInvariant() {
		return fmt.Errorf("balance invariant violated for user %s", u.ID)
	}
	if err := k.store.UpdateUserBalancesTx(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
