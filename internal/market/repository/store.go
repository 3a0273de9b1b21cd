// Package repository implements durable persistence for the market's
// entities over PostgreSQL: transactional writes and the indexed predicate
// queries the matcher and inspection engine depend on. No ORM — raw SQL
// against pgxpool.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned on unique-key or monotonicity violations (e.g.
// purchasing an offer that is already purchased). Never retried by callers.
var ErrConflict = errors.New("conflict")

// IsTransient reports whether err is a retryable PostgreSQL error (deadlock,
// serialization failure, connection blip). Callers may retry up to 3 times
// with exponential backoff.
func IsTransient(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "40001", "40P01", "08006", "08003":
			return true
		}
	}
	return false
}

// Store bundles the pgx pool shared by every entity repository in this
// package. One Store per process; each HTTP command and each inspection
// engine iteration uses exactly one transaction against it.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store { return &Store{db: db} }

// Pool exposes the underlying pool for callers (e.g. the trust ledger) that
// need to participate in the same database without duplicating connection
// setup.
func (s *Store) Pool() *pgxpool.Pool { return s.db }
