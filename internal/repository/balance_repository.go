package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// BalanceRepo reads the balances table for presentation.  All
// mutation goes through LedgerStore; this repository only backs the
// customer's balance view.
type BalanceRepo struct {
	db *sql.DB
}

// NewBalanceRepo returns a BalanceRepo bound to the given database.
func NewBalanceRepo(db *sql.DB) *BalanceRepo { return &BalanceRepo{db: db} }

// GetByUser returns the user's balance row.  Users who have never
// earned or spent have no row yet; they get a zero balance stamped
// with the current time.
func (r *BalanceRepo) GetByUser(ctx context.Context, userID uint64) (model.Balance, error) {
	b := model.Balance{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT amount, updated_at FROM balances WHERE user_id = ?`, userID).
		Scan(&b.Amount, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		b.UpdatedAt = time.Now().UTC()
		return b, nil
	}
	if err != nil {
		return model.Balance{}, err
	}
	return b, nil
}
