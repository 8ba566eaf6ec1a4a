package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// SessionRepo provides read access to session history.  Settlement
// writes go through LedgerStore; this repository only serves the
// customer and merchant history views.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// MerchantSessionDetail is a session row joined with its café for
// the merchant payment-history view.  The commission figures were
// captured when the session closed; open sessions show zeros.
type MerchantSessionDetail struct {
	ID           uint64   `json:"id"`
	CafeID       uint64   `json:"cafe_id"`
	CafeName     string   `json:"cafe_name"`
	UserID       uint64   `json:"user_id"`
	CheckedInAt  string   `json:"checked_in_at"`
	CheckedOutAt *string  `json:"checked_out_at,omitempty"`
	RewardCoins  *float64 `json:"reward_coins,omitempty"`
	UsdcPaid     float64  `json:"usdc_paid"`
	Commission   float64  `json:"commission"`
	TotalUsdc    float64  `json:"total_usdc"`
}

// ListByMerchant returns sessions held at any of the merchant's
// cafés, newest check-in first.
func (r *SessionRepo) ListByMerchant(ctx context.Context, merchantID uint64) ([]MerchantSessionDetail, error) {
	const q = `SELECT s.id, s.cafe_id, c.name, s.user_id, s.checked_in_at, s.checked_out_at,
                      s.reward_coins, s.usdc_paid, s.commission, s.total_usdc
               FROM sessions s
               JOIN cafes c ON c.id = s.cafe_id
               WHERE c.merchant_id = ?
               ORDER BY s.checked_in_at DESC`
	rows, err := r.db.QueryContext(ctx, q, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]MerchantSessionDetail, 0)
	for rows.Next() {
		var (
			d      MerchantSessionDetail
			in     time.Time
			out    sql.NullTime
			reward sql.NullFloat64
		)
		if err := rows.Scan(&d.ID, &d.CafeID, &d.CafeName, &d.UserID, &in, &out,
			&reward, &d.UsdcPaid, &d.Commission, &d.TotalUsdc); err != nil {
			return nil, err
		}
		d.CheckedInAt = in.UTC().Format(time.RFC3339)
		if out.Valid {
			iso := out.Time.UTC().Format(time.RFC3339)
			d.CheckedOutAt = &iso
		}
		if reward.Valid {
			v := reward.Float64
			d.RewardCoins = &v
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListByUser returns the user's sessions, newest check-in first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ? ORDER BY checked_in_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
