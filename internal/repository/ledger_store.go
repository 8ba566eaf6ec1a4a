package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/antiapp/cafe-focus-rewards/internal/ledger"
	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// LedgerStore is the MySQL implementation of ledger.Store.  Every
// settlement method runs inside a single transaction so a partial
// application (session closed without its credit, debit without its
// registration) can never become visible.  Balance mutation goes
// through applyBalanceDeltaTx, a conditional UPDATE checked by
// affected rows, which is the per-user serialization point: two
// concurrent settlements for the same user race on the row lock, and
// the loser re-evaluates the non-negative constraint against the
// committed amount instead of a stale read.
//
// Expected schema:
//
//	sessions      (id PK, user_id, cafe_id, rate_per_hour DECIMAL(12,6),
//	               checked_in_at DATETIME, checked_out_at DATETIME NULL,
//	               reward_coins DECIMAL(20,9) NULL, usdc_paid DECIMAL(12,6),
//	               commission DECIMAL(12,6), total_usdc DECIMAL(12,6),
//	               created_at, open_flag TINYINT AS (IF(checked_out_at IS NULL, 1, NULL)),
//	               UNIQUE KEY uq_open_session (user_id, open_flag))
//	               -- per-café deployments define the key over
//	               -- (user_id, cafe_id, open_flag) instead
//	balances      (user_id PK, amount DECIMAL(20,9) NOT NULL DEFAULT 0,
//	               updated_at, CHECK (amount >= 0))
//	registrations (id PK, user_id, event_id, price_coins DECIMAL(20,9),
//	               reference, status ENUM('ACTIVE','CANCELLED'),
//	               created_at, cancelled_at DATETIME NULL,
//	               active_flag TINYINT AS (IF(status = 'ACTIVE', 1, NULL)),
//	               UNIQUE KEY uq_active_registration (user_id, event_id, active_flag))
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore returns a LedgerStore bound to the given database.
func NewLedgerStore(db *sql.DB) *LedgerStore { return &LedgerStore{db: db} }

var _ ledger.Store = (*LedgerStore)(nil)

const sessionColumns = `id, user_id, cafe_id, rate_per_hour, checked_in_at, checked_out_at,
       reward_coins, usdc_paid, commission, total_usdc, created_at`

func scanSession(scan func(dest ...interface{}) error) (*model.Session, error) {
	var (
		s      model.Session
		out    sql.NullTime
		reward sql.NullFloat64
	)
	err := scan(&s.ID, &s.UserID, &s.CafeID, &s.RatePerHour, &s.CheckedInAt, &out,
		&reward, &s.UsdcPaid, &s.Commission, &s.TotalUsdc, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if out.Valid {
		t := out.Time.UTC()
		s.CheckedOutAt = &t
	}
	if reward.Valid {
		v := reward.Float64
		s.RewardCoins = &v
	}
	s.CheckedInAt = s.CheckedInAt.UTC()
	return &s, nil
}

// GetOpenSession returns the user's open session or nil.  The global
// flag widens the lookup from (user, café) to the whole user, per
// the configured open-session scope; a zero cafeID also searches all
// cafés so "what am I checked into" works without naming one.
func (st *LedgerStore) GetOpenSession(ctx context.Context, userID, cafeID uint64, global bool) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ? AND checked_out_at IS NULL`
	args := []interface{}{userID}
	if !global && cafeID != 0 {
		query += ` AND cafe_id = ?`
		args = append(args, cafeID)
	}
	query += ` LIMIT 1`
	s, err := scanSession(st.db.QueryRowContext(ctx, query, args...).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSession inserts a new open session.  The uq_open_session
// generated-column index makes a duplicate open session impossible
// at the storage level; the 1062 duplicate-key error from a lost
// race is mapped back to ErrSessionAlreadyOpen.
func (st *LedgerStore) CreateSession(ctx context.Context, s *model.Session) (*model.Session, error) {
	res, err := st.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, cafe_id, rate_per_hour, checked_in_at) VALUES (?, ?, ?, ?)`,
		s.UserID, s.CafeID, s.RatePerHour, s.CheckedInAt.UTC())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ledger.ErrSessionAlreadyOpen
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return st.GetSession(ctx, uint64(id))
}

// GetSession returns the session or ledger.ErrSessionNotFound.
func (st *LedgerStore) GetSession(ctx context.Context, sessionID uint64) (*model.Session, error) {
	s, err := scanSession(st.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID).Scan)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SettleSession closes an open session and credits the reward in one
// transaction.  The conditional UPDATE on `checked_out_at IS NULL`
// guarantees only one of any number of concurrent check-outs applies
// the settlement; the rest observe applied=false and replay the
// stored row.
func (st *LedgerStore) SettleSession(ctx context.Context, sessionID uint64, fields ledger.SessionClose) (*model.Session, bool, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions
         SET checked_out_at = ?, reward_coins = ?, usdc_paid = ?, commission = ?, total_usdc = ?
         WHERE id = ? AND checked_out_at IS NULL`,
		fields.At.UTC(), fields.RewardCoins, fields.UsdcPaid, fields.Commission, fields.TotalUsdc, sessionID)
	if err != nil {
		return nil, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		// Already closed (or missing).  Nothing to commit; read the
		// stored row outside the transaction.
		_ = tx.Rollback()
		s, err := st.GetSession(ctx, sessionID)
		if err != nil {
			return nil, false, err
		}
		return s, false, nil
	}

	var userID uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE id = ?`, sessionID).Scan(&userID); err != nil {
		return nil, false, err
	}
	if _, err := applyBalanceDeltaTx(ctx, tx, userID, fields.RewardCoins); err != nil {
		return nil, false, err
	}
	s, err := scanSession(tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID).Scan)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	committed = true
	return s, true, nil
}

// GetBalance returns the user's coin amount, 0 when no row exists.
func (st *LedgerStore) GetBalance(ctx context.Context, userID uint64) (float64, error) {
	var amount float64
	err := st.db.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE user_id = ?`, userID).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// ApplyBalanceDelta adds delta to the user's balance atomically and
// returns the new amount.
func (st *LedgerStore) ApplyBalanceDelta(ctx context.Context, userID uint64, delta float64) (float64, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	amount, err := applyBalanceDeltaTx(ctx, tx, userID, delta)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return amount, nil
}

// applyBalanceDeltaTx is the single write path for balances.  Credits
// upsert; debits run a conditional UPDATE whose WHERE clause holds
// the non-negative invariant, so an insufficient balance changes
// nothing and surfaces as ledger.ErrInsufficientBalance.
func applyBalanceDeltaTx(ctx context.Context, tx *sql.Tx, userID uint64, delta float64) (float64, error) {
	switch {
	case delta > 0:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO balances (user_id, amount) VALUES (?, ?)
             ON DUPLICATE KEY UPDATE amount = amount + VALUES(amount)`,
			userID, delta); err != nil {
			return 0, err
		}
	case delta < 0:
		res, err := tx.ExecContext(ctx,
			`UPDATE balances SET amount = amount + ? WHERE user_id = ? AND amount + ? >= 0`,
			delta, userID, delta)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected == 0 {
			// Either no balance row yet (amount 0) or the debit would
			// go negative; both are insufficient funds.
			return 0, ledger.ErrInsufficientBalance
		}
	default:
		// delta == 0: nothing to write; fall through to the read so
		// callers still get the current amount.
	}
	var amount float64
	err := tx.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE user_id = ?`, userID).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}

const registrationColumns = `id, user_id, event_id, price_coins, reference, status, created_at, cancelled_at`

func scanRegistration(scan func(dest ...interface{}) error) (*model.Registration, error) {
	var (
		reg       model.Registration
		cancelled sql.NullTime
	)
	err := scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.PriceCoins, &reg.Reference,
		&reg.Status, &reg.CreatedAt, &cancelled)
	if err != nil {
		return nil, err
	}
	if cancelled.Valid {
		t := cancelled.Time.UTC()
		reg.CancelledAt = &t
	}
	return &reg, nil
}

// GetActiveRegistration returns the user's ACTIVE registration for
// the event, or nil when none exists.
func (st *LedgerStore) GetActiveRegistration(ctx context.Context, userID, eventID uint64) (*model.Registration, error) {
	reg, err := scanRegistration(st.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
         WHERE user_id = ? AND event_id = ? AND status = ? LIMIT 1`,
		userID, eventID, model.RegistrationActive).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// GetRegistration returns the registration or
// ledger.ErrRegistrationNotFound.
func (st *LedgerStore) GetRegistration(ctx context.Context, registrationID uint64) (*model.Registration, error) {
	reg, err := scanRegistration(st.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, registrationID).Scan)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// CreateRegistrationDebit debits the captured price and inserts the
// registration in one transaction.  The debit's conditional UPDATE
// serializes concurrent spends for the same user, and the
// uq_active_registration index turns a concurrent duplicate insert
// into ErrAlreadyRegistered with the debit rolled back.
func (st *LedgerStore) CreateRegistrationDebit(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if reg.PriceCoins > 0 {
		if _, err := applyBalanceDeltaTx(ctx, tx, reg.UserID, -reg.PriceCoins); err != nil {
			return nil, err
		}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (user_id, event_id, price_coins, reference, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		reg.UserID, reg.EventID, reg.PriceCoins, reg.Reference, model.RegistrationActive, reg.CreatedAt.UTC())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ledger.ErrAlreadyRegistered
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	stored, err := scanRegistration(tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id).Scan)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return stored, nil
}

// CancelRegistrationRefund marks an ACTIVE registration CANCELLED
// and credits back the price captured at registration time, in one
// transaction.  Cancelling again applies nothing and returns the
// stored row so the refund is credited exactly once.
func (st *LedgerStore) CancelRegistrationRefund(ctx context.Context, registrationID uint64, now time.Time) (*model.Registration, bool, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE registrations SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`,
		model.RegistrationCancelled, now.UTC(), registrationID, model.RegistrationActive)
	if err != nil {
		return nil, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		_ = tx.Rollback()
		reg, err := st.GetRegistration(ctx, registrationID)
		if err != nil {
			return nil, false, err
		}
		return reg, false, nil
	}

	reg, err := scanRegistration(tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, registrationID).Scan)
	if err != nil {
		return nil, false, err
	}
	if reg.PriceCoins > 0 {
		if _, err := applyBalanceDeltaTx(ctx, tx, reg.UserID, reg.PriceCoins); err != nil {
			return nil, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	committed = true
	return reg, true, nil
}
