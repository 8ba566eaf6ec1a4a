package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antiapp/cafe-focus-rewards/internal/ledger"
	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

var (
	testSession = model.Session{
		UserID:      1,
		CafeID:      10,
		RatePerHour: 6.0,
		CheckedInAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	testRegistration = model.Registration{
		UserID:     1,
		EventID:    100,
		PriceCoins: 4,
		Reference:  "ref-1",
		Status:     model.RegistrationActive,
		CreatedAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
)

func newLedgerStoreMock(t *testing.T) (*LedgerStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedgerStore(db), mock
}

func sessionRows(id, userID, cafeID uint64, rate float64, in time.Time, out *time.Time, reward *float64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "cafe_id", "rate_per_hour", "checked_in_at", "checked_out_at",
		"reward_coins", "usdc_paid", "commission", "total_usdc", "created_at",
	})
	var outV interface{}
	if out != nil {
		outV = *out
	}
	var rewardV interface{}
	if reward != nil {
		rewardV = *reward
	}
	usdc, comm, total := 0.0, 0.0, 0.0
	if reward != nil {
		usdc, comm, total = 3.0, 0.3, 3.3
	}
	return rows.AddRow(id, userID, cafeID, rate, in, outV, rewardV, usdc, comm, total, in)
}

func TestSettleSessionCreditsInOneTransaction(t *testing.T) {
	store, mock := newLedgerStoreMock(t)
	in := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	out := in.Add(30 * time.Minute)
	reward := 1.5

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions").
		WithArgs(out, 1.5, 3.0, 0.3, 3.3, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT user_id FROM sessions").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(uint64(1)))
	mock.ExpectExec("INSERT INTO balances").
		WithArgs(uint64(1), 1.5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT amount FROM balances").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow(1.5))
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
		WithArgs(uint64(7)).
		WillReturnRows(sessionRows(7, 1, 10, 6.0, in, &out, &reward))
	mock.ExpectCommit()

	s, applied, err := store.SettleSession(context.Background(), 7, ledger.SessionClose{
		At: out, RewardCoins: 1.5, UsdcPaid: 3.0, Commission: 0.3, TotalUsdc: 3.3,
	})
	require.NoError(t, err)
	assert.True(t, applied)
	require.NotNil(t, s.RewardCoins)
	assert.Equal(t, 1.5, *s.RewardCoins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleSessionAlreadyClosedReplaysStoredRow(t *testing.T) {
	store, mock := newLedgerStoreMock(t)
	in := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	out := in.Add(time.Hour)
	reward := 3.0

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
		WithArgs(uint64(7)).
		WillReturnRows(sessionRows(7, 1, 10, 6.0, in, &out, &reward))

	s, applied, err := store.SettleSession(context.Background(), 7, ledger.SessionClose{
		At: out.Add(time.Hour), RewardCoins: 6.0,
	})
	require.NoError(t, err)
	assert.False(t, applied)
	require.NotNil(t, s.RewardCoins)
	assert.Equal(t, 3.0, *s.RewardCoins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBalanceDeltaDebitInsufficient(t *testing.T) {
	store, mock := newLedgerStoreMock(t)

	mock.ExpectBegin()
	// The conditional UPDATE touches nothing when the balance cannot
	// cover the debit.
	mock.ExpectExec("UPDATE balances").
		WithArgs(-4.0, uint64(1), -4.0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.ApplyBalanceDelta(context.Background(), 1, -4)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRegistrationDebitRollsBackOnDuplicate(t *testing.T) {
	store, mock := newLedgerStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE balances").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT amount FROM balances").
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow(1.0))
	mock.ExpectExec("INSERT INTO registrations").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))
	mock.ExpectRollback()

	_, err := store.CreateRegistrationDebit(context.Background(), &testRegistration)
	assert.ErrorIs(t, err, ledger.ErrAlreadyRegistered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSessionDuplicateOpenMapsToLedgerError(t *testing.T) {
	store, mock := newLedgerStoreMock(t)

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry for key uq_open_session"))

	_, err := store.CreateSession(context.Background(), &testSession)
	assert.ErrorIs(t, err, ledger.ErrSessionAlreadyOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}
