package ledger

import (
	"context"
	"time"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// Store is the persistence collaborator of the ledger.  Implementations
// must make each method atomic with respect to concurrent callers: the
// settlement methods either fully apply (row update plus balance delta
// in one transaction) or leave no visible change.  The SQL
// implementation lives in internal/repository.
type Store interface {
	// GetOpenSession returns the user's open session, or nil when none
	// exists.  When global is true the lookup ignores cafeID and spans
	// all cafés; otherwise it is scoped to (user, café).
	GetOpenSession(ctx context.Context, userID, cafeID uint64, global bool) (*model.Session, error)

	// CreateSession inserts a new open session.  It must re-check the
	// open-session constraint inside the insert transaction and return
	// ErrSessionAlreadyOpen when a concurrent check-in won the race.
	CreateSession(ctx context.Context, s *model.Session) (*model.Session, error)

	// GetSession returns the session or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID uint64) (*model.Session, error)

	// SettleSession atomically closes an open session and credits the
	// reward to the user's balance.  When the session is already
	// closed it applies nothing and returns the stored row with
	// applied=false, letting the caller replay the recorded result.
	SettleSession(ctx context.Context, sessionID uint64, close SessionClose) (s *model.Session, applied bool, err error)

	// GetBalance returns the user's current coin amount, 0 when no
	// balance row exists yet.
	GetBalance(ctx context.Context, userID uint64) (float64, error)

	// ApplyBalanceDelta adds delta (may be negative) to the user's
	// balance and returns the new amount.  It is the serialization
	// point for all balance mutation and must fail with
	// ErrInsufficientBalance, changing nothing, when the result would
	// be negative.
	ApplyBalanceDelta(ctx context.Context, userID uint64, delta float64) (float64, error)

	// GetActiveRegistration returns the user's ACTIVE registration for
	// the event, or nil when none exists.
	GetActiveRegistration(ctx context.Context, userID, eventID uint64) (*model.Registration, error)

	// GetRegistration returns the registration or ErrRegistrationNotFound.
	GetRegistration(ctx context.Context, registrationID uint64) (*model.Registration, error)

	// CreateRegistrationDebit atomically debits the captured price from
	// the user's balance and inserts the registration.  Either both
	// apply or neither does.  Returns ErrInsufficientBalance or
	// ErrAlreadyRegistered without mutating anything.
	CreateRegistrationDebit(ctx context.Context, reg *model.Registration) (*model.Registration, error)

	// CancelRegistrationRefund atomically marks an ACTIVE registration
	// CANCELLED and credits the captured price back.  When the
	// registration is already cancelled it applies nothing and returns
	// applied=false.
	CancelRegistrationRefund(ctx context.Context, registrationID uint64, now time.Time) (reg *model.Registration, applied bool, err error)
}

// SessionClose carries the values written when a session is settled.
type SessionClose struct {
	At          time.Time // check-out timestamp
	RewardCoins float64   // coins credited to the balance
	UsdcPaid    float64   // owed to the café for elapsed time
	Commission  float64   // platform cut on UsdcPaid
	TotalUsdc   float64   // UsdcPaid + Commission
}

// Transferer mirrors earned coins to the external token ledger.  It
// is strictly best-effort: the ledger never consults its result for
// correctness and a failed transfer never rolls back a credit.
type Transferer interface {
	// TransferReward asks the treasury to move amount coins to the
	// wallet and returns an opaque transaction reference.
	TransferReward(ctx context.Context, walletAddr string, amount float64) (string, error)
}

// Clock abstracts time.Now so tests can settle sessions at fixed
// instants.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
