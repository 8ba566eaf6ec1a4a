package ledger

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// Config carries the settlement constants.  ConversionFactor is the
// number of currency units (USDC) one reward coin represents;
// RewardDecimals the coin's display precision; CommissionRate the
// platform cut applied to the café payment figures recorded at
// close.  SingleGlobalSession selects the open-session scope: true
// allows at most one open session per user anywhere, false narrows
// the constraint to one per (user, café).
type Config struct {
	ConversionFactor    float64
	RewardDecimals      int
	CommissionRate      float64
	SingleGlobalSession bool
}

// Service is the session ledger.  It is safe for concurrent use; all
// cross-request coordination is delegated to the Store's atomic
// operations.
type Service struct {
	store Store
	clock Clock
	cfg   Config
}

// New constructs a Service.  A nil clock defaults to the system
// clock.  A non-positive conversion factor defaults to 1 and a
// negative decimals count to 0 so a misconfigured environment cannot
// divide by zero or inflate rewards.
func New(store Store, clock Clock, cfg Config) *Service {
	if store == nil {
		panic("nil store passed to ledger.New")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.ConversionFactor <= 0 {
		cfg.ConversionFactor = 1
	}
	if cfg.RewardDecimals < 0 {
		cfg.RewardDecimals = 0
	}
	if cfg.CommissionRate < 0 {
		cfg.CommissionRate = 0
	}
	return &Service{store: store, clock: clock, cfg: cfg}
}

// CloseResult is returned by CloseSession.  Replayed is true when the
// session had already been closed and the stored settlement was
// returned instead of a second credit being applied.
type CloseResult struct {
	Session     *model.Session
	RewardCoins float64
	Replayed    bool
}

// OpenSession starts a focus session for the user at the café with
// the hourly rate captured now.  It fails with ErrSessionAlreadyOpen
// when the user already holds an open session in the configured
// scope.  The pre-check here gives a friendly fast path; the Store
// re-checks inside the insert transaction so a concurrent check-in
// cannot slip a duplicate through.
func (s *Service) OpenSession(ctx context.Context, userID, cafeID uint64, ratePerHour float64) (*model.Session, error) {
	if ratePerHour < 0 || math.IsNaN(ratePerHour) || math.IsInf(ratePerHour, 0) {
		return nil, ErrInvalidAmount
	}
	existing, err := s.store.GetOpenSession(ctx, userID, cafeID, s.cfg.SingleGlobalSession)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSessionAlreadyOpen
	}
	now := s.clock.Now().UTC()
	return s.store.CreateSession(ctx, &model.Session{
		UserID:      userID,
		CafeID:      cafeID,
		RatePerHour: ratePerHour,
		CheckedInAt: now,
	})
}

// CurrentSession returns the user's open session in the configured
// scope, or nil when none exists.
func (s *Service) CurrentSession(ctx context.Context, userID, cafeID uint64) (*model.Session, error) {
	return s.store.GetOpenSession(ctx, userID, cafeID, s.cfg.SingleGlobalSession)
}

// CloseSession settles a session: it computes the reward for the
// elapsed time at the rate captured on check-in, stamps the check-out
// fields and credits the user's balance, all in one Store
// transaction.  Closing an already-closed session is a no-op that
// returns the previously recorded reward; the balance is credited
// exactly once no matter how many times check-out is reported.
func (s *Service) CloseSession(ctx context.Context, sessionID uint64) (*CloseResult, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Open() {
		return replayedResult(sess), nil
	}

	now := s.clock.Now().UTC()
	elapsed := now.Sub(sess.CheckedInAt)
	if elapsed < 0 {
		elapsed = 0
	}
	hours := elapsed.Seconds() / 3600
	usdcPaid := hours * sess.RatePerHour
	commission := usdcPaid * s.cfg.CommissionRate
	fields := SessionClose{
		At:          now,
		RewardCoins: s.rewardFor(elapsed, sess.RatePerHour),
		UsdcPaid:    usdcPaid,
		Commission:  commission,
		TotalUsdc:   usdcPaid + commission,
	}

	settled, applied, err := s.store.SettleSession(ctx, sessionID, fields)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent check-out won the settle; its stored result is
		// the authoritative one.
		return replayedResult(settled), nil
	}
	return &CloseResult{Session: settled, RewardCoins: fields.RewardCoins}, nil
}

func replayedResult(sess *model.Session) *CloseResult {
	res := &CloseResult{Session: sess, Replayed: true}
	if sess.RewardCoins != nil {
		res.RewardCoins = *sess.RewardCoins
	}
	return res
}

// Balance returns the user's current coin amount (0 when the user
// has never earned or spent).
func (s *Service) Balance(ctx context.Context, userID uint64) (float64, error) {
	return s.store.GetBalance(ctx, userID)
}

// Credit adds amount coins to the user's balance.  Negative amounts
// are rejected with ErrInvalidAmount.
func (s *Service) Credit(ctx context.Context, userID uint64, amount float64) (float64, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	return s.store.ApplyBalanceDelta(ctx, userID, amount)
}

// Debit removes amount coins from the user's balance, failing with
// ErrInsufficientBalance when the balance would go negative.
func (s *Service) Debit(ctx context.Context, userID uint64, amount float64) (float64, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	return s.store.ApplyBalanceDelta(ctx, userID, -amount)
}

// Register spends priceCoins of the user's balance on an event
// registration.  The debit and the registration insert happen in one
// Store transaction: either both apply or neither does, so a second
// concurrent caller can never observe a debit without its
// registration or vice versa.  Fails with ErrAlreadyRegistered when
// the user holds an active registration for the event and
// ErrInsufficientBalance when the balance cannot cover the price.
func (s *Service) Register(ctx context.Context, userID, eventID uint64, priceCoins float64) (*model.Registration, error) {
	if priceCoins < 0 || math.IsNaN(priceCoins) || math.IsInf(priceCoins, 0) {
		return nil, ErrInvalidAmount
	}
	existing, err := s.store.GetActiveRegistration(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}
	return s.store.CreateRegistrationDebit(ctx, &model.Registration{
		UserID:     userID,
		EventID:    eventID,
		PriceCoins: priceCoins,
		Reference:  uuid.NewString(),
		Status:     model.RegistrationActive,
		CreatedAt:  s.clock.Now().UTC(),
	})
}

// Cancel marks a registration CANCELLED and refunds the price
// captured at registration time (not the event's current price).
// Cancelling an already-cancelled registration is a no-op: the
// refund is credited exactly once.
func (s *Service) Cancel(ctx context.Context, registrationID uint64) (*model.Registration, error) {
	reg, _, err := s.store.CancelRegistrationRefund(ctx, registrationID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Registration returns a registration by ID so callers can check
// ownership before cancelling.
func (s *Service) Registration(ctx context.Context, registrationID uint64) (*model.Registration, error) {
	return s.store.GetRegistration(ctx, registrationID)
}
