package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// manualClock lets tests move time deterministically.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStore is an in-memory Store honoring the same atomic contracts
// as the MySQL implementation: one open session per scope, settle and
// cancel apply at most once, debit and insert are all-or-nothing.
// A single mutex serializes every operation, which is exactly the
// serializability the SQL transactions provide.
type fakeStore struct {
	mu          sync.Mutex
	globalScope bool
	sessions    map[uint64]*model.Session
	regs        map[uint64]*model.Registration
	balances    map[uint64]float64
	nextSession uint64
	nextReg     uint64
}

func newFakeStore(globalScope bool) *fakeStore {
	return &fakeStore{
		globalScope: globalScope,
		sessions:    make(map[uint64]*model.Session),
		regs:        make(map[uint64]*model.Registration),
		balances:    make(map[uint64]float64),
	}
}

func copySession(s *model.Session) *model.Session {
	cp := *s
	if s.CheckedOutAt != nil {
		t := *s.CheckedOutAt
		cp.CheckedOutAt = &t
	}
	if s.RewardCoins != nil {
		r := *s.RewardCoins
		cp.RewardCoins = &r
	}
	return &cp
}

func copyRegistration(r *model.Registration) *model.Registration {
	cp := *r
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		cp.CancelledAt = &t
	}
	return &cp
}

func (f *fakeStore) openSessionLocked(userID, cafeID uint64, global bool) *model.Session {
	for _, s := range f.sessions {
		if s.UserID != userID || s.CheckedOutAt != nil {
			continue
		}
		if global || cafeID == 0 || s.CafeID == cafeID {
			return s
		}
	}
	return nil
}

func (f *fakeStore) GetOpenSession(_ context.Context, userID, cafeID uint64, global bool) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.openSessionLocked(userID, cafeID, global); s != nil {
		return copySession(s), nil
	}
	return nil, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openSessionLocked(s.UserID, s.CafeID, f.globalScope) != nil {
		return nil, ErrSessionAlreadyOpen
	}
	f.nextSession++
	cp := copySession(s)
	cp.ID = f.nextSession
	cp.CreatedAt = s.CheckedInAt
	f.sessions[cp.ID] = cp
	return copySession(cp), nil
}

func (f *fakeStore) GetSession(_ context.Context, sessionID uint64) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

func (f *fakeStore) SettleSession(_ context.Context, sessionID uint64, fields SessionClose) (*model.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, false, ErrSessionNotFound
	}
	if s.CheckedOutAt != nil {
		return copySession(s), false, nil
	}
	at := fields.At
	reward := fields.RewardCoins
	s.CheckedOutAt = &at
	s.RewardCoins = &reward
	s.UsdcPaid = fields.UsdcPaid
	s.Commission = fields.Commission
	s.TotalUsdc = fields.TotalUsdc
	f.balances[s.UserID] += reward
	return copySession(s), true, nil
}

func (f *fakeStore) GetBalance(_ context.Context, userID uint64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID], nil
}

func (f *fakeStore) ApplyBalanceDelta(_ context.Context, userID uint64, delta float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyDeltaLocked(userID, delta)
}

func (f *fakeStore) applyDeltaLocked(userID uint64, delta float64) (float64, error) {
	next := f.balances[userID] + delta
	if next < 0 {
		return 0, ErrInsufficientBalance
	}
	f.balances[userID] = next
	return next, nil
}

func (f *fakeStore) GetActiveRegistration(_ context.Context, userID, eventID uint64) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.regs {
		if r.UserID == userID && r.EventID == eventID && r.Status == model.RegistrationActive {
			return copyRegistration(r), nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetRegistration(_ context.Context, registrationID uint64) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[registrationID]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return copyRegistration(r), nil
}

func (f *fakeStore) CreateRegistrationDebit(_ context.Context, reg *model.Registration) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.regs {
		if r.UserID == reg.UserID && r.EventID == reg.EventID && r.Status == model.RegistrationActive {
			return nil, ErrAlreadyRegistered
		}
	}
	if reg.PriceCoins > 0 {
		if _, err := f.applyDeltaLocked(reg.UserID, -reg.PriceCoins); err != nil {
			return nil, err
		}
	}
	f.nextReg++
	cp := copyRegistration(reg)
	cp.ID = f.nextReg
	f.regs[cp.ID] = cp
	return copyRegistration(cp), nil
}

func (f *fakeStore) CancelRegistrationRefund(_ context.Context, registrationID uint64, now time.Time) (*model.Registration, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[registrationID]
	if !ok {
		return nil, false, ErrRegistrationNotFound
	}
	if r.Status != model.RegistrationActive {
		return copyRegistration(r), false, nil
	}
	r.Status = model.RegistrationCancelled
	r.CancelledAt = &now
	if r.PriceCoins > 0 {
		f.balances[r.UserID] += r.PriceCoins
	}
	return copyRegistration(r), true, nil
}

var _ Store = (*fakeStore)(nil)

type LedgerSuite struct {
	suite.Suite
	ctx   context.Context
	clock *manualClock
	store *fakeStore
	svc   *Service
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &manualClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	s.store = newFakeStore(true)
	s.svc = New(s.store, s.clock, Config{
		ConversionFactor:    2,
		RewardDecimals:      9,
		CommissionRate:      0.1,
		SingleGlobalSession: true,
	})
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) TestHalfHourSessionReward() {
	sess, err := s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.Require().NoError(err)
	s.Require().True(sess.Open())

	s.clock.Advance(30 * time.Minute)
	res, err := s.svc.CloseSession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.False(res.Replayed)
	// 0.5h * 6 USDC/h / 2 USDC per coin = 1.5 coins
	s.Equal(1.5, res.RewardCoins)
	s.Require().NotNil(res.Session.CheckedOutAt)
	s.InDelta(3.0, res.Session.UsdcPaid, 1e-9)
	s.InDelta(0.3, res.Session.Commission, 1e-9)
	s.InDelta(3.3, res.Session.TotalUsdc, 1e-9)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(1.5, bal)
}

func (s *LedgerSuite) TestImmediateCheckOutEarnsNothing() {
	sess, err := s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.Require().NoError(err)

	res, err := s.svc.CloseSession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Zero(res.RewardCoins)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Zero(bal)
}

func (s *LedgerSuite) TestSecondCheckInAnywhereRejected() {
	_, err := s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.Require().NoError(err)

	_, err = s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.ErrorIs(err, ErrSessionAlreadyOpen)
	// Global scope: a different café is rejected too.
	_, err = s.svc.OpenSession(s.ctx, 1, 11, 4.0)
	s.ErrorIs(err, ErrSessionAlreadyOpen)

	// A different user is unaffected.
	_, err = s.svc.OpenSession(s.ctx, 2, 10, 6.0)
	s.NoError(err)
}

func (s *LedgerSuite) TestPerCafeScopeAllowsParallelCafes() {
	s.store = newFakeStore(false)
	s.svc = New(s.store, s.clock, Config{ConversionFactor: 2, RewardDecimals: 9})

	first, err := s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.Require().NoError(err)
	second, err := s.svc.OpenSession(s.ctx, 1, 11, 4.0)
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)

	// Still at most one per café.
	_, err = s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.ErrorIs(err, ErrSessionAlreadyOpen)

	cur, err := s.svc.CurrentSession(s.ctx, 1, 11)
	s.Require().NoError(err)
	s.Equal(second.ID, cur.ID)
}

func (s *LedgerSuite) TestInvalidRateRejected() {
	_, err := s.svc.OpenSession(s.ctx, 1, 10, -1)
	s.ErrorIs(err, ErrInvalidAmount)
}

func (s *LedgerSuite) TestDoubleCheckOutCreditsOnce() {
	sess, err := s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.Require().NoError(err)

	s.clock.Advance(time.Hour)
	first, err := s.svc.CloseSession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.False(first.Replayed)
	s.Equal(3.0, first.RewardCoins)

	// More elapsed time must not change the recorded settlement.
	s.clock.Advance(2 * time.Hour)
	second, err := s.svc.CloseSession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(3.0, second.RewardCoins)
	s.Equal(first.Session.CheckedOutAt, second.Session.CheckedOutAt)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(3.0, bal)
}

func (s *LedgerSuite) TestConcurrentCheckOutsSettleOnce() {
	sess, err := s.svc.OpenSession(s.ctx, 1, 10, 6.0)
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)

	const n = 8
	var wg sync.WaitGroup
	applied := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.svc.CloseSession(s.ctx, sess.ID)
			if err == nil {
				applied <- !res.Replayed
			}
		}()
	}
	wg.Wait()
	close(applied)

	wins := 0
	for a := range applied {
		if a {
			wins++
		}
	}
	s.Equal(1, wins)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(3.0, bal)
}

func (s *LedgerSuite) TestRegistrationDebitsCapturedPrice() {
	_, err := s.svc.Credit(s.ctx, 1, 5)
	s.Require().NoError(err)

	reg, err := s.svc.Register(s.ctx, 1, 100, 4)
	s.Require().NoError(err)
	s.Equal(model.RegistrationActive, reg.Status)
	s.Equal(4.0, reg.PriceCoins)
	s.NotEmpty(reg.Reference)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(1.0, bal)
}

func (s *LedgerSuite) TestRegistrationInsufficientBalanceLeavesNoTrace() {
	_, err := s.svc.Credit(s.ctx, 1, 1)
	s.Require().NoError(err)

	_, err = s.svc.Register(s.ctx, 1, 100, 4)
	s.ErrorIs(err, ErrInsufficientBalance)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(1.0, bal)

	active, err := s.store.GetActiveRegistration(s.ctx, 1, 100)
	s.Require().NoError(err)
	s.Nil(active)
}

func (s *LedgerSuite) TestDuplicateActiveRegistrationRejected() {
	_, err := s.svc.Credit(s.ctx, 1, 10)
	s.Require().NoError(err)

	_, err = s.svc.Register(s.ctx, 1, 100, 4)
	s.Require().NoError(err)
	_, err = s.svc.Register(s.ctx, 1, 100, 4)
	s.ErrorIs(err, ErrAlreadyRegistered)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(6.0, bal)
}

func (s *LedgerSuite) TestCancelRefundsOnce() {
	_, err := s.svc.Credit(s.ctx, 1, 5)
	s.Require().NoError(err)
	reg, err := s.svc.Register(s.ctx, 1, 100, 4)
	s.Require().NoError(err)

	cancelled, err := s.svc.Cancel(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationCancelled, cancelled.Status)
	s.NotNil(cancelled.CancelledAt)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(5.0, bal)

	// A second cancel is a no-op, not a second refund.
	again, err := s.svc.Cancel(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationCancelled, again.Status)
	bal, err = s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(5.0, bal)
}

func (s *LedgerSuite) TestCancelThenReregister() {
	_, err := s.svc.Credit(s.ctx, 1, 5)
	s.Require().NoError(err)
	reg, err := s.svc.Register(s.ctx, 1, 100, 4)
	s.Require().NoError(err)
	_, err = s.svc.Cancel(s.ctx, reg.ID)
	s.Require().NoError(err)

	// The cancelled row no longer blocks a fresh registration.
	again, err := s.svc.Register(s.ctx, 1, 100, 4)
	s.Require().NoError(err)
	s.NotEqual(reg.ID, again.ID)
	s.NotEqual(reg.Reference, again.Reference)
}

func (s *LedgerSuite) TestRegisterCancelPairsConserveBalance() {
	const initial = 7.5
	_, err := s.svc.Credit(s.ctx, 1, initial)
	s.Require().NoError(err)

	// Any sequence of register/cancel pairs with no session credits in
	// between leaves the balance where it started.
	for i, price := range []float64{4, 1.25, 0, 2} {
		eventID := uint64(100 + i)
		reg, err := s.svc.Register(s.ctx, 1, eventID, price)
		s.Require().NoError(err)
		_, err = s.svc.Cancel(s.ctx, reg.ID)
		s.Require().NoError(err)
	}

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(initial, bal)
}

func (s *LedgerSuite) TestConcurrentRegistrationsCannotOverspend() {
	_, err := s.svc.Credit(s.ctx, 1, 5)
	s.Require().NoError(err)

	// Two events priced 3 each; a 5-coin balance covers only one.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, eventID := range []uint64{100, 101} {
		wg.Add(1)
		go func(ev uint64) {
			defer wg.Done()
			_, err := s.svc.Register(s.ctx, 1, ev, 3)
			errs <- err
		}(eventID)
	}
	wg.Wait()
	close(errs)

	succeeded, failed := 0, 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, ErrInsufficientBalance)
			failed++
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, failed)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(2.0, bal)
}

func (s *LedgerSuite) TestCreditAndDebitValidation() {
	_, err := s.svc.Credit(s.ctx, 1, -1)
	s.ErrorIs(err, ErrInvalidAmount)

	_, err = s.svc.Debit(s.ctx, 1, 1)
	s.ErrorIs(err, ErrInsufficientBalance)

	bal, err := s.svc.Credit(s.ctx, 1, 2.5)
	s.Require().NoError(err)
	s.Equal(2.5, bal)
	bal, err = s.svc.Debit(s.ctx, 1, 1.5)
	s.Require().NoError(err)
	s.Equal(1.0, bal)
}

func (s *LedgerSuite) TestFreeEventRegistration() {
	reg, err := s.svc.Register(s.ctx, 1, 200, 0)
	s.Require().NoError(err)
	s.Zero(reg.PriceCoins)

	bal, err := s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Zero(bal)

	// Cancelling a free registration refunds nothing.
	_, err = s.svc.Cancel(s.ctx, reg.ID)
	s.Require().NoError(err)
	bal, err = s.svc.Balance(s.ctx, 1)
	s.Require().NoError(err)
	s.Zero(bal)
}
