package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/antiapp/cafe-focus-rewards/internal/ledger"
	"github.com/antiapp/cafe-focus-rewards/internal/model"
	"github.com/antiapp/cafe-focus-rewards/internal/queue"
	"github.com/antiapp/cafe-focus-rewards/internal/repository"
	queuepub "github.com/antiapp/cafe-focus-rewards/internal/service"
	"github.com/antiapp/cafe-focus-rewards/internal/utils"
)

// SessionHandler serves the customer's focus-session flow: scanning a
// café QR to check in, scanning again to check out and collect the
// reward, plus the current-session and history views.
type SessionHandler struct {
	Ledger      *ledger.Service
	CafeRepo    *repository.CafeRepo
	SessionRepo *repository.SessionRepo
	Users       *repository.UserRepo
	Minter      ledger.Transferer
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(svc *ledger.Service, cafeRepo *repository.CafeRepo, sessionRepo *repository.SessionRepo, users *repository.UserRepo, minter ledger.Transferer) *SessionHandler {
	if svc == nil || cafeRepo == nil || sessionRepo == nil || users == nil {
		panic("nil dependency passed to NewSessionHandler")
	}
	return &SessionHandler{Ledger: svc, CafeRepo: cafeRepo, SessionRepo: sessionRepo, Users: users, Minter: minter}
}

type scanReq struct {
	Payload string `json:"payload"` // raw scanned QR content
}

// sessionView is the JSON shape for a session row.
type sessionView struct {
	ID           uint64   `json:"id"`
	CafeID       uint64   `json:"cafe_id"`
	RatePerHour  float64  `json:"rate_per_hour"`
	CheckedInAt  string   `json:"checked_in_at"`
	CheckedOutAt *string  `json:"checked_out_at,omitempty"`
	RewardCoins  *float64 `json:"reward_coins,omitempty"`
}

func toSessionView(s *model.Session) sessionView {
	v := sessionView{
		ID:          s.ID,
		CafeID:      s.CafeID,
		RatePerHour: s.RatePerHour,
		CheckedInAt: s.CheckedInAt.UTC().Format(time.RFC3339),
	}
	if s.CheckedOutAt != nil {
		iso := s.CheckedOutAt.UTC().Format(time.RFC3339)
		v.CheckedOutAt = &iso
	}
	if s.RewardCoins != nil {
		r := *s.RewardCoins
		v.RewardCoins = &r
	}
	return v
}

// CheckIn handles POST /v1/sessions/check-in.  The body carries the
// scanned check-in QR payload; the café it names must be active and
// must have a published hourly rate before a session can open.
func (h *SessionHandler) CheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	cafeID, err := utils.VerifyQR(req.Payload, utils.QRCheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check-in code"})
	}

	ctx := c.Request().Context()
	cafe, err := h.CafeRepo.GetByID(ctx, cafeID)
	if err != nil {
		if err == repository.ErrCafeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !cafe.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
	}
	if cafe.UsdcPerHour == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cafe has no published rate"})
	}

	sess, err := h.Ledger.OpenSession(ctx, userID, cafe.ID, *cafe.UsdcPerHour)
	if err != nil {
		switch err {
		case ledger.ErrSessionAlreadyOpen:
			return c.JSON(http.StatusConflict, echo.Map{"error": "session already open"})
		case ledger.ErrInvalidAmount:
			return c.JSON(http.StatusConflict, echo.Map{"error": "cafe has no published rate"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session":   toSessionView(sess),
		"cafe_name": cafe.Name,
	})
}

// CheckOut handles POST /v1/sessions/check-out.  Settlement is
// internal and atomic; the on-chain mirror and the queue announcement
// run afterwards as best-effort side effects, so a broker or treasury
// outage never blocks the reward.
func (h *SessionHandler) CheckOut(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	cafeID, err := utils.VerifyQR(req.Payload, utils.QRCheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check-out code"})
	}

	ctx := c.Request().Context()
	sess, err := h.Ledger.CurrentSession(ctx, userID, cafeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if sess == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no open session"})
	}
	if sess.CafeID != cafeID {
		return c.JSON(http.StatusConflict, echo.Map{"error": "open session is at a different cafe"})
	}

	res, err := h.Ledger.CloseSession(ctx, sess.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-out failed"})
	}

	resp := echo.Map{
		"session":      toSessionView(res.Session),
		"reward_coins": res.RewardCoins,
	}
	if res.Replayed {
		resp["replayed"] = true
		return c.JSON(http.StatusOK, resp)
	}

	signature := h.mirrorReward(ctx, userID, res.RewardCoins)
	if signature != "" {
		resp["mint_signature"] = signature
	} else if h.Minter != nil && res.RewardCoins > 0 {
		resp["warning"] = "reward settled internally, on-chain mirror pending"
	}
	cafeName := ""
	if cafe, err := h.CafeRepo.GetByID(ctx, sess.CafeID); err == nil {
		cafeName = cafe.Name
	}
	h.announceClose(res, cafeName, signature)
	return c.JSON(http.StatusOK, resp)
}

// mirrorReward forwards the reward to the treasury when the user has
// a wallet linked.  Failures only produce a log line and a warning in
// the response.
func (h *SessionHandler) mirrorReward(ctx context.Context, userID uint64, reward float64) string {
	if h.Minter == nil || reward <= 0 {
		return ""
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || u.WalletAddr == "" {
		return ""
	}
	sig, err := h.Minter.TransferReward(ctx, u.WalletAddr, reward)
	if err != nil {
		log.Printf("check-out: reward mirror failed for user %d: %v", userID, err)
		return ""
	}
	return sig
}

// announceClose publishes the settlement to the session.closed queue.
func (h *SessionHandler) announceClose(res *ledger.CloseResult, cafeName, signature string) {
	s := res.Session
	ev := queue.SessionClosedEvent{
		SessionID:     s.ID,
		UserID:        s.UserID,
		CafeID:        s.CafeID,
		CafeName:      cafeName,
		CheckedInAt:   s.CheckedInAt.UTC().Format(time.RFC3339),
		RewardCoins:   res.RewardCoins,
		UsdcPaid:      s.UsdcPaid,
		Commission:    s.Commission,
		TotalUsdc:     s.TotalUsdc,
		MintSignature: signature,
	}
	if s.CheckedOutAt != nil {
		ev.CheckedOutAt = s.CheckedOutAt.UTC().Format(time.RFC3339)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = queuepub.PublishSessionClosed(ctx, ev)
}

// Current handles GET /v1/sessions/current.  The optional cafe_id
// query parameter scopes the lookup when sessions are per café.
func (h *SessionHandler) Current(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var cafeID uint64
	if raw := c.QueryParam("cafe_id"); raw != "" {
		if cafeID, err = parseID(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cafe_id"})
		}
	}
	sess, err := h.Ledger.CurrentSession(c.Request().Context(), userID, cafeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if sess == nil {
		return c.JSON(http.StatusOK, echo.Map{"session": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"session": toSessionView(sess)})
}

// History handles GET /v1/sessions: the customer's past and present
// sessions, newest first.
func (h *SessionHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessions, err := h.SessionRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]sessionView, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionView(&sessions[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}
