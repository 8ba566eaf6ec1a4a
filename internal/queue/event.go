// Package queue defines message payloads exchanged over the message broker.
package queue

// SessionClosedEvent is published after a focus session settles.  It
// carries enough information for downstream consumers to log, notify
// merchants, or feed analytics without querying the primary database.
// MintSignature is empty when the on-chain mirror was skipped or
// failed; the internal credit stands either way.
type SessionClosedEvent struct {
	SessionID     uint64  `json:"session_id"`
	UserID        uint64  `json:"user_id"`
	CafeID        uint64  `json:"cafe_id"`
	CafeName      string  `json:"cafe_name"`
	CheckedInAt   string  `json:"checked_in_at"`
	CheckedOutAt  string  `json:"checked_out_at"`
	RewardCoins   float64 `json:"reward_coins"`
	UsdcPaid      float64 `json:"usdc_paid"`
	Commission    float64 `json:"commission"`
	TotalUsdc     float64 `json:"total_usdc"`
	MintSignature string  `json:"mint_signature,omitempty"`
}
