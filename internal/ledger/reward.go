package ledger

import (
	"math"
	"time"
)

// FloorToPrecision truncates x to the given number of decimal places.
// Truncation rather than rounding guarantees a session can never be
// credited more coins than its elapsed time justifies.  Negative and
// non-finite inputs collapse to 0.
func FloorToPrecision(x float64, decimals int) float64 {
	if x <= 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	p := math.Pow10(decimals)
	return math.Floor(x*p) / p
}

// rewardFor computes the coin reward for a session of the given
// elapsed duration at ratePerHour currency units per hour.  The rate
// is divided by the conversion factor (currency units per coin) and
// the result truncated to the configured display precision.  The
// result is non-negative and non-decreasing in elapsed time; zero
// elapsed time yields zero coins.
func (s *Service) rewardFor(elapsed time.Duration, ratePerHour float64) float64 {
	if elapsed <= 0 || ratePerHour <= 0 {
		return 0
	}
	hours := elapsed.Seconds() / 3600
	raw := hours * ratePerHour / s.cfg.ConversionFactor
	return FloorToPrecision(raw, s.cfg.RewardDecimals)
}
