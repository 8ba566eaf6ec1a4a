package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFloorToPrecision(t *testing.T) {
	assert.Equal(t, 1.5, FloorToPrecision(1.5, 9))
	assert.Equal(t, 0.000138888, FloorToPrecision(0.0001388888888, 9))
	assert.Equal(t, 1.0, FloorToPrecision(1.9999, 0))
	assert.Equal(t, 0.12, FloorToPrecision(0.129999, 2))

	// Degenerate inputs collapse to zero.
	assert.Zero(t, FloorToPrecision(0, 9))
	assert.Zero(t, FloorToPrecision(-3.2, 9))
	assert.Zero(t, FloorToPrecision(math.NaN(), 9))
	assert.Zero(t, FloorToPrecision(math.Inf(1), 9))
}

func TestRewardForNeverExceedsRaw(t *testing.T) {
	svc := New(newFakeStore(true), &manualClock{now: time.Now()}, Config{
		ConversionFactor: 2,
		RewardDecimals:   9,
	})

	cases := []struct {
		elapsed time.Duration
		rate    float64
	}{
		{time.Second, 6},
		{30 * time.Minute, 6},
		{time.Hour, 4.5},
		{7*time.Hour + 13*time.Minute, 3.333},
		{24 * time.Hour, 12},
	}
	for _, tc := range cases {
		raw := tc.elapsed.Seconds() / 3600 * tc.rate / 2
		got := svc.rewardFor(tc.elapsed, tc.rate)
		assert.GreaterOrEqual(t, raw, got, "reward must not exceed the untruncated value")
		assert.InDelta(t, raw, got, 1e-9, "truncation loses at most one unit of precision")
		assert.GreaterOrEqual(t, got, 0.0)
	}
}

func TestRewardForMonotonicInElapsed(t *testing.T) {
	svc := New(newFakeStore(true), &manualClock{now: time.Now()}, Config{
		ConversionFactor: 2,
		RewardDecimals:   9,
	})

	prev := 0.0
	for m := 0; m <= 240; m += 15 {
		got := svc.rewardFor(time.Duration(m)*time.Minute, 6)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestRewardForZeroInputs(t *testing.T) {
	svc := New(newFakeStore(true), &manualClock{now: time.Now()}, Config{
		ConversionFactor: 2,
		RewardDecimals:   9,
	})
	assert.Zero(t, svc.rewardFor(0, 6))
	assert.Zero(t, svc.rewardFor(-time.Minute, 6))
	assert.Zero(t, svc.rewardFor(time.Hour, 0))
}
