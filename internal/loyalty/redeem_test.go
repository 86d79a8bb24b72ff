package loyalty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		from    RequestStatus
		action  Action
		want    RequestStatus
		wantErr bool
	}{
		{StatusPending, ActionApprove, StatusApproved, false},
		{StatusPending, ActionReject, StatusRejected, false},
		{StatusApproved, ActionUse, StatusUsed, false},
		{StatusPending, ActionUse, StatusPending, true},
		{StatusApproved, ActionApprove, StatusApproved, true},
		{StatusApproved, ActionReject, StatusApproved, true},
		{StatusRejected, ActionApprove, StatusRejected, true},
		{StatusUsed, ActionUse, StatusUsed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := Transition(tt.from, tt.action)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusUsed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
}

func TestCheckEligibility(t *testing.T) {
	silver := NewBalance(600, 600)
	bronzeOffer := Offer{PointsCost: 400, MinimumTier: TierBronze, IsActive: true}

	assert.NoError(t, CheckEligibility(silver, bronzeOffer))

	short := NewBalance(300, 300)
	assert.ErrorIs(t, CheckEligibility(short, bronzeOffer), ErrInsufficientPoints)

	goldOffer := Offer{PointsCost: 100, MinimumTier: TierGold, IsActive: true}
	assert.ErrorIs(t, CheckEligibility(silver, goldOffer), ErrInsufficientTier)

	inactive := bronzeOffer
	inactive.IsActive = false
	assert.ErrorIs(t, CheckEligibility(silver, inactive), ErrRewardInactive)
}

func TestCheckEligibilityUsesHighestForTier(t *testing.T) {
	// spent down to 50 points but once held 1200: still Gold.
	b := NewBalance(50, 1200)
	o := Offer{PointsCost: 50, MinimumTier: TierGold, IsActive: true}
	assert.NoError(t, CheckEligibility(b, o))
}

func TestVoucherExpiry(t *testing.T) {
	approved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := VoucherExpiry(approved, 7)
	require.Equal(t, time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), exp)

	assert.NoError(t, CheckUsable(exp, exp.Add(-time.Second)))
	assert.ErrorIs(t, CheckUsable(exp, exp), ErrVoucherExpired)
	assert.NoError(t, CheckUsable(time.Time{}, exp))
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("approved")
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, st)
	_, ok = ParseStatus("cancelled")
	assert.False(t, ok)
}
