package loyalty

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceCreditRaisesHighWaterMark(t *testing.T) {
	b := NewBalance(0, 0)
	var err error
	for _, amt := range []int64{100, 450, 20, 700} {
		prev := b.HighestPoints
		b, err = b.Credit(amt)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.HighestPoints, prev)
		assert.Equal(t, b.Points, b.HighestPoints)
		assert.Equal(t, Classify(b.HighestPoints), b.Tier)
	}
	assert.Equal(t, TierGold, b.Tier)
}

func TestBalanceCreditRejectsNonPositive(t *testing.T) {
	b := NewBalance(10, 10)
	got, err := b.Credit(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, b, got)
}

func TestBalanceDebitKeepsHighest(t *testing.T) {
	b := NewBalance(1200, 1200)
	b, err := b.Debit(900)
	require.NoError(t, err)
	assert.EqualValues(t, 300, b.Points)
	assert.EqualValues(t, 1200, b.HighestPoints)
	assert.Equal(t, TierGold, b.Tier)
}

func TestBalanceDebitInsufficient(t *testing.T) {
	b := NewBalance(300, 300)
	got, err := b.Debit(400)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.EqualValues(t, 300, got.Points)
}

func TestHighestMonotonicAcrossDebitAndCredit(t *testing.T) {
	b := NewBalance(600, 600)
	b, _ = b.Debit(400)
	b, _ = b.Credit(500)
	assert.EqualValues(t, 700, b.HighestPoints)
	b, _ = b.Credit(400)
	assert.EqualValues(t, 1100, b.Points)
	assert.EqualValues(t, 1100, b.HighestPoints)
}

func TestNewBalanceRepairsStaleHighest(t *testing.T) {
	b := NewBalance(800, 100)
	assert.EqualValues(t, 800, b.HighestPoints)
	assert.Equal(t, TierSilver, b.Tier)
}

func TestPointsToNextTier(t *testing.T) {
	assert.EqualValues(t, 380, NewBalance(120, 120).PointsToNextTier())
	assert.EqualValues(t, 1, NewBalance(0, 999).PointsToNextTier())
	assert.EqualValues(t, 0, NewBalance(5, 1000).PointsToNextTier())
}

func TestBalanceCreditOverflow(t *testing.T) {
	tests := []struct {
		name    string
		start   Balance
		amount  int64
		wantErr error
	}{
		{"max grant on a funded balance", NewBalance(600, 600), math.MaxInt64, ErrBalanceOverflow},
		{"one past the limit", NewBalance(math.MaxInt64-10, math.MaxInt64-10), 11, ErrBalanceOverflow},
		{"exactly to the limit", NewBalance(math.MaxInt64-10, math.MaxInt64-10), 10, nil},
		{"max grant on empty balance", NewBalance(0, 0), math.MaxInt64, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.start.Credit(tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.start, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(math.MaxInt64), got.Points)
			assert.GreaterOrEqual(t, got.Points, int64(0))
		})
	}
}
