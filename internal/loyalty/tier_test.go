package loyalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		highest int64
		want    Tier
	}{
		{0, TierBronze},
		{499, TierBronze},
		{500, TierSilver},
		{600, TierSilver},
		{999, TierSilver},
		{1000, TierGold},
		{250000, TierGold},
		{-5, TierBronze},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.highest), "highest=%d", tt.highest)
	}
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierGold.AtLeast(TierSilver))
	assert.True(t, TierSilver.AtLeast(TierSilver))
	assert.True(t, TierSilver.AtLeast(TierBronze))
	assert.False(t, TierBronze.AtLeast(TierSilver))
	assert.False(t, TierSilver.AtLeast(TierGold))
	assert.False(t, Tier("Platinum").Valid())
}

func TestTierNext(t *testing.T) {
	next, threshold, ok := TierBronze.Next()
	require.True(t, ok)
	assert.Equal(t, TierSilver, next)
	assert.EqualValues(t, 500, threshold)

	_, _, ok = TierGold.Next()
	assert.False(t, ok)
}

func TestParseTier(t *testing.T) {
	got, err := ParseTier(" gold ")
	require.NoError(t, err)
	assert.Equal(t, TierGold, got)

	_, err = ParseTier("diamond")
	assert.Error(t, err)
}
