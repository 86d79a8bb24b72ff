// Package loyalty holds the pure rules of the rewards program: tier
// classification, balance arithmetic, purchase earning and the redeem
// request state machine.  Nothing in this package touches the database;
// the service layer applies these rules inside SQL transactions.
package loyalty

import (
	"fmt"
	"strings"
)

// Tier is the ordinal loyalty classification of a user.
type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
)

// Tier thresholds on the all-time highest balance.  Both are inclusive
// lower bounds.
const (
	SilverThreshold int64 = 500
	GoldThreshold   int64 = 1000
)

// Classify maps a user's highest points ever reached to a tier.
func Classify(highestPoints int64) Tier {
	switch {
	case highestPoints >= GoldThreshold:
		return TierGold
	case highestPoints >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// Rank returns the ordinal position of the tier (Bronze=0, Silver=1,
// Gold=2).  Unknown values rank below Bronze.
func (t Tier) Rank() int {
	switch t {
	case TierBronze:
		return 0
	case TierSilver:
		return 1
	case TierGold:
		return 2
	}
	return -1
}

// AtLeast reports whether t is the same as or above min.
func (t Tier) AtLeast(min Tier) bool { return t.Rank() >= min.Rank() }

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool { return t.Rank() >= 0 }

// Next returns the tier above t and the highest-points threshold needed to
// reach it.  ok is false for Gold.
func (t Tier) Next() (next Tier, threshold int64, ok bool) {
	switch t {
	case TierBronze:
		return TierSilver, SilverThreshold, true
	case TierSilver:
		return TierGold, GoldThreshold, true
	}
	return "", 0, false
}

// ParseTier accepts tier names case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bronze":
		return TierBronze, nil
	case "silver":
		return TierSilver, nil
	case "gold":
		return TierGold, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}
