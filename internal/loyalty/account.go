package loyalty

import "math"

// Balance is the loyalty-relevant slice of a user row.  Tier is never set
// by callers; Credit and Debit return a balance whose tier already
// matches HighestPoints.
type Balance struct {
	Points        int64 `json:"points"`
	HighestPoints int64 `json:"highest_points"`
	Tier          Tier  `json:"loyalty_tier"`
}

// NewBalance builds a balance and derives its tier.  highest is raised to
// points when a legacy row has a stale high-water mark.
func NewBalance(points, highest int64) Balance {
	if highest < points {
		highest = points
	}
	return Balance{Points: points, HighestPoints: highest, Tier: Classify(highest)}
}

// Credit adds amount points and raises the high-water mark.  A credit that
// would overflow the balance returns ErrBalanceOverflow and changes nothing.
func (b Balance) Credit(amount int64) (Balance, error) {
	if amount <= 0 {
		return b, ErrInvalidAmount
	}
	if amount > math.MaxInt64-b.Points {
		return b, ErrBalanceOverflow
	}
	return NewBalance(b.Points+amount, b.HighestPoints), nil
}

// Debit removes amount points.  There is no partial debit: when the
// balance is short the original balance is returned with
// ErrInsufficientPoints.  HighestPoints never decreases.
func (b Balance) Debit(amount int64) (Balance, error) {
	if amount <= 0 {
		return b, ErrInvalidAmount
	}
	if b.Points < amount {
		return b, ErrInsufficientPoints
	}
	return NewBalance(b.Points-amount, b.HighestPoints), nil
}

// PointsToNextTier returns how many more points of high-water mark are
// needed for the next tier, or 0 at Gold.
func (b Balance) PointsToNextTier() int64 {
	_, threshold, ok := b.Tier.Next()
	if !ok {
		return 0
	}
	return threshold - b.HighestPoints
}
