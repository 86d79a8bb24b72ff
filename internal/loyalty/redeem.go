package loyalty

import "time"

// RequestStatus is the lifecycle state of a redeem request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusUsed     RequestStatus = "used"
)

// Action is a manager or customer decision applied to a request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionUse     Action = "use"
)

// transitions lists the only legal edges: pending -> approved|rejected and
// approved -> used.  rejected and used are terminal.
var transitions = map[RequestStatus]map[Action]RequestStatus{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusApproved: {
		ActionUse: StatusUsed,
	},
}

// Transition returns the state reached by applying a to from.
func Transition(from RequestStatus, a Action) (RequestStatus, error) {
	if to, ok := transitions[from][a]; ok {
		return to, nil
	}
	return from, ErrInvalidTransition
}

// Terminal reports whether no action can leave s.
func (s RequestStatus) Terminal() bool { return len(transitions[s]) == 0 }

// ParseStatus validates a status string.
func ParseStatus(s string) (RequestStatus, bool) {
	switch st := RequestStatus(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusUsed:
		return st, true
	}
	return "", false
}

// Offer is the part of a voucher definition the eligibility check needs.
type Offer struct {
	PointsCost  int64
	MinimumTier Tier
	IsActive    bool
	ExpiryDays  int
}

// CheckEligibility applies the creation-time rules: the reward must be
// active, the user's tier must reach the reward minimum and the balance
// must cover the cost.  Tier is checked before balance so that a user who
// fails both sees the tier message.
func CheckEligibility(b Balance, o Offer) error {
	if !o.IsActive {
		return ErrRewardInactive
	}
	if o.PointsCost <= 0 {
		return ErrInvalidAmount
	}
	if !b.Tier.AtLeast(o.MinimumTier) {
		return ErrInsufficientTier
	}
	if b.Points < o.PointsCost {
		return ErrInsufficientPoints
	}
	return nil
}

// VoucherExpiry is the instant an approved voucher stops being usable.
func VoucherExpiry(approvedAt time.Time, expiryDays int) time.Time {
	return approvedAt.Add(time.Duration(expiryDays) * 24 * time.Hour)
}

// CheckUsable verifies that an approved voucher has not expired at now.
// A zero expiresAt means no expiry was recorded.
func CheckUsable(expiresAt time.Time, now time.Time) error {
	if !expiresAt.IsZero() && !now.Before(expiresAt) {
		return ErrVoucherExpired
	}
	return nil
}
