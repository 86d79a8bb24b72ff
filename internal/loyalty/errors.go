package loyalty

import "errors"

// Validation failures raised by the rules in this package.  Handlers map
// them to user-facing messages.
var (
	ErrInvalidAmount      = errors.New("points amount must be positive")
	ErrBalanceOverflow    = errors.New("points balance would exceed the maximum")
	ErrPurchaseTooSmall   = errors.New("purchase total too small to earn points")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInsufficientTier   = errors.New("loyalty tier too low for this reward")
	ErrRewardInactive     = errors.New("reward is not active")
	ErrInvalidTransition  = errors.New("redeem request is not in a state that allows this action")
	ErrVoucherExpired     = errors.New("voucher has expired")
)
