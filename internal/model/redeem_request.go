package model

import (
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
)

// RedeemRequest is one redemption attempt (`redeem_requests` table).
// PointsUsed is the reward cost debited when the request was created.
// VoucherCode and ExpiresAt are set on approval; UsedAt on use.
type RedeemRequest struct {
	ID          uint64                `json:"id"`
	UserID      uint64                `json:"user_id"`
	RewardID    uint64                `json:"reward_id"`
	Status      loyalty.RequestStatus `json:"status"`
	PointsUsed  int64                 `json:"points_used"`
	VoucherCode *string               `json:"voucher_code,omitempty"`
	Note        *string               `json:"note,omitempty"`
	RequestedAt time.Time             `json:"requested_at"`
	ProcessedAt *time.Time            `json:"processed_at,omitempty"`
	ProcessedBy *uint64               `json:"processed_by,omitempty"`
	ExpiresAt   *time.Time            `json:"expires_at,omitempty"`
	UsedAt      *time.Time            `json:"used_at,omitempty"`
}

// RedeemRequestDetail joins a request with the reward and requester names
// for list screens.
type RedeemRequestDetail struct {
	RedeemRequest
	RewardName string `json:"reward_name"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
}
