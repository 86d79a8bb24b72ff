package model

import (
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
)

// Reward is a voucher definition in the catalog (`rewards` table).
// PointsCost and ExpiryDays are positive; handlers enforce it on create
// and edit.
type Reward struct {
	ID                  uint64       `json:"id"`
	Name                string       `json:"name"`
	Description         *string      `json:"description,omitempty"`
	PointsCost          int64        `json:"points_cost"`
	ExpiryDays          int          `json:"expiry_days"`
	IsActive            bool         `json:"is_active"`
	MinimumRequiredTier loyalty.Tier `json:"minimum_required_tier"`
	ImagePath           *string      `json:"image_path,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Offer projects the reward onto the eligibility rule input.
func (r Reward) Offer() loyalty.Offer {
	return loyalty.Offer{
		PointsCost:  r.PointsCost,
		MinimumTier: r.MinimumRequiredTier,
		IsActive:    r.IsActive,
		ExpiryDays:  r.ExpiryDays,
	}
}
