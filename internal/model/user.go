package model

import (
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
)

// User represents a row in the `users` table.  Points, HighestPoints and
// LoyaltyTier are written only by the points ledger; LoyaltyTier always
// equals loyalty.Classify(HighestPoints).
//
// Fields:
//
//	ID            – primary key identifier.
//	Email         – unique, lower-cased email address.
//	PasswordHash  – bcrypt hash; never serialised.
//	Name, Phone   – display name and optional phone number.
//	Role          – one of the authz roles.
//	IsActive      – deactivated users cannot log in.
//	Points        – current spendable balance.
//	HighestPoints – high-water mark of Points.
//	LoyaltyTier   – cached tier derived from HighestPoints.
//	AvatarPath    – /uploads/<file> path of the profile image.
type User struct {
	ID            uint64       `json:"id"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"`
	Name          string       `json:"name"`
	Phone         *string      `json:"phone,omitempty"`
	Role          authz.Role   `json:"role"`
	IsActive      bool         `json:"is_active"`
	Points        int64        `json:"points"`
	HighestPoints int64        `json:"highest_points"`
	LoyaltyTier   loyalty.Tier `json:"loyalty_tier"`
	AvatarPath    *string      `json:"avatar_path,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Balance returns the ledger view of the user.
func (u User) Balance() loyalty.Balance {
	return loyalty.NewBalance(u.Points, u.HighestPoints)
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
