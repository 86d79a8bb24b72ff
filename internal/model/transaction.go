package model

import "time"

// TransactionType enumerates ledger entry kinds.
type TransactionType string

const (
	TxPurchase       TransactionType = "purchase"
	TxEarning        TransactionType = "earning"
	TxRedemption     TransactionType = "redemption"
	TxPointsAdded    TransactionType = "points_added"
	TxRewardRedeemed TransactionType = "reward_redeemed"
)

// Spends reports whether the type records points_spent rather than
// points_earned.
func (t TransactionType) Spends() bool {
	return t == TxRedemption || t == TxRewardRedeemed
}

// Transaction is an append-only ledger entry.  Exactly one of
// PointsEarned/PointsSpent is non-zero, chosen by Type.  Amount carries the
// purchase total for purchase rows.
type Transaction struct {
	ID           uint64          `json:"id"`
	UserID       uint64          `json:"user_id"`
	Type         TransactionType `json:"type"`
	Amount       *string         `json:"amount,omitempty"`
	PointsEarned int64           `json:"points_earned"`
	PointsSpent  int64           `json:"points_spent"`
	Description  string          `json:"description"`
	CreatedBy    *uint64         `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
