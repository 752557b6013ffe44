package domain

import "time"

type Kind string

const (
	KindEarned   Kind = "earned"
	KindRedeemed Kind = "redeemed"
	KindExpired  Kind = "expired"
	KindAdjusted Kind = "adjusted"
)

// Transaction is one append-only ledger entry. A user's balance is
// always the sum of their entries; cached counters are derived reads.
type Transaction struct {
	ID           string
	UserID       string
	OrderID      string // empty unless kind is earned
	PointsChange int64
	Kind         Kind
	Description  string
	CreatedAt    time.Time
}

type Profile struct {
	UserID        string
	FullName      string
	Phone         string
	LoyaltyPoints int64
	TotalOrders   int64
}

// Reward is a catalog entry points can be exchanged for.
type Reward struct {
	ID             string
	Name           string
	Description    string
	PointsRequired int64
	RewardType     string
	IsActive       bool
}
