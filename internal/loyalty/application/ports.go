package application

import (
	"context"

	"github.com/mykaresto/engine/internal/loyalty/domain"
)

// Repository reads the ledger and handles redemptions. Accrual runs
// inside the payment-confirmation transaction in the order repository,
// not through this port.
type Repository interface {
	// Redeem appends a negative entry when the ledger balance covers
	// the reward; the balance check and the append are one transaction.
	Redeem(ctx context.Context, userID string, reward domain.Reward) error
	Balance(ctx context.Context, userID string) (int64, error)
	Profile(ctx context.Context, userID string) (domain.Profile, error)
	History(ctx context.Context, userID string) ([]domain.Transaction, error)
	Reward(ctx context.Context, rewardID string) (domain.Reward, error)
	ActiveRewards(ctx context.Context) ([]domain.Reward, error)
}
