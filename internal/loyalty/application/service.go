package application

import (
	"context"

	"github.com/mykaresto/engine/internal/loyalty/domain"
	"github.com/mykaresto/engine/pkg/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperr.Validation("user_id", "user id is required")
	}
	return s.repo.Balance(ctx, userID)
}

func (s *Service) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, apperr.Validation("user_id", "user id is required")
	}
	return s.repo.Profile(ctx, userID)
}

func (s *Service) History(ctx context.Context, userID string) ([]domain.Transaction, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id", "user id is required")
	}
	return s.repo.History(ctx, userID)
}

func (s *Service) ActiveRewards(ctx context.Context) ([]domain.Reward, error) {
	return s.repo.ActiveRewards(ctx)
}

func (s *Service) Redeem(ctx context.Context, userID, rewardID string) error {
	if userID == "" {
		return apperr.Validation("user_id", "user id is required")
	}
	reward, err := s.repo.Reward(ctx, rewardID)
	if err != nil {
		return err
	}
	if !reward.IsActive {
		return apperr.Validation("reward_id", "reward is not active")
	}
	return s.repo.Redeem(ctx, userID, reward)
}
