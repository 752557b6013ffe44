package application

import (
	"context"
	"testing"

	"github.com/mykaresto/engine/internal/loyalty/domain"
	"github.com/mykaresto/engine/pkg/apperr"
)

type fakeRepo struct {
	rewards     map[string]domain.Reward
	profiles    map[string]domain.Profile
	redeemed    []domain.Reward
	redeemError error
}

func (f *fakeRepo) Redeem(ctx context.Context, userID string, reward domain.Reward) error {
	if f.redeemError != nil {
		return f.redeemError
	}
	f.redeemed = append(f.redeemed, reward)
	return nil
}

func (f *fakeRepo) Balance(ctx context.Context, userID string) (int64, error) {
	return f.profiles[userID].LoyaltyPoints, nil
}

func (f *fakeRepo) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return domain.Profile{}, apperr.NotFound("user profile", userID)
	}
	return p, nil
}

func (f *fakeRepo) History(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return nil, nil
}

func (f *fakeRepo) Reward(ctx context.Context, rewardID string) (domain.Reward, error) {
	rw, ok := f.rewards[rewardID]
	if !ok {
		return domain.Reward{}, apperr.NotFound("reward", rewardID)
	}
	return rw, nil
}

func (f *fakeRepo) ActiveRewards(ctx context.Context) ([]domain.Reward, error) {
	return nil, nil
}

func TestProfile(t *testing.T) {
	repo := &fakeRepo{profiles: map[string]domain.Profile{
		"user-1": {UserID: "user-1", FullName: "Ada Martin", LoyaltyPoints: 120, TotalOrders: 4},
	}}
	svc := NewService(repo)

	p, err := svc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.LoyaltyPoints != 120 || p.TotalOrders != 4 {
		t.Errorf("profile = %+v, want 120 points over 4 orders", p)
	}

	if _, err := svc.Profile(context.Background(), ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty user id: kind = %v, want validation", apperr.KindOf(err))
	}
	if _, err := svc.Profile(context.Background(), "ghost"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("missing profile: kind = %v, want not found", apperr.KindOf(err))
	}
}

func TestRedeem(t *testing.T) {
	repo := &fakeRepo{rewards: map[string]domain.Reward{
		"free-dessert": {ID: "free-dessert", Name: "Free dessert", PointsRequired: 100, IsActive: true},
		"retired":      {ID: "retired", Name: "Retired offer", PointsRequired: 50},
	}}
	svc := NewService(repo)

	if err := svc.Redeem(context.Background(), "user-1", "free-dessert"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.redeemed) != 1 || repo.redeemed[0].ID != "free-dessert" {
		t.Errorf("redeemed = %+v, want the dessert reward", repo.redeemed)
	}

	if err := svc.Redeem(context.Background(), "user-1", "retired"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("inactive reward: kind = %v, want validation", apperr.KindOf(err))
	}
	if err := svc.Redeem(context.Background(), "", "free-dessert"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty user id: kind = %v, want validation", apperr.KindOf(err))
	}
	if err := svc.Redeem(context.Background(), "user-1", "nope"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown reward: kind = %v, want not found", apperr.KindOf(err))
	}
}

func TestRedeemPropagatesInsufficientPoints(t *testing.T) {
	repo := &fakeRepo{
		rewards:     map[string]domain.Reward{"r": {ID: "r", Name: "R", PointsRequired: 100, IsActive: true}},
		redeemError: apperr.Conflict("insufficient points"),
	}
	svc := NewService(repo)

	if err := svc.Redeem(context.Background(), "user-1", "r"); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("kind = %v, want conflict", apperr.KindOf(err))
	}
}
