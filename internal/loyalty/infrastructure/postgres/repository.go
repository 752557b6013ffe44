package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mykaresto/engine/internal/loyalty/domain"
	"github.com/mykaresto/engine/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// AccrueInTx appends an earned entry for orderID inside the caller's
// transaction and reports whether a row was actually written. The
// partial unique index on (order_id) WHERE transaction_type='earned'
// makes re-application a silent no-op, closing the race between
// concurrent payment-confirmation retries without a check-then-act.
func AccrueInTx(ctx context.Context, tx pgx.Tx, userID, orderID string, points int64, description string) (bool, error) {
	ct, err := tx.Exec(ctx, `
		INSERT INTO loyalty_transactions (id, user_id, order_id, points_change, transaction_type, description, created_at)
		VALUES ($1, $2, $3, $4, 'earned', NULLIF($5,''), $6)
		ON CONFLICT (order_id) WHERE transaction_type = 'earned' DO NOTHING`,
		uuid.NewString(), userID, orderID, points, description, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert loyalty transaction: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// Redeem locks the profile row so concurrent redemptions serialize,
// then re-derives the balance from the ledger before spending it.
func (r *Repository) Redeem(ctx context.Context, userID string, reward domain.Reward) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO user_profiles (id, loyalty_points, total_orders, created_at, updated_at)
		VALUES ($1, 0, 0, now(), now())
		ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		return err
	}
	var cached int64
	if err := tx.QueryRow(ctx, `SELECT loyalty_points FROM user_profiles WHERE id = $1 FOR UPDATE`, userID).Scan(&cached); err != nil {
		return err
	}

	var balance int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(points_change), 0) FROM loyalty_transactions WHERE user_id = $1`, userID).Scan(&balance); err != nil {
		return err
	}
	if balance < reward.PointsRequired {
		return apperr.Conflict(fmt.Sprintf("insufficient points: have %d, reward requires %d", balance, reward.PointsRequired))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO loyalty_transactions (id, user_id, points_change, transaction_type, description, created_at)
		VALUES ($1, $2, $3, 'redeemed', $4, $5)`,
		uuid.NewString(), userID, -reward.PointsRequired,
		fmt.Sprintf("Redeemed reward: %s", reward.Name), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	if err := RefreshProfile(ctx, tx, userID, 0); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(points_change), 0) FROM loyalty_transactions WHERE user_id = $1`, userID).Scan(&balance)
	return balance, err
}

func (r *Repository) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(full_name,''), COALESCE(phone,''), loyalty_points, total_orders
		FROM user_profiles WHERE id = $1`, userID).
		Scan(&p.UserID, &p.FullName, &p.Phone, &p.LoyaltyPoints, &p.TotalOrders)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, apperr.NotFound("user profile", userID)
	}
	return p, err
}

func (r *Repository) History(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, COALESCE(order_id,''), points_change, transaction_type, COALESCE(description,''), created_at
		FROM loyalty_transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.OrderID, &t.PointsChange, &t.Kind, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) Reward(ctx context.Context, rewardID string) (domain.Reward, error) {
	var rw domain.Reward
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description,''), points_required, reward_type, is_active
		FROM loyalty_rewards WHERE id = $1`, rewardID).
		Scan(&rw.ID, &rw.Name, &rw.Description, &rw.PointsRequired, &rw.RewardType, &rw.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reward{}, apperr.NotFound("reward", rewardID)
	}
	return rw, err
}

func (r *Repository) ActiveRewards(ctx context.Context) ([]domain.Reward, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(description,''), points_required, reward_type, is_active
		FROM loyalty_rewards WHERE is_active ORDER BY points_required`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reward
	for rows.Next() {
		var rw domain.Reward
		if err := rows.Scan(&rw.ID, &rw.Name, &rw.Description, &rw.PointsRequired, &rw.RewardType, &rw.IsActive); err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

// RefreshProfile rewrites the cached counters from the ledger sum
// inside the caller's transaction; the cache is an accelerator, never
// the source of truth. orderDelta bumps total_orders for a newly paid
// order.
func RefreshProfile(ctx context.Context, tx pgx.Tx, userID string, orderDelta int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_profiles (id, loyalty_points, total_orders, created_at, updated_at)
		VALUES ($1, (SELECT COALESCE(SUM(points_change), 0) FROM loyalty_transactions WHERE user_id = $1), $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			loyalty_points = (SELECT COALESCE(SUM(points_change), 0) FROM loyalty_transactions WHERE user_id = $1),
			total_orders = user_profiles.total_orders + $2,
			updated_at = now()`, userID, orderDelta)
	if err != nil {
		return fmt.Errorf("refresh user profile: %w", err)
	}
	return nil
}
