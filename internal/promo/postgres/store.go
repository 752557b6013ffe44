package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mykaresto/engine/internal/promo"
	"github.com/mykaresto/engine/pkg/apperr"
)

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

const selectCode = `
	SELECT code, COALESCE(description, ''), discount_type, discount_value,
	       min_order_amount, max_uses, current_uses, valid_from, valid_until, is_active
	FROM promo_codes WHERE code = $1`

// Get looks a code up for the read-only validation endpoint.
func (s *Store) Get(ctx context.Context, code string) (promo.Code, error) {
	return scanCode(s.pool.QueryRow(ctx, selectCode, code))
}

type row interface {
	Scan(dest ...any) error
}

func scanCode(r row) (promo.Code, error) {
	var c promo.Code
	err := r.Scan(&c.Code, &c.Description, &c.DiscountType, &c.DiscountValue,
		&c.MinOrderAmount, &c.MaxUses, &c.CurrentUses, &c.ValidFrom, &c.ValidUntil, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return promo.Code{}, apperr.PromoRejected(promo.ReasonUnknown)
	}
	if err != nil {
		return promo.Code{}, err
	}
	return c, nil
}

// RedeemInTx validates code against subtotal and claims one use, all
// under a row lock so two concurrent redemptions of a capped code
// cannot both pass the cap check. Runs inside the caller's order
// transaction; rolling that back releases the claimed use.
func RedeemInTx(ctx context.Context, tx pgx.Tx, code string, subtotal int64) (int64, error) {
	c, err := scanCode(tx.QueryRow(ctx, selectCode+` FOR UPDATE`, code))
	if err != nil {
		return 0, err
	}
	discount, err := promo.Validate(c, subtotal, nowUTC())
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE promo_codes SET current_uses = current_uses + 1 WHERE code = $1`, code); err != nil {
		return 0, err
	}
	return discount, nil
}

func nowUTC() time.Time { return time.Now().UTC() }
