package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mykaresto/engine/internal/catalog"
	loyaltypg "github.com/mykaresto/engine/internal/loyalty/infrastructure/postgres"
	"github.com/mykaresto/engine/internal/order/domain"
	promopg "github.com/mykaresto/engine/internal/promo/postgres"
	"github.com/mykaresto/engine/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, o domain.Order, promoCode string, eventType string, payload []byte, traceparent string) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if promoCode != "" {
		discount, err := promopg.RedeemInTx(ctx, tx, promoCode, o.Subtotal)
		if err != nil {
			return domain.Order{}, err
		}
		o.ApplyDiscount(promoCode, discount)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, order_type, table_number, status,
			subtotal, discount, total, payment_status, payment_method, promo_code,
			customer_name, customer_email, customer_phone, delivery_address, special_instructions,
			created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, NULLIF($4,''), $5,
			$6, $7, $8, $9, $10, NULLIF($11,''),
			NULLIF($12,''), NULLIF($13,''), NULLIF($14,''), NULLIF($15,''), NULLIF($16,''),
			$17, $18)`,
		o.ID, o.UserID, o.Type, o.TableNumber, o.Status,
		o.Subtotal, o.Discount, o.Total, o.PaymentStatus, o.PaymentMethod, o.PromoCode,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.DeliveryAddress, o.SpecialInstructions,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		opts, err := optsJSON(item.SelectedOptions)
		if err != nil {
			return domain.Order{}, err
		}
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, selected_options, subtotal, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, opts, item.Subtotal, o.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Order{}, fmt.Errorf("insert order items: %w", err)
	}

	if err := insertOutbox(ctx, tx, o.ID, eventType, payload, traceparent); err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(user_id,''), order_type, COALESCE(table_number,''), status,
		       subtotal, discount, total, payment_status, COALESCE(payment_method,''), COALESCE(payment_ref,''),
		       COALESCE(promo_code,''), COALESCE(customer_name,''), COALESCE(customer_email,''), COALESCE(customer_phone,''),
		       COALESCE(delivery_address,''), COALESCE(special_instructions,''), created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &o.Type, &o.TableNumber, &o.Status,
			&o.Subtotal, &o.Discount, &o.Total, &o.PaymentStatus, &o.PaymentMethod, &o.PaymentRef,
			&o.PromoCode, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.DeliveryAddress, &o.SpecialInstructions, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, apperr.NotFound("order", id)
	}
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(product_id,''), product_name, quantity, unit_price, COALESCE(selected_options, '[]'::jsonb), subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		var opts []byte
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &opts, &item.Subtotal); err != nil {
			return domain.Order{}, err
		}
		if err := json.Unmarshal(opts, &item.SelectedOptions); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

func (r *Repository) ListActive(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	query := `
		SELECT id, COALESCE(user_id,''), order_type, COALESCE(table_number,''), status,
		       subtotal, discount, total, payment_status, COALESCE(payment_method,''),
		       COALESCE(customer_name,''), created_at, updated_at
		FROM orders
		WHERE status NOT IN ('completed', 'cancelled')`
	args := []any{}
	if status != "" {
		query += ` AND status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Type, &o.TableNumber, &o.Status,
			&o.Subtotal, &o.Discount, &o.Total, &o.PaymentStatus, &o.PaymentMethod,
			&o.CustomerName, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus is a conditional transition: the row must still be at
// expected when the update lands, otherwise a concurrent writer won and
// the caller gets a Conflict to re-read and retry on.
func (r *Repository) UpdateStatus(ctx context.Context, id string, expected, target domain.Status, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, expected, target, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.classifyLostUpdate(ctx, id)
	}

	if err := insertOutbox(ctx, tx, id, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) ConfirmPayment(ctx context.Context, id, paymentRef string, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Payment must never regress lifecycle status: only a pending order
	// advances to confirmed, an already-advanced one keeps its status.
	var userID string
	var total int64
	err = tx.QueryRow(ctx, `
		UPDATE orders SET payment_status = 'paid', payment_ref = $2,
			status = CASE WHEN status = 'pending' THEN 'confirmed' ELSE status END,
			updated_at = $3
		WHERE id = $1 AND payment_status = 'pending'
		RETURNING COALESCE(user_id,''), total`,
		id, paymentRef, time.Now().UTC()).Scan(&userID, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.classifyLostPayment(ctx, id, paymentRef)
	}
	if err != nil {
		return err
	}

	// Guest orders accrue nothing. For authenticated orders the
	// uniqueness constraint behind AccrueInTx makes the accrual
	// exactly-once even under concurrent webhook retries.
	if userID != "" {
		points := domain.PointsForTotal(total)
		accrued, err := loyaltypg.AccrueInTx(ctx, tx, userID, id, points,
			fmt.Sprintf("Points earned for order #%.8s", id))
		if err != nil {
			return err
		}
		if accrued {
			if err := loyaltypg.RefreshProfile(ctx, tx, userID, 1); err != nil {
				return err
			}
		}
	}

	if err := insertOutbox(ctx, tx, id, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// classifyLostPayment turns a failed conditional payment update into
// the right caller-facing error.
func (r *Repository) classifyLostPayment(ctx context.Context, id, paymentRef string) error {
	var status domain.PaymentStatus
	var ref string
	err := r.pool.QueryRow(ctx, `SELECT payment_status, COALESCE(payment_ref,'') FROM orders WHERE id = $1`, id).
		Scan(&status, &ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("order", id)
	}
	if err != nil {
		return err
	}
	if status == domain.PaymentPaid && ref == paymentRef {
		// Duplicate webhook delivery; the first one already won.
		return nil
	}
	return apperr.Conflict("payment state changed concurrently, re-read and retry")
}

func (r *Repository) classifyLostUpdate(ctx context.Context, id string) error {
	var status domain.Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("order", id)
	}
	if err != nil {
		return err
	}
	if status.Terminal() {
		return apperr.TerminalState("order", string(status))
	}
	return apperr.Conflict("order status changed concurrently, re-read and retry")
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateID, eventType string, payload []byte, traceparent string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), 'pending', now())`,
		"order", aggregateID, eventType, payload, traceparent)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func optsJSON(opts []catalog.SelectedOption) ([]byte, error) {
	if len(opts) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(opts)
}
