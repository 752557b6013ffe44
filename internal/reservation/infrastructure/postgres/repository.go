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

	"github.com/mykaresto/engine/internal/reservation/domain"
	"github.com/mykaresto/engine/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, res domain.Reservation, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	preorder, err := preorderJSON(res.PreorderItems)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO reservations (id, user_id, customer_name, customer_email, customer_phone,
			reservation_date, reservation_time, party_size, status, special_requests, preorder_items,
			created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, NULLIF($10,''), $11, $12, $13)`,
		res.ID, res.UserID, res.CustomerName, res.CustomerEmail, res.CustomerPhone,
		res.Date, res.Time, res.PartySize, res.Status, res.SpecialRequests, preorder,
		res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err := insertOutbox(ctx, tx, res.ID, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const selectReservation = `
	SELECT id, COALESCE(user_id,''), customer_name, customer_email, customer_phone,
	       reservation_date, reservation_time, party_size, status, COALESCE(special_requests,''),
	       COALESCE(preorder_items, '[]'::jsonb), created_at, updated_at
	FROM reservations`

func (r *Repository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	res, err := scanReservation(r.pool.QueryRow(ctx, selectReservation+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, apperr.NotFound("reservation", id)
	}
	return res, err
}

func (r *Repository) ListActive(ctx context.Context, date string) ([]domain.Reservation, error) {
	query := selectReservation + ` WHERE status NOT IN ('completed', 'cancelled', 'no_show')`
	args := []any{}
	if date != "" {
		query += ` AND reservation_date = $1`
		args = append(args, date)
	}
	query += ` ORDER BY reservation_date, reservation_time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, expected, target domain.Status, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE reservations SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
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

func (r *Repository) classifyLostUpdate(ctx context.Context, id string) error {
	var status domain.Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("reservation", id)
	}
	if err != nil {
		return err
	}
	if status.Terminal() {
		return apperr.TerminalState("reservation", string(status))
	}
	return apperr.Conflict("reservation status changed concurrently, re-read and retry")
}

type row interface {
	Scan(dest ...any) error
}

func scanReservation(r row) (domain.Reservation, error) {
	var res domain.Reservation
	var preorder []byte
	err := r.Scan(&res.ID, &res.UserID, &res.CustomerName, &res.CustomerEmail, &res.CustomerPhone,
		&res.Date, &res.Time, &res.PartySize, &res.Status, &res.SpecialRequests,
		&preorder, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := json.Unmarshal(preorder, &res.PreorderItems); err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

func preorderJSON(items []domain.PreorderItem) ([]byte, error) {
	if len(items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateID, eventType string, payload []byte, traceparent string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), 'pending', now())`,
		"reservation", aggregateID, eventType, payload, traceparent)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
