package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migration names must be unique and never change once shipped; applied
// names are tracked in schema_migrations and skipped on restart.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "001_orders",
		sql: `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			order_type TEXT NOT NULL,
			table_number TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			subtotal BIGINT NOT NULL,
			discount BIGINT NOT NULL DEFAULT 0,
			total BIGINT NOT NULL,
			payment_status TEXT NOT NULL DEFAULT 'pending',
			payment_method TEXT,
			payment_ref TEXT,
			promo_code TEXT,
			customer_name TEXT,
			customer_email TEXT,
			customer_phone TEXT,
			delivery_address TEXT,
			special_instructions TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT orders_money CHECK (subtotal >= 0 AND discount >= 0 AND total = subtotal - discount)
		);
		CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status, created_at DESC);`,
	},
	{
		name: "002_order_items",
		sql: `
		CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id TEXT,
			product_name TEXT NOT NULL,
			quantity INT NOT NULL CHECK (quantity >= 1),
			unit_price BIGINT NOT NULL,
			selected_options JSONB,
			subtotal BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS order_items_order_idx ON order_items (order_id);`,
	},
	{
		name: "003_reservations",
		sql: `
		CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			customer_name TEXT NOT NULL,
			customer_email TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			reservation_date DATE NOT NULL,
			reservation_time TEXT NOT NULL,
			party_size INT NOT NULL CHECK (party_size BETWEEN 1 AND 20),
			status TEXT NOT NULL DEFAULT 'pending',
			special_requests TEXT,
			preorder_items JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS reservations_active_idx ON reservations (reservation_date, reservation_time);`,
	},
	{
		name: "004_loyalty",
		sql: `
		CREATE TABLE IF NOT EXISTS loyalty_transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			order_id TEXT,
			points_change BIGINT NOT NULL,
			transaction_type TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS loyalty_earned_once_idx
			ON loyalty_transactions (order_id) WHERE transaction_type = 'earned';
		CREATE INDEX IF NOT EXISTS loyalty_user_idx ON loyalty_transactions (user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS user_profiles (
			id TEXT PRIMARY KEY,
			full_name TEXT,
			phone TEXT,
			loyalty_points BIGINT NOT NULL DEFAULT 0,
			total_orders BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS loyalty_rewards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			points_required BIGINT NOT NULL,
			reward_type TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		);`,
	},
	{
		name: "005_promo_codes",
		sql: `
		CREATE TABLE IF NOT EXISTS promo_codes (
			code TEXT PRIMARY KEY,
			description TEXT,
			discount_type TEXT NOT NULL,
			discount_value BIGINT NOT NULL,
			min_order_amount BIGINT NOT NULL DEFAULT 0,
			max_uses BIGINT,
			current_uses BIGINT NOT NULL DEFAULT 0,
			valid_from TIMESTAMPTZ NOT NULL,
			valid_until TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);`,
	},
	{
		name: "006_restaurant_tables",
		sql: `
		CREATE TABLE IF NOT EXISTS restaurant_tables (
			id TEXT PRIMARY KEY,
			table_number TEXT NOT NULL UNIQUE,
			qr_code TEXT,
			capacity INT NOT NULL DEFAULT 2,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		);`,
	},
	{
		name: "007_outbox",
		sql: `
		CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload JSONB NOT NULL,
			headers JSONB,
			traceparent TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			relay_id TEXT,
			lease_until TIMESTAMPTZ,
			retry_count INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (id) WHERE status = 'pending';`,
	},
}

// Migrate applies pending migrations in order.
func Migrate(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			migration_name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := pool.Query(ctx, `SELECT migration_name FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_migrations (migration_name) VALUES ($1)`, m.name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
		log.Info("migration applied", "name", m.name)
	}
	return nil
}
