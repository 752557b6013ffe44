package application

import (
	"context"

	"github.com/mykaresto/engine/internal/order/domain"
)

// Repository persists orders. Every mutating call writes the matching
// outbox event in the same transaction, so observers see the mutation
// and its notification together or not at all.
type Repository interface {
	// Create inserts the order, its items and the creation event
	// atomically. When promoCode is non-empty the redemption (guarded
	// usage increment included) happens in the same transaction and the
	// returned order carries the applied discount.
	Create(ctx context.Context, o domain.Order, promoCode string, eventType string, payload []byte, traceparent string) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	// ListActive returns non-terminal orders, newest first, optionally
	// narrowed to one status.
	ListActive(ctx context.Context, status domain.Status) ([]domain.Order, error)
	// UpdateStatus transitions id from expected to target with a
	// conditional update. Losing the condition to a concurrent writer
	// yields apperr.Conflict.
	UpdateStatus(ctx context.Context, id string, expected, target domain.Status, eventType string, payload []byte, traceparent string) error
	// ConfirmPayment marks the order paid, advances pending orders to
	// confirmed, accrues loyalty points at most once and emits the
	// payment event, all in one transaction.
	ConfirmPayment(ctx context.Context, id, paymentRef string, eventType string, payload []byte, traceparent string) error
}
