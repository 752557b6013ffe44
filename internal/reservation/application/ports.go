package application

import (
	"context"

	"github.com/mykaresto/engine/internal/reservation/domain"
)

// Repository persists reservations with the same outbox-in-transaction
// contract as the order repository.
type Repository interface {
	Create(ctx context.Context, res domain.Reservation, eventType string, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
	// ListActive returns non-terminal reservations ordered by date and
	// time, optionally narrowed to one calendar date (YYYY-MM-DD).
	ListActive(ctx context.Context, date string) ([]domain.Reservation, error)
	UpdateStatus(ctx context.Context, id string, expected, target domain.Status, eventType string, payload []byte, traceparent string) error
}
