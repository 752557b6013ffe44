package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mykaresto/engine/internal/reservation/domain"
	"github.com/mykaresto/engine/pkg/apperr"
	"github.com/mykaresto/engine/pkg/outbox"
	"github.com/mykaresto/engine/pkg/tracing"
)

const (
	EventCreated       = "reservation.created"
	EventStatusChanged = "reservation.status_changed"
	EventCancelled     = "reservation.cancelled"
)

type CreateReservationInput struct {
	Contact         domain.Contact
	Date            time.Time
	Time            string
	PartySize       int
	SpecialRequests string
	PreorderItems   []domain.PreorderItem
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	res, err := domain.NewReservation(in.Contact, in.Date, in.Time, in.PartySize, in.SpecialRequests, in.PreorderItems, time.Now())
	if err != nil {
		return domain.Reservation{}, err
	}
	payload := notification(outbox.ChangeCreated, res.ID)
	if err := s.repo.Create(ctx, res, EventCreated, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Reservation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListActive(ctx context.Context, date string) ([]domain.Reservation, error) {
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, apperr.Validation("date", "date filter must be YYYY-MM-DD")
		}
	}
	return s.repo.ListActive(ctx, date)
}

// Advance moves a reservation along pending → confirmed → seated →
// completed, or from confirmed to no_show. Repeating the current
// status is an idempotent no-op.
func (s *Service) Advance(ctx context.Context, id string, target domain.Status) error {
	if !target.Valid() {
		return apperr.Validationf("status", "unknown status %q", string(target))
	}
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if res.Status == target {
		return nil
	}
	if res.Status.Terminal() {
		return apperr.TerminalState("reservation", string(res.Status))
	}
	if !res.Status.CanAdvanceTo(target) {
		return apperr.InvalidTransition(string(res.Status), string(target))
	}
	payload := notification(outbox.ChangeStatusChanged, id)
	return s.repo.UpdateStatus(ctx, id, res.Status, target, EventStatusChanged, payload, tracing.Traceparent(ctx))
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if res.Status.Terminal() {
		return apperr.TerminalState("reservation", string(res.Status))
	}
	if !res.Status.Cancellable() {
		return apperr.InvalidTransition(string(res.Status), string(domain.StatusCancelled))
	}
	payload := notification(outbox.ChangeCancelled, id)
	return s.repo.UpdateStatus(ctx, id, res.Status, domain.StatusCancelled, EventCancelled, payload, tracing.Traceparent(ctx))
}

func notification(changeKind, id string) []byte {
	payload, _ := json.Marshal(outbox.Notification{
		EntityType: outbox.EntityReservation,
		EntityID:   id,
		ChangeKind: changeKind,
	})
	return payload
}
