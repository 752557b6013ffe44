package application

import (
	"context"
	"encoding/json"

	"github.com/mykaresto/engine/internal/order/domain"
	"github.com/mykaresto/engine/pkg/apperr"
	"github.com/mykaresto/engine/pkg/outbox"
	"github.com/mykaresto/engine/pkg/tracing"
)

const (
	EventCreated          = "order.created"
	EventStatusChanged    = "order.status_changed"
	EventPaymentConfirmed = "order.payment_confirmed"
	EventCancelled        = "order.cancelled"
)

type CreateOrderInput struct {
	UserID        string
	Type          domain.OrderType
	TableNumber   string
	PaymentMethod domain.PaymentMethod
	Customer      domain.CustomerInfo
	Items         []domain.ItemInput
	PromoCode     string
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	o, err := domain.NewOrder(in.UserID, in.Type, in.TableNumber, in.PaymentMethod, in.Customer, in.Items)
	if err != nil {
		return domain.Order{}, err
	}
	payload := notification(outbox.ChangeCreated, o.ID)
	return s.repo.Create(ctx, o, in.PromoCode, EventCreated, payload, tracing.Traceparent(ctx))
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListActive(ctx context.Context, status string) ([]domain.Order, error) {
	if status != "" && !domain.Status(status).Valid() {
		return nil, apperr.Validationf("status", "unknown status %q", status)
	}
	return s.repo.ListActive(ctx, domain.Status(status))
}

// ConfirmPayment reconciles a gateway outcome. Re-applying the same
// reference after success is a no-op; a different reference on an
// already-paid order is a conflict.
func (s *Service) ConfirmPayment(ctx context.Context, id, paymentRef string) error {
	if paymentRef == "" {
		return apperr.Validation("payment_ref", "payment reference is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.PaymentStatus == domain.PaymentPaid {
		if o.PaymentRef == paymentRef {
			return nil
		}
		return apperr.Conflict("order already paid with a different payment reference")
	}
	payload := notification(outbox.ChangePaymentConfirmed, id)
	return s.repo.ConfirmPayment(ctx, id, paymentRef, EventPaymentConfirmed, payload, tracing.Traceparent(ctx))
}

// Advance moves the order one step forward. Repeating the current
// status is an idempotent no-op.
func (s *Service) Advance(ctx context.Context, id string, target domain.Status) error {
	if !target.Valid() {
		return apperr.Validationf("status", "unknown status %q", string(target))
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == target {
		return nil
	}
	if o.Status.Terminal() {
		return apperr.TerminalState("order", string(o.Status))
	}
	if !o.Status.CanAdvanceTo(target) {
		return apperr.InvalidTransition(string(o.Status), string(target))
	}
	payload := notification(outbox.ChangeStatusChanged, id)
	return s.repo.UpdateStatus(ctx, id, o.Status, target, EventStatusChanged, payload, tracing.Traceparent(ctx))
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status.Terminal() {
		return apperr.TerminalState("order", string(o.Status))
	}
	payload := notification(outbox.ChangeCancelled, id)
	return s.repo.UpdateStatus(ctx, id, o.Status, domain.StatusCancelled, EventCancelled, payload, tracing.Traceparent(ctx))
}

func notification(changeKind, id string) []byte {
	payload, _ := json.Marshal(outbox.Notification{
		EntityType: outbox.EntityOrder,
		EntityID:   id,
		ChangeKind: changeKind,
	})
	return payload
}
