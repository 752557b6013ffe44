package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykaresto/engine/internal/catalog"
	"github.com/mykaresto/engine/internal/order/domain"
	"github.com/mykaresto/engine/pkg/apperr"
)

// fakeRepo keeps a single order in memory and records mutating calls.
type fakeRepo struct {
	order           domain.Order
	haveOrder       bool
	createCalls     int
	confirmCalls    int
	updateCalls     int
	lastTarget      domain.Status
	lastEventType   string
	failUpdatesWith error
}

func (f *fakeRepo) Create(ctx context.Context, o domain.Order, promoCode, eventType string, payload []byte, traceparent string) (domain.Order, error) {
	f.createCalls++
	f.lastEventType = eventType
	f.order = o
	f.haveOrder = true
	return o, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	if !f.haveOrder {
		return domain.Order{}, apperr.NotFound("order", id)
	}
	return f.order, nil
}

func (f *fakeRepo) ListActive(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	if f.haveOrder && !f.order.Status.Terminal() {
		return []domain.Order{f.order}, nil
	}
	return nil, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, expected, target domain.Status, eventType string, payload []byte, traceparent string) error {
	f.updateCalls++
	f.lastTarget = target
	f.lastEventType = eventType
	if f.failUpdatesWith != nil {
		return f.failUpdatesWith
	}
	f.order.Status = target
	return nil
}

func (f *fakeRepo) ConfirmPayment(ctx context.Context, id, paymentRef, eventType string, payload []byte, traceparent string) error {
	f.confirmCalls++
	f.lastEventType = eventType
	f.order.PaymentStatus = domain.PaymentPaid
	f.order.PaymentRef = paymentRef
	if f.order.Status == domain.StatusPending {
		f.order.Status = domain.StatusConfirmed
	}
	return nil
}

func pendingOrder() domain.Order {
	o, err := domain.NewOrder("user-1", domain.Takeaway, "T3", domain.PayCard, domain.CustomerInfo{}, []domain.ItemInput{
		{Product: catalog.Product{ID: "p-1", Name: "Margherita", Price: 1500}, Quantity: 2},
		{Product: catalog.Product{ID: "p-2", Name: "Tiramisu", Price: 800}, Quantity: 1},
	})
	if err != nil {
		panic(err)
	}
	return o
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	repo := &fakeRepo{order: pendingOrder(), haveOrder: true}
	svc := NewService(repo)

	require.NoError(t, svc.ConfirmPayment(context.Background(), repo.order.ID, "pi_123"))
	assert.Equal(t, 1, repo.confirmCalls)
	assert.Equal(t, domain.StatusConfirmed, repo.order.Status)
	assert.Equal(t, domain.PaymentPaid, repo.order.PaymentStatus)

	// Same reference again: no-op, repository untouched.
	require.NoError(t, svc.ConfirmPayment(context.Background(), repo.order.ID, "pi_123"))
	assert.Equal(t, 1, repo.confirmCalls)
}

func TestConfirmPaymentDifferentRefConflicts(t *testing.T) {
	repo := &fakeRepo{order: pendingOrder(), haveOrder: true}
	svc := NewService(repo)

	require.NoError(t, svc.ConfirmPayment(context.Background(), repo.order.ID, "pi_123"))
	err := svc.ConfirmPayment(context.Background(), repo.order.ID, "pi_456")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 1, repo.confirmCalls)
}

func TestConfirmPaymentDoesNotRegressAdvancedOrder(t *testing.T) {
	o := pendingOrder()
	o.Status = domain.StatusPreparing
	repo := &fakeRepo{order: o, haveOrder: true}
	svc := NewService(repo)

	require.NoError(t, svc.ConfirmPayment(context.Background(), o.ID, "pi_123"))
	assert.Equal(t, domain.StatusPreparing, repo.order.Status)
	assert.Equal(t, domain.PaymentPaid, repo.order.PaymentStatus)
}

func TestConfirmPaymentRequiresReference(t *testing.T) {
	repo := &fakeRepo{order: pendingOrder(), haveOrder: true}
	svc := NewService(repo)

	err := svc.ConfirmPayment(context.Background(), repo.order.ID, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.Status
		target   domain.Status
		wantKind apperr.Kind
		wantCall bool
	}{
		{name: "pending to confirmed", from: domain.StatusPending, target: domain.StatusConfirmed, wantCall: true},
		{name: "ready to completed", from: domain.StatusReady, target: domain.StatusCompleted, wantCall: true},
		{name: "same status is a no-op", from: domain.StatusPreparing, target: domain.StatusPreparing},
		{name: "skipping states", from: domain.StatusPending, target: domain.StatusReady, wantKind: apperr.KindInvalidTransition},
		{name: "backwards", from: domain.StatusReady, target: domain.StatusConfirmed, wantKind: apperr.KindInvalidTransition},
		{name: "out of completed", from: domain.StatusCompleted, target: domain.StatusConfirmed, wantKind: apperr.KindTerminalState},
		{name: "out of cancelled", from: domain.StatusCancelled, target: domain.StatusConfirmed, wantKind: apperr.KindTerminalState},
		{name: "unknown target", from: domain.StatusPending, target: domain.Status("shipped"), wantKind: apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := pendingOrder()
			o.Status = tt.from
			repo := &fakeRepo{order: o, haveOrder: true}
			svc := NewService(repo)

			err := svc.Advance(context.Background(), o.ID, tt.target)
			if tt.wantKind != apperr.KindUnknown {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				assert.Zero(t, repo.updateCalls)
				return
			}
			require.NoError(t, err)
			if tt.wantCall {
				assert.Equal(t, 1, repo.updateCalls)
				assert.Equal(t, tt.target, repo.lastTarget)
			} else {
				assert.Zero(t, repo.updateCalls)
			}
		})
	}
}

func TestAdvancePropagatesConflict(t *testing.T) {
	repo := &fakeRepo{order: pendingOrder(), haveOrder: true, failUpdatesWith: apperr.Conflict("lost the race")}
	svc := NewService(repo)

	err := svc.Advance(context.Background(), repo.order.ID, domain.StatusConfirmed)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCancel(t *testing.T) {
	for _, from := range []domain.Status{domain.StatusPending, domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady} {
		o := pendingOrder()
		o.Status = from
		repo := &fakeRepo{order: o, haveOrder: true}
		svc := NewService(repo)

		require.NoError(t, svc.Cancel(context.Background(), o.ID), "cancel from %s", from)
		assert.Equal(t, domain.StatusCancelled, repo.order.Status)
		assert.Equal(t, EventCancelled, repo.lastEventType)
	}

	for _, from := range []domain.Status{domain.StatusCompleted, domain.StatusCancelled} {
		o := pendingOrder()
		o.Status = from
		repo := &fakeRepo{order: o, haveOrder: true}
		svc := NewService(repo)

		err := svc.Cancel(context.Background(), o.ID)
		assert.Equal(t, apperr.KindTerminalState, apperr.KindOf(err), "cancel from %s", from)
	}
}

func TestCreateValidates(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Type:          domain.DineIn,
		PaymentMethod: domain.PayCash,
		Items: []domain.ItemInput{
			{Product: catalog.Product{ID: "p-1", Name: "Margherita", Price: 1500}, Quantity: 1},
		},
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, repo.createCalls)
}

func TestGetUnknownOrder(t *testing.T) {
	svc := NewService(&fakeRepo{})
	_, err := svc.Get(context.Background(), "nope")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
