package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/mykaresto/engine/pkg/apperr"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func contact() Contact {
	return Contact{Name: "Ada Martin", Email: "ada@example.com", Phone: "+33600000000"}
}

func TestNewReservation(t *testing.T) {
	tomorrow := now.AddDate(0, 0, 1)

	tests := []struct {
		name      string
		contact   Contact
		date      time.Time
		timeOfDay string
		partySize int
		preorder  []PreorderItem
		wantField string
	}{
		{
			name:      "valid",
			contact:   contact(),
			date:      tomorrow,
			timeOfDay: "19:30",
			partySize: 4,
		},
		{
			name:      "same day is allowed",
			contact:   contact(),
			date:      now,
			timeOfDay: "20:00",
			partySize: 2,
		},
		{
			name:      "party of twenty",
			contact:   contact(),
			date:      tomorrow,
			timeOfDay: "19:00",
			partySize: 20,
		},
		{
			name:      "party of twenty-one",
			contact:   contact(),
			date:      tomorrow,
			timeOfDay: "19:00",
			partySize: 21,
			wantField: "party_size",
		},
		{
			name:      "party of zero",
			contact:   contact(),
			date:      tomorrow,
			timeOfDay: "19:00",
			partySize: 0,
			wantField: "party_size",
		},
		{
			name:      "past date",
			contact:   contact(),
			date:      now.AddDate(0, 0, -1),
			timeOfDay: "19:00",
			partySize: 2,
			wantField: "reservation_date",
		},
		{
			name:      "missing name",
			contact:   Contact{Email: "a@b.c", Phone: "1"},
			date:      tomorrow,
			timeOfDay: "19:00",
			partySize: 2,
			wantField: "customer_name",
		},
		{
			name:      "missing time",
			contact:   contact(),
			date:      tomorrow,
			partySize: 2,
			wantField: "reservation_time",
		},
		{
			name:      "preorder with zero quantity",
			contact:   contact(),
			date:      tomorrow,
			timeOfDay: "19:00",
			partySize: 2,
			preorder:  []PreorderItem{{ProductID: "p-1", Quantity: 0}},
			wantField: "preorder_items",
		},
		{
			name:      "preorder without product id",
			contact:   contact(),
			date:      tomorrow,
			timeOfDay: "19:00",
			partySize: 2,
			preorder:  []PreorderItem{{Quantity: 2}},
			wantField: "preorder_items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewReservation(tt.contact, tt.date, tt.timeOfDay, tt.partySize, "", tt.preorder, now)
			if tt.wantField != "" {
				var e *apperr.Error
				if !errors.As(err, &e) || e.Kind != apperr.KindValidation {
					t.Fatalf("want validation error, got %v", err)
				}
				if e.Field != tt.wantField {
					t.Errorf("field = %q, want %q", e.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != StatusPending {
				t.Errorf("initial status = %s, want pending", res.Status)
			}
		})
	}
}

func TestReservationTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusSeated, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusSeated, StatusCompleted, true},

		{StatusPending, StatusSeated, false},
		{StatusPending, StatusNoShow, false}, // no_show only from confirmed
		{StatusSeated, StatusNoShow, false},
		{StatusCompleted, StatusSeated, false},
		{StatusNoShow, StatusConfirmed, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCancellable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusSeated, false},
		{StatusCompleted, false},
		{StatusCancelled, false},
		{StatusNoShow, false},
	}
	for _, tt := range tests {
		if got := tt.status.Cancellable(); got != tt.want {
			t.Errorf("%s cancellable = %v, want %v", tt.status, got, tt.want)
		}
	}
}
