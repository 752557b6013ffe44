package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mykaresto/engine/pkg/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusSeated, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanAdvanceTo covers staff-driven advancement. no_show is only
// reachable from confirmed; cancellation is a separate operation.
func (s Status) CanAdvanceTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed
	case StatusConfirmed:
		return target == StatusSeated || target == StatusNoShow
	case StatusSeated:
		return target == StatusCompleted
	}
	return false
}

// Cancellable reservations are those a guest can still walk away from;
// once seated the visit is underway and only completion remains.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

const (
	MinPartySize = 1
	MaxPartySize = 20
)

type Contact struct {
	UserID string // empty for guests
	Name   string
	Email  string
	Phone  string
}

// PreorderItem references a catalog product by identity only; no
// price or name snapshot is taken until an order is actually placed.
type PreorderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Reservation struct {
	ID              string
	UserID          string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Date            time.Time // date component only
	Time            string    // "19:30"
	PartySize       int
	Status          Status
	SpecialRequests string
	PreorderItems   []PreorderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewReservation validates and builds a pending reservation. The date
// must not be in the past relative to now's calendar day.
func NewReservation(contact Contact, date time.Time, timeOfDay string, partySize int, specialRequests string, preorder []PreorderItem, now time.Time) (Reservation, error) {
	if contact.Name == "" {
		return Reservation{}, apperr.Validation("customer_name", "customer name is required")
	}
	if contact.Email == "" {
		return Reservation{}, apperr.Validation("customer_email", "customer email is required")
	}
	if contact.Phone == "" {
		return Reservation{}, apperr.Validation("customer_phone", "customer phone is required")
	}
	if timeOfDay == "" {
		return Reservation{}, apperr.Validation("reservation_time", "reservation time is required")
	}
	if partySize < MinPartySize || partySize > MaxPartySize {
		return Reservation{}, apperr.Validationf("party_size", "party size must be between %d and %d", MinPartySize, MaxPartySize)
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if date.UTC().Truncate(24 * time.Hour).Before(today) {
		return Reservation{}, apperr.Validation("reservation_date", "reservation date must not be in the past")
	}
	for i, p := range preorder {
		if p.ProductID == "" {
			return Reservation{}, apperr.Validationf("preorder_items", "pre-order item %d is missing its product id", i)
		}
		if p.Quantity < 1 {
			return Reservation{}, apperr.Validationf("preorder_items", "pre-order item %d has quantity %d, must be at least 1", i, p.Quantity)
		}
	}

	ts := now.UTC()
	return Reservation{
		ID:              uuid.NewString(),
		UserID:          contact.UserID,
		CustomerName:    contact.Name,
		CustomerEmail:   contact.Email,
		CustomerPhone:   contact.Phone,
		Date:            date,
		Time:            timeOfDay,
		PartySize:       partySize,
		Status:          StatusPending,
		SpecialRequests: specialRequests,
		PreorderItems:   preorder,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}, nil
}
