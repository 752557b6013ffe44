package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mykaresto/engine/internal/catalog"
	"github.com/mykaresto/engine/pkg/apperr"
)

type OrderType string

const (
	DineIn   OrderType = "dine-in"
	Takeaway OrderType = "takeaway"
	Delivery OrderType = "delivery"
)

type PaymentMethod string

const (
	PayOnline PaymentMethod = "online"
	PayCash   PaymentMethod = "cash"
	PayCard   PaymentMethod = "card"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type CustomerInfo struct {
	Name         string
	Email        string
	Phone        string
	Address      string
	Instructions string
}

type Order struct {
	ID                  string
	UserID              string // empty for guest orders
	Type                OrderType
	TableNumber         string
	Status              Status
	Subtotal            int64
	Discount            int64
	Total               int64
	PaymentStatus       PaymentStatus
	PaymentMethod       PaymentMethod
	PaymentRef          string
	PromoCode           string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	DeliveryAddress     string
	SpecialInstructions string
	Items               []OrderItem
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderItem is an immutable snapshot of what was sold. It is created
// atomically with its order and never updated; corrections require a
// new order.
type OrderItem struct {
	ProductID       string
	ProductName     string
	Quantity        int
	UnitPrice       int64
	SelectedOptions []catalog.SelectedOption
	Subtotal        int64
}

type ItemInput struct {
	Product         catalog.Product
	Quantity        int
	SelectedOptions []catalog.SelectedOption
}

// NewOrder validates the submitted cart and prices it from the catalog
// snapshots. Discount is zero until a promo redemption is applied.
func NewOrder(userID string, orderType OrderType, tableNumber string, method PaymentMethod, customer CustomerInfo, items []ItemInput) (Order, error) {
	if err := validateType(orderType, tableNumber); err != nil {
		return Order{}, err
	}
	switch method {
	case PayOnline, PayCash, PayCard:
	default:
		return Order{}, apperr.Validationf("payment_method", "unknown payment method %q", string(method))
	}
	if len(items) == 0 {
		return Order{}, apperr.Validation("items", "order must contain at least one item")
	}
	if orderType == Delivery && customer.Address == "" {
		return Order{}, apperr.Validation("delivery_address", "delivery address is required for delivery orders")
	}

	now := time.Now().UTC()
	o := Order{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Type:                orderType,
		TableNumber:         tableNumber,
		Status:              StatusPending,
		PaymentStatus:       PaymentPending,
		PaymentMethod:       method,
		CustomerName:        customer.Name,
		CustomerEmail:       customer.Email,
		CustomerPhone:       customer.Phone,
		DeliveryAddress:     customer.Address,
		SpecialInstructions: customer.Instructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	for i, in := range items {
		if in.Quantity < 1 {
			return Order{}, apperr.Validationf("items", "item %d has quantity %d, must be at least 1", i, in.Quantity)
		}
		if in.Product.ID == "" || in.Product.Name == "" {
			return Order{}, apperr.Validationf("items", "item %d is missing its product snapshot", i)
		}
		if in.Product.Price < 0 {
			return Order{}, apperr.Validationf("items", "item %d has a negative price", i)
		}
		unit := in.Product.Price
		for _, opt := range in.SelectedOptions {
			unit += opt.Surcharge
		}
		item := OrderItem{
			ProductID:       in.Product.ID,
			ProductName:     in.Product.Name,
			Quantity:        in.Quantity,
			UnitPrice:       in.Product.Price,
			SelectedOptions: in.SelectedOptions,
			Subtotal:        unit * int64(in.Quantity),
		}
		o.Items = append(o.Items, item)
		o.Subtotal += item.Subtotal
	}
	o.Total = o.Subtotal - o.Discount
	return o, nil
}

// ApplyDiscount records an accepted promo redemption on a not-yet-
// persisted order.
func (o *Order) ApplyDiscount(code string, discount int64) {
	o.PromoCode = code
	o.Discount = discount
	o.Total = o.Subtotal - o.Discount
}

// LoyaltyPoints is what a paid order earns.
func (o *Order) LoyaltyPoints() int64 {
	return PointsForTotal(o.Total)
}

// PointsForTotal floors a total in the smallest currency unit down to
// whole display-currency units. Fractional points are never awarded.
func PointsForTotal(total int64) int64 {
	return total / 100
}

func validateType(t OrderType, tableNumber string) error {
	switch t {
	case DineIn, Takeaway:
		if tableNumber == "" {
			return apperr.Validationf("table_number", "table number is required for %s orders", string(t))
		}
	case Delivery:
		if tableNumber != "" {
			return apperr.Validation("table_number", "table number is not allowed for delivery orders")
		}
	default:
		return apperr.Validationf("order_type", "unknown order type %q", string(t))
	}
	return nil
}
