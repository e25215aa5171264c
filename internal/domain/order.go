package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusEnRoute   OrderStatus = "en_route"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusEnRoute, StatusCancelled},
	StatusEnRoute: {StatusDelivered},
}

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusEnRoute, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an order may move from one status to another.
// Delivered and cancelled are terminal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsActionable reports whether couriers still have work to do on the order.
func (s OrderStatus) IsActionable() bool {
	return s == StatusPending || s == StatusEnRoute
}

type Order struct {
	ID                 int             `json:"id"`
	CustomerID         int             `json:"customer_id"`
	DeliveryLocationID int             `json:"delivery_location_id"`
	CourierID          *int            `json:"courier_id,omitempty"`
	DeliveryDate       time.Time       `json:"delivery_date"`
	Total              decimal.Decimal `json:"total"`
	Status             OrderStatus     `json:"status"`
	Lines              []OrderLine     `json:"lines"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type OrderLine struct {
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// SumLines is the order total: the sum of the line subtotals.
func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

type DeliveryLocation struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type OrderRepository interface {
	// Create persists header and lines, decrements stock for every line and,
	// when clearCart is set, empties the customer's cart. All or nothing.
	Create(ctx context.Context, order *Order, clearCart bool) (*Order, error)
	GetByID(ctx context.Context, id int) (*Order, error)
	ListByCustomer(ctx context.Context, customerID int) ([]Order, error)
	ListByStatuses(ctx context.Context, statuses []OrderStatus) ([]Order, error)
	// UpdateStatus moves the order from one status to another. Cancelling
	// restores the line quantities to stock in the same transaction.
	UpdateStatus(ctx context.Context, id int, from, to OrderStatus) (*Order, error)
}

type LocationRepository interface {
	List(ctx context.Context) ([]DeliveryLocation, error)
}

// OrderEvents receives order lifecycle notifications after commit.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, order *Order)
	OrderStatusChanged(ctx context.Context, order *Order, from OrderStatus)
}
