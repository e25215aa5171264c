package usecase

import (
	"context"
	"fmt"
	"time"

	"chucheritas/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type OrderUseCase interface {
	Create(ctx context.Context, actx domain.AuthenticatedContext, req CreateOrderRequest) (*domain.Order, error)
	Get(ctx context.Context, actx domain.AuthenticatedContext, id int) (*domain.Order, error)
	ListForCustomer(ctx context.Context, actx domain.AuthenticatedContext) ([]domain.Order, error)
	ListForCourier(ctx context.Context, actx domain.AuthenticatedContext) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, actx domain.AuthenticatedContext, id int, status domain.OrderStatus) (*domain.Order, error)
	ListDeliveryLocations(ctx context.Context) []domain.DeliveryLocation
}

type CheckoutRequest struct {
	LocationID   int       `json:"location_id"`
	CourierID    *int      `json:"courier_id,omitempty"`
	DeliveryDate time.Time `json:"delivery_date"`
}

type CreateOrderRequest struct {
	LocationID   int                `json:"location_id"`
	CourierID    *int               `json:"courier_id,omitempty"`
	DeliveryDate time.Time          `json:"delivery_date"`
	Lines        []domain.OrderLine `json:"lines"`

	clearCart bool
}

type orderUseCase struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	locations domain.LocationRepository
	events    domain.OrderEvents
	log       *logrus.Logger
}

func NewOrderUseCase(orders domain.OrderRepository, products domain.ProductRepository, locations domain.LocationRepository, events domain.OrderEvents, logger *logrus.Logger) OrderUseCase {
	return &orderUseCase{
		orders:    orders,
		products:  products,
		locations: locations,
		events:    events,
		log:       logger,
	}
}

func validateOrderRequest(req CreateOrderRequest) error {
	if len(req.Lines) == 0 {
		return domain.ErrEmptyOrder
	}
	if req.LocationID <= 0 {
		return domain.Invalid("delivery location is required")
	}
	if req.CourierID != nil && *req.CourierID <= 0 {
		return domain.Invalid("invalid courier ID")
	}
	if req.DeliveryDate.IsZero() {
		return domain.Invalid("delivery date is required")
	}
	seen := make(map[int]bool, len(req.Lines))
	for i, line := range req.Lines {
		if line.ProductID <= 0 {
			return domain.Invalid("invalid product ID at line %d", i+1)
		}
		if line.Quantity <= 0 {
			return domain.Invalid("quantity must be positive for product %d", line.ProductID)
		}
		if line.Subtotal.IsNegative() {
			return domain.Invalid("subtotal cannot be negative for product %d", line.ProductID)
		}
		if seen[line.ProductID] {
			return domain.Invalid("product %d appears more than once", line.ProductID)
		}
		seen[line.ProductID] = true
	}
	return nil
}

// checkLinePrices requires every subtotal to equal quantity times the current
// catalogue price. Cart checkouts skip it because they carry the captured price.
func (uc *orderUseCase) checkLinePrices(ctx context.Context, lines []domain.OrderLine) error {
	for _, line := range lines {
		product, err := uc.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive() {
			return fmt.Errorf("product %d: %w", line.ProductID, domain.ErrProductInactive)
		}
		expected := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		if !line.Subtotal.Equal(expected) {
			return domain.Invalid("subtotal for product %d must be %s", line.ProductID, expected.StringFixed(2))
		}
	}
	return nil
}

// Create computes the total from the line subtotals and commits header, lines
// and stock decrements together.
func (uc *orderUseCase) Create(ctx context.Context, actx domain.AuthenticatedContext, req CreateOrderRequest) (*domain.Order, error) {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Attempting to create order for customer %d with %d lines", customer.ID, len(req.Lines))
	if err := validateOrderRequest(req); err != nil {
		uc.log.Warnf("Use Case: Order rejected for customer %d: %v", customer.ID, err)
		return nil, err
	}

	if !req.clearCart {
		if err := uc.checkLinePrices(ctx, req.Lines); err != nil {
			uc.log.Warnf("Use Case: Order rejected for customer %d: %v", customer.ID, err)
			return nil, err
		}
	}

	order := &domain.Order{
		CustomerID:         customer.ID,
		DeliveryLocationID: req.LocationID,
		CourierID:          req.CourierID,
		DeliveryDate:       req.DeliveryDate.UTC(),
		Total:              domain.SumLines(req.Lines),
		Status:             domain.StatusPending,
		Lines:              req.Lines,
	}

	created, err := uc.orders.Create(ctx, order, req.clearCart)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create order for customer %d: %v", customer.ID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d created for customer %d, total %s", created.ID, customer.ID, created.Total.StringFixed(2))
	uc.events.OrderPlaced(ctx, created)
	return created, nil
}

func (uc *orderUseCase) Get(ctx context.Context, actx domain.AuthenticatedContext, id int) (*domain.Order, error) {
	principal, err := domain.Require(actx, domain.RoleCustomer, domain.RoleCourier, domain.RoleAdministrator)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, domain.Invalid("invalid order ID")
	}
	order, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.Role == domain.RoleCustomer && order.CustomerID != principal.ID {
		uc.log.Warnf("Use Case: Customer %d asked for order %d of another customer", principal.ID, id)
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (uc *orderUseCase) ListForCustomer(ctx context.Context, actx domain.AuthenticatedContext) ([]domain.Order, error) {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return nil, err
	}
	orders, err := uc.orders.ListByCustomer(ctx, customer.ID)
	return degrade(uc.log, "list customer orders", orders, err), nil
}

func (uc *orderUseCase) ListForCourier(ctx context.Context, actx domain.AuthenticatedContext) ([]domain.Order, error) {
	if _, err := domain.Require(actx, domain.Fulfilment...); err != nil {
		return nil, err
	}
	orders, err := uc.orders.ListByStatuses(ctx, []domain.OrderStatus{domain.StatusPending, domain.StatusEnRoute})
	return degrade(uc.log, "list actionable orders", orders, err), nil
}

// UpdateStatus only allows forward transitions. Cancelling is reserved to
// administrators and returns the stock.
func (uc *orderUseCase) UpdateStatus(ctx context.Context, actx domain.AuthenticatedContext, id int, status domain.OrderStatus) (*domain.Order, error) {
	principal, err := domain.Require(actx, domain.Fulfilment...)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, domain.Invalid("invalid order ID")
	}
	if !domain.IsValidStatus(status) {
		return nil, domain.Invalid("invalid order status: %s", status)
	}
	if status == domain.StatusCancelled && principal.Role != domain.RoleAdministrator {
		return nil, domain.ErrForbidden
	}

	current, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, status) {
		uc.log.Warnf("Use Case: Order %d cannot move from %s to %s", id, current.Status, status)
		return nil, fmt.Errorf("order %d is %s: %w", id, current.Status, domain.ErrInvalidTransition)
	}

	updated, err := uc.orders.UpdateStatus(ctx, id, current.Status, status)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to update order %d to %s: %v", id, status, err)
		return nil, err
	}
	uc.log.Infof("Use Case: %s %d moved order %d from %s to %s", principal.Role, principal.ID, id, current.Status, status)
	uc.events.OrderStatusChanged(ctx, updated, current.Status)
	return updated, nil
}

func (uc *orderUseCase) ListDeliveryLocations(ctx context.Context) []domain.DeliveryLocation {
	locations, err := uc.locations.List(ctx)
	return degrade(uc.log, "list delivery locations", locations, err)
}
