package usecase

import (
	"context"
	"errors"

	"chucheritas/internal/domain"

	"github.com/sirupsen/logrus"
)

type CartUseCase interface {
	Add(ctx context.Context, actx domain.AuthenticatedContext, productID, quantity int) error
	SetQuantity(ctx context.Context, actx domain.AuthenticatedContext, productID, quantity int) error
	Remove(ctx context.Context, actx domain.AuthenticatedContext, productID int) error
	Clear(ctx context.Context, actx domain.AuthenticatedContext) error
	View(ctx context.Context, actx domain.AuthenticatedContext) domain.CartView
	Count(ctx context.Context, actx domain.AuthenticatedContext) int
	Checkout(ctx context.Context, actx domain.AuthenticatedContext, req CheckoutRequest) (*domain.Order, error)
}

type cartUseCase struct {
	cart     domain.CartRepository
	products domain.ProductRepository
	orders   OrderUseCase
	log      *logrus.Logger
}

func NewCartUseCase(cart domain.CartRepository, products domain.ProductRepository, orders OrderUseCase, logger *logrus.Logger) CartUseCase {
	return &cartUseCase{
		cart:     cart,
		products: products,
		orders:   orders,
		log:      logger,
	}
}

// availableProduct loads a product that can be put in a cart.
func (uc *cartUseCase) availableProduct(ctx context.Context, productID int) (*domain.Product, error) {
	if productID <= 0 {
		return nil, domain.Invalid("invalid product ID")
	}
	p, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, domain.ErrProductInactive
	}
	return p, nil
}

// Add merges into an existing line. The stock check is not serialised
// against concurrent carts.
func (uc *cartUseCase) Add(ctx context.Context, actx domain.AuthenticatedContext, productID, quantity int) error {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return domain.Invalid("quantity must be positive")
	}
	product, err := uc.availableProduct(ctx, productID)
	if err != nil {
		uc.log.Warnf("Use Case: Add to cart rejected for product %d: %v", productID, err)
		return err
	}

	existing := 0
	item, err := uc.cart.GetItem(ctx, customer.ID, productID)
	switch {
	case err == nil:
		existing = item.Quantity
	case !errors.Is(err, domain.ErrCartItemNotFound):
		return err
	}

	if existing+quantity > product.Stock {
		uc.log.Warnf("Use Case: Add to cart rejected - product %d has %d in stock, requested %d more than %d",
			productID, product.Stock, quantity, existing)
		return &domain.InsufficientStockError{ProductID: productID, Available: product.Stock}
	}

	err = uc.cart.Upsert(ctx, domain.CartItem{
		CustomerID: customer.ID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  product.Price,
	})
	if err != nil {
		return err
	}
	uc.log.Infof("Use Case: Customer %d added %d of product %d to cart", customer.ID, quantity, productID)
	return nil
}

func (uc *cartUseCase) SetQuantity(ctx context.Context, actx domain.AuthenticatedContext, productID, quantity int) error {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return uc.Remove(ctx, actx, productID)
	}
	product, err := uc.availableProduct(ctx, productID)
	if err != nil {
		return err
	}
	if quantity > product.Stock {
		return &domain.InsufficientStockError{ProductID: productID, Available: product.Stock}
	}
	if err := uc.cart.SetQuantity(ctx, customer.ID, productID, quantity); err != nil {
		return err
	}
	uc.log.Infof("Use Case: Customer %d set quantity of product %d to %d", customer.ID, productID, quantity)
	return nil
}

func (uc *cartUseCase) Remove(ctx context.Context, actx domain.AuthenticatedContext, productID int) error {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return err
	}
	if productID <= 0 {
		return domain.Invalid("invalid product ID")
	}
	return uc.cart.Remove(ctx, customer.ID, productID)
}

func (uc *cartUseCase) Clear(ctx context.Context, actx domain.AuthenticatedContext) error {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return err
	}
	if err := uc.cart.Clear(ctx, customer.ID); err != nil {
		return err
	}
	uc.log.Infof("Use Case: Customer %d cleared cart", customer.ID)
	return nil
}

func (uc *cartUseCase) View(ctx context.Context, actx domain.AuthenticatedContext) domain.CartView {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return domain.EmptyCart()
	}
	lines, err := uc.cart.Lines(ctx, customer.ID)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to load cart of customer %d, returning empty cart: %v", customer.ID, err)
		return domain.EmptyCart()
	}
	return domain.NewCartView(lines)
}

func (uc *cartUseCase) Count(ctx context.Context, actx domain.AuthenticatedContext) int {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return 0
	}
	n, err := uc.cart.CountActive(ctx, customer.ID)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to count cart of customer %d: %v", customer.ID, err)
		return 0
	}
	return n
}

// Checkout orders the visible cart lines at their captured prices and empties
// the cart in the same transaction.
func (uc *cartUseCase) Checkout(ctx context.Context, actx domain.AuthenticatedContext, req CheckoutRequest) (*domain.Order, error) {
	customer, err := domain.Require(actx, domain.CustomerOnly...)
	if err != nil {
		return nil, err
	}
	lines, err := uc.cart.Lines(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	view := domain.NewCartView(lines)
	if view.LineCount == 0 {
		return nil, domain.ErrEmptyOrder
	}

	orderLines := make([]domain.OrderLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		orderLines = append(orderLines, domain.OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal,
		})
	}

	return uc.orders.Create(ctx, actx, CreateOrderRequest{
		LocationID:   req.LocationID,
		CourierID:    req.CourierID,
		DeliveryDate: req.DeliveryDate,
		Lines:        orderLines,
		clearCart:    true,
	})
}
