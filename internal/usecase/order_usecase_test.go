package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"chucheritas/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	products *fakeProducts
	orders   *fakeOrders
	events   *recordingEvents
	uc       OrderUseCase
}

func newOrderFixture(products ...domain.Product) *orderFixture {
	f := &orderFixture{products: newFakeProducts(products...), events: &recordingEvents{}}
	f.orders = newFakeOrders(f.products, nil)
	locations := &fakeLocations{rows: []domain.DeliveryLocation{{ID: 1, Description: "Tienda principal"}}}
	f.uc = NewOrderUseCase(f.orders, f.products, locations, f.events, quietLogger())
	return f
}

func line(productID, qty int, subtotal string) domain.OrderLine {
	return domain.OrderLine{ProductID: productID, Quantity: qty, Subtotal: decimal.RequireFromString(subtotal)}
}

func TestCreateOrderTotalsLines(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10), product(2, "Chicle", "2.50", 10))

	order, err := f.uc.Create(context.Background(), customerCtx, CreateOrderRequest{
		LocationID:   1,
		DeliveryDate: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Lines:        []domain.OrderLine{line(1, 1, "10.00"), line(2, 2, "5.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, "15.00", order.Total.StringFixed(2))
	assert.True(t, order.Total.Equal(domain.SumLines(order.Lines)))
	assert.Equal(t, 5, order.CustomerID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, 9, f.products.rows[1].Stock)
	assert.Equal(t, []int{order.ID}, f.events.placed)
}

func TestCreateOrderRejectsBadRequests(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	when := time.Now().Add(time.Hour)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, customerCtx, CreateOrderRequest{LocationID: 1, DeliveryDate: when})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)

	bad := []CreateOrderRequest{
		{LocationID: 0, DeliveryDate: when, Lines: []domain.OrderLine{line(1, 1, "1")}},
		{LocationID: 1, Lines: []domain.OrderLine{line(1, 1, "1")}},
		{LocationID: 1, DeliveryDate: when, Lines: []domain.OrderLine{line(1, 0, "1")}},
		{LocationID: 1, DeliveryDate: when, Lines: []domain.OrderLine{line(1, 1, "-1")}},
		{LocationID: 1, DeliveryDate: when, Lines: []domain.OrderLine{line(1, 1, "1"), line(1, 1, "1")}},
	}
	for _, req := range bad {
		_, err := f.uc.Create(ctx, customerCtx, req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Empty(t, f.orders.rows)
}

func TestCreateOrderRoles(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	req := CreateOrderRequest{LocationID: 1, DeliveryDate: time.Now(), Lines: []domain.OrderLine{line(1, 1, "10")}}

	_, err := f.uc.Create(context.Background(), domain.Anonymous(), req)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = f.uc.Create(context.Background(), adminCtx, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateOrderInsufficientStockIsAtomic(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10), product(2, "Chicle", "2.50", 1))

	_, err := f.uc.Create(context.Background(), customerCtx, CreateOrderRequest{
		LocationID:   1,
		DeliveryDate: time.Now(),
		Lines:        []domain.OrderLine{line(1, 2, "20"), line(2, 3, "7.50")},
	})
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 10, f.products.rows[1].Stock)
	assert.Empty(t, f.events.placed)
}

func TestCreateOrderRejectsClientPricing(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	ctx := context.Background()

	for _, subtotal := range []string{"0.00", "49.99", "50.01"} {
		_, err := f.uc.Create(ctx, customerCtx, CreateOrderRequest{
			LocationID:   1,
			DeliveryDate: time.Now(),
			Lines:        []domain.OrderLine{line(1, 5, subtotal)},
		})
		assert.ErrorIs(t, err, domain.ErrValidation, subtotal)
	}
	assert.Empty(t, f.orders.rows)
	assert.Equal(t, 10, f.products.rows[1].Stock)
	assert.Empty(t, f.events.placed)

	order, err := f.uc.Create(ctx, customerCtx, CreateOrderRequest{
		LocationID:   1,
		DeliveryDate: time.Now(),
		Lines:        []domain.OrderLine{line(1, 5, "50")},
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", order.Total.StringFixed(2))
	assert.Equal(t, 5, f.products.rows[1].Stock)
}

func TestCreateOrderUnknownOrInactiveProduct(t *testing.T) {
	discontinued := product(2, "Chicle", "2.50", 10)
	discontinued.Status = domain.ProductDiscontinued
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10), discontinued)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, customerCtx, CreateOrderRequest{
		LocationID: 1, DeliveryDate: time.Now(), Lines: []domain.OrderLine{line(9, 1, "1.00")},
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.uc.Create(ctx, customerCtx, CreateOrderRequest{
		LocationID: 1, DeliveryDate: time.Now(), Lines: []domain.OrderLine{line(2, 1, "2.50")},
	})
	assert.ErrorIs(t, err, domain.ErrProductInactive)
	assert.Empty(t, f.orders.rows)
}

func placeOrder(t *testing.T, f *orderFixture, delivery time.Time) *domain.Order {
	t.Helper()
	o, err := f.uc.Create(context.Background(), customerCtx, CreateOrderRequest{
		LocationID: 1, DeliveryDate: delivery, Lines: []domain.OrderLine{line(1, 2, "20")},
	})
	require.NoError(t, err)
	return o
}

func TestListForCustomerNewestFirst(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	first := placeOrder(t, f, time.Now())
	second := placeOrder(t, f, time.Now())

	orders, err := f.uc.ListForCustomer(context.Background(), customerCtx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	_, err = f.uc.ListForCustomer(context.Background(), courierCtx)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListForCourierActionableByDeliveryDate(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	late := placeOrder(t, f, base.Add(48*time.Hour))
	early := placeOrder(t, f, base)
	done := placeOrder(t, f, base.Add(time.Hour))
	f.orders.rows[done.ID].Status = domain.StatusDelivered

	for _, actx := range []domain.AuthenticatedContext{courierCtx, adminCtx} {
		orders, err := f.uc.ListForCourier(context.Background(), actx)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, early.ID, orders[0].ID)
		assert.Equal(t, late.ID, orders[1].ID)
	}

	_, err := f.uc.ListForCourier(context.Background(), customerCtx)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListDegradesOnStoreFailure(t *testing.T) {
	f := newOrderFixture()
	f.orders.err = domain.ErrStoreUnavailable

	orders, err := f.uc.ListForCourier(context.Background(), courierCtx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	o := placeOrder(t, f, time.Now())
	ctx := context.Background()

	_, err := f.uc.UpdateStatus(ctx, courierCtx, o.ID, domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	updated, err := f.uc.UpdateStatus(ctx, courierCtx, o.ID, domain.StatusEnRoute)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnRoute, updated.Status)

	updated, err = f.uc.UpdateStatus(ctx, courierCtx, o.ID, domain.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, updated.Status)

	_, err = f.uc.UpdateStatus(ctx, adminCtx, o.ID, domain.StatusPending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, []domain.OrderStatus{domain.StatusEnRoute, domain.StatusDelivered}, f.events.changed)
}

func TestUpdateStatusCancelRestocksAndNeedsAdministrator(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	o := placeOrder(t, f, time.Now())
	ctx := context.Background()
	require.Equal(t, 8, f.products.rows[1].Stock)

	_, err := f.uc.UpdateStatus(ctx, courierCtx, o.ID, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.uc.UpdateStatus(ctx, adminCtx, o.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.Equal(t, 10, f.products.rows[1].Stock)
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	_, err := f.uc.UpdateStatus(ctx, customerCtx, 1, domain.StatusEnRoute)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.UpdateStatus(ctx, courierCtx, 1, "lost")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.uc.UpdateStatus(ctx, courierCtx, 99, domain.StatusEnRoute)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestGetOrderOwnership(t *testing.T) {
	f := newOrderFixture(product(1, "Gomitas", "10.00", 10))
	o := placeOrder(t, f, time.Now())
	ctx := context.Background()

	got, err := f.uc.Get(ctx, customerCtx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	other := domain.AuthenticatedAs(domain.Principal{ID: 6, Role: domain.RoleCustomer})
	_, err = f.uc.Get(ctx, other, o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.uc.Get(ctx, courierCtx, o.ID)
	assert.NoError(t, err)
}

func TestListDeliveryLocations(t *testing.T) {
	f := newOrderFixture()
	assert.Len(t, f.uc.ListDeliveryLocations(context.Background()), 1)
}
