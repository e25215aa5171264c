package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequire(t *testing.T) {
	_, err := Require(Anonymous(), RoleCustomer)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	courier := AuthenticatedAs(Principal{ID: 3, Role: RoleCourier})
	_, err = Require(courier, CustomerOnly...)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := Require(courier, Fulfilment...)
	require.NoError(t, err)
	assert.Equal(t, 3, p.ID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusEnRoute))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusEnRoute, StatusDelivered))

	assert.False(t, CanTransition(StatusPending, StatusDelivered))
	assert.False(t, CanTransition(StatusEnRoute, StatusCancelled))
	assert.False(t, CanTransition(StatusDelivered, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusPending))
}

func TestNewCartViewSkipsInactiveAndRounds(t *testing.T) {
	lines := []CartLine{
		{ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("0.335"), ProductStatus: ProductActive},
		{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("10"), ProductStatus: ProductDiscontinued},
		{ProductID: 3, Quantity: 2, UnitPrice: decimal.RequireFromString("1.50"), ProductStatus: ProductActive},
	}

	view := NewCartView(lines)

	assert.Equal(t, 2, view.LineCount)
	assert.Len(t, view.Lines, 2)
	assert.Equal(t, "4.01", view.Total.StringFixed(2))
	assert.Equal(t, "3", view.Lines[1].Subtotal.String())
}

func TestNewCartViewEmpty(t *testing.T) {
	view := NewCartView(nil)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())
	assert.Equal(t, 0, view.LineCount)
}

func TestInsufficientStockErrorUnwraps(t *testing.T) {
	err := error(&InsufficientStockError{ProductID: 42, Available: 3})
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
}

func TestNotFoundKinds(t *testing.T) {
	assert.ErrorIs(t, ErrProductNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrCartItemNotFound, ErrNotFound)
	assert.ErrorIs(t, Unavailable("list", errors.New("conn refused")), ErrStoreUnavailable)
	assert.ErrorIs(t, Invalid("bad %s", "x"), ErrValidation)
}

func TestProductPatchValidate(t *testing.T) {
	assert.ErrorIs(t, ProductPatch{}.Validate(), ErrValidation)

	neg := decimal.NewFromInt(-1)
	assert.ErrorIs(t, ProductPatch{Price: &neg}.Validate(), ErrValidation)

	name := "Gomitas"
	assert.NoError(t, ProductPatch{Name: &name}.Validate())

	active := ProductActive
	assert.NoError(t, ProductPatch{Status: &active}.Validate())
	assert.False(t, ProductPatch{Status: &active}.Empty())

	archived := ProductStatus("archived")
	assert.ErrorIs(t, ProductPatch{Status: &archived}.Validate(), ErrValidation)
}
