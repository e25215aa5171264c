package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	CustomerID int             `json:"-"`
	ProductID  int             `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	AddedAt    time.Time       `json:"added_at"`
}

// CartLine is a cart item joined with the current product row.
type CartLine struct {
	ProductID     int             `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Stock         int             `json:"stock"`
	ProductStatus ProductStatus   `json:"-"`
	AddedAt       time.Time       `json:"added_at"`
}

type CartView struct {
	Lines     []CartLine      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	LineCount int             `json:"line_count"`
}

func EmptyCart() CartView {
	return CartView{Lines: []CartLine{}, Total: decimal.Zero}
}

// NewCartView keeps the lines of active products and totals them to two
// decimal places.
func NewCartView(lines []CartLine) CartView {
	view := EmptyCart()
	sum := decimal.Zero
	for _, l := range lines {
		if l.ProductStatus != ProductActive {
			continue
		}
		l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		sum = sum.Add(l.Subtotal)
		view.Lines = append(view.Lines, l)
	}
	view.Total = sum.Round(2)
	view.LineCount = len(view.Lines)
	return view
}

type CartRepository interface {
	GetItem(ctx context.Context, customerID, productID int) (*CartItem, error)
	// Upsert inserts the line, or adds quantity to an existing one keeping its
	// captured unit price.
	Upsert(ctx context.Context, item CartItem) error
	SetQuantity(ctx context.Context, customerID, productID, quantity int) error
	Remove(ctx context.Context, customerID, productID int) error
	Clear(ctx context.Context, customerID int) error
	// Lines returns every line, newest first, with product state attached.
	Lines(ctx context.Context, customerID int) ([]CartLine, error)
	CountActive(ctx context.Context, customerID int) (int, error)
}
