package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductDiscontinued ProductStatus = "discontinued"
)

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      ProductStatus   `json:"status"`
	CategoryID  *int            `json:"category_id,omitempty"`
}

func (p *Product) IsActive() bool {
	return p.Status == ProductActive
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Invalid("product name cannot be empty")
	}
	if p.Price.IsNegative() {
		return Invalid("product price cannot be negative")
	}
	if p.Stock < 0 {
		return Invalid("product stock cannot be negative")
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return Invalid("category id must be positive")
	}
	if p.Status != nil && *p.Status != ProductActive && *p.Status != ProductDiscontinued {
		return Invalid("product status must be %q or %q", ProductActive, ProductDiscontinued)
	}
	return nil
}

// ProductPatch lists the fields an administrator may change. Nil fields are
// left untouched.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	CategoryID  *int             `json:"category_id,omitempty"`
	Status      *ProductStatus   `json:"status,omitempty"`
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Stock == nil && p.CategoryID == nil && p.Status == nil
}

func (p ProductPatch) Validate() error {
	if p.Empty() {
		return Invalid("no fields provided for update")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return Invalid("product name cannot be empty")
	}
	if p.Price != nil && p.Price.IsNegative() {
		return Invalid("product price cannot be negative")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return Invalid("product stock cannot be negative")
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return Invalid("category id must be positive")
	}
	return nil
}

type Category struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type ProductRepository interface {
	Create(ctx context.Context, product *Product) (*Product, error)
	GetByID(ctx context.Context, id int) (*Product, error)
	Update(ctx context.Context, id int, patch ProductPatch) (*Product, error)
	SetStatus(ctx context.Context, id int, status ProductStatus) error
	AdjustStock(ctx context.Context, id int, delta int) (*Product, error)
	ListActive(ctx context.Context) ([]Product, error)
	ListAll(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, term string) ([]Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]Product, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, description string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
}
