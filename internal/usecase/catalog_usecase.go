package usecase

import (
	"context"
	"errors"
	"strings"

	"chucheritas/internal/domain"

	"github.com/sirupsen/logrus"
)

type CatalogUseCase interface {
	ListActive(ctx context.Context) []domain.Product
	Search(ctx context.Context, term string) []domain.Product
	Get(ctx context.Context, id int) (*domain.Product, error)
	ListCategories(ctx context.Context) []domain.Category

	ListAll(ctx context.Context, actx domain.AuthenticatedContext) ([]domain.Product, error)
	Create(ctx context.Context, actx domain.AuthenticatedContext, product *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, actx domain.AuthenticatedContext, id int, patch domain.ProductPatch) (*domain.Product, error)
	Discontinue(ctx context.Context, actx domain.AuthenticatedContext, id int) error
	AdjustStock(ctx context.Context, actx domain.AuthenticatedContext, id int, delta int) (*domain.Product, error)
	ListLowStock(ctx context.Context, actx domain.AuthenticatedContext, threshold int) ([]domain.Product, error)
	CreateCategory(ctx context.Context, actx domain.AuthenticatedContext, description string) (*domain.Category, error)
}

type catalogUseCase struct {
	products          domain.ProductRepository
	categories        domain.CategoryRepository
	lowStockThreshold int
	log               *logrus.Logger
}

func NewCatalogUseCase(products domain.ProductRepository, categories domain.CategoryRepository, lowStockThreshold int, logger *logrus.Logger) CatalogUseCase {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 10
	}
	return &catalogUseCase{
		products:          products,
		categories:        categories,
		lowStockThreshold: lowStockThreshold,
		log:               logger,
	}
}

// degrade turns a storage failure on a read path into an empty result.
func degrade[T any](log *logrus.Logger, op string, items []T, err error) []T {
	if err != nil {
		log.Errorf("Use Case: %s failed, returning empty result: %v", op, err)
		return []T{}
	}
	return items
}

func (uc *catalogUseCase) ListActive(ctx context.Context) []domain.Product {
	products, err := uc.products.ListActive(ctx)
	return degrade(uc.log, "list active products", products, err)
}

func (uc *catalogUseCase) Search(ctx context.Context, term string) []domain.Product {
	term = strings.TrimSpace(term)
	if term == "" {
		return uc.ListActive(ctx)
	}
	products, err := uc.products.Search(ctx, term)
	return degrade(uc.log, "search products", products, err)
}

// Get hides discontinued products from the public catalog.
func (uc *catalogUseCase) Get(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.Invalid("invalid product ID")
	}
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (uc *catalogUseCase) ListCategories(ctx context.Context) []domain.Category {
	categories, err := uc.categories.List(ctx)
	return degrade(uc.log, "list categories", categories, err)
}

func (uc *catalogUseCase) ListAll(ctx context.Context, actx domain.AuthenticatedContext) ([]domain.Product, error) {
	if _, err := domain.Require(actx, domain.AdministratorOnly...); err != nil {
		return nil, err
	}
	products, err := uc.products.ListAll(ctx)
	return degrade(uc.log, "list all products", products, err), nil
}

func (uc *catalogUseCase) Create(ctx context.Context, actx domain.AuthenticatedContext, product *domain.Product) (*domain.Product, error) {
	if _, err := domain.Require(actx, domain.AdministratorOnly...); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.Invalid("product is required")
	}
	product.Name = strings.TrimSpace(product.Name)
	product.Description = strings.TrimSpace(product.Description)
	if err := product.Validate(); err != nil {
		uc.log.Warnf("Use Case: Create product validation failed: %v", err)
		return nil, err
	}
	product.Status = domain.ProductActive

	created, err := uc.products.Create(ctx, product)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Product created successfully: ID %d", created.ID)
	return created, nil
}

func (uc *catalogUseCase) Update(ctx context.Context, actx domain.AuthenticatedContext, id int, patch domain.ProductPatch) (*domain.Product, error) {
	if _, err := domain.Require(actx, domain.AdministratorOnly...); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, domain.Invalid("invalid product ID")
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := uc.products.Update(ctx, id, patch)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to update product %d: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Product %d updated", id)
	return updated, nil
}

func (uc *catalogUseCase) Discontinue(ctx context.Context, actx domain.AuthenticatedContext, id int) error {
	if _, err := domain.Require(actx, domain.AdministratorOnly...); err != nil {
		return err
	}
	if id <= 0 {
		return domain.Invalid("invalid product ID")
	}
	if err := uc.products.SetStatus(ctx, id, domain.ProductDiscontinued); err != nil {
		uc.log.Errorf("Use Case: Failed to discontinue product %d: %v", id, err)
		return err
	}
	uc.log.Infof("Use Case: Product %d discontinued", id)
	return nil
}

// AdjustStock applies the delta or rejects it whole when stock would go
// negative.
func (uc *catalogUseCase) AdjustStock(ctx context.Context, actx domain.AuthenticatedContext, id int, delta int) (*domain.Product, error) {
	if _, err := domain.Require(actx, domain.AdministratorOnly...); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, domain.Invalid("invalid product ID")
	}
	if delta == 0 {
		return uc.products.GetByID(ctx, id)
	}

	updated, err := uc.products.AdjustStock(ctx, id, delta)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			uc.log.Warnf("Use Case: Stock adjustment %d rejected for product %d (available %d)", delta, id, stockErr.Available)
		} else {
			uc.log.Errorf("Use Case: Failed to adjust stock of product %d: %v", id, err)
		}
		return nil, err
	}
	return updated, nil
}

func (uc *catalogUseCase) ListLowStock(ctx context.Context, actx domain.AuthenticatedContext, threshold int) ([]domain.Product, error) {
	if _, err := domain.Require(actx, domain.AdministratorOnly...); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = uc.lowStockThreshold
	}
	products, err := uc.products.ListLowStock(ctx, threshold)
	return degrade(uc.log, "list low stock", products, err), nil
}

func (uc *catalogUseCase) CreateCategory(ctx context.Context, actx domain.AuthenticatedContext, description string) (*domain.Category, error) {
	if _, err := domain.Require(actx, domain.AdministratorOnly...); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domain.Invalid("category description cannot be empty")
	}
	created, err := uc.categories.Create(ctx, description)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to create category '%s': %v", description, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Category created successfully: ID %d", created.ID)
	return created, nil
}
