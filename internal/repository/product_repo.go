package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chucheritas/internal/domain"

	"github.com/sirupsen/logrus"
)

const productColumns = "id, name, description, price, stock, status, category_id"

type postgresProductRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{
		db:  db,
		log: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Status, &p.CategoryID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresProductRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (name, description, price, stock, status, category_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + productColumns

	created, err := scanProduct(r.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.Stock, domain.ProductActive, product.CategoryID,
	))
	if err != nil {
		r.log.Errorf("Repository: failed to insert product '%s': %v", product.Name, err)
		return nil, classify("create product", err)
	}
	r.log.Infof("Repository: product created with ID %d", created.ID)
	return created, nil
}

func (r *postgresProductRepository) GetByID(ctx context.Context, id int) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: failed to get product %d: %v", id, err)
		return nil, classify("get product", err)
	}
	return p, nil
}

// Update only ever touches the columns named by the patch.
func (r *postgresProductRepository) Update(ctx context.Context, id int, patch domain.ProductPatch) (*domain.Product, error) {
	setClauses := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Stock != nil {
		add("stock", *patch.Stock)
	}
	if patch.CategoryID != nil {
		add("category_id", *patch.CategoryID)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if len(setClauses) == 0 {
		return nil, domain.Invalid("no fields provided for update")
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), len(args), productColumns)

	updated, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: failed to update product %d: %v", id, err)
		return nil, classify("update product", err)
	}
	r.log.Infof("Repository: product %d updated (%d fields)", id, len(setClauses))
	return updated, nil
}

func (r *postgresProductRepository) SetStatus(ctx context.Context, id int, status domain.ProductStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		r.log.Errorf("Repository: failed to set status of product %d: %v", id, err)
		return classify("set product status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("set product status", err)
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// AdjustStock adds delta atomically and refuses to drive stock below zero.
func (r *postgresProductRepository) AdjustStock(ctx context.Context, id int, delta int) (*domain.Product, error) {
	query := `
        UPDATE products SET stock = stock + $2
        WHERE id = $1 AND stock + $2 >= 0
        RETURNING ` + productColumns

	updated, err := scanProduct(r.db.QueryRowContext(ctx, query, id, delta))
	if err == nil {
		r.log.Infof("Repository: stock of product %d adjusted by %d to %d", id, delta, updated.Stock)
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		r.log.Errorf("Repository: failed to adjust stock of product %d: %v", id, err)
		return nil, classify("adjust stock", err)
	}

	var current int
	err = r.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, classify("adjust stock", err)
	}
	r.log.Warnf("Repository: stock adjustment %d rejected for product %d with stock %d", delta, id, current)
	return nil, &domain.InsufficientStockError{ProductID: id, Available: current}
}

func (r *postgresProductRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Repository: failed to %s: %v", op, err)
		return nil, classify(op, err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.log.Errorf("Repository: failed to scan product row: %v", err)
			return nil, classify(op, err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return products, nil
}

func (r *postgresProductRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE status = $1 ORDER BY name ASC, id ASC`
	return r.list(ctx, "list active products", query, domain.ProductActive)
}

func (r *postgresProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id ASC`
	return r.list(ctx, "list products", query)
}

// Search matches the term as a literal, case-insensitive substring.
func (r *postgresProductRepository) Search(ctx context.Context, term string) ([]domain.Product, error) {
	query := `
        SELECT ` + productColumns + `
        FROM products
        WHERE status = $1 AND (name ILIKE $2 OR description ILIKE $2)
        ORDER BY name ASC, id ASC`
	return r.list(ctx, "search products", query, domain.ProductActive, "%"+escapeLike(term)+"%")
}

func (r *postgresProductRepository) ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	query := `
        SELECT ` + productColumns + `
        FROM products
        WHERE status = $1 AND stock < $2
        ORDER BY stock ASC, id ASC`
	return r.list(ctx, "list low stock products", query, domain.ProductActive, threshold)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
