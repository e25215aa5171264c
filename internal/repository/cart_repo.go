package repository

import (
	"context"
	"database/sql"
	"errors"

	"chucheritas/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresCartRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresCartRepository(db *sql.DB, logger *logrus.Logger) domain.CartRepository {
	return &postgresCartRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresCartRepository) GetItem(ctx context.Context, customerID, productID int) (*domain.CartItem, error) {
	query := `
        SELECT customer_id, product_id, quantity, unit_price, added_at
        FROM cart_items
        WHERE customer_id = $1 AND product_id = $2
    `
	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, customerID, productID).Scan(
		&item.CustomerID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.AddedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartItemNotFound
		}
		r.log.Errorf("Repository: failed to get cart item (customer %d, product %d): %v", customerID, productID, err)
		return nil, classify("get cart item", err)
	}
	return item, nil
}

// Upsert keeps the unit price captured when the line was first added.
func (r *postgresCartRepository) Upsert(ctx context.Context, item domain.CartItem) error {
	query := `
        INSERT INTO cart_items (customer_id, product_id, quantity, unit_price)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (customer_id, product_id)
        DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
    `
	if _, err := r.db.ExecContext(ctx, query, item.CustomerID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
		r.log.Errorf("Repository: failed to upsert cart item (customer %d, product %d): %v", item.CustomerID, item.ProductID, err)
		return classify("upsert cart item", err)
	}
	return nil
}

func (r *postgresCartRepository) SetQuantity(ctx context.Context, customerID, productID, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE customer_id = $1 AND product_id = $2`,
		customerID, productID, quantity,
	)
	if err != nil {
		r.log.Errorf("Repository: failed to set cart quantity (customer %d, product %d): %v", customerID, productID, err)
		return classify("set cart quantity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("set cart quantity", err)
	}
	if n == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *postgresCartRepository) Remove(ctx context.Context, customerID, productID int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE customer_id = $1 AND product_id = $2`, customerID, productID)
	if err != nil {
		r.log.Errorf("Repository: failed to remove cart item (customer %d, product %d): %v", customerID, productID, err)
		return classify("remove cart item", err)
	}
	return nil
}

func (r *postgresCartRepository) Clear(ctx context.Context, customerID int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID); err != nil {
		r.log.Errorf("Repository: failed to clear cart of customer %d: %v", customerID, err)
		return classify("clear cart", err)
	}
	return nil
}

func (r *postgresCartRepository) Lines(ctx context.Context, customerID int) ([]domain.CartLine, error) {
	query := `
        SELECT ci.product_id, p.name, ci.quantity, ci.unit_price, p.stock, p.status, ci.added_at
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        WHERE ci.customer_id = $1
        ORDER BY ci.added_at DESC, ci.product_id ASC
    `
	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		r.log.Errorf("Repository: failed to load cart of customer %d: %v", customerID, err)
		return nil, classify("load cart", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice, &l.Stock, &l.ProductStatus, &l.AddedAt); err != nil {
			return nil, classify("load cart", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("load cart", err)
	}
	return lines, nil
}

func (r *postgresCartRepository) CountActive(ctx context.Context, customerID int) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        WHERE ci.customer_id = $1 AND p.status = $2
    `
	var n int
	if err := r.db.QueryRowContext(ctx, query, customerID, domain.ProductActive).Scan(&n); err != nil {
		r.log.Errorf("Repository: failed to count cart of customer %d: %v", customerID, err)
		return 0, classify("count cart", err)
	}
	return n, nil
}
