package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chucheritas/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const orderColumns = "id, customer_id, delivery_location_id, courier_id, delivery_date, total, status, created_at, updated_at"

type postgresOrderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &postgresOrderRepository{
		db:  db,
		log: logger,
	}
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(&o.ID, &o.CustomerID, &o.DeliveryLocationID, &o.CourierID, &o.DeliveryDate,
		&o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresOrderRepository) Create(ctx context.Context, order *domain.Order, clearCart bool) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Repository: failed to begin transaction: %v", err)
		return nil, classify("begin order transaction", err)
	}
	defer rollback(tx)

	headerQuery := `
        INSERT INTO orders (customer_id, delivery_location_id, courier_id, delivery_date, total, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + orderColumns

	created, err := scanOrder(tx.QueryRowContext(ctx, headerQuery,
		order.CustomerID, order.DeliveryLocationID, order.CourierID, order.DeliveryDate, order.Total, domain.StatusPending,
	))
	if err != nil {
		r.log.Errorf("Repository: failed to insert order for customer %d: %v", order.CustomerID, err)
		return nil, classify("create order", err)
	}

	lineStmt, err := tx.PrepareContext(ctx, `
        INSERT INTO order_lines (order_id, product_id, quantity, subtotal)
        VALUES ($1, $2, $3, $4)
    `)
	if err != nil {
		return nil, classify("prepare order line", err)
	}
	defer lineStmt.Close()

	stockStmt, err := tx.PrepareContext(ctx, `
        UPDATE products SET stock = stock - $2
        WHERE id = $1 AND status = 'active' AND stock >= $2
    `)
	if err != nil {
		return nil, classify("prepare stock decrement", err)
	}
	defer stockStmt.Close()

	for _, line := range order.Lines {
		if _, err := lineStmt.ExecContext(ctx, created.ID, line.ProductID, line.Quantity, line.Subtotal); err != nil {
			r.log.Errorf("Repository: failed to insert order line (product %d) for order %d: %v", line.ProductID, created.ID, err)
			return nil, classify(fmt.Sprintf("create order line (product %d)", line.ProductID), err)
		}

		res, err := stockStmt.ExecContext(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, classify("decrement stock", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, classify("decrement stock", err)
		}
		if n == 0 {
			return nil, r.stockFailure(ctx, tx, line.ProductID)
		}
	}

	if clearCart {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, order.CustomerID); err != nil {
			return nil, classify("clear cart", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.log.Errorf("Repository: failed to commit order for customer %d: %v", order.CustomerID, err)
		return nil, classify("commit order", err)
	}

	created.Lines = append([]domain.OrderLine(nil), order.Lines...)
	r.log.Infof("Repository: order %d created with %d lines", created.ID, len(created.Lines))
	return created, nil
}

// stockFailure explains why a conditional stock decrement matched no row.
func (r *postgresOrderRepository) stockFailure(ctx context.Context, tx *sql.Tx, productID int) error {
	var stock int
	var status domain.ProductStatus
	err := tx.QueryRowContext(ctx, `SELECT stock, status FROM products WHERE id = $1`, productID).Scan(&stock, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrProductNotFound
	case err != nil:
		return classify("check stock", err)
	case status != domain.ProductActive:
		return fmt.Errorf("product %d: %w", productID, domain.ErrProductInactive)
	default:
		r.log.Warnf("Repository: insufficient stock for product %d (available %d)", productID, stock)
		return &domain.InsufficientStockError{ProductID: productID, Available: stock}
	}
}

func (r *postgresOrderRepository) GetByID(ctx context.Context, id int) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Repository: failed to get order %d: %v", id, err)
		return nil, classify("get order", err)
	}
	orders := []domain.Order{*o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresOrderRepository) ListByCustomer(ctx context.Context, customerID int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, "list customer orders", query, customerID)
}

func (r *postgresOrderRepository) ListByStatuses(ctx context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = ANY($1) ORDER BY delivery_date ASC, id ASC`
	return r.list(ctx, "list orders by status", query, pq.Array(values))
}

func (r *postgresOrderRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Repository: failed to %s: %v", op, err)
		return nil, classify(op, err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines loads the lines of every order with a single query.
func (r *postgresOrderRepository) attachLines(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int]int, len(orders))
	for i := range orders {
		ids[i] = int64(orders[i].ID)
		index[orders[i].ID] = i
		orders[i].Lines = []domain.OrderLine{}
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT order_id, product_id, quantity, subtotal
        FROM order_lines
        WHERE order_id = ANY($1)
        ORDER BY order_id, product_id
    `, pq.Array(ids))
	if err != nil {
		r.log.Errorf("Repository: failed to load order lines: %v", err)
		return classify("load order lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int
		var line domain.OrderLine
		if err := rows.Scan(&orderID, &line.ProductID, &line.Quantity, &line.Subtotal); err != nil {
			return classify("load order lines", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Lines = append(orders[i].Lines, line)
		}
	}
	if err := rows.Err(); err != nil {
		return classify("load order lines", err)
	}
	return nil
}

// UpdateStatus only succeeds while the order is still in the expected status.
func (r *postgresOrderRepository) UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin status transaction", err)
	}
	defer rollback(tx)

	query := `
        UPDATE orders SET status = $3, updated_at = NOW()
        WHERE id = $1 AND status = $2
        RETURNING ` + orderColumns

	updated, err := scanOrder(tx.QueryRowContext(ctx, query, id, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if qErr := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); qErr != nil {
				return nil, classify("update order status", qErr)
			}
			if !exists {
				return nil, domain.ErrOrderNotFound
			}
			return nil, fmt.Errorf("order %d is no longer %s: %w", id, from, domain.ErrInvalidTransition)
		}
		r.log.Errorf("Repository: failed to update status of order %d: %v", id, err)
		return nil, classify("update order status", err)
	}

	if to == domain.StatusCancelled {
		_, err := tx.ExecContext(ctx, `
            UPDATE products p SET stock = p.stock + ol.quantity
            FROM order_lines ol
            WHERE ol.order_id = $1 AND p.id = ol.product_id
        `, id)
		if err != nil {
			r.log.Errorf("Repository: failed to restock cancelled order %d: %v", id, err)
			return nil, classify("restock cancelled order", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit order status", err)
	}
	r.log.Infof("Repository: order %d moved from %s to %s", id, from, to)

	orders := []domain.Order{*updated}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}
