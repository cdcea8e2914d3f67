package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
)

const orderSelect = `
	SELECT o.id, o.user_id, o.status, o.total_amount,
	       o.street, o.area, o.city, o.postal_code, o.payment_method,
	       o.created_at, o.updated_at,
	       COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.phone, '')
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id`

func scanOrder(row interface{ Scan(...any) error }, order *models.Order) error {
	customer := &models.Customer{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.DeliveryAddress.Street,
		&order.DeliveryAddress.Area,
		&order.DeliveryAddress.City,
		&order.DeliveryAddress.PostalCode,
		&order.PaymentMethod,
		&order.CreatedAt,
		&order.UpdatedAt,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
	)
	if err != nil {
		return err
	}
	if customer.Email != "" {
		order.Customer = customer
	}
	return nil
}

// CreateOrder writes the order header and its item snapshot atomically.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	orderID := uuid.NewString()

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, status, total_amount, street, area, city, postal_code,
			                     payment_method, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
			orderID, o.UserID, o.Status, o.TotalAmount,
			o.DeliveryAddress.Street, o.DeliveryAddress.Area, o.DeliveryAddress.City, o.DeliveryAddress.PostalCode,
			o.PaymentMethod)
		if err != nil {
			if database.ClassifyError(err) == database.ErrorClassForeignKeyViolation {
				return database.ErrUserNotFound
			}
			return fmt.Errorf("create order: %w", err)
		}

		for i, item := range o.Items {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, position, product_id, name, unit_price, quantity, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				orderID, i, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.Subtotal)
			if err != nil {
				return fmt.Errorf("create order item %d: %w", i, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if !validID(id) {
		return nil, database.ErrOrderNotFound
	}

	order := &models.Order{}
	err := scanOrder(s.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := s.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// ListOrders returns orders newest first, each with its items.
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query := orderSelect
	var args []any
	if filter.UserID != "" {
		if !validID(filter.UserID) {
			return []models.Order{}, nil
		}
		query += ` WHERE o.user_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY o.created_at DESC, o.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := s.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func (s *Store) loadItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	ids := make([]string, 0, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
		ids = append(ids, orders[i].ID)
		orders[i].Items = []models.OrderItem{}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id, product_id, name, unit_price, quantity, subtotal
		 FROM order_items
		 WHERE order_id = ANY($1::uuid[])
		 ORDER BY order_id, position`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    models.OrderItem
		)
		err := rows.Scan(
			&orderID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

// UpdateOrderStatus locks the order row and hands its current status to
// next, which returns the status to store or an error that aborts the
// change. Returning the current status leaves the row untouched.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, next func(models.OrderStatus) (models.OrderStatus, error)) (*models.Order, error) {
	if !validID(id) {
		return nil, database.ErrOrderNotFound
	}

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current models.OrderStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		status, err := next(current)
		if err != nil {
			return err
		}
		if status == current {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
			status, id)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, id)
}
