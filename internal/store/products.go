package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
)

const productColumns = `id, name, category, price, unit, in_stock, image_url, description, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Category,
		&product.Price,
		&product.Unit,
		&product.InStock,
		&product.ImageURL,
		&product.Description,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (id, name, category, price, unit, in_stock, image_url, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + productColumns

	err := scanProduct(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), p.Name, p.Category, p.Price, p.Unit, p.InStock, p.ImageURL, p.Description), product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if !validID(id) {
		return nil, database.ErrProductNotFound
	}

	product := &models.Product{}
	err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.InStock {
		conds = append(conds, "in_stock = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct locks the row, lets apply merge changes into it and writes
// the result back in the same transaction.
func (s *Store) UpdateProduct(ctx context.Context, id string, apply func(*models.Product) error) (*models.Product, error) {
	if !validID(id) {
		return nil, database.ErrProductNotFound
	}

	product := &models.Product{}

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := scanProduct(tx.QueryRowContext(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id), product)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		if err := apply(product); err != nil {
			return err
		}

		err = scanProduct(tx.QueryRowContext(ctx,
			`UPDATE products
			 SET name = $1, category = $2, price = $3, unit = $4, in_stock = $5,
			     image_url = $6, description = $7, updated_at = NOW()
			 WHERE id = $8
			 RETURNING `+productColumns,
			product.Name, product.Category, product.Price, product.Unit, product.InStock,
			product.ImageURL, product.Description, id), product)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if !validID(id) {
		return database.ErrProductNotFound
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
