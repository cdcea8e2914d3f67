package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
	"github.com/shopspring/decimal"
)

func createTestUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		Phone:        "03001234567",
		Role:         models.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func createTestProduct(t *testing.T, s *Store, name string, price int64) *models.Product {
	t.Helper()
	product, err := s.CreateProduct(context.Background(), &models.Product{
		Name:     name,
		Category: models.CategoryFruits,
		Price:    decimal.NewFromInt(price),
		Unit:     models.UnitKg,
		InStock:  true,
		ImageURL: models.DefaultImageURL,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func TestUsers(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, s, "test@example.com")

	if _, err := s.CreateUser(ctx, &models.User{
		Name: "Dup", Email: "test@example.com", PasswordHash: "x", Phone: "1", Role: models.RoleCustomer,
	}); !errors.Is(err, database.ErrDuplicateEmail) {
		t.Errorf("Expected duplicate email error, got: %v", err)
	}

	byEmail, err := s.GetUserByEmail(ctx, "test@example.com")
	if err != nil {
		t.Fatalf("Get user by email: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.PasswordHash != "hash" {
		t.Errorf("Unexpected user %+v", byEmail)
	}

	if _, err := s.GetUserByEmail(ctx, "TEST@example.com"); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Email lookup should be case-sensitive, got: %v", err)
	}
	if _, err := s.GetUser(ctx, "not-a-uuid"); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected user not found for malformed id, got: %v", err)
	}
}

func TestProducts(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	apples := createTestProduct(t, s, "Apples", 250)
	bananas := createTestProduct(t, s, "Bananas", 120)

	updated, err := s.UpdateProduct(ctx, bananas.ID, func(p *models.Product) error {
		p.InStock = false
		p.Price = decimal.RequireFromString("99.50")
		return nil
	})
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}
	if updated.InStock || !updated.Price.Equal(decimal.RequireFromString("99.5")) {
		t.Errorf("Update not applied: %+v", updated)
	}

	all, err := s.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if len(all) != 2 || all[0].ID != bananas.ID {
		t.Errorf("Expected newest first, got %+v", all)
	}

	inStock, err := s.ListProducts(ctx, models.ProductFilter{InStock: true, Category: models.CategoryFruits})
	if err != nil {
		t.Fatalf("List in-stock products: %v", err)
	}
	if len(inStock) != 1 || inStock[0].ID != apples.ID {
		t.Errorf("Expected only apples, got %+v", inStock)
	}

	abort := errors.New("abort")
	if _, err := s.UpdateProduct(ctx, apples.ID, func(p *models.Product) error { return abort }); !errors.Is(err, abort) {
		t.Errorf("Expected apply error to propagate, got: %v", err)
	}

	if err := s.DeleteProduct(ctx, apples.ID); err != nil {
		t.Fatalf("Delete product: %v", err)
	}
	if err := s.DeleteProduct(ctx, apples.ID); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestCreateOrder(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, s, "orders@example.com")

	order, err := s.CreateOrder(ctx, &models.Order{
		UserID: user.ID,
		Items: []models.OrderItem{
			{ProductID: "p-1", Name: "Apples", UnitPrice: decimal.NewFromInt(250), Quantity: 2, Subtotal: decimal.NewFromInt(500)},
			{ProductID: "p-2", Name: "Bananas", UnitPrice: decimal.NewFromInt(120), Quantity: 1, Subtotal: decimal.NewFromInt(120)},
		},
		TotalAmount:     decimal.NewFromInt(620),
		DeliveryAddress: models.Address{Street: "1 Main", Area: "Centre", City: "Lahore", PostalCode: "54000"},
		PaymentMethod:   "cod",
		Status:          models.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if order.ID == "" {
		t.Error("Order ID should not be empty")
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(620)) {
		t.Errorf("Expected total 620, got %s", order.TotalAmount)
	}
	if len(order.Items) != 2 || order.Items[0].Name != "Apples" {
		t.Errorf("Items not stored in order: %+v", order.Items)
	}
	if order.Customer == nil || order.Customer.Email != "orders@example.com" {
		t.Errorf("Expected customer view, got %+v", order.Customer)
	}

	_, err = s.CreateOrder(ctx, &models.Order{
		UserID:        "00000000-0000-0000-0000-000000000000",
		TotalAmount:   decimal.Zero,
		PaymentMethod: "cod",
		Status:        models.OrderStatusPending,
	})
	if !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected user not found, got: %v", err)
	}
}

func TestListOrders(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ann := createTestUser(t, s, "ann@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	for _, owner := range []*models.User{ann, ann, bob} {
		_, err := s.CreateOrder(ctx, &models.Order{
			UserID:          owner.ID,
			Items:           []models.OrderItem{{ProductID: "p", Name: "Milk", UnitPrice: decimal.NewFromInt(180), Quantity: 1, Subtotal: decimal.NewFromInt(180)}},
			TotalAmount:     decimal.NewFromInt(180),
			DeliveryAddress: models.Address{Street: "s", Area: "a", City: "c", PostalCode: "p"},
			PaymentMethod:   "cod",
			Status:          models.OrderStatusPending,
		})
		if err != nil {
			t.Fatalf("Create order: %v", err)
		}
	}

	mine, err := s.ListOrders(ctx, models.OrderFilter{UserID: ann.ID})
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("Expected 2 orders for ann, got %d", len(mine))
	}
	if mine[0].CreatedAt.Before(mine[1].CreatedAt) {
		t.Error("Orders should be newest first")
	}
	for _, o := range mine {
		if len(o.Items) != 1 {
			t.Errorf("Order %s should carry its items", o.ID)
		}
	}

	all, err := s.ListOrders(ctx, models.OrderFilter{})
	if err != nil {
		t.Fatalf("List all orders: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 orders, got %d", len(all))
	}
}

func TestConcurrentStatusUpdates(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, s, "status@example.com")
	order, err := s.CreateOrder(ctx, &models.Order{
		UserID:          user.ID,
		TotalAmount:     decimal.Zero,
		DeliveryAddress: models.Address{Street: "s", Area: "a", City: "c", PostalCode: "p"},
		PaymentMethod:   "cod",
		Status:          models.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	errAlreadyMoved := errors.New("already moved")
	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.UpdateOrderStatus(ctx, order.ID, func(current models.OrderStatus) (models.OrderStatus, error) {
				if current != models.OrderStatusPending {
					return "", errAlreadyMoved
				}
				return models.OrderStatusConfirmed, nil
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, errAlreadyMoved):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successCount != 1 {
		t.Errorf("Expected exactly one transition out of pending, got %d", successCount)
	}

	final, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if final.Status != models.OrderStatusConfirmed {
		t.Errorf("Expected confirmed, got %s", final.Status)
	}

	if _, err := s.UpdateOrderStatus(ctx, "not-a-uuid", nil); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order not found, got: %v", err)
	}
}
