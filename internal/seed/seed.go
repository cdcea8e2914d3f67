// Package seed loads the demo accounts and starter catalog.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/safar/fruit-store/internal/auth"
	"github.com/safar/fruit-store/internal/catalog"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
	"github.com/shopspring/decimal"
)

type DemoUser struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     models.Role
}

type DemoProduct struct {
	Name        string
	Category    models.Category
	Price       int64
	Unit        models.Unit
	ImageURL    string
	Description string
}

var Users = []DemoUser{
	{Name: "Admin User", Email: "admin@fruitmstore.com", Password: "admin123", Phone: "03001234567", Role: models.RoleAdmin},
	{Name: "Test Customer", Email: "customer@test.com", Password: "customer123", Phone: "03009876543", Role: models.RoleCustomer},
}

var Products = []DemoProduct{
	{"Fresh Apples", models.CategoryFruits, 250, models.UnitKg, "https://images.unsplash.com/photo-1560806887-1e4cd0b6cbd6?w=300", "Crispy red apples"},
	{"Bananas", models.CategoryFruits, 120, models.UnitDozen, "https://images.unsplash.com/photo-1571771894821-ce9b6c11b08e?w=300", "Fresh yellow bananas"},
	{"Oranges", models.CategoryFruits, 180, models.UnitKg, "https://images.unsplash.com/photo-1547514701-42782101795e?w=300", "Juicy oranges"},
	{"Mangoes", models.CategoryFruits, 350, models.UnitKg, "https://images.unsplash.com/photo-1553279768-865429fa0078?w=300", "Sweet mangoes"},
	{"Tomatoes", models.CategoryVegetables, 80, models.UnitKg, "https://images.unsplash.com/photo-1546470427-227c7369a9b0?w=300", "Fresh red tomatoes"},
	{"Potatoes", models.CategoryVegetables, 60, models.UnitKg, "https://images.unsplash.com/photo-1518977676601-b53f82aba655?w=300", "Quality potatoes"},
	{"Onions", models.CategoryVegetables, 70, models.UnitKg, "https://images.unsplash.com/photo-1618512496248-a07fe83aa8cb?w=300", "Fresh onions"},
	{"Fresh Milk", models.CategoryDairy, 180, models.UnitPiece, "https://images.unsplash.com/photo-1563636619-e9143da7973b?w=300", "1 Liter fresh milk"},
}

type Result struct {
	UsersCreated    int
	ProductsCreated int
}

// Seeder inserts whatever demo data is missing. Running it twice is a no-op.
type Seeder struct {
	users   auth.UserRepo
	hasher  *auth.Hasher
	catalog *catalog.Service
	log     *slog.Logger
}

func New(users auth.UserRepo, hasher *auth.Hasher, products *catalog.Service, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{users: users, hasher: hasher, catalog: products, log: log}
}

func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	var admin auth.Identity

	for _, demo := range Users {
		user, created, err := s.ensureUser(ctx, demo)
		if err != nil {
			return res, err
		}
		if created {
			res.UsersCreated++
			s.log.InfoContext(ctx, "created user", slog.String("email", demo.Email))
		}
		if user.Role == models.RoleAdmin && admin.IsZero() {
			admin = auth.Identity{UserID: user.ID, Role: user.Role}
		}
	}
	if admin.IsZero() {
		return res, errors.New("no admin account to create products with")
	}

	existing, err := s.catalog.List(ctx, models.ProductFilter{})
	if err != nil {
		return res, fmt.Errorf("list products: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[p.Name] = true
	}

	for _, demo := range Products {
		if names[demo.Name] {
			continue
		}
		if _, err := s.catalog.Create(ctx, admin, fields(demo)); err != nil {
			return res, fmt.Errorf("create product %s: %w", demo.Name, err)
		}
		res.ProductsCreated++
		s.log.InfoContext(ctx, "created product", slog.String("name", demo.Name))
	}

	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, demo DemoUser) (*models.User, bool, error) {
	user, err := s.users.GetUserByEmail(ctx, demo.Email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return nil, false, fmt.Errorf("find user %s: %w", demo.Email, err)
	}

	hash, err := s.hasher.Hash(demo.Password)
	if err != nil {
		return nil, false, err
	}

	user, err = s.users.CreateUser(ctx, &models.User{
		Name:         demo.Name,
		Email:        demo.Email,
		PasswordHash: hash,
		Phone:        demo.Phone,
		Role:         demo.Role,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", demo.Email, err)
	}
	return user, true, nil
}

func fields(p DemoProduct) catalog.ProductFields {
	price := decimal.NewFromInt(p.Price)
	inStock := true
	return catalog.ProductFields{
		Name:        &p.Name,
		Category:    &p.Category,
		Price:       &price,
		Unit:        &p.Unit,
		InStock:     &inStock,
		ImageURL:    &p.ImageURL,
		Description: &p.Description,
	}
}
