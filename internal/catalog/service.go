package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/auth"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
	"github.com/shopspring/decimal"
)

type ProductRepo interface {
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id string, apply func(*models.Product) error) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ProductFields carries caller-supplied product data. Nil fields are absent:
// Create requires Name, Category, Price and Unit; Update merges whatever is set.
type ProductFields struct {
	Name        *string          `json:"name,omitempty"`
	Category    *models.Category `json:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Unit        *models.Unit     `json:"unit,omitempty"`
	InStock     *bool            `json:"in_stock,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	Description *string          `json:"description,omitempty"`
}

type Service struct {
	repo ProductRepo
	log  *slog.Logger
}

func NewService(repo ProductRepo, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log}
}

func (s *Service) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "unknown category")
	}
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return product, nil
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, fields ProductFields) (*models.Product, error) {
	if err := auth.RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}

	if fields.Name == nil || strings.TrimSpace(*fields.Name) == "" ||
		fields.Category == nil || fields.Price == nil || fields.Unit == nil {
		return nil, apperr.New(apperr.InvalidInput, "name, category, price, and unit are required")
	}

	product := &models.Product{
		InStock:  true,
		ImageURL: models.DefaultImageURL,
	}
	apply(product, fields)
	if err := validate(product); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "product created",
		slog.String("product_id", created.ID),
		slog.String("admin_id", caller.UserID))

	return created, nil
}

func (s *Service) Update(ctx context.Context, caller auth.Identity, id string, fields ProductFields) (*models.Product, error) {
	if err := auth.RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProduct(ctx, id, func(p *models.Product) error {
		apply(p, fields)
		return validate(p)
	})
	if err != nil {
		return nil, mapErr(err)
	}

	s.log.InfoContext(ctx, "product updated",
		slog.String("product_id", id),
		slog.String("admin_id", caller.UserID))

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, caller auth.Identity, id string) error {
	if err := auth.RequireRole(caller, models.RoleAdmin); err != nil {
		return err
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return mapErr(err)
	}

	s.log.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
		slog.String("admin_id", caller.UserID))

	return nil
}

func apply(p *models.Product, f ProductFields) {
	if f.Name != nil {
		p.Name = strings.TrimSpace(*f.Name)
	}
	if f.Category != nil {
		p.Category = *f.Category
	}
	if f.Price != nil {
		p.Price = *f.Price
	}
	if f.Unit != nil {
		p.Unit = *f.Unit
	}
	if f.InStock != nil {
		p.InStock = *f.InStock
	}
	if f.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*f.ImageURL)
		if p.ImageURL == "" {
			p.ImageURL = models.DefaultImageURL
		}
	}
	if f.Description != nil {
		p.Description = strings.TrimSpace(*f.Description)
	}
}

func validate(p *models.Product) error {
	switch {
	case p.Name == "":
		return apperr.New(apperr.InvalidInput, "name is required")
	case !p.Category.Valid():
		return apperr.New(apperr.InvalidInput, fmt.Sprintf("unknown category %q", p.Category))
	case !p.Unit.Valid():
		return apperr.New(apperr.InvalidInput, fmt.Sprintf("unknown unit %q", p.Unit))
	}
	if err := models.ValidateAmount(p.Price); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "price "+err.Error(), err)
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, database.ErrProductNotFound) {
		return apperr.Wrap(apperr.NotFound, "product not found", err)
	}
	return err
}
