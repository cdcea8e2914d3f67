package orders

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

type OrderRepo interface {
	CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, next func(models.OrderStatus) (models.OrderStatus, error)) (*models.Order, error)
}

// ProductReader resolves the authoritative product state at checkout.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

type PlaceOrderInput struct {
	Items           []models.OrderItem `json:"items"`
	DeliveryAddress models.Address     `json:"delivery_address"`
	PaymentMethod   string             `json:"payment_method"`
}

type Options struct {
	// TrustClientPrices records the submitted name and unit price of each
	// line instead of re-reading them from the catalog.
	TrustClientPrices bool
}

type Service struct {
	orders   OrderRepo
	products ProductReader
	opts     Options
	log      *slog.Logger
}

func NewService(orders OrderRepo, products ProductReader, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{orders: orders, products: products, opts: opts, log: log}
}

// PlaceOrder snapshots the submitted lines into a pending order owned by the
// caller. The item snapshot and total never change afterwards.
func (s *Service) PlaceOrder(ctx context.Context, caller auth.Identity, in PlaceOrderInput) (*models.Order, error) {
	if err := auth.RequireIdentity(caller); err != nil {
		return nil, err
	}

	address, err := normalizeAddress(in.DeliveryAddress)
	if err != nil {
		return nil, err
	}
	payment := strings.TrimSpace(in.PaymentMethod)
	if payment == "" {
		return nil, apperr.New(apperr.InvalidInput, "payment method is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "order must contain at least one item")
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	total := decimal.Zero
	for i, submitted := range in.Items {
		item, err := s.resolveItem(ctx, i, submitted)
		if err != nil {
			return nil, err
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)
		items = append(items, item)
	}
	if err := models.ValidateAmount(total); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "order total "+err.Error(), err)
	}

	order, err := s.orders.CreateOrder(ctx, &models.Order{
		UserID:          caller.UserID,
		Items:           items,
		TotalAmount:     total,
		DeliveryAddress: address,
		PaymentMethod:   payment,
		Status:          models.OrderStatusPending,
	})
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperr.Wrap(apperr.Unauthenticated, "account no longer exists", err)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", caller.UserID),
		slog.Int("items", len(items)),
		slog.String("total", total.StringFixed(2)))

	return order, nil
}

func (s *Service) resolveItem(ctx context.Context, i int, submitted models.OrderItem) (models.OrderItem, error) {
	productID := strings.TrimSpace(submitted.ProductID)
	if productID == "" {
		return models.OrderItem{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("item %d: product id is required", i))
	}
	if submitted.Quantity < 1 {
		return models.OrderItem{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("item %d: quantity must be positive", i))
	}
	if submitted.Quantity > models.MaxQuantity {
		return models.OrderItem{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("item %d: quantity must be at most %d", i, models.MaxQuantity))
	}

	if s.opts.TrustClientPrices {
		if err := models.ValidateAmount(submitted.UnitPrice); err != nil {
			return models.OrderItem{}, apperr.Wrap(apperr.InvalidInput, fmt.Sprintf("item %d: price %s", i, err), err)
		}
		return models.OrderItem{
			ProductID: productID,
			Name:      strings.TrimSpace(submitted.Name),
			UnitPrice: submitted.UnitPrice,
			Quantity:  submitted.Quantity,
		}, nil
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return models.OrderItem{}, apperr.Wrap(apperr.InvalidInput, fmt.Sprintf("item %d: product %s does not exist", i, productID), err)
		}
		return models.OrderItem{}, err
	}
	if !product.InStock {
		return models.OrderItem{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("item %d: %s is out of stock", i, product.Name))
	}

	return models.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  submitted.Quantity,
	}, nil
}

func (s *Service) ListMine(ctx context.Context, caller auth.Identity) ([]models.Order, error) {
	if err := auth.RequireIdentity(caller); err != nil {
		return nil, err
	}
	return s.orders.ListOrders(ctx, models.OrderFilter{UserID: caller.UserID})
}

func (s *Service) ListAll(ctx context.Context, caller auth.Identity) ([]models.Order, error) {
	if err := auth.RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.orders.ListOrders(ctx, models.OrderFilter{})
}

func (s *Service) GetOne(ctx context.Context, caller auth.Identity, id string) (*models.Order, error) {
	if err := auth.RequireIdentity(caller); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}

	if err := auth.RequireOwnerOrAdmin(caller, order.UserID); err != nil {
		return nil, err
	}

	return order, nil
}

// SetStatus moves an order along the lifecycle. Repeating the current status
// succeeds without changing anything.
func (s *Service) SetStatus(ctx context.Context, caller auth.Identity, id string, status models.OrderStatus) (*models.Order, error) {
	if err := auth.RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "invalid order status")
	}

	var from models.OrderStatus
	order, err := s.orders.UpdateOrderStatus(ctx, id, func(current models.OrderStatus) (models.OrderStatus, error) {
		from = current
		if err := checkTransition(current, status); err != nil {
			return "", err
		}
		return status, nil
	})
	if err != nil {
		return nil, mapErr(err)
	}

	if from != status {
		s.log.InfoContext(ctx, "order status changed",
			slog.String("order_id", id),
			slog.String("from", string(from)),
			slog.String("to", string(status)),
			slog.String("admin_id", caller.UserID))
	}

	return order, nil
}

func normalizeAddress(a models.Address) (models.Address, error) {
	out := models.Address{
		Street:     strings.TrimSpace(a.Street),
		Area:       strings.TrimSpace(a.Area),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
	if out.Street == "" || out.Area == "" || out.City == "" || out.PostalCode == "" {
		return models.Address{}, apperr.New(apperr.InvalidInput, "street, area, city, and postal code are required")
	}
	return out, nil
}

func mapErr(err error) error {
	if errors.Is(err, database.ErrOrderNotFound) {
		return apperr.Wrap(apperr.NotFound, "order not found", err)
	}
	return err
}
