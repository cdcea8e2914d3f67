package models

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// User is the persisted identity. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Category string

const (
	CategoryFruits     Category = "Fruits"
	CategoryVegetables Category = "Vegetables"
	CategoryHerbs      Category = "Herbs"
	CategoryDairy      Category = "Dairy"
	CategoryOthers     Category = "Others"
)

var Categories = []Category{CategoryFruits, CategoryVegetables, CategoryHerbs, CategoryDairy, CategoryOthers}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Unit string

const (
	UnitKg    Unit = "kg"
	UnitPiece Unit = "piece"
	UnitDozen Unit = "dozen"
	UnitBunch Unit = "bunch"
)

var Units = []Unit{UnitKg, UnitPiece, UnitDozen, UnitBunch}

func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

const DefaultImageURL = "https://via.placeholder.com/300x300?text=Product"

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Unit        Unit            `json:"unit"`
	InStock     bool            `json:"in_stock"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Money columns are NUMERIC(12,2) and quantities are INT.
const (
	AmountScale = 2
	MaxQuantity = math.MaxInt32
)

// MaxAmount is the smallest amount the money columns cannot hold.
var MaxAmount = decimal.New(1, 10)

var (
	ErrNegativeAmount  = errors.New("cannot be negative")
	ErrAmountPrecision = errors.New("must have at most 2 decimal places")
	ErrAmountTooLarge  = errors.New("must be less than 10000000000")
)

// ValidateAmount checks that d can be stored exactly as a price or total.
func ValidateAmount(d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return ErrNegativeAmount
	case !d.Equal(d.Truncate(AmountScale)):
		return ErrAmountPrecision
	case !d.LessThan(MaxAmount):
		return ErrAmountTooLarge
	}
	return nil
}

type ProductFilter struct {
	Category Category
	InStock  bool
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Address struct {
	Street     string `json:"street"`
	Area       string `json:"area"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Customer is the owner's contact view attached to order reads.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Customer        *Customer       `json:"customer,omitempty"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DeliveryAddress Address         `json:"delivery_address"`
	PaymentMethod   string          `json:"payment_method"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderFilter struct {
	// UserID restricts the listing to one owner; empty lists every order.
	UserID string
}
