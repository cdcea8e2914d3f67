// Package memory is a process-local record store with the same contract as
// the Postgres store. Every method is atomic with respect to the others.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int64
	users    map[string]*record[models.User]
	emails   map[string]string
	products map[string]*record[models.Product]
	orders   map[string]*record[models.Order]
}

// record keeps an insertion sequence so newest-first ordering is stable when
// two rows share a timestamp.
type record[T any] struct {
	seq int64
	val T
}

func New() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[string]*record[models.User]),
		emails:   make(map[string]string),
		products: make(map[string]*record[models.Product]),
		orders:   make(map[string]*record[models.Order]),
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[u.Email]; taken {
		return nil, database.ErrDuplicateEmail
	}

	user := *u
	user.ID = uuid.NewString()
	user.CreatedAt = s.now()
	s.users[user.ID] = &record[models.User]{seq: s.nextSeq(), val: user}
	s.emails[user.Email] = user.ID

	return &user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	user := rec.val
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	user := s.users[id].val
	return &user, nil
}

func (s *Store) CreateProduct(_ context.Context, p *models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := *p
	product.ID = uuid.NewString()
	product.CreatedAt = s.now()
	product.UpdatedAt = product.CreatedAt
	s.products[product.ID] = &record[models.Product]{seq: s.nextSeq(), val: product}

	return &product, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	product := rec.val
	return &product, nil
}

func (s *Store) ListProducts(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*record[models.Product]
	for _, rec := range s.products {
		if filter.Category != "" && rec.val.Category != filter.Category {
			continue
		}
		if filter.InStock && !rec.val.InStock {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, newestFirst(recs, func(p models.Product) time.Time { return p.CreatedAt }))

	products := make([]models.Product, 0, len(recs))
	for _, rec := range recs {
		products = append(products, rec.val)
	}
	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, apply func(*models.Product) error) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}

	product := rec.val
	if err := apply(&product); err != nil {
		return nil, err
	}
	product.ID = rec.val.ID
	product.CreatedAt = rec.val.CreatedAt
	product.UpdatedAt = s.now()
	rec.val = product

	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return database.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CreateOrder(_ context.Context, o *models.Order) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[o.UserID]; !ok {
		return nil, database.ErrUserNotFound
	}

	order := *o
	order.ID = uuid.NewString()
	order.Items = append([]models.OrderItem(nil), o.Items...)
	order.Customer = nil
	order.CreatedAt = s.now()
	order.UpdatedAt = order.CreatedAt
	s.orders[order.ID] = &record[models.Order]{seq: s.nextSeq(), val: order}

	return s.view(order), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	return s.view(rec.val), nil
}

func (s *Store) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*record[models.Order]
	for _, rec := range s.orders {
		if filter.UserID != "" && rec.val.UserID != filter.UserID {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, newestFirst(recs, func(o models.Order) time.Time { return o.CreatedAt }))

	orders := make([]models.Order, 0, len(recs))
	for _, rec := range recs {
		orders = append(orders, *s.view(rec.val))
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, next func(models.OrderStatus) (models.OrderStatus, error)) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}

	status, err := next(rec.val.Status)
	if err != nil {
		return nil, err
	}
	if status != rec.val.Status {
		rec.val.Status = status
		rec.val.UpdatedAt = s.now()
	}

	return s.view(rec.val), nil
}

// view copies an order and attaches the owner's contact details. Callers
// hold the lock.
func (s *Store) view(o models.Order) *models.Order {
	order := o
	order.Items = append([]models.OrderItem{}, o.Items...)
	if rec, ok := s.users[o.UserID]; ok {
		order.Customer = &models.Customer{
			Name:  rec.val.Name,
			Email: rec.val.Email,
			Phone: rec.val.Phone,
		}
	}
	return &order
}

func newestFirst[T any](recs []*record[T], createdAt func(T) time.Time) func(i, j int) bool {
	return func(i, j int) bool {
		ti, tj := createdAt(recs[i].val), createdAt(recs[j].val)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return recs[i].seq > recs[j].seq
	}
}
