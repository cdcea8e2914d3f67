package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/auth"
	"github.com/safar/fruit-store/internal/catalog"
	"github.com/safar/fruit-store/internal/models"
	"github.com/safar/fruit-store/internal/orders"
	"github.com/safar/fruit-store/internal/ratelimit"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	session, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := ratelimit.Check(r.Context(), s.limiter, s.clientAddr(r)); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Me(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ProductFilter{Category: models.Category(strings.TrimSpace(q.Get("category")))}
	if raw := q.Get("inStock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, r, apperr.New(apperr.InvalidInput, "inStock must be true or false"))
			return
		}
		filter.InStock = inStock
	}

	products, err := s.catalog.List(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, nonNil(products))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductFields
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	product, err := s.catalog.Create(r.Context(), IdentityFrom(r.Context()), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductFields
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	product, err := s.catalog.Update(r.Context(), IdentityFrom(r.Context()), r.PathValue("id"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), IdentityFrom(r.Context()), r.PathValue("id")); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, messageBody{Message: "Product deleted"})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	order, err := s.orders.PlaceOrder(r.Context(), IdentityFrom(r.Context()), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.ListMine(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.ListAll(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOne(r.Context(), IdentityFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	order, err := s.orders.SetStatus(r.Context(), IdentityFrom(r.Context()), r.PathValue("id"), req.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, order)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
