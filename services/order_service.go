package services

import (
	"context"
	"strings"

	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/repository"
)

// OrderService is the read side over materialized orders.
type OrderService struct {
	repo repository.OrderRepo
}

func NewOrderService(repo repository.OrderRepo) *OrderService {
	return &OrderService{repo: repo}
}

// ListForCustomer returns the customer's orders newest first, never nil.
func (s *OrderService) ListForCustomer(ctx context.Context, email string) ([]models.Order, error) {
	orders, err := s.repo.FindByCustomerEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, mapRepoError(err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// GetForSession returns the order created from sessionID. An order owned by
// another customer is reported as not found.
func (s *OrderService) GetForSession(ctx context.Context, email, sessionID string) (*models.Order, error) {
	order, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !strings.EqualFold(order.CustomerEmail, strings.TrimSpace(email)) {
		return nil, apperrors.ErrNotFound
	}
	return order, nil
}
