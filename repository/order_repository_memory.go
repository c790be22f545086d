package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/yashrajoria/storefront-backend/models"
)

// MemoryOrderRepository keeps orders in process memory. It backs
// ORDER_STORE=memory for local runs and the handler tests.
type MemoryOrderRepository struct {
	mu        sync.RWMutex
	bySession map[string]models.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{bySession: make(map[string]models.Order)}
}

func (r *MemoryOrderRepository) InsertIfAbsent(_ context.Context, order *models.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySession[order.SourceSessionID]; exists {
		return false, nil
	}
	r.bySession[order.SourceSessionID] = copyOrder(*order)
	return true, nil
}

func (r *MemoryOrderRepository) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyOrder(order)
	return &out, nil
}

func (r *MemoryOrderRepository) FindByCustomerEmail(_ context.Context, email string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range r.bySession {
		if o.CustomerEmail == email {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *MemoryOrderRepository) EnsureIndexes(context.Context) error { return nil }

// Count returns the number of stored orders.
func (r *MemoryOrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySession)
}

func copyOrder(o models.Order) models.Order {
	o.LineItems = append([]models.OrderLineItem(nil), o.LineItems...)
	return o
}
